package ghost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-planner/internal/config"
)

const (
	testKeyID  = "65f1"
	testSecret = "a1b2c3d4e5f60718293a4b5c6d7e8f90"
)

func TestFetchPosts(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ghost/api/v3/content/posts/", r.URL.Path)
			assert.Equal(t, "test_key", r.URL.Query().Get("key"))
			assert.Equal(t, "all", r.URL.Query().Get("limit"))

			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `{
				"posts": [
					{"id": "1", "title": "Recipe 1", "html": "<h1>Recipe 1</h1>", "updated_at": "2023-10-27T10:00:00Z"},
					{"id": "2", "title": "Recipe 2", "html": "<h1>Recipe 2</h1>", "updated_at": "2023-10-28T10:00:00Z"}
				],
				"meta": {"pagination": {"page": 1, "limit": "all", "pages": 1, "total": 2}}
			}`)
		}))
		defer server.Close()

		client := NewClient(&config.Config{GhostURL: server.URL + "/", GhostContentKey: "test_key"})

		posts, err := client.FetchPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, "Recipe 2", posts[1].Title)
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(&config.Config{GhostURL: server.URL, GhostContentKey: "test_key"})

		_, err := client.FetchPosts(ctx)
		assert.Error(t, err)
	})
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesWithAdminToken", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "html", r.URL.Query().Get("source"))

			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Ghost ")
			secret, _ := hex.DecodeString(testSecret)
			token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
				assert.Equal(t, testKeyID, tok.Header["kid"])
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("/v3/admin/"))
			if assert.NoError(t, err) {
				assert.True(t, token.Valid)
			}

			var body struct {
				Posts []map[string]string `json:"posts"`
			}
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) || !assert.Len(t, body.Posts, 1) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			assert.Equal(t, "published", body.Posts[0]["status"])

			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"posts":[{"id":"p1","title":%q,"url":"https://blog.example/p1/"}]}`, body.Posts[0]["title"])
		}))
		defer server.Close()

		client := NewClient(&config.Config{GhostURL: server.URL, GhostAdminKey: testKeyID + ":" + testSecret})

		post, err := client.CreatePost(ctx, "Tacos", "<p>yum</p>", true)
		require.NoError(t, err)
		assert.Equal(t, "p1", post.ID)
		assert.Equal(t, "Tacos", post.Title)
		assert.Equal(t, "https://blog.example/p1/", post.URL)
	})

	t.Run("InvalidAdminKey", func(t *testing.T) {
		client := NewClient(&config.Config{GhostURL: "http://unused", GhostAdminKey: "no-secret"})
		_, err := client.CreatePost(ctx, "Tacos", "", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid admin key format")
	})

	t.Run("AdminError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errors":[{"message":"Unknown Admin API Key"}]}`)
		}))
		defer server.Close()

		client := NewClient(&config.Config{GhostURL: server.URL, GhostAdminKey: testKeyID + ":" + testSecret})
		_, err := client.CreatePost(ctx, "Tacos", "", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown Admin API Key")
	})
}
