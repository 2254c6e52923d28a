package clipper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/shared"
)

// --- Mocks ---
type mockExtractor struct {
	page  recipe.Page
	draft recipe.Draft
	err   error
}

func (m *mockExtractor) Extract(ctx context.Context, page recipe.Page) (recipe.Draft, shared.AgentMeta, error) {
	m.page = page
	if m.err != nil {
		return recipe.Draft{}, shared.AgentMeta{AgentName: "RecipeExtractor"}, m.err
	}
	d := m.draft
	d.SourceURL = page.SourceURL
	return d, shared.AgentMeta{AgentName: "RecipeExtractor"}, nil
}

const dirtyHTML = `
<html>
	<head>
		<title>Tasty Recipe | Blog</title>
		<meta property="og:image" content="https://cdn.example.com/pie.jpg">
		<script>alert('bad');</script>
	</head>
	<body>
		<nav>Home About</nav>
		<h1>Tasty Recipe</h1>
		<div class="ads">Buy stuff!</div>
		<p>Mix    flour and water.</p>
		<script>more_bad_stuff()</script>
		<footer>Copyright 2024</footer>
	</body>
</html>`

func TestClipURL(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(dirtyHTML))
	}))
	defer ts.Close()

	t.Run("Success", func(t *testing.T) {
		ext := &mockExtractor{draft: recipe.Draft{Name: "Mock Pie", Category: recipe.Dessert}}
		c := NewClipper(ext)

		draft, meta, err := c.ClipURL(ctx, ts.URL+"/pie")
		require.NoError(t, err)

		assert.Equal(t, "Mock Pie", draft.Name)
		assert.Equal(t, ts.URL+"/pie", draft.SourceURL)
		assert.Equal(t, "https://cdn.example.com/pie.jpg", draft.ImageURL)
		assert.Equal(t, "RecipeExtractor", meta.AgentName)

		assert.Equal(t, "Tasty Recipe | Blog", ext.page.Title)
		assert.Contains(t, ext.page.Content, "Tasty Recipe")
		assert.Contains(t, ext.page.Content, "Mix flour and water.")
		for _, noise := range []string{"alert('bad')", "Buy stuff!", "Copyright 2024", "Home About", "more_bad_stuff"} {
			assert.NotContains(t, ext.page.Content, noise)
		}
	})

	t.Run("InvalidURL", func(t *testing.T) {
		for _, u := range []string{"", "ftp://example.com", "not a url", "https://"} {
			_, _, err := NewClipper(&mockExtractor{}).ClipURL(ctx, u)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "url %q", u)
		}
	})

	t.Run("FetchFailure", func(t *testing.T) {
		_, _, err := NewClipper(&mockExtractor{}).ClipURL(ctx, ts.URL+"/missing")
		assert.True(t, apperr.Is(err, apperr.KindGeneration))
	})

	t.Run("ExtractionFailure", func(t *testing.T) {
		ext := &mockExtractor{err: apperr.Generation("failed to parse recipe details", errors.New("bad json"))}
		_, _, err := NewClipper(ext).ClipURL(ctx, ts.URL)
		assert.True(t, apperr.Is(err, apperr.KindGeneration))
	})
}

func TestPageFromHTML(t *testing.T) {
	page, err := PageFromHTML("  Lemon Cake ", "https://blog.example.com/lemon-cake",
		"<h2>Ingredients</h2><ul><li>2 lemons</li></ul><script>track()</script><p>Bake   for 40 minutes.</p>")
	require.NoError(t, err)

	assert.Equal(t, "Lemon Cake", page.Title)
	assert.Equal(t, "https://blog.example.com/lemon-cake", page.SourceURL)
	assert.Contains(t, page.Content, "2 lemons")
	assert.Contains(t, page.Content, "Bake for 40 minutes.")
	assert.NotContains(t, page.Content, "track()")
}
