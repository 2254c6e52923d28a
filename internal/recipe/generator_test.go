package recipe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/llm"
	"recipe-planner/internal/shared"
)

// mockTextGenerator records the prompt and returns a canned response.
type mockTextGenerator struct {
	response string
	err      error
	prompt   string
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompt = prompt
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{
		Content: m.response,
		Usage:   shared.TokenUsage{PromptTokens: 12, CompletionTokens: 34, TotalTokens: 46},
	}, nil
}

const draftJSON = `{
	"name": "Lemon Herb Chicken",
	"category": "Dinner",
	"prepTime": 15,
	"cookTime": 35,
	"servings": 4,
	"ingredients": "4 chicken thighs\n1 lemon\n2 sprigs rosemary",
	"instructions": "1. Marinate the chicken.\n2. Roast for 35 minutes.",
	"tags": ["chicken", "easy"]
}`

func TestGenerateDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock := &mockTextGenerator{response: "```json\n" + draftJSON + "\n```"}
		g := NewGenerator(mock)

		draft, meta, err := g.GenerateDetails(ctx, "a zesty chicken dinner")
		require.NoError(t, err)

		assert.Equal(t, "Lemon Herb Chicken", draft.Name)
		assert.Equal(t, Dinner, draft.Category)
		assert.Equal(t, 35, draft.CookTime)
		assert.Equal(t, "RecipeGenerator", meta.AgentName)
		assert.Equal(t, 46, meta.Usage.TotalTokens)
		assert.Contains(t, mock.prompt, "master chef")
		assert.Contains(t, mock.prompt, "Recipe Description: a zesty chicken dinner")

		assert.NoError(t, draft.Input().Validate())
	})

	t.Run("IngredientListIsAccepted", func(t *testing.T) {
		resp := strings.Replace(draftJSON,
			`"ingredients": "4 chicken thighs\n1 lemon\n2 sprigs rosemary"`,
			`"ingredients": ["4 chicken thighs", "1 lemon"]`, 1)
		draft, _, err := NewGenerator(&mockTextGenerator{response: resp}).GenerateDetails(ctx, "chicken")
		require.NoError(t, err)
		assert.Equal(t, "4 chicken thighs\n1 lemon", string(draft.Ingredients))
	})

	t.Run("EmptyDescription", func(t *testing.T) {
		_, _, err := NewGenerator(&mockTextGenerator{}).GenerateDetails(ctx, "   ")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	failures := []struct {
		name string
		gen  llm.TextGenerator
	}{
		{"NotConfigured", nil},
		{"ProviderError", &mockTextGenerator{err: errors.New("quota exceeded")}},
		{"EmptyContent", &mockTextGenerator{response: "  "}},
		{"NotJSON", &mockTextGenerator{response: "Sure! Here is a recipe."}},
		{"UnknownCategory", &mockTextGenerator{response: strings.Replace(draftJSON, `"Dinner"`, `"Supper"`, 1)}},
		{"NegativeTime", &mockTextGenerator{response: strings.Replace(draftJSON, `"prepTime": 15`, `"prepTime": -15`, 1)}},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewGenerator(tt.gen).GenerateDetails(ctx, "soup")
			assert.True(t, apperr.Is(err, apperr.KindGeneration), "got %v", err)
		})
	}
}

func TestExtract(t *testing.T) {
	mock := &mockTextGenerator{response: draftJSON}
	g := NewGenerator(mock)

	draft, meta, err := g.Extract(context.Background(), Page{
		Title:     "Grandma's chicken",
		SourceURL: "https://example.com/chicken",
		Content:   strings.Repeat("a", maxPageContent+100),
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/chicken", draft.SourceURL)
	assert.Equal(t, "RecipeExtractor", meta.AgentName)
	assert.Contains(t, mock.prompt, "Page title: Grandma's chicken")
	assert.NotContains(t, mock.prompt, strings.Repeat("a", maxPageContent+1))
}
