package recipe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-planner/internal/apperr"
)

func validInput() Input {
	return Input{
		Name:         "Veggie Omelette",
		Category:     "Breakfast",
		PrepTime:     5,
		CookTime:     10,
		Servings:     2,
		Ingredients:  "3 eggs\n1 pepper\n1 onion",
		Instructions: "1. Whisk the eggs.\n2. Fry the vegetables and add the eggs.",
		Tags:         " quick, ,vegetarian ",
	}
}

func TestInputValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, validInput().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
		msg    string
	}{
		{"ShortName", func(in *Input) { in.Name = "Eg" }, "name", "Recipe name must be at least 3 characters long."},
		{"UnknownCategory", func(in *Input) { in.Category = "Brunch" }, "category", "Please select a category."},
		{"EmptyCategory", func(in *Input) { in.Category = "" }, "category", "Please select a category."},
		{"NegativePrepTime", func(in *Input) { in.PrepTime = -1 }, "prepTime", "Prep time can't be negative."},
		{"NegativeCookTime", func(in *Input) { in.CookTime = -5 }, "cookTime", "Cook time can't be negative."},
		{"ZeroServings", func(in *Input) { in.Servings = 0 }, "servings", "Servings must be at least 1."},
		{"ShortIngredients", func(in *Input) { in.Ingredients = "eggs" }, "ingredients", "Ingredients must be at least 10 characters long."},
		{"ShortInstructions", func(in *Input) { in.Instructions = "Cook it." }, "instructions", "Instructions must be at least 20 characters long."},
		{"BadImage", func(in *Input) { in.ImageURL = "ftp://example.com/a.png" }, "imageUrl", "Please upload a valid image."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := in.Validate()
			require.Error(t, err)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Equal(t, tt.msg, appErr.Fields[tt.field])
			assert.Len(t, appErr.Fields, 1)
		})
	}

	t.Run("ZeroTimesAreAllowed", func(t *testing.T) {
		in := validInput()
		in.PrepTime, in.CookTime = 0, 0
		assert.NoError(t, in.Validate())
	})

	t.Run("DataImageAllowed", func(t *testing.T) {
		in := validInput()
		in.ImageURL = "data:image/png;base64,iVBORw0KGgo="
		assert.NoError(t, in.Validate())
	})
}

func TestToRecipe(t *testing.T) {
	rec := validInput().toRecipe("r1")

	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, Breakfast, rec.Category)
	assert.Equal(t, []string{"quick", "vegetarian"}, rec.Tags)
	assert.Equal(t, PlaceholderImage, rec.ImageURL)
	assert.Equal(t, 15, rec.TotalTime())

	back := InputFrom(rec)
	assert.Equal(t, "quick, vegetarian", back.Tags)
	assert.NoError(t, back.Validate())
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{}, ParseTags(""))
	assert.Equal(t, []string{"a", "b c"}, ParseTags(" a ,, b c ,"))
}

func TestRecipeHTML(t *testing.T) {
	rec := validInput().toRecipe("r1")
	rec.Ingredients = "2 eggs\n<script>"

	html := rec.HTML("https://example.com/omelette")

	assert.Contains(t, html, `<a href="https://example.com/omelette">`)
	assert.Contains(t, html, "<li>2 eggs</li>")
	assert.Contains(t, html, "<li>&lt;script&gt;</li>")
	assert.Contains(t, html, "<li>Whisk the eggs.</li>")
	assert.NotContains(t, html, "<img", "placeholder images are not published")
	assert.True(t, strings.HasSuffix(html, "<strong>Servings:</strong> 2</p>"))
}
