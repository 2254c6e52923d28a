package recipe

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"recipe-planner/internal/apperr"
)

// Category is the meal category a recipe is filed under.
type Category string

const (
	Breakfast Category = "Breakfast"
	Lunch     Category = "Lunch"
	Dinner    Category = "Dinner"
	Dessert   Category = "Dessert"
	Snack     Category = "Snack"
)

// Categories lists the valid categories in display order.
var Categories = []Category{Breakfast, Lunch, Dinner, Dessert, Snack}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PlaceholderImage is used when a recipe has no image of its own.
const PlaceholderImage = "https://placehold.co/600x400.png"

// Recipe is a catalog entry. Times are in minutes.
type Recipe struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	PrepTime     int      `json:"prepTime"`
	CookTime     int      `json:"cookTime"`
	Servings     int      `json:"servings"`
	Ingredients  string   `json:"ingredients"`
	Instructions string   `json:"instructions"`
	ImageURL     string   `json:"imageUrl"`
	Tags         []string `json:"tags"`
}

// TotalTime is prep plus cook time.
func (r Recipe) TotalTime() int {
	return r.PrepTime + r.CookTime
}

// IngredientLines splits the ingredients text into non-empty lines.
func (r Recipe) IngredientLines() []string {
	return splitLines(r.Ingredients)
}

// InstructionLines splits the instructions text into non-empty lines.
func (r Recipe) InstructionLines() []string {
	return splitLines(r.Instructions)
}

// Input is the add/edit form payload. Tags arrive as one comma separated string.
type Input struct {
	Name         string `json:"name" validate:"min=3"`
	Category     string `json:"category" validate:"category"`
	PrepTime     int    `json:"prepTime" validate:"min=0"`
	CookTime     int    `json:"cookTime" validate:"min=0"`
	Servings     int    `json:"servings" validate:"min=1"`
	Ingredients  string `json:"ingredients" validate:"min=10"`
	Instructions string `json:"instructions" validate:"min=20"`
	ImageURL     string `json:"imageUrl" validate:"omitempty,image_url"`
	Tags         string `json:"tags"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so form errors line up with inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("image_url", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.HasPrefix(s, "data:image/") ||
			strings.HasPrefix(s, "https://") ||
			strings.HasPrefix(s, "http://")
	})
	return v
}

var fieldMessages = map[string]string{
	"name":         "Recipe name must be at least 3 characters long.",
	"category":     "Please select a category.",
	"prepTime":     "Prep time can't be negative.",
	"cookTime":     "Cook time can't be negative.",
	"servings":     "Servings must be at least 1.",
	"ingredients":  "Ingredients must be at least 10 characters long.",
	"instructions": "Instructions must be at least 20 characters long.",
	"imageUrl":     "Please upload a valid image.",
}

// Validate checks the input and returns an *apperr.Error with per-field
// messages when it is malformed.
func (in Input) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("failed to validate recipe: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		msg, ok := fieldMessages[e.Field()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", e.Field())
		}
		fields[e.Field()] = msg
	}
	return apperr.Validation(fields)
}

// toRecipe builds the stored recipe. The input must already be valid.
func (in Input) toRecipe(id string) Recipe {
	image := strings.TrimSpace(in.ImageURL)
	if image == "" {
		image = PlaceholderImage
	}
	return Recipe{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Category:     Category(in.Category),
		PrepTime:     in.PrepTime,
		CookTime:     in.CookTime,
		Servings:     in.Servings,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		ImageURL:     image,
		Tags:         ParseTags(in.Tags),
	}
}

// InputFrom turns an existing recipe back into form input, e.g. for editing.
func InputFrom(r Recipe) Input {
	return Input{
		Name:         r.Name,
		Category:     string(r.Category),
		PrepTime:     r.PrepTime,
		CookTime:     r.CookTime,
		Servings:     r.Servings,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		ImageURL:     r.ImageURL,
		Tags:         strings.Join(r.Tags, ", "),
	}
}

// ParseTags splits a comma separated tag string, trimming blanks.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
