package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/llm"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/shared"
)

//go:embed generator_prompt.md
var generatorPrompt string

var generatorTmpl = template.Must(template.New("MealPlanner").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(generatorPrompt))

// CatalogEntry is the part of a recipe the plan generator sees. Full
// recipes (with image payloads) are kept out of the prompt.
type CatalogEntry struct {
	ID   string   `json:"id"`
	Name string   `json:"name,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// CatalogEntries projects recipes to generator entries.
func CatalogEntries(recipes []recipe.Recipe) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(recipes))
	for _, r := range recipes {
		entries = append(entries, CatalogEntry{ID: r.ID, Name: r.Name, Tags: r.Tags})
	}
	return entries
}

// GeneratedPlan is the generator's raw answer: a recipe ID per day and meal
// type. An empty ID means the model left the slot null.
type GeneratedPlan map[Day]map[MealType]string

// UnmarshalJSON accepts day and meal keys in any case, and slot values that
// are an ID string, null, or an object carrying recipeId.
func (g *GeneratedPlan) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(GeneratedPlan, len(raw))
	for dayKey, slots := range raw {
		day := Day(strings.ToLower(strings.TrimSpace(dayKey)))
		meals := make(map[MealType]string, len(slots))
		for mealKey, value := range slots {
			meals[MealType(strings.ToLower(strings.TrimSpace(mealKey)))] = generatedID(value)
		}
		out[day] = meals
	}
	*g = out
	return nil
}

func generatedID(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		if strings.EqualFold(id, "null") {
			return ""
		}
		return strings.TrimSpace(id)
	}
	var obj struct {
		RecipeID string `json:"recipeId"`
		ID       string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.RecipeID != "" {
			return obj.RecipeID
		}
		return obj.ID
	}
	return ""
}

// Generator asks the model for a weekly plan built from catalog IDs.
type Generator struct {
	textGen llm.TextGenerator
	cfg     SlotConfig
}

func NewGenerator(textGen llm.TextGenerator, cfg SlotConfig) *Generator {
	return &Generator{textGen: textGen, cfg: cfg}
}

type promptData struct {
	Description string
	MealTypes   []string
	Recipes     []CatalogEntry
}

// GeneratePlan returns the model's slot assignments. IDs are not checked
// against the catalog here; ResolveGenerated does that.
func (g *Generator) GeneratePlan(ctx context.Context, description string, catalog []CatalogEntry) (GeneratedPlan, shared.AgentMeta, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, shared.AgentMeta{}, apperr.Validation(map[string]string{
			"description": "Please describe the meal plan you want.",
		})
	}
	if len(catalog) == 0 {
		return nil, shared.AgentMeta{}, apperr.Validation(map[string]string{
			"recipes": "Add some recipes before generating a meal plan.",
		})
	}
	if g.textGen == nil {
		return nil, shared.AgentMeta{}, apperr.Generation("AI generation is not configured", nil)
	}

	data := promptData{Description: description, Recipes: catalog}
	for _, mt := range g.cfg.mealTypes {
		data.MealTypes = append(data.MealTypes, string(mt))
	}
	var buf bytes.Buffer
	if err := generatorTmpl.Execute(&buf, data); err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("failed to build meal plan prompt: %w", err)
	}

	start := time.Now()
	resp, err := g.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return nil, shared.AgentMeta{AgentName: "MealPlanner"}, apperr.Generation("failed to generate meal plan", err)
	}
	meta := shared.AgentMeta{
		AgentName: "MealPlanner",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	content := llm.CleanJSON(resp.Content)
	if content == "" {
		return nil, meta, apperr.Generation("the model returned no content", nil)
	}
	var generated GeneratedPlan
	if err := json.Unmarshal([]byte(content), &generated); err != nil {
		return nil, meta, apperr.Generation("failed to parse meal plan", fmt.Errorf("failed to unmarshal plan: %w", err))
	}
	return generated, meta, nil
}

// ResolveGenerated builds a plan from generated IDs. Slots whose ID is
// null or not in the catalog stay empty; unknown days and meal types are
// ignored. No recipe is ever invented.
func ResolveGenerated(generated GeneratedPlan, catalog []recipe.Recipe, cfg SlotConfig) WeeklyPlan {
	byID := make(map[string]recipe.Recipe, len(catalog))
	for _, r := range catalog {
		byID[r.ID] = r
	}

	plan := EmptyPlan(cfg)
	for day, meals := range generated {
		if !day.Valid() {
			continue
		}
		for mt, id := range meals {
			if !cfg.Has(mt) || id == "" {
				continue
			}
			r, ok := byID[id]
			if !ok {
				continue
			}
			meal := Snapshot(r)
			plan.Days[day][mt] = &meal
		}
	}
	return plan
}
