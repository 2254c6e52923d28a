package app

import (
	"context"
	"encoding/json"
	"fmt"

	"recipe-planner/internal/shopping"
)

// Export is a downloadable JSON document.
type Export struct {
	Filename string
	Data     []byte
}

// ExportPlan serializes the current plan as pretty-printed JSON.
func (a *App) ExportPlan(ctx context.Context) (Export, error) {
	plan, err := a.plans.Load(ctx)
	if err != nil {
		return Export{}, err
	}
	return a.export("meal_plan_database", plan)
}

// ExportCatalog serializes the recipe catalog as pretty-printed JSON.
func (a *App) ExportCatalog(ctx context.Context) (Export, error) {
	recipes, err := a.catalog.List(ctx)
	if err != nil {
		return Export{}, err
	}
	return a.export("recipe_database", recipes)
}

func (a *App) export(prefix string, v any) (Export, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Export{}, fmt.Errorf("failed to encode %s: %w", prefix, err)
	}
	return Export{
		Filename: fmt.Sprintf("%s_%s.json", prefix, a.now().Format("2006-01-02")),
		Data:     data,
	}, nil
}

// ShoppingList collects the ingredients of every planned meal.
func (a *App) ShoppingList(ctx context.Context) (shopping.List, error) {
	plan, err := a.plans.Load(ctx)
	if err != nil {
		return shopping.List{}, err
	}
	recipes, err := a.catalog.List(ctx)
	if err != nil {
		return shopping.List{}, err
	}
	return shopping.Build(plan, a.plans.Config().MealTypes(), recipes), nil
}
