// Package shopping derives a shopping list from the weekly plan.
package shopping

import (
	"slices"
	"strings"

	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
)

// Item is one ingredient line and the recipes that need it.
type Item struct {
	Ingredient string   `json:"ingredient"`
	Recipes    []string `json:"recipes"`
	Count      int      `json:"count"`
}

// List is the shopping list for a plan.
type List struct {
	Items []Item `json:"items"`
	// Missing names planned meals whose recipe is no longer in the catalog.
	Missing []string `json:"missing,omitempty"`
}

// Build walks the plan in week order and merges identical ingredient lines.
// Lines are compared case-insensitively; the first spelling wins.
func Build(plan planner.WeeklyPlan, mealTypes []planner.MealType, recipes []recipe.Recipe) List {
	byID := make(map[string]recipe.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}

	list := List{Items: []Item{}}
	index := make(map[string]int)
	missing := make(map[string]bool)

	for _, day := range planner.Days {
		for _, mt := range mealTypes {
			meal := plan.Meal(planner.SlotKey{Day: day, MealType: mt})
			if meal == nil {
				continue
			}
			r, ok := byID[meal.RecipeID]
			if !ok {
				if !missing[meal.RecipeName] {
					missing[meal.RecipeName] = true
					list.Missing = append(list.Missing, meal.RecipeName)
				}
				continue
			}
			for _, line := range r.IngredientLines() {
				key := strings.ToLower(line)
				i, seen := index[key]
				if !seen {
					index[key] = len(list.Items)
					list.Items = append(list.Items, Item{Ingredient: line})
					i = len(list.Items) - 1
				}
				item := &list.Items[i]
				item.Count++
				if !slices.Contains(item.Recipes, r.Name) {
					item.Recipes = append(item.Recipes, r.Name)
				}
			}
		}
	}
	return list
}

