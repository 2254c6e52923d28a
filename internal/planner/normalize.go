package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPlan is returned by Normalize for documents that cannot be
// repaired into a plan.
var ErrInvalidPlan = errors.New("invalid meal plan document")

// Normalize parses a stored plan document and migrates it to the current
// shape for cfg. It accepts:
//
//   - the current flat shape {"title": ..., "monday": {...}, ...}
//   - documents without a title (the default title is used)
//   - days missing newer meal types such as snack (filled with null)
//   - the early {"title": ..., "days": {"monday": {...}, ...}} envelope
//
// Meal types that are not configured are dropped and malformed meals become
// empty slots. A document missing any of the seven days is rejected.
func Normalize(raw []byte, cfg SlotConfig) (WeeklyPlan, error) {
	raw = bytes.TrimSpace(raw)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return WeeklyPlan{}, fmt.Errorf("%w: not a JSON object", ErrInvalidPlan)
	}

	days := doc
	if envelope, ok := doc["days"]; ok {
		if _, flat := doc[string(Monday)]; !flat {
			if err := json.Unmarshal(envelope, &days); err != nil || days == nil {
				return WeeklyPlan{}, fmt.Errorf("%w: days envelope is not an object", ErrInvalidPlan)
			}
		}
	}

	plan := EmptyPlan(cfg)
	plan.Title = normalizeTitle(doc["title"])

	for _, d := range Days {
		dayRaw, ok := days[string(d)]
		if !ok {
			return WeeklyPlan{}, fmt.Errorf("%w: missing %s", ErrInvalidPlan, d)
		}
		var slots map[string]json.RawMessage
		if err := json.Unmarshal(dayRaw, &slots); err != nil || slots == nil {
			return WeeklyPlan{}, fmt.Errorf("%w: %s is not an object", ErrInvalidPlan, d)
		}
		for _, mt := range cfg.mealTypes {
			plan.Days[d][mt] = normalizeMeal(slots[string(mt)])
		}
	}
	return plan, nil
}

func normalizeTitle(raw json.RawMessage) string {
	var title string
	if len(raw) == 0 || json.Unmarshal(raw, &title) != nil || title == "" {
		return DefaultTitle
	}
	return title
}

func normalizeMeal(raw json.RawMessage) *PlannedMeal {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var meal PlannedMeal
	if err := json.Unmarshal(raw, &meal); err != nil || meal.RecipeID == "" {
		return nil
	}
	return &meal
}
