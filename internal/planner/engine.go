package planner

import "recipe-planner/internal/recipe"

// DragSource is where a dragged meal comes from: FromCatalog or FromSlot.
type DragSource interface {
	isDragSource()
}

// FromCatalog drags a recipe in from the catalog.
type FromCatalog struct {
	Recipe recipe.Recipe
}

// FromSlot drags the meal planned at Slot.
type FromSlot struct {
	Slot SlotKey
}

func (FromCatalog) isDragSource() {}
func (FromSlot) isDragSource()    {}

// NoOpReason says why a gesture had no effect.
type NoOpReason string

const (
	NoTarget      NoOpReason = "no_target"
	UnknownTarget NoOpReason = "unknown_target"
	UnknownSource NoOpReason = "unknown_source"
	EmptySource   NoOpReason = "empty_source"
	SameSlot      NoOpReason = "same_slot"
)

// MoveOutcome describes what ApplyMove did. It is informational only; a
// gesture that had no effect is not an error.
type MoveOutcome struct {
	Applied   bool       `json:"applied"`
	Swapped   bool       `json:"swapped,omitempty"`
	Overwrote bool       `json:"overwrote,omitempty"`
	Reason    NoOpReason `json:"reason,omitempty"`
}

func noOp(reason NoOpReason) MoveOutcome {
	return MoveOutcome{Reason: reason}
}

// ApplyMove drops source onto target and returns the new plan. The input
// plan is never modified.
//
// Dragging a planned meal onto another slot swaps the two slots' contents.
// Dragging a catalog recipe overwrites the target; the displaced meal is
// dropped. Gestures that cannot be resolved (nil target, a target or source
// outside the grid, an empty source slot) return an equal copy.
func ApplyMove(plan WeeklyPlan, source DragSource, target *SlotKey) (WeeklyPlan, MoveOutcome) {
	next := plan.Clone()

	if target == nil {
		return next, noOp(NoTarget)
	}
	if !next.Has(*target) {
		return next, noOp(UnknownTarget)
	}

	var (
		payload  PlannedMeal
		fromSlot *SlotKey
	)
	switch src := source.(type) {
	case FromCatalog:
		if src.Recipe.ID == "" {
			return next, noOp(UnknownSource)
		}
		payload = Snapshot(src.Recipe)
	case *FromCatalog:
		if src == nil || src.Recipe.ID == "" {
			return next, noOp(UnknownSource)
		}
		payload = Snapshot(src.Recipe)
	case FromSlot:
		fromSlot = &src.Slot
	case *FromSlot:
		if src == nil {
			return next, noOp(UnknownSource)
		}
		fromSlot = &src.Slot
	default:
		return next, noOp(UnknownSource)
	}

	if fromSlot != nil {
		if !next.Has(*fromSlot) {
			return next, noOp(UnknownSource)
		}
		meal := next.Meal(*fromSlot)
		if meal == nil {
			// Cleared since the drag started.
			return next, noOp(EmptySource)
		}
		if *fromSlot == *target {
			return next, noOp(SameSlot)
		}
		payload = *meal
	}

	displaced := next.Days[target.Day][target.MealType]
	next.Days[target.Day][target.MealType] = &payload

	outcome := MoveOutcome{Applied: true}
	if fromSlot != nil {
		next.Days[fromSlot.Day][fromSlot.MealType] = displaced
		outcome.Swapped = displaced != nil
	} else {
		outcome.Overwrote = displaced != nil
	}
	return next, outcome
}

// RemoveMeal empties slot. Removing an empty or unknown slot returns an
// equal plan.
func RemoveMeal(plan WeeklyPlan, slot SlotKey) WeeklyPlan {
	next := plan.Clone()
	if next.Has(slot) {
		next.Days[slot.Day][slot.MealType] = nil
	}
	return next
}

// EmptyPlan returns a plan with every configured slot empty.
func EmptyPlan(cfg SlotConfig) WeeklyPlan {
	plan := WeeklyPlan{Title: DefaultTitle, Days: make(map[Day]DailyPlan, len(Days))}
	for _, d := range Days {
		day := make(DailyPlan, len(cfg.mealTypes))
		for _, mt := range cfg.mealTypes {
			day[mt] = nil
		}
		plan.Days[d] = day
	}
	return plan
}
