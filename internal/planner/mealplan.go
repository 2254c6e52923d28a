package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"recipe-planner/internal/recipe"
)

// DefaultTitle is the title of a fresh plan.
const DefaultTitle = "My Weekly Meal Plan"

// Day is a day of the week, lowercase as stored.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// Days lists the week in order. Every plan carries exactly these keys.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func (d Day) Valid() bool {
	for _, known := range Days {
		if d == known {
			return true
		}
	}
	return false
}

// Title returns the capitalized day name.
func (d Day) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// MealType names a slot within a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// KnownMealTypes are the meal types a deployment may configure.
var KnownMealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

func (m MealType) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// SlotKey identifies one cell of the weekly grid.
type SlotKey struct {
	Day      Day      `json:"day"`
	MealType MealType `json:"mealType"`
}

func (k SlotKey) String() string {
	return string(k.Day) + "." + string(k.MealType)
}

// PlannedMeal is a snapshot of a recipe's display fields taken when it was
// placed. Later recipe edits do not change it.
type PlannedMeal struct {
	RecipeID       string `json:"recipeId"`
	RecipeName     string `json:"recipeName"`
	RecipeImageURL string `json:"recipeImageUrl"`
}

// UntitledRecipe is shown for recipes saved without a name.
const UntitledRecipe = "Untitled"

// Snapshot copies the display fields of r.
func Snapshot(r recipe.Recipe) PlannedMeal {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = UntitledRecipe
	}
	return PlannedMeal{
		RecipeID:       r.ID,
		RecipeName:     name,
		RecipeImageURL: r.ImageURL,
	}
}

// DailyPlan maps every configured meal type to a meal or nil.
type DailyPlan map[MealType]*PlannedMeal

// WeeklyPlan is the 7 x N grid. It serializes flat:
// {"title": ..., "monday": {...}, ..., "sunday": {...}}.
type WeeklyPlan struct {
	Title string
	Days  map[Day]DailyPlan
}

// SlotConfig is the fixed, ordered set of meal types a deployment uses.
type SlotConfig struct {
	mealTypes []MealType
}

// NewSlotConfig validates a meal type list: non-empty, known, no duplicates.
func NewSlotConfig(mealTypes []string) (SlotConfig, error) {
	if len(mealTypes) == 0 {
		return SlotConfig{}, fmt.Errorf("at least one meal type must be configured")
	}

	seen := make(map[MealType]bool, len(mealTypes))
	cfg := SlotConfig{}
	for _, raw := range mealTypes {
		mt := MealType(strings.ToLower(strings.TrimSpace(raw)))
		if !isKnownMealType(mt) {
			return SlotConfig{}, fmt.Errorf("unknown meal type %q", raw)
		}
		if seen[mt] {
			return SlotConfig{}, fmt.Errorf("duplicate meal type %q", raw)
		}
		seen[mt] = true
		cfg.mealTypes = append(cfg.mealTypes, mt)
	}
	return cfg, nil
}

// DefaultSlotConfig uses all known meal types.
func DefaultSlotConfig() SlotConfig {
	return SlotConfig{mealTypes: append([]MealType(nil), KnownMealTypes...)}
}

// MealTypes returns the configured meal types in order.
func (c SlotConfig) MealTypes() []MealType {
	return append([]MealType(nil), c.mealTypes...)
}

// Has reports whether mt is configured.
func (c SlotConfig) Has(mt MealType) bool {
	for _, m := range c.mealTypes {
		if m == mt {
			return true
		}
	}
	return false
}

// Slots returns every configured slot, day-major.
func (c SlotConfig) Slots() []SlotKey {
	slots := make([]SlotKey, 0, len(Days)*len(c.mealTypes))
	for _, d := range Days {
		for _, m := range c.mealTypes {
			slots = append(slots, SlotKey{Day: d, MealType: m})
		}
	}
	return slots
}

func isKnownMealType(mt MealType) bool {
	for _, known := range KnownMealTypes {
		if mt == known {
			return true
		}
	}
	return false
}

// Has reports whether slot exists in the plan's grid.
func (p WeeklyPlan) Has(slot SlotKey) bool {
	day, ok := p.Days[slot.Day]
	if !ok {
		return false
	}
	_, ok = day[slot.MealType]
	return ok
}

// Meal returns the meal at slot, or nil when the slot is empty or absent.
func (p WeeklyPlan) Meal(slot SlotKey) *PlannedMeal {
	return p.Days[slot.Day][slot.MealType]
}

// MealTypes returns the meal types present in the plan, in known order.
func (p WeeklyPlan) MealTypes() []MealType {
	var out []MealType
	monday := p.Days[Monday]
	for _, mt := range KnownMealTypes {
		if _, ok := monday[mt]; ok {
			out = append(out, mt)
		}
	}
	return out
}

// CountMeals counts occupied slots.
func (p WeeklyPlan) CountMeals() int {
	n := 0
	for _, day := range p.Days {
		for _, meal := range day {
			if meal != nil {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy sharing no maps or meals with p.
func (p WeeklyPlan) Clone() WeeklyPlan {
	out := WeeklyPlan{Title: p.Title, Days: make(map[Day]DailyPlan, len(p.Days))}
	for d, day := range p.Days {
		copied := make(DailyPlan, len(day))
		for mt, meal := range day {
			if meal != nil {
				m := *meal
				copied[mt] = &m
			} else {
				copied[mt] = nil
			}
		}
		out.Days[d] = copied
	}
	return out
}

// MarshalJSON writes the flat record shape with days in week order.
func (p WeeklyPlan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	title, err := json.Marshal(p.Title)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"title":`)
	buf.Write(title)

	for _, d := range Days {
		day, ok := p.Days[d]
		if !ok {
			continue
		}
		if day == nil {
			day = DailyPlan{}
		}
		data, err := json.Marshal(day)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", d, err)
		}
		fmt.Fprintf(&buf, ",%q:", d)
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flat record shape as-is. Use Normalize to repair
// legacy or partial documents.
func (p *WeeklyPlan) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	plan := WeeklyPlan{Days: make(map[Day]DailyPlan, len(Days))}
	if t, ok := raw["title"]; ok {
		if err := json.Unmarshal(t, &plan.Title); err != nil {
			return fmt.Errorf("invalid title: %w", err)
		}
	}
	for _, d := range Days {
		dayRaw, ok := raw[string(d)]
		if !ok {
			continue
		}
		var day DailyPlan
		if err := json.Unmarshal(dayRaw, &day); err != nil {
			return fmt.Errorf("invalid %s: %w", d, err)
		}
		plan.Days[d] = day
	}
	*p = plan
	return nil
}
