package planner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestNormalize(t *testing.T) {
	cfg := DefaultSlotConfig()

	t.Run("CurrentShapeRoundTrips", func(t *testing.T) {
		raw := readFixture(t, "current.json")
		plan, err := Normalize(raw, cfg)
		require.NoError(t, err)
		assertTotal(t, plan, cfg)
		assert.Equal(t, "Family week", plan.Title)
		assert.Equal(t, 2, plan.CountMeals())

		data, err := json.Marshal(plan)
		require.NoError(t, err)
		assert.JSONEq(t, string(raw), string(data))
	})

	t.Run("LegacyMissingSnack", func(t *testing.T) {
		plan, err := Normalize(readFixture(t, "legacy_no_snack.json"), cfg)
		require.NoError(t, err)
		assertTotal(t, plan, cfg)

		for _, d := range Days {
			v, ok := plan.Days[d][Snack]
			assert.True(t, ok)
			assert.Nil(t, v)
		}
		assert.Equal(t, "Soup", plan.Days[Monday][Lunch].RecipeName)
		assert.Equal(t, "data:image/png;base64,AAAA", plan.Days[Monday][Lunch].RecipeImageURL)
	})

	t.Run("LegacyMissingTitle", func(t *testing.T) {
		plan, err := Normalize(readFixture(t, "legacy_no_title.json"), cfg)
		require.NoError(t, err)
		assert.Equal(t, DefaultTitle, plan.Title)
		assert.Equal(t, "r2", plan.Days[Tuesday][Dinner].RecipeID)
	})

	t.Run("LegacyDaysEnvelope", func(t *testing.T) {
		plan, err := Normalize(readFixture(t, "legacy_days_envelope.json"), cfg)
		require.NoError(t, err)
		assertTotal(t, plan, cfg)
		assert.Equal(t, "Envelope plan", plan.Title)
		assert.Equal(t, "r3", plan.Days[Monday][Breakfast].RecipeID)
	})

	t.Run("UnconfiguredMealTypesAreDropped", func(t *testing.T) {
		threeSlots, err := NewSlotConfig([]string{"breakfast", "lunch", "dinner"})
		require.NoError(t, err)

		plan, err := Normalize(readFixture(t, "current.json"), threeSlots)
		require.NoError(t, err)
		assertTotal(t, plan, threeSlots)
		_, hasSnack := plan.Days[Monday][Snack]
		assert.False(t, hasSnack)
	})

	t.Run("MalformedMealBecomesEmpty", func(t *testing.T) {
		plan := EmptyPlan(cfg)
		data, err := json.Marshal(plan)
		require.NoError(t, err)

		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &doc))
		doc["friday"] = json.RawMessage(`{"breakfast":null,"lunch":"r1","dinner":{"recipeName":"no id"},"snack":null}`)
		data, err = json.Marshal(doc)
		require.NoError(t, err)

		got, err := Normalize(data, cfg)
		require.NoError(t, err)
		assert.Nil(t, got.Days[Friday][Lunch])
		assert.Nil(t, got.Days[Friday][Dinner])
	})

	rejects := map[string][]byte{
		"MissingDay":   readFixture(t, "missing_day.json"),
		"NotAnObject":  []byte(`[1,2,3]`),
		"Null":         []byte(`null`),
		"Garbage":      []byte(`{"title":`),
		"DayNotObject": []byte(`{"monday":1,"tuesday":{},"wednesday":{},"thursday":{},"friday":{},"saturday":{},"sunday":{}}`),
	}
	for name, raw := range rejects {
		t.Run("Rejects"+name, func(t *testing.T) {
			_, err := Normalize(raw, cfg)
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}
