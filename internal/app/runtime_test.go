package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/config"
)

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := &config.Config{
		DatabasePath:  filepath.Join(dir, "planner.db"),
		StorageDriver: config.StorageSQLite,
		StoragePath:   filepath.Join(dir, "records"),
		MealTypes:     []string{"breakfast", "dinner"},
		AIProvider:    config.ProviderNone,
	}

	rt, err := Bootstrap(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.App.Warm(ctx))

	plan, err := rt.App.Plan(ctx)
	require.NoError(t, err)
	assert.Len(t, plan.Days, 7)
	assert.Len(t, plan.MealTypes(), 2)

	stats, err := rt.App.RecipeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Total)

	t.Run("GenerationDisabled", func(t *testing.T) {
		_, err := rt.App.GenerateRecipe(ctx, "soup")
		assert.True(t, apperr.Is(err, apperr.KindGeneration))
	})

	t.Run("GhostDisabled", func(t *testing.T) {
		_, err := rt.App.PublishRecipe(ctx, "1")
		assert.ErrorIs(t, err, ErrGhostDisabled)
	})

	t.Run("InvalidMealTypes", func(t *testing.T) {
		bad := *cfg
		bad.MealTypes = []string{"brunch"}
		_, err := Bootstrap(ctx, &bad, zap.NewNop())
		assert.Error(t, err)
	})
}
