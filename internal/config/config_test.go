package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		cfg, err := NewFromEnv()
		require.NoError(t, err)

		assert.Equal(t, "gemini_key", cfg.GeminiAPIKey)
		assert.Equal(t, ProviderGemini, cfg.AIProvider)
		assert.Equal(t, StorageSQLite, cfg.StorageDriver)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, []string{"breakfast", "lunch", "dinner", "snack"}, cfg.MealTypes)
		assert.False(t, cfg.TelegramEnabled())
	})

	t.Run("PrefixedOverrides", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "groq")
		t.Setenv("GROQ_API_KEY", "groq_key")
		t.Setenv("PLANNER_PLAN_MEAL_TYPES", " Breakfast, lunch ,dinner")
		t.Setenv("PLANNER_STORAGE_DRIVER", "file")
		t.Setenv("PORT", "9000")

		cfg, err := NewFromEnv()
		require.NoError(t, err)

		assert.Equal(t, ProviderGroq, cfg.AIProvider)
		assert.Equal(t, "groq_key", cfg.GroqAPIKey)
		assert.Equal(t, []string{"breakfast", "lunch", "dinner"}, cfg.MealTypes)
		assert.Equal(t, StorageFile, cfg.StorageDriver)
		assert.Equal(t, "9000", cfg.Port)
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "gemini")
		t.Setenv("GEMINI_API_KEY", "")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "GEMINI_API_KEY environment variable not set", err.Error())
	})

	t.Run("MissingGroqAPIKey", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "groq")
		t.Setenv("GROQ_API_KEY", "")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "GROQ_API_KEY environment variable not set", err.Error())
	})

	t.Run("ProviderNoneNeedsNoKeys", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "none")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.False(t, cfg.AIEnabled())
	})

	t.Run("UnknownStorageDriver", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "none")
		t.Setenv("PLANNER_STORAGE_DRIVER", "s3")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage driver")
	})

	t.Run("TelegramUserIDs", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "none")
		t.Setenv("TELEGRAM_BOT_TOKEN", "token")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "42, 7")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.TelegramEnabled())
		assert.Equal(t, []int64{42, 7}, cfg.TelegramAllowedUserIDs)
	})

	t.Run("InvalidTelegramUserID", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "none")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "abc")

		_, err := NewFromEnv()
		require.Error(t, err)
	})

	t.Run("GhostAdminKeyFallsBackToContentKey", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "none")
		t.Setenv("GHOST_CONTENT_API_KEY", "content")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "content", cfg.GhostAdminKey)
	})
}

func TestNewFromEnvSubtestIsolation(t *testing.T) {
	t.Run("SetsInvalidValues", func(t *testing.T) {
		t.Setenv("PLANNER_STORAGE_DRIVER", "s3")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "abc")
	})

	t.Run("LaterSubtestSeesDefaults", func(t *testing.T) {
		t.Setenv("PLANNER_AI_PROVIDER", "none")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, StorageSQLite, cfg.StorageDriver)
		assert.Empty(t, cfg.TelegramAllowedUserIDs)
	})
}
