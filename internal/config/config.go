package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderNone   = "none"

	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// Config holds the configuration for the application.
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string

	Port            string
	ShutdownTimeout time.Duration

	DatabasePath  string
	StorageDriver string
	StoragePath   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MealTypes is the fixed set of meal slots every day of the plan carries.
	MealTypes []string

	AIProvider      string
	GeminiAPIKey    string
	GeminiModel     string
	GroqAPIKey      string
	GroqModel       string
	AIRatePerMinute int

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64

	GhostURL        string
	GhostContentKey string
	GhostAdminKey   string
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AIEnabled reports whether a text generation provider is configured.
func (c *Config) AIEnabled() bool {
	return c.AIProvider != ProviderNone
}

// TelegramEnabled reports whether the bot surface should be started.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindLegacyNames(v)

	cfg := &Config{
		Env:             v.GetString("app.env"),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		Port:            v.GetString("server.port"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),

		DatabasePath:  v.GetString("database.path"),
		StorageDriver: strings.ToLower(v.GetString("storage.driver")),
		StoragePath:   v.GetString("storage.file_path"),
		RedisAddr:     v.GetString("redis.addr"),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),

		MealTypes: splitList(v.GetString("plan.meal_types")),

		AIProvider:      strings.ToLower(v.GetString("ai.provider")),
		GeminiAPIKey:    v.GetString("ai.gemini_api_key"),
		GeminiModel:     v.GetString("ai.gemini_model"),
		GroqAPIKey:      v.GetString("ai.groq_api_key"),
		GroqModel:       v.GetString("ai.groq_model"),
		AIRatePerMinute: v.GetInt("ai.rate_per_minute"),

		TelegramBotToken:   v.GetString("telegram.bot_token"),
		TelegramWebhookURL: v.GetString("telegram.webhook_url"),

		GhostURL:        v.GetString("ghost.url"),
		GhostContentKey: v.GetString("ghost.content_key"),
		GhostAdminKey:   v.GetString("ghost.admin_key"),
	}

	ids, err := parseUserIDs(v.GetString("telegram.allowed_user_ids"))
	if err != nil {
		return nil, err
	}
	cfg.TelegramAllowedUserIDs = ids

	if cfg.GhostAdminKey == "" {
		// Fallback to content key if only one is provided
		cfg.GhostAdminKey = cfg.GhostContentKey
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.path", "data/planner.db")
	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("storage.file_path", "data/records")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("plan.meal_types", "breakfast,lunch,dinner,snack")
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.gemini_model", "gemini-1.5-flash")
	v.SetDefault("ai.groq_api_key", "")
	v.SetDefault("ai.groq_model", "llama-3.3-70b-versatile")
	v.SetDefault("ai.rate_per_minute", 10)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.allowed_user_ids", "")
	v.SetDefault("ghost.url", "")
	v.SetDefault("ghost.content_key", "")
	v.SetDefault("ghost.admin_key", "")
}

// bindLegacyNames keeps the unprefixed variable names working.
func bindLegacyNames(v *viper.Viper) {
	_ = v.BindEnv("ai.gemini_api_key", "PLANNER_AI_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("ai.groq_api_key", "PLANNER_AI_GROQ_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("telegram.bot_token", "PLANNER_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.webhook_url", "PLANNER_TELEGRAM_WEBHOOK_URL", "TELEGRAM_WEBHOOK_URL")
	_ = v.BindEnv("telegram.allowed_user_ids", "PLANNER_TELEGRAM_ALLOWED_USER_IDS", "TELEGRAM_ALLOWED_USER_IDS")
	_ = v.BindEnv("ghost.url", "PLANNER_GHOST_URL", "GHOST_API_URL")
	_ = v.BindEnv("ghost.content_key", "PLANNER_GHOST_CONTENT_KEY", "GHOST_CONTENT_API_KEY")
	_ = v.BindEnv("ghost.admin_key", "PLANNER_GHOST_ADMIN_KEY", "GHOST_ADMIN_API_KEY")
	_ = v.BindEnv("server.port", "PLANNER_SERVER_PORT", "PORT")
}

func (c *Config) validate() error {
	switch c.AIProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("unknown ai provider %q", c.AIProvider)
	}

	switch c.StorageDriver {
	case StorageSQLite, StorageFile, StorageRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if len(c.MealTypes) == 0 {
		return fmt.Errorf("PLANNER_PLAN_MEAL_TYPES must name at least one meal type")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
