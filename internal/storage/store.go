// Package storage provides the key/value record stores the plan and the
// recipe catalog are persisted in. Each record is one JSON document.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"recipe-planner/internal/config"
	"recipe-planner/internal/database"
)

// ErrNotFound is returned by Get when no record is stored under the key.
var ErrNotFound = errors.New("record not found")

// Store persists opaque records by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Record is a stored document plus its modification time.
type Record struct {
	Data      []byte
	UpdatedAt time.Time
}

// Stater is implemented by stores that track modification times.
type Stater interface {
	Stat(ctx context.Context, key string) (Record, error)
}

// NewFromConfig builds the store selected by cfg.StorageDriver. db is only
// used by the sqlite driver and may be nil otherwise.
func NewFromConfig(ctx context.Context, cfg *config.Config, db *database.DB, log *zap.Logger) (Store, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		if db == nil {
			return nil, fmt.Errorf("sqlite storage requires an open database")
		}
		return NewSQLiteStore(db), nil
	case config.StorageFile:
		return NewFileStore(cfg.StoragePath)
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.Info("using redis record store", zap.String("addr", cfg.RedisAddr))
		return NewRedisStore(client, "planner:"), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
