package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each record in a hash with "data" and "updated_at" fields.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	rec, err := s.Stat(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (s *RedisStore) Stat(ctx context.Context, key string) (Record, error) {
	vals, err := s.client.HMGet(ctx, s.key(key), "data", "updated_at").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("failed to read record %s: %w", key, err)
	}
	if len(vals) < 2 || vals[0] == nil {
		return Record{}, ErrNotFound
	}

	data, _ := vals[0].(string)
	rec := Record{Data: []byte(data)}
	if ts, ok := vals[1].(string); ok {
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return rec, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	err := s.client.HSet(ctx, s.key(key),
		"data", string(data),
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
