package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"recipe-planner/internal/database"
)

// SQLiteStore keeps records in the kv_records table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db.SQL}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	rec, err := s.Stat(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (s *SQLiteStore) Stat(ctx context.Context, key string) (Record, error) {
	var data, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM kv_records WHERE key = ?`, key,
	).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record %s: %w", key, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		ts = time.Time{}
	}
	return Record{Data: []byte(data), UpdatedAt: ts}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_records (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}
