package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per record in a directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath}, nil
}

// sanitizeKey makes the key safe for filenames.
func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "-", "..", "_")
	return r.Replace(key)
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.basePath, sanitizeKey(key)+".json")
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	rec, err := s.Stat(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (s *FileStore) Stat(_ context.Context, key string) (Record, error) {
	filePath := s.path(key)
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record file: %w", err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return Record{}, fmt.Errorf("failed to stat record file: %w", err)
	}
	return Record{Data: data, UpdatedAt: info.ModTime().UTC()}, nil
}

// Put writes through a temp file so a crash never leaves a half-written record.
func (s *FileStore) Put(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(s.basePath, sanitizeKey(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close record file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove record file: %w", err)
	}
	return nil
}
