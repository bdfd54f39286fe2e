package objstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore stages blobs as files on the local filesystem.
type LocalStore struct {
	basePath string
	maxBytes int64
}

// NewLocalStore creates a new LocalStore at the given base path.
// It creates the directory if it does not exist. A maxBytes of zero or
// less disables the size limit.
func NewLocalStore(basePath string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("objstore: create base directory: %w", err)
	}
	return &LocalStore{basePath: basePath, maxBytes: maxBytes}, nil
}

// Put writes blob data to a file using an atomic write pattern.
// Returns ErrTooLarge if the blob exceeds the configured size limit.
func (s *LocalStore) Put(_ context.Context, key string, data []byte) error {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return ErrTooLarge
	}

	finalPath := filepath.Join(s.basePath, key)

	// Write to a temp file in the same directory, then rename for atomicity.
	tmp, err := os.CreateTemp(s.basePath, ".tmp-"+key+"-*")
	if err != nil {
		return fmt.Errorf("objstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("objstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("objstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("objstore: rename temp file: %w", err)
	}
	return nil
}

// Get reads blob data from a file.
// Returns ErrNotFound if the blob does not exist.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("objstore: read file: %w", err)
	}
	return data, nil
}

// Delete removes a blob file.
// Returns nil if the blob does not exist (idempotent).
func (s *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.basePath, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("objstore: remove file: %w", err)
	}
	return nil
}
