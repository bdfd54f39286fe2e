// Package objstore provides the attachment staging store. Blobs live here
// only for the duration of one request; the pipeline deletes them once the
// message has been composed and handed to the transport.
package objstore

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a requested blob does not exist.
var ErrNotFound = errors.New("objstore: blob not found")

// ErrTooLarge is returned by Put when a blob exceeds the configured
// per-file size limit. The check happens before any network transfer.
var ErrTooLarge = errors.New("objstore: blob exceeds size limit")

// BlobStore defines the interface for attachment staging backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Config holds configuration for creating a BlobStore.
type Config struct {
	Type        string // "local" or "s3"
	Path        string // base directory for local store
	MaxBytes    int64  // per-blob size limit enforced by Put
	S3Bucket    string
	S3Prefix    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
}

// New creates a BlobStore based on the provided configuration.
// If Type is empty or unsupported, it defaults to local storage and logs
// a warning.
func New(cfg Config, logger zerolog.Logger) (BlobStore, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStore(cfg.Path, cfg.MaxBytes)
	case "s3":
		return NewS3StoreFromConfig(cfg)
	default:
		logger.Warn().
			Str("type", cfg.Type).
			Msg("unsupported or empty store type, defaulting to local")
		return NewLocalStore(cfg.Path, cfg.MaxBytes)
	}
}
