package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalRecorder writes audit artifacts to the local filesystem under
// <base>/<yyyy-mm-dd>/<outcome>/.
type LocalRecorder struct {
	basePath string
}

// NewLocalRecorder creates a LocalRecorder rooted at basePath, creating
// the directory if needed.
func NewLocalRecorder(basePath string) (*LocalRecorder, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("audit: create base directory: %w", err)
	}
	return &LocalRecorder{basePath: basePath}, nil
}

// Record writes one entry as <base>/<date>/<outcome>/<request_id>.json.
func (r *LocalRecorder) Record(_ context.Context, e Entry) error {
	dir := filepath.Join(r.basePath, partition(e.Timestamp), string(e.Outcome))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("audit: create partition directory: %w", err)
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	return writeAtomic(dir, e.RequestID+".json", data)
}

// RecordDebug writes the raw message as <base>/<date>/debug/<request_id>.eml.
func (r *LocalRecorder) RecordDebug(_ context.Context, requestID string, ts time.Time, message []byte) error {
	dir := filepath.Join(r.basePath, partition(ts), string(OutcomeDebug))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("audit: create partition directory: %w", err)
	}
	return writeAtomic(dir, requestID+".eml", message)
}

// writeAtomic writes data to dir/name via a temp file and rename.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("audit: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("audit: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("audit: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("audit: rename temp file: %w", err)
	}
	return nil
}
