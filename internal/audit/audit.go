// Package audit persists one record per request outcome to a
// date-partitioned store. Records are append-only: success and failure
// records are structured JSON, debug records are the verbatim composed
// message. Audit writes must never alter the user-visible delivery result,
// so the pipeline talks to the error-swallowing Logger rather than to a
// Recorder directly.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Outcome categorizes an audit record.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDebug   Outcome = "debug"
)

// Entry is one structured audit record.
type Entry struct {
	RequestID string    `json:"request_id"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	// ErrorKind and ErrorDetail are set only for failure outcomes.
	ErrorKind   string `json:"error_kind,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
	ClientIP    string `json:"client_ip,omitempty"`
	// MessageLength is the size in bytes of the composed message, zero
	// when the pipeline failed before composition.
	MessageLength int `json:"message_length"`
}

// Recorder defines the interface for audit storage backends. Artifacts are
// partitioned by the calendar date of the entry timestamp.
type Recorder interface {
	// Record appends one structured record.
	Record(ctx context.Context, e Entry) error
	// RecordDebug appends the verbatim composed message for a request.
	RecordDebug(ctx context.Context, requestID string, ts time.Time, message []byte) error
}

// Config holds configuration for creating a file- or object-backed
// Recorder. The postgres backend is constructed separately because it
// needs a live connection pool.
type Config struct {
	Backend     string // "local" or "s3"
	Path        string
	S3Bucket    string
	S3Prefix    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
}

// New creates a Recorder based on the provided configuration.
// If Backend is empty or unsupported, it defaults to local storage and
// logs a warning.
func New(cfg Config, logger zerolog.Logger) (Recorder, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalRecorder(cfg.Path)
	case "s3":
		return NewS3RecorderFromConfig(cfg)
	default:
		logger.Warn().
			Str("backend", cfg.Backend).
			Msg("unsupported or empty audit backend, defaulting to local")
		return NewLocalRecorder(cfg.Path)
	}
}

// partition returns the date partition name for a timestamp.
func partition(ts time.Time) string {
	return ts.Format("2006-01-02")
}

// Logger wraps a Recorder and swallows its errors. Failing to persist
// audit data must never mask or change the delivery result, so write
// failures are logged to the process log and dropped.
type Logger struct {
	rec Recorder
	log zerolog.Logger
}

// NewLogger creates a Logger around the given Recorder.
func NewLogger(rec Recorder, log zerolog.Logger) *Logger {
	return &Logger{rec: rec, log: log}
}

// Record appends one structured record, logging and swallowing any error.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if err := l.rec.Record(ctx, e); err != nil {
		l.log.Error().Err(err).
			Str("request_id", e.RequestID).
			Str("outcome", string(e.Outcome)).
			Msg("audit record write failed")
	}
}

// RecordDebug appends the raw composed message, logging and swallowing
// any error.
func (l *Logger) RecordDebug(ctx context.Context, requestID string, ts time.Time, message []byte) {
	if err := l.rec.RecordDebug(ctx, requestID, ts, message); err != nil {
		l.log.Error().Err(err).
			Str("request_id", requestID).
			Msg("audit debug artifact write failed")
	}
}
