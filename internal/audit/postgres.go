package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgExecutor is the subset of pgxpool.Pool used by PostgresRecorder.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresRecorder writes audit records to the audit_records table.
// The record_date column carries the calendar-date partition key so the
// table can be range-partitioned or pruned by date.
type PostgresRecorder struct {
	db pgExecutor
}

// NewPostgresRecorder creates a PostgresRecorder on the given pool.
func NewPostgresRecorder(db pgExecutor) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

const insertRecordSQL = `
INSERT INTO audit_records
	(request_id, outcome, recorded_at, record_date, recipient, subject,
	 error_kind, error_detail, client_ip, message_length)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const insertDebugSQL = `
INSERT INTO audit_records
	(request_id, outcome, recorded_at, record_date, raw_message)
VALUES ($1, $2, $3, $4, $5)`

// Record inserts one structured record row.
func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	_, err := r.db.Exec(ctx, insertRecordSQL,
		e.RequestID,
		string(e.Outcome),
		e.Timestamp,
		partition(e.Timestamp),
		e.Recipient,
		e.Subject,
		e.ErrorKind,
		e.ErrorDetail,
		e.ClientIP,
		e.MessageLength,
	)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

// RecordDebug inserts one debug row carrying the raw composed message.
func (r *PostgresRecorder) RecordDebug(ctx context.Context, requestID string, ts time.Time, message []byte) error {
	_, err := r.db.Exec(ctx, insertDebugSQL,
		requestID,
		string(OutcomeDebug),
		ts,
		partition(ts),
		message,
	)
	if err != nil {
		return fmt.Errorf("audit: insert debug record: %w", err)
	}
	return nil
}
