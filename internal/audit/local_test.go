package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testTime = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func TestLocalRecorder_Record(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewLocalRecorder(dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entry := Entry{
		RequestID: "req-1",
		Outcome:   OutcomeSuccess,
		Timestamp: testTime,
		Recipient: "user@example.com",
		Subject:   "hello",
		ClientIP:  "10.0.0.1",
	}
	if err := rec.Record(context.Background(), entry); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	path := filepath.Join(dir, "2024-06-15", "success", "req-1.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected record at %s: %v", path, err)
	}

	var got Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if got.RequestID != "req-1" || got.Outcome != OutcomeSuccess || got.Recipient != "user@example.com" {
		t.Errorf("unexpected record content: %+v", got)
	}
}

func TestLocalRecorder_Record_FailureOutcome(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewLocalRecorder(dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entry := Entry{
		RequestID:   "req-2",
		Outcome:     OutcomeFailure,
		Timestamp:   testTime,
		Recipient:   "user@example.com",
		ErrorKind:   "ConnectError",
		ErrorDetail: "dial tcp: connection refused",
	}
	if err := rec.Record(context.Background(), entry); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	path := filepath.Join(dir, "2024-06-15", "failure", "req-2.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected record at %s: %v", path, err)
	}

	var got Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if got.ErrorKind != "ConnectError" {
		t.Errorf("expected error kind, got %q", got.ErrorKind)
	}
}

func TestLocalRecorder_RecordDebug(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewLocalRecorder(dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	message := []byte("From: a@b.com\r\n\r\nraw message")
	if err := rec.RecordDebug(context.Background(), "req-3", testTime, message); err != nil {
		t.Fatalf("record debug failed: %v", err)
	}

	path := filepath.Join(dir, "2024-06-15", "debug", "req-3.eml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected artifact at %s: %v", path, err)
	}
	if !bytes.Equal(data, message) {
		t.Error("expected verbatim message bytes")
	}
}

func TestPartition(t *testing.T) {
	if got := partition(testTime); got != "2024-06-15" {
		t.Errorf("expected 2024-06-15, got %s", got)
	}
}
