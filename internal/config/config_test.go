package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

const minimalConfig = `
smtp:
  host: relay.example.com
  port: 587
  use_starttls: true
  sender: noreply@example.com
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.API.Port != 8000 {
		t.Errorf("expected default api port 8000, got %d", cfg.API.Port)
	}
	if cfg.Limits.MaxRecipientLen != 64 {
		t.Errorf("expected default recipient limit 64, got %d", cfg.Limits.MaxRecipientLen)
	}
	if cfg.Limits.MaxSubjectLen != 255 {
		t.Errorf("expected default subject limit 255, got %d", cfg.Limits.MaxSubjectLen)
	}
	if cfg.Limits.MaxBodyLen != 50000 {
		t.Errorf("expected default body limit 50000, got %d", cfg.Limits.MaxBodyLen)
	}
	if cfg.Limits.MaxAttachments != 2 {
		t.Errorf("expected default attachment count 2, got %d", cfg.Limits.MaxAttachments)
	}
	if cfg.Limits.MaxAttachmentBytes != 2*1024*1024 {
		t.Errorf("expected default attachment size 2MiB, got %d", cfg.Limits.MaxAttachmentBytes)
	}
	if cfg.ObjStore.Type != "local" {
		t.Errorf("expected default objstore type local, got %s", cfg.ObjStore.Type)
	}
	if cfg.Audit.Backend != "local" {
		t.Errorf("expected default audit backend local, got %s", cfg.Audit.Backend)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MAIL_GATEWAY_SMTP_PASSWORD", "secret-from-env")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.SMTP.Password != "secret-from-env" {
		t.Errorf("expected env override, got %q", cfg.SMTP.Password)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cfg.SMTP.Host = ""
	cfg.SMTP.Sender = "not-an-address"
	cfg.API.Port = 0

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"smtp.host", "smtp.sender", "api.port"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error, got %q", want, msg)
		}
	}
}

func TestValidate_MutuallyExclusiveTLSModes(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cfg.SMTP.UseSSL = true
	cfg.SMTP.UseStartTLS = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for use_ssl together with use_starttls")
	}
}

func TestValidate_MutuallyExclusiveAPIKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cfg.API.Key = "plain"
	cfg.API.KeyHash = "$2a$10$something"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for api.key together with api.key_hash")
	}
}

func TestValidate_PostgresBackendRequiresURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cfg.Audit.Backend = "postgres"
	cfg.Database.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for postgres backend without database.url")
	}
}

func TestSenderDisplayAddress(t *testing.T) {
	cfg := &Config{}
	cfg.SMTP.Sender = "auth@example.com"

	if got := cfg.SenderDisplayAddress(); got != "auth@example.com" {
		t.Errorf("expected fallback to sender, got %q", got)
	}

	cfg.SMTP.SenderDisplay = "Display <display@example.com>"
	if got := cfg.SenderDisplayAddress(); got != "Display <display@example.com>" {
		t.Errorf("expected display address, got %q", got)
	}
}

func TestAPIKeyConfigured(t *testing.T) {
	cfg := &Config{}
	if cfg.APIKeyConfigured() {
		t.Error("expected false with no key")
	}
	cfg.API.Key = "k"
	if !cfg.APIKeyConfigured() {
		t.Error("expected true with plaintext key")
	}
	cfg.API.Key = ""
	cfg.API.KeyHash = "h"
	if !cfg.APIKeyConfigured() {
		t.Error("expected true with key hash")
	}
}
