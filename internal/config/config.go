// Package config loads and validates the immutable application configuration.
package config

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at process
// start and treated as read-only afterwards.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	ObjStore ObjStoreConfig `mapstructure:"objstore"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds HTTP server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// Key is the shared secret expected in the X-API-Key header.
	// When both Key and KeyHash are empty, authentication is disabled.
	Key string `mapstructure:"key"`
	// KeyHash is a bcrypt hash of the shared secret, so the plaintext
	// never has to live in the config file. Mutually exclusive with Key.
	KeyHash string `mapstructure:"key_hash"`
}

// SMTPConfig holds the upstream SMTP relay configuration.
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// UseSSL dials an implicit-TLS session (typically port 465).
	UseSSL bool `mapstructure:"use_ssl"`
	// UseStartTLS upgrades a plaintext session via STARTTLS (typically 587).
	UseStartTLS bool `mapstructure:"use_starttls"`
	// Sender is the address used for SMTP authentication and the
	// envelope MAIL FROM.
	Sender string `mapstructure:"sender"`
	// SenderDisplay, when set, replaces Sender in the From header only.
	SenderDisplay string `mapstructure:"sender_display"`
	// SenderDomain is used to build Message-ID headers.
	SenderDomain string `mapstructure:"sender_domain"`
	// Password enables AUTH PLAIN when non-empty.
	Password          string        `mapstructure:"password"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout"`
	SubmissionTimeout time.Duration `mapstructure:"submission_timeout"`
}

// LimitsConfig holds request field and attachment limits.
type LimitsConfig struct {
	MaxRecipientLen    int   `mapstructure:"max_recipient_len"`
	MaxSubjectLen      int   `mapstructure:"max_subject_len"`
	MaxBodyLen         int   `mapstructure:"max_body_len"`
	MaxAttachments     int   `mapstructure:"max_attachments"`
	MaxAttachmentBytes int64 `mapstructure:"max_attachment_bytes"`
}

// ObjStoreConfig holds attachment staging store configuration.
type ObjStoreConfig struct {
	Type        string `mapstructure:"type"` // "local" or "s3"
	Path        string `mapstructure:"path"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Prefix    string `mapstructure:"s3_prefix"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3Region    string `mapstructure:"s3_region"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

// AuditConfig holds audit record store configuration.
type AuditConfig struct {
	Backend     string `mapstructure:"backend"` // "local", "s3", or "postgres"
	Path        string `mapstructure:"path"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Prefix    string `mapstructure:"s3_prefix"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3Region    string `mapstructure:"s3_region"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

// DatabaseConfig holds PostgreSQL connection configuration, used only
// when the audit backend is "postgres".
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig holds process logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"` // stdout (default) or file
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix MAIL_GATEWAY_ override file values.
// For example, MAIL_GATEWAY_SMTP_PASSWORD overrides smtp.password.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("MAIL_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers defaults matching the original deployment limits:
// 64-char recipients, 255-char subjects, 50k bodies, and at most two
// 2 MiB attachments per request.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.read_timeout", "30s")
	v.SetDefault("api.write_timeout", "60s")

	v.SetDefault("smtp.port", 25)
	// Secrets are expected from the environment; registering them as keys
	// lets AutomaticEnv pick them up when the file omits them.
	v.SetDefault("smtp.password", "")
	v.SetDefault("api.key", "")
	v.SetDefault("api.key_hash", "")
	v.SetDefault("database.url", "")
	v.SetDefault("smtp.command_timeout", "30s")
	v.SetDefault("smtp.submission_timeout", "2m")

	v.SetDefault("limits.max_recipient_len", 64)
	v.SetDefault("limits.max_subject_len", 255)
	v.SetDefault("limits.max_body_len", 50000)
	v.SetDefault("limits.max_attachments", 2)
	v.SetDefault("limits.max_attachment_bytes", 2*1024*1024)

	v.SetDefault("objstore.type", "local")
	v.SetDefault("objstore.path", "data/staging")
	v.SetDefault("objstore.s3_prefix", "staging/")

	v.SetDefault("audit.backend", "local")
	v.SetDefault("audit.path", "data/audit")
	v.SetDefault("audit.s3_prefix", "audit/")

	v.SetDefault("database.pool_min", 2)
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("database.connect_timeout", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks the configuration for values the process cannot serve
// traffic with. It is called by Load; the process must exit on error.
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d out of range", c.API.Port))
	}
	if c.API.Key != "" && c.API.KeyHash != "" {
		errs = append(errs, "api.key and api.key_hash are mutually exclusive")
	}

	if c.SMTP.Host == "" {
		errs = append(errs, "smtp.host is required")
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("smtp.port %d out of range", c.SMTP.Port))
	}
	if c.SMTP.UseSSL && c.SMTP.UseStartTLS {
		errs = append(errs, "smtp.use_ssl and smtp.use_starttls are mutually exclusive")
	}
	if c.SMTP.Sender == "" {
		errs = append(errs, "smtp.sender is required")
	} else if _, err := mail.ParseAddress(c.SMTP.Sender); err != nil {
		errs = append(errs, fmt.Sprintf("smtp.sender %q is not a valid address", c.SMTP.Sender))
	}
	if c.SMTP.SenderDisplay != "" {
		if _, err := mail.ParseAddress(c.SMTP.SenderDisplay); err != nil {
			errs = append(errs, fmt.Sprintf("smtp.sender_display %q is not a valid address", c.SMTP.SenderDisplay))
		}
	}

	if c.Limits.MaxRecipientLen < 1 {
		errs = append(errs, "limits.max_recipient_len must be positive")
	}
	if c.Limits.MaxSubjectLen < 1 {
		errs = append(errs, "limits.max_subject_len must be positive")
	}
	if c.Limits.MaxBodyLen < 1 {
		errs = append(errs, "limits.max_body_len must be positive")
	}
	if c.Limits.MaxAttachments < 0 {
		errs = append(errs, "limits.max_attachments must not be negative")
	}
	if c.Limits.MaxAttachmentBytes < 1 {
		errs = append(errs, "limits.max_attachment_bytes must be positive")
	}

	switch c.ObjStore.Type {
	case "local":
		if c.ObjStore.Path == "" {
			errs = append(errs, "objstore.path is required for local store")
		}
	case "s3":
		if c.ObjStore.S3Bucket == "" {
			errs = append(errs, "objstore.s3_bucket is required for s3 store")
		}
	default:
		errs = append(errs, fmt.Sprintf("objstore.type %q is not supported", c.ObjStore.Type))
	}

	switch c.Audit.Backend {
	case "local":
		if c.Audit.Path == "" {
			errs = append(errs, "audit.path is required for local backend")
		}
	case "s3":
		if c.Audit.S3Bucket == "" {
			errs = append(errs, "audit.s3_bucket is required for s3 backend")
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, "database.url is required for postgres audit backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("audit.backend %q is not supported", c.Audit.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SenderDisplayAddress returns the address to use in the From header:
// smtp.sender_display when set, smtp.sender otherwise. Never empty for
// a valid configuration.
func (c *Config) SenderDisplayAddress() string {
	if d := strings.TrimSpace(c.SMTP.SenderDisplay); d != "" {
		return d
	}
	return c.SMTP.Sender
}

// APIKeyConfigured reports whether requests must present an API key.
func (c *Config) APIKeyConfigured() bool {
	return c.API.Key != "" || c.API.KeyHash != ""
}
