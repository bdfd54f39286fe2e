// Package transport delivers composed messages through the upstream SMTP
// relay. One connection is opened per send; there is no pooling and no
// retrying, both by contract of the delivery pipeline.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/rs/zerolog"
)

// Identity holds the sender addresses and credential for one delivery.
// AuthAddress is used for SMTP authentication and the envelope MAIL FROM;
// DisplayAddress only appears in the composed From header.
type Identity struct {
	AuthAddress    string
	DisplayAddress string
	Password       string
}

// Config holds relay connection settings.
type Config struct {
	Host string
	Port int
	// UseSSL dials an implicit-TLS session.
	UseSSL bool
	// UseStartTLS upgrades a plaintext session via STARTTLS.
	UseStartTLS       bool
	CommandTimeout    time.Duration
	SubmissionTimeout time.Duration
}

// Sender transmits one composed message to one recipient.
type Sender interface {
	Send(ctx context.Context, to string, message []byte, identity Identity) error
}

// SMTPTransport implements Sender against a real SMTP relay.
type SMTPTransport struct {
	cfg Config
	log zerolog.Logger
}

// New creates an SMTPTransport with the given relay configuration.
func New(cfg Config, log zerolog.Logger) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, log: log}
}

// Send opens a session, optionally negotiates TLS and authenticates,
// transmits the message, and closes the connection on every exit path.
// Failures are returned as *DeliveryError with the stage that failed.
func (t *SMTPTransport) Send(ctx context.Context, to string, message []byte, identity Identity) error {
	if err := ctx.Err(); err != nil {
		return classify(KindConnect, err)
	}

	client, err := t.dial()
	if err != nil {
		t.log.Error().Err(err).
			Str("host", t.cfg.Host).
			Int("port", t.cfg.Port).
			Msg("smtp dial failed")
		return classify(KindConnect, err)
	}
	defer client.Close()

	if t.cfg.CommandTimeout > 0 {
		client.CommandTimeout = t.cfg.CommandTimeout
	}
	if t.cfg.SubmissionTimeout > 0 {
		client.SubmissionTimeout = t.cfg.SubmissionTimeout
	}

	if identity.Password != "" {
		auth := sasl.NewPlainClient("", identity.AuthAddress, identity.Password)
		if err := client.Auth(auth); err != nil {
			t.log.Error().Err(err).
				Str("auth_address", identity.AuthAddress).
				Msg("smtp auth failed")
			return classify(KindAuth, err)
		}
	}

	if err := client.SendMail(identity.AuthAddress, []string{to}, bytes.NewReader(message)); err != nil {
		t.log.Error().Err(err).
			Str("to", to).
			Msg("smtp send failed")
		return classify(KindSend, err)
	}

	if err := client.Quit(); err != nil {
		// The relay accepted the message; a failed QUIT is not a
		// delivery failure.
		t.log.Warn().Err(err).Msg("smtp quit failed after accepted message")
	}

	return nil
}

// dial opens the relay connection according to the configured TLS mode.
func (t *SMTPTransport) dial() (*gosmtp.Client, error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	tlsCfg := &tls.Config{ServerName: t.cfg.Host}

	switch {
	case t.cfg.UseSSL:
		return gosmtp.DialTLS(addr, tlsCfg)
	case t.cfg.UseStartTLS:
		return gosmtp.DialStartTLS(addr, tlsCfg)
	default:
		return gosmtp.Dial(addr)
	}
}

// Describe returns a short human-readable relay endpoint description for
// startup logging.
func (t *SMTPTransport) Describe() string {
	mode := "plaintext"
	switch {
	case t.cfg.UseSSL:
		mode = "ssl"
	case t.cfg.UseStartTLS:
		mode = "starttls"
	}
	return strings.Join([]string{net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port)), mode}, " ")
}
