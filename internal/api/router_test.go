package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sungwon/mail-gateway/internal/auth"
	"github.com/sungwon/mail-gateway/internal/pipeline"
)

func newTestRouter(d Deliverer, verifier *auth.KeyVerifier, ready func(ctx context.Context) error) http.Handler {
	return NewRouter(RouterConfig{
		Pipeline: d,
		Limits:   testLimits(),
		Verifier: verifier,
		Ready:    ready,
		Log:      zerolog.Nop(),
	})
}

func TestRouter_Healthz(t *testing.T) {
	r := newTestRouter(&mockDeliverer{}, auth.NewKeyVerifier("", ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_Readyz(t *testing.T) {
	r := newTestRouter(&mockDeliverer{}, auth.NewKeyVerifier("", ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_Readyz_BackendDown(t *testing.T) {
	ready := func(ctx context.Context) error { return errors.New("connection refused") }
	r := newTestRouter(&mockDeliverer{}, auth.NewKeyVerifier("", ""), ready)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter(&mockDeliverer{}, auth.NewKeyVerifier("", ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Prometheus exposition output")
	}
}

func TestRouter_SendRequiresAPIKey(t *testing.T) {
	d := &mockDeliverer{}
	r := newTestRouter(d, auth.NewKeyVerifier("secret", ""), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/mail/send",
		strings.NewReader(`{"recipient_email":"user@example.com"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if len(d.calls) != 0 {
		t.Error("expected no deliver call for an unauthenticated request")
	}
}

func TestRouter_SendWithAPIKey(t *testing.T) {
	d := &mockDeliverer{}
	r := newTestRouter(d, auth.NewKeyVerifier("secret", ""), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/mail/send",
		strings.NewReader(`{"recipient_email":"user@example.com","subject":"hi","body":"text"}`))
	req.Header.Set(auth.HeaderName, "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(d.calls) != 1 {
		t.Errorf("expected one deliver call, got %d", len(d.calls))
	}
}

func TestRouter_ProbesSkipAuth(t *testing.T) {
	r := newTestRouter(&mockDeliverer{}, auth.NewKeyVerifier("secret", ""), nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200 without API key, got %d", path, rec.Code)
		}
	}
}

func TestRouter_CorrelationIDHeader(t *testing.T) {
	r := newTestRouter(&mockDeliverer{}, auth.NewKeyVerifier("", ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected a generated correlation ID header")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "caller-supplied")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != "caller-supplied" {
		t.Errorf("expected caller correlation ID echoed, got %q", got)
	}
}

func TestRouter_PanicRecovery(t *testing.T) {
	panicking := &panickingDeliverer{}
	r := newTestRouter(panicking, auth.NewKeyVerifier("", ""), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/mail/send",
		strings.NewReader(`{"recipient_email":"user@example.com"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
}

type panickingDeliverer struct{}

func (p *panickingDeliverer) Deliver(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	panic("deliverer blew up")
}
