// Package api exposes the HTTP surface: the mail-send endpoints, health
// probes, and the Prometheus scrape endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sungwon/mail-gateway/internal/auth"
	"github.com/sungwon/mail-gateway/internal/pipeline"
)

// RouterConfig bundles the router's collaborators.
type RouterConfig struct {
	Pipeline Deliverer
	Limits   pipeline.Limits
	Verifier *auth.KeyVerifier
	// Ready probes backing services for the readiness endpoint; nil means
	// always ready.
	Ready func(ctx context.Context) error
	Log   zerolog.Logger
}

// NewRouter builds the HTTP router. The send endpoints sit behind the API
// key check; probes and metrics do not.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(MetricsMiddleware)
	r.Use(RecoverMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.Ready)
	r.Get("/healthz", health.Live)
	r.Get("/readyz", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	send := NewSendHandler(cfg.Pipeline, cfg.Limits, cfg.Log)
	r.Route("/v1/mail", func(r chi.Router) {
		r.Use(auth.APIKeyAuth(cfg.Verifier, cfg.Log))
		r.Post("/send", send.Send)
		r.Post("/send-with-attachments", send.SendWithAttachments)
	})

	return r
}
