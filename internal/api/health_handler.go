package api

import (
	"context"
	"net/http"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	ready func(ctx context.Context) error
}

// NewHealthHandler creates a HealthHandler. The ready func probes backing
// services; nil means the service is ready as soon as it is serving.
func NewHealthHandler(ready func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// Live handles GET /healthz. It reports the process is up.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz. It fails when a backing service is unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"detail": err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
