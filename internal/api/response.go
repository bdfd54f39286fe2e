package api

import (
	"encoding/json"
	"net/http"
)

// respondJSON writes a JSON response with the given status code and data.
// If data is nil, only the status code and Content-Type header are written.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response with an error kind and a
// human-readable detail.
func respondError(w http.ResponseWriter, status int, kind, detail string) {
	respondJSON(w, status, map[string]string{"error": kind, "detail": detail})
}

// respondValidationErrors writes a 400 response with a list of constraint
// violation details.
func respondValidationErrors(w http.ResponseWriter, violations []string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "validation_failed",
		"details": violations,
	})
}
