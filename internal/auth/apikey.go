// Package auth implements the shared-secret API key check for the HTTP
// surface. Key failures are reported to the caller and the process log but
// are deliberately not written to the delivery audit trail.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sungwon/mail-gateway/internal/metrics"
)

// HeaderName is the request header carrying the shared secret.
const HeaderName = "X-API-Key"

// KeyVerifier checks a presented API key against the configured secret.
type KeyVerifier struct {
	key     string
	keyHash string
}

// NewKeyVerifier creates a verifier for a plaintext key or a bcrypt hash.
// Exactly one of the two should be set; when both are empty the verifier
// accepts every request (authentication disabled).
func NewKeyVerifier(key, keyHash string) *KeyVerifier {
	return &KeyVerifier{key: key, keyHash: keyHash}
}

// Enabled reports whether a key is configured.
func (v *KeyVerifier) Enabled() bool {
	return v.key != "" || v.keyHash != ""
}

// Verify reports whether the presented key matches the configured secret.
// Plaintext comparison is constant-time.
func (v *KeyVerifier) Verify(presented string) bool {
	if !v.Enabled() {
		return true
	}
	if v.keyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(v.keyHash), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(v.key), []byte(presented)) == 1
}

// HashKey produces a bcrypt hash suitable for the api.key_hash setting.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// APIKeyAuth returns middleware that rejects requests whose X-API-Key
// header is missing or wrong with 401 before any handler runs. When no key
// is configured the middleware passes every request through.
func APIKeyAuth(verifier *KeyVerifier, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifier.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			if !verifier.Verify(r.Header.Get(HeaderName)) {
				metrics.APIAuthFailuresTotal.Inc()
				log.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("API key rejected")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","detail":"could not validate credentials"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
