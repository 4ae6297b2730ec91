// Package credential keeps the student's bearer token for the lifetime of
// one exam attempt. The host UI deposits it at session start and may
// replace it after re-authentication; the submission path discards it when
// the upstream rejects it.
package credential

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredential = errors.New("no credential present")
	ErrExpired      = errors.New("credential expired")
)

// Holder is a concurrency-safe single-token store.
type Holder struct {
	mu    sync.RWMutex
	token string
}

// NewHolder creates a holder, optionally pre-seeded with a token.
func NewHolder(token string) *Holder {
	return &Holder{token: token}
}

// Set replaces the stored token (re-authentication path).
func (h *Holder) Set(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

// Invalidate discards the stored token. Called when the upstream rejects
// it so the host UI is forced through re-authentication.
func (h *Holder) Invalidate() {
	h.Set("")
}

// Token returns the current credential after a local liveness check. The
// service cannot verify the upstream's signature, so the token is parsed
// unverified purely to read its expiry; a token already past its exp claim
// would be rejected upstream anyway, and failing here keeps the session in
// its retryable state without a round trip.
func (h *Holder) Token() (string, error) {
	h.mu.RLock()
	token := h.token
	h.mu.RUnlock()

	if token == "" {
		return "", ErrNoCredential
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Opaque (non-JWT) credentials pass through; the upstream decides.
		return token, nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return token, nil
	}
	if exp.Before(time.Now()) {
		return "", ErrExpired
	}
	return token, nil
}

// Present reports whether any credential is stored, live or not.
func (h *Holder) Present() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token != ""
}
