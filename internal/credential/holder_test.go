package credential

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "student",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenEmptyHolder(t *testing.T) {
	h := NewHolder("")

	_, err := h.Token()
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.False(t, h.Present())
}

func TestTokenOpaquePassesThrough(t *testing.T) {
	h := NewHolder("not-a-jwt")

	token, err := h.Token()
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", token)
}

func TestTokenLiveJWT(t *testing.T) {
	raw := signedToken(t, time.Now().Add(time.Hour))
	h := NewHolder(raw)

	token, err := h.Token()
	require.NoError(t, err)
	assert.Equal(t, raw, token)
}

func TestTokenExpiredJWT(t *testing.T) {
	h := NewHolder(signedToken(t, time.Now().Add(-time.Minute)))

	_, err := h.Token()
	assert.ErrorIs(t, err, ErrExpired)
	// The token is still present; only the liveness check fails.
	assert.True(t, h.Present())
}

func TestTokenWithoutExpClaimPassesThrough(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "student"})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	h := NewHolder(raw)
	got, err := h.Token()
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestInvalidateForcesReauthentication(t *testing.T) {
	h := NewHolder("valid-token")
	h.Invalidate()

	_, err := h.Token()
	assert.ErrorIs(t, err, ErrNoCredential)

	h.Set("fresh-token")
	token, err := h.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}
