package security

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatgrid/internal/status"
)

func TestAuthGate_IssueAndAuthenticate(t *testing.T) {
	gate := NewAuthGate("test-secret", time.Hour)

	token, err := gate.Issue("user-123", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	req, _ := http.NewRequest(http.MethodGet, "/api/seats", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	userID, err := gate.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestAuthGate_Authenticate_MissingHeader(t *testing.T) {
	gate := NewAuthGate("test-secret", time.Hour)

	req, _ := http.NewRequest(http.MethodGet, "/api/seats", nil)

	_, err := gate.Authenticate(req)
	assert.ErrorIs(t, err, status.ErrUnauthenticated)
}

func TestAuthGate_Authenticate_MalformedHeader(t *testing.T) {
	gate := NewAuthGate("test-secret", time.Hour)

	req, _ := http.NewRequest(http.MethodGet, "/api/seats", nil)
	req.Header.Set("Authorization", "Basic abc123")

	_, err := gate.Authenticate(req)
	assert.ErrorIs(t, err, status.ErrUnauthenticated)
}

func TestAuthGate_Authenticate_WrongSecret(t *testing.T) {
	issuer := NewAuthGate("secret-a", time.Hour)
	verifier := NewAuthGate("secret-b", time.Hour)

	token, err := issuer.Issue("user-123", "user@example.com")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/api/seats", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = verifier.Authenticate(req)
	assert.ErrorIs(t, err, status.ErrForbidden)
}

func TestAuthGate_Authenticate_Expired(t *testing.T) {
	gate := NewAuthGate("test-secret", -time.Minute)

	token, err := gate.Issue("user-123", "user@example.com")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/api/seats", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = gate.Authenticate(req)
	assert.ErrorIs(t, err, status.ErrForbidden)
}
