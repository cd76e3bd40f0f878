package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret")
	profileID := uuid.New()

	raw, err := issuer.Token(profileID)
	require.NoError(t, err)

	got, err := issuer.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, profileID, got)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	raw, err := NewIssuer("secret-a").Token(uuid.New())
	require.NoError(t, err)

	_, err = NewIssuer("secret-b").Verify(raw)
	assert.Error(t, err)
}

func TestMiddlewarePopulatesActor(t *testing.T) {
	issuer := NewIssuer("test-secret")
	profileID := uuid.New()
	raw, err := issuer.Token(profileID)
	require.NoError(t, err)

	var seen uuid.UUID
	handler := Middleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorID(r.Context())
		require.True(t, ok)
		seen = actor
	}))

	req := httptest.NewRequest(http.MethodGet, "/swaps/my-swaps", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, profileID, seen)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler := Middleware(NewIssuer("test-secret"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swaps/my-swaps", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
