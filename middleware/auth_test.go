package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedRequest(t *testing.T, header string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func runMiddleware(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ClerkAuthMiddleware(next).ServeHTTP(rec, req)
	return rec
}

func TestClerkAuthMiddlewareMissingHeader(t *testing.T) {
	rec := runMiddleware(authedRequest(t, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClerkAuthMiddlewareBadFormat(t *testing.T) {
	rec := runMiddleware(authedRequest(t, "Token abc123"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClerkAuthMiddlewareRejectsForgedToken(t *testing.T) {
	// A structurally valid JWT signed with the wrong key and algorithm
	// must not pass verification.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := forged.SignedString([]byte("not-clerks-key"))
	require.NoError(t, err)

	rec := runMiddleware(authedRequest(t, "Bearer "+token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetClerkID(t *testing.T) {
	ctx := context.WithValue(context.Background(), ClerkIDKey, "user_123")

	id, ok := GetClerkID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user_123", id)

	_, ok = GetClerkID(context.Background())
	assert.False(t, ok)
}
