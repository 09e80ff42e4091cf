package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pinpointAPI/handlers"
	"pinpointAPI/middleware"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRoutedHandler builds the API router with nil services behind an
// identity-injecting wrapper, so tests can tell which handler a path
// resolves to without a database or a real Clerk token.
func newRoutedHandler() http.Handler {
	r := mux.NewRouter()
	registerAPIRoutes(r,
		handlers.NewProfileHandler(nil),
		handlers.NewFriendHandler(nil),
		handlers.NewLocationHandler(nil),
		handlers.NewNotificationHandler(nil),
	)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "user_test")
		r.ServeHTTP(w, req.WithContext(ctx))
	})
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestFriendStatusRouteNotShadowedByFriendID(t *testing.T) {
	router := newRoutedHandler()

	// Without a userId param CheckStatus rejects the query parameter. If
	// the {friendId} template captured /friends/status instead, the body
	// would complain about an invalid friend id.
	req := httptest.NewRequest(http.MethodGet, "/friends/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "userId")
}

func TestFriendByIDRouteStillReachable(t *testing.T) {
	router := newRoutedHandler()

	req := httptest.NewRequest(http.MethodGet, "/friends/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid friend id", errorBody(t, rec))
}

func TestLiteralRoutesResolveBeforeTemplates(t *testing.T) {
	router := newRoutedHandler()

	// Each literal path must reach its own handler, which fails on input
	// validation rather than on template-variable parsing.
	tests := []struct {
		method  string
		path    string
		errPart string
	}{
		{http.MethodGet, "/users/search", "email"},
		{http.MethodDelete, "/friends/requests/not-a-uuid", "Invalid recipient id"},
		{http.MethodDelete, "/location/share/not-a-uuid", "Invalid friend id"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorBody(t, rec), tt.errPart)
		})
	}
}
