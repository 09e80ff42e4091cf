package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pinpointAPI/middleware"
	"pinpointAPI/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrSelfRequest, http.StatusBadRequest},
		{services.ErrInvalidCoordinates, http.StatusBadRequest},
		{services.ErrAlreadyExists, http.StatusConflict},
		{services.ErrNotRecipient, http.StatusForbidden},
		{services.ErrNotFriends, http.StatusForbidden},
		{services.ErrNoLocation, http.StatusPreconditionFailed},
		{fmt.Errorf("wrapped: %w", services.ErrAlreadyExists), http.StatusConflict},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), "error %v", tt.err)
	}
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithError(rec, http.StatusConflict, "already friends")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "already friends", body["error"])
}

func TestHandlersRequireAuthContext(t *testing.T) {
	profileHandler := NewProfileHandler(nil)
	friendHandler := NewFriendHandler(nil)
	locationHandler := NewLocationHandler(nil)
	notificationHandler := NewNotificationHandler(nil)

	handlers := map[string]http.HandlerFunc{
		"GetProfile":       profileHandler.GetProfile,
		"SearchByEmail":    profileHandler.SearchByEmail,
		"GetFriends":       friendHandler.GetFriends,
		"GetSavedLocation": locationHandler.GetSavedLocation,
		"GetNotifications": notificationHandler.GetNotifications,
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			handler(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestSearchByEmailRequiresQueryParam(t *testing.T) {
	h := NewProfileHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/search", nil)
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "user_123")
	rec := httptest.NewRecorder()

	h.SearchByEmail(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
