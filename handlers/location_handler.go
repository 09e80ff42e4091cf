package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pinpointAPI/internal/types/location"
	"pinpointAPI/middleware"
	"pinpointAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type LocationHandler struct {
	locationService *services.LocationService
}

func NewLocationHandler(locationService *services.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
	}
}

func (h *LocationHandler) UpdateMyLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req location.UpdateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	loc, err := h.locationService.UpdateMyLocation(ctx, clerkID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCoordinates) {
			respondWithError(w, http.StatusBadRequest, "Coordinates out of range")
			return
		}
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, loc)
}

func (h *LocationHandler) GetSavedLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	loc, err := h.locationService.GetSavedUserLocation(ctx, clerkID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "No saved location")
			return
		}
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, loc)
}

func (h *LocationHandler) ShareLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req location.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid friend id")
		return
	}

	share, err := h.locationService.ShareLocationWithFriend(ctx, clerkID, friendID)
	if err != nil {
		if errors.Is(err, services.ErrNoLocation) {
			respondWithError(w, http.StatusPreconditionFailed, "Set your location before sharing it")
			return
		}
		if errors.Is(err, services.ErrNotFriends) {
			respondWithError(w, http.StatusForbidden, "You can only share with accepted friends")
			return
		}
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, share)
}

func (h *LocationHandler) StopSharing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friendID, err := uuid.Parse(mux.Vars(r)["friendId"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid friend id")
		return
	}

	if err := h.locationService.StopSharingWithFriend(ctx, clerkID, friendID); err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "sharing stopped"})
}

func (h *LocationHandler) GetSharedWithMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	views, err := h.locationService.GetLocationsSharedWithMe(ctx, clerkID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"locations": views})
}

func (h *LocationHandler) GetSharingWith(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	ids, err := h.locationService.GetFriendsImSharingWith(ctx, clerkID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"friend_ids": ids})
}
