package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pinpointAPI/internal/types/friendship"
	"pinpointAPI/middleware"
	"pinpointAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type FriendHandler struct {
	friendService *services.FriendService
}

func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
	}
}

func (h *FriendHandler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		RecipientID string `json:"recipient_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid recipient id")
		return
	}

	f, err := h.friendService.SendFriendRequest(ctx, clerkID, recipientID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, f)
}

func (h *FriendHandler) GetFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friends, err := h.friendService.GetFriends(ctx, clerkID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"friends": friends})
}

func (h *FriendHandler) GetFriendByID(w http.ResponseWriter, r *http.Request) {
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

	friend, err := h.friendService.GetFriendByID(ctx, clerkID, friendID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Friend not found")
			return
		}
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, friend)
}

func (h *FriendHandler) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	requests, err := h.friendService.GetPendingFriendRequests(ctx, clerkID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (h *FriendHandler) GetOutgoingRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	requests, err := h.friendService.GetOutgoingFriendRequests(ctx, clerkID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// RespondToRequest is the recipient-side accept/reject.
func (h *FriendHandler) RespondToRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		RequestorID string `json:"requestor_id"`
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	requestorID, err := uuid.Parse(req.RequestorID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid requestor id")
		return
	}

	status := friendship.Status(req.Status)
	if !status.Valid() {
		respondWithError(w, http.StatusBadRequest, "Status must be 'accepted' or 'rejected'")
		return
	}

	f, err := h.friendService.UpdateFriendshipStatus(ctx, clerkID, requestorID, status)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Friend request not found")
			return
		}
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, f)
}

func (h *FriendHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	recipientID, err := uuid.Parse(mux.Vars(r)["recipientId"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid recipient id")
		return
	}

	if err := h.friendService.CancelFriendRequest(ctx, clerkID, recipientID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "No pending request to cancel")
			return
		}
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "friend request cancelled"})
}

func (h *FriendHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	otherID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'userId' must be a valid id")
		return
	}

	status, err := h.friendService.CheckFriendshipStatus(ctx, clerkID, otherID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondWithJSON(w, http.StatusOK, map[string]any{"status": nil})
			return
		}
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"status": status})
}
