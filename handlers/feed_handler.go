package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"pinpointAPI/middleware"
	"pinpointAPI/services"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gorilla/websocket"
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedHandler upgrades clients onto the realtime row-change feed.
type FeedHandler struct {
	feedService    *services.FeedService
	profileService *services.ProfileService
}

func NewFeedHandler(feedService *services.FeedService, profileService *services.ProfileService) *FeedHandler {
	return &FeedHandler{
		feedService:    feedService,
		profileService: profileService,
	}
}

// Subscribe authenticates the caller, upgrades the connection and registers
// it with the hub. Optional table= and event= query params narrow what the
// socket receives. Browsers cannot set headers on websocket dials, so the
// session token rides in the token query param.
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		token := r.URL.Query().Get("token")
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing session token")
			return
		}
		claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{Token: token})
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid session token")
			return
		}
		clerkID = claims.Subject
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := h.profileService.ResolveUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Unknown user")
		return
	}

	table := r.URL.Query().Get("table")
	event := r.URL.Query().Get("event")

	conn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Feed: upgrade failed: %v", err)
		return
	}

	client := h.feedService.NewFeedClient(conn, userID, table, event)
	h.feedService.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
