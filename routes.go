package main

import (
	"github.com/gorilla/mux"

	"pinpointAPI/handlers"
)

// registerAPIRoutes mounts the authenticated API operations on r. Literal
// paths are registered before template paths that share a prefix and method;
// gorilla/mux matches in registration order, so /friends/status must come
// before /friends/{friendId}.
func registerAPIRoutes(
	r *mux.Router,
	profileHandler *handlers.ProfileHandler,
	friendHandler *handlers.FriendHandler,
	locationHandler *handlers.LocationHandler,
	notificationHandler *handlers.NotificationHandler,
) {
	r.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	r.HandleFunc("/profile/update", profileHandler.UpdateProfile).Methods("PUT")
	r.HandleFunc("/users/search", profileHandler.SearchByEmail).Methods("GET")

	r.HandleFunc("/friends", friendHandler.GetFriends).Methods("GET")
	r.HandleFunc("/friends/status", friendHandler.CheckStatus).Methods("GET")
	r.HandleFunc("/friends/requests", friendHandler.SendFriendRequest).Methods("POST")
	r.HandleFunc("/friends/requests/pending", friendHandler.GetPendingRequests).Methods("GET")
	r.HandleFunc("/friends/requests/outgoing", friendHandler.GetOutgoingRequests).Methods("GET")
	r.HandleFunc("/friends/requests/respond", friendHandler.RespondToRequest).Methods("PUT")
	r.HandleFunc("/friends/requests/{recipientId}", friendHandler.CancelRequest).Methods("DELETE")
	r.HandleFunc("/friends/{friendId}", friendHandler.GetFriendByID).Methods("GET")

	r.HandleFunc("/location", locationHandler.UpdateMyLocation).Methods("PUT")
	r.HandleFunc("/location", locationHandler.GetSavedLocation).Methods("GET")
	r.HandleFunc("/location/share", locationHandler.ShareLocation).Methods("POST")
	r.HandleFunc("/location/share/{friendId}", locationHandler.StopSharing).Methods("DELETE")
	r.HandleFunc("/location/shared-with-me", locationHandler.GetSharedWithMe).Methods("GET")
	r.HandleFunc("/location/sharing-with", locationHandler.GetSharingWith).Methods("GET")

	r.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	r.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	r.HandleFunc("/notifications/read", notificationHandler.MarkAllAsRead).Methods("PUT")
	r.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
}
