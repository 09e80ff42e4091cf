package location

import (
	"time"

	"github.com/google/uuid"
)

// DefaultName is used when a location is pinned without an explicit label.
const DefaultName = "Shared Location"

type UserLocation struct {
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	LocationName string    `json:"location_name" db:"location_name"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Share struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SenderID   uuid.UUID `json:"sender_id" db:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id" db:"receiver_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SharedView is a location shared with the current user, denormalized with
// the sender's profile so the map screen needs a single request.
type SharedView struct {
	SenderID     uuid.UUID `json:"sender_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	LocationName string    `json:"location_name"`
	UpdatedAt    time.Time `json:"updated_at"`
	SenderEmail  string    `json:"sender_email"`
	SenderName   string    `json:"sender_name"`
}

type UpdateLocationRequest struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"location_name"`
}

type ShareRequest struct {
	FriendID string `json:"friend_id"`
}
