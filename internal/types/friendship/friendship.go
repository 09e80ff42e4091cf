package friendship

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the statuses a recipient may set.
func (s Status) Valid() bool {
	return s == StatusAccepted || s == StatusRejected
}

type Friendship struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RequestorID uuid.UUID `json:"requestor_id" db:"requestor_id"`
	RecipientID uuid.UUID `json:"recipient_id" db:"recipient_id"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Friend is one row of the accepted-friend view.
type Friend struct {
	FriendID     uuid.UUID `json:"friend_id"`
	FriendName   string    `json:"friend_name"`
	FriendAvatar *string   `json:"friend_avatar"`
}

// FriendRequest is an incoming pending request joined with the requestor profile.
type FriendRequest struct {
	RequestorID     uuid.UUID `json:"requestor_id"`
	RequestorName   string    `json:"requestor_name"`
	RequestorAvatar *string   `json:"requestor_avatar"`
	RequestDate     time.Time `json:"request_date"`
}

// OutgoingFriendRequest is an outgoing pending request joined with the recipient profile.
type OutgoingFriendRequest struct {
	RecipientID     uuid.UUID `json:"recipient_id"`
	RecipientName   string    `json:"recipient_name"`
	RecipientAvatar *string   `json:"recipient_avatar"`
	RequestDate     time.Time `json:"request_date"`
}
