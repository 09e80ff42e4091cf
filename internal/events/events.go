package events

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Tables that emit change events.
const (
	TableFriendships    = "friendships"
	TableUserLocations  = "user_locations"
	TableLocationShares = "location_shares"
)

// Event types, named after the row operations clients subscribe to.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent is one row change pushed over the feed. Recipients lists the
// user ids the change is addressed to; the hub only delivers an event to
// sockets owned by one of them.
type ChangeEvent struct {
	Table      string          `json:"table"`
	Event      string          `json:"event"`
	Row        json.RawMessage `json:"row"`
	Recipients []uuid.UUID     `json:"recipients"`
}

func NewChangeEvent(table, event string, row any, recipients ...uuid.UUID) (*ChangeEvent, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	return &ChangeEvent{
		Table:      table,
		Event:      event,
		Row:        raw,
		Recipients: recipients,
	}, nil
}

// AddressedTo reports whether the event should be delivered to userID.
func (e *ChangeEvent) AddressedTo(userID uuid.UUID) bool {
	for _, id := range e.Recipients {
		if id == userID {
			return true
		}
	}
	return false
}

// Matches applies a subscriber's table/event filters; empty filter matches all.
func (e *ChangeEvent) Matches(table, event string) bool {
	if table != "" && table != e.Table {
		return false
	}
	if event != "" && event != e.Event {
		return false
	}
	return true
}
