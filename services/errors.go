package services

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrSelfRequest indicates a user targeted themselves with a friend operation.
	ErrSelfRequest = errors.New("cannot send friend request to yourself")
	// ErrAlreadyExists indicates a friendship row already exists for the pair.
	ErrAlreadyExists = errors.New("friendship already exists")
	// ErrNotRecipient indicates someone other than the recipient tried to resolve a request.
	ErrNotRecipient = errors.New("only the recipient can respond to this request")
	// ErrNoLocation indicates the sender has no pinned location yet.
	ErrNoLocation = errors.New("you need to set your location before sharing")
	// ErrNotFriends indicates the target is not an accepted friend.
	ErrNotFriends = errors.New("users are not friends")
	// ErrInvalidCoordinates indicates latitude/longitude outside their valid ranges.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)
