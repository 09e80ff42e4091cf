package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pinpointAPI/internal/events"
	"pinpointAPI/internal/types/friendship"
	"pinpointAPI/internal/types/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FriendService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
	feed          *FeedService
}

func NewFriendService(db *pgxpool.Pool, notifications *NotificationService, feed *FeedService) *FriendService {
	return &FriendService{
		db:            db,
		notifications: notifications,
		feed:          feed,
	}
}

// SendFriendRequest creates a pending friendship row from the current user
// to recipientID. Any existing row for the pair, in either direction and in
// any status, blocks a new request.
func (s *FriendService) SendFriendRequest(ctx context.Context, clerkID string, recipientID uuid.UUID) (*friendship.Friendship, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if userID == recipientID {
		return nil, ErrSelfRequest
	}

	var recipientExists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`, recipientID,
	).Scan(&recipientExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipient: %w", err)
	}
	if !recipientExists {
		return nil, ErrNotFound
	}

	var exists bool
	checkQuery := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (requestor_id = $1 AND recipient_id = $2)
			   OR (requestor_id = $2 AND recipient_id = $1)
		)
	`
	err = s.db.QueryRow(ctx, checkQuery, userID, recipientID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing friendship: %w", err)
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	insertQuery := `
	INSERT INTO friendships (id, requestor_id, recipient_id, status, created_at, updated_at)
	VALUES ($1, $2, $3, 'pending', NOW(), NOW())
	RETURNING id, requestor_id, recipient_id, status, created_at, updated_at
	`

	f := &friendship.Friendship{}
	err = s.db.QueryRow(ctx, insertQuery, uuid.New(), userID, recipientID).Scan(
		&f.ID, &f.RequestorID, &f.RecipientID, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		// The pair index closes the race between the check above and this
		// insert: a concurrent duplicate surfaces here as a conflict.
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	s.publishChange(ctx, events.EventInsert, f)
	s.notifyFriendRequest(ctx, f)

	return f, nil
}

// CheckFriendshipStatus returns the status of the single row between the
// current user and otherID, in either direction. ErrNotFound means no
// relationship exists.
func (s *FriendService) CheckFriendshipStatus(ctx context.Context, clerkID string, otherID uuid.UUID) (friendship.Status, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return "", err
	}

	var status friendship.Status
	query := `
	SELECT status FROM friendships
	WHERE (requestor_id = $1 AND recipient_id = $2)
	   OR (requestor_id = $2 AND recipient_id = $1)
	`
	err = s.db.QueryRow(ctx, query, userID, otherID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to check friendship status: %w", err)
	}

	return status, nil
}

// GetPendingFriendRequests returns incoming pending requests joined with the
// requestor's profile in one query.
func (s *FriendService) GetPendingFriendRequests(ctx context.Context, clerkID string) ([]friendship.FriendRequest, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT f.requestor_id, p.full_name, p.avatar_url, f.created_at
	FROM friendships f
	JOIN profiles p ON p.id = f.requestor_id
	WHERE f.recipient_id = $1 AND f.status = 'pending'
	ORDER BY f.created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending friend requests: %w", err)
	}
	defer rows.Close()

	requests := []friendship.FriendRequest{}
	for rows.Next() {
		var r friendship.FriendRequest
		if err := rows.Scan(&r.RequestorID, &r.RequestorName, &r.RequestorAvatar, &r.RequestDate); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// GetOutgoingFriendRequests returns the current user's pending requests
// joined with each recipient's profile in one query.
func (s *FriendService) GetOutgoingFriendRequests(ctx context.Context, clerkID string) ([]friendship.OutgoingFriendRequest, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT f.recipient_id, p.full_name, p.avatar_url, f.created_at
	FROM friendships f
	JOIN profiles p ON p.id = f.recipient_id
	WHERE f.requestor_id = $1 AND f.status = 'pending'
	ORDER BY f.created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outgoing friend requests: %w", err)
	}
	defer rows.Close()

	requests := []friendship.OutgoingFriendRequest{}
	for rows.Next() {
		var r friendship.OutgoingFriendRequest
		if err := rows.Scan(&r.RecipientID, &r.RecipientName, &r.RecipientAvatar, &r.RequestDate); err != nil {
			return nil, fmt.Errorf("failed to scan outgoing request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// UpdateFriendshipStatus is the recipient-side accept/reject. Only the row
// where the current user is the recipient matches, so a requestor cannot
// resolve their own request. Repeating an accept is a no-op.
func (s *FriendService) UpdateFriendshipStatus(ctx context.Context, clerkID string, requestorID uuid.UUID, status friendship.Status) (*friendship.Friendship, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	UPDATE friendships
	SET status = $3, updated_at = NOW()
	WHERE requestor_id = $1 AND recipient_id = $2
	RETURNING id, requestor_id, recipient_id, status, created_at, updated_at
	`

	f := &friendship.Friendship{}
	err = s.db.QueryRow(ctx, query, requestorID, userID, status).Scan(
		&f.ID, &f.RequestorID, &f.RecipientID, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update friendship status: %w", err)
	}

	s.publishChange(ctx, events.EventUpdate, f)
	if status == friendship.StatusAccepted {
		s.notifyFriendAccepted(ctx, f)
	}

	return f, nil
}

// CancelFriendRequest deletes the current user's pending request to
// recipientID. Non-pending rows are deliberately out of reach: cancelling
// an already accepted friendship reports not found.
func (s *FriendService) CancelFriendRequest(ctx context.Context, clerkID string, recipientID uuid.UUID) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM friendships WHERE requestor_id = $1 AND recipient_id = $2 AND status = 'pending'`,
		userID, recipientID,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel friend request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	ev, err := events.NewChangeEvent(events.TableFriendships, events.EventDelete, map[string]any{
		"requestor_id": userID,
		"recipient_id": recipientID,
	}, userID, recipientID)
	if err == nil && s.feed != nil {
		s.feed.Publish(ctx, ev)
	}

	return nil
}

// GetFriends returns the accepted-friend view: everyone the current user
// has an accepted friendship with, from either side.
func (s *FriendService) GetFriends(ctx context.Context, clerkID string) ([]friendship.Friend, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT p.id, p.full_name, p.avatar_url
	FROM profiles p
	JOIN friendships f ON (
		(f.requestor_id = p.id AND f.recipient_id = $1)
		OR
		(f.recipient_id = p.id AND f.requestor_id = $1)
	)
	WHERE f.status = 'accepted' AND p.id != $1
	ORDER BY p.full_name
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	defer rows.Close()

	friends := []friendship.Friend{}
	for rows.Next() {
		var f friendship.Friend
		if err := rows.Scan(&f.FriendID, &f.FriendName, &f.FriendAvatar); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// GetFriendByID fetches a single accepted friend with a targeted query.
func (s *FriendService) GetFriendByID(ctx context.Context, clerkID string, friendID uuid.UUID) (*friendship.Friend, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT p.id, p.full_name, p.avatar_url
	FROM profiles p
	JOIN friendships f ON (
		(f.requestor_id = p.id AND f.recipient_id = $1)
		OR
		(f.recipient_id = p.id AND f.requestor_id = $1)
	)
	WHERE f.status = 'accepted' AND p.id = $2
	`

	var f friendship.Friend
	err = s.db.QueryRow(ctx, query, userID, friendID).Scan(&f.FriendID, &f.FriendName, &f.FriendAvatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get friend: %w", err)
	}

	return &f, nil
}

// areFriends reports whether an accepted friendship exists between two users.
func (s *FriendService) areFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var ok bool
	query := `
	SELECT EXISTS(
		SELECT 1 FROM friendships
		WHERE ((requestor_id = $1 AND recipient_id = $2) OR (requestor_id = $2 AND recipient_id = $1))
		AND status = 'accepted'
	)
	`
	if err := s.db.QueryRow(ctx, query, a, b).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return ok, nil
}

func (s *FriendService) publishChange(ctx context.Context, event string, f *friendship.Friendship) {
	if s.feed == nil {
		return
	}
	ev, err := events.NewChangeEvent(events.TableFriendships, event, f, f.RequestorID, f.RecipientID)
	if err != nil {
		log.Printf("Friends: failed to build change event: %v", err)
		return
	}
	s.feed.Publish(ctx, ev)
}

func (s *FriendService) notifyFriendRequest(ctx context.Context, f *friendship.Friendship) {
	if s.notifications == nil {
		return
	}

	name := s.displayName(ctx, f.RequestorID)
	_, err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID: f.RecipientID,
		Type:   notification.NotificationFriendRequest,
		Title:  "Friend Request",
		Body:   fmt.Sprintf("%s wants to be your friend", name),
		Data:   map[string]any{"type": "friend_request", "requestor_id": f.RequestorID.String()},
	})
	if err != nil {
		log.Printf("Friends: failed to create friend request notification: %v", err)
	}
}

func (s *FriendService) notifyFriendAccepted(ctx context.Context, f *friendship.Friendship) {
	if s.notifications == nil {
		return
	}

	name := s.displayName(ctx, f.RecipientID)
	_, err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID: f.RequestorID,
		Type:   notification.NotificationFriendAccepted,
		Title:  "Friend Request Accepted",
		Body:   fmt.Sprintf("%s accepted your friend request", name),
		Data:   map[string]any{"type": "friend_accepted", "friend_id": f.RecipientID.String()},
	})
	if err != nil {
		log.Printf("Friends: failed to create friend accepted notification: %v", err)
	}
}

// displayName falls back to the email, then "Someone", mirroring how the
// client labelled senders.
func (s *FriendService) displayName(ctx context.Context, userID uuid.UUID) string {
	var fullName, email string
	err := s.db.QueryRow(ctx, `SELECT full_name, email FROM profiles WHERE id = $1`, userID).Scan(&fullName, &email)
	if err != nil {
		return "Someone"
	}
	if fullName != "" {
		return fullName
	}
	if email != "" {
		return email
	}
	return "Someone"
}

func (s *FriendService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM profiles WHERE clerk_id = $1`, clerkID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, nil
}
