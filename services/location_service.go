package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pinpointAPI/internal/events"
	"pinpointAPI/internal/types/location"
	"pinpointAPI/internal/types/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LocationService struct {
	db            *pgxpool.Pool
	friends       *FriendService
	notifications *NotificationService
	feed          *FeedService
}

func NewLocationService(db *pgxpool.Pool, friends *FriendService, notifications *NotificationService, feed *FeedService) *LocationService {
	return &LocationService{
		db:            db,
		friends:       friends,
		notifications: notifications,
		feed:          feed,
	}
}

// UpdateMyLocation pins the user's single shareable location. The write is
// a single conditional insert, so concurrent calls cannot produce duplicate
// rows; last writer wins.
func (s *LocationService) UpdateMyLocation(ctx context.Context, clerkID string, req *location.UpdateLocationRequest) (*location.UserLocation, error) {
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, ErrInvalidCoordinates
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	name := req.LocationName
	if name == "" {
		name = location.DefaultName
	}

	query := `
	INSERT INTO user_locations (user_id, latitude, longitude, location_name, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (user_id) DO UPDATE SET
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		location_name = EXCLUDED.location_name,
		updated_at = NOW()
	RETURNING user_id, latitude, longitude, location_name, updated_at
	`

	loc := &location.UserLocation{}
	err = s.db.QueryRow(ctx, query, userID, req.Latitude, req.Longitude, name).Scan(
		&loc.UserID, &loc.Latitude, &loc.Longitude, &loc.LocationName, &loc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}

	// Everyone currently receiving this location sees the move.
	receivers, err := s.shareReceivers(ctx, userID)
	if err != nil {
		log.Printf("Locations: failed to load share receivers: %v", err)
	} else if s.feed != nil {
		recipients := append(receivers, userID)
		ev, err := events.NewChangeEvent(events.TableUserLocations, events.EventUpdate, loc, recipients...)
		if err != nil {
			log.Printf("Locations: failed to build change event: %v", err)
		} else {
			s.feed.Publish(ctx, ev)
		}
	}

	return loc, nil
}

// GetSavedUserLocation returns the user's pinned location, or ErrNotFound
// if they have never set one. The client uses it to seed the map instead of
// the device's live GPS fix.
func (s *LocationService) GetSavedUserLocation(ctx context.Context, clerkID string) (*location.UserLocation, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	loc := &location.UserLocation{}
	err = s.db.QueryRow(ctx,
		`SELECT user_id, latitude, longitude, location_name, updated_at FROM user_locations WHERE user_id = $1`,
		userID,
	).Scan(&loc.UserID, &loc.Latitude, &loc.Longitude, &loc.LocationName, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return loc, nil
}

// ShareLocationWithFriend grants friendID sight of the user's pinned
// location. Requires a pinned location and an accepted friendship. The
// insert is idempotent: repeating the call returns the existing share.
func (s *LocationService) ShareLocationWithFriend(ctx context.Context, clerkID string, friendID uuid.UUID) (*location.Share, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var hasLocation bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_locations WHERE user_id = $1)`, userID,
	).Scan(&hasLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to check location: %w", err)
	}
	if !hasLocation {
		return nil, ErrNoLocation
	}

	ok, err := s.friends.areFriends(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFriends
	}

	query := `
	INSERT INTO location_shares (id, sender_id, receiver_id, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (sender_id, receiver_id) DO NOTHING
	RETURNING id, sender_id, receiver_id, created_at
	`

	share := &location.Share{}
	err = s.db.QueryRow(ctx, query, uuid.New(), userID, friendID).Scan(
		&share.ID, &share.SenderID, &share.ReceiverID, &share.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict path: the share already existed. Return it unchanged.
			return s.getShare(ctx, userID, friendID)
		}
		return nil, fmt.Errorf("failed to share location: %w", err)
	}

	if s.feed != nil {
		ev, err := events.NewChangeEvent(events.TableLocationShares, events.EventInsert, share, userID, friendID)
		if err != nil {
			log.Printf("Locations: failed to build change event: %v", err)
		} else {
			s.feed.Publish(ctx, ev)
		}
	}
	s.notifyLocationShared(ctx, share)

	return share, nil
}

func (s *LocationService) getShare(ctx context.Context, senderID, receiverID uuid.UUID) (*location.Share, error) {
	share := &location.Share{}
	err := s.db.QueryRow(ctx,
		`SELECT id, sender_id, receiver_id, created_at FROM location_shares WHERE sender_id = $1 AND receiver_id = $2`,
		senderID, receiverID,
	).Scan(&share.ID, &share.SenderID, &share.ReceiverID, &share.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return share, nil
}

// GetLocationsSharedWithMe returns every location currently shared with the
// user, denormalized with the sender's profile. One JOIN instead of the
// shares -> locations -> profiles round trips the old client made.
func (s *LocationService) GetLocationsSharedWithMe(ctx context.Context, clerkID string) ([]location.SharedView, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT ul.user_id, ul.latitude, ul.longitude, ul.location_name, ul.updated_at,
	       p.email, p.full_name
	FROM location_shares ls
	JOIN user_locations ul ON ul.user_id = ls.sender_id
	JOIN profiles p ON p.id = ls.sender_id
	WHERE ls.receiver_id = $1
	ORDER BY ul.updated_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared locations: %w", err)
	}
	defer rows.Close()

	views := []location.SharedView{}
	for rows.Next() {
		var v location.SharedView
		if err := rows.Scan(&v.SenderID, &v.Latitude, &v.Longitude, &v.LocationName, &v.UpdatedAt, &v.SenderEmail, &v.SenderName); err != nil {
			return nil, fmt.Errorf("failed to scan shared location: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// StopSharingWithFriend revokes the user's share to friendID. Revoking a
// share that does not exist is not an error.
func (s *LocationService) StopSharingWithFriend(ctx context.Context, clerkID string, friendID uuid.UUID) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM location_shares WHERE sender_id = $1 AND receiver_id = $2`,
		userID, friendID,
	)
	if err != nil {
		return fmt.Errorf("failed to stop sharing: %w", err)
	}

	if result.RowsAffected() > 0 && s.feed != nil {
		ev, err := events.NewChangeEvent(events.TableLocationShares, events.EventDelete, map[string]any{
			"sender_id":   userID,
			"receiver_id": friendID,
		}, userID, friendID)
		if err != nil {
			log.Printf("Locations: failed to build change event: %v", err)
		} else {
			s.feed.Publish(ctx, ev)
		}
	}

	return nil
}

// GetFriendsImSharingWith lists the receiver ids of the user's active shares.
func (s *LocationService) GetFriendsImSharingWith(ctx context.Context, clerkID string) ([]uuid.UUID, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.shareReceivers(ctx, userID)
}

func (s *LocationService) shareReceivers(ctx context.Context, senderID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT receiver_id FROM location_shares WHERE sender_id = $1`, senderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get share receivers: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *LocationService) notifyLocationShared(ctx context.Context, share *location.Share) {
	if s.notifications == nil {
		return
	}

	name := s.friends.displayName(ctx, share.SenderID)
	_, err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID: share.ReceiverID,
		Type:   notification.NotificationLocationShared,
		Title:  "Location Shared 📍",
		Body:   fmt.Sprintf("%s shared their location with you", name),
		Data:   map[string]any{"type": "location_shared", "sender_id": share.SenderID.String()},
	})
	if err != nil {
		log.Printf("Locations: failed to create share notification: %v", err)
	}
}

func (s *LocationService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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
