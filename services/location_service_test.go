package services

import (
	"testing"

	"pinpointAPI/internal/types/friendship"
	"pinpointAPI/internal/types/location"
	"pinpointAPI/internal/types/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFriends walks the request/accept handshake for two profiles.
func makeFriends(t *testing.T, friends *FriendService, requestor, recipient *profile.Profile) {
	t.Helper()
	ctx := testContext(t)

	_, err := friends.SendFriendRequest(ctx, requestor.ClerkID, recipient.ID)
	require.NoError(t, err)
	_, err = friends.UpdateFriendshipStatus(ctx, recipient.ClerkID, requestor.ID, friendship.StatusAccepted)
	require.NoError(t, err)
}

func TestUpdateMyLocationUpserts(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	svc := NewLocationService(pool, NewFriendService(pool, nil, nil), nil, nil)
	alice := createTestProfile(t, pool)

	first, err := svc.UpdateMyLocation(ctx, alice.ClerkID, &location.UpdateLocationRequest{
		Latitude:     37.0,
		Longitude:    -122.0,
		LocationName: "Home",
	})
	require.NoError(t, err)
	assert.Equal(t, "Home", first.LocationName)

	second, err := svc.UpdateMyLocation(ctx, alice.ClerkID, &location.UpdateLocationRequest{
		Latitude:  40.7,
		Longitude: -74.0,
	})
	require.NoError(t, err)
	assert.Equal(t, location.DefaultName, second.LocationName)

	// Still a single row, holding the latest write.
	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_locations WHERE user_id = $1`, alice.ID,
	).Scan(&count))
	assert.Equal(t, 1, count)

	saved, err := svc.GetSavedUserLocation(ctx, alice.ClerkID)
	require.NoError(t, err)
	assert.Equal(t, 40.7, saved.Latitude)
	assert.Equal(t, -74.0, saved.Longitude)
}

func TestUpdateMyLocationRejectsBadCoordinates(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	svc := NewLocationService(pool, NewFriendService(pool, nil, nil), nil, nil)
	alice := createTestProfile(t, pool)

	_, err := svc.UpdateMyLocation(ctx, alice.ClerkID, &location.UpdateLocationRequest{
		Latitude:  91.0,
		Longitude: 0,
	})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = svc.UpdateMyLocation(ctx, alice.ClerkID, &location.UpdateLocationRequest{
		Latitude:  0,
		Longitude: -181.0,
	})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestGetSavedUserLocationWhenUnset(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	svc := NewLocationService(pool, NewFriendService(pool, nil, nil), nil, nil)
	alice := createTestProfile(t, pool)

	_, err := svc.GetSavedUserLocation(ctx, alice.ClerkID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareRequiresSavedLocation(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	friends := NewFriendService(pool, nil, nil)
	svc := NewLocationService(pool, friends, nil, nil)
	alice := createTestProfile(t, pool)
	bob := createTestProfile(t, pool)

	makeFriends(t, friends, alice, bob)

	_, err := svc.ShareLocationWithFriend(ctx, alice.ClerkID, bob.ID)
	assert.ErrorIs(t, err, ErrNoLocation)
}

func TestShareRequiresAcceptedFriendship(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	friends := NewFriendService(pool, nil, nil)
	svc := NewLocationService(pool, friends, nil, nil)
	alice := createTestProfile(t, pool)
	bob := createTestProfile(t, pool)

	_, err := svc.UpdateMyLocation(ctx, alice.ClerkID, &location.UpdateLocationRequest{
		Latitude: 37.0, Longitude: -122.0,
	})
	require.NoError(t, err)

	// No friendship at all.
	_, err = svc.ShareLocationWithFriend(ctx, alice.ClerkID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFriends)

	// A pending request is not enough.
	_, err = friends.SendFriendRequest(ctx, alice.ClerkID, bob.ID)
	require.NoError(t, err)
	_, err = svc.ShareLocationWithFriend(ctx, alice.ClerkID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFriends)
}

func TestShareLocationFlow(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	friends := NewFriendService(pool, nil, nil)
	svc := NewLocationService(pool, friends, nil, nil)
	alice := createTestProfile(t, pool)
	bob := createTestProfile(t, pool)

	makeFriends(t, friends, alice, bob)

	_, err := svc.UpdateMyLocation(ctx, alice.ClerkID, &location.UpdateLocationRequest{
		Latitude: 37.0, Longitude: -122.0, LocationName: "Office",
	})
	require.NoError(t, err)

	share, err := svc.ShareLocationWithFriend(ctx, alice.ClerkID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, share.SenderID)
	assert.Equal(t, bob.ID, share.ReceiverID)

	// Sharing twice returns the original share.
	again, err := svc.ShareLocationWithFriend(ctx, alice.ClerkID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, share.ID, again.ID)

	// Bob sees Alice's location with her profile attached.
	views, err := svc.GetLocationsSharedWithMe(ctx, bob.ClerkID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, alice.ID, views[0].SenderID)
	assert.Equal(t, 37.0, views[0].Latitude)
	assert.Equal(t, -122.0, views[0].Longitude)
	assert.Equal(t, "Office", views[0].LocationName)
	assert.Equal(t, alice.Email, views[0].SenderEmail)

	// But not the other way round.
	views, err = svc.GetLocationsSharedWithMe(ctx, alice.ClerkID)
	require.NoError(t, err)
	assert.Empty(t, views)

	receivers, err := svc.GetFriendsImSharingWith(ctx, alice.ClerkID)
	require.NoError(t, err)
	require.Len(t, receivers, 1)
	assert.Equal(t, bob.ID, receivers[0])
}

func TestStopSharing(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	friends := NewFriendService(pool, nil, nil)
	svc := NewLocationService(pool, friends, nil, nil)
	alice := createTestProfile(t, pool)
	bob := createTestProfile(t, pool)

	makeFriends(t, friends, alice, bob)

	_, err := svc.UpdateMyLocation(ctx, alice.ClerkID, &location.UpdateLocationRequest{
		Latitude: 37.0, Longitude: -122.0,
	})
	require.NoError(t, err)

	_, err = svc.ShareLocationWithFriend(ctx, alice.ClerkID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, svc.StopSharingWithFriend(ctx, alice.ClerkID, bob.ID))

	views, err := svc.GetLocationsSharedWithMe(ctx, bob.ClerkID)
	require.NoError(t, err)
	assert.Empty(t, views)

	// Revoking an absent share is fine.
	require.NoError(t, svc.StopSharingWithFriend(ctx, alice.ClerkID, bob.ID))
}

func TestShareCreatesNotification(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	notifications := NewNotificationService(pool)
	friends := NewFriendService(pool, nil, nil)
	svc := NewLocationService(pool, friends, notifications, nil)
	alice := createTestProfile(t, pool)
	bob := createTestProfile(t, pool)

	makeFriends(t, friends, alice, bob)

	_, err := svc.UpdateMyLocation(ctx, alice.ClerkID, &location.UpdateLocationRequest{
		Latitude: 37.0, Longitude: -122.0,
	})
	require.NoError(t, err)

	_, err = svc.ShareLocationWithFriend(ctx, alice.ClerkID, bob.ID)
	require.NoError(t, err)

	resp, err := notifications.GetNotifications(ctx, bob.ClerkID, 1, 20, false)
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "Location Shared 📍", resp.Notifications[0].Title)
	assert.Contains(t, resp.Notifications[0].Body, alice.FullName)
}
