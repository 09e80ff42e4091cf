package services

import (
	"strings"
	"testing"

	"pinpointAPI/internal/types/profile"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProfileIsIdempotentPerClerkID(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	svc := NewProfileService(pool)
	clerkID := "user_" + gofakeit.UUID()

	first, err := svc.CreateProfile(ctx, &profile.CreateProfileRequest{
		ClerkID:  clerkID,
		Email:    "alice@example.com",
		FullName: "Alice",
	})
	require.NoError(t, err)

	// A second webhook delivery for the same user updates in place.
	second, err := svc.CreateProfile(ctx, &profile.CreateProfileRequest{
		ClerkID:  clerkID,
		Email:    "alice@new.example.com",
		FullName: "Alice A.",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice@new.example.com", second.Email)
	assert.Equal(t, "Alice A.", second.FullName)
}

func TestFindProfileByEmailIsCaseInsensitive(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	svc := NewProfileService(pool)
	alice := createTestProfile(t, pool)

	found, err := svc.FindProfileByEmail(ctx, "  "+strings.ToUpper(alice.Email)+"  ")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = svc.FindProfileByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.FindProfileByEmail(ctx, "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileKeepsUnsetFields(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	svc := NewProfileService(pool)
	alice := createTestProfile(t, pool)

	updated, err := svc.UpdateProfileByClerkID(ctx, alice.ClerkID, &profile.UpdateProfileRequest{
		AvatarURL: "https://img.example.com/alice.png",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.FullName, updated.FullName)
	require.NotNil(t, updated.AvatarURL)
	assert.Equal(t, "https://img.example.com/alice.png", *updated.AvatarURL)
}

func TestDeleteProfile(t *testing.T) {
	pool := newTestPool(t)
	ctx := testContext(t)

	svc := NewProfileService(pool)
	alice := createTestProfile(t, pool)

	require.NoError(t, svc.DeleteProfileByClerkID(ctx, alice.ClerkID))

	_, err := svc.GetProfileByClerkID(ctx, alice.ClerkID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.DeleteProfileByClerkID(ctx, alice.ClerkID), ErrNotFound)
}
