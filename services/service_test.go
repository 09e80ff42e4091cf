package services

import (
	"context"
	"os"
	"testing"
	"time"

	"pinpointAPI/db"
	"pinpointAPI/internal/types/profile"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// newTestPool connects to the database named by TEST_DATABASE_URL, ensures
// the schema and wipes all tables. Tests are skipped when the variable is
// unset so the unit suite runs without infrastructure.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.EnsureSchema(ctx, pool))

	_, err = pool.Exec(ctx, `
		TRUNCATE notifications, device_tokens, location_shares, user_locations, friendships, profiles CASCADE
	`)
	require.NoError(t, err)

	return pool
}

// createTestProfile inserts a random profile and returns it.
func createTestProfile(t *testing.T, pool *pgxpool.Pool) *profile.Profile {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := NewProfileService(pool).CreateProfile(ctx, &profile.CreateProfileRequest{
		ClerkID:  "user_" + gofakeit.UUID(),
		Email:    gofakeit.Email(),
		FullName: gofakeit.Name(),
	})
	require.NoError(t, err)
	return p
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
