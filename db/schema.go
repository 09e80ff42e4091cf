package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		clerk_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS profiles_email_idx ON profiles (LOWER(email))`,
	`CREATE TABLE IF NOT EXISTS friendships (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		requestor_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		recipient_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'accepted', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (requestor_id <> recipient_id),
		UNIQUE (requestor_id, recipient_id)
	)`,
	// one row per unordered pair, whichever side asked first
	`CREATE UNIQUE INDEX IF NOT EXISTS friendships_pair_idx
		ON friendships (LEAST(requestor_id, recipient_id), GREATEST(requestor_id, recipient_id))`,
	`CREATE TABLE IF NOT EXISTS user_locations (
		user_id UUID PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		location_name TEXT NOT NULL DEFAULT 'Shared Location',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS location_shares (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		sender_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		receiver_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (sender_id <> receiver_id),
		UNIQUE (sender_id, receiver_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS device_tokens (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		platform TEXT NOT NULL DEFAULT 'android',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables the service needs. Statements are
// idempotent so this is safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
