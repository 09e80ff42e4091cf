package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pinpointAPI/internal/types/profile"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileService struct {
	db *pgxpool.Pool
}

func NewProfileService(db *pgxpool.Pool) *ProfileService {
	return &ProfileService{db: db}
}

const profileColumns = `id, clerk_id, email, full_name, avatar_url, created_at, updated_at`

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	p := &profile.Profile{}
	err := row.Scan(
		&p.ID,
		&p.ClerkID,
		&p.Email,
		&p.FullName,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProfile mirrors a newly registered account into the profiles table.
// Called from the Clerk webhook, the same job the hosted backend's sign-up
// trigger used to do.
func (s *ProfileService) CreateProfile(ctx context.Context, req *profile.CreateProfileRequest) (*profile.Profile, error) {
	query := `
	INSERT INTO profiles (id, clerk_id, email, full_name, avatar_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
	ON CONFLICT (clerk_id) DO UPDATE SET
		email = EXCLUDED.email,
		full_name = EXCLUDED.full_name,
		avatar_url = EXCLUDED.avatar_url,
		updated_at = NOW()
	RETURNING ` + profileColumns

	now := time.Now()
	p, err := scanProfile(s.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		req.ClerkID,
		req.Email,
		req.FullName,
		req.AvatarURL,
		now,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return p, nil
}

func (s *ProfileService) GetProfileByClerkID(ctx context.Context, clerkID string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE clerk_id = $1`

	p, err := scanProfile(s.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// ResolveUserID maps a Clerk subject to our internal profile id.
func (s *ProfileService) ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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

// FindProfileByEmail does a case-insensitive lookup after trimming
// whitespace. Email uniqueness is not guaranteed upstream, so the oldest
// matching profile wins.
func (s *ProfileService) FindProfileByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, ErrNotFound
	}

	query := `
	SELECT ` + profileColumns + `
	FROM profiles
	WHERE LOWER(email) = $1
	ORDER BY created_at
	LIMIT 1
	`

	p, err := scanProfile(s.db.QueryRow(ctx, query, normalized))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to search profile: %w", err)
	}

	return p, nil
}

func (s *ProfileService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *profile.UpdateProfileRequest) (*profile.Profile, error) {
	query := `
	UPDATE profiles
	SET
		full_name = COALESCE(NULLIF($2, ''), full_name),
		avatar_url = COALESCE(NULLIF($3, ''), avatar_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING ` + profileColumns

	p, err := scanProfile(s.db.QueryRow(ctx, query, clerkID, req.FullName, req.AvatarURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return p, nil
}

func (s *ProfileService) DeleteProfileByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		log.Printf("DeleteProfile: no profile for clerk_id %s", clerkID)
		return ErrNotFound
	}

	return nil
}
