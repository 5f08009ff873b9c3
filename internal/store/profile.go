package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/retroshop/apiserver/types"
)

// ProfileRepository handles persistence for profiles.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (types.Profile, error) {
	const query = `
		SELECT id, full_name, role, created_at, updated_at
		FROM profiles
		WHERE id = $1`
	var profile types.Profile
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, err
	}
	return profile, nil
}

// Create inserts a profile row. The ID must be the owning user's ID.
func (r *ProfileRepository) Create(ctx context.Context, profile types.Profile) (types.Profile, error) {
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if profile.Role == "" {
		profile.Role = types.RoleUser
	}

	const query = `
		INSERT INTO profiles (id, full_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		profile.ID,
		profile.FullName,
		profile.Role,
		profile.CreatedAt,
		profile.UpdatedAt,
	); err != nil {
		return types.Profile{}, err
	}
	return profile, nil
}

// CountByRole returns how many profiles carry the given role.
func (r *ProfileRepository) CountByRole(ctx context.Context, role string) (int, error) {
	const query = `SELECT COUNT(1) FROM profiles WHERE role = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, role).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// EnsureTable idempotently creates the profiles table and its role check.
// Mirrors the create-profiles-table administrative endpoint.
func (r *ProfileRepository) EnsureTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
			full_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}
