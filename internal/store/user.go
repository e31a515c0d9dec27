package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tersedak-care/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, now: utcNow}
}

// GetByEmail returns the full user row, password hash included.
// Only the credential verifier should need it.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, name, email, password_hash, avatar_url, created_at, updated_at
		FROM users
		WHERE email = ?`
	var user types.User
	if err := r.db.GetContext(ctx, &user, r.db.Rebind(query), email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// GetByID returns the public profile of a user.
func (r *UserRepository) GetByID(ctx context.Context, id int) (types.UserProfile, error) {
	const query = `
		SELECT id, name, email, avatar_url
		FROM users
		WHERE id = ?`
	var profile types.UserProfile
	if err := r.db.GetContext(ctx, &profile, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UserProfile{}, ErrNotFound
		}
		return types.UserProfile{}, err
	}
	return profile, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT COUNT(1) FROM users WHERE email = ?`
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), email); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new user. A duplicate email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, name, email, passwordHash string) (types.UserProfile, error) {
	now := r.now()

	const query = `
		INSERT INTO users (name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`
	profile := types.UserProfile{Name: name, Email: email}
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(query), name, email, passwordHash, now, now).Scan(&profile.ID); err != nil {
		if isUniqueViolation(err) {
			return types.UserProfile{}, ErrConflict
		}
		return types.UserProfile{}, fmt.Errorf("insert user: %w", err)
	}
	return profile, nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id int, avatarURL string) (types.UserProfile, error) {
	const query = `
		UPDATE users
		SET avatar_url = ?,
			updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), avatarURL, r.now(), id)
	if err != nil {
		return types.UserProfile{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.UserProfile{}, err
	}
	if affected == 0 {
		return types.UserProfile{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
