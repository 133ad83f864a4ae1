// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/playforge/gamehub/internal/models"
)

// CreateUser creates a new account with the given bcrypt hash.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`INSERT INTO users (email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING *`,
		email, passwordHash, now, now)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// MarkEmailVerified flags the user's email address as confirmed.
func (r *Repository) MarkEmailVerified(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}

// UpdateUserPassword stores a new password hash and clears any lockout
// state, since a completed reset proves control of the mailbox.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = ?, login_attempts = 0, locked_until = NULL, updated_at = ?
		 WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	return err
}

// RecordLoginFailure increments the failure counter and, when the new count
// reaches lockThreshold, sets locked_until. Increment and lock decision
// happen in a single statement so concurrent failures cannot lose updates.
func (r *Repository) RecordLoginFailure(ctx context.Context, id int64, lockThreshold int, lockedUntil time.Time) (int, *time.Time, error) {
	var (
		attempts int
		locked   *time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET login_attempts = login_attempts + 1,
		     locked_until = CASE WHEN login_attempts + 1 >= ? THEN ? ELSE locked_until END,
		     updated_at = ?
		 WHERE id = ?
		 RETURNING login_attempts, locked_until`,
		lockThreshold, lockedUntil.UTC(), time.Now().UTC(), id).Scan(&attempts, &locked)
	if err != nil {
		return 0, nil, wrapError(err)
	}
	return attempts, locked, nil
}

// ResetLoginAttempts returns the account security state to open.
func (r *Repository) ResetLoginAttempts(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET login_attempts = 0, locked_until = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}
