// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/playforge/gamehub/internal/models"
)

// CreateVerificationCode persists a new code, invalidating any still-live
// code for the same (email, type) in the same transaction. The partial
// unique index on (email, type) WHERE used = 0 rejects interleaved inserts
// that would otherwise leave two live codes.
func (r *Repository) CreateVerificationCode(ctx context.Context, vc *models.VerificationCode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE verification_codes SET used = 1 WHERE email = ? AND type = ? AND used = 0`,
		vc.Email, vc.Type); err != nil {
		return fmt.Errorf("invalidating previous codes: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO verification_codes (id, email, code, type, expires_at, used, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		vc.ID, vc.Email, vc.Code, vc.Type, vc.ExpiresAt.UTC(), vc.UserID, vc.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("inserting code: %w", wrapError(err))
	}

	return tx.Commit()
}

// LatestVerificationCode returns the most recently issued code for
// (email, type) regardless of its state.
func (r *Repository) LatestVerificationCode(ctx context.Context, email string, typ models.CodeType) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	err := r.db.GetContext(ctx, &vc,
		`SELECT * FROM verification_codes
		 WHERE email = ? AND type = ?
		 ORDER BY created_at DESC LIMIT 1`,
		email, typ)
	if err != nil {
		return nil, wrapError(err)
	}
	return &vc, nil
}

// CountVerificationCodesSince counts codes issued for (email, type) at or
// after the given instant.
func (r *Repository) CountVerificationCodesSince(ctx context.Context, email string, typ models.CodeType, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM verification_codes
		 WHERE email = ? AND type = ? AND created_at >= ?`,
		email, typ, since.UTC())
	return count, err
}

// ConsumeVerificationCode atomically marks the newest live code matching
// (email, code, type) as used and returns it. Returns ErrNotFound when no
// such code exists, is already used, or has expired; a repeat call with the
// same digits therefore fails.
func (r *Repository) ConsumeVerificationCode(ctx context.Context, email, code string, typ models.CodeType, now time.Time) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	err := r.db.GetContext(ctx, &vc,
		`UPDATE verification_codes SET used = 1
		 WHERE id = (
		     SELECT id FROM verification_codes
		     WHERE email = ? AND code = ? AND type = ? AND used = 0 AND expires_at > ?
		     ORDER BY created_at DESC LIMIT 1)
		 RETURNING *`,
		email, code, typ, now.UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return &vc, nil
}

// DeleteStaleVerificationCodes purges expired codes and used codes older
// than usedRetention. Returns the number of rows removed.
func (r *Repository) DeleteStaleVerificationCodes(ctx context.Context, now time.Time, usedRetention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes
		 WHERE expires_at < ? OR (used = 1 AND created_at < ?)`,
		now.UTC(), now.Add(-usedRetention).UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
