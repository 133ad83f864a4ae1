// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"time"

	"github.com/playforge/gamehub/internal/models"
	"github.com/playforge/gamehub/internal/repository"
)

const (
	// VerificationThreshold is the failure count after which a login
	// additionally requires a confirmed LOGIN_VERIFICATION code.
	VerificationThreshold = 3
	// LockThreshold is the failure count that locks the account.
	LockThreshold = 5
	// LockDuration is how long a lockout lasts.
	LockDuration = 30 * time.Minute
)

// AttemptStatus describes the login-security state of an account.
type AttemptStatus struct {
	CanAttempt        bool       `json:"can_attempt"`
	NeedsVerification bool       `json:"needs_verification"`
	FailedAttempts    int        `json:"failed_attempts"`
	IsLocked          bool       `json:"is_locked"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
}

// Guard tracks consecutive login failures and enforces progressive
// lockout: OPEN until 3 failures, then verification required, then locked
// for 30 minutes at 5.
type Guard struct {
	repo *repository.Repository
}

// NewGuard creates a Guard.
func NewGuard(repo *repository.Repository) *Guard {
	return &Guard{repo: repo}
}

// CheckAttempts loads the account for email and evaluates its state.
func (g *Guard) CheckAttempts(ctx context.Context, email string) (AttemptStatus, error) {
	user, err := g.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return AttemptStatus{}, err
	}
	return g.Check(ctx, user)
}

// Check evaluates the state of an already-loaded account. An elapsed
// lockout is cleared here, lazily: there is no background timer, so LOCKED
// reverts to OPEN only when the next attempt observes the expiry. After
// that reset the attempt counts as the first of a new window.
func (g *Guard) Check(ctx context.Context, user *models.User) (AttemptStatus, error) {
	now := time.Now()

	if user.LockedUntil != nil {
		if user.LockedUntil.After(now) {
			return AttemptStatus{
				FailedAttempts: user.LoginAttempts,
				IsLocked:       true,
				LockedUntil:    user.LockedUntil,
			}, nil
		}
		if err := g.repo.ResetLoginAttempts(ctx, user.ID); err != nil {
			return AttemptStatus{}, err
		}
		user.LoginAttempts = 0
		user.LockedUntil = nil
	}

	return AttemptStatus{
		CanAttempt:        true,
		NeedsVerification: user.LoginAttempts >= VerificationThreshold,
		FailedAttempts:    user.LoginAttempts,
	}, nil
}

// RecordResult updates the account after an authentication attempt. A
// success returns the state to OPEN. A failure increments the counter and,
// on reaching LockThreshold, locks the account; the counter is retained
// through the lock.
func (g *Guard) RecordResult(ctx context.Context, userID int64, success bool) (AttemptStatus, error) {
	if success {
		if err := g.repo.ResetLoginAttempts(ctx, userID); err != nil {
			return AttemptStatus{}, err
		}
		return AttemptStatus{CanAttempt: true}, nil
	}

	now := time.Now()
	attempts, lockedUntil, err := g.repo.RecordLoginFailure(ctx, userID, LockThreshold, now.Add(LockDuration))
	if err != nil {
		return AttemptStatus{}, err
	}

	st := AttemptStatus{
		FailedAttempts:    attempts,
		NeedsVerification: attempts >= VerificationThreshold,
	}
	if lockedUntil != nil && lockedUntil.After(now) {
		st.IsLocked = true
		st.LockedUntil = lockedUntil
	} else {
		st.CanAttempt = true
	}
	return st, nil
}
