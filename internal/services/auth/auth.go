// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

// Package auth implements credentials, login-attempt tracking with
// progressive lockout, and the login/register/reset flows built on them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playforge/gamehub/internal/models"
	"github.com/playforge/gamehub/internal/repository"
	"github.com/playforge/gamehub/internal/services/verification"
)

// ErrInvalidCredentials is returned for a wrong password or code.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrVerificationRequired is returned when a login needs a confirmed
// LOGIN_VERIFICATION code and none was supplied.
var ErrVerificationRequired = errors.New("login verification code required")

// LockoutError rejects an attempt against a locked account.
type LockoutError struct {
	LockedUntil time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked until %s", e.LockedUntil.Format(time.RFC3339))
}

// RetryAfter returns the remaining lock time.
func (e *LockoutError) RetryAfter() time.Duration {
	return time.Until(e.LockedUntil)
}

// Service ties the guard, verification codes and token issuance into the
// exposed authentication operations.
type Service struct {
	repo  *repository.Repository
	guard *Guard
	codes *verification.Service
	token *TokenIssuer
}

// NewService creates a Service.
func NewService(repo *repository.Repository, guard *Guard, codes *verification.Service, token *TokenIssuer) *Service {
	return &Service{repo: repo, guard: guard, codes: codes, token: token}
}

// LoginInput carries the credentials for one attempt.
type LoginInput struct {
	Email            string
	Password         string
	VerificationCode string
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Login authenticates an account. Locked accounts are rejected up front,
// even with a correct password. After VerificationThreshold failures a
// confirmed LOGIN_VERIFICATION code is required alongside the password.
// Any failure is recorded against the account; success resets it to OPEN.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	st, err := s.guard.Check(ctx, user)
	if err != nil {
		return nil, err
	}
	if st.IsLocked {
		return nil, &LockoutError{LockedUntil: *st.LockedUntil}
	}

	if !CheckPassword(user.PasswordHash, in.Password) {
		return nil, s.recordFailure(ctx, user.ID, ErrInvalidCredentials)
	}

	if st.NeedsVerification {
		if in.VerificationCode == "" {
			return nil, ErrVerificationRequired
		}
		if _, err := s.codes.Verify(ctx, in.Email, in.VerificationCode, models.CodeTypeLoginVerification); err != nil {
			if errors.Is(err, verification.ErrInvalidOrExpired) {
				return nil, s.recordFailure(ctx, user.ID, ErrInvalidCredentials)
			}
			return nil, err
		}
	}

	if _, err := s.guard.RecordResult(ctx, user.ID, true); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.token.Issue(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// recordFailure books a failed attempt and upgrades the returned error to
// a LockoutError when this failure crossed the lock threshold.
func (s *Service) recordFailure(ctx context.Context, userID int64, cause error) error {
	st, err := s.guard.RecordResult(ctx, userID, false)
	if err != nil {
		return err
	}
	if st.IsLocked {
		return &LockoutError{LockedUntil: *st.LockedUntil}
	}
	return cause
}

// Register creates an account and issues an EMAIL_VERIFICATION code. Code
// issuance is best-effort; the account exists either way and the client
// can request a new code.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	if _, err := s.codes.Generate(ctx, email, models.CodeTypeEmailVerification, &user.ID); err != nil {
		slog.Warn("issuing registration verification code failed",
			"email", email,
			"error", err,
		)
	}

	return user, nil
}

// ConfirmEmail consumes an EMAIL_VERIFICATION code and marks the account's
// email address verified.
func (s *Service) ConfirmEmail(ctx context.Context, email, code string) error {
	vc, err := s.codes.Verify(ctx, email, code, models.CodeTypeEmailVerification)
	if err != nil {
		return err
	}

	userID, err := s.resolveUserID(ctx, vc)
	if err != nil {
		return err
	}
	return s.repo.MarkEmailVerified(ctx, userID)
}

// ResetPassword consumes a PASSWORD_RESET code and stores the new
// password. The new password is validated before the code is spent.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	vc, err := s.codes.Verify(ctx, email, code, models.CodeTypePasswordReset)
	if err != nil {
		return err
	}

	userID, err := s.resolveUserID(ctx, vc)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserPassword(ctx, userID, hash)
}

// RequestCode issues a code of the given type for an existing account.
func (s *Service) RequestCode(ctx context.Context, email string, typ models.CodeType) (*models.VerificationCode, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.codes.Generate(ctx, email, typ, &user.ID)
}

func (s *Service) resolveUserID(ctx context.Context, vc *models.VerificationCode) (int64, error) {
	if vc.UserID != nil {
		return *vc.UserID, nil
	}
	user, err := s.repo.GetUserByEmail(ctx, vc.Email)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}
