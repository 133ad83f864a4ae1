// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

// Package verification issues and consumes one-time 6-digit codes.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/gamehub/internal/models"
	"github.com/playforge/gamehub/internal/repository"
	"github.com/playforge/gamehub/internal/services/email"
)

const (
	// CodeLength is the number of digits in a code.
	CodeLength = 6
	// Cooldown is the minimum gap between two issuances for one (email, type).
	Cooldown = time.Minute
	// DailyLimit caps issuances per (email, type) since local midnight.
	DailyLimit = 10
	// UsedRetention is how long consumed codes are kept before cleanup.
	UsedRetention = 24 * time.Hour

	sendTimeout = 10 * time.Second
)

// ErrInvalidOrExpired is returned when no live code matches a Verify call.
var ErrInvalidOrExpired = errors.New("invalid or expired code")

// CooldownError rejects an issuance inside the cooldown window.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("a code was issued recently, retry in %s", e.RetryAfter.Round(time.Second))
}

// DailyLimitError rejects an issuance past the daily cap.
type DailyLimitError struct {
	RetryAfter time.Duration
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("daily code limit reached, retry in %s", e.RetryAfter.Round(time.Second))
}

// Service generates, delivers and consumes verification codes.
type Service struct {
	repo   *repository.Repository
	sender email.Sender
}

// NewService creates a Service.
func NewService(repo *repository.Repository, sender email.Sender) *Service {
	return &Service{repo: repo, sender: sender}
}

// Generate issues a new code for (email, type), invalidating any prior live
// code for the pair. The code is persisted first and then delivered
// best-effort: a delivery failure is logged but the call still succeeds and
// the code stays usable.
func (s *Service) Generate(ctx context.Context, emailAddr string, typ models.CodeType, userID *int64) (*models.VerificationCode, error) {
	now := time.Now()

	latest, err := s.repo.LatestVerificationCode(ctx, emailAddr, typ)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if latest != nil {
		if wait := Cooldown - now.Sub(latest.CreatedAt); wait > 0 {
			return nil, &CooldownError{RetryAfter: wait}
		}
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.repo.CountVerificationCodesSince(ctx, emailAddr, typ, midnight)
	if err != nil {
		return nil, err
	}
	if count >= DailyLimit {
		return nil, &DailyLimitError{RetryAfter: midnight.AddDate(0, 0, 1).Sub(now)}
	}

	code, err := randomCode()
	if err != nil {
		return nil, err
	}

	vc := &models.VerificationCode{
		ID:        uuid.NewString(),
		Email:     emailAddr,
		Code:      code,
		Type:      typ,
		ExpiresAt: now.Add(typ.TTL()),
		UserID:    userID,
		CreatedAt: now,
	}
	if err := s.repo.CreateVerificationCode(ctx, vc); err != nil {
		return nil, err
	}

	// Delivery is detached from request cancellation: the code is already
	// persisted and must not be rolled back by a timed-out send.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()
	if err := s.sender.SendCode(sendCtx, emailAddr, code, typ); err != nil {
		slog.Warn("verification code delivery failed",
			"email", emailAddr,
			"type", typ,
			"error", err,
		)
	}

	return vc, nil
}

// Verify consumes the newest live code matching (email, code, type).
// Consumption is atomic, so a code verifies at most once; any mismatch,
// reuse or expiry yields ErrInvalidOrExpired without mutating state.
func (s *Service) Verify(ctx context.Context, emailAddr, code string, typ models.CodeType) (*models.VerificationCode, error) {
	vc, err := s.repo.ConsumeVerificationCode(ctx, emailAddr, code, typ, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOrExpired
		}
		return nil, err
	}
	return vc, nil
}

// Cleanup purges expired codes and consumed codes older than UsedRetention.
func (s *Service) Cleanup(ctx context.Context) error {
	removed, err := s.repo.DeleteStaleVerificationCodes(ctx, time.Now(), UsedRetention)
	if err != nil {
		return err
	}
	if removed > 0 {
		slog.Debug("purged stale verification codes", "removed", removed)
	}
	return nil
}

// randomCode returns a cryptographically random 6-digit numeric code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
