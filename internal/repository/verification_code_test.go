// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/gamehub/internal/models"
	"github.com/playforge/gamehub/internal/repository"
	"github.com/playforge/gamehub/internal/testutil"
)

func newCode(email string, typ models.CodeType, code string) *models.VerificationCode {
	now := time.Now()
	return &models.VerificationCode{
		ID:        uuid.NewString(),
		Email:     email,
		Code:      code,
		Type:      typ,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
	}
}

func TestCreateVerificationCodeInvalidatesPrevious(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first := newCode("alice@example.com", models.CodeTypeEmailVerification, "111111")
	require.NoError(t, repo.CreateVerificationCode(ctx, first))

	second := newCode("alice@example.com", models.CodeTypeEmailVerification, "222222")
	second.CreatedAt = second.CreatedAt.Add(time.Second)
	require.NoError(t, repo.CreateVerificationCode(ctx, second))

	// Only one live row per (email, type) may remain.
	var live int
	require.NoError(t, repo.DB().Get(&live,
		`SELECT COUNT(*) FROM verification_codes WHERE email = ? AND type = ? AND used = 0`,
		"alice@example.com", models.CodeTypeEmailVerification))
	assert.Equal(t, 1, live)

	_, err := repo.ConsumeVerificationCode(ctx, "alice@example.com", "111111", models.CodeTypeEmailVerification, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateVerificationCodeDifferentTypesCoexist(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateVerificationCode(ctx,
		newCode("alice@example.com", models.CodeTypeEmailVerification, "111111")))
	require.NoError(t, repo.CreateVerificationCode(ctx,
		newCode("alice@example.com", models.CodeTypePasswordReset, "222222")))

	var live int
	require.NoError(t, repo.DB().Get(&live,
		`SELECT COUNT(*) FROM verification_codes WHERE email = ? AND used = 0`,
		"alice@example.com"))
	assert.Equal(t, 2, live)
}

func TestLatestVerificationCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first := newCode("alice@example.com", models.CodeTypeEmailVerification, "111111")
	first.CreatedAt = first.CreatedAt.Add(-time.Minute)
	require.NoError(t, repo.CreateVerificationCode(ctx, first))

	second := newCode("alice@example.com", models.CodeTypeEmailVerification, "222222")
	require.NoError(t, repo.CreateVerificationCode(ctx, second))

	latest, err := repo.LatestVerificationCode(ctx, "alice@example.com", models.CodeTypeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = repo.LatestVerificationCode(ctx, "nobody@example.com", models.CodeTypeEmailVerification)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCountVerificationCodesSince(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	old := newCode("alice@example.com", models.CodeTypeEmailVerification, "111111")
	old.CreatedAt = old.CreatedAt.Add(-2 * time.Hour)
	require.NoError(t, repo.CreateVerificationCode(ctx, old))

	fresh := newCode("alice@example.com", models.CodeTypeEmailVerification, "222222")
	require.NoError(t, repo.CreateVerificationCode(ctx, fresh))

	count, err := repo.CountVerificationCodesSince(ctx, "alice@example.com",
		models.CodeTypeEmailVerification, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count, "superseded codes still count toward the window")
}

func TestConsumeVerificationCodeOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	code := newCode("alice@example.com", models.CodeTypeEmailVerification, "111111")
	require.NoError(t, repo.CreateVerificationCode(ctx, code))

	consumed, err := repo.ConsumeVerificationCode(ctx, "alice@example.com", "111111",
		models.CodeTypeEmailVerification, time.Now())
	require.NoError(t, err)
	assert.Equal(t, code.ID, consumed.ID)
	assert.True(t, consumed.Used)

	_, err = repo.ConsumeVerificationCode(ctx, "alice@example.com", "111111",
		models.CodeTypeEmailVerification, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConsumeVerificationCodeExpired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	code := newCode("alice@example.com", models.CodeTypeEmailVerification, "111111")
	code.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.CreateVerificationCode(ctx, code))

	_, err := repo.ConsumeVerificationCode(ctx, "alice@example.com", "111111",
		models.CodeTypeEmailVerification, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteStaleVerificationCodes(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	expired := newCode("a@example.com", models.CodeTypeEmailVerification, "111111")
	expired.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, repo.CreateVerificationCode(ctx, expired))

	oldUsed := newCode("b@example.com", models.CodeTypeEmailVerification, "222222")
	oldUsed.CreatedAt = now.Add(-48 * time.Hour)
	require.NoError(t, repo.CreateVerificationCode(ctx, oldUsed))
	_, err := repo.ConsumeVerificationCode(ctx, "b@example.com", "222222",
		models.CodeTypeEmailVerification, now)
	require.NoError(t, err)

	kept := newCode("c@example.com", models.CodeTypeEmailVerification, "333333")
	require.NoError(t, repo.CreateVerificationCode(ctx, kept))

	removed, err := repo.DeleteStaleVerificationCodes(ctx, now, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	latest, err := repo.LatestVerificationCode(ctx, "c@example.com", models.CodeTypeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, kept.ID, latest.ID)
}
