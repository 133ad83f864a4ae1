// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package models

import "time"

// CodeType is the purpose a verification code was issued for.
type CodeType string

const (
	CodeTypeEmailVerification CodeType = "EMAIL_VERIFICATION"
	CodeTypePasswordReset     CodeType = "PASSWORD_RESET"
	CodeTypeLoginVerification CodeType = "LOGIN_VERIFICATION"
)

// Valid reports whether t is a known code type.
func (t CodeType) Valid() bool {
	switch t {
	case CodeTypeEmailVerification, CodeTypePasswordReset, CodeTypeLoginVerification:
		return true
	}
	return false
}

// TTL returns how long a freshly issued code of this type stays valid.
func (t CodeType) TTL() time.Duration {
	switch t {
	case CodeTypePasswordReset:
		return 15 * time.Minute
	case CodeTypeLoginVerification:
		return 10 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// VerificationCode is a single-use 6-digit code bound to (email, type).
// At most one row per (email, type) may be unused and unexpired at a time.
type VerificationCode struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"-"`
	Type      CodeType  `db:"type" json:"type"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Used      bool      `db:"used" json:"used"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Live reports whether the code is still consumable at now.
func (v *VerificationCode) Live(now time.Time) bool {
	return !v.Used && v.ExpiresAt.After(now)
}
