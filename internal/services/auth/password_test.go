// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/gamehub/internal/services/auth"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"too short", "seven77", true},
		{"minimum length", "eight888", false},
		{"maximum length", strings.Repeat("a", auth.PasswordMaxLength), false},
		{"over maximum", strings.Repeat("a", auth.PasswordMaxLength+1), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidatePassword(tt.password)
			if tt.wantErr {
				var vErr *auth.ValidationError
				assert.ErrorAs(t, err, &vErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := auth.HashPassword("a-strong-password")
	require.NoError(t, err)
	require.NotEqual(t, "a-strong-password", hash)

	assert.True(t, auth.CheckPassword(hash, "a-strong-password"))
	assert.False(t, auth.CheckPassword(hash, "a-wrong-password"))
	assert.False(t, auth.CheckPassword("", "a-strong-password"))
}

func TestHashPasswordRejectsInvalid(t *testing.T) {
	_, err := auth.HashPassword("short")
	var vErr *auth.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
