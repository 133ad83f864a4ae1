// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength = 8
	// PasswordMaxLength is the bcrypt input limit.
	PasswordMaxLength = 72

	bcryptCost = 12
)

// ValidationError reports malformed user input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return &ValidationError{Msg: fmt.Sprintf("password must be at least %d characters long", PasswordMinLength)}
	}
	if len(password) > PasswordMaxLength {
		return &ValidationError{Msg: fmt.Sprintf("password must be at most %d characters long", PasswordMaxLength)}
	}
	return nil
}

// HashPassword validates and bcrypt-hashes a password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
