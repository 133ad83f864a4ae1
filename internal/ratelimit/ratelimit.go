// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

// Package ratelimit implements sliding-window request limiting with
// temporary blocking. The window algorithm lives behind the Store
// interface so it can run against an in-process map on a single instance
// or a shared Redis across several.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Config describes one limiting policy.
type Config struct {
	Window        time.Duration
	MaxAttempts   int
	BlockDuration time.Duration
}

// Result is the outcome of a single Take.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // > 0 when blocked
	Reset      time.Time     // end of the current window or block
}

// Store records one observed request for a key and decides whether it
// passes. Implementations must be atomic per key.
type Store interface {
	Take(ctx context.Context, key string, cfg Config, now time.Time) (Result, error)
}

// KeyFunc derives the client key for a request.
type KeyFunc func(c echo.Context) string

// ClientIP keys requests by originating IP, honoring X-Forwarded-For and
// X-Real-IP via echo's RealIP.
func ClientIP(c echo.Context) string {
	return c.RealIP()
}

// Limiter binds a policy name, a store and a key function.
type Limiter struct {
	name  string
	store Store
	cfg   Config
	keyFn KeyFunc
}

// New creates a Limiter keyed by client IP.
func New(name string, store Store, cfg Config) *Limiter {
	return &Limiter{name: name, store: store, cfg: cfg, keyFn: ClientIP}
}

// WithKeyFunc overrides the key derivation.
func (l *Limiter) WithKeyFunc(fn KeyFunc) *Limiter {
	l.keyFn = fn
	return l
}

// Check records the request and returns the limiting decision.
func (l *Limiter) Check(c echo.Context) (Result, error) {
	key := l.name + ":" + l.keyFn(c)
	return l.store.Take(c.Request().Context(), key, l.cfg, time.Now())
}

// Preconfigured policies.

// LoginPolicy limits login attempts per client.
func LoginPolicy() Config {
	return Config{Window: 15 * time.Minute, MaxAttempts: 5, BlockDuration: 30 * time.Minute}
}

// RegisterPolicy limits account creation per client.
func RegisterPolicy() Config {
	return Config{Window: time.Hour, MaxAttempts: 3, BlockDuration: 2 * time.Hour}
}

// VerificationSendPolicy limits verification-code requests per client.
func VerificationSendPolicy() Config {
	return Config{Window: time.Minute, MaxAttempts: 1, BlockDuration: time.Minute}
}

// PasswordResetPolicy limits password-reset requests per client.
func PasswordResetPolicy() Config {
	return Config{Window: time.Hour, MaxAttempts: 3, BlockDuration: time.Hour}
}

// CodeConfirmPolicy limits code confirmation attempts per client, bounding
// how fast a 6-digit code can be guessed while it is live.
func CodeConfirmPolicy() Config {
	return Config{Window: 15 * time.Minute, MaxAttempts: 10, BlockDuration: 30 * time.Minute}
}
