// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/playforge/gamehub/internal/repository"
	"github.com/playforge/gamehub/internal/services/auth"
	"github.com/playforge/gamehub/internal/services/verification"
)

// respondError maps service errors onto the HTTP error taxonomy. Rate and
// lockout rejections always carry a deterministic retry time; persistence
// failures surface as an opaque 500.
func (h *Handlers) respondError(c echo.Context, err error) error {
	var (
		validationErr *auth.ValidationError
		lockoutErr    *auth.LockoutError
		cooldownErr   *verification.CooldownError
		dailyErr      *verification.DailyLimitError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": validationErr.Msg,
		})

	case errors.As(err, &lockoutErr):
		retryAfter := retrySeconds(lockoutErr.RetryAfter())
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"error":        "account temporarily locked",
			"is_locked":    true,
			"locked_until": lockoutErr.LockedUntil,
			"retry_after":  retryAfter,
		})

	case errors.As(err, &cooldownErr):
		retryAfter := retrySeconds(cooldownErr.RetryAfter)
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"error":       "a code was issued recently",
			"retry_after": retryAfter,
		})

	case errors.As(err, &dailyErr):
		retryAfter := retrySeconds(dailyErr.RetryAfter)
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"error":       "daily code limit reached",
			"retry_after": retryAfter,
		})

	case errors.Is(err, auth.ErrVerificationRequired):
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"error":              "login verification code required",
			"needs_verification": true,
		})

	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid email or password",
		})

	case errors.Is(err, verification.ErrInvalidOrExpired):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid or expired code",
		})

	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "account not found",
		})

	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "email already registered",
		})

	default:
		slog.Error("request failed", "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

// retrySeconds rounds a wait up to whole seconds, never below 1.
func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
