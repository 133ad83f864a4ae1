// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Middleware wraps routes with the limiter. Allowed requests carry
// X-RateLimit headers; blocked requests get 429 with Retry-After in
// seconds. A store failure lets the request through so that an outage of
// the limiter backend does not take authentication down with it.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := l.Check(c)
			if err != nil {
				slog.Warn("rate limit check failed",
					"limiter", l.name,
					"error", err,
				)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(res.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error":       "too many requests",
					"retry_after": retryAfter,
				})
			}

			return next(c)
		}
	}
}
