// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

// Package csrf implements double-submit cookie protection: a random token
// lives in a cookie and must be echoed back in a request header on every
// mutating request.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	// TokenLength is the number of random bytes in a token.
	TokenLength = 32
	// CookieName is the cookie carrying the token.
	CookieName = "_csrf"
	// HeaderName is the request header the client echoes the token in.
	HeaderName = "X-CSRF-Token"
	// CookieMaxAge is the cookie lifetime in seconds (24h).
	CookieMaxAge = 24 * 60 * 60
)

// ContextKey is the echo context key holding the current token.
const ContextKey = "csrf"

// Manager issues and verifies double-submit tokens.
type Manager struct {
	secure bool
}

// NewManager creates a Manager. secure marks issued cookies HTTPS-only.
func NewManager(secure bool) *Manager {
	return &Manager{secure: secure}
}

// Issue returns the token from the request cookie if one is present,
// otherwise generates a fresh token and sets the cookie.
func (m *Manager) Issue(c echo.Context) (string, error) {
	if cookie, err := c.Cookie(CookieName); err == nil && len(cookie.Value) == TokenLength*2 {
		return cookie.Value, nil
	}
	return m.Refresh(c)
}

// Refresh unconditionally generates a new token and replaces the cookie.
func (m *Manager) Refresh(c echo.Context) (string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating CSRF token: %w", err)
	}
	token := hex.EncodeToString(buf)

	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Verify compares the cookie and header copies of the token. It fails
// closed on any missing value or length mismatch, and compares in constant
// time to resist timing attacks.
func Verify(cookieToken, headerToken string) bool {
	if cookieToken == "" || headerToken == "" {
		return false
	}
	if len(cookieToken) != len(headerToken) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) == 1
}

// Middleware protects non-safe methods. GET, HEAD and OPTIONS bypass
// verification but still get a token issued so clients can pick one up.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				token, err := m.Issue(c)
				if err != nil {
					return err
				}
				c.Set(ContextKey, token)
				return next(c)
			}

			var cookieToken string
			if cookie, err := c.Cookie(CookieName); err == nil {
				cookieToken = cookie.Value
			}
			headerToken := c.Request().Header.Get(HeaderName)

			if !Verify(cookieToken, headerToken) {
				slog.Warn("csrf_failure",
					"path", c.Request().URL.Path,
					"method", c.Request().Method,
					"ip", c.RealIP(),
				)
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "invalid CSRF token",
				})
			}

			c.Set(ContextKey, cookieToken)
			return next(c)
		}
	}
}
