// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/playforge/gamehub/internal/csrf"
	"github.com/playforge/gamehub/internal/repository"
	"github.com/playforge/gamehub/internal/services/auth"
	"github.com/playforge/gamehub/internal/services/verification"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo  *repository.Repository
	auth  *auth.Service
	codes *verification.Service
	csrf  *csrf.Manager
}

// New creates a new Handlers instance.
func New(repo *repository.Repository, authSvc *auth.Service, codes *verification.Service, csrfMgr *csrf.Manager) *Handlers {
	return &Handlers{repo: repo, auth: authSvc, codes: codes, csrf: csrfMgr}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// CSRFToken returns the current CSRF token. The middleware has usually
// issued one already and left it in the context; issue one here only when
// the route runs without it.
func (h *Handlers) CSRFToken(c echo.Context) error {
	token, ok := c.Get(csrf.ContextKey).(string)
	if !ok || token == "" {
		var err error
		if token, err = h.csrf.Issue(c); err != nil {
			return h.respondError(c, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"token":  token,
		"header": csrf.HeaderName,
	})
}

// CSRFRefresh rotates the CSRF token.
func (h *Handlers) CSRFRefresh(c echo.Context) error {
	token, err := h.csrf.Refresh(c)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"token":  token,
		"header": csrf.HeaderName,
	})
}
