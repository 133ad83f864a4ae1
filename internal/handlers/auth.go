// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/playforge/gamehub/internal/models"
	"github.com/playforge/gamehub/internal/services/auth"
)

// RegisterRequest is the request body for account creation.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and sends an email confirmation code.
func (h *Handlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "a valid email address is required"})
	}

	user, err := h.auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"user": user,
	})
}

// LoginRequest is the request body for authentication.
type LoginRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	VerificationCode string `json:"verification_code,omitempty"`
}

// Login authenticates an account and returns an access token.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and password are required"})
	}

	result, err := h.auth.Login(c.Request().Context(), auth.LoginInput{
		Email:            req.Email,
		Password:         req.Password,
		VerificationCode: req.VerificationCode,
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User,
	})
}

// CodeRequest is the request body for issuing a verification code.
type CodeRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// RequestCode issues an EMAIL_VERIFICATION or LOGIN_VERIFICATION code.
// Password-reset codes go through the dedicated reset routes.
func (h *Handlers) RequestCode(c echo.Context) error {
	var req CodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)
	typ := models.CodeType(req.Type)
	if !validEmail(req.Email) || !typ.Valid() || typ == models.CodeTypePasswordReset {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "a valid email and code type are required"})
	}

	vc, err := h.auth.RequestCode(c.Request().Context(), req.Email, typ)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":    "verification code sent",
		"expires_at": vc.ExpiresAt,
	})
}

// ConfirmCodeRequest is the request body for consuming a code.
type ConfirmCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Type  string `json:"type"`
}

// ConfirmCode consumes a code. Confirming an EMAIL_VERIFICATION code also
// marks the account's email verified.
func (h *Handlers) ConfirmCode(c echo.Context) error {
	var req ConfirmCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)
	typ := models.CodeType(req.Type)
	if !validEmail(req.Email) || req.Code == "" || !typ.Valid() || typ == models.CodeTypePasswordReset {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "a valid email, code and type are required"})
	}

	ctx := c.Request().Context()
	var err error
	if typ == models.CodeTypeEmailVerification {
		err = h.auth.ConfirmEmail(ctx, req.Email, req.Code)
	} else {
		_, err = h.codes.Verify(ctx, req.Email, req.Code, typ)
	}
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"verified": true,
	})
}

// ResetRequest is the request body for starting a password reset.
type ResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetRequest issues a PASSWORD_RESET code.
func (h *Handlers) PasswordResetRequest(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "a valid email address is required"})
	}

	vc, err := h.auth.RequestCode(c.Request().Context(), req.Email, models.CodeTypePasswordReset)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":    "password reset code sent",
		"expires_at": vc.ExpiresAt,
	})
}

// ResetConfirmRequest is the request body for completing a password reset.
type ResetConfirmRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// PasswordResetConfirm consumes a PASSWORD_RESET code and stores the new
// password.
func (h *Handlers) PasswordResetConfirm(c echo.Context) error {
	var req ResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) || req.Code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "a valid email and code are required"})
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "password updated",
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
