// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/gamehub/internal/csrf"
	"github.com/playforge/gamehub/internal/handlers"
	"github.com/playforge/gamehub/internal/models"
	"github.com/playforge/gamehub/internal/repository"
	"github.com/playforge/gamehub/internal/services/auth"
	"github.com/playforge/gamehub/internal/services/verification"
	"github.com/playforge/gamehub/internal/testutil"
)

// captureSender keeps the last delivered code so flow tests can replay it.
type captureSender struct {
	lastCode string
}

func (c *captureSender) SendCode(_ context.Context, _, code string, _ models.CodeType) error {
	c.lastCode = code
	return nil
}

// newTestServer wires the full handler surface without the CSRF and rate
// limiting middlewares, which have their own tests.
func newTestServer(t *testing.T) (*echo.Echo, *repository.Repository, *captureSender) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	sender := &captureSender{}
	codes := verification.NewService(repo, sender)
	guard := auth.NewGuard(repo)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	authSvc := auth.NewService(repo, guard, codes, issuer)
	h := handlers.New(repo, authSvc, codes, csrf.NewManager(false))

	e := echo.New()
	e.GET("/health", h.Health)
	e.GET("/auth/csrf", h.CSRFToken)
	e.POST("/auth/csrf/refresh", h.CSRFRefresh)
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/verification/request", h.RequestCode)
	e.POST("/auth/verification/confirm", h.ConfirmCode)
	e.POST("/auth/password-reset/request", h.PasswordResetRequest)
	e.POST("/auth/password-reset/confirm", h.PasswordResetConfirm)
	return e, repo, sender
}

func postJSON(e *echo.Echo, path string, body map[string]any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func register(t *testing.T, e *echo.Echo, email string) {
	t.Helper()
	rec := postJSON(e, "/auth/register", map[string]any{
		"email":    email,
		"password": "a-strong-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	e, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestRegisterCreatesAccount(t *testing.T) {
	e, _, sender := newTestServer(t)

	rec := postJSON(e, "/auth/register", map[string]any{
		"email":    "Alice@Example.com",
		"password": "a-strong-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, sender.lastCode, "registration must send a confirmation code")

	user, ok := decode(t, rec)["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user["email"], "email is normalized")
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e, _, _ := newTestServer(t)
	register(t, e, "alice@example.com")

	rec := postJSON(e, "/auth/register", map[string]any{
		"email":    "alice@example.com",
		"password": "a-strong-password",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	e, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing email", map[string]any{"password": "a-strong-password"}},
		{"malformed email", map[string]any{"email": "not-an-email", "password": "a-strong-password"}},
		{"short password", map[string]any{"email": "alice@example.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(e, "/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginFlow(t *testing.T) {
	e, _, _ := newTestServer(t)
	register(t, e, "alice@example.com")

	rec := postJSON(e, "/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "a-strong-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["expires_at"])
}

func TestLoginWrongPassword(t *testing.T) {
	e, _, _ := newTestServer(t)
	register(t, e, "alice@example.com")

	rec := postJSON(e, "/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := postJSON(e, "/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "a-strong-password",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginLockout(t *testing.T) {
	e, _, _ := newTestServer(t)
	register(t, e, "alice@example.com")

	var rec *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		rec = postJSON(e, "/auth/login", map[string]any{
			"email":    "alice@example.com",
			"password": "wrong-password",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	body := decode(t, rec)
	assert.Equal(t, true, body["is_locked"])
	assert.NotEmpty(t, body["locked_until"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// The correct password is also rejected while the lock holds.
	rec = postJSON(e, "/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "a-strong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["is_locked"])
	retryAfter, ok := body["retry_after"].(float64)
	require.True(t, ok)
	assert.InDelta(t, (30 * time.Minute).Seconds(), retryAfter, 5)
}

func TestLoginNeedsVerificationAfterFailures(t *testing.T) {
	e, _, sender := newTestServer(t)
	register(t, e, "alice@example.com")

	for i := 0; i < 3; i++ {
		postJSON(e, "/auth/login", map[string]any{
			"email":    "alice@example.com",
			"password": "wrong-password",
		})
	}

	rec := postJSON(e, "/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "a-strong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, true, decode(t, rec)["needs_verification"])

	rec = postJSON(e, "/auth/verification/request", map[string]any{
		"email": "alice@example.com",
		"type":  string(models.CodeTypeLoginVerification),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(e, "/auth/login", map[string]any{
		"email":             "alice@example.com",
		"password":          "a-strong-password",
		"verification_code": sender.lastCode,
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRequestCodeCooldown(t *testing.T) {
	e, _, _ := newTestServer(t)
	register(t, e, "alice@example.com") // issues an EMAIL_VERIFICATION code

	rec := postJSON(e, "/auth/verification/request", map[string]any{
		"email": "alice@example.com",
		"type":  string(models.CodeTypeEmailVerification),
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, decode(t, rec)["retry_after"])
}

func TestRequestCodeRejectsPasswordResetType(t *testing.T) {
	e, _, _ := newTestServer(t)
	register(t, e, "alice@example.com")

	rec := postJSON(e, "/auth/verification/request", map[string]any{
		"email": "alice@example.com",
		"type":  string(models.CodeTypePasswordReset),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmCodeMarksEmailVerified(t *testing.T) {
	e, repo, sender := newTestServer(t)
	register(t, e, "alice@example.com")

	rec := postJSON(e, "/auth/verification/confirm", map[string]any{
		"email": "alice@example.com",
		"code":  sender.lastCode,
		"type":  string(models.CodeTypeEmailVerification),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["verified"])

	user, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
}

func TestConfirmCodeInvalid(t *testing.T) {
	e, _, sender := newTestServer(t)
	register(t, e, "alice@example.com")

	wrong := "000000"
	if sender.lastCode == wrong {
		wrong = "000001"
	}
	rec := postJSON(e, "/auth/verification/confirm", map[string]any{
		"email": "alice@example.com",
		"code":  wrong,
		"type":  string(models.CodeTypeEmailVerification),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	e, _, sender := newTestServer(t)
	register(t, e, "alice@example.com")

	rec := postJSON(e, "/auth/password-reset/request", map[string]any{
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(e, "/auth/password-reset/confirm", map[string]any{
		"email":        "alice@example.com",
		"code":         sender.lastCode,
		"new_password": "brand-new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(e, "/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "brand-new-password",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := postJSON(e, "/auth/password-reset/request", map[string]any{
		"email": "nobody@example.com",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCSRFTokenEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	token, ok := body["token"].(string)
	require.True(t, ok)
	assert.Len(t, token, csrf.TokenLength*2)
	assert.Equal(t, csrf.HeaderName, body["header"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, token, cookies[0].Value)
}

func TestCSRFRefreshRotatesToken(t *testing.T) {
	e, _, _ := newTestServer(t)
	token := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	req := httptest.NewRequest(http.MethodPost, "/auth/csrf/refresh", nil)
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	fresh, ok := decode(t, rec)["token"].(string)
	require.True(t, ok)
	assert.NotEqual(t, token, fresh)
}
