// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/playforge/gamehub/internal/config"
	"github.com/playforge/gamehub/internal/csrf"
	"github.com/playforge/gamehub/internal/database"
	"github.com/playforge/gamehub/internal/handlers"
	"github.com/playforge/gamehub/internal/ratelimit"
	"github.com/playforge/gamehub/internal/repository"
	"github.com/playforge/gamehub/internal/services/auth"
	"github.com/playforge/gamehub/internal/services/email"
	"github.com/playforge/gamehub/internal/services/verification"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	repo := repository.New(db)

	// Email
	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender, err = email.NewSMTPSender(&cfg.SMTP)
		if err != nil {
			return fmt.Errorf("failed to configure SMTP: %w", err)
		}
	} else {
		slog.Warn("SMTP not configured, verification codes will be logged instead of sent")
		sender = email.LogSender{}
	}

	// Services
	codes := verification.NewService(repo, sender)
	guard := auth.NewGuard(repo)

	secret := cfg.Auth.TokenSecret
	if secret == "" {
		secret = randomSecret()
		slog.Warn("generated ephemeral token secret, set auth.token_secret in production")
	}
	tokens := auth.NewTokenIssuer(secret, cfg.Auth.TokenTTL)
	authSvc := auth.NewService(repo, guard, codes, tokens)

	// Rate limit store: shared Redis when configured, in-process otherwise.
	var (
		store    ratelimit.Store
		memStore *ratelimit.MemoryStore
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if pingErr := client.Ping(ctx).Err(); pingErr != nil {
			return fmt.Errorf("failed to reach redis: %w", pingErr)
		}
		defer func() { _ = client.Close() }()
		store = ratelimit.NewRedisStore(client)
	} else {
		memStore = ratelimit.NewMemoryStore()
		store = memStore
	}

	// Periodic cleanup, owned here and stopped on shutdown.
	tasks := []verification.CleanupFunc{codes.Cleanup}
	if memStore != nil {
		tasks = append(tasks, func(context.Context) error {
			memStore.Prune(time.Now().Add(-3 * time.Hour))
			return nil
		})
	}
	janitor := verification.NewJanitor(cfg.Cleanup.Interval, tasks...)
	janitor.Start()
	defer janitor.Stop()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	csrfMgr := csrf.NewManager(cfg.Secure())
	setupMiddleware(e, cfg)

	h := handlers.New(repo, authSvc, codes, csrfMgr)
	setupRoutes(e, h, store, csrfMgr)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers, store ratelimit.Store, csrfMgr *csrf.Manager) {
	e.GET("/health", h.Health)

	// The limiter wraps CSRF on every auth route: a blocked client gets
	// 429 before any token check, and a request failing CSRF still spends
	// its quota.
	protect := csrfMgr.Middleware()
	limited := func(name string, cfg ratelimit.Config) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{
			ratelimit.New(name, store, cfg).Middleware(),
			protect,
		}
	}

	g := e.Group("/auth")
	g.GET("/csrf", h.CSRFToken, protect)
	g.POST("/csrf/refresh", h.CSRFRefresh, protect)
	g.POST("/register", h.Register,
		limited("register", ratelimit.RegisterPolicy())...)
	g.POST("/login", h.Login,
		limited("login", ratelimit.LoginPolicy())...)
	g.POST("/verification/request", h.RequestCode,
		limited("verification", ratelimit.VerificationSendPolicy())...)
	g.POST("/verification/confirm", h.ConfirmCode,
		limited("verification-confirm", ratelimit.CodeConfirmPolicy())...)
	g.POST("/password-reset/request", h.PasswordResetRequest,
		limited("password-reset", ratelimit.PasswordResetPolicy())...)
	g.POST("/password-reset/confirm", h.PasswordResetConfirm,
		limited("password-reset-confirm", ratelimit.CodeConfirmPolicy())...)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
