// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"

	"github.com/playforge/gamehub/internal/models"
)

// LogSender writes codes to the log instead of sending mail. It keeps
// development setups without SMTP working.
type LogSender struct{}

// SendCode implements Sender.
func (LogSender) SendCode(_ context.Context, to, code string, kind models.CodeType) error {
	slog.Info("verification code (mail disabled)",
		"to", to,
		"type", kind,
		"code", code,
	)
	return nil
}
