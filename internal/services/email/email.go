// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

// Package email delivers verification codes. Delivery is best-effort from
// the caller's point of view; callers log failures instead of surfacing
// them.
package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/playforge/gamehub/internal/config"
	"github.com/playforge/gamehub/internal/models"
)

// Sender delivers a verification code to a recipient.
type Sender interface {
	SendCode(ctx context.Context, to, code string, kind models.CodeType) error
}

// SMTPSender sends codes via SMTP using go-mail.
type SMTPSender struct {
	cfg *config.SMTPConfig
}

// NewSMTPSender creates a sender from SMTP configuration.
func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTPSender{cfg: cfg}, nil
}

// SendCode implements Sender.
func (s *SMTPSender) SendCode(ctx context.Context, to, code string, kind models.CodeType) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(Subject(kind))
	msg.SetBodyString(mail.TypeTextPlain, Body(kind, code))

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS for port 465, STARTTLS otherwise.
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

// Subject returns the message subject for a code kind.
func Subject(kind models.CodeType) string {
	switch kind {
	case models.CodeTypePasswordReset:
		return "Your GameHub password reset code"
	case models.CodeTypeLoginVerification:
		return "Your GameHub login verification code"
	default:
		return "Confirm your GameHub email address"
	}
}

// Body returns the plain-text message body for a code kind.
func Body(kind models.CodeType, code string) string {
	switch kind {
	case models.CodeTypePasswordReset:
		return fmt.Sprintf("Use this code to reset your password: %s\n\nIt expires in 15 minutes. If you did not request a reset, ignore this message.", code)
	case models.CodeTypeLoginVerification:
		return fmt.Sprintf("Your login verification code is: %s\n\nIt expires in 10 minutes.", code)
	default:
		return fmt.Sprintf("Your email confirmation code is: %s\n\nIt expires in 30 minutes.", code)
	}
}
