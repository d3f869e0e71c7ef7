package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/templui/cortex/internal/model"
)

// Mailer delivers account emails.
type Mailer interface {
	SendAuthLink(ctx context.Context, email, tokenType, link string) error
	SendAccountDeleted(ctx context.Context, email string) error
}

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appName   string
}

func NewEmailService(apiKey, fromEmail, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appName:   appName,
	}
}

// SendAuthLink sends the verification link for tokenType.
func (s *EmailService) SendAuthLink(ctx context.Context, email, tokenType, link string) error {
	var subject, body string
	switch tokenType {
	case model.TokenTypeSignup:
		subject, body = signupEmailTemplate(link, s.appName)
	case model.TokenTypeMagicLink:
		subject, body = magicLinkEmailTemplate(link, s.appName)
	case model.TokenTypeRecovery:
		subject, body = recoveryEmailTemplate(link, s.appName)
	default:
		return fmt.Errorf("no email template for token type %q", tokenType)
	}

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", tokenType, "to", email, "subject", subject, "url", link)
		return nil
	}

	return s.send(ctx, tokenType, email, subject, body)
}

func (s *EmailService) SendAccountDeleted(ctx context.Context, email string) error {
	subject, body := accountDeletedEmailTemplate(s.appName)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "account_deleted", "to", email, "subject", subject)
		return nil
	}

	return s.send(ctx, "account_deleted", email, subject, body)
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return err
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}
