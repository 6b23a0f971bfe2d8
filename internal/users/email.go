// internal/users/email.go
// Outbound account email. SendGrid for production, SMTP for
// self-hosted setups, a logging mock for development.

package users

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// AccountEmail is a rendered account notification
type AccountEmail struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// EmailProvider delivers account email
type EmailProvider interface {
	SendEmail(ctx context.Context, email *AccountEmail) error
}

// ConfirmationEmail builds the address-confirmation message
func ConfirmationEmail(to, username, confirmURL string) *AccountEmail {
	text := fmt.Sprintf(
		"Dear %s,\n\nWelcome! To confirm your account please visit the following link:\n\n%s\n\nIf you did not create this account, ignore this message.",
		username, confirmURL)
	html := fmt.Sprintf(
		`<p>Dear %s,</p><p>Welcome! To confirm your account please <a href="%s">click here</a>.</p><p>If you did not create this account, ignore this message.</p>`,
		username, confirmURL)

	return &AccountEmail{
		To:       to,
		Subject:  "Confirm Your Account",
		TextBody: text,
		HTMLBody: html,
	}
}

// PasswordResetEmail builds the reset-link message
func PasswordResetEmail(to, username, resetURL string) *AccountEmail {
	text := fmt.Sprintf(
		"Dear %s,\n\nTo reset your password visit the following link:\n\n%s\n\nIf you did not request a password reset, ignore this message.",
		username, resetURL)
	html := fmt.Sprintf(
		`<p>Dear %s,</p><p>To reset your password <a href="%s">click here</a>.</p><p>If you did not request a password reset, ignore this message.</p>`,
		username, resetURL)

	return &AccountEmail{
		To:       to,
		Subject:  "Reset Your Password",
		TextBody: text,
		HTMLBody: html,
	}
}

// SendGridEmailProvider delivers through the SendGrid API
type SendGridEmailProvider struct {
	apiKey   string
	from     string
	fromName string
}

func NewSendGridEmailProvider(apiKey, from, fromName string) EmailProvider {
	return &SendGridEmailProvider{
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
	}
}

func (p *SendGridEmailProvider) SendEmail(ctx context.Context, email *AccountEmail) error {
	from := mail.NewEmail(p.fromName, p.from)
	to := mail.NewEmail("", email.To)

	message := mail.NewSingleEmail(from, email.Subject, to, email.TextBody, email.HTMLBody)
	client := sendgrid.NewSendClient(p.apiKey)

	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid returned error status: %d", response.StatusCode)
	}

	return nil
}

// SMTPEmailProvider delivers through a plain SMTP relay
type SMTPEmailProvider struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPEmailProvider(host, port, username, password, from string) EmailProvider {
	return &SMTPEmailProvider{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (p *SMTPEmailProvider) SendEmail(ctx context.Context, email *AccountEmail) error {
	message := fmt.Sprintf("From: %s\r\n", p.from)
	message += fmt.Sprintf("To: %s\r\n", email.To)
	message += fmt.Sprintf("Subject: %s\r\n", email.Subject)
	message += "MIME-version: 1.0;\r\n"
	message += "Content-Type: text/html; charset=\"UTF-8\";\r\n"
	message += "\r\n"
	message += email.HTMLBody

	auth := smtp.PlainAuth("", p.username, p.password, p.host)
	addr := fmt.Sprintf("%s:%s", p.host, p.port)

	if err := smtp.SendMail(addr, auth, p.from, []string{email.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// MockEmailProvider logs instead of sending; used in development and
// tests.
type MockEmailProvider struct {
	Sent []*AccountEmail
}

func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(ctx context.Context, email *AccountEmail) error {
	p.Sent = append(p.Sent, email)
	log.Printf("MOCK EMAIL to=%s subject=%q", email.To, email.Subject)
	return nil
}
