// Package mailer sends alert emails through the configured SMTP relay.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tenderspro/backend/internal/config"
)

// Sender delivers one email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends mail over authenticated SMTP (SES in production).
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// New creates an SMTP mailer from configuration.
func New(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// Enabled reports whether SMTP credentials are configured.
func (m *SMTPMailer) Enabled() bool {
	return m.username != "" && m.password != ""
}

// Send delivers one HTML email. The context is consulted before
// dialing; net/smtp does not support mid-send cancellation.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.Enabled() {
		return fmt.Errorf("smtp credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.from, to, subject, htmlBody)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	addr := m.host + ":" + m.port

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// sanitizeHeader strips CRLF so user-derived values cannot inject
// headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
