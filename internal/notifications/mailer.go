// Package notifications delivers outbound email for the verification flows.
// The only transport is SMTP; when notifications are disabled or no SMTP host
// is configured, NewMailer returns a no-op implementation so callers never
// need to branch on deployment environment.
package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/service-auth/service-auth/internal/config"
)

// Mailer sends verification emails.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, link, name string) error
}

// NewMailer returns an SMTP-backed mailer, or a no-op one when outbound email
// is not configured.
func NewMailer(cfg *config.NotificationsConfig, logger *slog.Logger) Mailer {
	if !cfg.Enabled || cfg.SMTP.Host == "" {
		logger.Info("outbound email disabled", "enabled", cfg.Enabled, "smtp_host_set", cfg.SMTP.Host != "")
		return &noopMailer{logger: logger}
	}
	return &smtpMailer{cfg: &cfg.SMTP, logger: logger}
}

type noopMailer struct {
	logger *slog.Logger
}

func (m *noopMailer) SendVerificationEmail(_ context.Context, to, link, _ string) error {
	m.logger.Debug("verification email suppressed", "to", to, "link", link)
	return nil
}

type smtpMailer struct {
	cfg    *config.SMTPConfig
	logger *slog.Logger
}

// SendVerificationEmail composes and delivers a plain-text verification email.
// The context is consulted before dialing; net/smtp itself does not support
// cancellation mid-send.
func (m *smtpMailer) SendVerificationEmail(ctx context.Context, to, link, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := "Verify your email address"
	body := strings.Join([]string{
		fmt.Sprintf("Hello %s,", name),
		"",
		"Please confirm your email address by opening the link below:",
		"",
		"  " + link,
		"",
		"The link expires in 24 hours. If you did not request this email, no action is required.",
	}, "\r\n")

	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		m.cfg.From, to, subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	var err error
	if m.cfg.UseTLS {
		err = sendMailTLS(addr, m.cfg.Host, auth, m.cfg.From, []string{to}, msg)
	} else {
		err = smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg)
	}
	if err != nil {
		m.logger.Error("verification email delivery failed", "to", to, "error", err)
		return err
	}
	return nil
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
// When the implicit TLS dial fails it falls back to smtp.SendMail, which
// upgrades via STARTTLS on port 587, so UseTLS=true always means an encrypted
// connection regardless of port.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
