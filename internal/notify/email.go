package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"
)

const EmailSubject = "Dead Man Switch Triggered"

const (
	defaultFromAddress = "noreply@yourdomain.com"

	// Bounds the whole SMTP conversation so one unresponsive relay cannot
	// stall a sweep, matching the webhook path's client timeout.
	smtpTimeout = 10 * time.Second
)

// Mailer sends a plain-text email to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail through a configured SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func NewSMTPMailerFromEnv() *SMTPMailer {
	mailer := &SMTPMailer{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}

	if mailer.Port == "" {
		mailer.Port = "587"
	}

	if mailer.From == "" {
		mailer.From = defaultFromAddress
	}

	return mailer
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.Host == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	addr := m.Host + ":" + m.Port

	deadline := time.Now().Add(smtpTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	dialer := &net.Dialer{Timeout: smtpTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)

	if err != nil {
		return fmt.Errorf("failed to connect to SMTP relay %s: %w", addr, err)
	}

	// The deadline covers every read and write on the session, not just the
	// dial: a relay that accepts the connection and then goes silent still
	// fails the delivery in bounded time.
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set SMTP deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, m.Host)

	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open SMTP session with %s: %w", addr, err)
	}

	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.Host}); err != nil {
			return fmt.Errorf("failed to start TLS with %s: %w", addr, err)
		}
	}

	if m.Username != "" {
		auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)

		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate with %s: %w", addr, err)
		}
	}

	if err := client.Mail(m.From); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	writer, err := client.Data()

	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	if _, err := writer.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	return client.Quit()
}
