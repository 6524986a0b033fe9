package notify

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSendRequiresHost(t *testing.T) {
	mailer := &SMTPMailer{Port: "587", From: "noreply@example.com"}

	err := mailer.Send(context.Background(), "to@example.com", "subject", "body")
	assert.Error(t, err)
}

func TestSMTPSendBoundedBySilentRelay(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	// Accept connections but never send the SMTP greeting.
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)

	mailer := &SMTPMailer{Host: host, Port: port, From: "noreply@example.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = mailer.Send(ctx, "to@example.com", "subject", "body")

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestNewSMTPMailerFromEnvReadsCurrentEnv(t *testing.T) {
	t.Setenv("SMTP_HOST", "relay.example.com")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_USERNAME", "mailer")
	t.Setenv("SMTP_PASSWORD", "s3cret")
	t.Setenv("SMTP_FROM", "")

	mailer := NewSMTPMailerFromEnv()

	assert.Equal(t, "relay.example.com", mailer.Host)
	assert.Equal(t, "587", mailer.Port)
	assert.Equal(t, "mailer", mailer.Username)
	assert.Equal(t, "noreply@yourdomain.com", mailer.From)
}
