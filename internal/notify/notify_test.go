package notify

import (
	"context"
	"testing"
	"time"

	"github.com/deadman-dev/deadman/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	to      string
	subject string
	body    string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.to = to
	f.subject = subject
	f.body = body
	return nil
}

func TestDeliverRoutesEmail(t *testing.T) {
	mailer := &fakeMailer{}
	notifier := &Notifier{Mailer: mailer, Webhook: NewWebhookSender()}

	action := models.Action{Type: models.ActionTypeEmail, Target: "next-of-kin@example.com"}

	err := notifier.Deliver(context.Background(), action, "open the safe", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "next-of-kin@example.com", mailer.to)
	assert.Equal(t, "Dead Man Switch Triggered", mailer.subject)
	assert.Equal(t, "open the safe", mailer.body)
}

func TestDeliverUnknownTypeFails(t *testing.T) {
	notifier := &Notifier{Mailer: &fakeMailer{}, Webhook: NewWebhookSender()}

	action := models.Action{Type: models.ActionType("carrier_pigeon"), Target: "coop"}

	err := notifier.Deliver(context.Background(), action, "coo", time.Now())
	assert.Error(t, err)
}
