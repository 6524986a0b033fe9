package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/deadman-dev/deadman/internal/models"
)

// Deliverer delivers a switch's message to a configured action target.
type Deliverer interface {
	Deliver(ctx context.Context, action models.Action, message string, now time.Time) error
}

// Notifier routes a delivery to the sender matching the action's type.
type Notifier struct {
	Mailer  Mailer
	Webhook *WebhookSender
}

func NewNotifier() *Notifier {
	return &Notifier{
		Mailer:  NewSMTPMailerFromEnv(),
		Webhook: NewWebhookSender(),
	}
}

func (n *Notifier) Deliver(ctx context.Context, action models.Action, message string, now time.Time) error {
	switch action.Type {
	case models.ActionTypeEmail:
		return n.Mailer.Send(ctx, action.Target, EmailSubject, message)
	case models.ActionTypeWebhook:
		return n.Webhook.Send(ctx, action.Target, message, now)
	default:
		// Creation validates against the closed type set, so this only fires
		// on rows written outside the API.
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}
