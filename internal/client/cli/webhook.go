package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/client/notifier"
)

var errWebhooksOff = errors.New("webhooks are not configured")

// WebhookTest sends a test payload to the test endpoint and waits for the
// result.
func (a *App) WebhookTest(ctx context.Context, args []string) error {
	if a.Webhooks == nil {
		return errWebhooksOff
	}
	text := strings.Join(args, " ")
	if text == "" {
		text = "Test message from Kumo"
	}

	res := a.Webhooks.Send(ctx, notifier.Test, notifier.TestPayload(text, a.userID(), a.Now()))
	if !res.Success {
		return errors.New(res.Error)
	}
	if len(res.Data) > 0 {
		a.printf("Webhook OK: %s\n", res.Data)
	} else {
		a.println("Webhook OK")
	}
	return nil
}

func (a *App) Stats(context.Context, []string) error {
	if a.Webhooks == nil {
		return errWebhooksOff
	}
	st := a.Webhooks.Stats()
	a.printf("Webhooks sent: %d, failed: %d\n", st.Sent, st.Failed)
	return nil
}
