package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook posts payloads as JSON to configured URLs.
type Webhook struct {
	primaryURL string
	testURL    string
	client     *http.Client
}

var _ Notifier = (*Webhook)(nil)

// NewWebhook returns a Webhook. Either URL may be empty, in which case
// notifications to that endpoint fail with "webhook not configured".
func NewWebhook(primaryURL, testURL string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{primaryURL: primaryURL, testURL: testURL, client: client}
}

func (w *Webhook) url(ep Endpoint) string {
	if ep == Test {
		return w.testURL
	}
	return w.primaryURL
}

// Notify posts p to ep. Non-2xx responses and bodies that are not valid JSON
// are failures; an empty body counts as success.
func (w *Webhook) Notify(ctx context.Context, ep Endpoint, p Payload) Result {
	target := w.url(ep)
	if target == "" {
		return Result{Error: fmt.Sprintf("%s webhook not configured", ep)}
	}

	body, err := json.Marshal(p)
	if err != nil {
		return Result{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Error: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Error: fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Result{Success: true}
	}
	if !json.Valid(raw) {
		return Result{Error: "invalid JSON in webhook response"}
	}
	return Result{Success: true, Data: json.RawMessage(raw)}
}
