package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const TriggerEventName = "deadman_switch_triggered"

const (
	triggerTimeout = 10 * time.Second
	testTimeout    = 5 * time.Second
)

type TriggerPayload struct {
	Event     string `json:"event"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type TestPayload struct {
	Test    bool   `json:"test"`
	Message string `json:"message"`
}

type TestResult struct {
	Status   int    `json:"status"`
	Response string `json:"response"`
}

// WebhookSender POSTs trigger payloads to webhook targets.
type WebhookSender struct {
	client *http.Client
}

func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		client: &http.Client{Timeout: triggerTimeout},
	}
}

// Send delivers the trigger payload to the target URL. Only transport-level
// failures (connection refused, timeout) count as delivery failure; an HTTP
// error status still counts as delivered, matching the reference trigger
// path. TestWebhook is the path that reports status codes.
func (w *WebhookSender) Send(ctx context.Context, url, message string, now time.Time) error {
	payload := TriggerPayload{
		Event:     TriggerEventName,
		Message:   message,
		Timestamp: now.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)

	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))

	if err != nil {
		return fmt.Errorf("invalid webhook target %s: %w", url, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)

	if err != nil {
		return fmt.Errorf("failed to send webhook to %s: %w", url, err)
	}

	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return nil
}

// TestWebhook fires a test payload at the URL and reports the response,
// including its status code. Used by the ad-hoc webhook test endpoint.
func TestWebhook(url string) (TestResult, error) {
	payload := TestPayload{
		Test:    true,
		Message: "Webhook test successful",
	}

	body, err := json.Marshal(payload)

	if err != nil {
		return TestResult{}, fmt.Errorf("failed to marshal test payload: %w", err)
	}

	client := &http.Client{Timeout: testTimeout}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(body))

	if err != nil {
		return TestResult{}, fmt.Errorf("webhook test failed: %w", err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if err != nil {
		return TestResult{}, fmt.Errorf("failed to read webhook response: %w", err)
	}

	return TestResult{
		Status:   resp.StatusCode,
		Response: string(respBody),
	}, nil
}
