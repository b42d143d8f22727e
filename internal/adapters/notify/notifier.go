package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

// WebhookNotifier implements the Notifier interface over plain HTTP:
// a Slack incoming webhook for chat alerts and a generic webhook
// endpoint for machine consumers. Either URL may be empty, which turns
// that delivery into a logged no-op.
type WebhookNotifier struct {
	slackWebhookURL string
	webhookURL      string
	client          *http.Client
	logger          *zap.Logger
}

// NewWebhookNotifier creates a new webhook-based notifier
func NewWebhookNotifier(slackWebhookURL, webhookURL string, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		slackWebhookURL: slackWebhookURL,
		webhookURL:      webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Alert posts a chat alert for an interesting message to the Slack
// incoming webhook
func (n *WebhookNotifier) Alert(ctx context.Context, nc *core.NotifyContext) error {
	if n.slackWebhookURL == "" {
		n.logger.Debug("Slack webhook not configured, skipping alert")
		return nil
	}

	text := fmt.Sprintf(
		":email: *New interested lead!*\n*Account:* %s\n*From:* %s\n*Subject:* %s\n*Date:* %s",
		nc.Account, nc.From, nc.Subject, nc.Date.Format(time.RFC1123),
	)
	payload := map[string]string{"text": text}

	return n.post(ctx, n.slackWebhookURL, payload)
}

// TriggerWebhook posts the full notification payload to the configured
// webhook endpoint
func (n *WebhookNotifier) TriggerWebhook(ctx context.Context, nc *core.NotifyContext) error {
	if n.webhookURL == "" {
		n.logger.Debug("Webhook not configured, skipping trigger")
		return nil
	}

	payload := map[string]interface{}{
		"event": "email_interested",
		"email": nc,
	}

	return n.post(ctx, n.webhookURL, payload)
}

func (n *WebhookNotifier) post(ctx context.Context, url string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notification endpoint returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
