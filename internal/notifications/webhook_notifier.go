package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier hands messages to an external mail relay over HTTP.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{client: client, url: url}
}

func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("webhook send: status %d", resp.StatusCode())
	}
	return nil
}
