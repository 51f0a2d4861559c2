package notification

import (
	"context"

	"github.com/slack-go/slack"
)

// SlackSender posts one announcement line to the workshop channel.
type SlackSender interface {
	Send(ctx context.Context, text string) error
}

// WebhookSender is the real SlackSender, backed by an incoming webhook.
type WebhookSender struct {
	URL string
}

// Send posts the text via the configured webhook.
func (s *WebhookSender) Send(ctx context.Context, text string) error {
	return slack.PostWebhookContext(ctx, s.URL, &slack.WebhookMessage{Text: text})
}
