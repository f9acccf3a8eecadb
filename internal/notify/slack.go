package notify

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/nhle/humhub-notify/internal/model"
)

// Slack posts alerts to an incoming webhook.
type Slack struct {
	WebhookURL string
}

// Notify implements Notifier.
func (s *Slack) Notify(ctx context.Context, msg Message) error {
	payload := &slack.WebhookMessage{
		Text: msg.Title,
		Attachments: []slack.Attachment{
			{
				Color:     model.BadgeColorNormal,
				Title:     msg.Body,
				TitleLink: msg.URL,
				Footer:    msg.Context,
			},
		},
	}
	return wrap("slack", slack.PostWebhookContext(ctx, s.WebhookURL, payload))
}
