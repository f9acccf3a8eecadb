// Package notify delivers new-notification alerts to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/nhle/humhub-notify/internal/model"
)

// DefaultTitle is the title of every alert.
const DefaultTitle = "HumHub Notification"

// DefaultBody replaces an empty notification message.
const DefaultBody = "You have a new notification"

// Message is one alert about a new notification.
type Message struct {
	Title string
	Body  string

	// Context names the server the alert came from.
	Context string

	// URL is opened when the alert is followed.
	URL string

	// Sound asks sinks that can do so to make a noise.
	Sound bool
}

// NewMessage builds the alert for n under the given settings.
func NewMessage(s model.Settings, n model.Notification) Message {
	body := n.Message
	if body == "" {
		body = DefaultBody
	}
	target := n.SourceURL
	if target == "" {
		target = s.OverviewURL()
	}
	return Message{
		Title:   DefaultTitle,
		Body:    body,
		Context: s.ServerURL,
		URL:     target,
		Sound:   s.PlaySound,
	}
}

// Notifier is a destination for alerts.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi sends each alert to every notifier in turn. One failing sink
// does not stop the others.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromSettings builds the notifiers enabled in s. Terminal alerts go to
// out. A Web Push sink whose subscription cannot be loaded is skipped
// with a log line.
func FromSettings(s model.Settings, out io.Writer) Multi {
	var m Multi

	if s.Notifiers.Terminal && out != nil {
		m = append(m, &Terminal{Out: out})
	}

	if s.Notifiers.SlackWebhookURL != "" {
		m = append(m, &Slack{WebhookURL: s.Notifiers.SlackWebhookURL})
	}

	if wp := s.Notifiers.WebPush; wp.SubscriptionFile != "" {
		sink, err := NewWebPush(wp)
		if err != nil {
			log.Printf("notify: web push disabled: %v", err)
		} else {
			m = append(m, sink)
		}
	}

	return m
}

func wrap(sink string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s notifier: %w", sink, err)
}
