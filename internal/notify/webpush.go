package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/nhle/humhub-notify/internal/model"
)

// WebPush sends alerts to one browser push subscription.
type WebPush struct {
	Subscription *webpush.Subscription
	Options      webpush.Options
}

// NewWebPush loads the subscription JSON written by the browser
// (endpoint plus p256dh/auth keys) and the VAPID key pair from s.
func NewWebPush(s model.WebPushSettings) (*WebPush, error) {
	if s.VAPIDPublicKey == "" || s.VAPIDPrivateKey == "" {
		return nil, errors.New("VAPID public and private keys are required")
	}

	data, err := os.ReadFile(s.SubscriptionFile)
	if err != nil {
		return nil, fmt.Errorf("reading subscription %s: %w", s.SubscriptionFile, err)
	}

	sub := &webpush.Subscription{}
	if err := json.Unmarshal(data, sub); err != nil {
		return nil, fmt.Errorf("parsing subscription %s: %w", s.SubscriptionFile, err)
	}
	if sub.Endpoint == "" {
		return nil, fmt.Errorf("subscription %s has no endpoint", s.SubscriptionFile)
	}

	return &WebPush{
		Subscription: sub,
		Options: webpush.Options{
			Subscriber:      s.Contact,
			VAPIDPublicKey:  s.VAPIDPublicKey,
			VAPIDPrivateKey: s.VAPIDPrivateKey,
			TTL:             86400, // 24 hours
			Urgency:         webpush.UrgencyNormal,
		},
	}, nil
}

type pushPayload struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Context string `json:"context,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Notify implements Notifier.
func (w *WebPush) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(pushPayload{
		Title:   msg.Title,
		Body:    msg.Body,
		Context: msg.Context,
		URL:     msg.URL,
	})
	if err != nil {
		return wrap("webpush", fmt.Errorf("marshaling payload: %w", err))
	}

	opts := w.Options
	resp, err := webpush.SendNotificationWithContext(ctx, payload, w.Subscription, &opts)
	if err != nil {
		return wrap("webpush", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return wrap("webpush", fmt.Errorf("push rejected with status %d", resp.StatusCode))
	}
	return nil
}
