package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/humhub-notify/internal/humhub"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/ui"
)

// maxMessageWidth keeps list rows on one line in a normal terminal.
const maxMessageWidth = 60

func renderNotifications(ns []model.Notification, now time.Time) string {
	rows := make([][]string, 0, len(ns))
	for _, n := range ns {
		status := "unread"
		if n.Seen {
			status = "read"
		}
		rows = append(rows, []string{
			n.ID,
			status,
			n.Originator,
			ellipsize(strings.Join(strings.Fields(n.Text()), " "), maxMessageWidth),
			ui.RelativeTime(n.CreatedTime(), now),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STATUS", "FROM", "MESSAGE", "AGE").
		Rows(rows...).
		String()
}

func renderSummary(state model.FetchState, unread int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d unread", unread)
	if state.Badge.Text != "" {
		fmt.Fprintf(&b, ", badge %q", state.Badge.Text)
	}
	if state.LastFetched != nil {
		fmt.Fprintf(&b, ", last fetched %s", state.LastFetched.Format(time.RFC3339))
	}
	if state.LastError != "" {
		fmt.Fprintf(&b, "\nlast error: %s", state.LastError)
	}
	return b.String()
}

// settingsRows lists the settings for 'config show', secrets masked.
func settingsRows(s model.Settings) [][]string {
	jwtValue := mask(s.JWTToken)
	if sub := humhub.JWTSubject(s.JWTToken); sub != "" {
		jwtValue += " (sub " + sub + ")"
	}

	return [][]string{
		{"server_url", s.ServerURL},
		{"auth_mode", string(s.AuthMode)},
		{"token", mask(s.Token)},
		{"jwt_token", jwtValue},
		{"session_cookie", mask(s.SessionCookie)},
		{"poll_interval_minutes", strconv.Itoa(s.PollIntervalMinutes)},
		{"notify_on_new", strconv.FormatBool(s.NotifyOnNew)},
		{"play_sound", strconv.FormatBool(s.PlaySound)},
		{"response_shape", s.ResponseShape},
		{"notifiers.terminal", strconv.FormatBool(s.Notifiers.Terminal)},
		{"notifiers.slack_webhook_url", mask(s.Notifiers.SlackWebhookURL)},
		{"notifiers.webpush.subscription_file", s.Notifiers.WebPush.SubscriptionFile},
		{"notifiers.webpush.vapid_public_key", s.Notifiers.WebPush.VAPIDPublicKey},
		{"notifiers.webpush.vapid_private_key", mask(s.Notifiers.WebPush.VAPIDPrivateKey)},
		{"notifiers.webpush.contact", s.Notifiers.WebPush.Contact},
		{"control_addr", s.ControlAddr},
		{"db_path", s.DBPath},
	}
}

func renderSettings(s model.Settings) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "VALUE").
		Rows(settingsRows(s)...).
		String()
}

// mask hides all but the last four characters of a secret.
func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "********"
	default:
		return "****" + secret[len(secret)-4:]
	}
}

func ellipsize(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
