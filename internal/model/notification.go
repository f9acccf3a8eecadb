package model

import "time"

// Notification is a single HumHub notification after normalization.
type Notification struct {
	// ID is the server-side identifier, always rendered as a string.
	ID string `json:"id"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Seen reports whether the notification has been read.
	Seen bool `json:"seen"`

	// Originator is the display name of the user who triggered it.
	Originator string `json:"originator,omitempty"`

	// CreatedAt is the creation time in epoch milliseconds.
	CreatedAt int64 `json:"created_at"`

	// SourceURL links to the content the notification is about.
	SourceURL string `json:"source_url,omitempty"`

	// SeenLocallyAt is set when a mark-read was applied locally and
	// not yet confirmed by a subsequent poll.
	SeenLocallyAt *time.Time `json:"seen_locally_at,omitempty"`
}

// CreatedTime returns CreatedAt as a time.Time, or the zero time when unset.
func (n Notification) CreatedTime() time.Time {
	if n.CreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(n.CreatedAt)
}

// Title returns the originator name, falling back to "HumHub".
func (n Notification) Title() string {
	if n.Originator != "" {
		return n.Originator
	}
	return "HumHub"
}

// Text returns the message, falling back to a generic label.
func (n Notification) Text() string {
	if n.Message != "" {
		return n.Message
	}
	return "New notification"
}

// Unread returns the notifications with Seen == false, preserving order.
func Unread(list []Notification) []Notification {
	unread := make([]Notification, 0, len(list))
	for _, n := range list {
		if !n.Seen {
			unread = append(unread, n)
		}
	}
	return unread
}
