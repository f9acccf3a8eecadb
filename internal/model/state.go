package model

import "time"

// Badge colors.
const (
	BadgeColorNormal = "#4285F4"
	BadgeColorError  = "#FF0000"
)

// BadgeErrorText is shown instead of a count after a failed fetch.
const BadgeErrorText = "err"

// Badge is the visible counter shown by the viewer.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// IsError reports whether the badge shows the error marker.
func (b Badge) IsError() bool {
	return b.Text == BadgeErrorText
}

// FetchState is the bookkeeping persisted next to the notification list.
type FetchState struct {
	// LastFetched is when the last successful poll completed.
	LastFetched *time.Time `json:"last_fetched,omitempty"`

	// LastError is the message of the most recent failed poll. It is
	// cleared by the next successful poll.
	LastError string `json:"last_error,omitempty"`

	// LastErrorAt is when LastError was recorded.
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`

	// LastUnreadCount is the unread count observed by the last
	// successful poll. The badge policy compares against it.
	LastUnreadCount int `json:"last_unread_count"`

	Badge Badge `json:"badge"`

	// Version increases on every repository mutation.
	Version int64 `json:"version"`
}
