package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/humhub-notify/internal/model"
)

func unread(messages ...string) []model.Notification {
	list := make([]model.Notification, 0, len(messages))
	for i, m := range messages {
		list = append(list, model.Notification{ID: string(rune('a' + i)), Message: m})
	}
	return list
}

func TestForCount(t *testing.T) {
	assert.Equal(t, model.Badge{Text: "", Color: "#4285F4"}, ForCount(0))
	assert.Equal(t, model.Badge{Text: "3", Color: "#4285F4"}, ForCount(3))
	assert.Equal(t, model.Badge{Text: "err", Color: "#FF0000"}, Error())
	assert.True(t, Error().IsError())
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		previous    int
		unread      []model.Notification
		notifyOnNew bool
		wantNotify  bool
		wantMessage string
		wantText    string
	}{
		{
			name:        "unchanged count stays silent",
			previous:    2,
			unread:      unread("x", "y"),
			notifyOnNew: true,
			wantText:    "2",
		},
		{
			name:        "first unread fires with first item",
			previous:    0,
			unread:      unread("hello"),
			notifyOnNew: true,
			wantNotify:  true,
			wantMessage: "hello",
			wantText:    "1",
		},
		{
			name:        "increase uses first item in server order",
			previous:    1,
			unread:      unread("newest", "older"),
			notifyOnNew: true,
			wantNotify:  true,
			wantMessage: "newest",
			wantText:    "2",
		},
		{
			name:        "disabled alerts",
			previous:    0,
			unread:      unread("hello"),
			notifyOnNew: false,
			wantText:    "1",
		},
		{
			name:        "decrease",
			previous:    5,
			unread:      unread("a"),
			notifyOnNew: true,
			wantText:    "1",
		},
		{
			name:        "empty",
			previous:    0,
			unread:      nil,
			notifyOnNew: true,
			wantText:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.previous, tt.unread, tt.notifyOnNew)
			assert.Equal(t, tt.wantNotify, d.Notify)
			assert.Equal(t, tt.wantText, d.Badge.Text)
			assert.Equal(t, model.BadgeColorNormal, d.Badge.Color)
			if tt.wantNotify {
				assert.Equal(t, tt.wantMessage, d.Item.Message)
			}
		})
	}
}
