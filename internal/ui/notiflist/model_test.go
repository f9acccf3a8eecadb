package notiflist

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/humhub-notify/internal/keys"
	"github.com/nhle/humhub-notify/internal/model"
)

func sample() []model.Notification {
	return []model.Notification{
		{ID: "1", Message: "first", Originator: "Ann"},
		{ID: "2", Message: "second", Seen: true},
		{ID: "3", Message: "third", Originator: "Bob"},
	}
}

func TestSetNotifications(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetNotifications(sample())

	assert.Equal(t, 3, m.Len())
	n, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "1", n.ID)
}

func TestToggleUnread(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetNotifications(sample())

	m.ToggleUnread()
	assert.True(t, m.UnreadOnly())
	assert.Equal(t, 2, m.Len())

	m.ToggleUnread()
	assert.False(t, m.UnreadOnly())
	assert.Equal(t, 3, m.Len())
}

func TestSetNotifications_KeepsCursor(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetNotifications(sample())
	m.list.Select(2)

	updated := sample()
	updated[0].Seen = true
	m.SetNotifications(updated)

	n, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "3", n.ID)
}

func TestEmptyState(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	_, ok := m.Selected()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "No notifications.")

	m.SetNotifications([]model.Notification{{ID: "1", Seen: true}})
	m.ToggleUnread()
	assert.Contains(t, m.View(), "No unread notifications.")
}

func TestItemDelegate_Render(t *testing.T) {
	now := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	d := ItemDelegate{now: func() time.Time { return now }}

	m := New(keys.DefaultKeyMap(), 120, 20)
	m.SetNotifications([]model.Notification{{
		ID:         "1",
		Message:    "commented\non your post",
		Originator: "Ann",
		CreatedAt:  now.Add(-5 * time.Minute).UnixMilli(),
	}})

	var buf bytes.Buffer
	d.Render(&buf, m.list, 0, m.list.Items()[0])
	out := buf.String()

	assert.Contains(t, out, "Ann")
	assert.Contains(t, out, "commented on your post")
	assert.Contains(t, out, "5m ago")
	assert.Contains(t, out, "●")
}
