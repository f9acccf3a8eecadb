package testutil

import (
	"strconv"
	"testing"
	"time"

	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Notifications builds unread notifications with ids "1".."n" and
// messages "message 1".."message n".
func Notifications(n int) []model.Notification {
	list := make([]model.Notification, 0, n)
	for i := 1; i <= n; i++ {
		list = append(list, model.Notification{
			ID:        strconv.Itoa(i),
			Message:   "message " + strconv.Itoa(i),
			CreatedAt: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC).UnixMilli(),
		})
	}
	return list
}

// Seed stores list as if a poll had just completed.
func Seed(t *testing.T, s *store.SQLiteStore, list []model.Notification) {
	t.Helper()

	now := time.Now()
	if err := s.ReplaceNotifications(t.Context(), list, now, now); err != nil {
		t.Fatalf("seeding notifications: %v", err)
	}
}
