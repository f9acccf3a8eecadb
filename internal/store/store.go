package store

import (
	"context"
	"time"

	"github.com/nhle/humhub-notify/internal/model"
)

// Store defines the persistence interface for the notification
// repository and the fetch bookkeeping that goes with it.
type Store interface {
	// === Notifications ===

	// ReplaceNotifications swaps the stored list for list, in order.
	// Rows marked seen locally at or after startedAt stay seen.
	ReplaceNotifications(
		ctx context.Context,
		list []model.Notification,
		startedAt time.Time,
		fetchedAt time.Time,
	) error
	// ApplyFetch is ReplaceNotifications plus the badge and unread count,
	// committed together.
	ApplyFetch(
		ctx context.Context,
		list []model.Notification,
		startedAt time.Time,
		fetchedAt time.Time,
		eval BadgeFunc,
	) ([]model.Notification, error)
	GetNotifications(ctx context.Context) ([]model.Notification, error)
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationsSeen(ctx context.Context, ids []string, at time.Time) (int, error)
	MarkAllNotificationsSeen(ctx context.Context, at time.Time) (int, error)

	// === Fetch state ===

	GetFetchState(ctx context.Context) (model.FetchState, error)
	RecordFetchError(ctx context.Context, msg string, at time.Time) error
	SetBadge(ctx context.Context, badge model.Badge) error

	Close() error
}
