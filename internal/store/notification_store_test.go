package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/tests/testutil"
)

func TestReplaceNotifications_StoresInServerOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	list := []model.Notification{
		{ID: "9", Message: "newest", Originator: "Alice", CreatedAt: 1700000000000, SourceURL: "https://hh/9"},
		{ID: "3", Message: "older", Seen: true},
		{ID: "5", Message: "middle"},
	}
	now := time.Now()
	require.NoError(t, s.ReplaceNotifications(ctx, list, now, now))

	got, err := s.GetNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"9", "3", "5"}, ids(got))
	assert.Equal(t, "Alice", got[0].Originator)
	assert.Equal(t, int64(1700000000000), got[0].CreatedAt)
	assert.Equal(t, "https://hh/9", got[0].SourceURL)
	assert.True(t, got[1].Seen)

	unread, err := s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "5"}, ids(unread))
}

func TestReplaceNotifications_ReplacesWholeList(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	testutil.Seed(t, s, testutil.Notifications(3))
	testutil.Seed(t, s, []model.Notification{{ID: "7", Message: "only"}})

	got, err := s.GetNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids(got))
}

func TestReplaceNotifications_Idempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	payload := testutil.Notifications(4)
	payload[2].Seen = true

	testutil.Seed(t, s, payload)
	first, err := s.GetNotifications(ctx)
	require.NoError(t, err)

	testutil.Seed(t, s, payload)
	second, err := s.GetNotifications(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReplaceNotifications_DuplicateIDs(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	testutil.Seed(t, s, []model.Notification{
		{ID: "1", Message: "first"},
		{ID: "2", Message: "second"},
		{ID: "1", Message: "again", Seen: true},
	})

	got, err := s.GetNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "again", got[0].Message)
	assert.True(t, got[0].Seen)
}

func TestReplaceNotifications_ClearsLastError(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFetchError(ctx, "boom", time.Now()))
	testutil.Seed(t, s, testutil.Notifications(1))

	state, err := s.GetFetchState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.LastError)
	assert.Nil(t, state.LastErrorAt)
	require.NotNil(t, state.LastFetched)
}

func TestReplaceNotifications_KeepsMarksNewerThanPoll(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	testutil.Seed(t, s, testutil.Notifications(2))

	// The poll starts, the user marks "1" read, then the stale payload lands.
	pollStarted := base
	_, err := s.MarkNotificationsSeen(ctx, []string{"1"}, base.Add(time.Second))
	require.NoError(t, err)
	require.NoError(t, s.ReplaceNotifications(ctx, testutil.Notifications(2), pollStarted, base.Add(2*time.Second)))

	got, err := s.GetNotifications(ctx)
	require.NoError(t, err)
	assert.True(t, got[0].Seen, "local mark must survive a poll that started earlier")
	require.NotNil(t, got[0].SeenLocallyAt)
	assert.False(t, got[1].Seen)

	// A later poll that still reports it unread wins.
	require.NoError(t, s.ReplaceNotifications(ctx, testutil.Notifications(2), base.Add(time.Minute), base.Add(time.Minute)))
	got, err = s.GetNotifications(ctx)
	require.NoError(t, err)
	assert.False(t, got[0].Seen)
	assert.Nil(t, got[0].SeenLocallyAt)
}

func TestMarkNotificationsSeen_OnlyGivenIDs(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	testutil.Seed(t, s, testutil.Notifications(3))
	before, err := s.GetFetchState(ctx)
	require.NoError(t, err)

	n, err := s.MarkNotificationsSeen(ctx, []string{"2", "missing"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetNotifications(ctx)
	require.NoError(t, err)
	assert.False(t, got[0].Seen)
	assert.True(t, got[1].Seen)
	assert.False(t, got[2].Seen)

	after, err := s.GetFetchState(ctx)
	require.NoError(t, err)
	assert.Greater(t, after.Version, before.Version)
}

func TestMarkNotificationsSeen_Empty(t *testing.T) {
	s := testutil.NewTestStore(t)

	n, err := s.MarkNotificationsSeen(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMarkAllNotificationsSeen(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	list := testutil.Notifications(3)
	list[0].Seen = true
	testutil.Seed(t, s, list)

	n, err := s.MarkAllNotificationsSeen(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	unread, err := s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func ids(list []model.Notification) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}
