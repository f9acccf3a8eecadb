package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/humhub-notify/internal/humhub"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/notify"
	"github.com/nhle/humhub-notify/tests/testutil"
)

type fakeFetcher struct {
	mu    gosync.Mutex
	list  []model.Notification
	err   error
	calls int
}

func (f *fakeFetcher) FetchNotifications(context.Context) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.list, f.err
}

func (f *fakeFetcher) set(list []model.Notification, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list, f.err = list, err
}

type recordingNotifier struct {
	mu   gosync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func testSettings() model.Settings {
	return model.Settings{
		ServerURL:           "https://hh.example.com",
		AuthMode:            model.AuthToken,
		Token:               "tok",
		PollIntervalMinutes: 1,
		NotifyOnNew:         true,
	}
}

func newTestPoller(t *testing.T, settings model.Settings) (*Poller, *fakeFetcher, *recordingNotifier) {
	t.Helper()

	fetcher := &fakeFetcher{}
	sink := &recordingNotifier{}
	p := New(testutil.NewTestStore(t),
		LoaderFunc(func() (model.Settings, error) { return settings, nil }),
		WithClientFactory(func(model.Settings) Fetcher { return fetcher }),
		WithNotifierFactory(func(model.Settings) notify.Notifier { return sink }),
	)
	return p, fetcher, sink
}

func TestFetchNow_PersistsAndNotifiesOnIncrease(t *testing.T) {
	p, fetcher, sink := newTestPoller(t, testSettings())
	ctx := context.Background()

	fetcher.set(testutil.Notifications(2), nil)
	res := p.FetchNow(ctx)
	require.NoError(t, res.Error)
	assert.Equal(t, StateUpdated, res.State)
	assert.Equal(t, 2, res.Unread)
	assert.True(t, res.Notified)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, "message 1", sink.msgs[0].Body)
	assert.Equal(t, "HumHub Notification", sink.msgs[0].Title)
	assert.Equal(t, "https://hh.example.com", sink.msgs[0].Context)

	state, err := p.store.GetFetchState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", state.Badge.Text)
	assert.Equal(t, model.BadgeColorNormal, state.Badge.Color)
	assert.Equal(t, 2, state.LastUnreadCount)
	assert.NotNil(t, state.LastFetched)

	// Same payload again: unchanged count, no second alert.
	res = p.FetchNow(ctx)
	assert.False(t, res.Notified)
	assert.Equal(t, 1, sink.count())
}

func TestFetchNow_NotifyDisabled(t *testing.T) {
	settings := testSettings()
	settings.NotifyOnNew = false
	p, fetcher, sink := newTestPoller(t, settings)

	fetcher.set(testutil.Notifications(1), nil)
	res := p.FetchNow(context.Background())
	assert.False(t, res.Notified)
	assert.Equal(t, 0, sink.count())
}

func TestFetchNow_ErrorKeepsListAndSetsErrorBadge(t *testing.T) {
	p, fetcher, _ := newTestPoller(t, testSettings())
	ctx := context.Background()

	fetcher.set(testutil.Notifications(3), nil)
	p.FetchNow(ctx)

	fetcher.set(nil, &humhub.FetchError{Kind: humhub.KindHTTP, Op: "fetch", Status: 500, Err: errors.New("boom")})
	res := p.FetchNow(ctx)
	require.Error(t, res.Error)
	assert.Equal(t, StateErrored, res.State)
	assert.Nil(t, res.AuthError)
	assert.Equal(t, StateErrored, p.Status().State)

	state, err := p.store.GetFetchState(ctx)
	require.NoError(t, err)
	assert.True(t, state.Badge.IsError())
	assert.Contains(t, state.LastError, "boom")
	assert.Equal(t, 3, state.LastUnreadCount)

	list, err := p.store.GetNotifications(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	// Recovery clears the error.
	fetcher.set(testutil.Notifications(3), nil)
	res = p.FetchNow(ctx)
	require.NoError(t, res.Error)
	state, err = p.store.GetFetchState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.LastError)
	assert.Equal(t, "3", state.Badge.Text)
}

func TestFetchNow_AuthError(t *testing.T) {
	p, fetcher, _ := newTestPoller(t, testSettings())

	fetcher.set(nil, &humhub.FetchError{Kind: humhub.KindHTTP, Op: "fetch", Status: 401, Err: errors.New("denied")})
	res := p.FetchNow(context.Background())
	require.NotNil(t, res.AuthError)
	assert.Contains(t, res.AuthError.Message, "authentication failed")
}

func TestFetchNow_SettingsLoadError(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := New(testutil.NewTestStore(t),
		LoaderFunc(func() (model.Settings, error) { return model.Settings{}, errors.New("bad yaml") }),
		WithClientFactory(func(model.Settings) Fetcher { return fetcher }),
	)

	res := p.FetchNow(context.Background())
	require.Error(t, res.Error)
	assert.Equal(t, 0, fetcher.calls)
}

func TestTrigger_Coalesces(t *testing.T) {
	p, _, _ := newTestPoller(t, testSettings())

	assert.True(t, p.Trigger())
	assert.False(t, p.Trigger())
}

func TestStart_RunsInitialFetch(t *testing.T) {
	p, fetcher, _ := newTestPoller(t, testSettings())
	fetcher.set(testutil.Notifications(1), nil)

	p.Start(context.Background())
	defer p.Stop()

	select {
	case res := <-p.Results():
		assert.Equal(t, StateUpdated, res.State)
		assert.Equal(t, 1, res.Unread)
	case <-time.After(5 * time.Second):
		t.Fatal("no result from initial fetch")
	}

	assert.Equal(t, time.Minute, p.Status().Interval)
}

func TestStop_Idempotent(t *testing.T) {
	p, _, _ := newTestPoller(t, testSettings())
	p.Stop()

	p.Start(context.Background())
	p.Stop()
	p.Stop()
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "updated", StateUpdated.String())
	assert.Equal(t, "errored", StateErrored.String())
}
