package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/store"
	appsync "github.com/nhle/humhub-notify/internal/sync"
	"github.com/nhle/humhub-notify/internal/viewer"
	"github.com/nhle/humhub-notify/tests/testutil"
)

type fixture struct {
	store    *store.SQLiteStore
	settings model.Settings
	copied   []string
	hits     int
}

func newFixture(t *testing.T, status int) *fixture {
	t.Helper()
	f := &fixture{store: testutil.NewTestStore(t)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	f.settings = model.Settings{ServerURL: srv.URL, AuthMode: model.AuthToken, Token: "tok"}
	testutil.Seed(t, f.store, testutil.Notifications(3))
	return f
}

func (f *fixture) model(t *testing.T) Model {
	t.Helper()
	loader := appsync.LoaderFunc(func() (model.Settings, error) { return f.settings, nil })
	m := New(Options{
		Viewer:       viewer.New(f.store, loader),
		Settings:     loader,
		SaveSettings: func(model.Settings) error { return nil },
		Clipboard: func(s string) error {
			f.copied = append(f.copied, s)
			return nil
		},
	})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)
	updated, _ = m.Update(m.loadSnapshot()())
	return updated.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(k)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLoadSnapshot(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)

	assert.Len(t, m.snapshot.Notifications, 3)
	assert.Equal(t, 3, m.list.Len())
	assert.Contains(t, m.View(), "message 1")
}

func TestMarkRead_Selected(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)

	m, cmd := press(t, m, runes("m"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, markedMsg{}, msg)
	assert.NoError(t, msg.(markedMsg).err)

	updated, _ := m.Update(msg)
	m = updated.(Model)
	assert.Equal(t, "Marked read", m.flash)

	unread, err := f.store.GetUnreadNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "2", unread[0].ID)
}

func TestMarkAllRead_Failure(t *testing.T) {
	f := newFixture(t, http.StatusInternalServerError)
	m := f.model(t)

	_, cmd := press(t, m, runes("A"))
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	assert.Contains(t, m.flash, "Mark read failed")
	unread, err := f.store.GetUnreadNotifications(context.Background())
	require.NoError(t, err)
	assert.Len(t, unread, 3)
}

func TestCopyURL(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)

	_, cmd := press(t, m, runes("y"))
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	require.Len(t, f.copied, 1)
	assert.Equal(t, f.settings.ServerURL+"/notification/overview", f.copied[0])
	assert.Contains(t, m.flash, "Copied")
}

func TestRefresh_NoPoller(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)

	_, cmd := press(t, m, runes("r"))
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	assert.Contains(t, m.flash, "Refresh failed")
}

func TestHelpToggle(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)

	m, _ = press(t, m, runes("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.currentView)
}

func TestSyncResult_AuthErrorShown(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)
	m.poller = appsync.New(f.store, appsync.LoaderFunc(func() (model.Settings, error) { return f.settings, nil }))

	updated, _ := m.Update(appsync.SyncResultMsg{
		State:     appsync.StateErrored,
		AuthError: &appsync.AuthErrorMsg{Message: "authentication failed"},
	})
	m = updated.(Model)
	assert.Contains(t, m.statusText(), "authentication failed")
}

func TestSnapshot_PendingAlert(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)
	m.pendingAlert = true

	updated, _ := m.Update(m.loadSnapshot()())
	m = updated.(Model)
	assert.False(t, m.pendingAlert)
	assert.Contains(t, m.alert, "message 1")
}

func TestQuit(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)

	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestDetailView(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)

	m, _ = press(t, m, runes("v"))
	require.Equal(t, ViewDetail, m.currentView)
	assert.Contains(t, m.View(), "message 1")

	_, cmd := press(t, m, runes("m"))
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	updated, _ = m.Update(m.loadSnapshot()())
	m = updated.(Model)

	shown, ok := m.detail.Notification()
	require.True(t, ok)
	assert.True(t, shown.Seen)

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	updated, _ = m.Update(cmd())
	assert.Equal(t, ViewList, updated.(Model).currentView)
}

func TestCommandPalette(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	m := f.model(t)

	m, _ = press(t, m, runes(":"))
	require.Equal(t, ViewCommand, m.currentView)

	m, _ = press(t, m, runes("unread"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	assert.Equal(t, ViewList, m.currentView)
	assert.True(t, m.list.UnreadOnly())

	updated, _ = m.executeCommand("bogus")
	assert.Contains(t, updated.(Model).flash, "Unknown command")
}
