package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/sync"
	"github.com/nhle/humhub-notify/internal/viewer"
	"github.com/nhle/humhub-notify/tests/testutil"
)

type fakePoller struct {
	accept bool
	status sync.Status
	calls  int
}

func (f *fakePoller) Trigger() bool {
	f.calls++
	return f.accept
}

func (f *fakePoller) Status() sync.Status { return f.status }

func makeEchoContext(t *testing.T, srv *Server, method, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return srv.Echo().NewContext(req, rec), rec
}

func TestHandleFetch(t *testing.T) {
	tests := []struct {
		name       string
		accept     bool
		wantStatus string
	}{
		{name: "queued", accept: true, wantStatus: viewer.AckFetching},
		{name: "already queued", accept: false, wantStatus: viewer.AckBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePoller{accept: tt.accept}
			srv := NewServer(p, testutil.NewTestStore(t))

			c, rec := makeEchoContext(t, srv, http.MethodPost, "/fetch")
			require.NoError(t, srv.handleFetch(c))

			assert.Equal(t, http.StatusAccepted, rec.Code)
			var ack viewer.FetchAck
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
			assert.Equal(t, tt.wantStatus, ack.Status)
			_, err := uuid.Parse(ack.RequestID)
			assert.NoError(t, err)
			assert.Equal(t, 1, p.calls)
		})
	}
}

func TestHandleStatus(t *testing.T) {
	st := testutil.NewTestStore(t)
	testutil.Seed(t, st, testutil.Notifications(2))
	require.NoError(t, st.SetBadge(context.Background(), model.Badge{Text: "2", Color: model.BadgeColorNormal}))

	p := &fakePoller{status: sync.Status{
		State:    sync.StateErrored,
		LastRun:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Error:    errors.New("boom"),
		Unread:   2,
		Interval: 5 * time.Minute,
	}}
	srv := NewServer(p, st)

	c, rec := makeEchoContext(t, srv, http.MethodGet, "/status")
	require.NoError(t, srv.handleStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "errored", resp.State)
	assert.Equal(t, "boom", resp.Error)
	assert.Equal(t, "5m0s", resp.Interval)
	assert.Equal(t, 2, resp.Unread)
	assert.Equal(t, "2", resp.Badge.Text)
	assert.NotNil(t, resp.LastFetched)
	assert.NotNil(t, resp.LastRun)
}

func TestRoutes(t *testing.T) {
	srv := NewServer(&fakePoller{accept: true}, testutil.NewTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/fetch", nil)
	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClient(t *testing.T) {
	p := &fakePoller{accept: true, status: sync.Status{State: sync.StateUpdated, Unread: 1}}
	srv := NewServer(p, testutil.NewTestStore(t))
	ts := httptest.NewServer(srv.Echo())
	defer ts.Close()

	client := NewClient(ts.URL)

	ack, err := client.RequestFetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, viewer.AckFetching, ack.Status)

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "updated", status.State)
	assert.Equal(t, 1, status.Unread)
}

func TestClient_DaemonDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.Listener.Addr().String()
	ts.Close()

	_, err := NewClient(addr).RequestFetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is it running")
}

func TestClient_ImplementsTrigger(t *testing.T) {
	var _ viewer.Trigger = NewClient("127.0.0.1:1")
}
