package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"

	"github.com/nhle/humhub-notify/internal/badge"
	"github.com/nhle/humhub-notify/internal/humhub"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/notify"
	"github.com/nhle/humhub-notify/internal/store"
)

// State is the poller's position in idle → fetching → updated | errored.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateUpdated
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateUpdated:
		return "updated"
	case StateErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Status is a snapshot of the poller.
type Status struct {
	State    State
	LastRun  time.Time
	Error    error
	Unread   int
	Interval time.Duration
}

// SyncResultMsg is a tea.Msg sent when a fetch completes.
type SyncResultMsg struct {
	State     State
	Unread    int
	Notified  bool
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when the server rejects the credentials.
type AuthErrorMsg struct {
	Message string
}

// SettingsLoader returns the current settings. It is called at the start
// of every fetch.
type SettingsLoader interface {
	Load() (model.Settings, error)
}

// LoaderFunc adapts a function to SettingsLoader.
type LoaderFunc func() (model.Settings, error)

// Load implements SettingsLoader.
func (f LoaderFunc) Load() (model.Settings, error) { return f() }

// Fetcher retrieves the normalized notification list.
type Fetcher interface {
	FetchNotifications(ctx context.Context) ([]model.Notification, error)
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// Poller fetches notifications on a schedule and on demand. All fetches
// run on one goroutine, so a manual refresh never overlaps a scheduled
// poll; triggers that arrive while one is queued are merged.
type Poller struct {
	store     store.Store
	settings  SettingsLoader
	newClient func(model.Settings) Fetcher
	notifier  func(model.Settings) notify.Notifier
	now       func() time.Time

	cron     *cron.Cron
	entryID  cron.EntryID
	interval time.Duration

	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	reloadCh  chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu      gosync.Mutex
	status  Status
	running bool
}

// Option customizes a Poller.
type Option func(*Poller)

// WithClientFactory replaces the HumHub client constructor.
func WithClientFactory(f func(model.Settings) Fetcher) Option {
	return func(p *Poller) {
		p.newClient = f
	}
}

// WithNotifierFactory replaces how alert sinks are built from settings.
func WithNotifierFactory(f func(model.Settings) notify.Notifier) Option {
	return func(p *Poller) {
		p.notifier = f
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// New creates a new Poller with the given store and settings source.
func New(s store.Store, settings SettingsLoader, opts ...Option) *Poller {
	p := &Poller{
		store:    s,
		settings: settings,
		newClient: func(s model.Settings) Fetcher {
			return humhub.NewClient(s)
		},
		notifier: func(s model.Settings) notify.Notifier {
			return notify.FromSettings(s, os.Stdout)
		},
		now:       time.Now,
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		reloadCh:  make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start schedules periodic fetches, queues an initial one and starts
// the goroutine that runs them. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.cron = cron.New()
	p.reschedule()
	p.cron.Start()

	go p.loop(ctx)
	p.Trigger()
}

// Stop halts the schedule and waits for an in-flight fetch to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.cron.Stop().Done()
	<-p.doneCh
}

// Trigger asks for a fetch as soon as possible. It never blocks and
// reports false when a fetch was already queued.
func (p *Poller) Trigger() bool {
	select {
	case p.triggerCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// Reload re-reads the poll interval and reschedules if it changed.
func (p *Poller) Reload() {
	select {
	case p.reloadCh <- struct{}{}:
	default:
	}
}

// Status returns the current poller status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Results returns the channel on which fetch results are published.
func (p *Poller) Results() <-chan SyncResultMsg {
	return p.resultCh
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-p.triggerCh:
			p.FetchNow(ctx)
		case <-p.reloadCh:
			p.reschedule()
		}
	}
}

// reschedule replaces the cron entry when the configured interval
// differs from the scheduled one.
func (p *Poller) reschedule() {
	if p.cron == nil {
		return
	}

	interval := time.Minute
	if s, err := p.settings.Load(); err != nil {
		log.Printf("poller: loading settings: %v", err)
	} else {
		interval = s.PollInterval()
	}
	if interval == p.interval {
		return
	}

	if p.entryID != 0 {
		p.cron.Remove(p.entryID)
	}
	p.entryID = p.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		p.Trigger()
	}))
	p.interval = interval

	p.mu.Lock()
	p.status.Interval = interval
	p.mu.Unlock()

	log.Printf("poller: polling every %s", interval)
}

// FetchNow runs one fetch synchronously: load settings, fetch, persist,
// apply the badge policy and alert. Failures are logged and recorded in
// the store; the previous list is kept. It must not be called
// concurrently with a started Poller.
func (p *Poller) FetchNow(ctx context.Context) SyncResultMsg {
	startedAt := p.now()
	p.setStatus(StateFetching, nil, -1)

	settings, err := p.settings.Load()
	if err != nil {
		return p.fail(ctx, fmt.Errorf("loading settings: %w", err))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	list, err := p.newClient(settings).FetchNotifications(fetchCtx)
	if err != nil {
		return p.fail(ctx, err)
	}

	var d badge.Decision
	unread, err := p.store.ApplyFetch(fetchCtx, list, startedAt, p.now(),
		func(previous int, unread []model.Notification) model.Badge {
			d = badge.Evaluate(previous, unread, settings.NotifyOnNew)
			return d.Badge
		})
	if err != nil {
		return p.fail(ctx, err)
	}

	if d.Notify {
		msg := notify.NewMessage(settings, d.Item)
		if err := p.notifier(settings).Notify(fetchCtx, msg); err != nil {
			log.Printf("poller: delivering alert: %v", err)
		}
	}

	if p.cron != nil && settings.PollInterval() != p.interval {
		p.reschedule()
	}

	p.setStatus(StateUpdated, nil, len(unread))
	result := SyncResultMsg{
		State:    StateUpdated,
		Unread:   len(unread),
		Notified: d.Notify,
	}
	p.sendResult(result)
	return result
}

// fail records err as the outcome of the current fetch.
func (p *Poller) fail(ctx context.Context, err error) SyncResultMsg {
	log.Printf("poller: fetch failed: %v", err)

	// The fetch context may be the reason for the failure.
	recordCtx := context.WithoutCancel(ctx)
	if recErr := p.store.RecordFetchError(recordCtx, err.Error(), p.now()); recErr != nil {
		log.Printf("poller: recording fetch error: %v", recErr)
	}

	p.setStatus(StateErrored, err, -1)
	result := SyncResultMsg{State: StateErrored, Error: err}
	if humhub.IsAuthError(err) {
		result.AuthError = &AuthErrorMsg{
			Message: "authentication failed. Press 's' to update your credentials.",
		}
	}
	p.sendResult(result)
	return result
}

// setStatus updates the status. A negative unread keeps the old count.
func (p *Poller) setStatus(state State, err error, unread int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if unread >= 0 {
		p.status.Unread = unread
	}
	if state == StateUpdated || state == StateErrored {
		p.status.LastRun = p.now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next fetch
// result. Call it again after each SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}
