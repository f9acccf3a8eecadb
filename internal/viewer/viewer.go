// Package viewer implements the user-facing operations on the persisted
// notification list: reading it, marking items read, testing the
// connection and asking the poller for a fresh fetch.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/humhub-notify/internal/badge"
	"github.com/nhle/humhub-notify/internal/humhub"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/store"
	"github.com/nhle/humhub-notify/internal/sync"
)

// Remote is the subset of the HumHub client the viewer needs.
type Remote interface {
	MarkSeen(ctx context.Context, ids []string) ([]string, error)
	MarkAllSeen(ctx context.Context) error
	Probe(ctx context.Context) (int, error)
}

// Trigger asks the poller for a fetch, in process or over the control
// endpoint.
type Trigger interface {
	RequestFetch(ctx context.Context) (FetchAck, error)
}

// PollerTrigger adapts an in-process poller to Trigger.
type PollerTrigger struct {
	Poller interface{ Trigger() bool }
}

// RequestFetch implements Trigger.
func (t PollerTrigger) RequestFetch(context.Context) (FetchAck, error) {
	return NewFetchAck(t.Poller.Trigger()), nil
}

// FetchAck acknowledges a fetch request.
type FetchAck struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

// Ack statuses.
const (
	AckFetching = "fetching"
	AckBusy     = "busy"
)

// NewFetchAck returns the acknowledgment for a trigger outcome.
func NewFetchAck(accepted bool) FetchAck {
	status := AckFetching
	if !accepted {
		status = AckBusy
	}
	return FetchAck{Status: status, RequestID: uuid.New().String()}
}

// Snapshot is the persisted state shown to the user.
type Snapshot struct {
	Notifications []model.Notification
	State         model.FetchState
}

// Unread returns the unread subset in server order.
func (s Snapshot) Unread() []model.Notification {
	return model.Unread(s.Notifications)
}

// Service implements the viewer operations.
type Service struct {
	store     store.Store
	settings  sync.SettingsLoader
	newRemote func(model.Settings) Remote
	trigger   Trigger
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithRemoteFactory replaces the HumHub client constructor.
func WithRemoteFactory(f func(model.Settings) Remote) Option {
	return func(s *Service) {
		s.newRemote = f
	}
}

// WithTrigger sets where fetch requests go.
func WithTrigger(t Trigger) Option {
	return func(s *Service) {
		s.trigger = t
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a viewer Service.
func New(st store.Store, settings sync.SettingsLoader, opts ...Option) *Service {
	s := &Service{
		store:    st,
		settings: settings,
		newRemote: func(s model.Settings) Remote {
			return humhub.NewClient(s)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot reads the stored list and fetch state.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	list, err := s.store.GetNotifications(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	state, err := s.store.GetFetchState(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Notifications: list, State: state}, nil
}

// MarkRead asks the server to mark ids as seen and, for the ids it
// acknowledged, flips seen locally. Nothing is re-fetched. On failure
// the error is logged and returned; ids the server did not acknowledge
// stay unread locally.
func (s *Service) MarkRead(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	settings, err := s.settings.Load()
	if err != nil {
		return 0, fmt.Errorf("loading settings: %w", err)
	}

	acked, remoteErr := s.newRemote(settings).MarkSeen(ctx, ids)
	if remoteErr != nil {
		log.Printf("viewer: marking %v read: %v", ids, remoteErr)
	}

	n, err := s.store.MarkNotificationsSeen(ctx, acked, s.now())
	if err != nil {
		return 0, err
	}
	return n, remoteErr
}

// MarkAllRead asks the server to mark everything as seen, then flips
// every local row and blanks the badge.
func (s *Service) MarkAllRead(ctx context.Context) (int, error) {
	settings, err := s.settings.Load()
	if err != nil {
		return 0, fmt.Errorf("loading settings: %w", err)
	}

	if err := s.newRemote(settings).MarkAllSeen(ctx); err != nil {
		log.Printf("viewer: marking all read: %v", err)
		return 0, err
	}

	n, err := s.store.MarkAllNotificationsSeen(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if err := s.store.SetBadge(ctx, badge.ForCount(0)); err != nil {
		return n, err
	}
	return n, nil
}

// TestConnection validates settings and issues one probe request shaped
// like a fetch. It never touches the store.
func (s *Service) TestConnection(ctx context.Context, settings model.Settings) (string, error) {
	if err := settings.Validate(); err != nil {
		return "", err
	}

	n, err := s.newRemote(settings).Probe(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Connection successful (%d notifications)", n), nil
}

// RequestFetch asks the poller to fetch now and returns the ack.
func (s *Service) RequestFetch(ctx context.Context) (FetchAck, error) {
	if s.trigger == nil {
		return FetchAck{}, errors.New("no poller to notify")
	}
	return s.trigger.RequestFetch(ctx)
}
