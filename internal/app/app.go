// Package app is the root Bubble Tea model of the notification viewer.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/humhub-notify/internal/keys"
	"github.com/nhle/humhub-notify/internal/model"
	appsync "github.com/nhle/humhub-notify/internal/sync"
	"github.com/nhle/humhub-notify/internal/theme"
	"github.com/nhle/humhub-notify/internal/ui"
	"github.com/nhle/humhub-notify/internal/ui/command"
	configview "github.com/nhle/humhub-notify/internal/ui/config"
	"github.com/nhle/humhub-notify/internal/ui/detail"
	helpview "github.com/nhle/humhub-notify/internal/ui/help"
	"github.com/nhle/humhub-notify/internal/ui/notiflist"
	"github.com/nhle/humhub-notify/internal/viewer"
)

// refreshInterval is how often the stored list is re-read, so fetches
// made by another process show up.
const refreshInterval = 5 * time.Second

// actionTimeout bounds mark-read and fetch requests started from the UI.
const actionTimeout = 30 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewConfig
	ViewHelp
	ViewCommand
)

type snapshotMsg struct {
	snapshot viewer.Snapshot
	err      error
}

type markedMsg struct {
	count int
	all   bool
	err   error
}

type fetchAckMsg struct {
	ack viewer.FetchAck
	err error
}

type copiedMsg struct {
	url string
	err error
}

type tickMsg time.Time

// Options wires the model to the rest of the program.
type Options struct {
	Viewer   *viewer.Service
	Settings appsync.SettingsLoader

	// Poller is the in-process poller, or nil when a daemon owns polling.
	Poller *appsync.Poller

	// SaveSettings persists settings edited in the form.
	SaveSettings func(model.Settings) error

	// Clipboard replaces clipboard.WriteAll.
	Clipboard func(string) error
}

// Model is the root Bubble Tea model that manages view routing, layout
// and the notification snapshot.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	viewer       *viewer.Service
	settings     appsync.SettingsLoader
	poller       *appsync.Poller
	clipboard    func(string) error

	list        notiflist.Model
	detail      detail.Model
	configView  configview.Model
	helpView    helpview.Model
	commandView command.Model

	snapshot         viewer.Snapshot
	ready            bool
	flash            string
	alert            string
	pendingAlert     bool
	authErrorMessage string
}

// New creates the root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()

	cb := opts.Clipboard
	if cb == nil {
		cb = clipboard.WriteAll
	}

	deps := configview.Deps{
		Load: opts.Settings.Load,
		Test: opts.Viewer.TestConnection,
		Save: opts.SaveSettings,
	}

	return Model{
		currentView: ViewList,
		keys:        k,
		viewer:      opts.Viewer,
		settings:    opts.Settings,
		poller:      opts.Poller,
		clipboard:   cb,
		list:        notiflist.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		configView:  configview.New(deps, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}
}

// Init loads the stored list and starts listening for poll results.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSnapshot(), tick()}
	if m.poller != nil {
		cmds = append(cmds, m.poller.WaitForNextResult())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.list.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.configView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case snapshotMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("Error reading notifications: %v", msg.err)
			return m, nil
		}
		m.snapshot = msg.snapshot
		if m.pendingAlert {
			m.pendingAlert = false
			if unread := msg.snapshot.Unread(); len(unread) > 0 {
				m.alert = fmt.Sprintf("New from %s: %s", unread[0].Title(), unread[0].Text())
			}
		}
		if shown, ok := m.detail.Notification(); ok {
			m.detail.SetNotification(findByID(msg.snapshot.Notifications, shown.ID))
		}
		return m, m.list.SetNotifications(msg.snapshot.Notifications)

	case tickMsg:
		return m, tea.Batch(m.loadSnapshot(), tick())

	case appsync.SyncResultMsg:
		if msg.AuthError != nil {
			m.authErrorMessage = msg.AuthError.Message
		} else if msg.Error == nil {
			m.authErrorMessage = ""
		}
		if msg.Notified {
			m.pendingAlert = true
		}
		m.flash = ""
		return m, tea.Batch(m.loadSnapshot(), m.poller.WaitForNextResult())

	case markedMsg:
		switch {
		case msg.err != nil:
			m.flash = fmt.Sprintf("Mark read failed: %v", msg.err)
		case msg.all:
			m.flash = fmt.Sprintf("Marked %d notifications read", msg.count)
			m.alert = ""
		default:
			m.flash = "Marked read"
		}
		return m, m.loadSnapshot()

	case fetchAckMsg:
		switch {
		case msg.err != nil:
			m.flash = fmt.Sprintf("Refresh failed: %v", msg.err)
		case msg.ack.Status == viewer.AckBusy:
			m.flash = "A fetch is already queued"
		default:
			m.flash = "Fetching..."
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("Copy failed: %v", msg.err)
		} else {
			m.flash = "Copied " + msg.url
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(string(msg))

	case configview.ConfigDoneMsg:
		m.currentView = ViewList
		if msg.Saved {
			m.flash = "Settings saved"
			if m.poller != nil {
				m.poller.Reload()
			}
		}
		return m, m.loadSnapshot()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		// The settings form owns every other key while it is open.
		if m.currentView == ViewConfig {
			return m.updateActiveView(msg)
		}

		if m.currentView == ViewCommand {
			if key.Matches(msg, m.keys.Back) {
				m.currentView = m.previousView
				return m, nil
			}
			return m.updateActiveView(msg)
		}

		return m.handleKeyMsg(msg)
	}

	return m.updateActiveView(msg)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
		m.currentView = m.previousView
		return m, nil

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewList:
		m.flash = ""
		m.alert = ""
		return m, nil

	case key.Matches(msg, m.keys.Quit) && m.currentView == ViewList:
		return m, tea.Quit

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus()
	}

	if m.currentView != ViewList && m.currentView != ViewDetail {
		return m.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, m.keys.MarkRead):
		n, ok := m.selected()
		if !ok {
			return m, nil
		}
		if n.Seen {
			m.flash = "Already read"
			return m, nil
		}
		return m, m.markRead(n.ID)

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.markAllRead()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.requestFetch()

	case key.Matches(msg, m.keys.CopyURL):
		n, _ := m.selected()
		return m, m.copyURL(n)
	}

	if m.currentView == ViewDetail {
		return m.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Open):
		n, ok := m.list.Selected()
		if !ok {
			return m, nil
		}
		m.detail.SetNotification(&n)
		m.currentView = ViewDetail
		return m, nil

	case key.Matches(msg, m.keys.ToggleUnread):
		return m, m.list.ToggleUnread()

	case key.Matches(msg, m.keys.Settings):
		m.previousView = m.currentView
		m.currentView = ViewConfig
		return m, m.configView.Init()
	}

	return m.updateActiveView(msg)
}

// selected returns the notification the user is acting on.
func (m Model) selected() (model.Notification, bool) {
	if m.currentView == ViewDetail {
		return m.detail.Notification()
	}
	return m.list.Selected()
}

// executeCommand runs a command typed into the palette.
func (m Model) executeCommand(name string) (tea.Model, tea.Cmd) {
	switch name {
	case "refresh", "fetch":
		return m, m.requestFetch()
	case "read-all":
		return m, m.markAllRead()
	case "unread":
		return m, m.list.ToggleUnread()
	case "settings", "config":
		m.previousView = ViewList
		m.currentView = ViewConfig
		return m, m.configView.Init()
	case "help":
		m.previousView = ViewList
		m.currentView = ViewHelp
		return m, nil
	case "quit", "q":
		return m, tea.Quit
	default:
		m.flash = fmt.Sprintf("Unknown command %q", name)
		return m, nil
	}
}

func findByID(ns []model.Notification, id string) *model.Notification {
	for i := range ns {
		if ns[i].ID == id {
			return &ns[i]
		}
	}
	return nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewConfig:
		m.configView, cmd = m.configView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("HumHub Notifications", m.snapshot.State.Badge, m.stateLabel())
	statusBar := m.layout.RenderStatusBar(m.statusText())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewDetail:
		return m.detail.View()
	case ViewConfig:
		return m.configView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// stateLabel describes the poller: the in-process poller's own state when
// there is one, otherwise what the stored fetch state says.
func (m Model) stateLabel() string {
	state := m.snapshot.State

	label := appsync.StateIdle.String()
	switch {
	case m.poller != nil:
		label = m.poller.Status().State.String()
	case state.LastErrorAt != nil && (state.LastFetched == nil || state.LastErrorAt.After(*state.LastFetched)):
		label = appsync.StateErrored.String()
	case state.LastFetched != nil:
		label = appsync.StateUpdated.String()
	}

	rendered := theme.StateStyle(label).Render(label)
	if state.LastFetched != nil {
		rendered += " " + ui.RelativeTime(*state.LastFetched, time.Now())
	}
	return rendered
}

// statusText picks what the status bar shows, most urgent first.
func (m Model) statusText() string {
	if m.authErrorMessage != "" && m.currentView == ViewList {
		return theme.ErrorStyle.Render(m.authErrorMessage)
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewConfig:
		return "enter next | shift+tab previous | esc cancel"
	case ViewCommand:
		return "enter run | tab complete | esc cancel"
	}

	switch {
	case m.flash != "":
		return theme.FlashStyle.Render(m.flash)
	case m.alert != "":
		return theme.AlertTitleStyle.Render("HumHub Notification") + theme.AlertBodyStyle.Render(m.alert)
	case m.snapshot.State.LastError != "":
		return theme.ErrorStyle.Render("Last fetch failed: " + m.snapshot.State.LastError)
	}
	if m.currentView == ViewDetail {
		return "esc back | enter read | y copy link | j/k scroll"
	}
	return "q quit | ? help | enter read | v details | A read all | r refresh | y copy link | u unread | s settings"
}

// --- Commands ---

func (m Model) loadSnapshot() tea.Cmd {
	v := m.viewer
	return func() tea.Msg {
		snap, err := v.Snapshot(context.Background())
		return snapshotMsg{snapshot: snap, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) markRead(id string) tea.Cmd {
	v := m.viewer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		n, err := v.MarkRead(ctx, id)
		return markedMsg{count: n, err: err}
	}
}

func (m Model) markAllRead() tea.Cmd {
	v := m.viewer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		n, err := v.MarkAllRead(ctx)
		return markedMsg{count: n, all: true, err: err}
	}
}

func (m Model) requestFetch() tea.Cmd {
	v := m.viewer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		ack, err := v.RequestFetch(ctx)
		return fetchAckMsg{ack: ack, err: err}
	}
}

// copyURL copies the notification's own link, or the server's overview
// page when it has none.
func (m Model) copyURL(n model.Notification) tea.Cmd {
	settings := m.settings
	write := m.clipboard
	return func() tea.Msg {
		url := n.SourceURL
		if url == "" {
			s, err := settings.Load()
			if err != nil {
				return copiedMsg{err: err}
			}
			url = s.OverviewURL()
		}
		if url == "" {
			return copiedMsg{err: fmt.Errorf("no server URL configured")}
		}
		return copiedMsg{url: url, err: write(url)}
	}
}
