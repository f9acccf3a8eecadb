// Package notiflist is the notification list view.
package notiflist

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/humhub-notify/internal/keys"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/theme"
)

// Model is the notification list view component.
type Model struct {
	list       list.Model
	keys       *keys.KeyMap
	all        []model.Notification
	unreadOnly bool
	width      int
	height     int
}

// New creates a new notification list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetStatusBarItemName("notification", "notifications")
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetNotifications replaces the displayed list, keeping the cursor on
// the same notification when it is still present.
func (m *Model) SetNotifications(ns []model.Notification) tea.Cmd {
	m.all = ns
	return m.refresh()
}

// ToggleUnread switches between all notifications and unread only.
func (m *Model) ToggleUnread() tea.Cmd {
	m.unreadOnly = !m.unreadOnly
	return m.refresh()
}

// UnreadOnly reports whether read notifications are hidden.
func (m Model) UnreadOnly() bool {
	return m.unreadOnly
}

func (m *Model) refresh() tea.Cmd {
	selectedID := ""
	if n, ok := m.Selected(); ok {
		selectedID = n.ID
	}

	visible := m.all
	m.list.Title = "Notifications"
	if m.unreadOnly {
		visible = model.Unread(m.all)
		m.list.Title = "Unread"
	}

	items := make([]list.Item, len(visible))
	cursor := 0
	for i, n := range visible {
		items[i] = Item{Notification: n}
		if n.ID == selectedID {
			cursor = i
		}
	}

	cmd := m.list.SetItems(items)
	m.list.Select(cursor)
	return cmd
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// Len returns the number of visible notifications.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list or an empty-state message.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	text := "No notifications."
	if m.unreadOnly && len(m.all) > 0 {
		text = "No unread notifications.\nPress 'u' to show all."
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Italic(true).
		Render(text)
}

// SetSize updates the dimensions of the list view.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
