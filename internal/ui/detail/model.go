package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/humhub-notify/internal/keys"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/theme"
	"github.com/nhle/humhub-notify/internal/ui"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Model shows one notification in full.
type Model struct {
	notification *model.Notification
	viewport     viewport.Model
	keys         *keys.KeyMap
	width        int
	height       int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg { return BackMsg{} }
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.notification == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notification selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	n := m.notification
	var b strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render(n.Title())
	b.WriteString(title)
	b.WriteString("\n\n")

	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(10)

	status := theme.UnreadMarkerStyle.Render("unread")
	if n.Seen {
		status = theme.ReadStyle.Render("read")
	}
	fmt.Fprintf(&b, "%s%s\n", label.Render("Status"), status)

	if created := n.CreatedTime(); !created.IsZero() {
		fmt.Fprintf(&b, "%s%s (%s)\n", label.Render("Created"),
			created.Local().Format("Mon Jan 2 15:04"), ui.RelativeTime(created, time.Now()))
	}
	if n.SourceURL != "" {
		fmt.Fprintf(&b, "%s%s\n", label.Render("Link"), n.SourceURL)
	}
	fmt.Fprintf(&b, "%s%s\n", label.Render("ID"), n.ID)

	b.WriteString("\n")
	body := lipgloss.NewStyle().Width(max(m.width-2, 20)).Render(n.Text())
	b.WriteString(body)

	return b.String()
}

// SetNotification shows n, or clears the view when n is nil.
func (m *Model) SetNotification(n *model.Notification) {
	m.notification = n
	if n != nil {
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
	}
}

// Notification returns the notification on display.
func (m Model) Notification() (model.Notification, bool) {
	if m.notification == nil {
		return model.Notification{}, false
	}
	return *m.notification, true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.notification != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
