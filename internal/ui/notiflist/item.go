package notiflist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/theme"
	"github.com/nhle/humhub-notify/internal/ui"
)

// Item wraps a notification to satisfy the list.Item interface.
type Item struct {
	model.Notification
}

// FilterValue returns the string used for filtering.
func (i Item) FilterValue() string {
	return i.Originator + " " + i.Message
}

// ItemDelegate renders notifications as single lines in a list.
type ItemDelegate struct {
	now func() time.Time
}

// Height returns the number of lines each item occupies.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles messages for the delegate. No-op for our use case.
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single notification.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification
	isSelected := index == m.Index()

	prefix := "  "
	if isSelected {
		prefix = "> "
	}

	marker := " "
	if !n.Seen {
		marker = theme.UnreadMarkerStyle.Render("●")
	}

	now := time.Now
	if d.now != nil {
		now = d.now
	}
	age := theme.TimeStyle.Render(ui.RelativeTime(n.CreatedTime(), now()))

	text := singleLine(n.Text())
	if !n.Seen {
		text = lipgloss.NewStyle().Bold(true).Render(text)
	} else {
		text = theme.ReadStyle.Render(text)
	}

	line := fmt.Sprintf("%s%s %s %s  %s",
		prefix, marker, theme.OriginatorStyle.Render(n.Title()), text, age)

	if width := m.Width(); width > 0 && lipgloss.Width(line) > width {
		line = truncate(line, width)
	}

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// singleLine collapses whitespace so a message never wraps the row.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, width int) string {
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
