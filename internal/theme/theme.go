package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/humhub-notify/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// ErrorStyle renders the last fetch error in the status bar.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// PanelStyle frames overlay panels such as help.
var PanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(1, 2)

// ListItemStyle is the default style for list items.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(1)

// SelectedItemStyle highlights the currently selected list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Bold(true)

// ReadStyle renders notifications that have already been seen.
var ReadStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// FlashStyle renders transient feedback in the status bar.
var FlashStyle = lipgloss.NewStyle().
	Foreground(ColorYellow).
	Italic(true)

// UnreadMarkerStyle draws the dot in front of unread notifications.
var UnreadMarkerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// OriginatorStyle renders the user who triggered a notification.
var OriginatorStyle = lipgloss.NewStyle().
	Foreground(ColorYellow).
	Bold(true)

// TimeStyle renders relative timestamps.
var TimeStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// AlertTitleStyle is the title of a terminal alert for a new notification.
var AlertTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// AlertBodyStyle is the message of a terminal alert.
var AlertBodyStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	PaddingLeft(1)

// BadgeStyle renders the unread counter in the badge's own color.
func BadgeStyle(b model.Badge) lipgloss.Style {
	color := b.Color
	if color == "" {
		color = model.BadgeColorNormal
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// StateStyle returns a color-coded style for the given poller state.
func StateStyle(state string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch state {
	case "fetching":
		return base.Foreground(ColorYellow)
	case "updated":
		return base.Foreground(ColorGreen)
	case "errored":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}
