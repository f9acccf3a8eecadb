package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nhle/humhub-notify/internal/theme"
)

// bell is the terminal bell, the only sound a terminal can make.
const bell = "\a"

// Terminal writes alerts as a styled block to Out.
type Terminal struct {
	Out io.Writer
}

// Notify implements Notifier.
func (t *Terminal) Notify(_ context.Context, msg Message) error {
	var b strings.Builder
	if msg.Sound {
		b.WriteString(bell)
	}
	b.WriteString(theme.AlertTitleStyle.Render(msg.Title))
	b.WriteString(theme.AlertBodyStyle.Render(msg.Body))
	b.WriteString("\n")
	if msg.Context != "" || msg.URL != "" {
		b.WriteString(theme.HelpStyle.Render(strings.TrimSpace(msg.Context + "  " + msg.URL)))
		b.WriteString("\n")
	}

	_, err := fmt.Fprint(t.Out, b.String())
	return wrap("terminal", err)
}
