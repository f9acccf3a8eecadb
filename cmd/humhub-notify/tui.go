package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/humhub-notify/internal/app"
	"github.com/nhle/humhub-notify/internal/control"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/notify"
	appsync "github.com/nhle/humhub-notify/internal/sync"
	"github.com/nhle/humhub-notify/internal/viewer"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive notification viewer",
	Long: `Open the interactive notification viewer.

When a daemon is running, refresh requests go to it. Otherwise the viewer
runs its own poller for as long as it is open. Logs are written to
humhub-notify.log next to the settings file.`,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	logPath := filepath.Join(filepath.Dir(configPath), "humhub-notify.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	logFile, err := tea.LogToFile(logPath, "tui")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	loader := settingsFile()
	s, err := loader.Load()
	if err != nil {
		return err
	}

	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	opts := app.Options{
		Settings:     loader,
		SaveSettings: saveSettings,
	}

	var trigger viewer.Trigger
	client := control.NewClient(s.ControlAddr)
	if daemonRunning(ctx, client) {
		log.Printf("tui: using daemon at %s", s.ControlAddr)
		trigger = client
	} else {
		// Alerts are shown inside the UI, so the terminal sink stays off.
		p := appsync.New(st, loader, appsync.WithNotifierFactory(func(s model.Settings) notify.Notifier {
			return notify.FromSettings(s, nil)
		}))
		p.Start(ctx)
		defer p.Stop()
		opts.Poller = p
		trigger = viewer.PollerTrigger{Poller: p}
	}
	opts.Viewer = viewer.New(st, loader, viewer.WithTrigger(trigger))

	prog := tea.NewProgram(app.New(opts), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}

// daemonRunning reports whether a daemon answers on the control endpoint.
func daemonRunning(ctx context.Context, client *control.Client) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, err := client.Status(ctx)
	return err == nil
}
