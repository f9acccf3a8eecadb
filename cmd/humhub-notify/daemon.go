package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/humhub-notify/internal/control"
	"github.com/nhle/humhub-notify/internal/model"
	appsync "github.com/nhle/humhub-notify/internal/sync"
)

var daemonAddr string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the poller in the foreground",
	Long: `Run the notification poller until interrupted.

The poller fetches once at startup and then every poll interval. Edits to
the settings file are picked up immediately. A control endpoint on
control_addr (or --addr) lets 'refresh' and the TUI request a fetch.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&daemonAddr, "addr", "", "Control endpoint address (defaults to control_addr)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := appsync.New(st, loader)
	p.Start(ctx)
	defer p.Stop()

	if err := model.WatchSettings(configPath, func() {
		log.Printf("daemon: settings changed, rescheduling")
		p.Reload()
	}); err != nil {
		log.Printf("daemon: not watching settings: %v", err)
	}

	addr := daemonAddr
	if addr == "" {
		addr = s.ControlAddr
	}

	srv := control.NewServer(p, st)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()
	log.Printf("daemon: polling %s every %s, control endpoint on %s", s.ServerURL, s.PollInterval(), addr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("control endpoint: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("daemon: shutting down control endpoint: %v", err)
	}
	log.Printf("daemon: stopped")
	return nil
}
