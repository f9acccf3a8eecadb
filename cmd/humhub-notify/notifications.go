package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/humhub-notify/internal/control"
	"github.com/nhle/humhub-notify/internal/model"
	appsync "github.com/nhle/humhub-notify/internal/sync"
	"github.com/nhle/humhub-notify/internal/viewer"
)

var listUnread bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch notifications once and exit",
	Long:  "Fetch notifications once, update the local list and badge, raise alerts for new ones and exit.",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		res := appsync.New(st, loader).FetchNow(cmd.Context())
		if res.Error != nil {
			return res.Error
		}
		fmt.Printf("%d unread\n", res.Unread)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ask the running daemon to fetch now",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFile().Load()
		if err != nil {
			return err
		}

		ack, err := control.NewClient(s.ControlAddr).RequestFetch(cmd.Context())
		if err != nil {
			return err
		}
		if ack.Status == viewer.AckBusy {
			fmt.Printf("a fetch is already queued (request %s)\n", ack.RequestID)
			return nil
		}
		fmt.Printf("fetching (request %s)\n", ack.RequestID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withViewer(func(s model.Settings, v *viewer.Service) error {
			snap, err := v.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			ns := snap.Notifications
			if listUnread {
				ns = snap.Unread()
			}
			fmt.Println(renderSummary(snap.State, len(snap.Unread())))
			if len(ns) == 0 {
				fmt.Println("no notifications")
				return nil
			}
			fmt.Println(renderNotifications(ns, time.Now()))
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <id>...",
	Short: "Mark notifications as read",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withViewer(func(s model.Settings, v *viewer.Service) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			n, err := v.MarkRead(ctx, args...)
			fmt.Printf("marked %d of %d read\n", n, len(args))
			return err
		})
	},
}

var readAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withViewer(func(s model.Settings, v *viewer.Service) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			n, err := v.MarkAllRead(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("marked %d read\n", n)
			return nil
		})
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the server and credentials work",
	Long:  "Validate the settings and make one request like a fetch. The stored list is not changed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withViewer(func(s model.Settings, v *viewer.Service) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			msg, err := v.TestConnection(ctx, s)
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}
			fmt.Println(msg)
			return nil
		})
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listUnread, "unread", "u", false, "Only show unread notifications")
}
