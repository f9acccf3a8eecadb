package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/humhub-notify/internal/credential"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/store"
	"github.com/nhle/humhub-notify/internal/viewer"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "humhub-notify",
	Short: "HumHub notification poller and viewer",
	Long: `Polls a HumHub server for notifications, keeps them in a local
database, raises alerts when new ones arrive and lets you read and
mark them from the terminal.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", model.DefaultConfigPath(), "Path to the settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Include file and line in log output")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(readAllCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// settingsFile is the loader every command reads settings through.
func settingsFile() model.SettingsFile {
	return model.SettingsFile{Path: configPath, Secrets: credential.Store{}}
}

// openStore opens the notification database named by the settings.
func openStore(s model.Settings) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(s.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.NewSQLiteStore(s.DBPath)
}

// withViewer loads settings, opens the store and runs fn with a viewer
// service over it.
func withViewer(fn func(model.Settings, *viewer.Service) error, opts ...viewer.Option) error {
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

	return fn(s, viewer.New(st, loader, opts...))
}

// saveSettings writes the settings file and moves credentials into the
// keyring.
func saveSettings(s model.Settings) error {
	if err := model.SaveSettings(configPath, s); err != nil {
		return err
	}
	return syncSecrets(s, credential.Set, credential.Delete)
}

// syncSecrets stores each non-empty credential and removes cleared ones,
// so a blanked field does not fall back to the old keyring entry.
func syncSecrets(s model.Settings, set func(key, value string) error, del func(key string) error) error {
	secrets := map[string]string{
		model.SecretToken:         s.Token,
		model.SecretJWT:           s.JWTToken,
		model.SecretSessionCookie: s.SessionCookie,
	}
	for key, value := range secrets {
		if value == "" {
			if err := del(key); err != nil {
				return err
			}
			continue
		}
		if err := set(key, value); err != nil {
			return err
		}
	}
	return nil
}
