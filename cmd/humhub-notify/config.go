package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/humhub-notify/internal/credential"
	"github.com/nhle/humhub-notify/internal/model"
)

// secretSettings maps setting keys that belong in the keyring to their
// keyring entry.
var secretSettings = map[string]string{
	"token":          model.SecretToken,
	"jwt_token":      model.SecretJWT,
	"session_cookie": model.SecretSessionCookie,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one setting",
	Long: `Set one setting in the settings file. Credentials (token, jwt_token,
session_cookie) go to the system keyring instead.

Examples:
  humhub-notify config set server_url https://humhub.example.com
  humhub-notify config set poll_interval_minutes 5
  humhub-notify config set notifiers.slack_webhook_url https://hooks.slack.com/...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if secret, ok := secretSettings[key]; ok {
			if err := credential.Set(secret, value); err != nil {
				return err
			}
			fmt.Printf("%s stored in keyring\n", key)
			return nil
		}

		if err := model.SetSetting(configPath, key, value); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", key, value)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFile().Load()
		if err != nil {
			return err
		}
		fmt.Println(configPath)
		fmt.Println(renderSettings(s))
		if err := s.Validate(); err != nil {
			fmt.Printf("warning: %v\n", err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}
