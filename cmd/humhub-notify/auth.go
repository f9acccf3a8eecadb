package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/humhub-notify/internal/credential"
	"github.com/nhle/humhub-notify/internal/model"
)

var (
	authToken         string
	authJWT           string
	authSessionCookie string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage HumHub credentials in the system keyring",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a credential and switch to its auth mode",
	Long: `Store a credential in the system keyring and switch auth_mode to match.

Examples:
  humhub-notify auth set --token <api-token>
  humhub-notify auth set --jwt <jwt>
  humhub-notify auth set --session-cookie 'PHPSESSID=...'`,
	RunE: runAuthSet,
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, key := range []string{model.SecretToken, model.SecretJWT, model.SecretSessionCookie} {
			if err := credential.Delete(key); err != nil {
				return err
			}
		}
		fmt.Println("credentials removed")
		return nil
	},
}

func init() {
	authSetCmd.Flags().StringVar(&authToken, "token", "", "API token (token auth)")
	authSetCmd.Flags().StringVar(&authJWT, "jwt", "", "JSON Web Token (jwt auth)")
	authSetCmd.Flags().StringVar(&authSessionCookie, "session-cookie", "", "Cookie header value (session auth)")
	authSetCmd.MarkFlagsMutuallyExclusive("token", "jwt", "session-cookie")

	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authClearCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	var (
		key   string
		value string
		mode  model.AuthMode
	)
	switch {
	case authToken != "":
		key, value, mode = model.SecretToken, authToken, model.AuthToken
	case authJWT != "":
		key, value, mode = model.SecretJWT, authJWT, model.AuthJWT
	case authSessionCookie != "":
		key, value, mode = model.SecretSessionCookie, authSessionCookie, model.AuthSession
	default:
		return errors.New("one of --token, --jwt or --session-cookie is required")
	}

	if err := credential.Set(key, value); err != nil {
		return err
	}
	if err := model.SetSetting(configPath, "auth_mode", string(mode)); err != nil {
		return err
	}
	fmt.Printf("stored credential, auth_mode is now %s\n", mode)
	return nil
}
