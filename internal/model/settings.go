package model

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AuthMode selects how requests to the HumHub server are authenticated.
type AuthMode string

const (
	AuthSession AuthMode = "session"
	AuthToken   AuthMode = "token"
	AuthJWT     AuthMode = "jwt"
)

// Valid reports whether m is one of the supported modes.
func (m AuthMode) Valid() bool {
	switch m {
	case AuthSession, AuthToken, AuthJWT:
		return true
	}
	return false
}

// Response shapes understood by the notification list adapter.
const (
	ShapeAuto          = "auto"
	ShapeArray         = "array"
	ShapeResults       = "results"
	ShapeNotifications = "notifications"
)

// Keyring keys for the credentials that never go into the YAML file.
const (
	SecretToken         = "humhub-token"
	SecretJWT           = "humhub-jwt"
	SecretSessionCookie = "humhub-session"
)

// Validation errors returned by Settings.Validate.
var (
	ErrMissingServerURL = errors.New("server URL is required")
	ErrMissingToken     = errors.New("an auth token is required for token authentication")
	ErrMissingJWT       = errors.New("a JWT is required for JWT authentication")
)

// WebPushSettings configures the Web Push notification sink.
type WebPushSettings struct {
	SubscriptionFile string `mapstructure:"subscription_file" yaml:"subscription_file"`
	VAPIDPublicKey   string `mapstructure:"vapid_public_key" yaml:"vapid_public_key"`
	VAPIDPrivateKey  string `mapstructure:"vapid_private_key" yaml:"vapid_private_key"`
	Contact          string `mapstructure:"contact" yaml:"contact"`
}

// NotifierSettings selects where new-notification alerts are delivered.
type NotifierSettings struct {
	Terminal        bool            `mapstructure:"terminal" yaml:"terminal"`
	SlackWebhookURL string          `mapstructure:"slack_webhook_url" yaml:"slack_webhook_url"`
	WebPush         WebPushSettings `mapstructure:"webpush" yaml:"webpush"`
}

// Settings is the user configuration read at the start of every operation.
type Settings struct {
	ServerURL           string           `mapstructure:"server_url" yaml:"server_url"`
	AuthMode            AuthMode         `mapstructure:"auth_mode" yaml:"auth_mode"`
	Token               string           `mapstructure:"token" yaml:"token,omitempty"`
	JWTToken            string           `mapstructure:"jwt_token" yaml:"jwt_token,omitempty"`
	SessionCookie       string           `mapstructure:"session_cookie" yaml:"session_cookie,omitempty"`
	PollIntervalMinutes int              `mapstructure:"poll_interval_minutes" yaml:"poll_interval_minutes"`
	NotifyOnNew         bool             `mapstructure:"notify_on_new" yaml:"notify_on_new"`
	PlaySound           bool             `mapstructure:"play_sound" yaml:"play_sound"`
	ResponseShape       string           `mapstructure:"response_shape" yaml:"response_shape"`
	Notifiers           NotifierSettings `mapstructure:"notifiers" yaml:"notifiers"`
	ControlAddr         string           `mapstructure:"control_addr" yaml:"control_addr"`
	DBPath              string           `mapstructure:"db_path" yaml:"db_path"`
}

// Credential returns the secret required by the selected auth mode.
// Session mode has no required credential and returns "".
func (s Settings) Credential() string {
	switch s.AuthMode {
	case AuthToken:
		return s.Token
	case AuthJWT:
		return s.JWTToken
	default:
		return ""
	}
}

// PollInterval returns the polling period, never shorter than a minute.
func (s Settings) PollInterval() time.Duration {
	if s.PollIntervalMinutes < 1 {
		return time.Minute
	}
	return time.Duration(s.PollIntervalMinutes) * time.Minute
}

// OverviewURL is the server page listing all notifications.
func (s Settings) OverviewURL() string {
	if s.ServerURL == "" {
		return ""
	}
	return s.ServerURL + "/notification/overview"
}

// Validate checks the fields a remote request needs, without any I/O.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.ServerURL) == "" {
		return ErrMissingServerURL
	}
	parsed, err := url.Parse(s.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server URL must include scheme and host (e.g., https://humhub.example.com)")
	}
	if !s.AuthMode.Valid() {
		return fmt.Errorf("unknown auth mode %q", s.AuthMode)
	}
	switch s.AuthMode {
	case AuthToken:
		if s.Token == "" {
			return ErrMissingToken
		}
	case AuthJWT:
		if s.JWTToken == "" {
			return ErrMissingJWT
		}
	}
	return nil
}

// normalize fills defaults viper cannot express and tidies user input.
func (s *Settings) normalize() {
	s.ServerURL = strings.TrimRight(strings.TrimSpace(s.ServerURL), "/")
	s.Token = strings.TrimSpace(s.Token)
	s.JWTToken = strings.TrimSpace(s.JWTToken)
	if s.AuthMode == "" {
		s.AuthMode = AuthSession
	}
	if s.PollIntervalMinutes < 1 {
		s.PollIntervalMinutes = 1
	}
	switch s.ResponseShape {
	case ShapeArray, ShapeResults, ShapeNotifications:
	default:
		s.ResponseShape = ShapeAuto
	}
}

// SecretStore looks up credentials kept outside the settings file.
type SecretStore interface {
	Get(key string) (string, error)
}

// SettingsFile loads Settings from a YAML file plus a SecretStore.
type SettingsFile struct {
	Path    string
	Secrets SecretStore
}

// Load reads the settings afresh. It is called at the start of every
// poll and viewer action so changes apply without a restart.
func (f SettingsFile) Load() (Settings, error) {
	return LoadSettings(f.Path, f.Secrets)
}

// ConfigDir returns ~/.config/humhub-notify.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "humhub-notify")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/humhub-notify/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// settingKeys lists every key accepted by SetSetting, with its default.
var settingKeys = map[string]interface{}{
	"server_url":                          "",
	"auth_mode":                           string(AuthSession),
	"poll_interval_minutes":               1,
	"notify_on_new":                       true,
	"play_sound":                          false,
	"response_shape":                      ShapeAuto,
	"notifiers.terminal":                  true,
	"notifiers.slack_webhook_url":         "",
	"notifiers.webpush.subscription_file": "",
	"notifiers.webpush.vapid_public_key":  "",
	"notifiers.webpush.vapid_private_key": "",
	"notifiers.webpush.contact":           "",
	"control_addr":                        "127.0.0.1:7391",
	"db_path":                             "",
	"token":                               "",
	"jwt_token":                           "",
	"session_cookie":                      "",
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HUMHUB_NOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, def := range settingKeys {
		v.SetDefault(key, def)
	}
	return v
}

// readConfig reads path into v, treating a missing file as empty.
func readConfig(v *viper.Viper, path string) error {
	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// LoadSettings reads settings from the YAML file at path using Viper.
// Missing keys resolve to defaults and a missing file yields defaults.
// Credentials absent from the file are looked up in secrets when non-nil.
func LoadSettings(path string, secrets SecretStore) (Settings, error) {
	v := newViper(path)
	if err := readConfig(v, path); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if secrets != nil {
		fillSecret(&s.Token, secrets, SecretToken)
		fillSecret(&s.JWTToken, secrets, SecretJWT)
		fillSecret(&s.SessionCookie, secrets, SecretSessionCookie)
	}

	if s.DBPath == "" {
		s.DBPath = filepath.Join(filepath.Dir(path), "notifications.db")
	}

	s.normalize()
	return s, nil
}

func fillSecret(dst *string, secrets SecretStore, key string) {
	if *dst != "" {
		return
	}
	if value, err := secrets.Get(key); err == nil {
		*dst = value
	}
}

// SaveSettings writes the non-secret settings to a YAML file at path,
// creating parent directories if needed.
func SaveSettings(path string, s Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server_url", s.ServerURL)
	v.Set("auth_mode", string(s.AuthMode))
	v.Set("poll_interval_minutes", s.PollIntervalMinutes)
	v.Set("notify_on_new", s.NotifyOnNew)
	v.Set("play_sound", s.PlaySound)
	v.Set("response_shape", s.ResponseShape)
	v.Set("notifiers.terminal", s.Notifiers.Terminal)
	v.Set("notifiers.slack_webhook_url", s.Notifiers.SlackWebhookURL)
	v.Set("notifiers.webpush.subscription_file", s.Notifiers.WebPush.SubscriptionFile)
	v.Set("notifiers.webpush.vapid_public_key", s.Notifiers.WebPush.VAPIDPublicKey)
	v.Set("notifiers.webpush.vapid_private_key", s.Notifiers.WebPush.VAPIDPrivateKey)
	v.Set("notifiers.webpush.contact", s.Notifiers.WebPush.Contact)
	v.Set("control_addr", s.ControlAddr)
	if s.DBPath != "" && s.DBPath != filepath.Join(dir, "notifications.db") {
		v.Set("db_path", s.DBPath)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// SetSetting updates a single key in the YAML file at path, keeping the
// other keys as they are.
func SetSetting(path, key, value string) error {
	typed, err := parseSettingValue(key, value)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := readConfig(v, path); err != nil {
		return err
	}

	v.Set(key, typed)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// parseSettingValue converts value to the type of key's default and
// rejects values LoadSettings could not read back.
func parseSettingValue(key, value string) (interface{}, error) {
	def, ok := settingKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", key)
	}

	switch key {
	case "auth_mode":
		if !AuthMode(value).Valid() {
			return nil, fmt.Errorf("invalid auth_mode %q: want session, token or jwt", value)
		}
		return value, nil
	case "response_shape":
		switch value {
		case ShapeAuto, ShapeArray, ShapeResults, ShapeNotifications:
			return value, nil
		}
		return nil, fmt.Errorf("invalid response_shape %q: want auto, array, results or notifications", value)
	}

	switch def.(type) {
	case int:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number: %w", key, err)
		}
		if key == "poll_interval_minutes" && n < 1 {
			return nil, fmt.Errorf("%s must be at least 1", key)
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false: %w", key, err)
		}
		return b, nil
	}
	return value, nil
}

// WatchSettings calls onChange whenever the file at path is written.
// The watcher lives for the rest of the process.
func WatchSettings(path string, onChange func()) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		onChange()
	})
	v.WatchConfig()
	return nil
}
