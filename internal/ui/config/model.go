// Package config is the settings form: server, credentials, polling and
// alert options, with a connection test before saving.
package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/humhub-notify/internal/keys"
	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/theme"
)

// testTimeout bounds the connection test.
const testTimeout = 30 * time.Second

// ConfigMode represents the current state of the settings view.
type ConfigMode int

const (
	ModeLoading        ConfigMode = iota // Reading current settings
	ModeForm                             // Editing
	ModeValidating                       // Testing connection
	ModeValidateResult                   // Show test result
)

// ConfigDoneMsg signals the settings view should close. Saved is true
// when new settings were written.
type ConfigDoneMsg struct {
	Saved bool
}

// ValidateResultMsg carries the result of a connection test.
type ValidateResultMsg struct {
	Message string
	Err     error
}

type settingsLoadedMsg struct {
	settings model.Settings
	err      error
}

type settingsSavedMsg struct {
	err error
}

// Deps are the operations the form needs.
type Deps struct {
	Load func() (model.Settings, error)
	Test func(ctx context.Context, s model.Settings) (string, error)
	Save func(s model.Settings) error
}

// fields is what huh binds to. It lives on the heap so the bindings
// survive Model being copied on every Update.
type fields struct {
	serverURL     string
	authMode      string
	token         string
	jwt           string
	sessionCookie string
	interval      string
	notifyOnNew   bool
	playSound     bool
	shape         string
}

// Model is the Bubble Tea model for the settings form.
type Model struct {
	mode    ConfigMode
	deps    Deps
	base    model.Settings
	fields  *fields
	form    *huh.Form
	spinner spinner.Model

	validMsg   string
	validError error
	statusMsg  string

	keys          *keys.KeyMap
	width, height int
}

// New creates a new settings view model.
func New(deps Deps, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeLoading,
		deps:    deps,
		fields:  &fields{},
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init loads the current settings.
func (m Model) Init() tea.Cmd {
	load := m.deps.Load
	return func() tea.Msg {
		s, err := load()
		return settingsLoadedMsg{settings: s, err: err}
	}
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case settingsLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error loading settings: %v", msg.err)
		}
		m.base = msg.settings
		m.fields = fieldsFrom(msg.settings)
		m.form = m.buildForm()
		m.mode = ModeForm
		return m, m.form.Init()

	case ValidateResultMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		m.validMsg = msg.Message
		m.validError = msg.Err
		if msg.Err == nil {
			return m, m.save()
		}
		m.mode = ModeValidateResult
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.validError = fmt.Errorf("saving settings: %w", msg.err)
			m.mode = ModeValidateResult
			return m, nil
		}
		return m, func() tea.Msg { return ConfigDoneMsg{Saved: true} }

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.updateForm(msg)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeLoading:
		if key.Matches(msg, m.keys.Back) {
			return m, done
		}
		return m, nil

	case ModeForm:
		if key.Matches(msg, m.keys.Back) {
			return m, done
		}
		return m.updateForm(msg)

	case ModeValidating:
		if key.Matches(msg, m.keys.Back) {
			m.form = m.buildForm()
			m.mode = ModeForm
			return m, m.form.Init()
		}
		return m, nil

	case ModeValidateResult:
		return m.handleValidateResultKeys(msg)
	}
	return m, nil
}

func (m Model) handleValidateResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		return m.startValidation()
	case "s":
		return m, m.save()
	case "enter", "esc":
		m.validError = nil
		m.form = m.buildForm()
		m.mode = ModeForm
		return m, m.form.Init()
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.mode != ModeForm || m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.startValidation()
	case huh.StateAborted:
		return m, done
	}

	return m, cmd
}

func (m Model) startValidation() (Model, tea.Cmd) {
	m.mode = ModeValidating
	s := m.Settings()
	test := m.deps.Test
	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()
			msg, err := test(ctx, s)
			return ValidateResultMsg{Message: msg, Err: err}
		},
	)
}

func (m Model) save() tea.Cmd {
	s := m.Settings()
	save := m.deps.Save
	return func() tea.Msg {
		return settingsSavedMsg{err: save(s)}
	}
}

func done() tea.Msg { return ConfigDoneMsg{} }

// Settings returns the settings described by the form, on top of the
// loaded ones so keys the form does not show are kept.
func (m Model) Settings() model.Settings {
	s := m.base
	f := m.fields

	s.ServerURL = strings.TrimRight(strings.TrimSpace(f.serverURL), "/")
	s.AuthMode = model.AuthMode(f.authMode)
	s.Token = strings.TrimSpace(f.token)
	s.JWTToken = strings.TrimSpace(f.jwt)
	s.SessionCookie = strings.TrimSpace(f.sessionCookie)
	if n, err := strconv.Atoi(strings.TrimSpace(f.interval)); err == nil {
		s.PollIntervalMinutes = n
	}
	s.NotifyOnNew = f.notifyOnNew
	s.PlaySound = f.playSound
	s.ResponseShape = f.shape
	return s
}

func fieldsFrom(s model.Settings) *fields {
	authMode := string(s.AuthMode)
	if authMode == "" {
		authMode = string(model.AuthSession)
	}
	shape := s.ResponseShape
	if shape == "" {
		shape = model.ShapeAuto
	}
	interval := s.PollIntervalMinutes
	if interval < 1 {
		interval = 1
	}
	return &fields{
		serverURL:     s.ServerURL,
		authMode:      authMode,
		token:         s.Token,
		jwt:           s.JWTToken,
		sessionCookie: s.SessionCookie,
		interval:      strconv.Itoa(interval),
		notifyOnNew:   s.NotifyOnNew,
		playSound:     s.PlaySound,
		shape:         shape,
	}
}

func (m Model) buildForm() *huh.Form {
	f := m.fields

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Your HumHub instance").
				Placeholder("https://humhub.example.com").
				Value(&f.serverURL).
				Validate(validateURL),
			huh.NewSelect[string]().
				Title("Authentication").
				Options(
					huh.NewOption("Browser session", string(model.AuthSession)),
					huh.NewOption("API token", string(model.AuthToken)),
					huh.NewOption("JWT", string(model.AuthJWT)),
				).
				Value(&f.authMode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API Token").
				Description("Stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&f.token).
				Validate(validateRequired("Token")),
		).WithHideFunc(func() bool { return f.authMode != string(model.AuthToken) }),
		huh.NewGroup(
			huh.NewInput().
				Title("JWT").
				Description("Stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&f.jwt).
				Validate(validateRequired("JWT")),
		).WithHideFunc(func() bool { return f.authMode != string(model.AuthJWT) }),
		huh.NewGroup(
			huh.NewInput().
				Title("Session Cookie").
				Description("Optional Cookie header value copied from a logged-in browser").
				EchoMode(huh.EchoModePassword).
				Value(&f.sessionCookie),
		).WithHideFunc(func() bool { return f.authMode != string(model.AuthSession) }),
		huh.NewGroup(
			huh.NewInput().
				Title("Poll Interval").
				Description("Minutes between checks (minimum 1)").
				Value(&f.interval).
				Validate(validateInterval),
			huh.NewConfirm().
				Title("Alert on new notifications").
				Value(&f.notifyOnNew),
			huh.NewConfirm().
				Title("Play sound with alerts").
				Value(&f.playSound),
			huh.NewSelect[string]().
				Title("Response Shape").
				Description("How the notification list is wrapped in the server response").
				Options(
					huh.NewOption("Detect automatically", model.ShapeAuto),
					huh.NewOption("Bare array", model.ShapeArray),
					huh.NewOption("{\"results\": [...]}", model.ShapeResults),
					huh.NewOption("{\"notifications\": [...]}", model.ShapeNotifications),
				).
				Value(&f.shape),
		),
	).WithWidth(m.formWidth())
}

// --- View ---

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeLoading:
		return m.frame("Loading settings...")
	case ModeForm:
		content := ""
		if m.form != nil {
			content = m.form.View()
		}
		if m.statusMsg != "" {
			content = theme.FlashStyle.Render(m.statusMsg) + "\n\n" + content
		}
		return m.frame(content)
	case ModeValidating:
		return m.frame(fmt.Sprintf("%s Testing connection...\n\nPress esc to cancel.", m.spinner.View()))
	case ModeValidateResult:
		return m.viewValidateResult()
	default:
		return ""
	}
}

func (m Model) viewValidateResult() string {
	hint := lipgloss.NewStyle().Foreground(theme.ColorGray)

	if m.validError != nil {
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		return m.frame(errStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" +
			hint.Render("r retry | s save anyway | enter/esc edit"))
	}

	okStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorGreen)
	return m.frame(okStyle.Render(m.validMsg))
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

// Mode returns the current mode.
func (m Model) Mode() ConfigMode {
	return m.mode
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://humhub.example.com)")
	}
	return nil
}

func validateInterval(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("interval must be a whole number of minutes")
	}
	if n < 1 {
		return fmt.Errorf("interval must be at least 1 minute")
	}
	return nil
}
