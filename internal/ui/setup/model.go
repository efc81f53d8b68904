// Package setup is the interactive terminal wizard that writes the
// assistant's settings file.
package setup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mail-assistant/internal/keys"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/theme"
)

// Mode represents the current state of the wizard.
type Mode int

const (
	ModeForm       Mode = iota // Editing settings
	ModeValidating             // Testing the mailbox login
	ModeResult                 // Showing the test result
	ModeDone                   // Saved or aborted
)

// validateTimeout bounds the mailbox login test.
const validateTimeout = 30 * time.Second

// Validator tests the mailbox login and returns the authenticated user.
type Validator func(ctx context.Context, s model.Settings) (string, error)

// Saver persists the settings.
type Saver func(s model.Settings) error

// validateResultMsg carries the result of a connection test.
type validateResultMsg struct {
	name string
	err  error
}

// savedMsg is sent after the settings are persisted.
type savedMsg struct {
	err error
}

// formValues is shared by every copy of Model so the huh form can write
// into it.
type formValues struct {
	emailHost     string
	emailPort     string
	emailUser     string
	emailPassword string
	smtpHost      string
	smtpPort      string
	anthropicKey  string
	autoReply     bool
}

func (v *formValues) settings() model.Settings {
	return model.Settings{
		AnthropicKey:     strings.TrimSpace(v.anthropicKey),
		EmailHost:        strings.TrimSpace(v.emailHost),
		EmailPort:        strings.TrimSpace(v.emailPort),
		EmailUser:        strings.TrimSpace(v.emailUser),
		EmailPassword:    v.emailPassword,
		SMTPHost:         strings.TrimSpace(v.smtpHost),
		SMTPPort:         strings.TrimSpace(v.smtpPort),
		AutoReplyEnabled: v.autoReply,
	}
}

// Model is the Bubble Tea model for the setup wizard.
type Model struct {
	mode     Mode
	form     *huh.Form
	values   *formValues
	validate Validator
	save     Saver
	spinner  spinner.Model
	keys     *keys.KeyMap

	validName string
	validErr  error
	statusMsg string

	// Saved reports whether the settings were written.
	Saved bool

	width, height int
}

// New creates a wizard prefilled with initial.
func New(initial model.Settings, validate Validator, save Saver) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		mode: ModeForm,
		values: &formValues{
			emailHost:     initial.EmailHost,
			emailPort:     initial.EmailPort,
			emailUser:     initial.EmailUser,
			emailPassword: initial.EmailPassword,
			smtpHost:      initial.SMTPHost,
			smtpPort:      initial.SMTPPort,
			anthropicKey:  initial.AnthropicKey,
			autoReply:     initial.AutoReplyEnabled,
		},
		validate: validate,
		save:     save,
		spinner:  sp,
		keys:     keys.DefaultKeyMap(),
		width:    80,
	}
	m.form = m.buildForm()
	return m
}

// Settings returns the values currently entered.
func (m Model) Settings() model.Settings {
	return m.values.settings()
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case validateResultMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		m.validName = msg.name
		m.validErr = msg.err
		m.mode = ModeResult
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving settings: %v", msg.err)
			m.mode = ModeResult
			return m, nil
		}
		m.Saved = true
		m.mode = ModeDone
		return m, tea.Quit

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.mode = ModeDone
			return m, tea.Quit
		}
		switch m.mode {
		case ModeValidating:
			if key.Matches(msg, m.keys.Back) {
				m.validErr = fmt.Errorf("connection test cancelled")
				m.mode = ModeResult
			}
			return m, nil
		case ModeResult:
			return m.handleResultKeys(msg)
		}
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.startValidation()
	case huh.StateAborted:
		m.mode = ModeDone
		return m, tea.Quit
	}
	return m, cmd
}

func (m Model) startValidation() (tea.Model, tea.Cmd) {
	m.mode = ModeValidating
	m.validErr = nil
	m.statusMsg = ""
	return m, tea.Batch(m.spinner.Tick, m.validateCmd())
}

// handleResultKeys processes key events on the validation result screen.
func (m Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		return m, m.saveCmd()
	case key.Matches(msg, m.keys.Retry):
		return m.startValidation()
	case key.Matches(msg, m.keys.Edit):
		m.mode = ModeForm
		m.form = m.buildForm()
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
		m.mode = ModeDone
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) validateCmd() tea.Cmd {
	validate := m.validate
	s := m.values.settings()
	return func() tea.Msg {
		if validate == nil {
			return validateResultMsg{name: s.EmailUser}
		}
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		name, err := validate(ctx, s)
		return validateResultMsg{name: name, err: err}
	}
}

func (m Model) saveCmd() tea.Cmd {
	save := m.save
	s := m.values.settings()
	return func() tea.Msg {
		return savedMsg{err: save(s)}
	}
}

// --- Form ---

func (m Model) buildForm() *huh.Form {
	v := m.values
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Email Settings (IMAP)").
				Description("The mailbox to read and answer."),
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.gmail.com").
				Value(&v.emailHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder(model.DefaultIMAPPort).
				Value(&v.emailPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Email Address").
				Placeholder("you@example.com").
				Value(&v.emailUser).
				Validate(validateRequired("Email Address")),
			huh.NewInput().
				Title("Password").
				Description("Email password or app password").
				EchoMode(huh.EchoModePassword).
				Value(&v.emailPassword),
		),
		huh.NewGroup(
			huh.NewNote().
				Title("SMTP Settings").
				Description("Replies are sent with the same login."),
			huh.NewInput().
				Title("SMTP Host").
				Placeholder("smtp.gmail.com").
				Value(&v.smtpHost).
				Validate(validateRequired("SMTP Host")),
			huh.NewInput().
				Title("SMTP Port").
				Placeholder(model.DefaultSMTPPort).
				Value(&v.smtpPort).
				Validate(validatePort),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Anthropic API Key").
				EchoMode(huh.EchoModePassword).
				Value(&v.anthropicKey),
			huh.NewConfirm().
				Title("Enable automatic replies for basic emails?").
				Affirmative("Yes").
				Negative("No").
				Value(&v.autoReply),
		),
	).WithWidth(m.formWidth())
}

// --- View ---

// View renders the wizard based on the current mode.
func (m Model) View() string {
	var content string
	switch m.mode {
	case ModeForm:
		content = theme.HeaderStyle.Render("Mail Assistant Setup") + "\n\n" + m.form.View()
	case ModeValidating:
		content = fmt.Sprintf("%s Testing mailbox login...\n\n%s",
			m.spinner.View(),
			theme.HelpStyle.Render("esc cancel"))
	case ModeResult:
		content = m.viewResult()
	default:
		return ""
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

func (m Model) viewResult() string {
	var b strings.Builder

	if m.validErr != nil {
		b.WriteString(theme.ErrorStyle.Render("Connection failed"))
		b.WriteString("\n\n")
		b.WriteString(m.validErr.Error())
		b.WriteString("\n\n")
		b.WriteString(theme.HelpStyle.Render(
			"r retry | s save anyway | e edit | esc quit"))
	} else {
		b.WriteString(theme.SuccessStyle.Render("Connection successful"))
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "Authenticated as: %s\n\n", m.validName)
		b.WriteString(theme.HelpStyle.Render(keys.ShortHelp(
			m.keys.Confirm, m.keys.Edit, m.keys.Back)))
	}

	if m.statusMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Render(m.statusMsg))
	}
	return b.String()
}

// --- Helpers ---

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

// validatePort accepts an empty value, which falls back to the default.
func validatePort(s string) error {
	for _, c := range strings.TrimSpace(s) {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}

// Run shows the wizard on the terminal and reports whether settings were
// saved.
func Run(initial model.Settings, validate Validator, save Saver) (bool, error) {
	final, err := tea.NewProgram(New(initial, validate, save)).Run()
	if err != nil {
		return false, fmt.Errorf("running setup: %w", err)
	}
	m, ok := final.(Model)
	return ok && m.Saved, nil
}
