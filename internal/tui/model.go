// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// model.go - Bubble Tea model for the chat interface.
//
// Key bindings:
//   Enter        Send the typed message
//   Ctrl+J       Insert a newline in the input
//   Ctrl+N       Start a new chat
//   Ctrl+O       Open the chat picker
//   Ctrl+X       Cancel the in-flight response
//   PgUp/PgDn    Scroll the transcript
//   Ctrl+C, Esc  Quit

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrun-tui/internal/chat"
	"github.com/jeranaias/chatrun-tui/internal/config"
	"github.com/jeranaias/chatrun-tui/internal/model"
	"github.com/jeranaias/chatrun-tui/internal/ollama"
	"github.com/jeranaias/chatrun-tui/internal/store"
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	cfg     *config.Config
	session *chat.Session
	store   *store.Store
	client  *ollama.Client
	theme   *Theme

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Transcript under composition: committed messages come from the
	// session, the live tail from streaming events.
	state        chat.State
	liveThinking string
	liveAnswer   string
	pendingEcho  string

	banner       string
	serverStatus string
	modelName    string

	// Chat picker overlay
	pickerOpen bool
	pickerIdx  int
	pickerRows []model.ChatRecord

	markdown *markdownCache
}

// New builds the initial model. The session's event callbacks must
// already be bridged to the running program (see Run).
func New(cfg *config.Config, session *chat.Session, st *store.Store, client *ollama.Client) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = "| "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	theme := NewTheme(ThemeIsDark(cfg.UI.Theme))

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Spinner),
	)

	return Model{
		cfg:          cfg,
		session:      session,
		store:        st,
		client:       client,
		theme:        theme,
		input:        ta,
		spinner:      sp,
		state:        chat.StateIdle,
		modelName:    client.GetConfig().DefaultModel,
		serverStatus: "probing...",
		markdown:     newMarkdownCache(cfg.UI.Markdown),
	}
}

// Init starts the spinner and the reachability probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, probeServerCmd(m.client))
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case AnswerMsg:
		m.liveAnswer = msg.Text
		m.refreshTranscript(true)
		return m, nil

	case ThinkingMsg:
		m.liveThinking = msg.Text
		m.refreshTranscript(true)
		return m, nil

	case SessionStateMsg:
		m.state = msg.State
		return m, nil

	case SettledMsg:
		return m.handleSettled(msg)

	case StorageErrorMsg:
		m.banner = msg.Text
		return m, expireBannerCmd()

	case bannerExpiredMsg:
		m.banner = ""
		return m, nil

	case ConfigReloadedMsg:
		return m.applyConfig(msg.Config)

	case ServerStatusMsg:
		if msg.Result.Reachable {
			m.serverStatus = "connected"
		} else {
			m.serverStatus = "offline"
			m.banner = "Cannot reach the model server. Start it with `ollama serve`."
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	inputHeight := m.input.Height() + 2 // border
	chromeHeight := headerHeight + statusHeight + inputHeight
	vpHeight := m.height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(m.width - 4)
	m.markdown.setWidth(m.width - 2)
	m.refreshTranscript(false)
	return m
}

// applyConfig folds a re-loaded config into the running interface. The
// theme, markdown rendering, default model, and system prompt take
// effect immediately; the next send picks up the client-side values.
func (m Model) applyConfig(cfg *config.Config) (tea.Model, tea.Cmd) {
	m.cfg = cfg

	m.theme = NewTheme(ThemeIsDark(cfg.UI.Theme))
	m.spinner.Style = m.theme.Spinner

	m.markdown = newMarkdownCache(cfg.UI.Markdown)
	if m.width > 0 {
		m.markdown.setWidth(m.width - 2)
	}

	cc := m.client.GetConfig()
	if cfg.Server.DefaultModel != "" {
		cc.DefaultModel = cfg.Server.DefaultModel
		m.modelName = cfg.Server.DefaultModel
	}
	if cfg.Chat.SystemPrompt != "" {
		cc.SystemPrompt = cfg.Chat.SystemPrompt
	}

	m.refreshTranscript(false)
	m.banner = "Configuration reloaded"
	return m, expireBannerCmd()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pickerOpen {
		return m.handlePickerKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		m.session.Cancel()
		m.persistSelection()
		return m, tea.Quit

	case "ctrl+x":
		m.session.Cancel()
		return m, nil

	case "enter":
		return m.submit()

	case "ctrl+j":
		m.input.InsertString("\n")
		return m, nil

	case "ctrl+n":
		if m.state == chat.StateIdle {
			if err := m.session.NewChat(); err == nil {
				m.liveAnswer = ""
				m.liveThinking = ""
				m.refreshTranscript(false)
			}
		}
		return m, nil

	case "ctrl+o":
		m.pickerRows = m.store.LoadChatHistory()
		m.pickerIdx = 0
		m.pickerOpen = len(m.pickerRows) > 0
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+o", "q":
		m.pickerOpen = false
		return m, nil

	case "up", "k":
		if m.pickerIdx > 0 {
			m.pickerIdx--
		}
		return m, nil

	case "down", "j":
		if m.pickerIdx < len(m.pickerRows)-1 {
			m.pickerIdx++
		}
		return m, nil

	case "enter":
		m.pickerOpen = false
		if m.pickerIdx < len(m.pickerRows) {
			if err := m.session.SelectChat(m.pickerRows[m.pickerIdx].ID); err == nil {
				m.liveAnswer = ""
				m.liveThinking = ""
				m.refreshTranscript(false)
			}
		}
		return m, nil
	}
	return m, nil
}

// submit sends the typed message if the session can accept one.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.state != chat.StateIdle {
		// One completion at a time; the status bar already shows the
		// spinner, so just ignore the keypress.
		return m, nil
	}

	m.input.Reset()
	m.liveAnswer = ""
	m.liveThinking = ""
	m.state = chat.StateSending
	m.pendingEcho = text
	m.refreshTranscript(true)
	return m, sendCmd(m.session, text)
}

func (m Model) handleSettled(msg SettledMsg) (tea.Model, tea.Cmd) {
	m.state = chat.StateIdle
	m.liveAnswer = ""
	m.liveThinking = ""
	m.pendingEcho = ""

	if msg.Err != nil {
		m.banner = msg.Err.Error()
		m.refreshTranscript(false)
		return m, expireBannerCmd()
	}

	if msg.Outcome.Status == chat.StatusCancelled {
		// Silent settle: nothing was committed, nothing to show.
		m.refreshTranscript(false)
		return m, nil
	}

	m.refreshTranscript(true)
	return m, nil
}

// updateComponents forwards a message to the focused components.
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// persistSelection records the open chat and theme for the next launch.
func (m Model) persistSelection() {
	settings := m.store.LoadSettings()
	settings.SelectedChatID = m.session.ChatID()
	if m.theme.IsDark {
		settings.Theme = model.ThemeDark
	} else {
		settings.Theme = model.ThemeLight
	}
	m.store.SaveSettings(settings)
}
