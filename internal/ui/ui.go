package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/session"
	"github.com/desertthunder/animx/internal/shared"
	"github.com/desertthunder/animx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConversationListView ViewState = iota
	ChatView
	KeyEntryView
)

// API is the slice of the backend client the TUI needs: conversation CRUD
// plus the ability to swap in a user-supplied key.
type API interface {
	session.ConversationAPI
	SetAPIKey(key string)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	api       API
	sess      *session.Session
	engine    *tasks.GenerationEngine
	credsPath string

	width  int
	height int

	convList    list.Model
	listReady   bool
	promptInput textinput.Model
	keyInput    textinput.Model

	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.GenerationResult
	genErr       error

	err  error
	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
//
// credsPath names the credentials file to update when the user supplies an
// API key through the key-entry view; empty disables persistence.
func NewModel(ctx context.Context, api API, sess *session.Session, engine *tasks.GenerationEngine, credsPath string) *Model {
	prompt := textinput.New()
	prompt.Placeholder = "Describe an animation..."
	prompt.CharLimit = 500

	keyInput := textinput.New()
	keyInput.Placeholder = "Gemini API key"
	keyInput.EchoMode = textinput.EchoPassword

	return &Model{
		ctx:         ctx,
		view:        ConversationListView,
		api:         api,
		sess:        sess,
		engine:      engine,
		credsPath:   credsPath,
		promptInput: prompt,
		keyInput:    keyInput,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init initializes the TUI by fetching the conversation list.
func (m *Model) Init() tea.Cmd {
	return m.fetchConversations()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listReady {
			m.convList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConversationListView:
			return m.handleListKeys(msg)
		case ChatView:
			return m.handleChatKeys(msg)
		case KeyEntryView:
			return m.handleKeyEntryKeys(msg)
		}

	case conversationsFetchedMsg:
		items := make([]list.Item, len(msg.conversations))
		for i, conv := range msg.conversations {
			items[i] = conversationItem{conversation: conv}
		}
		m.convList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.convList.Title = "Conversations"
		m.convList.SetSize(m.width-4, m.height-8)
		m.listReady = true
		return m, nil

	case conversationLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.view = ChatView
		m.promptInput.Focus()
		return m, textinput.Blink

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case generationDoneMsg:
		m.result = msg.result
		m.genErr = msg.err
		m.progressChan = nil
		if errors.Is(msg.err, shared.ErrQuotaExhausted) {
			m.view = KeyEntryView
			m.keyInput.Focus()
			return m, textinput.Blink
		}
		return m, nil
	}

	return m.updateActive(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConversationListView:
		return m.renderConversationList()
	case ChatView:
		return m.renderChat()
	case KeyEntryView:
		return m.renderKeyEntry()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.convList.SelectedItem().(conversationItem); ok {
			return m, m.loadConversation(selected.conversation.ConversationID)
		}

	case key.Matches(msg, m.keys.newConv):
		m.sess.Reset()
		m.err = nil
		m.view = ChatView
		m.promptInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.delete):
		if selected, ok := m.convList.SelectedItem().(conversationItem); ok {
			return m, m.deleteConversation(selected.conversation.ConversationID)
		}

	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchConversations()
	}

	var cmd tea.Cmd
	m.convList, cmd = m.convList.Update(msg)
	return m, cmd
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ConversationListView
		m.promptInput.Blur()
		return m, m.fetchConversations()
	case "enter":
		prompt := strings.TrimSpace(m.promptInput.Value())
		if prompt == "" || m.sess.Loading() {
			return m, nil
		}
		m.promptInput.SetValue("")
		return m, m.startGeneration(prompt)
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m *Model) handleKeyEntryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ChatView
		m.keyInput.Blur()
		m.promptInput.Focus()
		return m, textinput.Blink
	case "enter":
		apiKey := strings.TrimSpace(m.keyInput.Value())
		if apiKey == "" {
			return m, nil
		}
		m.keyInput.SetValue("")
		m.applyAPIKey(apiKey)
		m.view = ChatView
		m.promptInput.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

// applyAPIKey installs the fallback key on the client and session and
// persists it to the credentials file. The halted prompt is not resubmitted;
// the user sends it again.
func (m *Model) applyAPIKey(apiKey string) {
	m.api.SetAPIKey(apiKey)
	m.sess.SetAPIKey(apiKey)

	if m.credsPath == "" {
		return
	}
	creds, err := session.LoadCredentials(m.credsPath)
	if err != nil {
		creds = &session.Credentials{}
	}
	creds.APIKey = apiKey
	if err := creds.Save(m.credsPath); err != nil {
		m.err = fmt.Errorf("failed to save credentials: %w", err)
	}
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ConversationListView:
		if m.listReady {
			m.convList, cmd = m.convList.Update(msg)
		}
	case ChatView:
		m.promptInput, cmd = m.promptInput.Update(msg)
	case KeyEntryView:
		m.keyInput, cmd = m.keyInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchConversations() tea.Cmd {
	return func() tea.Msg {
		m.sess.RefreshConversations(m.ctx)
		return conversationsFetchedMsg{conversations: m.sess.Conversations()}
	}
}

func (m *Model) loadConversation(conversationID string) tea.Cmd {
	return func() tea.Msg {
		conv, err := m.sess.LoadConversation(m.ctx, conversationID)
		return conversationLoadedMsg{conversation: conv, err: err}
	}
}

func (m *Model) deleteConversation(conversationID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.sess.DeleteConversation(m.ctx, conversationID); err != nil {
			return conversationLoadedMsg{err: err}
		}
		m.sess.RefreshConversations(m.ctx)
		return conversationsFetchedMsg{conversations: m.sess.Conversations()}
	}
}

func (m *Model) startGeneration(prompt string) tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.result = nil
	m.genErr = nil

	progress := m.progressChan
	go func() {
		result, err := m.engine.Generate(m.ctx, progress, prompt)
		m.result = result
		m.genErr = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress := m.progressChan
	return func() tea.Msg {
		if progress == nil {
			return generationDoneMsg{result: m.result, err: m.genErr}
		}

		update, ok := <-progress
		if !ok {
			return generationDoneMsg{result: m.result, err: m.genErr}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConversationList() string {
	if !m.listReady {
		return styles.help.Render("Loading conversations...")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.newConv, m.keys.delete, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	body := m.convList.View()
	if m.err != nil {
		body = fmt.Sprintf("%s\n\n%s", body, styles.err.Render(m.err.Error()))
	}
	return fmt.Sprintf("%s\n\n%s", body, helpView)
}

func (m *Model) renderChat() string {
	var b strings.Builder

	title := "New conversation"
	if active := m.sess.ActiveConversation(); active != "" {
		for _, conv := range m.sess.Conversations() {
			if conv.ConversationID == active {
				title = conv.Title
				break
			}
		}
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")

	for _, msg := range m.sess.Transcript() {
		b.WriteString(m.renderMessage(msg))
	}

	if m.sess.Loading() {
		line := m.progress.Message
		if line == "" {
			line = session.InProgressMessage
		}
		b.WriteString(styles.warn.Render(line))
		b.WriteString("\n")
	}

	if lastErr := m.sess.LastError(); lastErr != "" {
		b.WriteString(styles.err.Render(lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.promptInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) renderMessage(msg models.Message) string {
	var b strings.Builder

	switch msg.Role {
	case models.RoleUser:
		b.WriteString(styles.ok.Render("You"))
	case models.RoleAssistant:
		b.WriteString(styles.title.Render("animx"))
	}
	b.WriteString(": ")
	b.WriteString(msg.Content)
	b.WriteString("\n")

	if msg.VideoURL != "" {
		b.WriteString(styles.help.Render(fmt.Sprintf("  %s", msg.VideoURL)))
		b.WriteString("\n")
	}
	if msg.Code != "" {
		b.WriteString(styles.help.Render(fmt.Sprintf("  [%d lines of scene code]", strings.Count(msg.Code, "\n")+1)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderKeyEntry() string {
	title := styles.title.Render("API quota exhausted")
	info := "Enter your own Gemini API key to continue generating.\nThe key is stored locally and sent with every request."

	var errLine string
	if m.err != nil {
		errLine = "\n" + styles.err.Render(m.err.Error())
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s%s\n\n%s\n\n%s", title, info, errLine, m.keyInput.View(), helpView)
}
