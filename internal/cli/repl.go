package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/yolodolo42/deskpilot/internal/agent"
	"github.com/yolodolo42/deskpilot/internal/ui"
)

// chatMessage represents a line of output in the session view
type chatMessage struct {
	role    string // "user", "assistant", "thinking", "tool", "result", "error", "system"
	content string
	blocks  []agent.UIBlock
	time    time.Time
}

// model represents the REPL state
type model struct {
	agent    *agent.Agent
	app      *app
	prompt   ui.Prompt
	viewport viewport.Model
	spinner  spinner.Model
	selector *ui.Selector
	markdown *glamour.TermRenderer
	messages []chatMessage
	events   chan tea.Msg
	cancel   context.CancelFunc
	loading  bool
	width    int
	height   int
	ready    bool
	quitting bool
}

// Messages delivered from the agent goroutine.
type (
	blockMsg struct{ block agent.Block }
	toolMsg  struct {
		out   agent.ToolOutput
		saved string
	}
	responseMsg struct{ err error }
)

const welcome = "Welcome to deskpilot. Describe a task and the model will carry it out on this desktop.\n" +
	"Use /help for commands, Esc to stop a running task, /quit to exit."

// initialModel creates the initial model state. events must be the channel
// the agent callbacks write to.
func initialModel(ag *agent.Agent, a *app, events chan tea.Msg) model {
	pr := ui.NewPrompt()
	pr.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ui.Default.Brand)

	return model{
		agent:   ag,
		app:     a,
		prompt:  pr,
		spinner: sp,
		events:  events,
		messages: []chatMessage{
			{role: "system", content: welcome, time: time.Now()},
		},
	}
}

// Init initializes the model
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

// Update handles messages and updates state
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		prCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	if m.selector != nil {
		if key, ok := msg.(tea.KeyMsg); ok {
			return m.updateSelector(key)
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEsc:
			if m.loading && m.cancel != nil {
				m.cancel()
				m.addMessage("system", "Stopping...")
			}
			return m, nil

		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.prompt.Value())
			if input == "" {
				return m, nil
			}

			// Handle commands
			if strings.HasPrefix(input, "/") {
				m.prompt.Reset()
				return m.handleCommand(input)
			}

			m.prompt.Reset()
			m.addMessage("user", input)
			m.loading = true

			ctx, cancel := context.WithCancel(context.Background())
			m.cancel = cancel
			return m, m.sendToAgent(ctx, input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.viewport.YPosition = 0
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.prompt.SetWidth(msg.Width)
		if r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(msg.Width-4),
		); err == nil {
			m.markdown = r
		}
		m.updateViewport()

	case blockMsg:
		m.addBlock(msg.block)
		return m, waitForEvent(m.events)

	case toolMsg:
		role := "result"
		if msg.out.IsError {
			role = "error"
		}
		text := msg.out.Text
		if text == "" && msg.out.HasImage {
			text = "screenshot taken"
		}
		if msg.saved != "" {
			text += " (" + msg.saved + ")"
		}
		m.messages = append(m.messages, chatMessage{role: role, content: text, time: time.Now()})
		m.updateViewport()
		return m, waitForEvent(m.events)

	case responseMsg:
		m.loading = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, context.Canceled):
			m.addMessage("system", "Task stopped.")
		case errors.Is(msg.err, agent.ErrMaxTurns):
			m.addMessage("error", "Stopped: turn limit reached.")
		default:
			m.addMessage("error", msg.err.Error())
		}

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	_, prCmd = m.prompt.Update(msg)
	// Up and down belong to the prompt's history.
	if key, ok := msg.(tea.KeyMsg); !ok || (key.Type != tea.KeyUp && key.Type != tea.KeyDown) {
		m.viewport, vpCmd = m.viewport.Update(msg)
	}

	return m, tea.Batch(prCmd, vpCmd)
}

func (m model) updateSelector(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.selector.Update(key)
	if m.selector.Active() {
		return m, nil
	}
	sel := m.selector
	m.selector = nil
	if sel.Cancelled() {
		return m, nil
	}
	return m.handleModelCommand(sel.Selected())
}

// View renders the UI
func (m model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if !m.ready {
		return "Initializing...\n"
	}

	var b strings.Builder

	title := ui.Style.Title.Render("  deskpilot") + ui.Style.Help.Render("  "+m.agent.ProviderName()+" / "+m.agent.CurrentModel())
	b.WriteString(title + "\n\n")

	if m.selector != nil {
		b.WriteString(m.selector.View())
		return b.String()
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.loading {
		b.WriteString(fmt.Sprintf("%s Working... (Esc to stop)\n", m.spinner.View()))
	} else {
		b.WriteString("\n")
	}

	b.WriteString(m.prompt.View())
	b.WriteString("\n")

	b.WriteString(ui.Style.Help.Render("  /help • /model • /history • /clear • /quit • Ctrl+C to exit"))

	return b.String()
}

func (m *model) addMessage(role, content string) {
	m.messages = append(m.messages, chatMessage{role: role, content: content, time: time.Now()})
	m.updateViewport()
}

func (m *model) addBlock(b agent.Block) {
	switch b.Type {
	case agent.BlockThinking:
		m.addMessage("thinking", b.Thinking)
	case agent.BlockText:
		m.addMessage("assistant", b.Text)
	case agent.BlockToolUse:
		m.addMessage("tool", describeCall(b.ToolCall))
	}
}

// updateViewport updates the viewport content with messages
func (m *model) updateViewport() {
	if !m.ready {
		return
	}
	var content strings.Builder

	for _, msg := range m.messages {
		switch msg.role {
		case "user":
			content.WriteString(ui.UserLine(msg.content))
		case "assistant":
			content.WriteString(ui.AssistantLine(m.renderMarkdown(msg.content)))
		case "thinking":
			content.WriteString(ui.ThinkingLine(msg.content))
		case "tool":
			content.WriteString(ui.ActionLine(msg.content))
		case "result":
			content.WriteString(ui.ResultLine(msg.content, false))
		case "error":
			content.WriteString(ui.Failure("Error", msg.content))
		case "system":
			content.WriteString(ui.Notice(msg.content))
		}
		if len(msg.blocks) > 0 {
			content.WriteString("\n")
			content.WriteString(renderBlocks(m.width, msg.blocks))
		}
		content.WriteString("\n")
		if msg.role != "tool" {
			content.WriteString("\n")
		}
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

// renderMarkdown formats assistant text, falling back to the raw text.
func (m *model) renderMarkdown(text string) string {
	if m.markdown == nil {
		return text
	}
	out, err := m.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n ")
}

// handleCommand handles slash commands
func (m model) handleCommand(input string) (tea.Model, tea.Cmd) {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		m.quitting = true
		return m, tea.Quit

	case "/clear":
		m.messages = []chatMessage{
			{role: "system", content: "Conversation cleared.", time: time.Now()},
		}
		m.agent.Reset()
		m.updateViewport()
		return m, nil

	case "/model":
		if arg == "" {
			return m.openModelSelector()
		}
		return m.handleModelCommand(arg)

	case "/history":
		return m.handleHistoryCommand()

	case "/help", "/?":
		helpText := `Available commands:
  /help, /?       - Show this help
  /model          - Pick a model
  /model <id>     - Switch to a different model
  /history        - Show actions taken in this session
  /clear          - Clear the conversation
  /quit, /exit    - Exit deskpilot

Example tasks:
  "Open the file manager and create a folder named reports"
  "Take a screenshot and describe what is on screen"
  "Search the web for today's weather"`

		m.addMessage("system", helpText)
		return m, nil

	default:
		m.addMessage("error", fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
		return m, nil
	}
}

func (m model) openModelSelector() (tea.Model, tea.Cmd) {
	current := m.agent.CurrentModel()
	var items []ui.SelectorItem
	for _, md := range m.agent.ListModels() {
		desc := md.Name
		if !md.SupportsTools {
			desc += " (no tool support)"
		}
		items = append(items, ui.SelectorItem{ID: md.ID, Label: md.ID, Description: desc, Current: md.ID == current})
	}
	if len(items) == 0 {
		m.addMessage("system", fmt.Sprintf("No model list for %s. Usage: /model <id>", m.agent.ProviderName()))
		return m, nil
	}
	sel := ui.NewSelector("Models for "+m.agent.ProviderName(), items)
	sel.SetWidth(m.width)
	if m.height > 10 {
		sel.SetVisible(m.height - 8)
	}
	m.selector = &sel
	return m, nil
}

// handleModelCommand switches to modelID
func (m model) handleModelCommand(modelID string) (tea.Model, tea.Cmd) {
	if m.loading {
		m.addMessage("error", "Wait for the current task to finish before switching models.")
		return m, nil
	}
	if err := m.agent.SetModel(modelID); err != nil {
		m.addMessage("error", fmt.Sprintf("Failed to switch model: %v", err))
		return m, nil
	}
	if err := m.app.auth.SetPreferredModel(m.agent.CurrentProvider().ID(), modelID); err != nil {
		m.app.logger.Warn("model preference not saved", "error", err)
	}
	m.addMessage("system", fmt.Sprintf("Switched to %s. Conversation history cleared.", modelID))
	return m, nil
}

func (m model) handleHistoryCommand() (tea.Model, tea.Cmd) {
	store, err := m.app.historyStore()
	if err != nil {
		m.addMessage("error", err.Error())
		return m, nil
	}
	if store == nil {
		m.addMessage("system", "Action history is disabled.")
		return m, nil
	}
	recs, err := store.Recent(context.Background(), m.agent.SessionID(), 20)
	if err != nil {
		m.addMessage("error", err.Error())
		return m, nil
	}
	if len(recs) == 0 {
		m.addMessage("system", "No actions yet in this session.")
		return m, nil
	}
	m.messages = append(m.messages, chatMessage{role: "system", blocks: []agent.UIBlock{agent.HistoryBlock(recs)}, time: time.Now()})
	m.updateViewport()
	return m, nil
}

// sendToAgent runs the task; progress arrives through the events channel.
func (m model) sendToAgent(ctx context.Context, input string) tea.Cmd {
	ag := m.agent
	return func() tea.Msg {
		_, err := ag.Chat(ctx, input)
		return responseMsg{err: err}
	}
}

// replCallbacks forward agent progress to the UI. Screenshots are saved to
// dir when it is set.
func replCallbacks(events chan<- tea.Msg, a *app, dir string) agent.Callbacks {
	return agent.Callbacks{
		Output: func(b agent.Block) { events <- blockMsg{block: b} },
		ToolOutput: func(out agent.ToolOutput, res *agent.ToolResult) {
			msg := toolMsg{out: out}
			if dir != "" && res != nil && res.Image != "" {
				path, err := saveScreenshot(dir, res.Call.ID, res.Image)
				if err != nil {
					a.logger.Warn("screenshot not saved", "tool_use_id", res.Call.ID, "error", err)
				} else {
					msg.saved = path
				}
			}
			events <- msg
		},
	}
}

// RunREPL starts the interactive session
func RunREPL(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	events := make(chan tea.Msg, 64)
	ag, err := a.newAgent(ctx, agent.WithCallbacks(replCallbacks(events, a, a.settings.ScreenshotsDir)))
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	defer ag.Close()

	p := tea.NewProgram(
		initialModel(ag, a, events),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
