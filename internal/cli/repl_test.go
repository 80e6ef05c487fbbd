package cli

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/deskpilot/internal/agent"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

func newTestREPL(t *testing.T, responses ...*llm.ChatResponse) (model, *scriptedProvider) {
	t.Helper()
	a, _ := newTestApp(t, nil)
	tool, err := a.computerTool(context.Background())
	require.NoError(t, err)
	store, err := a.historyStore()
	require.NoError(t, err)

	provider := &scriptedProvider{model: "scripted-1", responses: responses}
	events := make(chan tea.Msg, 64)
	ag, err := agent.New(provider, agent.NewToolCollection(agent.NewComputerTool(tool)), agent.DefaultConfig(),
		agent.WithLogger(a.logger),
		agent.WithHistory(store),
		agent.WithCallbacks(replCallbacks(events, a, "")))
	require.NoError(t, err)
	t.Cleanup(ag.Close)

	m := initialModel(ag, a, events)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(model), provider
}

func send(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func command(t *testing.T, m model, input string) model {
	t.Helper()
	m.prompt.SetValue(input)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	return m
}

func last(m model) chatMessage {
	return m.messages[len(m.messages)-1]
}

func TestREPL_Commands(t *testing.T) {
	t.Run("ready after resize", func(t *testing.T) {
		m, _ := newTestREPL(t)
		assert.True(t, m.ready)
		assert.Contains(t, m.View(), "deskpilot")
		assert.Equal(t, "system", m.messages[0].role)
	})

	t.Run("help", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m = command(t, m, "/help")
		assert.Equal(t, "system", last(m).role)
		assert.Contains(t, last(m).content, "Available commands")
		assert.Equal(t, "", m.prompt.Value())
	})

	t.Run("unknown", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m = command(t, m, "/bogus")
		assert.Equal(t, "error", last(m).role)
		assert.Contains(t, last(m).content, "Unknown command: /bogus")
	})

	t.Run("model switch", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m = command(t, m, "/model scripted-2")
		assert.Equal(t, "scripted-2", m.agent.CurrentModel())
		assert.Contains(t, last(m).content, "Switched to scripted-2")
		assert.Equal(t, "scripted-2", m.app.auth.PreferredModel(llm.ProviderAnthropic))

		m = command(t, m, "/model nope")
		assert.Equal(t, "error", last(m).role)
	})

	t.Run("model selector", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m = command(t, m, "/model")
		require.NotNil(t, m.selector)
		assert.Contains(t, m.View(), "Models for Scripted")

		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.Nil(t, m.selector)
		assert.Equal(t, "scripted-2", m.agent.CurrentModel())
	})

	t.Run("selector cancel", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m = command(t, m, "/model")
		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		assert.Nil(t, m.selector)
		assert.Equal(t, "scripted-1", m.agent.CurrentModel())
	})

	t.Run("clear", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m = command(t, m, "/help")
		m = command(t, m, "/clear")
		require.Len(t, m.messages, 1)
		assert.Contains(t, m.messages[0].content, "cleared")
	})

	t.Run("quit", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m.prompt.SetValue("/quit")
		m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.True(t, m.quitting)
		require.NotNil(t, cmd)
		assert.Equal(t, "Goodbye!\n", m.View())
	})
}

func TestREPL_Task(t *testing.T) {
	m, provider := newTestREPL(t,
		toolCall("toolu_1", `{"action":"mouse_move","coordinate":[5,6]}`),
	)

	m.prompt.SetValue("move the mouse")
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.loading)
	require.NotNil(t, cmd)
	assert.Equal(t, "user", last(m).role)

	// Enter is ignored while a task runs.
	m.prompt.SetValue("again")
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "user", last(m).role)
	m.prompt.Reset()

	done := cmd()
	require.IsType(t, responseMsg{}, done)
	assert.Equal(t, 2, provider.requests)

	// Drain the progress the callbacks queued.
	var roles []string
	for len(m.events) > 0 {
		m, _ = send(t, m, <-m.events)
		roles = append(roles, last(m).role)
	}
	assert.Equal(t, []string{"tool", "result", "assistant"}, roles)

	m, _ = send(t, m, done)
	assert.False(t, m.loading)
	assert.Nil(t, m.cancel)

	m = command(t, m, "/history")
	require.Len(t, last(m).blocks, 1)
	assert.Equal(t, agent.UIBlockTable, last(m).blocks[0].Kind)
	assert.Equal(t, "mouse_move", last(m).blocks[0].Table.Rows[0][2])
}

func TestREPL_Responses(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantRole string
		want     string
	}{
		{"cancelled", context.Canceled, "system", "Task stopped."},
		{"max turns", agent.ErrMaxTurns, "error", "turn limit"},
		{"provider error", fmt.Errorf("failed to get response: boom"), "error", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestREPL(t)
			m.loading = true
			m, _ = send(t, m, responseMsg{err: tt.err})
			assert.False(t, m.loading)
			assert.Equal(t, tt.wantRole, last(m).role)
			assert.Contains(t, last(m).content, tt.want)
		})
	}

	t.Run("tool error", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m, _ = send(t, m, toolMsg{out: agent.ToolOutput{Text: "Coordinates 1, 2 are out of bounds", IsError: true}})
		assert.Equal(t, "error", last(m).role)
	})

	t.Run("screenshot saved", func(t *testing.T) {
		m, _ := newTestREPL(t)
		m, _ = send(t, m, toolMsg{out: agent.ToolOutput{HasImage: true}, saved: "shots/screenshot_x.png"})
		assert.Equal(t, "screenshot taken (shots/screenshot_x.png)", last(m).content)
	})
}
