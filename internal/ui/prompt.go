package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Prompt is a single-line instruction input with a styled prefix. Up and
// down recall earlier submissions.
type Prompt struct {
	input   textinput.Model
	width   int
	focused bool

	history []string
	// recall indexes history while browsing; len(history) means the draft.
	recall int
	draft  string
}

// NewPrompt creates a new prompt component
func NewPrompt() Prompt {
	ti := textinput.New()
	ti.Placeholder = "Describe a task for the computer..."
	ti.CharLimit = 4000
	ti.Width = 80

	return Prompt{
		input:   ti,
		width:   80,
		focused: true,
	}
}

// Focus sets focus on the prompt
func (p *Prompt) Focus() tea.Cmd {
	p.focused = true
	return p.input.Focus()
}

// Blur removes focus from the prompt
func (p *Prompt) Blur() {
	p.focused = false
	p.input.Blur()
}

// Focused returns whether the prompt has focus
func (p *Prompt) Focused() bool {
	return p.focused
}

// SetWidth sets the width of the input
func (p *Prompt) SetWidth(w int) {
	p.width = w
	p.input.Width = w - 4 // Account for prompt symbol and spacing
}

// Value returns the current input value
func (p *Prompt) Value() string {
	return p.input.Value()
}

// SetValue sets the input value
func (p *Prompt) SetValue(s string) {
	p.input.SetValue(s)
}

// Reset clears the input. A non-empty value is remembered for recall.
func (p *Prompt) Reset() {
	if v := p.input.Value(); v != "" {
		if n := len(p.history); n == 0 || p.history[n-1] != v {
			p.history = append(p.history, v)
		}
	}
	p.recall = len(p.history)
	p.draft = ""
	p.input.Reset()
}

// History returns the remembered submissions, oldest first.
func (p *Prompt) History() []string {
	return append([]string(nil), p.history...)
}

// Update handles input events
func (p *Prompt) Update(msg tea.Msg) (*Prompt, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && p.focused {
		switch key.Type {
		case tea.KeyUp:
			p.browse(-1)
			return p, nil
		case tea.KeyDown:
			p.browse(1)
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *Prompt) browse(delta int) {
	if len(p.history) == 0 {
		return
	}
	if p.recall == len(p.history) {
		p.draft = p.input.Value()
	}
	next := p.recall + delta
	if next < 0 || next > len(p.history) {
		return
	}
	p.recall = next
	if next == len(p.history) {
		p.input.SetValue(p.draft)
	} else {
		p.input.SetValue(p.history[next])
	}
	p.input.CursorEnd()
}

// View renders the prompt
func (p *Prompt) View() string {
	st := Style.Help
	if p.focused {
		st = Style.Prompt
	}
	return st.Render(markPrompt) + " " + p.input.View()
}
