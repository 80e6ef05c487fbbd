package ui

import "github.com/charmbracelet/lipgloss"

// Theme names the colours deskpilot paints with, by role.
type Theme struct {
	Brand   lipgloss.Color // titles, spinners
	Input   lipgloss.Color // what the user typed
	Done    lipgloss.Color // model text, passed checks
	Action  lipgloss.Color // mouse and keyboard actions
	Failure lipgloss.Color
	Muted   lipgloss.Color // results, notices, help
	Pick    lipgloss.Color // selected menu entry
	Plain   lipgloss.Color
}

// Default is the 256-colour theme used for all terminal output.
var Default = Theme{
	Brand:   "205",
	Input:   "39",
	Done:    "35",
	Action:  "214",
	Failure: "196",
	Muted:   "241",
	Pick:    "212",
	Plain:   "252",
}

const (
	markPrompt = "❯"
	markStep   = "●"
	markResult = "└"
	markCursor = "▸"
	markOK     = "✓"
	markFail   = "✗"
	markThink  = "◐"
)

// Styles is the set of renderers derived from a Theme.
type Styles struct {
	Title    lipgloss.Style
	Help     lipgloss.Style
	Prompt   lipgloss.Style
	Input    lipgloss.Style
	Step     lipgloss.Style
	Action   lipgloss.Style
	Result   lipgloss.Style
	Error    lipgloss.Style
	Notice   lipgloss.Style
	Cursor   lipgloss.Style
	Item     lipgloss.Style
	Selected lipgloss.Style
}

// NewStyles builds the renderers for th.
func NewStyles(th Theme) Styles {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	return Styles{
		Title:    fg(th.Brand).Bold(true),
		Help:     fg(th.Muted),
		Prompt:   fg(th.Input).Bold(true),
		Input:    fg(th.Input),
		Step:     fg(th.Done),
		Action:   fg(th.Action),
		Result:   fg(th.Muted),
		Error:    fg(th.Failure),
		Notice:   fg(th.Muted),
		Cursor:   fg(th.Input).Bold(true),
		Item:     fg(th.Plain),
		Selected: fg(th.Pick).Bold(true),
	}
}

// Style holds the renderers for Default.
var Style = NewStyles(Default)

// Mark renders a check or a cross.
func Mark(ok bool) string {
	if ok {
		return Style.Step.Render(markOK)
	}
	return Style.Error.Render(markFail)
}

// UserLine renders a message typed at the prompt.
func UserLine(text string) string {
	return Style.Prompt.Render(markPrompt+" ") + Style.Input.Render(text)
}

// AssistantLine prefixes already rendered model text with a step bullet.
func AssistantLine(text string) string {
	return Style.Step.Render(markStep) + " " + text
}

// ThinkingLine renders a model's reasoning summary.
func ThinkingLine(text string) string {
	return Style.Notice.Render(markThink + " " + text)
}

// ActionLine renders a computer action the model asked for.
func ActionLine(desc string) string {
	return Style.Action.Render(markStep + " " + desc)
}

// ResultLine renders what an action returned, nested under its ActionLine.
func ResultLine(text string, failed bool) string {
	st := Style.Result
	if failed {
		st = Style.Error
	}
	return st.Render("  " + markResult + " " + text)
}

// Notice renders low-emphasis status text such as saved file paths.
func Notice(text string) string {
	return Style.Notice.Render(text)
}

// Failure renders a labelled error, e.g. Failure("API error", err.Error()).
func Failure(label, text string) string {
	if text == "" {
		return Style.Error.Render(label)
	}
	return Style.Error.Render(label+": ") + text
}
