package setup

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/yolodolo42/deskpilot/internal/ui"
)

// The wizard shares the REPL theme; only the framing differs.
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	TitleStyle   = ui.Style.Title
	HelpStyle    = ui.Style.Help
	ErrorStyle   = ui.Style.Error
	SuccessStyle = ui.Style.Step

	SubtitleStyle = lipgloss.NewStyle().Foreground(ui.Default.Muted)
	DimStyle      = SubtitleStyle.Italic(true)
	SpinnerStyle  = lipgloss.NewStyle().Foreground(ui.Default.Brand)

	// StepStyle renders "Step n of m".
	StepStyle = lipgloss.NewStyle().Foreground(ui.Default.Input).Bold(true)

	Checkmark = ui.Mark(true)
	Crossmark = ui.Mark(false)
)
