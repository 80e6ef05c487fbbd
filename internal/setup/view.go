package setup

import (
	"fmt"
	"strings"

	"github.com/yolodolo42/deskpilot/internal/auth"
)

var stepLabels = []string{"Provider", "Desktop", "Ready"}

// View renders the wizard
func (m WizardModel) View() string {
	if m.quitting {
		if m.result != nil && m.result.Cancelled {
			return DimStyle.Render("\n  Setup cancelled.\n\n")
		}
		return ""
	}

	var body string
	switch m.step {
	case StepWelcome:
		return m.viewWelcome()
	case StepProviderSelect:
		body = "\n" + m.selector.View()
	case StepCredentials:
		body = m.viewCredentials()
	case StepDesktop:
		body = m.viewDesktop()
	case StepComplete:
		return m.viewComplete()
	}
	return "\n" + m.viewProgress() + "\n" + body
}

// stage maps a step onto the progress bar's three stages.
func (m WizardModel) stage() int {
	switch m.step {
	case StepDesktop:
		return 2
	case StepComplete:
		return 3
	default:
		return 1
	}
}

func (m WizardModel) viewProgress() string {
	bar := m.progress.ViewAs(float64(m.stage()) / float64(len(stepLabels)))
	labels := make([]string, len(stepLabels))
	for i, l := range stepLabels {
		if i+1 == m.stage() {
			labels[i] = StepStyle.Render(l)
		} else {
			labels[i] = DimStyle.Render(l)
		}
	}
	return fmt.Sprintf("  %s\n  %s", bar, strings.Join(labels, "   "))
}

func (m WizardModel) viewWelcome() string {
	backend := "none for this platform"
	if m.status.Backend != "" {
		backend = m.status.Backend
	}
	content := TitleStyle.Render("Welcome to deskpilot") + "\n" +
		SubtitleStyle.Render("A model that drives your mouse, keyboard and screen") + "\n\n" +
		"Connect a model and check your desktop tools.\n" +
		DimStyle.Render("Desktop backend: "+backend)

	return "\n\n" + BoxStyle.Render(content) + "\n\n" + HelpStyle.Render("  Press Enter to continue...")
}

func (m WizardModel) viewCredentials() string {
	var b strings.Builder
	title := fmt.Sprintf("  Enter %s API key", providerName(m.provider))
	if auth.UsesCloudCredentials(m.provider) {
		title = fmt.Sprintf("  Configure %s", providerName(m.provider))
	}
	b.WriteString("\n" + TitleStyle.Render(title) + "\n\n")

	if methods := auth.GetProviderAuthInfo(m.provider).Methods; len(methods) > 0 {
		b.WriteString(SubtitleStyle.Render("  "+methods[0].Description) + "\n\n")
	}
	b.WriteString(m.form.View())

	switch {
	case m.validating:
		b.WriteString(fmt.Sprintf("\n  %s Testing connection...\n", m.spinner.View()))
	case m.failure != "":
		b.WriteString(fmt.Sprintf("\n  %s %s\n", Crossmark, ErrorStyle.Render(m.failure)))
	}

	b.WriteString("\n" + HelpStyle.Render("  Enter to continue • Esc back"))
	return b.String()
}

func (m WizardModel) viewDesktop() string {
	var b strings.Builder
	b.WriteString("\n" + TitleStyle.Render("  Desktop tools") + "\n\n")

	if m.status.Backend == "" {
		b.WriteString(fmt.Sprintf("  %s %s\n", Crossmark, ErrorStyle.Render("This platform has no desktop backend.")))
	} else {
		b.WriteString(DimStyle.Render("  Backend: "+m.status.Backend) + "\n\n")
		for _, c := range m.status.Binaries {
			if c.OK() {
				b.WriteString(fmt.Sprintf("  %s %s %s\n", Checkmark, c.Found, DimStyle.Render(c.Path)))
			} else {
				b.WriteString(fmt.Sprintf("  %s %s\n", Crossmark, c.Name))
			}
		}
		if !m.status.DesktopReady {
			b.WriteString("\n" + DimStyle.Render("  Install the missing tools before running actions.") + "\n")
		}
	}

	b.WriteString("\n" + HelpStyle.Render("  Enter to continue"))
	return b.String()
}

var examplePrompts = []string{
	"Take a screenshot and describe my screen",
	"Open a text editor and write hello",
	"Save an image of a cat to the desktop",
}

func (m WizardModel) viewComplete() string {
	desktop := SuccessStyle.Render("ready")
	if !m.status.DesktopReady {
		desktop = ErrorStyle.Render("missing " + strings.Join(m.status.Missing(), ", "))
	}

	var c strings.Builder
	c.WriteString(TitleStyle.Render("You're all set!") + "\n\n")
	c.WriteString(fmt.Sprintf("Provider: %s\nDesktop:  %s\n\n", providerName(m.provider), desktop))
	c.WriteString(DimStyle.Render("Try these:"))
	for _, p := range examplePrompts {
		c.WriteString(fmt.Sprintf("\n  %q", p))
	}

	return "\n\n" + BoxStyle.Render(c.String()) + "\n\n" + HelpStyle.Render("  Press Enter to start deskpilot...")
}
