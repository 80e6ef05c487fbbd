package setup

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/yolodolo42/deskpilot/internal/auth"
	"github.com/yolodolo42/deskpilot/internal/llm"
	"github.com/yolodolo42/deskpilot/internal/ui"
)

// WizardStep is one screen of the setup wizard.
type WizardStep int

const (
	StepWelcome WizardStep = iota
	StepProviderSelect
	StepCredentials
	StepDesktop
	StepComplete
)

// SetupResult is what the wizard configured.
type SetupResult struct {
	ProviderID   llm.ProviderID
	DesktopReady bool
	Cancelled    bool
}

type providerChoice struct {
	id          llm.ProviderID
	name        string
	hint        string
	recommended bool
}

var providerChoices = []providerChoice{
	{id: llm.ProviderAnthropic, name: "Anthropic (Claude)", hint: "Native computer-use tool", recommended: true},
	{id: llm.ProviderBedrock, name: "Amazon Bedrock", hint: "Claude through your AWS account"},
	{id: llm.ProviderVertex, name: "Google Vertex AI", hint: "Claude through your Google Cloud project"},
	{id: llm.ProviderOpenAI, name: "OpenAI", hint: "Computer tool as a function call"},
	{id: llm.ProviderGemini, name: "Google (Gemini)", hint: "Computer tool as a function call"},
	{id: llm.ProviderOpenRouter, name: "OpenRouter", hint: "Many vision models with one key"},
}

func providerName(id llm.ProviderID) string {
	for _, c := range providerChoices {
		if c.id == id {
			return c.name
		}
	}
	return string(id)
}

func newProviderSelector() ui.Selector {
	items := make([]ui.SelectorItem, 0, len(providerChoices))
	for _, c := range providerChoices {
		desc := c.hint
		if c.recommended {
			desc = "recommended - " + desc
		}
		items = append(items, ui.SelectorItem{ID: string(c.id), Label: c.name, Description: desc})
	}
	return ui.NewSelector("Choose an LLM provider", items)
}

// WizardModel walks a first run through connecting a model and checking
// the desktop tools.
type WizardModel struct {
	step    WizardStep
	status  *SetupStatus
	dataDir string

	selector ui.Selector
	provider llm.ProviderID
	form     credentialForm

	validating bool
	failure    string

	spinner  spinner.Model
	progress progress.Model

	quitting bool
	result   *SetupResult
}

// validatedMsg carries the outcome of the test request.
type validatedMsg struct{ err error }

// NewWizard creates a wizard for dataDir. A provider that is already
// connected skips straight to the desktop check.
func NewWizard(dataDir string) *WizardModel {
	status, _ := DetectSetupStatus(dataDir)

	m := &WizardModel{
		step:     StepWelcome,
		status:   status,
		dataDir:  dataDir,
		selector: newProviderSelector(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	if status.HasProvider {
		m.provider = status.ProviderID
		m.step = StepDesktop
	}
	return m
}

// Init starts the spinner.
func (m WizardModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.result = &SetupResult{Cancelled: true}
			m.quitting = true
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.progress.Width = max(10, min(40, msg.Width-20))
		m.selector.SetWidth(msg.Width)
		m.selector.SetVisible(msg.Height - 10)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case validatedMsg:
		return m.finishValidation(msg.err), nil
	}

	if m.step == StepCredentials && !m.validating {
		cmd := m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WizardModel) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.step {
	case StepWelcome:
		if k.Type == tea.KeyEnter {
			m.step = StepProviderSelect
		}

	case StepProviderSelect:
		return m.chooseProvider(k)

	case StepCredentials:
		switch k.Type {
		case tea.KeyEsc:
			m.failure = ""
			m.backToProviders()
			return m, nil
		case tea.KeyEnter:
			return m.submitCredentials()
		}
		if !m.validating {
			cmd := m.form.Update(k)
			return m, cmd
		}

	case StepDesktop:
		switch k.Type {
		case tea.KeyEnter:
			m.step = StepComplete
		case tea.KeyEsc:
			if !m.status.HasProvider {
				m.backToProviders()
			}
		}

	case StepComplete:
		if k.Type == tea.KeyEnter {
			m.result = &SetupResult{ProviderID: m.provider, DesktopReady: m.status.DesktopReady}
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *WizardModel) backToProviders() {
	m.step = StepProviderSelect
	m.selector = newProviderSelector()
}

func (m WizardModel) chooseProvider(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.selector.Update(k)
	if m.selector.Active() {
		return m, nil
	}
	if m.selector.Cancelled() {
		m.step = StepWelcome
		m.selector = newProviderSelector()
		return m, nil
	}

	m.provider = llm.ProviderID(m.selector.Selected())
	m.failure = ""
	m.form = newCredentialForm(m.provider, m.cloudDefaults(m.provider))
	m.step = StepCredentials
	cmd := m.form.Focus()
	return m, cmd
}

// cloudDefaults prefills region and project from the environment or an
// earlier run.
func (m WizardModel) cloudDefaults(id llm.ProviderID) auth.CloudSettings {
	if !auth.UsesCloudCredentials(id) {
		return auth.CloudSettings{}
	}
	manager, err := auth.NewManager(m.dataDir)
	if err != nil {
		return auth.CloudSettings{}
	}
	settings, _ := manager.GetCloudSettings(id)
	return settings
}

func (m WizardModel) submitCredentials() (tea.Model, tea.Cmd) {
	if m.validating {
		return m, nil
	}
	done, cmd, err := m.form.Submit()
	if err != nil {
		m.failure = err.Error()
		return m, nil
	}
	m.failure = ""
	if !done {
		return m, cmd
	}
	m.validating = true
	return m, tea.Batch(m.spinner.Tick, m.validate())
}

func (m WizardModel) finishValidation(err error) WizardModel {
	m.validating = false
	if err != nil {
		m.failure = describeFailure(err, m.provider)
		return m
	}
	if err := m.save(); err != nil {
		m.failure = fmt.Sprintf("Failed to save: %v", err)
		return m
	}
	m.failure = ""
	m.step = StepDesktop
	return m
}

// RunWizard runs the setup wizard in dataDir and returns the result
func RunWizard(dataDir string) (*SetupResult, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	final, err := tea.NewProgram(*NewWizard(dataDir), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	return final.(WizardModel).result, nil
}

// PrintEnvInstructions prints setup instructions for non-interactive environments
func PrintEnvInstructions() {
	fmt.Println("deskpilot requires an LLM provider to function.")
	fmt.Println()
	fmt.Println("Set one of these environment variables:")
	for _, c := range providerChoices {
		if env := llm.EnvVarForProvider(c.id); env != "" {
			fmt.Printf("  %-20s %s\n", env+"=...", c.name)
		}
	}
	fmt.Printf("  %-20s %s\n", "AWS_REGION=...", "Amazon Bedrock, with AWS credentials")
	fmt.Printf("  %-20s %s\n", "CLOUD_ML_REGION=...", "Google Vertex AI, with ANTHROPIC_VERTEX_PROJECT_ID")
	fmt.Println()
	fmt.Println("Or run deskpilot setup interactively.")
}

// IsInteractive returns true if running in a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
