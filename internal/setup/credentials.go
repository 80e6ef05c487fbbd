package setup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yolodolo42/deskpilot/internal/auth"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

const (
	fieldAPIKey  = "API key"
	fieldRegion  = "Region"
	fieldProject = "Project"

	validateTimeout = 20 * time.Second
)

type credentialField struct {
	label  string
	secret bool
	input  textinput.Model
}

// credentialForm collects what one provider needs: an API key, or a region
// (plus a project for Vertex) handed to the cloud SDK. Fields are filled in
// order; Enter moves to the next one.
type credentialForm struct {
	provider llm.ProviderID
	fields   []credentialField
	focus    int
}

func newCredentialForm(id llm.ProviderID, defaults auth.CloudSettings) credentialForm {
	f := credentialForm{provider: id}
	if !auth.UsesCloudCredentials(id) {
		f.add(fieldAPIKey, "Paste your API key here...", "", true, 200)
		return f
	}
	f.add(fieldRegion, "e.g. us-east-1 or us-east5", defaults.Region, false, 40)
	if id == llm.ProviderVertex {
		f.add(fieldProject, "Google Cloud project ID", defaults.Project, false, 100)
	}
	return f
}

func (f *credentialForm) add(label, placeholder, value string, secret bool, limit int) {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 50
	in.SetValue(value)
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	f.fields = append(f.fields, credentialField{label: label, secret: secret, input: in})
}

// Focus focuses the current field.
func (f *credentialForm) Focus() tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	return f.fields[f.focus].input.Focus()
}

// Submit checks the focused field and moves on. done is true once the last
// field holds a value.
func (f *credentialForm) Submit() (done bool, cmd tea.Cmd, err error) {
	if len(f.fields) == 0 {
		return true, nil, nil
	}
	cur := &f.fields[f.focus]
	if strings.TrimSpace(cur.input.Value()) == "" {
		return false, nil, fmt.Errorf("%s is required", cur.label)
	}
	if f.focus == len(f.fields)-1 {
		return true, nil, nil
	}
	cur.input.Blur()
	f.focus++
	return false, f.Focus(), nil
}

func (f *credentialForm) Update(msg tea.Msg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

// Value returns the trimmed value of a field, "" if the form has none.
func (f credentialForm) Value(label string) string {
	for _, fld := range f.fields {
		if fld.label == label {
			return strings.TrimSpace(fld.input.Value())
		}
	}
	return ""
}

// View shows filled fields as a summary and the focused one as an input.
func (f credentialForm) View() string {
	var b strings.Builder
	for i, fld := range f.fields[:min(f.focus+1, len(f.fields))] {
		if i < f.focus {
			shown := fld.input.Value()
			if fld.secret {
				shown = strings.Repeat("•", 8)
			}
			b.WriteString(fmt.Sprintf("  %s: %s\n", fld.label, SuccessStyle.Render(shown)))
			continue
		}
		if len(f.fields) > 1 {
			b.WriteString(fmt.Sprintf("  %s\n", DimStyle.Render(fld.label)))
		}
		b.WriteString("  " + fld.input.View() + "\n")
	}
	return b.String()
}

// newProvider builds the selected provider from the form.
func (m WizardModel) newProvider(ctx context.Context) (llm.Provider, error) {
	key := m.form.Value(fieldAPIKey)
	switch m.provider {
	case llm.ProviderAnthropic:
		return llm.NewAnthropicProvider(key, "")
	case llm.ProviderBedrock:
		return llm.NewBedrockProvider(ctx, m.form.Value(fieldRegion), "")
	case llm.ProviderVertex:
		return llm.NewVertexProvider(ctx, m.form.Value(fieldRegion), m.form.Value(fieldProject), "")
	case llm.ProviderOpenAI:
		return llm.NewOpenAIProvider(key, "", "")
	case llm.ProviderGemini:
		return llm.NewGeminiProvider(ctx, key, "")
	case llm.ProviderOpenRouter:
		return llm.NewOpenRouterProvider(key, "")
	default:
		return nil, fmt.Errorf("unknown provider %q", m.provider)
	}
}

// validate sends a one-line request with the entered credentials.
func (m WizardModel) validate() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		provider, err := m.newProvider(ctx)
		if err != nil {
			return validatedMsg{err: err}
		}
		if gemini, ok := provider.(*llm.GeminiProvider); ok {
			defer func() { _ = gemini.Close() }()
		}

		_, err = provider.Chat(ctx, &llm.ChatRequest{
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Reply with ok."}},
			MaxTokens: 10,
		})
		return validatedMsg{err: err}
	}
}

// save stores the key or cloud settings and makes the provider the default.
func (m WizardModel) save() error {
	manager, err := auth.NewManager(m.dataDir)
	if err != nil {
		return fmt.Errorf("failed to open auth store: %w", err)
	}

	if auth.UsesCloudCredentials(m.provider) {
		settings := auth.CloudSettings{Region: m.form.Value(fieldRegion), Project: m.form.Value(fieldProject)}
		if err := manager.SetCloudSettings(m.provider, settings); err != nil {
			return fmt.Errorf("failed to save cloud settings: %w", err)
		}
	} else if err := manager.SetAPIKey(m.provider, m.form.Value(fieldAPIKey)); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	return manager.SetDefaultProvider(m.provider)
}

var rejectedHints = map[llm.ProviderID]string{
	llm.ProviderAnthropic:  "Invalid key. Verify at console.anthropic.com",
	llm.ProviderOpenAI:     "Invalid key. Verify at platform.openai.com",
	llm.ProviderGemini:     "Invalid key. Verify at aistudio.google.com",
	llm.ProviderOpenRouter: "Invalid key. Verify at openrouter.ai/settings/keys",
	llm.ProviderBedrock:    "AWS rejected the request. Check credentials and model access.",
	llm.ProviderVertex:     "Google Cloud rejected the request. Run gcloud auth application-default login.",
}

// describeFailure turns a failed test request into one short line.
func describeFailure(err error, provider llm.ProviderID) string {
	if err == nil {
		return ""
	}
	switch code := llm.StatusCode(err); {
	case code == 401 || code == 403:
		if hint, ok := rejectedHints[provider]; ok {
			return hint
		}
		return "Authentication failed. Check your credentials."
	case code == 429:
		return "Rate limited. Wait a moment and try again."
	case code >= 500:
		return "The provider is having trouble. Try again shortly."
	}

	// context deadlines satisfy net.Error too, so they go first.
	if errors.Is(err, context.DeadlineExceeded) {
		return "The provider did not answer in time."
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "Connection failed. Check your internet and try again."
	}

	msg := err.Error()
	if len(msg) > 60 {
		return msg[:57] + "..."
	}
	return msg
}
