package llm

import (
	"fmt"
	"strings"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterModels lists vision models on OpenRouter that handle computer use
// well through function calling.
var OpenRouterModels = []Model{
	{
		ID:             "anthropic/claude-sonnet-4.5",
		Name:           "Claude Sonnet 4.5",
		ContextWindow:  200000,
		InputCost:      3.0,
		OutputCost:     15.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "anthropic/claude-3.7-sonnet",
		Name:           "Claude 3.7 Sonnet",
		ContextWindow:  200000,
		InputCost:      3.0,
		OutputCost:     15.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "openai/gpt-4o",
		Name:           "GPT-4o",
		ContextWindow:  128000,
		InputCost:      2.50,
		OutputCost:     10.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "google/gemini-2.5-pro",
		Name:           "Gemini 2.5 Pro",
		ContextWindow:  1000000,
		InputCost:      1.25,
		OutputCost:     10.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:            "deepseek/deepseek-r1",
		Name:          "DeepSeek R1",
		ContextWindow: 64000,
		InputCost:     0.55,
		OutputCost:    2.19,
		SupportsTools: false,
	},
}

const openRouterDefaultModel = "anthropic/claude-sonnet-4.5"

// OpenRouterProvider talks to OpenRouter's OpenAI-compatible endpoint.
// The static model list is a starting point: any vendor/model slug from
// the catalogue is accepted, and CapabilitiesForModel decides whether it
// can drive the computer.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(apiKey string, model string) (*OpenRouterProvider, error) {
	if model == "" {
		model = openRouterDefaultModel
	}
	if err := checkOpenRouterSlug(model); err != nil {
		return nil, err
	}
	base, err := NewOpenAIProvider(apiKey, model, openRouterBaseURL)
	if err != nil {
		return nil, err
	}
	return &OpenRouterProvider{OpenAIProvider: base}, nil
}

func (p *OpenRouterProvider) ID() ProviderID  { return ProviderOpenRouter }
func (p *OpenRouterProvider) Name() string    { return "OpenRouter" }
func (p *OpenRouterProvider) Models() []Model { return OpenRouterModels }

// SetModel switches to a listed model or any vendor/model slug.
func (p *OpenRouterProvider) SetModel(modelID string) error {
	if ValidateModelID(modelID, OpenRouterModels) != nil {
		if err := checkOpenRouterSlug(modelID); err != nil {
			return err
		}
	}
	p.model = modelID
	return nil
}

func checkOpenRouterSlug(modelID string) error {
	vendor, name, ok := strings.Cut(modelID, "/")
	if !ok || vendor == "" || name == "" || strings.ContainsAny(modelID, " \t") {
		return fmt.Errorf("unknown model %q for OpenRouter: expected vendor/model", modelID)
	}
	return nil
}
