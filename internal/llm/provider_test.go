package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider answers every chat with a fixed reply.
type stubProvider struct {
	id     ProviderID
	name   string
	tools  bool
	models []Model
}

func (p *stubProvider) ID() ProviderID      { return p.id }
func (p *stubProvider) Name() string        { return p.name }
func (p *stubProvider) SupportsTools() bool { return p.tools }

func (p *stubProvider) Chat(context.Context, *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Content: "stub reply"}, nil
}

func (p *stubProvider) Models() []Model {
	if p.models == nil {
		return []Model{{ID: "stub-model", Name: "Stub"}}
	}
	return p.models
}

func (p *stubProvider) DefaultModel() string { return p.Models()[0].ID }

func (p *stubProvider) SetModel(id string) error { return ValidateModelID(id, p.Models()) }

func TestProviderRegistry(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		r := NewProviderRegistry()
		assert.Empty(t, r.List())
		assert.Empty(t, r.ListProviders())
		_, err := r.GetDefault()
		require.ErrorContains(t, err, "provider not found: anthropic")
	})

	t.Run("register replaces by ID", func(t *testing.T) {
		r := NewProviderRegistry()
		r.Register(&stubProvider{id: ProviderOpenAI, name: "first"})
		r.Register(&stubProvider{id: ProviderOpenAI, name: "second"})

		p, err := r.Get(ProviderOpenAI)
		require.NoError(t, err)
		assert.Equal(t, "second", p.Name())
		assert.Equal(t, []ProviderID{ProviderOpenAI}, r.List())
	})

	t.Run("default must be registered", func(t *testing.T) {
		r := NewProviderRegistry()
		r.Register(&stubProvider{id: ProviderGemini})
		require.Error(t, r.SetDefault(ProviderVertex))

		require.NoError(t, r.SetDefault(ProviderGemini))
		p, err := r.GetDefault()
		require.NoError(t, err)
		assert.Equal(t, ProviderGemini, p.ID())
	})

	t.Run("listing is in priority order", func(t *testing.T) {
		r := NewProviderRegistry()
		for _, id := range []ProviderID{ProviderGemini, ProviderOpenRouter, ProviderAnthropic, ProviderBedrock} {
			r.Register(&stubProvider{id: id, name: string(id), tools: id != ProviderOpenRouter})
		}
		assert.Equal(t, []ProviderID{ProviderAnthropic, ProviderBedrock, ProviderOpenRouter, ProviderGemini}, r.List())

		infos := r.ListProviders()
		require.Len(t, infos, 4)
		assert.Equal(t, ProviderInfo{ID: ProviderAnthropic, Name: "anthropic", Model: "stub-model", IsDefault: true, SupportsTools: true}, infos[0])
		assert.False(t, infos[2].SupportsTools)
		assert.False(t, infos[3].IsDefault)
	})
}

func TestProviderIDs(t *testing.T) {
	ids := AllProviderIDs()
	assert.Equal(t, []ProviderID{ProviderAnthropic, ProviderBedrock, ProviderVertex, ProviderOpenAI, ProviderOpenRouter, ProviderGemini}, ids)

	want := map[ProviderID]string{
		ProviderAnthropic:  "ANTHROPIC_API_KEY",
		ProviderBedrock:    "",
		ProviderVertex:     "",
		ProviderOpenAI:     "OPENAI_API_KEY",
		ProviderOpenRouter: "OPENROUTER_API_KEY",
		ProviderGemini:     "GOOGLE_API_KEY",
	}
	for _, id := range ids {
		t.Run(string(id), func(t *testing.T) {
			assert.Equal(t, want[id], EnvVarForProvider(id))
			assert.Equal(t, want[id] != "", RequiresAPIKey(id))

			parsed, err := ParseProviderID(string(id))
			require.NoError(t, err)
			assert.Equal(t, id, parsed)
		})
	}
	assert.Equal(t, "", EnvVarForProvider("unknown"))
}

func TestParseProviderID(t *testing.T) {
	t.Run("accepts known names case-insensitively", func(t *testing.T) {
		id, err := ParseProviderID(" Gemini ")
		require.NoError(t, err)
		assert.Equal(t, ProviderGemini, id)
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := ParseProviderID("mistral")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})
}

func TestChatResponse_AssistantMessage(t *testing.T) {
	resp := ChatResponse{
		Content:   "Opening the browser.",
		Thinking:  []ThinkingBlock{{Thinking: "need a screenshot", Signature: "sig"}},
		ToolCalls: []ToolCall{{ID: "toolu_1", Name: "computer", Input: []byte(`{"action":"screenshot"}`)}},
		Usage:     Usage{InputTokens: 10, OutputTokens: 5},
	}

	msg := resp.AssistantMessage()
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "Opening the browser.", msg.Content)
	assert.Equal(t, resp.Thinking, msg.Thinking)
	assert.Equal(t, resp.ToolCalls, msg.ToolCalls)
	assert.Empty(t, msg.ToolResults)
}

func TestValidateModelID(t *testing.T) {
	t.Run("every static table validates its own IDs", func(t *testing.T) {
		for _, models := range [][]Model{AnthropicModels, BedrockModels, VertexModels, OpenAIModels, OpenRouterModels, GeminiModels} {
			for _, m := range models {
				assert.NoError(t, ValidateModelID(m.ID, models), m.ID)
			}
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		err := ValidateModelID("claude-9", AnthropicModels)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown model")
	})
}

func TestComputerTool_FunctionTool(t *testing.T) {
	c := &ComputerTool{
		Type:          "computer_20250124",
		DisplayWidth:  1280,
		DisplayHeight: 800,
		InputSchema:   []byte(`{"type":"object"}`),
	}
	tool := c.FunctionTool()
	assert.Equal(t, ComputerFunctionName, tool.Name)
	assert.Contains(t, tool.Description, "1280x800")
	assert.JSONEq(t, `{"type":"object"}`, string(tool.InputSchema))

	tools := toolsWithComputer(&ChatRequest{
		Tools:    []Tool{NewTool("noop", "does nothing", map[string]any{"type": "object"})},
		Computer: c,
	})
	require.Len(t, tools, 2)
	assert.Equal(t, "noop", tools[0].Name)
	assert.Equal(t, ComputerFunctionName, tools[1].Name)
}
