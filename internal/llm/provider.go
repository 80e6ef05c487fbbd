package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ProviderID represents a unique provider identifier
type ProviderID string

const (
	ProviderAnthropic  ProviderID = "anthropic"
	ProviderBedrock    ProviderID = "bedrock"
	ProviderVertex     ProviderID = "vertex"
	ProviderOpenAI     ProviderID = "openai"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderGemini     ProviderID = "gemini"
)

// Provider is the interface all LLM providers must implement
type Provider interface {
	// ID returns the unique provider identifier
	ID() ProviderID

	// Name returns the human-readable provider name
	Name() string

	// Chat sends the whole conversation and returns the next assistant turn
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// SupportsTools returns true if provider supports tool use
	SupportsTools() bool

	// Models returns available models for this provider
	Models() []Model

	// DefaultModel returns the default model for this provider
	DefaultModel() string

	// SetModel switches the active model. Returns error if model ID is not
	// in the provider's supported model list.
	SetModel(modelID string) error
}

// Model represents an available model
type Model struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ContextWindow int     `json:"context_window"`
	InputCost     float64 `json:"input_cost"`  // per 1M tokens
	OutputCost    float64 `json:"output_cost"` // per 1M tokens
	SupportsTools bool    `json:"supports_tools"`
	// SupportsVision means screenshots can be sent back in tool results.
	SupportsVision bool `json:"supports_vision"`
}

// Role of a conversation message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn. Assistant turns may carry thinking and
// tool calls; user turns may carry the results of the previous turn's calls.
type Message struct {
	Role        string          `json:"role"` // "user" or "assistant"
	Content     string          `json:"content,omitempty"`
	Thinking    []ThinkingBlock `json:"thinking,omitempty"`
	ToolCalls   []ToolCall      `json:"tool_calls,omitempty"`
	ToolResults []ToolResult    `json:"tool_results,omitempty"`
}

// ThinkingBlock is extended-thinking output that must be echoed back
// unchanged, signature included. Redacted blocks carry only Data.
type ThinkingBlock struct {
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
	Data      string `json:"data,omitempty"`
}

// ToolCall represents a tool call from the model
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ComputerTool describes the desktop to providers. Providers with a native
// computer-use tool send the display size; the rest get a function tool
// built from InputSchema.
type ComputerTool struct {
	// Type is the versioned tool type, e.g. computer_20250124.
	Type          string          `json:"type"`
	Beta          string          `json:"beta"`
	DisplayWidth  int             `json:"display_width_px"`
	DisplayHeight int             `json:"display_height_px"`
	DisplayNumber *int            `json:"display_number,omitempty"`
	InputSchema   json.RawMessage `json:"input_schema"`
}

// ChatRequest is a provider-agnostic chat request
type ChatRequest struct {
	SystemPrompt string        `json:"system_prompt"`
	Messages     []Message     `json:"messages"`
	Tools        []Tool        `json:"tools,omitempty"`
	Computer     *ComputerTool `json:"computer,omitempty"`
	Model        string        `json:"model,omitempty"` // Uses default if empty
	MaxTokens    int           `json:"max_tokens,omitempty"`
	// ThinkingBudget enables extended thinking when positive.
	ThinkingBudget      int  `json:"thinking_budget,omitempty"`
	TokenEfficientTools bool `json:"token_efficient_tools,omitempty"`
}

// ChatResponse is a provider-agnostic chat response
type ChatResponse struct {
	Content    string          `json:"content"`
	Thinking   []ThinkingBlock `json:"thinking,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	StopReason string          `json:"stop_reason"`
	Usage      Usage           `json:"usage"`
	Model      string          `json:"model,omitempty"`
	// Raw is the provider's response body, when available.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// AssistantMessage converts the response into the turn to append to the
// conversation.
func (r *ChatResponse) AssistantMessage() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   r.Content,
		Thinking:  r.Thinking,
		ToolCalls: r.ToolCalls,
	}
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// EnvVarForProvider returns the environment variable name for a provider's API key
func EnvVarForProvider(id ProviderID) string {
	switch id {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// RequiresAPIKey reports whether the provider authenticates with an API key.
// Bedrock and Vertex use the ambient AWS and Google Cloud credentials.
func RequiresAPIKey(id ProviderID) bool {
	return id != ProviderBedrock && id != ProviderVertex
}

// AllProviderIDs returns all known provider IDs in priority order
func AllProviderIDs() []ProviderID {
	return []ProviderID{
		ProviderAnthropic,
		ProviderBedrock,
		ProviderVertex,
		ProviderOpenAI,
		ProviderOpenRouter,
		ProviderGemini,
	}
}

// ParseProviderID validates a provider name.
func ParseProviderID(s string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllProviderIDs() {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// ValidateModelID checks whether modelID exists in the given model list.
func ValidateModelID(modelID string, models []Model) error {
	for _, m := range models {
		if m.ID == modelID {
			return nil
		}
	}
	return fmt.Errorf("unknown model %q for this provider", modelID)
}

// Note: Tool, ToolResult and Image types are defined in tools.go
