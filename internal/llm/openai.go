package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	baseURL string
}

// OpenAIModels lists available OpenAI models with image input
var OpenAIModels = []Model{
	{
		ID:             "gpt-4.1",
		Name:           "GPT-4.1",
		ContextWindow:  1047576,
		InputCost:      2.0,
		OutputCost:     8.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "gpt-4o",
		Name:           "GPT-4o",
		ContextWindow:  128000,
		InputCost:      2.50,
		OutputCost:     10.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "gpt-4o-mini",
		Name:           "GPT-4o Mini",
		ContextWindow:  128000,
		InputCost:      0.15,
		OutputCost:     0.60,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:            "gpt-3.5-turbo",
		Name:          "GPT-3.5 Turbo",
		ContextWindow: 16385,
		InputCost:     0.50,
		OutputCost:    1.50,
		SupportsTools: true,
	},
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	client := openai.NewClientWithConfig(config)

	if model == "" {
		model = "gpt-4.1"
	}

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// ID returns the provider identifier
func (p *OpenAIProvider) ID() ProviderID {
	return ProviderOpenAI
}

// Name returns the human-readable provider name
func (p *OpenAIProvider) Name() string {
	return "OpenAI"
}

// SupportsTools returns true - OpenAI supports function calling
func (p *OpenAIProvider) SupportsTools() bool {
	return true
}

// Models returns available models
func (p *OpenAIProvider) Models() []Model {
	return OpenAIModels
}

// DefaultModel returns the default model
func (p *OpenAIProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *OpenAIProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends the conversation and returns the next assistant turn
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  convertOpenAIMessages(req.SystemPrompt, req.Messages),
	}

	if tools := convertOpenAITools(toolsWithComputer(req)); len(tools) > 0 {
		openaiReq.Tools = tools
		openaiReq.ToolChoice = "auto"
	}

	resp, err := p.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	response := &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Model:      resp.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if raw, err := json.Marshal(resp); err == nil {
		response.Raw = raw
	}

	// Parse tool calls
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type == openai.ToolTypeFunction {
			input := json.RawMessage(tc.Function.Arguments)
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: input,
			})
		}
	}

	return response, nil
}

func convertOpenAITools(tools []Tool) []openai.Tool {
	var out []openai.Tool
	for _, tool := range tools {
		var params map[string]interface{}
		_ = json.Unmarshal(tool.InputSchema, &params) // Schema already validated at registration

		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// convertOpenAIMessages flattens block-level turns into chat messages. Tool
// messages cannot carry images, so screenshots from a turn's results follow
// in one user message with image parts.
func convertOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		if msg.Role == RoleAssistant {
			am := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				am.ToolCalls = append(am.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				})
			}
			out = append(out, am)
			continue
		}

		var images []openai.ChatMessagePart
		for _, r := range msg.ToolResults {
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    toolResultText(r),
				ToolCallID: r.ToolUseID,
			})
			for _, img := range r.Images {
				images = append(images, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(img),
						Detail: openai.ImageURLDetailAuto,
					},
				})
			}
		}
		if len(images) > 0 {
			parts := append([]openai.ChatMessagePart{{
				Type: openai.ChatMessagePartTypeText,
				Text: "Screenshot from the last tool call.",
			}}, images...)
			out = append(out, openai.ChatCompletionMessage{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			})
		}
		if msg.Content != "" {
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		}
	}
	return out
}

func dataURL(img Image) string {
	mt := img.MediaType
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + img.Data
}
