package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Beta flags sent alongside the computer tool.
const (
	BetaTokenEfficientTools = "token-efficient-tools-2025-02-19"
)

// minThinkingBudget is the smallest budget the API accepts.
const minThinkingBudget = 1024

// AnthropicProvider implements the Provider interface for Claude on the
// first-party API, Amazon Bedrock and Google Vertex AI. All three speak the
// beta messages API with the native computer-use tool.
type AnthropicProvider struct {
	client anthropic.Client
	id     ProviderID
	name   string
	model  string
	models []Model
}

// AnthropicModels lists computer-use capable Anthropic models
var AnthropicModels = []Model{
	{
		ID:             "claude-sonnet-4-5-20250929",
		Name:           "Claude Sonnet 4.5",
		ContextWindow:  200000,
		InputCost:      3.0,
		OutputCost:     15.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "claude-sonnet-4-20250514",
		Name:           "Claude Sonnet 4",
		ContextWindow:  200000,
		InputCost:      3.0,
		OutputCost:     15.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "claude-opus-4-1-20250805",
		Name:           "Claude Opus 4.1",
		ContextWindow:  200000,
		InputCost:      15.0,
		OutputCost:     75.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "claude-3-7-sonnet-20250219",
		Name:           "Claude 3.7 Sonnet",
		ContextWindow:  200000,
		InputCost:      3.0,
		OutputCost:     15.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "claude-3-5-sonnet-20241022",
		Name:           "Claude 3.5 Sonnet (new)",
		ContextWindow:  200000,
		InputCost:      3.0,
		OutputCost:     15.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
}

// BedrockModels lists the Bedrock inference profiles for the same models.
var BedrockModels = []Model{
	{ID: "us.anthropic.claude-sonnet-4-5-20250929-v1:0", Name: "Claude Sonnet 4.5", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
	{ID: "us.anthropic.claude-sonnet-4-20250514-v1:0", Name: "Claude Sonnet 4", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
	{ID: "us.anthropic.claude-3-7-sonnet-20250219-v1:0", Name: "Claude 3.7 Sonnet", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
	{ID: "anthropic.claude-3-5-sonnet-20241022-v2:0", Name: "Claude 3.5 Sonnet (new)", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
}

// VertexModels lists the Vertex AI model names.
var VertexModels = []Model{
	{ID: "claude-sonnet-4-5@20250929", Name: "Claude Sonnet 4.5", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
	{ID: "claude-sonnet-4@20250514", Name: "Claude Sonnet 4", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
	{ID: "claude-3-7-sonnet@20250219", Name: "Claude 3.7 Sonnet", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
	{ID: "claude-3-5-sonnet-v2@20241022", Name: "Claude 3.5 Sonnet (new)", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
}

// NewAnthropicProvider creates a provider for the first-party API. Extra
// options are appended after the API key, e.g. option.WithBaseURL.
func NewAnthropicProvider(apiKey string, model string, opts ...option.RequestOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicProvider{
		client: anthropic.NewClient(options...),
		id:     ProviderAnthropic,
		name:   "Anthropic",
		model:  model,
		models: AnthropicModels,
	}, nil
}

// NewBedrockProvider creates a provider that signs requests with the default
// AWS credential chain.
func NewBedrockProvider(ctx context.Context, region string, model string, opts ...option.RequestOption) (*AnthropicProvider, error) {
	if region == "" {
		return nil, fmt.Errorf("bedrock region is required")
	}
	if model == "" {
		model = BedrockModels[0].ID
	}
	options := append([]option.RequestOption{bedrock.WithLoadDefaultConfig(ctx, config.WithRegion(region))}, opts...)
	return &AnthropicProvider{
		client: anthropic.NewClient(options...),
		id:     ProviderBedrock,
		name:   "Amazon Bedrock",
		model:  model,
		models: BedrockModels,
	}, nil
}

// NewVertexProvider creates a provider authenticated with Google application
// default credentials.
func NewVertexProvider(ctx context.Context, region, project string, model string, opts ...option.RequestOption) (*AnthropicProvider, error) {
	if region == "" || project == "" {
		return nil, fmt.Errorf("vertex region and project are required")
	}
	if model == "" {
		model = VertexModels[0].ID
	}
	options := append([]option.RequestOption{vertex.WithGoogleAuth(ctx, region, project)}, opts...)
	return &AnthropicProvider{
		client: anthropic.NewClient(options...),
		id:     ProviderVertex,
		name:   "Google Vertex AI",
		model:  model,
		models: VertexModels,
	}, nil
}

// ID returns the provider identifier
func (p *AnthropicProvider) ID() ProviderID {
	return p.id
}

// Name returns the human-readable provider name
func (p *AnthropicProvider) Name() string {
	return p.name
}

// SupportsTools returns true - Claude supports tool use
func (p *AnthropicProvider) SupportsTools() bool {
	return true
}

// Models returns available models
func (p *AnthropicProvider) Models() []Model {
	return p.models
}

// DefaultModel returns the default model
func (p *AnthropicProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *AnthropicProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends the conversation through the beta messages API
func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Beta.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", describeAnthropicError(err))
	}

	response := &ChatResponse{
		StopReason: string(resp.StopReason),
		Model:      string(resp.Model),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}
	if raw := resp.RawJSON(); raw != "" {
		response.Raw = json.RawMessage(raw)
	}

	var text []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "thinking":
			response.Thinking = append(response.Thinking, ThinkingBlock{
				Thinking:  block.Thinking,
				Signature: block.Signature,
			})
		case "redacted_thinking":
			response.Thinking = append(response.Thinking, ThinkingBlock{Data: block.Data})
		case "tool_use":
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	response.Content = strings.Join(text, "\n")

	return response, nil
}

func (p *AnthropicProvider) buildParams(req *ChatRequest) (anthropic.BetaMessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages, err := convertMessagesBeta(req.Messages)
	if err != nil {
		return anthropic.BetaMessageNewParams{}, err
	}

	tools, betas, err := convertToolsBeta(req)
	if err != nil {
		return anthropic.BetaMessageNewParams{}, err
	}

	params := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.BetaTextBlockParam{{Text: req.SystemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	if len(betas) > 0 {
		params.Betas = betas
	}
	if req.ThinkingBudget > 0 {
		budget := int64(req.ThinkingBudget)
		if budget < minThinkingBudget {
			budget = minThinkingBudget
		}
		params.Thinking = anthropic.BetaThinkingConfigParamOfEnabled(budget)
	}
	return params, nil
}

// convertToolsBeta returns the tool params and the beta flags they need.
func convertToolsBeta(req *ChatRequest) ([]anthropic.BetaToolUnionParam, []anthropic.AnthropicBeta, error) {
	var tools []anthropic.BetaToolUnionParam
	var betas []anthropic.AnthropicBeta

	if c := req.Computer; c != nil {
		param, err := computerToolParam(c)
		if err != nil {
			return nil, nil, err
		}
		tools = append(tools, param)
		betas = append(betas, anthropic.AnthropicBeta(c.Beta))
	}
	if req.TokenEfficientTools {
		betas = append(betas, anthropic.AnthropicBeta(BetaTokenEfficientTools))
	}

	for _, tool := range req.Tools {
		var schema anthropic.BetaToolInputSchemaParam
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			return nil, nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
		}
		param := anthropic.BetaToolUnionParamOfTool(schema, tool.Name)
		if param.OfTool == nil {
			return nil, nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
		}
		param.OfTool.Description = anthropic.String(tool.Description)
		tools = append(tools, param)
	}
	return tools, betas, nil
}

func computerToolParam(c *ComputerTool) (anthropic.BetaToolUnionParam, error) {
	w, h := int64(c.DisplayWidth), int64(c.DisplayHeight)
	switch c.Type {
	case "computer_20241022":
		param := anthropic.BetaToolUnionParamOfComputerUseTool20241022(h, w)
		if c.DisplayNumber != nil {
			param.OfComputerUseTool20241022.DisplayNumber = anthropic.Int(int64(*c.DisplayNumber))
		}
		return param, nil
	case "computer_20250124":
		param := anthropic.BetaToolUnionParamOfComputerUseTool20250124(h, w)
		if c.DisplayNumber != nil {
			param.OfComputerUseTool20250124.DisplayNumber = anthropic.Int(int64(*c.DisplayNumber))
		}
		return param, nil
	default:
		return anthropic.BetaToolUnionParam{}, fmt.Errorf("unsupported computer tool type %q", c.Type)
	}
}

func convertMessagesBeta(messages []Message) ([]anthropic.BetaMessageParam, error) {
	result := make([]anthropic.BetaMessageParam, 0, len(messages))

	for _, msg := range messages {
		var content []anthropic.BetaContentBlockParamUnion

		// Thinking blocks must lead the assistant turn.
		for _, th := range msg.Thinking {
			if th.Data != "" {
				content = append(content, anthropic.BetaContentBlockParamUnion{
					OfRedactedThinking: &anthropic.BetaRedactedThinkingBlockParam{Data: th.Data},
				})
				continue
			}
			content = append(content, anthropic.BetaContentBlockParamUnion{
				OfThinking: &anthropic.BetaThinkingBlockParam{
					Thinking:  th.Thinking,
					Signature: th.Signature,
				},
			})
		}

		for _, r := range msg.ToolResults {
			content = append(content, betaToolResultBlock(r))
		}

		if msg.Content != "" {
			content = append(content, anthropic.NewBetaTextBlock(msg.Content))
		}

		for _, tc := range msg.ToolCalls {
			var input map[string]any
			if len(tc.Input) > 0 {
				if err := json.Unmarshal(tc.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call input: %w", err)
				}
			}
			content = append(content, anthropic.NewBetaToolUseBlock(tc.ID, input, tc.Name))
		}

		if len(content) == 0 {
			continue
		}

		role := anthropic.BetaMessageParamRoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.BetaMessageParamRoleAssistant
		}
		result = append(result, anthropic.BetaMessageParam{
			Role:    role,
			Content: content,
		})
	}

	return result, nil
}

func betaToolResultBlock(r ToolResult) anthropic.BetaContentBlockParamUnion {
	block := anthropic.BetaToolResultBlockParam{ToolUseID: r.ToolUseID}
	if r.IsError {
		block.IsError = anthropic.Bool(true)
	}

	var parts []anthropic.BetaToolResultBlockParamContentUnion
	if r.Content != "" {
		parts = append(parts, anthropic.BetaToolResultBlockParamContentUnion{
			OfText: &anthropic.BetaTextBlockParam{Text: r.Content},
		})
	}
	for _, img := range r.Images {
		parts = append(parts, anthropic.BetaToolResultBlockParamContentUnion{
			OfImage: &anthropic.BetaImageBlockParam{
				Source: anthropic.BetaImageBlockParamSourceUnion{
					OfBase64: &anthropic.BetaBase64ImageSourceParam{
						Data:      img.Data,
						MediaType: betaMediaType(img.MediaType),
					},
				},
			},
		})
	}
	if len(parts) > 0 {
		block.Content = parts
	}
	return anthropic.BetaContentBlockParamUnion{OfToolResult: &block}
}

func betaMediaType(mediaType string) anthropic.BetaBase64ImageSourceMediaType {
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return anthropic.BetaBase64ImageSourceMediaTypeImageJPEG
	case "image/gif":
		return anthropic.BetaBase64ImageSourceMediaTypeImageGIF
	case "image/webp":
		return anthropic.BetaBase64ImageSourceMediaTypeImageWebP
	default:
		return anthropic.BetaBase64ImageSourceMediaTypeImagePNG
	}
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// describeAnthropicError replaces SDK errors with the API's own message.
func describeAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	var payload anthropicErrorPayload
	if raw := apiErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &payload) == nil && payload.Error.Message != "" {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Type:       payload.Error.Type,
			Message:    payload.Error.Message,
			Err:        err,
		}
	}
	return &APIError{StatusCode: apiErr.StatusCode, Message: "anthropic request failed", Err: err}
}
