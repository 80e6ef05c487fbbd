package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements the Provider interface for Google Gemini
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// GeminiModels lists available Gemini models
var GeminiModels = []Model{
	{
		ID:             "gemini-2.5-pro",
		Name:           "Gemini 2.5 Pro",
		ContextWindow:  1000000,
		InputCost:      1.25,
		OutputCost:     10.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "gemini-2.5-flash",
		Name:           "Gemini 2.5 Flash",
		ContextWindow:  1000000,
		InputCost:      0.30,
		OutputCost:     2.50,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "gemini-2.0-flash",
		Name:           "Gemini 2.0 Flash",
		ContextWindow:  1000000,
		InputCost:      0.10,
		OutputCost:     0.40,
		SupportsTools:  true,
		SupportsVision: true,
	},
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// ID returns the provider identifier
func (p *GeminiProvider) ID() ProviderID {
	return ProviderGemini
}

// Name returns the human-readable provider name
func (p *GeminiProvider) Name() string {
	return "Google Gemini"
}

// SupportsTools returns true - Gemini supports function calling
func (p *GeminiProvider) SupportsTools() bool {
	return true
}

// Models returns available models
func (p *GeminiProvider) Models() []Model {
	return GeminiModels
}

// DefaultModel returns the default model
func (p *GeminiProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *GeminiProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends the conversation and returns the next assistant turn
func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = p.model
	}

	model := p.client.GenerativeModel(modelName)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	// Set system instruction
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	// Configure tools
	if tools := toolsWithComputer(req); len(tools) > 0 {
		var funcDecls []*genai.FunctionDeclaration
		for _, tool := range tools {
			var params map[string]any
			_ = json.Unmarshal(tool.InputSchema, &params) // Schema already validated at registration

			funcDecls = append(funcDecls, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  convertToSchema(params),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: funcDecls}}
	}

	contents, err := convertGeminiContents(req.Messages)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	// Start chat session
	cs := model.StartChat()
	cs.History = contents[:len(contents)-1] // All but last message

	// Send last message
	lastMsg := contents[len(contents)-1]
	resp, err := cs.SendMessage(ctx, lastMsg.Parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	out, err := parseGeminiResponse(resp)
	if err != nil {
		return nil, err
	}
	out.Model = modelName
	return out, nil
}

// convertGeminiContents maps turns to genai contents. Tool results become
// function responses followed by their screenshots as inline PNG data.
func convertGeminiContents(messages []Message) ([]*genai.Content, error) {
	var contents []*genai.Content
	for _, msg := range messages {
		var parts []genai.Part
		if msg.Role == RoleAssistant {
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Input, &args)
				parts = append(parts, genai.FunctionCall{
					Name: tc.Name,
					Args: args,
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}
			continue
		}

		for _, r := range msg.ToolResults {
			name := r.Name
			if name == "" {
				name = geminiCallName(r.ToolUseID)
			}
			response := map[string]any{"result": r.Content}
			if r.IsError {
				response = map[string]any{"error": r.Content}
			}
			parts = append(parts, genai.FunctionResponse{Name: name, Response: response})
			for _, img := range r.Images {
				data, err := base64.StdEncoding.DecodeString(img.Data)
				if err != nil {
					return nil, fmt.Errorf("decode screenshot for %s: %w", r.ToolUseID, err)
				}
				parts = append(parts, genai.ImageData(imageFormat(img.MediaType), data))
			}
		}
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
		if len(parts) > 0 {
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		}
	}
	return contents, nil
}

// Gemini has no call IDs; calls are numbered within a response as name#n.
func geminiCallID(name string, n int) string {
	return fmt.Sprintf("%s#%d", name, n)
}

func geminiCallName(id string) string {
	if i := strings.LastIndex(id, "#"); i >= 0 {
		return id[:i]
	}
	return id
}

func imageFormat(mediaType string) string {
	if f, ok := strings.CutPrefix(mediaType, "image/"); ok && f != "" {
		return f
	}
	return "png"
}

// Close closes the client
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	response := &ChatResponse{
		StopReason: candidate.FinishReason.String(),
	}

	if resp.UsageMetadata != nil {
		response.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	// Parse content
	if candidate.Content != nil {
		var text []string
		for _, part := range candidate.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				text = append(text, string(v))
			case genai.FunctionCall:
				argsJSON, _ := json.Marshal(v.Args)
				response.ToolCalls = append(response.ToolCalls, ToolCall{
					ID:    geminiCallID(v.Name, len(response.ToolCalls)),
					Name:  v.Name,
					Input: argsJSON,
				})
			}
		}
		response.Content = strings.Join(text, "\n")
	}

	return response, nil
}

// convertToSchema converts a map to genai.Schema
func convertToSchema(params map[string]any) *genai.Schema {
	if params == nil {
		return nil
	}

	schema := &genai.Schema{
		Type: genai.TypeObject,
	}

	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = convertPropertyToSchema(propMap)
			}
		}
	}

	if required, ok := params["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	return schema
}

func convertPropertyToSchema(prop map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	if t, ok := prop["type"].(string); ok {
		switch t {
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		case "array":
			schema.Type = genai.TypeArray
		case "object":
			schema.Type = genai.TypeObject
		}
	}

	if desc, ok := prop["description"].(string); ok {
		schema.Description = desc
	}

	if enum, ok := prop["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	if items, ok := prop["items"].(map[string]any); ok {
		schema.Items = convertPropertyToSchema(items)
	}

	return schema
}
