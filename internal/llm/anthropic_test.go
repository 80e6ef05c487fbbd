package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path   string
	header http.Header
	body   map[string]any
}

func newAnthropicServer(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestAnthropic(t *testing.T, srv *httptest.Server) *AnthropicProvider {
	t.Helper()
	p, err := NewAnthropicProvider("test-key", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)
	return p
}

const anthropicReply = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5-20250929",
  "content": [
    {"type": "thinking", "thinking": "I should look first.", "signature": "sig-1"},
    {"type": "text", "text": "Taking a screenshot."},
    {"type": "tool_use", "id": "toolu_1", "name": "computer", "input": {"action": "screenshot"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 12, "output_tokens": 7}
}`

func TestNewAnthropicProvider(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewAnthropicProvider("", "")
		require.Error(t, err)
	})

	t.Run("defaults model", func(t *testing.T) {
		p, err := NewAnthropicProvider("key", "")
		require.NoError(t, err)
		assert.Equal(t, "claude-sonnet-4-5-20250929", p.DefaultModel())
		assert.Equal(t, ProviderAnthropic, p.ID())
	})

	t.Run("set model validates", func(t *testing.T) {
		p, err := NewAnthropicProvider("key", "")
		require.NoError(t, err)
		require.NoError(t, p.SetModel("claude-3-7-sonnet-20250219"))
		assert.Error(t, p.SetModel("gpt-4o"))
	})

	t.Run("cloud providers need their location", func(t *testing.T) {
		_, err := NewBedrockProvider(context.Background(), "", "")
		assert.Error(t, err)
		_, err = NewVertexProvider(context.Background(), "us-east5", "", "")
		assert.Error(t, err)
	})
}

func TestAnthropicProvider_Chat(t *testing.T) {
	t.Run("parses thinking, text and tool use", func(t *testing.T) {
		srv, _ := newAnthropicServer(t, http.StatusOK, anthropicReply)
		p := newTestAnthropic(t, srv)

		resp, err := p.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: RoleUser, Content: "open a browser"}},
		})
		require.NoError(t, err)

		assert.Equal(t, "Taking a screenshot.", resp.Content)
		assert.Equal(t, "tool_use", resp.StopReason)
		assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 7}, resp.Usage)
		require.Len(t, resp.Thinking, 1)
		assert.Equal(t, "sig-1", resp.Thinking[0].Signature)
		require.Len(t, resp.ToolCalls, 1)
		assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
		assert.JSONEq(t, `{"action":"screenshot"}`, string(resp.ToolCalls[0].Input))
		assert.NotEmpty(t, resp.Raw)
	})

	t.Run("sends the computer tool, betas and thinking budget", func(t *testing.T) {
		srv, captured := newAnthropicServer(t, http.StatusOK, anthropicReply)
		p := newTestAnthropic(t, srv)
		display := 1

		_, err := p.Chat(context.Background(), &ChatRequest{
			SystemPrompt: "system",
			Messages:     []Message{{Role: RoleUser, Content: "hi"}},
			Computer: &ComputerTool{
				Type:          "computer_20250124",
				Beta:          "computer-use-2025-01-24",
				DisplayWidth:  1280,
				DisplayHeight: 800,
				DisplayNumber: &display,
			},
			ThinkingBudget:      512,
			TokenEfficientTools: true,
		})
		require.NoError(t, err)

		assert.Equal(t, "/v1/messages", captured.path)
		assert.Contains(t, captured.header.Get("anthropic-beta"), "computer-use-2025-01-24")
		assert.Contains(t, captured.header.Get("anthropic-beta"), BetaTokenEfficientTools)

		tools := captured.body["tools"].([]any)
		require.Len(t, tools, 1)
		tool := tools[0].(map[string]any)
		assert.Equal(t, "computer_20250124", tool["type"])
		assert.Equal(t, "computer", tool["name"])
		assert.EqualValues(t, 1280, tool["display_width_px"])
		assert.EqualValues(t, 800, tool["display_height_px"])
		assert.EqualValues(t, 1, tool["display_number"])

		thinking := captured.body["thinking"].(map[string]any)
		assert.Equal(t, "enabled", thinking["type"])
		assert.EqualValues(t, minThinkingBudget, thinking["budget_tokens"])
	})

	t.Run("older tool version", func(t *testing.T) {
		srv, captured := newAnthropicServer(t, http.StatusOK, anthropicReply)
		p := newTestAnthropic(t, srv)

		_, err := p.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
			Computer: &ComputerTool{Type: "computer_20241022", Beta: "computer-use-2024-10-22", DisplayWidth: 1024, DisplayHeight: 768},
		})
		require.NoError(t, err)
		tool := captured.body["tools"].([]any)[0].(map[string]any)
		assert.Equal(t, "computer_20241022", tool["type"])
		assert.Contains(t, captured.header.Get("anthropic-beta"), "computer-use-2024-10-22")
	})

	t.Run("unknown tool version", func(t *testing.T) {
		p, err := NewAnthropicProvider("key", "")
		require.NoError(t, err)
		_, err = p.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
			Computer: &ComputerTool{Type: "computer_1999"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported computer tool type")
	})

	t.Run("replays thinking, tool calls and screenshot results", func(t *testing.T) {
		srv, captured := newAnthropicServer(t, http.StatusOK, anthropicReply)
		p := newTestAnthropic(t, srv)

		_, err := p.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: RoleUser, Content: "hi"},
				{
					Role:      RoleAssistant,
					Thinking:  []ThinkingBlock{{Thinking: "look", Signature: "sig"}},
					ToolCalls: []ToolCall{{ID: "toolu_1", Name: "computer", Input: json.RawMessage(`{"action":"screenshot"}`)}},
				},
				{
					Role: RoleUser,
					ToolResults: []ToolResult{
						{ToolUseID: "toolu_1", Images: []Image{{MediaType: "image/png", Data: "aGVsbG8="}}},
					},
				},
			},
		})
		require.NoError(t, err)

		messages := captured.body["messages"].([]any)
		require.Len(t, messages, 3)

		assistant := messages[1].(map[string]any)["content"].([]any)
		assert.Equal(t, "thinking", assistant[0].(map[string]any)["type"])
		assert.Equal(t, "tool_use", assistant[1].(map[string]any)["type"])

		result := messages[2].(map[string]any)["content"].([]any)[0].(map[string]any)
		assert.Equal(t, "tool_result", result["type"])
		assert.Equal(t, "toolu_1", result["tool_use_id"])
		image := result["content"].([]any)[0].(map[string]any)
		assert.Equal(t, "image", image["type"])
		source := image["source"].(map[string]any)
		assert.Equal(t, "base64", source["type"])
		assert.Equal(t, "image/png", source["media_type"])
		assert.Equal(t, "aGVsbG8=", source["data"])
	})

	t.Run("error results are flagged", func(t *testing.T) {
		srv, captured := newAnthropicServer(t, http.StatusOK, anthropicReply)
		p := newTestAnthropic(t, srv)

		_, err := p.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "toolu_2", Name: "computer", Input: json.RawMessage(`{"action":"bogus"}`)}}},
				{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "toolu_2", Content: "Invalid action: bogus", IsError: true}}},
			},
		})
		require.NoError(t, err)
		messages := captured.body["messages"].([]any)
		result := messages[1].(map[string]any)["content"].([]any)[0].(map[string]any)
		assert.Equal(t, true, result["is_error"])
	})

	t.Run("API errors carry the server message", func(t *testing.T) {
		srv, _ := newAnthropicServer(t, http.StatusBadRequest,
			`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`)
		p := newTestAnthropic(t, srv)

		_, err := p.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid_request_error: max_tokens too large")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})
}
