package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAIReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4.1",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "computer", "arguments": "{\"action\":\"left_click\",\"coordinate\":[10,20]}"}}]
    }
  }],
  "usage": {"prompt_tokens": 30, "completion_tokens": 9, "total_tokens": 39}
}`

func TestOpenAIProvider_Chat(t *testing.T) {
	var body openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, openAIReply)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test-key", "", srv.URL)
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), &ChatRequest{
		SystemPrompt: "system",
		Messages: []Message{
			{Role: RoleUser, Content: "click the button"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_0", Name: "computer", Input: json.RawMessage(`{"action":"screenshot"}`)}}},
			{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "call_0", Name: "computer", Images: []Image{{MediaType: "image/png", Data: "aGk="}}}}},
		},
		Computer: &ComputerTool{
			Type:          "computer_20250124",
			DisplayWidth:  1280,
			DisplayHeight: 800,
			InputSchema:   json.RawMessage(`{"type":"object","properties":{"action":{"type":"string"}},"required":["action"]}`),
		},
	})
	require.NoError(t, err)

	t.Run("parses tool calls and usage", func(t *testing.T) {
		require.Len(t, resp.ToolCalls, 1)
		assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
		assert.Equal(t, "computer", resp.ToolCalls[0].Name)
		assert.JSONEq(t, `{"action":"left_click","coordinate":[10,20]}`, string(resp.ToolCalls[0].Input))
		assert.Equal(t, "tool_calls", resp.StopReason)
		assert.Equal(t, 30, resp.Usage.InputTokens)
	})

	t.Run("sends the computer as a function tool", func(t *testing.T) {
		require.Len(t, body.Tools, 1)
		assert.Equal(t, ComputerFunctionName, body.Tools[0].Function.Name)
	})

	t.Run("screenshots follow the tool message as image parts", func(t *testing.T) {
		require.Len(t, body.Messages, 5)
		assert.Equal(t, openai.ChatMessageRoleSystem, body.Messages[0].Role)
		assert.Equal(t, openai.ChatMessageRoleAssistant, body.Messages[2].Role)
		require.Len(t, body.Messages[2].ToolCalls, 1)

		tool := body.Messages[3]
		assert.Equal(t, openai.ChatMessageRoleTool, tool.Role)
		assert.Equal(t, "call_0", tool.ToolCallID)
		assert.Equal(t, "Screenshot attached.", tool.Content)

		img := body.Messages[4]
		assert.Equal(t, openai.ChatMessageRoleUser, img.Role)
		require.Len(t, img.MultiContent, 2)
		assert.Equal(t, "data:image/png;base64,aGk=", img.MultiContent[1].ImageURL.URL)
	})
}

func TestConvertOpenAIMessages_ErrorResults(t *testing.T) {
	msgs := convertOpenAIMessages("", []Message{
		{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "c1", Content: "Invalid action: fly", IsError: true}}},
	})
	require.Len(t, msgs, 1)
	assert.Equal(t, "Error: Invalid action: fly", msgs[0].Content)
}

func TestNewOpenRouterProvider(t *testing.T) {
	p, err := NewOpenRouterProvider("key", "")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenRouter, p.ID())
	assert.Equal(t, "OpenRouter", p.Name())
	assert.Equal(t, "anthropic/claude-sonnet-4.5", p.DefaultModel())
	assert.Equal(t, OpenRouterModels, p.Models())

	t.Run("listed and catalogue slugs", func(t *testing.T) {
		require.NoError(t, p.SetModel("openai/gpt-4o"))
		assert.Equal(t, "openai/gpt-4o", p.DefaultModel())
		require.NoError(t, p.SetModel("qwen/qwen2.5-vl-72b-instruct"))
		assert.Equal(t, "qwen/qwen2.5-vl-72b-instruct", p.DefaultModel())
	})

	t.Run("bare names are rejected", func(t *testing.T) {
		for _, id := range []string{"gpt-4o", "openai/", "/gpt-4o", "openai/gpt 4o"} {
			assert.Error(t, p.SetModel(id), id)
		}
		assert.Equal(t, "qwen/qwen2.5-vl-72b-instruct", p.DefaultModel())
	})

	t.Run("constructor checks key and model", func(t *testing.T) {
		_, err := NewOpenRouterProvider("", "")
		assert.Error(t, err)
		_, err = NewOpenRouterProvider("key", "gpt-4o")
		assert.ErrorContains(t, err, "expected vendor/model")
	})
}
