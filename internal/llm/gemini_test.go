package llm

import (
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertGeminiContents(t *testing.T) {
	contents, err := convertGeminiContents([]Message{
		{Role: RoleUser, Content: "open settings"},
		{Role: RoleAssistant, Content: "Looking.", ToolCalls: []ToolCall{{ID: "computer#0", Name: "computer", Input: json.RawMessage(`{"action":"screenshot"}`)}}},
		{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "computer#0", Images: []Image{{MediaType: "image/png", Data: "aGk="}}}}},
	})
	require.NoError(t, err)
	require.Len(t, contents, 3)

	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	call, ok := contents[1].Parts[1].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "screenshot", call.Args["action"])

	assert.Equal(t, "user", contents[2].Role)
	require.Len(t, contents[2].Parts, 2)
	fr, ok := contents[2].Parts[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "computer", fr.Name)
	blob, ok := contents[2].Parts[1].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, []byte("hi"), blob.Data)
}

func TestConvertGeminiContents_BadImage(t *testing.T) {
	_, err := convertGeminiContents([]Message{
		{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "computer#0", Images: []Image{{Data: "***"}}}}},
	})
	assert.Error(t, err)
}

func TestParseGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("Clicking."),
				genai.FunctionCall{Name: "computer", Args: map[string]any{"action": "left_click"}},
				genai.FunctionCall{Name: "computer", Args: map[string]any{"action": "screenshot"}},
			}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 5, CandidatesTokenCount: 2},
	}

	out, err := parseGeminiResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "Clicking.", out.Content)
	require.Len(t, out.ToolCalls, 2)
	assert.Equal(t, "computer#0", out.ToolCalls[0].ID)
	assert.Equal(t, "computer#1", out.ToolCalls[1].ID)
	assert.Equal(t, "computer", geminiCallName(out.ToolCalls[1].ID))
	assert.Equal(t, 5, out.Usage.InputTokens)

	_, err = parseGeminiResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}

func TestConvertToSchema_ArrayItems(t *testing.T) {
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["key", "type"]},
			"coordinate": {"type": "array", "items": {"type": "integer"}}
		},
		"required": ["action"]
	}`), &params))

	schema := convertToSchema(params)
	assert.Equal(t, []string{"action"}, schema.Required)
	assert.Equal(t, []string{"key", "type"}, schema.Properties["action"].Enum)
	require.NotNil(t, schema.Properties["coordinate"].Items)
	assert.Equal(t, genai.TypeInteger, schema.Properties["coordinate"].Items.Type)
}
