package agent

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/deskpilot/internal/llm"
)

func readEvents(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestSessionLog(t *testing.T) {
	dir := t.TempDir()
	l, err := openSessionLog(dir, "test-session")
	require.NoError(t, err)

	l.message(llm.Message{Role: llm.RoleUser, Content: "hi"}, llm.ProviderAnthropic, "m")
	l.message(llm.Message{
		Role:    llm.RoleAssistant,
		Content: "typing",
		ToolCalls: []llm.ToolCall{{
			ID: "toolu_1", Name: "computer",
			Input: json.RawMessage(`{"action":"type","text":"x","api_key":"pw"}`),
		}},
	}, llm.ProviderAnthropic, "m")
	l.message(llm.Message{Role: llm.RoleUser, ToolResults: []llm.ToolResult{{
		ToolUseID: "toolu_1", Images: []llm.Image{{MediaType: "image/png", Data: "AAAA"}},
	}}}, llm.ProviderAnthropic, "m")
	l.apiError(llm.ProviderAnthropic, "m", errors.New("overloaded"))
	l.Close()
	l.event("user", "content", "after close")

	path := filepath.Join(dir, "sessions", "test-session.jsonl")
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	events := readEvents(t, path)
	require.Len(t, events, 5)

	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, ev["msg"].(string))
		assert.Equal(t, "test-session", ev["session"])
	}
	assert.Equal(t, []string{"user", "assistant", "tool_call", "tool_result", "api_error"}, kinds)
	assert.Contains(t, events[2]["input"], "[redacted]")
	assert.NotContains(t, events[2]["input"], "pw")
	assert.Equal(t, float64(1), events[3]["images"])
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "AAAA")
	assert.Equal(t, "overloaded", events[4]["error"])
}

func TestSessionLog_NoDataDir(t *testing.T) {
	_, err := openSessionLog("", "x")
	require.Error(t, err)
}
