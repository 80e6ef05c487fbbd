package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/deskpilot/internal/agent"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

func TestRenderBlocks(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", renderBlocks(80, nil))
	})

	t.Run("kv aligns keys", func(t *testing.T) {
		out := renderBlocks(80, []agent.UIBlock{{
			Kind: agent.UIBlockKV,
			KV: &agent.UIKV{Title: "Display", Items: []agent.KVItem{
				{Key: "Display", Value: "1920x1080"},
				{Key: "Reported to model", Value: "1366x768"},
			}},
		}})
		lines := strings.Split(out, "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Display", lines[0])
		assert.Equal(t, "Display            1920x1080", lines[1])
		assert.Equal(t, "Reported to model  1366x768", lines[2])
	})

	t.Run("table", func(t *testing.T) {
		out := renderBlocks(80, []agent.UIBlock{{
			Kind: agent.UIBlockTable,
			Table: &agent.UITable{
				Headers: []string{"Action", "Result"},
				Rows:    [][]string{{"left_click", "ok"}, {"type", "error: denied"}},
			},
		}})
		lines := strings.Split(out, "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "Action     | Result       ", lines[0])
		assert.Equal(t, strings.Repeat("-", 26), lines[1])
		assert.Equal(t, "left_click | ok           ", lines[2])
	})

	t.Run("table shrinks to width", func(t *testing.T) {
		out := renderBlocks(20, []agent.UIBlock{{
			Kind: agent.UIBlockTable,
			Table: &agent.UITable{
				Headers: []string{"A", "B"},
				Rows:    [][]string{{strings.Repeat("x", 30), strings.Repeat("y", 30)}},
			},
		}})
		for _, line := range strings.Split(out, "\n") {
			assert.LessOrEqual(t, len(line), 20)
		}
	})

	t.Run("history block", func(t *testing.T) {
		out := renderBlocks(120, []agent.UIBlock{agent.HistoryBlock([]agent.ActionRecord{
			{SessionID: "abcdef1234", Action: "screenshot", HasImage: true},
		})})
		assert.Contains(t, out, "Recent actions")
		assert.Contains(t, out, "abcdef12")
		assert.Contains(t, out, "screenshot")
	})
}

func TestDescribeCall(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"screenshot", `{"action":"screenshot"}`, "computer(screenshot)"},
		{"click", `{"action":"left_click","coordinate":[1,2]}`, "computer(left_click coordinate=[1,2])"},
		{"type", `{"action":"type","text":"hi"}`, `computer(type text="hi")`},
		{"empty", `{}`, "computer()"},
		{"invalid", `nope`, "computer()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeCall(&llm.ToolCall{Name: "computer", Input: json.RawMessage(tt.input)})
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "", describeCall(nil))
}

func TestSaveScreenshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	data := []byte("\x89PNG fake")

	path, err := saveScreenshot(dir, "toolu_01/../x", base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "screenshot_toolu_01____x.png"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = saveScreenshot(dir, "bad", "!!!")
	assert.Error(t, err)
}

func TestReadActionInput(t *testing.T) {
	raw, err := readActionInput(` {"action":"screenshot"} `, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"screenshot"}`, string(raw))

	raw, err = readActionInput("-", bytes.NewBufferString(`{"action":"cursor_position"}`+"\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"cursor_position"}`, string(raw))

	_, err = readActionInput("{broken", nil)
	assert.Error(t, err)
}
