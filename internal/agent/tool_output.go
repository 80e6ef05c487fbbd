package agent

import (
	"github.com/yolodolo42/deskpilot/internal/computer"
)

// ToolOutput is the dual-channel view of a tool result:
// - Text: what the model sees (and what users can copy/paste)
// - Blocks: structured UI payload for the REPL to render without parsing text
type ToolOutput struct {
	ToolUseID string    `json:"tool_use_id"`
	Text      string    `json:"text"`
	IsError   bool      `json:"is_error,omitempty"`
	HasImage  bool      `json:"has_image,omitempty"`
	Blocks    []UIBlock `json:"blocks,omitempty"`
}

// NewToolOutput summarises res for display.
func NewToolOutput(toolUseID string, res *computer.Result) ToolOutput {
	out := ToolOutput{ToolUseID: toolUseID}
	if res == nil {
		return out
	}
	out.HasImage = res.Base64Image != ""
	if res.Error != "" {
		out.Text = res.Error
		out.IsError = true
	} else {
		out.Text = res.Output
	}
	var items []KVItem
	if res.Output != "" {
		items = append(items, KVItem{Key: "Output", Value: res.Output})
	}
	if res.Error != "" {
		items = append(items, KVItem{Key: "Error", Value: res.Error})
	}
	if res.System != "" {
		items = append(items, KVItem{Key: "System", Value: res.System})
	}
	if out.HasImage {
		items = append(items, KVItem{Key: "Screenshot", Value: "attached"})
	}
	if len(items) > 0 {
		out.Blocks = []UIBlock{{Kind: UIBlockKV, KV: &UIKV{Title: toolUseID, Items: items}}}
	}
	return out
}
