package llm

import (
	"encoding/json"
	"fmt"
)

// Tool represents a tool that can be called by the LLM
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Image is a base64-encoded image attached to a tool result.
type Image struct {
	MediaType string `json:"media_type"` // e.g. image/png
	Data      string `json:"data"`
}

// ToolResult represents the result of a tool call
type ToolResult struct {
	ToolUseID string  `json:"tool_use_id"`
	Name      string  `json:"name,omitempty"`
	Content   string  `json:"content"`
	IsError   bool    `json:"is_error"`
	Images    []Image `json:"images,omitempty"`
}

// NewTool creates a new tool definition
func NewTool(name, description string, schema any) Tool {
	schemaBytes, _ := json.Marshal(schema)
	return Tool{
		Name:        name,
		Description: description,
		InputSchema: schemaBytes,
	}
}

// ComputerFunctionName is the function name used when the computer tool is
// sent as a plain function.
const ComputerFunctionName = "computer"

// FunctionTool renders the computer tool as an ordinary function tool for
// providers without native computer use.
func (c *ComputerTool) FunctionTool() Tool {
	desc := fmt.Sprintf(
		"Control the computer's mouse and keyboard and take screenshots. "+
			"The screen is %dx%d pixels; coordinates are [x, y] from the top-left corner. "+
			"Take a screenshot first to see the current state.",
		c.DisplayWidth, c.DisplayHeight)
	return Tool{
		Name:        ComputerFunctionName,
		Description: desc,
		InputSchema: c.InputSchema,
	}
}

// toolsWithComputer returns req.Tools plus the computer function tool.
func toolsWithComputer(req *ChatRequest) []Tool {
	tools := append([]Tool(nil), req.Tools...)
	if req.Computer != nil {
		tools = append(tools, req.Computer.FunctionTool())
	}
	return tools
}

// toolResultText is the text sent back for a result, with error results
// prefixed so providers without an is_error flag still see the failure.
func toolResultText(r ToolResult) string {
	if r.IsError {
		return "Error: " + r.Content
	}
	if r.Content == "" && len(r.Images) > 0 {
		return "Screenshot attached."
	}
	return r.Content
}
