package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yolodolo42/deskpilot/internal/computer"
	"github.com/yolodolo42/deskpilot/internal/llm"
)

// Tool is anything the model can call by name.
type Tool interface {
	Name() string
	Execute(ctx context.Context, input json.RawMessage) (*computer.Result, error)
}

// ComputerTool adapts a computer.Tool to the collection and describes it to
// providers.
type ComputerTool struct {
	*computer.Tool
}

// NewComputerTool wraps t.
func NewComputerTool(t *computer.Tool) *ComputerTool {
	return &ComputerTool{Tool: t}
}

// Name returns the name the model uses for the tool.
func (c *ComputerTool) Name() string { return computer.Name }

// Spec is the provider-facing description of the display and input schema.
func (c *ComputerTool) Spec() *llm.ComputerTool {
	opts := c.Options()
	v := c.Version()
	return &llm.ComputerTool{
		Type:          string(v),
		Beta:          v.Beta(),
		DisplayWidth:  opts.DisplayWidth,
		DisplayHeight: opts.DisplayHeight,
		DisplayNumber: opts.DisplayNumber,
		InputSchema:   v.InputSchema(),
	}
}

// ToolCollection routes tool calls by name.
type ToolCollection struct {
	tools    map[string]Tool
	order    []string
	computer *ComputerTool
}

// NewToolCollection registers tools; later tools replace earlier ones with
// the same name.
func NewToolCollection(tools ...Tool) *ToolCollection {
	tc := &ToolCollection{tools: make(map[string]Tool)}
	for _, t := range tools {
		tc.Register(t)
	}
	return tc
}

// Register adds or replaces a tool.
func (tc *ToolCollection) Register(t Tool) {
	name := t.Name()
	if _, ok := tc.tools[name]; !ok {
		tc.order = append(tc.order, name)
	}
	tc.tools[name] = t
	if c, ok := t.(*ComputerTool); ok {
		tc.computer = c
	}
}

// Names lists registered tools in registration order.
func (tc *ToolCollection) Names() []string {
	return append([]string(nil), tc.order...)
}

// Computer returns the registered computer tool, if any.
func (tc *ToolCollection) Computer() *ComputerTool {
	return tc.computer
}

// Run executes the named tool. Unknown tools and rejected or failed actions
// come back as results with Error set; only cancellation is returned as an
// error.
func (tc *ToolCollection) Run(ctx context.Context, name string, input json.RawMessage) (*computer.Result, error) {
	t, ok := tc.tools[name]
	if !ok {
		return &computer.Result{Error: fmt.Sprintf("Tool %s is invalid", name)}, nil
	}
	res, err := t.Execute(ctx, input)
	if err == nil {
		if res == nil {
			res = &computer.Result{}
		}
		return res, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return &computer.Result{Error: err.Error()}, nil
}

// toToolResult converts a tool outcome into the block sent back to the model.
func toToolResult(toolUseID, name string, res *computer.Result) llm.ToolResult {
	out := llm.ToolResult{ToolUseID: toolUseID, Name: name}
	if res == nil {
		return out
	}
	if res.Error != "" {
		out.IsError = true
		out.Content = maybePrependSystem(res.System, res.Error)
		return out
	}
	if res.Output != "" {
		out.Content = maybePrependSystem(res.System, res.Output)
	}
	if res.Base64Image != "" {
		out.Images = []llm.Image{{MediaType: "image/png", Data: res.Base64Image}}
	}
	return out
}

func maybePrependSystem(system, text string) string {
	if system == "" {
		return text
	}
	return "<system>" + system + "</system>\n" + text
}
