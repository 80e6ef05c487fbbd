package computer

import "fmt"

// Result is the outcome of one tool invocation. Any field may be empty;
// Base64Image carries a PNG when the action produced a screenshot.
type Result struct {
	Output      string `json:"output,omitempty"`
	Error       string `json:"error,omitempty"`
	Base64Image string `json:"base64_image,omitempty"`
	System      string `json:"system,omitempty"`
}

// IsEmpty reports whether every field is empty.
func (r *Result) IsEmpty() bool {
	return r == nil || (r.Output == "" && r.Error == "" && r.Base64Image == "" && r.System == "")
}

// Combine merges other into a copy of r. Text fields are concatenated.
// Two results that both carry an image cannot be combined.
func (r *Result) Combine(other *Result) (*Result, error) {
	if r == nil {
		r = &Result{}
	}
	if other == nil {
		out := *r
		return &out, nil
	}
	if r.Base64Image != "" && other.Base64Image != "" {
		return nil, &ToolError{Message: "cannot combine two results that both carry an image"}
	}
	img := r.Base64Image
	if img == "" {
		img = other.Base64Image
	}
	return &Result{
		Output:      r.Output + other.Output,
		Error:       r.Error + other.Error,
		Base64Image: img,
		System:      r.System + other.System,
	}, nil
}

// ToolError is a labelled rejection of a request. The agent turns it into a
// tool result with Error set and keeps going.
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string { return e.Message }

func toolErrorf(format string, args ...any) *ToolError {
	return &ToolError{Message: fmt.Sprintf(format, args...)}
}
