package computer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// InputSchema returns the JSON schema describing this version's action
// input. Providers without a native computer tool receive it as the
// function parameter schema.
//
// Value constraints (coordinate length, sign, scroll direction, duration
// range) are left to the per-action checks so their messages stay precise.
func (v ToolVersion) InputSchema() json.RawMessage {
	actions := make([]string, 0, len(v.Actions()))
	for _, a := range v.Actions() {
		actions = append(actions, string(a))
	}

	props := map[string]any{
		"action": map[string]any{
			"type":        "string",
			"enum":        actions,
			"description": "The action to perform.",
		},
		"text": map[string]any{
			"type":        "string",
			"description": "Text to type, or a key combination such as ctrl+s for the key action.",
		},
		"coordinate": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "integer"},
			"description": "[x, y] pixel position on the reported display.",
		},
	}
	if v == Version20250124 {
		props["scroll_direction"] = map[string]any{
			"type":        "string",
			"description": "One of up, down, left, right.",
		}
		props["scroll_amount"] = map[string]any{
			"type":        "integer",
			"description": "Number of scroll wheel clicks.",
		}
		props["duration"] = map[string]any{
			"type":        "number",
			"description": "Seconds to wait or hold a key, at most 100.",
		}
		props["key"] = map[string]any{
			"type":        "string",
			"description": "Modifier key held during a click or scroll.",
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"action"},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

var schemaCache sync.Map // ToolVersion -> *jsonschema.Schema

func compiledSchema(v ToolVersion) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(v); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}
	compiled, err := jsonschema.CompileString(string(v)+".schema.json", string(v.InputSchema()))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", v, err)
	}
	schemaCache.Store(v, compiled)
	return compiled, nil
}

// validateInput checks the structural shape of raw against the version
// schema.
func validateInput(v ToolVersion, raw json.RawMessage) error {
	schema, err := compiledSchema(v)
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &ToolError{Message: fmt.Sprintf("invalid input: %v", err)}
	}
	if err := schema.Validate(decoded); err != nil {
		return &ToolError{Message: describeSchemaError(err)}
	}
	return nil
}

// fieldTypeMessages labels type failures on string fields the way the
// per-action checks do.
var fieldTypeMessages = map[string]string{
	"/text":             "text must be a string",
	"/key":              "key must be a string",
	"/scroll_direction": "scroll_direction must be a string",
}

func describeSchemaError(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		for _, leaf := range schemaLeaves(ve) {
			if msg, ok := fieldTypeMessages[leaf.InstanceLocation]; ok {
				return msg
			}
		}
	}
	return fmt.Sprintf("invalid input: %v", err)
}

func schemaLeaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, schemaLeaves(c)...)
	}
	return out
}
