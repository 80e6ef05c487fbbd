package computer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is one named desktop operation the model can request.
type Action string

const (
	ActionKey            Action = "key"
	ActionType           Action = "type"
	ActionMouseMove      Action = "mouse_move"
	ActionLeftClick      Action = "left_click"
	ActionLeftClickDrag  Action = "left_click_drag"
	ActionRightClick     Action = "right_click"
	ActionMiddleClick    Action = "middle_click"
	ActionDoubleClick    Action = "double_click"
	ActionScreenshot     Action = "screenshot"
	ActionCursorPosition Action = "cursor_position"

	// Added in computer_20250124.
	ActionLeftMouseDown Action = "left_mouse_down"
	ActionLeftMouseUp   Action = "left_mouse_up"
	ActionScroll        Action = "scroll"
	ActionHoldKey       Action = "hold_key"
	ActionWait          Action = "wait"
	ActionTripleClick   Action = "triple_click"
)

// ToolVersion identifies a revision of the computer tool contract.
type ToolVersion string

const (
	Version20241022 ToolVersion = "computer_20241022"
	Version20250124 ToolVersion = "computer_20250124"

	DefaultVersion = Version20250124
)

var baseActions = []Action{
	ActionKey, ActionType, ActionMouseMove, ActionLeftClick, ActionLeftClickDrag,
	ActionRightClick, ActionMiddleClick, ActionDoubleClick, ActionScreenshot,
	ActionCursorPosition,
}

var extendedActions = []Action{
	ActionLeftMouseDown, ActionLeftMouseUp, ActionScroll, ActionHoldKey,
	ActionWait, ActionTripleClick,
}

// ParseToolVersion accepts the full tool type, its date suffix or the
// computer_use_<date> group name.
func ParseToolVersion(s string) (ToolVersion, error) {
	switch strings.TrimSpace(s) {
	case "", string(Version20250124), "20250124", "computer_use_20250124":
		return Version20250124, nil
	case string(Version20241022), "20241022", "computer_use_20241022":
		return Version20241022, nil
	default:
		return "", fmt.Errorf("unknown computer tool version %q (want %s or %s)", s, Version20241022, Version20250124)
	}
}

// Actions returns the action vocabulary accepted by this version, in
// declaration order.
func (v ToolVersion) Actions() []Action {
	out := append([]Action(nil), baseActions...)
	if v == Version20250124 {
		out = append(out, extendedActions...)
	}
	return out
}

// Supports reports whether a is part of this version's vocabulary.
func (v ToolVersion) Supports(a Action) bool {
	for _, known := range v.Actions() {
		if known == a {
			return true
		}
	}
	return false
}

// Beta returns the API beta flag that enables this tool version.
func (v ToolVersion) Beta() string {
	if v == Version20241022 {
		return "computer-use-2024-10-22"
	}
	return "computer-use-2025-01-24"
}

// ScrollDirection is the direction of a scroll action.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

func (d ScrollDirection) valid() bool {
	switch d {
	case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		return true
	}
	return false
}

// Button is a mouse button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Request is a decoded action request. Optional fields are nil when the
// model omitted them or sent null.
type Request struct {
	Action          Action    `json:"action"`
	Text            *string   `json:"text,omitempty"`
	Coordinate      []float64 `json:"coordinate,omitempty"`
	ScrollDirection *string   `json:"scroll_direction,omitempty"`
	ScrollAmount    *float64  `json:"scroll_amount,omitempty"`
	Duration        *float64  `json:"duration,omitempty"`
	Key             *string   `json:"key,omitempty"`
}

// HasText reports whether text was supplied.
func (r *Request) HasText() bool { return r.Text != nil }

// HasCoordinate reports whether a coordinate was supplied.
func (r *Request) HasCoordinate() bool { return r.Coordinate != nil }

// modifier returns the modifier key to hold, or "" for none.
func (r *Request) modifier() string {
	if r.Key == nil {
		return ""
	}
	return strings.TrimSpace(*r.Key)
}

// String renders the request for logs.
func (r *Request) String() string {
	var b strings.Builder
	b.WriteString(string(r.Action))
	if r.Text != nil && *r.Text != "" {
		fmt.Fprintf(&b, ", text: %s", *r.Text)
	}
	if r.Coordinate != nil {
		fmt.Fprintf(&b, ", coordinate: %s", formatCoordinate(r.Coordinate))
	}
	return b.String()
}

// envelope is the minimal shape checked before schema validation so
// unknown actions get a precise message.
type envelope struct {
	Action json.RawMessage `json:"action"`
}

func decodeAction(raw json.RawMessage) (Action, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", &ToolError{Message: fmt.Sprintf("invalid input: %v", err)}
	}
	if len(env.Action) == 0 || string(env.Action) == "null" {
		return "", &ToolError{Message: "action is required"}
	}
	var name string
	if err := json.Unmarshal(env.Action, &name); err != nil {
		return "", &ToolError{Message: "action must be a string"}
	}
	return Action(name), nil
}

func formatCoordinate(c []float64) string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
