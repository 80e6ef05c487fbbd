package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yolodolo42/deskpilot/internal/computer"
)

// X keysyms for the canonical key names produced by computer.NormalizeKeys.
var xKeysyms = map[string]string{
	"ctrl":      "ctrl",
	"alt":       "alt",
	"shift":     "shift",
	"command":   "super",
	"enter":     "Return",
	"esc":       "Escape",
	"tab":       "Tab",
	"space":     "space",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"insert":    "Insert",
}

func xKeysym(key string) string {
	if sym, ok := xKeysyms[key]; ok {
		return sym
	}
	// f1..f24
	if len(key) >= 2 && key[0] == 'f' {
		if _, err := strconv.Atoi(key[1:]); err == nil {
			return "F" + key[1:]
		}
	}
	return key
}

var xButtons = map[computer.Button]string{
	computer.ButtonLeft:   "1",
	computer.ButtonMiddle: "2",
	computer.ButtonRight:  "3",
}

var xScrollButtons = map[computer.ScrollDirection]string{
	computer.ScrollUp:    "4",
	computer.ScrollDown:  "5",
	computer.ScrollLeft:  "6",
	computer.ScrollRight: "7",
}

// Xdotool controls an X11 display with xdotool.
type Xdotool struct {
	runner  Runner
	env     []string
	capture string
}

// NewXdotool checks that xdotool and a capture tool are installed.
// displayNumber selects DISPLAY=:n when set.
func NewXdotool(r Runner, displayNumber *int) (*Xdotool, error) {
	if _, err := r.LookPath("xdotool"); err != nil {
		return nil, fmt.Errorf("xdotool not found (apt install xdotool): %w", err)
	}
	x := &Xdotool{runner: r}
	if displayNumber != nil {
		x.env = []string{fmt.Sprintf("DISPLAY=:%d", *displayNumber)}
	}
	for _, tool := range []string{"gnome-screenshot", "scrot"} {
		if _, err := r.LookPath(tool); err == nil {
			x.capture = tool
			break
		}
	}
	if x.capture == "" {
		return nil, fmt.Errorf("no screenshot tool found (install gnome-screenshot or scrot)")
	}
	return x, nil
}

func (x *Xdotool) run(ctx context.Context, args ...string) ([]byte, error) {
	return x.runner.Run(ctx, x.env, "xdotool", args...)
}

func (x *Xdotool) Size(ctx context.Context) (int, int, error) {
	out, err := x.run(ctx, "getdisplaygeometry")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(out)))
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(out)))
	}
	return w, h, nil
}

func (x *Xdotool) MoveMouse(ctx context.Context, px, py int) error {
	_, err := x.run(ctx, "mousemove", "--sync", strconv.Itoa(px), strconv.Itoa(py))
	return err
}

func (x *Xdotool) Click(ctx context.Context, b computer.Button, count int) error {
	if count < 1 {
		count = 1
	}
	_, err := x.run(ctx, "click", "--repeat", strconv.Itoa(count), "--delay", "100", xButtons[b])
	return err
}

func (x *Xdotool) MouseDown(ctx context.Context, b computer.Button) error {
	_, err := x.run(ctx, "mousedown", xButtons[b])
	return err
}

func (x *Xdotool) MouseUp(ctx context.Context, b computer.Button) error {
	_, err := x.run(ctx, "mouseup", xButtons[b])
	return err
}

func (x *Xdotool) CursorPosition(ctx context.Context) (int, int, error) {
	out, err := x.run(ctx, "getmouselocation", "--shell")
	if err != nil {
		return 0, 0, err
	}
	return parseShellLocation(string(out))
}

// parseShellLocation reads X= and Y= lines from getmouselocation --shell.
func parseShellLocation(out string) (int, int, error) {
	vals := map[string]int{}
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			vals[k] = n
		}
	}
	x, okX := vals["X"]
	y, okY := vals["Y"]
	if !okX || !okY {
		return 0, 0, fmt.Errorf("unexpected mouse location output %q", strings.TrimSpace(out))
	}
	return x, y, nil
}

func (x *Xdotool) Scroll(ctx context.Context, d computer.ScrollDirection, amount int) error {
	if amount == 0 {
		return nil
	}
	_, err := x.run(ctx, "click", "--repeat", strconv.Itoa(amount), xScrollButtons[d])
	return err
}

func (x *Xdotool) KeyDown(ctx context.Context, key string) error {
	_, err := x.run(ctx, "keydown", "--", xKeysym(key))
	return err
}

func (x *Xdotool) KeyUp(ctx context.Context, key string) error {
	_, err := x.run(ctx, "keyup", "--", xKeysym(key))
	return err
}

func (x *Xdotool) PressKeys(ctx context.Context, keys []string) error {
	syms := make([]string, len(keys))
	for i, k := range keys {
		syms[i] = xKeysym(k)
	}
	_, err := x.run(ctx, "key", "--", strings.Join(syms, "+"))
	return err
}

func (x *Xdotool) TypeText(ctx context.Context, text string, delay time.Duration) error {
	_, err := x.run(ctx, "type", "--delay", strconv.FormatInt(delay.Milliseconds(), 10), "--", text)
	return err
}

func (x *Xdotool) Screenshot(ctx context.Context) ([]byte, error) {
	return captureToFile(ctx, x.runner, x.env, x.capture, func(path string) []string {
		if x.capture == "gnome-screenshot" {
			return []string{"-f", path, "-p"}
		}
		return []string{"-o", "-p", path}
	})
}
