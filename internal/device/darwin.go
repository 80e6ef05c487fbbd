package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yolodolo42/deskpilot/internal/computer"
)

// cliclick modifier names; only these can be held with kd:/ku:.
var cliclickModifiers = map[string]string{
	"alt":     "alt",
	"command": "cmd",
	"ctrl":    "ctrl",
	"shift":   "shift",
	"fn":      "fn",
}

// cliclick kp: names for non-printing keys.
var cliclickKeys = map[string]string{
	"enter":      "return",
	"esc":        "esc",
	"tab":        "tab",
	"space":      "space",
	"up":         "arrow-up",
	"down":       "arrow-down",
	"left":       "arrow-left",
	"right":      "arrow-right",
	"backspace":  "delete",
	"delete":     "fwd-delete",
	"home":       "home",
	"end":        "end",
	"pageup":     "page-up",
	"page_up":    "page-up",
	"pagedown":   "page-down",
	"page_down":  "page-down",
	"mute":       "mute",
	"volumeup":   "volume-up",
	"volumedown": "volume-down",
}

// cliclickKey returns the kp: name for a non-printing key.
func cliclickKey(key string) (string, bool) {
	if name, ok := cliclickKeys[key]; ok {
		return name, true
	}
	// f1..f16
	if len(key) >= 2 && key[0] == 'f' {
		if n, err := strconv.Atoi(key[1:]); err == nil && n >= 1 && n <= 16 {
			return key, true
		}
	}
	return "", false
}

// Darwin controls the macOS desktop with cliclick and screencapture.
// Wheel scrolling and middle clicks, which cliclick lacks, go through a
// one-line Swift program.
type Darwin struct {
	runner Runner
}

// NewDarwin checks that cliclick is installed.
func NewDarwin(r Runner) (*Darwin, error) {
	if _, err := r.LookPath("cliclick"); err != nil {
		return nil, fmt.Errorf("cliclick not found (brew install cliclick): %w", err)
	}
	return &Darwin{runner: r}, nil
}

func (d *Darwin) cliclick(ctx context.Context, cmds ...string) ([]byte, error) {
	return d.runner.Run(ctx, nil, "cliclick", cmds...)
}

func (d *Darwin) Size(ctx context.Context) (int, int, error) {
	out, err := d.runner.Run(ctx, nil, "osascript", "-e", `tell application "Finder" to get bounds of window of desktop`)
	if err != nil {
		return 0, 0, err
	}
	parts := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(parts) != 4 {
		return 0, 0, fmt.Errorf("unexpected desktop bounds %q", strings.TrimSpace(string(out)))
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[2]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[3]))
	if errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("unexpected desktop bounds %q", strings.TrimSpace(string(out)))
	}
	return w, h, nil
}

func (d *Darwin) MoveMouse(ctx context.Context, x, y int) error {
	_, err := d.cliclick(ctx, fmt.Sprintf("m:%d,%d", x, y))
	return err
}

func (d *Darwin) Click(ctx context.Context, b computer.Button, count int) error {
	switch {
	case b == computer.ButtonMiddle:
		return d.swift(ctx, middleClickScript)
	case b == computer.ButtonRight:
		_, err := d.cliclick(ctx, "rc:.")
		return err
	case count == 2:
		_, err := d.cliclick(ctx, "dc:.")
		return err
	case count >= 3:
		_, err := d.cliclick(ctx, "tc:.")
		return err
	default:
		_, err := d.cliclick(ctx, "c:.")
		return err
	}
}

func (d *Darwin) MouseDown(ctx context.Context, _ computer.Button) error {
	_, err := d.cliclick(ctx, "dd:.")
	return err
}

func (d *Darwin) MouseUp(ctx context.Context, _ computer.Button) error {
	_, err := d.cliclick(ctx, "du:.")
	return err
}

func (d *Darwin) CursorPosition(ctx context.Context) (int, int, error) {
	out, err := d.cliclick(ctx, "p:.")
	if err != nil {
		return 0, 0, err
	}
	xs, ys, ok := strings.Cut(strings.TrimSpace(string(out)), ",")
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if !ok || errX != nil || errY != nil {
		return 0, 0, fmt.Errorf("unexpected cursor position %q", strings.TrimSpace(string(out)))
	}
	return x, y, nil
}

func (d *Darwin) Scroll(ctx context.Context, dir computer.ScrollDirection, amount int) error {
	if amount == 0 {
		return nil
	}
	dy, dx := 0, 0
	switch dir {
	case computer.ScrollUp:
		dy = amount
	case computer.ScrollDown:
		dy = -amount
	case computer.ScrollLeft:
		dx = amount
	case computer.ScrollRight:
		dx = -amount
	}
	return d.swift(ctx, fmt.Sprintf(scrollScript, dy, dx))
}

func (d *Darwin) KeyDown(ctx context.Context, key string) error {
	if mod, ok := cliclickModifiers[key]; ok {
		_, err := d.cliclick(ctx, "kd:"+mod)
		return err
	}
	// cliclick cannot hold ordinary keys; a press is the closest match.
	return d.PressKeys(ctx, []string{key})
}

func (d *Darwin) KeyUp(ctx context.Context, key string) error {
	if mod, ok := cliclickModifiers[key]; ok {
		_, err := d.cliclick(ctx, "ku:"+mod)
		return err
	}
	return nil
}

// PressKeys holds every modifier, presses the remaining keys and releases
// the modifiers in reverse order, all in one cliclick invocation.
func (d *Darwin) PressKeys(ctx context.Context, keys []string) error {
	var mods, cmds []string
	for _, k := range keys {
		if mod, ok := cliclickModifiers[k]; ok {
			mods = append(mods, mod)
			cmds = append(cmds, "kd:"+mod)
			continue
		}
		if name, ok := cliclickKey(k); ok {
			cmds = append(cmds, "kp:"+name)
			continue
		}
		if utf8.RuneCountInString(k) != 1 {
			return fmt.Errorf("cliclick cannot press key %q", k)
		}
		cmds = append(cmds, "t:"+k)
	}
	for i := len(mods) - 1; i >= 0; i-- {
		cmds = append(cmds, "ku:"+mods[i])
	}
	if len(cmds) == 0 {
		return nil
	}
	_, err := d.cliclick(ctx, cmds...)
	return err
}

func (d *Darwin) TypeText(ctx context.Context, text string, delay time.Duration) error {
	_, err := d.cliclick(ctx, "-w", strconv.FormatInt(delay.Milliseconds(), 10), "t:"+text)
	return err
}

func (d *Darwin) Screenshot(ctx context.Context) ([]byte, error) {
	return captureToFile(ctx, d.runner, nil, "screencapture", func(path string) []string {
		return []string{"-x", "-t", "png", path}
	})
}

func (d *Darwin) swift(ctx context.Context, script string) error {
	if _, err := d.runner.LookPath("swift"); err != nil {
		return fmt.Errorf("swift not found (install Xcode Command Line Tools): %w", err)
	}
	_, err := d.runner.Run(ctx, nil, "swift", "-e", script)
	return err
}

const scrollScript = `import CoreGraphics
let e = CGEvent(scrollWheelEvent2Source: nil, units: .line, wheelCount: 2, wheel1: %d, wheel2: %d, wheel3: 0)
e?.post(tap: .cghidEventTap)`

const middleClickScript = `import CoreGraphics
let pos = CGEvent(source: nil)?.location ?? .zero
CGEvent(mouseEventSource: nil, mouseType: .otherMouseDown, mouseCursorPosition: pos, mouseButton: .center)?.post(tap: .cghidEventTap)
CGEvent(mouseEventSource: nil, mouseType: .otherMouseUp, mouseCursorPosition: pos, mouseButton: .center)?.post(tap: .cghidEventTap)`
