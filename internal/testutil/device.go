package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yolodolo42/deskpilot/internal/computer"
)

// FakeDevice is an in-memory computer.Device that records each call as a
// short string such as "move 10 20" or "keys ctrl+c".
type FakeDevice struct {
	mu       sync.Mutex
	Width    int
	Height   int
	cursorX  int
	cursorY  int
	calls    []string
	Shot     []byte
	FailWith map[string]error
}

// NewFakeDevice returns a device of the given size whose screenshots are a
// solid PNG of that size.
func NewFakeDevice(t *testing.T, w, h int) *FakeDevice {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 80, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return &FakeDevice{Width: w, Height: h, Shot: buf.Bytes(), FailWith: map[string]error{}}
}

// Calls returns the recorded calls in order.
func (f *FakeDevice) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeDevice) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	for prefix, err := range f.FailWith {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

func (f *FakeDevice) Size(context.Context) (int, int, error) { return f.Width, f.Height, nil }

func (f *FakeDevice) MoveMouse(_ context.Context, x, y int) error {
	f.cursorX, f.cursorY = x, y
	return f.record("move %d %d", x, y)
}

func (f *FakeDevice) Click(_ context.Context, b computer.Button, n int) error {
	return f.record("click %s %d", b, n)
}

func (f *FakeDevice) MouseDown(_ context.Context, b computer.Button) error {
	return f.record("down %s", b)
}

func (f *FakeDevice) MouseUp(_ context.Context, b computer.Button) error {
	return f.record("up %s", b)
}

func (f *FakeDevice) CursorPosition(context.Context) (int, int, error) {
	return f.cursorX, f.cursorY, f.record("cursor")
}

func (f *FakeDevice) Scroll(_ context.Context, d computer.ScrollDirection, n int) error {
	return f.record("scroll %s %d", d, n)
}

func (f *FakeDevice) KeyDown(_ context.Context, k string) error { return f.record("keydown %s", k) }
func (f *FakeDevice) KeyUp(_ context.Context, k string) error   { return f.record("keyup %s", k) }

func (f *FakeDevice) PressKeys(_ context.Context, keys []string) error {
	return f.record("keys %s", strings.Join(keys, "+"))
}

func (f *FakeDevice) TypeText(_ context.Context, text string, d time.Duration) error {
	return f.record("type %q %s", text, d)
}

func (f *FakeDevice) Screenshot(context.Context) ([]byte, error) {
	return f.Shot, f.record("screenshot")
}
