package computer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDevice records every call as a short string.
type fakeDevice struct {
	width, height int
	cursorX       int
	cursorY       int
	calls         []string
	shot          []byte
	failOn        string
}

func newFakeDevice(t *testing.T, w, h int) *fakeDevice {
	t.Helper()
	return &fakeDevice{width: w, height: h, shot: testPNG(t, w, h)}
}

func (f *fakeDevice) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.HasPrefix(call, f.failOn) {
		return fmt.Errorf("%s failed", f.failOn)
	}
	return nil
}

func (f *fakeDevice) Size(context.Context) (int, int, error) { return f.width, f.height, nil }

func (f *fakeDevice) MoveMouse(_ context.Context, x, y int) error {
	f.cursorX, f.cursorY = x, y
	return f.record("move %d %d", x, y)
}

func (f *fakeDevice) Click(_ context.Context, b Button, n int) error {
	return f.record("click %s %d", b, n)
}

func (f *fakeDevice) MouseDown(_ context.Context, b Button) error { return f.record("down %s", b) }
func (f *fakeDevice) MouseUp(_ context.Context, b Button) error   { return f.record("up %s", b) }

func (f *fakeDevice) CursorPosition(context.Context) (int, int, error) {
	return f.cursorX, f.cursorY, f.record("cursor")
}

func (f *fakeDevice) Scroll(_ context.Context, d ScrollDirection, n int) error {
	return f.record("scroll %s %d", d, n)
}

func (f *fakeDevice) KeyDown(_ context.Context, k string) error { return f.record("keydown %s", k) }
func (f *fakeDevice) KeyUp(_ context.Context, k string) error   { return f.record("keyup %s", k) }

func (f *fakeDevice) PressKeys(_ context.Context, keys []string) error {
	return f.record("keys %s", strings.Join(keys, "+"))
}

func (f *fakeDevice) TypeText(_ context.Context, text string, d time.Duration) error {
	return f.record("type %q %s", text, d)
}

func (f *fakeDevice) Screenshot(context.Context) ([]byte, error) {
	return f.shot, f.record("screenshot")
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newTestTool builds a tool that never really sleeps.
func newTestTool(t *testing.T, dev *fakeDevice, cfg Config) (*Tool, *[]time.Duration) {
	t.Helper()
	tool, err := New(context.Background(), dev, cfg)
	require.NoError(t, err)
	var slept []time.Duration
	tool.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return tool, &slept
}
