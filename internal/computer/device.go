package computer

import (
	"context"
	"time"
)

// Device is the live input and display surface the tool drives. Each
// method is one blocking call; coordinates are in device pixels.
type Device interface {
	// Size returns the logical display size in pixels.
	Size(ctx context.Context) (width, height int, err error)

	MoveMouse(ctx context.Context, x, y int) error
	// Click clicks button count times at the current pointer position.
	Click(ctx context.Context, button Button, count int) error
	MouseDown(ctx context.Context, button Button) error
	MouseUp(ctx context.Context, button Button) error
	CursorPosition(ctx context.Context) (x, y int, err error)
	// Scroll turns the wheel amount clicks in direction at the pointer.
	Scroll(ctx context.Context, direction ScrollDirection, amount int) error

	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	// PressKeys presses keys as one chord, in order, then releases them.
	PressKeys(ctx context.Context, keys []string) error
	TypeText(ctx context.Context, text string, delay time.Duration) error

	// Screenshot captures the whole display as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}
