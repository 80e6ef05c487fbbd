package computer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yolodolo42/deskpilot/internal/observability"
)

// Name is the tool name the model calls.
const Name = "computer"

const (
	// TypingDelay is the pause between keystrokes when typing text.
	TypingDelay = 12 * time.Millisecond
	// TypingGroupSize is how many characters are sent per type command.
	TypingGroupSize = 50
	// DefaultScreenshotDelay lets the display settle before a follow-up capture.
	DefaultScreenshotDelay = time.Second
	// MaxDuration caps hold_key and wait, in seconds.
	MaxDuration = 100.0

	maxScrollAmount = 1000
)

// Config controls a Tool.
type Config struct {
	Version ToolVersion
	// Display overrides the size reported by the device when non-zero.
	Display Resolution
	// DisplayNumber is the X display, if any. It is reported to the model as-is.
	DisplayNumber  *int
	ScalingEnabled bool

	// ScreenshotAfterAction attaches a capture to every input action result.
	ScreenshotAfterAction bool
	ScreenshotDelay       time.Duration

	Policy  Policy
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// DefaultConfig returns a Config for the latest tool version with scaling on.
func DefaultConfig() Config {
	return Config{
		Version:         DefaultVersion,
		ScalingEnabled:  true,
		ScreenshotDelay: DefaultScreenshotDelay,
	}
}

// Options describe the display to the model.
type Options struct {
	DisplayWidth  int  `json:"display_width_px"`
	DisplayHeight int  `json:"display_height_px"`
	DisplayNumber *int `json:"display_number"`
}

// Tool validates computer actions and runs them against a Device.
type Tool struct {
	cfg     Config
	dev     Device
	scaler  *Scaler
	logger  *slog.Logger
	metrics *observability.Metrics

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Tool for dev. When cfg.Display is zero the device is asked
// for its size.
func New(ctx context.Context, dev Device, cfg Config) (*Tool, error) {
	if dev == nil {
		return nil, errors.New("computer: device is required")
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if _, err := ParseToolVersion(string(cfg.Version)); err != nil {
		return nil, err
	}
	if cfg.ScreenshotDelay <= 0 {
		cfg.ScreenshotDelay = DefaultScreenshotDelay
	}

	display := cfg.Display
	if display.Width <= 0 || display.Height <= 0 {
		w, h, err := dev.Size(ctx)
		if err != nil {
			return nil, fmt.Errorf("query display size: %w", err)
		}
		display = Resolution{Width: w, Height: h}
	}
	if display.Width <= 0 || display.Height <= 0 {
		return nil, fmt.Errorf("invalid display size %dx%d", display.Width, display.Height)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Tool{
		cfg:     cfg,
		dev:     dev,
		scaler:  NewScaler(display, cfg.ScalingEnabled),
		logger:  logger,
		metrics: cfg.Metrics,
		sleep:   sleepContext,
	}, nil
}

// Version returns the tool contract version.
func (t *Tool) Version() ToolVersion { return t.cfg.Version }

// Scaler exposes the coordinate scaler.
func (t *Tool) Scaler() *Scaler { return t.scaler }

// Options returns the display description sent to the model.
func (t *Tool) Options() Options {
	d := t.scaler.Display()
	w, h, _ := t.scaler.Scale(SourceComputer, d.Width, d.Height)
	return Options{DisplayWidth: w, DisplayHeight: h, DisplayNumber: t.cfg.DisplayNumber}
}

// Execute decodes raw, checks it against the action's parameter contract
// and runs it. Rejections are returned as *ToolError.
func (t *Tool) Execute(ctx context.Context, raw json.RawMessage) (*Result, error) {
	start := time.Now()
	action, err := decodeAction(raw)
	if err == nil {
		var res *Result
		res, err = t.execute(ctx, action, raw)
		if err == nil {
			t.metrics.ObserveAction(string(action), "success", time.Since(start))
			return res, nil
		}
	}

	status := "error"
	var te *ToolError
	if errors.As(err, &te) {
		status = "rejected"
	}
	t.metrics.ObserveAction(string(action), status, time.Since(start))
	t.logger.Warn("action failed", "action", action, "status", status, "error", err)
	return nil, err
}

func (t *Tool) execute(ctx context.Context, action Action, raw json.RawMessage) (*Result, error) {
	if !t.cfg.Version.Supports(action) {
		return nil, toolErrorf("Invalid action: %s", action)
	}
	if !t.cfg.Policy.Permits(action) {
		return nil, toolErrorf("action %s denied by policy", action)
	}
	if err := validateInput(t.cfg.Version, raw); err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, toolErrorf("invalid input: %v", err)
	}
	t.logger.Info("performing action", "request", req.String())

	var res *Result
	var err error
	handled := false
	if t.cfg.Version == Version20250124 {
		res, handled, err = t.runExtended(ctx, &req)
	}
	if !handled {
		res, err = t.runBase(ctx, &req)
	}
	if err != nil {
		return nil, err
	}
	return t.withFollowUpScreenshot(ctx, res)
}

var baseClickOutput = map[Action]string{
	ActionLeftClick:   "Left click performed.",
	ActionRightClick:  "Right click performed.",
	ActionMiddleClick: "Middle click performed.",
	ActionDoubleClick: "Double click performed.",
}

// runBase implements the computer_20241022 contract.
func (t *Tool) runBase(ctx context.Context, req *Request) (*Result, error) {
	action := req.Action
	switch action {
	case ActionMouseMove, ActionLeftClickDrag:
		if !req.HasCoordinate() {
			return nil, toolErrorf("coordinate is required for %s", action)
		}
		if req.HasText() {
			return nil, toolErrorf("text is not accepted for %s", action)
		}
		x, y, err := t.coordinates(req.Coordinate)
		if err != nil {
			return nil, err
		}
		if action == ActionMouseMove {
			if err := t.dev.MoveMouse(ctx, x, y); err != nil {
				return nil, fmt.Errorf("%s: %w", action, err)
			}
			return &Result{Output: fmt.Sprintf("Mouse moved successfully to X=%d, Y=%d", x, y)}, nil
		}
		if err := t.drag(ctx, x, y); err != nil {
			return nil, fmt.Errorf("%s: %w", action, err)
		}
		return &Result{Output: "Mouse drag action completed."}, nil

	case ActionKey, ActionType:
		if !req.HasText() {
			return nil, toolErrorf("text is required for %s", action)
		}
		if req.HasCoordinate() {
			return nil, toolErrorf("coordinate is not accepted for %s", action)
		}
		text := *req.Text
		if action == ActionKey {
			if err := t.dev.PressKeys(ctx, NormalizeKeys(text)); err != nil {
				return nil, fmt.Errorf("%s: %w", action, err)
			}
			return &Result{Output: fmt.Sprintf("Key combination '%s' pressed.", text)}, nil
		}
		for _, chunk := range chunks(text, TypingGroupSize) {
			if err := t.dev.TypeText(ctx, chunk, TypingDelay); err != nil {
				return nil, fmt.Errorf("%s: %w", action, err)
			}
		}
		return &Result{Output: fmt.Sprintf("Typed text: %s", text)}, nil

	case ActionLeftClick, ActionRightClick, ActionMiddleClick, ActionDoubleClick,
		ActionScreenshot, ActionCursorPosition:
		if req.HasText() {
			return nil, toolErrorf("text is not accepted for %s", action)
		}
		if req.HasCoordinate() {
			return nil, toolErrorf("coordinate is not accepted for %s", action)
		}
		switch action {
		case ActionScreenshot:
			return t.Screenshot(ctx)
		case ActionCursorPosition:
			x, y, err := t.dev.CursorPosition(ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", action, err)
			}
			x, y, err = t.scaler.Scale(SourceComputer, x, y)
			if err != nil {
				return nil, err
			}
			return &Result{Output: fmt.Sprintf("X=%d,Y=%d", x, y)}, nil
		}
		if err := t.click(ctx, action); err != nil {
			return nil, fmt.Errorf("%s: %w", action, err)
		}
		return &Result{Output: baseClickOutput[action]}, nil
	}

	return nil, toolErrorf("Invalid action: %s", action)
}

// runExtended implements the computer_20250124 additions. handled is false
// when the action falls through to the base contract.
func (t *Tool) runExtended(ctx context.Context, req *Request) (res *Result, handled bool, err error) {
	action := req.Action
	switch action {
	case ActionLeftMouseDown, ActionLeftMouseUp:
		if req.HasCoordinate() {
			return nil, true, toolErrorf("coordinate is not accepted for %s", action)
		}
		if action == ActionLeftMouseDown {
			if err := t.dev.MouseDown(ctx, ButtonLeft); err != nil {
				return nil, true, fmt.Errorf("%s: %w", action, err)
			}
			return &Result{Output: "Left mouse button down."}, true, nil
		}
		if err := t.dev.MouseUp(ctx, ButtonLeft); err != nil {
			return nil, true, fmt.Errorf("%s: %w", action, err)
		}
		return &Result{Output: "Left mouse button up."}, true, nil

	case ActionScroll:
		res, err := t.scroll(ctx, req)
		return res, true, err

	case ActionHoldKey, ActionWait:
		seconds, err := checkDuration(req.Duration)
		if err != nil {
			return nil, true, err
		}
		d := time.Duration(seconds * float64(time.Second))
		if action == ActionWait {
			if err := t.sleep(ctx, d); err != nil {
				return nil, true, err
			}
			res, err := t.Screenshot(ctx)
			return res, true, err
		}
		if !req.HasText() {
			return nil, true, toolErrorf("text is required for %s", action)
		}
		key := NormalizeKey(*req.Text)
		err = t.holding(ctx, key, func() error { return t.sleep(ctx, d) })
		if err != nil {
			return nil, true, fmt.Errorf("%s: %w", action, err)
		}
		return &Result{Output: fmt.Sprintf("Held key '%s' for %s seconds.", *req.Text, formatSeconds(seconds))}, true, nil

	case ActionTripleClick, ActionLeftClick, ActionRightClick, ActionMiddleClick, ActionDoubleClick:
		if req.HasText() {
			return nil, true, toolErrorf("text is not accepted for %s", action)
		}
		if req.HasCoordinate() {
			x, y, err := t.coordinates(req.Coordinate)
			if err != nil {
				return nil, true, err
			}
			if err := t.dev.MoveMouse(ctx, x, y); err != nil {
				return nil, true, fmt.Errorf("%s: %w", action, err)
			}
		}
		err := t.holding(ctx, req.modifier(), func() error { return t.click(ctx, action) })
		if err != nil {
			return nil, true, fmt.Errorf("%s: %w", action, err)
		}
		return &Result{Output: titleAction(action) + " performed."}, true, nil
	}
	return nil, false, nil
}

func (t *Tool) scroll(ctx context.Context, req *Request) (*Result, error) {
	var dir ScrollDirection
	if req.ScrollDirection != nil {
		dir = ScrollDirection(*req.ScrollDirection)
	}
	if !dir.valid() {
		return nil, toolErrorf("scroll_direction %s must be 'up', 'down', 'left', or 'right'", describe(req.ScrollDirection))
	}
	if req.ScrollAmount == nil || *req.ScrollAmount < 0 || *req.ScrollAmount != math.Trunc(*req.ScrollAmount) {
		return nil, toolErrorf("scroll_amount %s must be a non-negative int", describeNumber(req.ScrollAmount))
	}
	if *req.ScrollAmount > maxScrollAmount {
		return nil, toolErrorf("scroll_amount %s is too large (at most %d)", describeNumber(req.ScrollAmount), maxScrollAmount)
	}
	amount := int(*req.ScrollAmount)

	if req.HasCoordinate() {
		x, y, err := t.coordinates(req.Coordinate)
		if err != nil {
			return nil, err
		}
		if err := t.dev.MoveMouse(ctx, x, y); err != nil {
			return nil, fmt.Errorf("scroll: %w", err)
		}
	}
	err := t.holding(ctx, req.modifier(), func() error {
		return t.dev.Scroll(ctx, dir, amount)
	})
	if err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}
	return &Result{Output: fmt.Sprintf("Scrolled %s %d units.", dir, amount)}, nil
}

// Screenshot captures the display at the model-facing size.
func (t *Tool) Screenshot(ctx context.Context) (*Result, error) {
	data, err := t.dev.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	img, err := EncodeScreenshot(data, t.scaler.APISize())
	if err != nil {
		return nil, err
	}
	return &Result{Base64Image: img}, nil
}

func (t *Tool) withFollowUpScreenshot(ctx context.Context, res *Result) (*Result, error) {
	if !t.cfg.ScreenshotAfterAction || res.Base64Image != "" {
		return res, nil
	}
	if err := t.sleep(ctx, t.cfg.ScreenshotDelay); err != nil {
		return nil, err
	}
	shot, err := t.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	return res.Combine(shot)
}

// coordinates validates an API coordinate and converts it to device pixels.
func (t *Tool) coordinates(c []float64) (int, int, error) {
	if len(c) != 2 {
		return 0, 0, toolErrorf("%s must be a list of length 2", formatCoordinate(c))
	}
	for _, v := range c {
		if v < 0 || v != math.Trunc(v) {
			return 0, 0, toolErrorf("%s must be a list of non-negative integers", formatCoordinate(c))
		}
	}
	// Checked before the int conversion, which wraps for huge values.
	bounds := t.scaler.APISize()
	if c[0] > float64(bounds.Width) || c[1] > float64(bounds.Height) {
		return 0, 0, toolErrorf("Coordinates %.0f, %.0f are out of bounds", c[0], c[1])
	}
	return t.scaler.Scale(SourceAPI, int(c[0]), int(c[1]))
}

func (t *Tool) click(ctx context.Context, action Action) error {
	switch action {
	case ActionRightClick:
		return t.dev.Click(ctx, ButtonRight, 1)
	case ActionMiddleClick:
		return t.dev.Click(ctx, ButtonMiddle, 1)
	case ActionDoubleClick:
		return t.dev.Click(ctx, ButtonLeft, 2)
	case ActionTripleClick:
		return t.dev.Click(ctx, ButtonLeft, 3)
	default:
		return t.dev.Click(ctx, ButtonLeft, 1)
	}
}

func (t *Tool) drag(ctx context.Context, x, y int) error {
	if err := t.dev.MouseDown(ctx, ButtonLeft); err != nil {
		return err
	}
	moveErr := t.dev.MoveMouse(ctx, x, y)
	upErr := t.dev.MouseUp(context.WithoutCancel(ctx), ButtonLeft)
	return errors.Join(moveErr, upErr)
}

// holding runs fn with key held down. The key is released even when fn
// fails or ctx is cancelled. An empty key runs fn directly.
func (t *Tool) holding(ctx context.Context, key string, fn func() error) error {
	if key == "" {
		return fn()
	}
	key = NormalizeKey(key)
	if err := t.dev.KeyDown(ctx, key); err != nil {
		return err
	}
	fnErr := fn()
	upErr := t.dev.KeyUp(context.WithoutCancel(ctx), key)
	return errors.Join(fnErr, upErr)
}

func checkDuration(d *float64) (float64, error) {
	if d == nil {
		return 0, toolErrorf("duration must be a number")
	}
	if *d < 0 {
		return 0, toolErrorf("duration %s must be non-negative", formatSeconds(*d))
	}
	if *d > MaxDuration {
		return 0, toolErrorf("duration %s is too long", formatSeconds(*d))
	}
	return *d, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// titleAction turns "left_click" into "Left Click".
func titleAction(a Action) string {
	words := strings.Split(string(a), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func describe(s *string) string {
	if s == nil {
		return "<missing>"
	}
	return strconv.Quote(*s)
}

func describeNumber(v *float64) string {
	if v == nil {
		return "<missing>"
	}
	return formatSeconds(*v)
}
