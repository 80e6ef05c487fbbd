package computer

import (
	"math"
)

// Resolution is a display size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Preset is a named reference resolution.
type Preset struct {
	Name string `json:"name"`
	Resolution
}

// ScalingTargets are the reference resolutions the reported display size is
// capped to, checked in this order. Sizes above these are not recommended
// for the model.
var ScalingTargets = []Preset{
	{Name: "XGA", Resolution: Resolution{Width: 1024, Height: 768}},   // 4:3
	{Name: "WXGA", Resolution: Resolution{Width: 1280, Height: 800}},  // 16:10
	{Name: "FWXGA", Resolution: Resolution{Width: 1366, Height: 768}}, // ~16:9
}

// aspectTolerance allows for displays whose ratio is not exactly 16:9 etc.
const aspectTolerance = 0.02

// ScalingSource says which side a coordinate comes from.
type ScalingSource string

const (
	// SourceAPI coordinates come from the model and are scaled up to the device.
	SourceAPI ScalingSource = "api"
	// SourceComputer coordinates come from the device and are scaled down for the model.
	SourceComputer ScalingSource = "computer"
)

// Scaler converts coordinates between the real display and the
// model-facing resolution.
type Scaler struct {
	display Resolution
	enabled bool
	target  *Preset
}

// NewScaler picks a target for the given display. With scaling disabled, or
// when no preset applies, coordinates pass through unchanged.
func NewScaler(display Resolution, enabled bool) *Scaler {
	s := &Scaler{display: display, enabled: enabled}
	if enabled {
		s.target = pickTarget(display)
	}
	return s
}

// pickTarget returns the first preset whose aspect ratio matches the
// display. Iteration stops at the first ratio match even if that preset
// is not smaller than the display.
func pickTarget(display Resolution) *Preset {
	if display.Width <= 0 || display.Height <= 0 {
		return nil
	}
	ratio := float64(display.Width) / float64(display.Height)
	for i := range ScalingTargets {
		p := ScalingTargets[i]
		if math.Abs(float64(p.Width)/float64(p.Height)-ratio) < aspectTolerance {
			if p.Width < display.Width {
				return &p
			}
			return nil
		}
	}
	return nil
}

// Display returns the real display size.
func (s *Scaler) Display() Resolution { return s.display }

// Target returns the chosen preset, if any.
func (s *Scaler) Target() (Preset, bool) {
	if s.target == nil {
		return Preset{}, false
	}
	return *s.target, true
}

// APISize is the display size reported to the model.
func (s *Scaler) APISize() Resolution {
	if s.target == nil {
		return s.display
	}
	return s.target.Resolution
}

// Scale converts (x, y) from source into the other coordinate space.
// API coordinates beyond the model-facing bounds are rejected: the
// boundary itself is accepted.
func (s *Scaler) Scale(source ScalingSource, x, y int) (int, int, error) {
	bounds := s.APISize()
	if source == SourceAPI && (x > bounds.Width || y > bounds.Height) {
		return 0, 0, toolErrorf("Coordinates %d, %d are out of bounds", x, y)
	}
	if s.target == nil {
		return x, y, nil
	}

	xFactor := float64(s.target.Width) / float64(s.display.Width)
	yFactor := float64(s.target.Height) / float64(s.display.Height)
	if source == SourceAPI {
		return roundHalfEven(float64(x) / xFactor), roundHalfEven(float64(y) / yFactor), nil
	}
	return roundHalfEven(float64(x) * xFactor), roundHalfEven(float64(y) * yFactor), nil
}

func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}
