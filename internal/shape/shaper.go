package shape

import (
	"fmt"
	"math"

	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

// Params are the tunable shaping constants. The deadzone and window size
// were tuned per deployment during development, so they are configuration
// rather than constants.
type Params struct {
	// Deadzone is the normalized band around center forced to zero.
	Deadzone float64
	// Gamma is the response curve exponent; >1 gives finer control near
	// center. Applied exactly once per sample, after edge rescaling and
	// before smoothing. Device firmware must send raw values.
	Gamma float64
	// Smoothing is the moving-average window size per axis.
	Smoothing int
}

// DefaultParams match the tuning that shipped with the original
// controller hardware.
func DefaultParams() Params {
	return Params{Deadzone: 0.15, Gamma: 1.6, Smoothing: 3}
}

// Validate rejects parameter values that would break the transform.
func (p Params) Validate() error {
	if p.Deadzone < 0 || p.Deadzone >= 1 {
		return fmt.Errorf("shape: deadzone %.3f outside [0, 1)", p.Deadzone)
	}
	if p.Gamma <= 0 {
		return fmt.Errorf("shape: gamma %.3f must be positive", p.Gamma)
	}
	if p.Smoothing < 1 {
		return fmt.Errorf("shape: smoothing window %d must be at least 1", p.Smoothing)
	}
	return nil
}

// Axis conditions one analog channel: offset correction, clamping,
// normalization, deadzone rejection, edge rescaling, response curve, and
// moving-average smoothing, in that order.
type Axis struct {
	offset int
	params Params
	window *Window
}

// NewAxis returns an axis shaper with the given center offset
// (512 - measured center) and parameters.
func NewAxis(offset int, params Params) *Axis {
	return &Axis{
		offset: offset,
		params: params,
		window: NewWindow(params.Smoothing),
	}
}

// SetOffset replaces the center offset and clears the smoothing history,
// so post-recalibration output is not contaminated by samples shaped
// against the old center.
func (a *Axis) SetOffset(offset int) {
	a.offset = offset
	a.window.Reset()
}

// Offset returns the current center offset.
func (a *Axis) Offset() int {
	return a.offset
}

// Apply runs one raw 10-bit sample through the full stage chain and
// returns the smoothed normalized value in [-1, 1].
func (a *Axis) Apply(raw int) float64 {
	// 1) offset correction, clamped back into ADC range
	corrected := raw + a.offset
	if corrected < 0 {
		corrected = 0
	} else if corrected > 1023 {
		corrected = 1023
	}

	// 2) normalize around center; offset asymmetry can push slightly
	// past ±1, so clamp
	norm := float64(corrected-512) / 512.0
	if norm > 1 {
		norm = 1
	} else if norm < -1 {
		norm = -1
	}

	// 3) deadzone
	dz := a.params.Deadzone
	if math.Abs(norm) < dz {
		return a.window.Push(0)
	}

	// 4) edge rescaling: the deadzone eats the center band, so remap the
	// remainder onto the full range or the stick never reaches ±1
	shaped := math.Copysign((math.Abs(norm)-dz)/(1-dz), norm)

	// 5) response curve; Copysign because a negative base to a
	// fractional power is NaN
	shaped = math.Copysign(math.Pow(math.Abs(shaped), a.params.Gamma), shaped)

	// 6) moving average
	return a.window.Push(shaped)
}

// Reset clears the smoothing history without touching the offset.
func (a *Axis) Reset() {
	a.window.Reset()
}

// Shaper conditions both axes of a stick. The button needs no shaping;
// it is passed through as the adapter already normalized it to
// pressed=true.
type Shaper struct {
	x *Axis
	y *Axis
}

// NewShaper builds a two-axis shaper from the calibration offsets.
func NewShaper(offsetX, offsetY int, params Params) *Shaper {
	return &Shaper{
		x: NewAxis(offsetX, params),
		y: NewAxis(offsetY, params),
	}
}

// Apply conditions one raw sample into a Control event.
func (s *Shaper) Apply(raw control.RawSample) control.Control {
	return control.Control{
		X:      s.x.Apply(raw.X),
		Y:      s.y.Apply(raw.Y),
		Button: raw.Button,
	}
}

// SetOffsets installs new center offsets on both axes and resets their
// smoothing windows.
func (s *Shaper) SetOffsets(offsetX, offsetY int) {
	s.x.SetOffset(offsetX)
	s.y.SetOffset(offsetY)
}

// Reset clears both smoothing windows.
func (s *Shaper) Reset() {
	s.x.Reset()
	s.y.Reset()
}
