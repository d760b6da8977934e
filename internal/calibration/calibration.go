// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"log"

	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

const (
	// Center is the ideal rest reading of a 10-bit axis.
	Center = 512

	// Computed centers outside this band mean the stick was deflected
	// (or the wiring is wrong) during calibration; the result is
	// rejected rather than baked in.
	SaneMin = 200
	SaneMax = 800

	// DefaultSamples is the number of rest-position reads averaged per
	// calibration pass. Observed tunings ranged 10-30; 20 balances
	// startup latency against noise rejection.
	DefaultSamples = 20
)

// State is the measured rest position of both axes plus the offsets that
// correct raw samples toward true center.
type State struct {
	CenterX int  `json:"center_x"`
	CenterY int  `json:"center_y"`
	OffsetX int  `json:"offset_x"`
	OffsetY int  `json:"offset_y"`
	Valid   bool `json:"valid"`
}

// Default is the fallback state assuming a perfectly centered stick.
func Default() State {
	return State{CenterX: Center, CenterY: Center, Valid: true}
}

// Calibrate computes the axis centers as the mean of samples taken while
// the stick rests centered. Centers outside the sane band yield
// Valid=false with centered defaults substituted, so a miscalibration
// never degrades a session.
func Calibrate(samples []control.RawSample) State {
	if len(samples) == 0 {
		return Default()
	}

	var sumX, sumY int
	for _, s := range samples {
		sumX += s.X
		sumY += s.Y
	}
	cx := sumX / len(samples)
	cy := sumY / len(samples)

	if cx < SaneMin || cx > SaneMax || cy < SaneMin || cy > SaneMax {
		log.Printf("calibration: center (%d, %d) outside sane band [%d, %d], using defaults",
			cx, cy, SaneMin, SaneMax)
		st := Default()
		st.Valid = false
		return st
	}

	return State{
		CenterX: cx,
		CenterY: cy,
		OffsetX: Center - cx,
		OffsetY: Center - cy,
		Valid:   true,
	}
}

// Recenter derives a state from a single sample, for the manual
// "press to recalibrate" interaction. The same sanity band applies.
// The caller must also reset any smoothing history.
func Recenter(sample control.RawSample) State {
	return Calibrate([]control.RawSample{sample})
}
