// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"errors"
	"fmt"
	"log"

	"github.com/moreshk/arduino-joystick-racer/internal/calibration"
	"github.com/moreshk/arduino-joystick-racer/internal/control"
	"github.com/moreshk/arduino-joystick-racer/internal/framer"
	"github.com/moreshk/arduino-joystick-racer/internal/shape"
	"github.com/moreshk/arduino-joystick-racer/internal/wire"
)

// Options configure a Controller.
type Options struct {
	// Format selects the wire line format (wire.FormatCSV or
	// wire.FormatNMEA).
	Format string
	// Shape holds the tunable shaping constants.
	Shape shape.Params
	// CalibrationSamples is the number of startup samples averaged to
	// find the center. Zero means calibration.DefaultSamples.
	CalibrationSamples int
	// State seeds the calibration, e.g. from a persisted file. Nil means
	// self-calibrate from the first samples.
	State *calibration.State
}

// Controller is one complete conditioning pipeline instance: framer, wire
// decoder, calibration state, per-axis shapers, and the single registered
// consumer handler. It is owned by exactly one transport read loop; all
// methods are synchronous and must be called from that loop.
type Controller struct {
	framer  *framer.Framer
	decoder wire.Decoder
	shaper  *shape.Shaper
	state   calibration.State
	handler control.Handler

	rawHandler func(control.RawSample)
	calHandler func(calibration.State)

	// startup auto-calibration
	pending []control.RawSample
	want    int

	malformed uint64
}

// New builds a Controller. The handler receives every conditioned
// control event, one call per parsed line, in order.
func New(opts Options, handler control.Handler) (*Controller, error) {
	if handler == nil {
		return nil, errors.New("pipeline: handler is required")
	}
	if err := opts.Shape.Validate(); err != nil {
		return nil, err
	}
	dec, err := wire.NewDecoder(opts.Format)
	if err != nil {
		return nil, err
	}

	want := opts.CalibrationSamples
	if want <= 0 {
		want = calibration.DefaultSamples
	}

	c := &Controller{
		framer:  framer.New(),
		decoder: dec,
		handler: handler,
	}

	if opts.State != nil && opts.State.Valid {
		c.state = *opts.State
		log.Printf("pipeline: using persisted calibration center (%d, %d)", c.state.CenterX, c.state.CenterY)
	} else {
		// Defaults carry the pipeline until the first `want` samples
		// arrive with the stick assumed at rest.
		c.state = calibration.Default()
		c.want = want
		c.pending = make([]control.RawSample, 0, want)
	}
	c.shaper = shape.NewShaper(c.state.OffsetX, c.state.OffsetY, opts.Shape)
	return c, nil
}

// OnRaw registers an optional observer for every decoded raw sample,
// before shaping. Used for the raw MQTT topic and calibration tooling.
func (c *Controller) OnRaw(fn func(control.RawSample)) {
	c.rawHandler = fn
}

// OnCalibration registers an observer invoked whenever a calibration
// pass or recentering installs a new state.
func (c *Controller) OnCalibration(fn func(calibration.State)) {
	c.calHandler = fn
}

// Feed pushes a chunk of transport bytes through the pipeline. Malformed
// lines are logged and dropped. The only error surfaced is framer
// overflow, and the stream remains usable after it.
func (c *Controller) Feed(chunk []byte) error {
	lines, err := c.framer.Feed(chunk)
	for _, line := range lines {
		c.processLine(line)
	}
	if err != nil {
		log.Printf("pipeline: %v", err)
		return err
	}
	return nil
}

func (c *Controller) processLine(line string) {
	sample, err := c.decoder.Decode(line)
	if err != nil {
		c.malformed++
		log.Printf("pipeline: dropping line: %v", err)
		return
	}

	if c.rawHandler != nil {
		c.rawHandler(sample)
	}

	if c.want > 0 {
		c.pending = append(c.pending, sample)
		if len(c.pending) < c.want {
			return
		}
		c.finishCalibration()
		return
	}

	c.handler(c.shaper.Apply(sample))
}

func (c *Controller) finishCalibration() {
	st := calibration.Calibrate(c.pending)
	c.install(st)
	c.pending = nil
	c.want = 0
	log.Printf("pipeline: startup calibration done, center (%d, %d) valid=%v",
		st.CenterX, st.CenterY, st.Valid)
}

func (c *Controller) install(st calibration.State) {
	c.state = st
	c.shaper.SetOffsets(st.OffsetX, st.OffsetY)
	if c.calHandler != nil {
		c.calHandler(st)
	}
}

// Recalibrate recenters on a single sample (the "press to recalibrate"
// interaction) and resets the smoothing windows. Returns the new state.
func (c *Controller) Recalibrate(sample control.RawSample) calibration.State {
	st := calibration.Recenter(sample)
	c.install(st)
	log.Printf("pipeline: recalibrated, center (%d, %d) valid=%v", st.CenterX, st.CenterY, st.Valid)
	return st
}

// RequestCalibration restarts sampled-average calibration over the next
// n raw samples (n<=0 uses the default). Shaped output pauses until the
// pass completes.
func (c *Controller) RequestCalibration(n int) {
	if n <= 0 {
		n = calibration.DefaultSamples
	}
	c.want = n
	c.pending = make([]control.RawSample, 0, n)
}

// State returns the current calibration state.
func (c *Controller) State() calibration.State {
	return c.state
}

// Malformed reports how many lines have been dropped so far.
func (c *Controller) Malformed() uint64 {
	return c.malformed
}

// String describes the pipeline for startup logs.
func (c *Controller) String() string {
	return fmt.Sprintf("center=(%d,%d) valid=%v dropped=%d",
		c.state.CenterX, c.state.CenterY, c.state.Valid, c.malformed)
}
