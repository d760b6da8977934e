// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Guided rest-position calibration for the joystick.
//
// The stick must be left centered while the tool averages raw samples
// from the configured transport. Output is the calibration JSON the
// bridge loads at startup, plus a stillness/quality report.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/moreshk/arduino-joystick-racer/internal/calibration"
	"github.com/moreshk/arduino-joystick-racer/internal/config"
	"github.com/moreshk/arduino-joystick-racer/internal/control"
	"github.com/moreshk/arduino-joystick-racer/internal/framer"
	"github.com/moreshk/arduino-joystick-racer/internal/wire"
)

const calibrateTimeout = 30 * time.Second

// quality heuristics, in raw counts
const (
	stillStdGood = 2.0  // "good" standard deviation for a resting stick
	stillStdBad  = 15.0 // above this the stick was moving or noisy
)

// RunCalibrate collects the configured number of rest samples, reports
// quality, and persists the result.
func RunCalibrate() error {
	cfg := config.Get()

	if cfg.Transport == "keyboard" {
		return errors.New("calibrate: keyboard transport has no analog center to calibrate")
	}

	outPath := cfg.CalibrationFile
	if outPath == "" {
		outPath = "joystick_calibration.json"
	}

	fmt.Println("=== Joystick rest-position calibration ===")
	fmt.Printf("Transport: %s, samples: %d\n", cfg.Transport, cfg.CalibrationSamples)
	fmt.Println("Leave the stick centered and untouched, then press Enter.")
	bufio.NewReader(os.Stdin).ReadString('\n')

	samples, err := collectRestSamples(cfg)
	if err != nil {
		return err
	}

	st := calibration.Calibrate(samples)
	stdX := stddevAxis(samples, func(s control.RawSample) int { return s.X })
	stdY := stddevAxis(samples, func(s control.RawSample) int { return s.Y })

	fmt.Printf("\nCenter:  (%d, %d)\n", st.CenterX, st.CenterY)
	fmt.Printf("Offsets: (%+d, %+d)\n", st.OffsetX, st.OffsetY)
	fmt.Printf("Stddev:  (%.2f, %.2f) counts\n", stdX, stdY)
	fmt.Printf("Quality: %s\n", quality(math.Max(stdX, stdY)))

	if !st.Valid {
		return fmt.Errorf("calibrate: center outside [%d, %d], was the stick deflected?",
			calibration.SaneMin, calibration.SaneMax)
	}

	if err := calibration.Save(outPath, st); err != nil {
		return err
	}
	fmt.Printf("Saved calibration to %s\n", outPath)
	return nil
}

// collectRestSamples drives the configured transport through the wire
// decoder until enough samples arrive or the timeout hits.
func collectRestSamples(cfg *config.Config) ([]control.RawSample, error) {
	dec, err := wire.NewDecoder(cfg.WireFormat)
	if err != nil {
		return nil, err
	}

	want := cfg.CalibrationSamples
	samples := make([]control.RawSample, 0, want)
	fr := framer.New()

	ctx, cancel := context.WithTimeout(context.Background(), calibrateTimeout)
	defer cancel()

	feed := func(chunk []byte) error {
		lines, ferr := fr.Feed(chunk)
		for _, line := range lines {
			s, derr := dec.Decode(line)
			if derr != nil {
				log.Printf("calibrate: dropping line: %v", derr)
				continue
			}
			samples = append(samples, s)
			fmt.Printf("\rcollected %d/%d", len(samples), want)
			if len(samples) >= want {
				cancel()
				return nil
			}
		}
		return ferr
	}

	tr := buildTransport(cfg, nil)
	err = tr.Run(ctx, feed)
	fmt.Println()

	if len(samples) >= want {
		return samples[:want], nil
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return nil, fmt.Errorf("calibrate: only %d/%d samples within %s", len(samples), want, calibrateTimeout)
}

func stddevAxis(samples []control.RawSample, axis func(control.RawSample) int) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(axis(s))
	}
	mean := sum / float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := float64(axis(s)) - mean
		variance += d * d
	}
	variance /= float64(len(samples))
	return math.Sqrt(variance)
}

func quality(std float64) string {
	switch {
	case std <= stillStdGood:
		return "good"
	case std >= stillStdBad:
		return "bad (stick moving or wiring noisy)"
	default:
		return "acceptable"
	}
}
