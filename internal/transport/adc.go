// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/moreshk/arduino-joystick-racer/internal/control"
	"github.com/moreshk/arduino-joystick-racer/internal/wire"
)

// ADCOptions configure the direct-wired adapter: a stick attached to an
// ADS1115 over I2C instead of arriving through an Arduino.
type ADCOptions struct {
	// Format is the wire format the synthesized lines use.
	Format string
	// I2CBus is the bus name, empty for the platform default.
	I2CBus string
	// ButtonPin is the GPIO name of the stick's press switch,
	// active-low with pull-up.
	ButtonPin string
	// SampleInterval defaults to 20 ms (50 Hz), matching the firmware's
	// transmit cadence.
	SampleInterval time.Duration
}

// ADC samples the two axes from an ADS1115 and the button from a GPIO,
// then synthesizes the standard wire lines so the pipeline sees no
// difference from a serial device.
type ADC struct {
	state
	opts ADCOptions
}

// NewADC returns the direct-wired analog adapter.
func NewADC(opts ADCOptions) *ADC {
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = 20 * time.Millisecond
	}
	return &ADC{opts: opts}
}

func (a *ADC) Name() string { return "adc" }

// Run initializes periph, opens the converter, and samples at a fixed
// interval until the context ends.
func (a *ADC) Run(ctx context.Context, feed FeedFunc) error {
	a.set(Connecting)
	defer a.set(Disconnected)

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("%w: periph host init: %v", ErrUnavailable, err)
	}

	bus, err := i2creg.Open(a.opts.I2CBus)
	if err != nil {
		return fmt.Errorf("%w: open I2C bus %q: %v", ErrUnavailable, a.opts.I2CBus, err)
	}
	defer bus.Close()

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		return fmt.Errorf("%w: ADS1115 init: %v", ErrUnavailable, err)
	}

	pinX, err := adc.PinForChannel(ads1x15.Channel0, 3300*physic.MilliVolt, 860*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		return fmt.Errorf("%w: ADS1115 channel 0: %v", ErrUnavailable, err)
	}
	defer pinX.Halt()
	pinY, err := adc.PinForChannel(ads1x15.Channel1, 3300*physic.MilliVolt, 860*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		return fmt.Errorf("%w: ADS1115 channel 1: %v", ErrUnavailable, err)
	}
	defer pinY.Halt()

	var button gpio.PinIn
	if a.opts.ButtonPin != "" {
		button = gpioreg.ByName(a.opts.ButtonPin)
		if button == nil {
			return fmt.Errorf("%w: button pin %q not found", ErrUnavailable, a.opts.ButtonPin)
		}
		if err := button.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("%w: button pin %q: %v", ErrUnavailable, a.opts.ButtonPin, err)
		}
	}

	log.Printf("adc: ADS1115 ready, sampling every %s", a.opts.SampleInterval)
	a.set(Polling)

	ticker := time.NewTicker(a.opts.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			x, err := readAxis(pinX)
			if err != nil {
				return fmt.Errorf("%w: read X: %v", ErrConnectionLost, err)
			}
			y, err := readAxis(pinY)
			if err != nil {
				return fmt.Errorf("%w: read Y: %v", ErrConnectionLost, err)
			}

			sample := control.RawSample{X: x, Y: y}
			if button != nil {
				// active-low: pressed pulls the pin to ground
				sample.Button = button.Read() == gpio.Low
			}

			if ferr := feed([]byte(wire.Encode(a.opts.Format, sample))); ferr != nil {
				log.Printf("adc: feed: %v", ferr)
			}
		}
	}
}

// readAxis maps the converter's 16-bit signed single-ended reading onto
// the firmware's 10-bit scale.
func readAxis(pin ads1x15.PinADC) (int, error) {
	sample, err := pin.Read()
	if err != nil {
		return 0, err
	}
	v := int(sample.Raw) >> 5
	if v < 0 {
		v = 0
	} else if v > 1023 {
		v = 1023
	}
	return v, nil
}
