// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/moreshk/arduino-joystick-racer/internal/calibration"
	"github.com/moreshk/arduino-joystick-racer/internal/config"
	"github.com/moreshk/arduino-joystick-racer/internal/control"
	"github.com/moreshk/arduino-joystick-racer/internal/pipeline"
	"github.com/moreshk/arduino-joystick-racer/internal/shape"
	"github.com/moreshk/arduino-joystick-racer/internal/transport"
)

// RunBridge opens the configured transport, runs the conditioning
// pipeline, and publishes control events to MQTT. Serial and BLE
// transports fall back to the keyboard adapter on failure so the
// consumer is never left without an input source.
func RunBridge() error {
	cfg := config.Get()

	// ---- MQTT ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDBridge)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("bridge: connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- cached calibration ----
	var persisted *calibration.State
	if cfg.CalibrationFile != "" {
		if st, err := calibration.Load(cfg.CalibrationFile); err != nil {
			log.Printf("bridge: no usable calibration cache: %v", err)
		} else {
			persisted = &st
		}
	}

	// The pipeline is driven by the transport's read loop; the MQTT
	// recalibrate command arrives on the client's goroutine, so pipeline
	// access is serialized with a mutex.
	var (
		mu      sync.Mutex
		lastRaw control.RawSample
		haveRaw bool
	)

	publishControl := func(c control.Control) {
		payload, err := json.Marshal(c)
		if err != nil {
			log.Printf("bridge: control marshal error: %v", err)
			return
		}
		if token := client.Publish(cfg.TopicControl, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("bridge: MQTT publish error (control): %v", token.Error())
		}
	}

	pipe, err := pipeline.New(pipeline.Options{
		Format: cfg.WireFormat,
		Shape: shape.Params{
			Deadzone:  cfg.Deadzone,
			Gamma:     cfg.Gamma,
			Smoothing: cfg.SmoothingWindow,
		},
		CalibrationSamples: cfg.CalibrationSamples,
		State:              persisted,
	}, publishControl)
	if err != nil {
		return err
	}

	pipe.OnRaw(func(s control.RawSample) {
		lastRaw = s
		haveRaw = true
		payload, err := json.Marshal(s)
		if err != nil {
			log.Printf("bridge: raw marshal error: %v", err)
			return
		}
		client.Publish(cfg.TopicRaw, 0, false, payload)
	})

	pipe.OnCalibration(func(st calibration.State) {
		payload, err := json.Marshal(st)
		if err != nil {
			log.Printf("bridge: calibration marshal error: %v", err)
			return
		}
		client.Publish(cfg.TopicCalibration, 0, true, payload)

		if st.Valid && cfg.CalibrationFile != "" {
			if err := calibration.Save(cfg.CalibrationFile, st); err != nil {
				log.Printf("bridge: calibration save error: %v", err)
			}
		}
	})

	recalibrate := func() {
		mu.Lock()
		defer mu.Unlock()
		if !haveRaw {
			log.Println("bridge: recalibrate requested before any sample, ignoring")
			return
		}
		pipe.Recalibrate(lastRaw)
	}

	token := client.Subscribe(cfg.TopicRecalibrate, 0, func(_ mqtt.Client, _ mqtt.Message) {
		log.Println("bridge: recalibration requested over MQTT")
		recalibrate()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("bridge: subscribed to %s", cfg.TopicRecalibrate)

	feed := func(chunk []byte) error {
		mu.Lock()
		defer mu.Unlock()
		return pipe.Feed(chunk)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	primary := buildTransport(cfg, recalibrate)
	log.Printf("bridge: starting %s transport (%s wire format)", primary.Name(), cfg.WireFormat)

	err = primary.Run(ctx, feed)
	switch {
	case err == nil || errors.Is(err, context.Canceled):
		log.Println("bridge: shutting down")
		return nil

	case errors.Is(err, transport.ErrUnavailable),
		errors.Is(err, transport.ErrConnectTimeout),
		errors.Is(err, transport.ErrConnectionLost):
		if primary.Name() == "keyboard" {
			return err
		}
		log.Printf("bridge: %s transport failed (%v), falling back to keyboard", primary.Name(), err)
		kb := transport.NewKeyboard(transport.KeyboardOptions{
			Format:        cfg.WireFormat,
			OnRecalibrate: recalibrate,
		})
		if kerr := kb.Run(ctx, feed); kerr != nil && !errors.Is(kerr, context.Canceled) {
			return kerr
		}
		log.Println("bridge: shutting down")
		return nil

	default:
		return err
	}
}

// buildTransport maps the configured transport name onto an adapter.
func buildTransport(cfg *config.Config, recalibrate func()) transport.Transport {
	switch cfg.Transport {
	case "ble":
		return transport.NewBLE(transport.BLEOptions{
			DeviceName:     cfg.BLEDeviceName,
			ServiceUUID:    cfg.BLEServiceUUID,
			CharUUID:       cfg.BLECharUUID,
			ConnectTimeout: time.Duration(cfg.BLEConnectTimeout) * time.Millisecond,
			PollInterval:   time.Duration(cfg.BLEPollInterval) * time.Millisecond,
		})
	case "keyboard":
		return transport.NewKeyboard(transport.KeyboardOptions{
			Format:        cfg.WireFormat,
			OnRecalibrate: recalibrate,
		})
	case "adc":
		return transport.NewADC(transport.ADCOptions{
			Format:         cfg.WireFormat,
			I2CBus:         cfg.ADCI2CBus,
			ButtonPin:      cfg.ADCButtonPin,
			SampleInterval: time.Duration(cfg.ADCSampleInterval) * time.Millisecond,
		})
	default:
		return transport.NewSerial(transport.SerialOptions{
			Port:     cfg.SerialPort,
			BaudRate: uint(cfg.SerialBaud),
		})
	}
}
