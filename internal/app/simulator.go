// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/moreshk/arduino-joystick-racer/internal/config"
	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

// RunSimulator publishes synthetic control events so the web view,
// display, and game consumers can be exercised without any hardware.
func RunSimulator() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDSimulator)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("simulator: connected to MQTT broker at %s", cfg.MQTTBroker)

	src := control.NewMockSource()
	ticker := time.NewTicker(time.Duration(cfg.SimulatorInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		c, err := src.Next()
		if err != nil {
			log.Printf("simulator: error from mock source: %v", err)
			continue
		}

		payload, err := json.Marshal(c)
		if err != nil {
			log.Printf("simulator: json marshal error: %v", err)
			continue
		}

		if token := client.Publish(cfg.TopicControl, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("simulator: MQTT publish error: %v", token.Error())
		}
	}
	return nil
}
