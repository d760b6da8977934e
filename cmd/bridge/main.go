// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package main

import (
	"flag"
	"log"

	"github.com/moreshk/arduino-joystick-racer/internal/app"
	"github.com/moreshk/arduino-joystick-racer/internal/config"
)

func main() {
	configPath := flag.String("config", "./joystick_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting joystick bridge (controller → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunBridge(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
