// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/moreshk/arduino-joystick-racer/internal/config"
	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

// stick view geometry on the 128x64 panel: a square box on the left,
// numeric readout on the right.
const (
	boxLeft = 0
	boxTop  = 0
	boxSize = 64
)

// RunDisplay renders the live control vector on an SSD1306 OLED: a
// crosshair box with the stick position dot plus the numeric values.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: SSD1306 initialized")

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	var (
		mu          sync.RWMutex
		lastControl control.Control
		haveControl bool
	)

	// Connect to MQTT
	mqttOpts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(mqttOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicControl, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c control.Control
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("display: control unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastControl = c
		haveControl = true
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicControl)

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		mu.RLock()
		c := lastControl
		have := haveControl
		mu.RUnlock()

		if err := updateStickDisplay(dev, c, have); err != nil {
			log.Printf("display: update error: %v", err)
		}
	}

	return nil
}

func updateStickDisplay(dev *ssd1306.Dev, c control.Control, haveData bool) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	// Blank image
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if !haveData {
		drawer.Dot = fixed.P(20, 26)
		drawer.DrawBytes([]byte("Joystick"))
		drawer.Dot = fixed.P(20, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	drawStickBox(img, c)

	// Numeric readout
	drawer.Dot = fixed.P(70, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("X%+.2f", c.X)))

	drawer.Dot = fixed.P(70, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("Y%+.2f", c.Y)))

	if c.Button {
		drawer.Dot = fixed.P(70, 52)
		drawer.DrawBytes([]byte("BTN"))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

// drawStickBox renders the box outline, center crosshair, and a 3x3 dot
// at the stick position. Screen Y grows downward, stick Y grows forward.
func drawStickBox(img *image1bit.VerticalLSB, c control.Control) {
	for i := 0; i < boxSize; i++ {
		img.SetBit(boxLeft+i, boxTop, image1bit.On)
		img.SetBit(boxLeft+i, boxTop+boxSize-1, image1bit.On)
		img.SetBit(boxLeft, boxTop+i, image1bit.On)
		img.SetBit(boxLeft+boxSize-1, boxTop+i, image1bit.On)
	}

	cx := boxLeft + boxSize/2
	cy := boxTop + boxSize/2
	for d := -3; d <= 3; d++ {
		img.SetBit(cx+d, cy, image1bit.On)
		img.SetBit(cx, cy+d, image1bit.On)
	}

	px := cx + int(c.X*float64(boxSize/2-3))
	py := cy - int(c.Y*float64(boxSize/2-3))
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			img.SetBit(px+dx, py+dy, image1bit.On)
		}
	}
}

func showSplash(dev *ssd1306.Dev) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	// Blank image
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Joystick Racer"))

	drawer.Dot = fixed.P(25, 43)
	drawer.DrawBytes([]byte("Bridge"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
