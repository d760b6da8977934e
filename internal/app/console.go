package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/moreshk/arduino-joystick-racer/internal/calibration"
	"github.com/moreshk/arduino-joystick-racer/internal/config"
	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

// RunConsole subscribes to the joystick topics and prints every event.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to conditioned control events
	controlToken := client.Subscribe(cfg.TopicControl, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c control.Control
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("console: control unmarshal error: %v", err)
			return
		}

		btn := " "
		if c.Button {
			btn = "*"
		}
		fmt.Printf("[CTRL] X=%+6.3f  Y=%+6.3f  BTN=[%s]\n", c.X, c.Y, btn)
	})
	controlToken.Wait()
	if controlToken.Error() != nil {
		return controlToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicControl)

	// Subscribe to raw samples
	rawToken := client.Subscribe(cfg.TopicRaw, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s control.RawSample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: raw unmarshal error: %v", err)
			return
		}

		b := 0
		if s.Button {
			b = 1
		}
		fmt.Printf("[RAW ] x=%4d y=%4d b=%d\n", s.X, s.Y, b)
	})
	rawToken.Wait()
	if rawToken.Error() != nil {
		return rawToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicRaw)

	// Subscribe to calibration changes
	calToken := client.Subscribe(cfg.TopicCalibration, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st calibration.State
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("console: calibration unmarshal error: %v", err)
			return
		}

		fmt.Printf("[CAL ] center=(%d, %d) offset=(%+d, %+d) valid=%v\n",
			st.CenterX, st.CenterY, st.OffsetX, st.OffsetY, st.Valid)
	})
	calToken.Wait()
	if calToken.Error() != nil {
		return calToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicCalibration)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
