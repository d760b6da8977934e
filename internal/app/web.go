// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/moreshk/arduino-joystick-racer/internal/calibration"
	"github.com/moreshk/arduino-joystick-racer/internal/config"
	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsHub pushes every control event to all connected browsers.
type wsHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newWSHub() *wsHub {
	return &wsHub{conns: make(map[*websocket.Conn]bool)}
}

func (h *wsHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
}

func (h *wsHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *wsHub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// RunWeb serves the latest control snapshot over HTTP, a live WebSocket
// feed of every event, and a recalibrate trigger that publishes the MQTT
// command the bridge listens for.
func RunWeb() error {
	cfg := config.Get()

	var (
		mu          sync.RWMutex
		lastControl control.Control
		lastCal     calibration.State
		haveControl bool
	)
	hub := newWSHub()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to control events: cache the latest and push to
	// every websocket client
	token := client.Subscribe(cfg.TopicControl, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c control.Control
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("web: control unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastControl = c
		haveControl = true
		mu.Unlock()
		hub.broadcast(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicControl)

	calToken := client.Subscribe(cfg.TopicCalibration, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st calibration.State
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("web: calibration unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastCal = st
		mu.Unlock()
	})
	calToken.Wait()
	if calToken.Error() != nil {
		return calToken.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicCalibration)

	// 3) JSON API: latest control event
	http.HandleFunc("/api/control", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveControl {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastControl); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 4) JSON API: current calibration
	http.HandleFunc("/api/calibration", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastCal); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 5) Recalibrate trigger: forwards to the bridge over MQTT
	http.HandleFunc("/api/recalibrate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		if token := client.Publish(cfg.TopicRecalibrate, 0, false, []byte("recalibrate")); token.Wait() && token.Error() != nil {
			log.Printf("web: recalibrate publish error: %v", token.Error())
			http.Error(w, "publish failed", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	// 6) WebSocket live feed
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		hub.add(conn)
		log.Printf("web: websocket client connected from %s", r.RemoteAddr)

		// Drain (and ignore) client messages; exit removes the conn.
		go func() {
			defer hub.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	// 7) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
