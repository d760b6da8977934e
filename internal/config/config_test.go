package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "joystick_config.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
# comment line
TRANSPORT=ble
WIRE_FORMAT=nmea
BLE_DEVICE_NAME=RacerStick
DEADZONE=0.2
GAMMA=1.3
SMOOTHING_WINDOW=5
CALIBRATION_SAMPLES=30
CALIBRATION_FILE=/tmp/cal.json
MQTT_BROKER=tcp://broker:1883
WEB_SERVER_PORT=9090
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Transport != "ble" || cfg.WireFormat != "nmea" {
		t.Errorf("transport/format not applied: %q %q", cfg.Transport, cfg.WireFormat)
	}
	if cfg.BLEDeviceName != "RacerStick" {
		t.Errorf("BLEDeviceName = %q", cfg.BLEDeviceName)
	}
	if cfg.Deadzone != 0.2 || cfg.Gamma != 1.3 || cfg.SmoothingWindow != 5 {
		t.Errorf("shaping not applied: %g %g %d", cfg.Deadzone, cfg.Gamma, cfg.SmoothingWindow)
	}
	if cfg.CalibrationSamples != 30 || cfg.CalibrationFile != "/tmp/cal.json" {
		t.Errorf("calibration not applied: %d %q", cfg.CalibrationSamples, cfg.CalibrationFile)
	}
	if cfg.MQTTBroker != "tcp://broker:1883" || cfg.WebServerPort != 9090 {
		t.Errorf("broker/port not applied: %q %d", cfg.MQTTBroker, cfg.WebServerPort)
	}

	// untouched keys keep their defaults
	if cfg.SerialBaud != 9600 || cfg.TopicControl != "joystick/control" {
		t.Errorf("defaults lost: %d %q", cfg.SerialBaud, cfg.TopicControl)
	}
}

func TestLoadEmptyFileIsAllDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# nothing but comments\n\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if *cfg != *def {
		t.Errorf("got %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("missing file must error")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"unknown key", "BOGUS=1", "unknown config key"},
		{"no equals", "JUSTAKEY", "invalid config line"},
		{"bad transport", "TRANSPORT=telepathy", "TRANSPORT"},
		{"bad format", "WIRE_FORMAT=xml", "WIRE_FORMAT"},
		{"deadzone too big", "DEADZONE=1.0", "DEADZONE"},
		{"negative deadzone", "DEADZONE=-0.1", "DEADZONE"},
		{"zero gamma", "GAMMA=0", "GAMMA"},
		{"window too big", "SMOOTHING_WINDOW=64", "SMOOTHING_WINDOW"},
		{"zero samples", "CALIBRATION_SAMPLES=0", "CALIBRATION_SAMPLES"},
		{"baud not a number", "SERIAL_BAUD_RATE=fast", "SERIAL_BAUD_RATE"},
	}
	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.line+"\n"))
		if err == nil {
			t.Errorf("%s: accepted %q", tc.name, tc.line)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestValidateCrossField(t *testing.T) {
	_, err := Load(writeConfig(t, "TRANSPORT=ble\nBLE_DEVICE_NAME=\n"))
	if err == nil || !strings.Contains(err.Error(), "BLE_DEVICE_NAME") {
		t.Fatalf("ble transport without device name must fail, got %v", err)
	}

	_, err = Load(writeConfig(t, "MQTT_BROKER=\n"))
	if err == nil || !strings.Contains(err.Error(), "MQTT_BROKER") {
		t.Fatalf("empty broker must fail, got %v", err)
	}
}
