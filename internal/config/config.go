package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Input
	Transport  string // serial, ble, keyboard, adc
	WireFormat string // csv, nmea

	// Serial
	SerialPort string // empty = autodetect by USB vendor ID
	SerialBaud int

	// Bluetooth LE
	BLEDeviceName     string
	BLEServiceUUID    string
	BLECharUUID       string
	BLEConnectTimeout int // milliseconds
	BLEPollInterval   int // milliseconds

	// Direct-wired ADC
	ADCI2CBus         string
	ADCButtonPin      string
	ADCSampleInterval int // milliseconds

	// Shaping
	Deadzone           float64
	Gamma              float64
	SmoothingWindow    int
	CalibrationSamples int
	CalibrationFile    string // empty = no persistence

	// MQTT
	MQTTBroker            string
	MQTTClientIDBridge    string
	MQTTClientIDConsole   string
	MQTTClientIDWeb       string
	MQTTClientIDDisplay   string
	MQTTClientIDSimulator string

	// Topics
	TopicControl     string
	TopicRaw         string
	TopicCalibration string
	TopicRecalibrate string

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds

	// Simulator
	SimulatorInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: RWMutex protects concurrent access.
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns a config matching the tuning the controller firmware
// shipped with. Every value can be overridden from the file.
func Defaults() *Config {
	return &Config{
		Transport:  "serial",
		WireFormat: "csv",

		SerialBaud: 9600,

		BLEDeviceName:     "JoystickBridge",
		BLEConnectTimeout: 3000,
		BLEPollInterval:   50,

		ADCSampleInterval: 20,

		Deadzone:           0.15,
		Gamma:              1.6,
		SmoothingWindow:    3,
		CalibrationSamples: 20,

		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDBridge:    "joystick-bridge",
		MQTTClientIDConsole:   "joystick-console",
		MQTTClientIDWeb:       "joystick-web",
		MQTTClientIDDisplay:   "joystick-display",
		MQTTClientIDSimulator: "joystick-simulator",

		TopicControl:     "joystick/control",
		TopicRaw:         "joystick/raw",
		TopicCalibration: "joystick/calibration",
		TopicRecalibrate: "joystick/cmd/recalibrate",

		WebServerPort: 8080,

		DisplayUpdateInterval: 100,

		SimulatorInterval: 50,
	}
}

// Load reads the configuration file over the defaults and returns a
// Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Input
	case "TRANSPORT":
		switch value {
		case "serial", "ble", "keyboard", "adc":
			c.Transport = value
		default:
			return fmt.Errorf("TRANSPORT must be serial/ble/keyboard/adc, got %q", value)
		}
	case "WIRE_FORMAT":
		if value != "csv" && value != "nmea" {
			return fmt.Errorf("WIRE_FORMAT must be csv or nmea, got %q", value)
		}
		c.WireFormat = value

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaud = rate

	// Bluetooth LE
	case "BLE_DEVICE_NAME":
		c.BLEDeviceName = value
	case "BLE_SERVICE_UUID":
		c.BLEServiceUUID = value
	case "BLE_CHAR_UUID":
		c.BLECharUUID = value
	case "BLE_CONNECT_TIMEOUT":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BLE_CONNECT_TIMEOUT %q: %w", value, err)
		}
		c.BLEConnectTimeout = ms
	case "BLE_POLL_INTERVAL":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BLE_POLL_INTERVAL %q: %w", value, err)
		}
		c.BLEPollInterval = ms

	// Direct-wired ADC
	case "ADC_I2C_BUS":
		c.ADCI2CBus = value
	case "ADC_BUTTON_PIN":
		c.ADCButtonPin = value
	case "ADC_SAMPLE_INTERVAL":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ADC_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.ADCSampleInterval = ms

	// Shaping
	case "DEADZONE":
		dz, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DEADZONE %q: %w", value, err)
		}
		if dz < 0 || dz >= 1 {
			return fmt.Errorf("DEADZONE must be in [0, 1), got %g", dz)
		}
		c.Deadzone = dz
	case "GAMMA":
		g, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GAMMA %q: %w", value, err)
		}
		if g <= 0 {
			return fmt.Errorf("GAMMA must be positive, got %g", g)
		}
		c.Gamma = g
	case "SMOOTHING_WINDOW":
		w, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SMOOTHING_WINDOW %q: %w", value, err)
		}
		if w < 1 || w > 32 {
			return fmt.Errorf("SMOOTHING_WINDOW must be 1-32, got %d", w)
		}
		c.SmoothingWindow = w
	case "CALIBRATION_SAMPLES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_SAMPLES %q: %w", value, err)
		}
		if n < 1 || n > 500 {
			return fmt.Errorf("CALIBRATION_SAMPLES must be 1-500, got %d", n)
		}
		c.CalibrationSamples = n
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_SIMULATOR":
		c.MQTTClientIDSimulator = value

	// Topics
	case "TOPIC_CONTROL":
		c.TopicControl = value
	case "TOPIC_RAW":
		c.TopicRaw = value
	case "TOPIC_CALIBRATION":
		c.TopicCalibration = value
	case "TOPIC_RECALIBRATE":
		c.TopicRecalibrate = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = ms

	// Simulator
	case "SIMULATOR_INTERVAL":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIMULATOR_INTERVAL %q: %w", value, err)
		}
		c.SimulatorInterval = ms

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks cross-field requirements the per-key parsing cannot.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.Transport == "ble" && c.BLEDeviceName == "" {
		return fmt.Errorf("BLE_DEVICE_NAME is required when TRANSPORT=ble")
	}
	if c.SerialBaud <= 0 {
		return fmt.Errorf("SERIAL_BAUD_RATE must be positive")
	}
	if c.ADCSampleInterval <= 0 {
		return fmt.Errorf("ADC_SAMPLE_INTERVAL must be positive")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive")
	}
	if c.SimulatorInterval <= 0 {
		return fmt.Errorf("SIMULATOR_INTERVAL must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once so repeated calls are harmless.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
