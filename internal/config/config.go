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
	// MQTT
	MQTTBroker             string
	MQTTClientIDClassifier string
	MQTTClientIDLogger     string
	MQTTClientIDCollector  string
	MQTTClientIDConsole    string
	MQTTClientIDWeb        string
	MQTTClientIDDisplay    string

	// Topics
	TopicCtrl   string
	TopicState  string
	TopicResult string
	TopicStream string

	// Sensor hardware
	I2CBus     string
	IMUI2CAddr uint16

	// GPIO pins
	PinRecordSwitch   string
	PinCaptureButton  string
	PinStatusLED      string
	PinVibrationMotor string

	// Switch wiring polarity. The tested harness closes the switch to
	// ground, so active means logic-low; set to false for the inverse wiring.
	SwitchActiveLow bool

	// Timing (milliseconds)
	ClassifierSampleInterval int // 25 ms = 40 Hz capture
	LoggerSampleInterval     int // 10 ms = 100 Hz streaming
	ButtonDebounceMS         int
	HeartbeatIntervalMS      int

	// Development
	UseMockSensor bool

	// Collector
	CollectorOutDir          string
	CollectorDBPath          string
	CollectorSerialPort      string
	CollectorSerialBaud      int
	CollectorFlushIntervalMS int

	// Web server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for
//     initialization, read lock for Get() allows multiple concurrent readers.
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config pre-filled with the values the device ships
// with; the config file only needs to override what differs.
func defaults() *Config {
	return &Config{
		MQTTClientIDClassifier: "serve-sense-classifier",
		MQTTClientIDLogger:     "serve-sense-logger",
		MQTTClientIDCollector:  "serve-sense-collector",
		MQTTClientIDConsole:    "serve-sense-console",
		MQTTClientIDWeb:        "serve-sense-web",
		MQTTClientIDDisplay:    "serve-sense-display",

		TopicCtrl:   "servesense/ctrl",
		TopicState:  "servesense/state",
		TopicResult: "servesense/result",
		TopicStream: "servesense/stream",

		I2CBus:     "",
		IMUI2CAddr: 0x69,

		PinRecordSwitch:   "GPIO17",
		PinCaptureButton:  "GPIO27",
		PinStatusLED:      "GPIO22",
		PinVibrationMotor: "GPIO23",
		SwitchActiveLow:   true,

		ClassifierSampleInterval: 25,
		LoggerSampleInterval:     10,
		ButtonDebounceMS:         200,
		HeartbeatIntervalMS:      2000,

		CollectorOutDir:          "data/sessions",
		CollectorDBPath:          "data/servesense.db",
		CollectorSerialBaud:      115200,
		CollectorFlushIntervalMS: 1000,

		WebServerPort: 8080,

		DisplayUpdateInterval: 250,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
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

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_CLASSIFIER":
		c.MQTTClientIDClassifier = value
	case "MQTT_CLIENT_ID_LOGGER":
		c.MQTTClientIDLogger = value
	case "MQTT_CLIENT_ID_COLLECTOR":
		c.MQTTClientIDCollector = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_CTRL":
		c.TopicCtrl = value
	case "TOPIC_STATE":
		c.TopicState = value
	case "TOPIC_RESULT":
		c.TopicResult = value
	case "TOPIC_STREAM":
		c.TopicStream = value

	// Sensor hardware
	case "I2C_BUS":
		c.I2CBus = value
	case "IMU_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid IMU_I2C_ADDR %q: %w", value, err)
		}
		c.IMUI2CAddr = uint16(addr)

	// GPIO pins
	case "PIN_RECORD_SWITCH":
		c.PinRecordSwitch = value
	case "PIN_CAPTURE_BUTTON":
		c.PinCaptureButton = value
	case "PIN_STATUS_LED":
		c.PinStatusLED = value
	case "PIN_VIBRATION_MOTOR":
		c.PinVibrationMotor = value
	case "SWITCH_ACTIVE_LOW":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.SwitchActiveLow = b

	// Timing
	case "CLASSIFIER_SAMPLE_INTERVAL":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.ClassifierSampleInterval = n
	case "LOGGER_SAMPLE_INTERVAL":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.LoggerSampleInterval = n
	case "BUTTON_DEBOUNCE_MS":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.ButtonDebounceMS = n
	case "HEARTBEAT_INTERVAL_MS":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.HeartbeatIntervalMS = n

	// Development
	case "USE_MOCK_SENSOR":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.UseMockSensor = b

	// Collector
	case "COLLECTOR_OUT_DIR":
		c.CollectorOutDir = value
	case "COLLECTOR_DB_PATH":
		c.CollectorDBPath = value
	case "COLLECTOR_SERIAL_PORT":
		c.CollectorSerialPort = value
	case "COLLECTOR_SERIAL_BAUD":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.CollectorSerialBaud = n
	case "COLLECTOR_FLUSH_INTERVAL_MS":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.CollectorFlushIntervalMS = n

	// Web Server
	case "WEB_SERVER_PORT":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.WebServerPort = n

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.DisplayUpdateInterval = n

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicCtrl == "" || c.TopicState == "" || c.TopicResult == "" || c.TopicStream == "" {
		return fmt.Errorf("all four topics (TOPIC_CTRL, TOPIC_STATE, TOPIC_RESULT, TOPIC_STREAM) are required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
