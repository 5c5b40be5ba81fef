package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all deployment configuration values: bus names, pin names,
// addresses and intervals. Runtime measurement settings live in
// settings.json and are managed by the controller, not here.
type Config struct {
	// I2C buses. Bus 1 carries the tilt sensor and display 1, bus 2 the
	// RTC and display 2 (mirrors the two-bus board wiring).
	I2CBus1 string
	I2CBus2 string

	SensorI2CAddr   uint16
	RTCI2CAddr      uint16
	Display1I2CAddr uint16
	Display2I2CAddr uint16

	// GPIO pin names for the solenoids and the pilot relay.
	FillValvePin  string
	EmptyValvePin string
	PilotRelayPin string

	// Persistence
	SettingsPath string
	DataDir      string

	// Web server
	WebListenAddr string
	WebRoot       string

	// MQTT telemetry. Empty broker disables MQTT entirely.
	MQTTBroker          string
	MQTTClientID        string
	MQTTClientIDConsole string
	TopicStatus         string
	TopicMeasurement    string

	// Optional GPS time source used when the RTC is absent or has lost
	// its oscillator. Empty port disables it.
	GPSSerialPort string
	GPSBaudRate   int

	// Timing (milliseconds)
	TickInterval          int
	DisplayUpdateInterval int
	DisplayPageInterval   int
	StatusPublishInterval int

	// MockSensor replaces the MPU6050 and the GPIO outputs with
	// simulations for bench work without the instrument attached.
	MockSensor bool
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		I2CBus1:         "1",
		I2CBus2:         "2",
		SensorI2CAddr:   0x68,
		RTCI2CAddr:      0x68,
		Display1I2CAddr: 0x3C,
		Display2I2CAddr: 0x3D,

		FillValvePin:  "GPIO25",
		EmptyValvePin: "GPIO26",
		PilotRelayPin: "GPIO27",

		SettingsPath: "/var/lib/densimeter/settings.json",
		DataDir:      "/var/lib/densimeter/data",

		WebListenAddr: ":80",
		WebRoot:       "web",

		MQTTClientID:        "densimeter",
		MQTTClientIDConsole: "densimeter-console",
		TopicStatus:         "claybath/status",
		TopicMeasurement:    "claybath/measurement",

		GPSBaudRate: 9600,

		TickInterval:          10,
		DisplayUpdateInterval: 1000,
		DisplayPageInterval:   3000,
		StatusPublishInterval: 1000,
	}
}

// Package-level unexported variables for the singleton pattern: the config
// is loaded once at startup and read from many goroutines afterwards.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file on top of the defaults.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
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
	case "I2C_BUS_1":
		c.I2CBus1 = value
	case "I2C_BUS_2":
		c.I2CBus2 = value

	case "SENSOR_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_I2C_ADDR %q: %w", value, err)
		}
		c.SensorI2CAddr = uint16(addr)
	case "RTC_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid RTC_I2C_ADDR %q: %w", value, err)
		}
		c.RTCI2CAddr = uint16(addr)
	case "DISPLAY1_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY1_I2C_ADDR %q: %w", value, err)
		}
		c.Display1I2CAddr = uint16(addr)
	case "DISPLAY2_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY2_I2C_ADDR %q: %w", value, err)
		}
		c.Display2I2CAddr = uint16(addr)

	case "FILL_VALVE_PIN":
		c.FillValvePin = value
	case "EMPTY_VALVE_PIN":
		c.EmptyValvePin = value
	case "PILOT_RELAY_PIN":
		c.PilotRelayPin = value

	case "SETTINGS_PATH":
		c.SettingsPath = value
	case "DATA_DIR":
		c.DataDir = value

	case "WEB_LISTEN_ADDR":
		c.WebListenAddr = value
	case "WEB_ROOT":
		c.WebRoot = value

	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_MEASUREMENT":
		c.TopicMeasurement = value

	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	case "TICK_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL %q: %w", value, err)
		}
		c.TickInterval = interval
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval
	case "DISPLAY_PAGE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_PAGE_INTERVAL %q: %w", value, err)
		}
		c.DisplayPageInterval = interval
	case "STATUS_PUBLISH_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid STATUS_PUBLISH_INTERVAL %q: %w", value, err)
		}
		c.StatusPublishInterval = interval

	case "MOCK_SENSOR":
		mock, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_SENSOR %q: %w", value, err)
		}
		c.MockSensor = mock

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that the loaded values are usable.
func (c *Config) validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %d", c.TickInterval)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	if c.DisplayPageInterval <= 0 {
		return fmt.Errorf("DISPLAY_PAGE_INTERVAL must be positive, got %d", c.DisplayPageInterval)
	}
	if c.SettingsPath == "" {
		return fmt.Errorf("SETTINGS_PATH is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.GPSSerialPort != "" && c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
	}
	return nil
}

// InitGlobal initializes the global configuration from file. A missing
// file is not an error: the instrument boots with compiled defaults.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			globalConfig = Default()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be called
// first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
