package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "densimeter.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
# instrument config
I2C_BUS_1 = /dev/i2c-3
DISPLAY2_I2C_ADDR = 0x3D
MQTT_BROKER = tcp://localhost:1883
TICK_INTERVAL = 5
MOCK_SENSOR = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/i2c-3", cfg.I2CBus1)
	assert.Equal(t, uint16(0x3D), cfg.Display2I2CAddr)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, 5, cfg.TickInterval)
	assert.True(t, cfg.MockSensor)

	// Unset keys keep their defaults.
	def := Default()
	assert.Equal(t, def.I2CBus2, cfg.I2CBus2)
	assert.Equal(t, def.FillValvePin, cfg.FillValvePin)
	assert.Equal(t, def.SettingsPath, cfg.SettingsPath)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "NOT_A_KEY = 1\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown config key")
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	path := writeConfig(t, "TICK_INTERVAL\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid config line")
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, "TICK_INTERVAL = 0\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "TICK_INTERVAL")

	path = writeConfig(t, "GPS_SERIAL_PORT = /dev/serial0\nGPS_BAUD_RATE = -1\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "GPS_BAUD_RATE")
}

func TestLoadBadValueTypes(t *testing.T) {
	path := writeConfig(t, "SENSOR_I2C_ADDR = banana\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "SENSOR_I2C_ADDR")

	path = writeConfig(t, "MOCK_SENSOR = maybe\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "MOCK_SENSOR")
}
