package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestTiltFromAccel(t *testing.T) {
	assert.InDelta(t, 0.0, tiltFromAccel(0, 1000), 1e-9)
	assert.InDelta(t, 45.0, tiltFromAccel(1000, 1000), 1e-9)
	assert.InDelta(t, -45.0, tiltFromAccel(-1000, 1000), 1e-9)
	assert.InDelta(t, 90.0, tiltFromAccel(1000, 0), 1e-9)
}

func TestMPU6050TiltAngle(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x68, W: []byte{regWhoAmI}, R: []byte{whoAmIValue}},
			{Addr: 0x68, W: []byte{regPwrMgmt1, 0x00}, R: nil},
			{Addr: 0x68, W: []byte{regConfig, dlpf21Hz}, R: nil},
			{Addr: 0x68, W: []byte{regGyroConfig, gyroRange500}, R: nil},
			{Addr: 0x68, W: []byte{regAccelConfig, accelRange8G}, R: nil},
			// ax=256, ay=1000 (0x03E8), az=1000
			{Addr: 0x68, W: []byte{regAccelXOutH}, R: []byte{0x01, 0x00, 0x03, 0xE8, 0x03, 0xE8}},
		},
		DontPanic: true,
	}

	m, err := NewMPU6050(bus, 0x68)
	require.NoError(t, err)

	angle, err := m.TiltAngle()
	require.NoError(t, err)
	assert.InDelta(t, 45.0, angle, 1e-9)
}

func TestMockTiltStaysNearBase(t *testing.T) {
	m := NewMockTilt(11, 2)
	angle, err := m.TiltAngle()
	require.NoError(t, err)
	assert.InDelta(t, 11, angle, 2.001)
}
