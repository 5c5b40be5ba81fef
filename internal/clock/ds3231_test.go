package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestBCDRoundTrip(t *testing.T) {
	for v := 0; v < 100; v++ {
		assert.Equal(t, v, bcdDecode(bcdEncode(v)))
	}
	assert.Equal(t, byte(0x59), bcdEncode(59))
	assert.Equal(t, 59, bcdDecode(0x59))
}

func TestDS3231Now(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			// probe: status register, oscillator running
			{Addr: 0x68, W: []byte{regStatus}, R: []byte{0x00}},
			// 2026-08-24 09:30:45, Monday
			{Addr: 0x68, W: []byte{regTime}, R: []byte{0x45, 0x30, 0x09, 0x02, 0x24, 0x08, 0x26}},
		},
		DontPanic: true,
	}

	d, err := NewDS3231(bus, 0x68)
	require.NoError(t, err)
	assert.True(t, d.Valid())

	got, err := d.Now()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 24, 9, 30, 45, 0, time.Local), got)
}

func TestDS3231LostPower(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			// oscillator-stop flag set: time not trustworthy
			{Addr: 0x68, W: []byte{regStatus}, R: []byte{statusOSF}},
			// SetTime: registers, then status read + OSF clear
			{Addr: 0x68, W: []byte{regTime, 0x00, 0x15, 0x12, 0x02, 0x24, 0x08, 0x26}, R: nil},
			{Addr: 0x68, W: []byte{regStatus}, R: []byte{statusOSF}},
			{Addr: 0x68, W: []byte{regStatus, 0x00}, R: nil},
		},
		DontPanic: true,
	}

	d, err := NewDS3231(bus, 0x68)
	require.NoError(t, err)
	assert.False(t, d.Valid())

	// Monday 2026-08-24 12:15:00 local.
	require.NoError(t, d.SetTime(time.Date(2026, 8, 24, 12, 15, 0, 0, time.Local)))
	assert.True(t, d.Valid())
}
