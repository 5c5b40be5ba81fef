// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"math"

	"periph.io/x/conn/v3/i2c"
)

// MPU6050 register map (subset).
const (
	regConfig      = 0x1A // digital low-pass filter
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXOutH  = 0x3B // AXH AXL AYH AYL AZH AZL
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75

	whoAmIValue = 0x68

	dlpf21Hz     = 0x04
	gyroRange500 = 0x08 // ±500 °/s
	accelRange8G = 0x10 // ±8 g
)

// MPU6050 is a register-level driver for the probe's accelerometer. Only
// the accelerometer path is used: the tilt angle of the float arm is
// derived from the gravity vector in the Y/Z plane.
type MPU6050 struct {
	dev i2c.Dev
}

// NewMPU6050 probes and configures the sensor: wake from sleep, ±8g
// accelerometer range, ±500°/s gyro range, 21 Hz low-pass filter.
func NewMPU6050(bus i2c.Bus, addr uint16) (*MPU6050, error) {
	m := &MPU6050{dev: i2c.Dev{Bus: bus, Addr: addr}}

	var id [1]byte
	if err := m.dev.Tx([]byte{regWhoAmI}, id[:]); err != nil {
		return nil, fmt.Errorf("mpu6050 at 0x%02X: %w", addr, err)
	}
	if id[0] != whoAmIValue {
		log.Printf("sensors: unexpected WHO_AM_I 0x%02X from tilt sensor (want 0x%02X)", id[0], whoAmIValue)
	}

	steps := []struct {
		reg, val byte
		what     string
	}{
		{regPwrMgmt1, 0x00, "wake"},
		{regConfig, dlpf21Hz, "set low-pass filter"},
		{regGyroConfig, gyroRange500, "set gyro range"},
		{regAccelConfig, accelRange8G, "set accel range"},
	}
	for _, s := range steps {
		if err := m.dev.Tx([]byte{s.reg, s.val}, nil); err != nil {
			return nil, fmt.Errorf("mpu6050 %s: %w", s.what, err)
		}
	}

	log.Printf("sensors: MPU6050 initialized at 0x%02X (±8g, ±500°/s, 21Hz DLPF)", addr)
	return m, nil
}

// Acceleration reads the three raw accelerometer axes.
func (m *MPU6050) Acceleration() (ax, ay, az int16, err error) {
	var buf [6]byte
	if err := m.dev.Tx([]byte{regAccelXOutH}, buf[:]); err != nil {
		return 0, 0, 0, fmt.Errorf("reading accelerometer: %w", err)
	}
	ax = int16(uint16(buf[0])<<8 | uint16(buf[1]))
	ay = int16(uint16(buf[2])<<8 | uint16(buf[3]))
	az = int16(uint16(buf[4])<<8 | uint16(buf[5]))
	return ax, ay, az, nil
}

// TiltAngle returns the probe tilt in degrees, from the gravity vector in
// the Y/Z plane. A single bounded-latency I2C transaction; validation of
// the value is the caller's concern.
func (m *MPU6050) TiltAngle() (float64, error) {
	_, ay, az, err := m.Acceleration()
	if err != nil {
		return 0, err
	}
	return tiltFromAccel(float64(ay), float64(az)), nil
}

func tiltFromAccel(ay, az float64) float64 {
	return math.Atan2(ay, az) * 180.0 / math.Pi
}
