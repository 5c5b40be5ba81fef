// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package clock

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DS3231 register map (subset).
const (
	regTime   = 0x00 // seconds, minutes, hours, weekday, day, month, year
	regStatus = 0x0F

	statusOSF = 0x80 // oscillator stopped since last clear: time is invalid
)

// DS3231 is a register-level driver for the DS3231 RTC. Time is kept in
// 24-hour BCD; years are stored as an offset from 2000.
type DS3231 struct {
	mu    sync.Mutex
	dev   i2c.Dev
	valid bool
}

// NewDS3231 probes the RTC on the given bus. The device responds but
// reports invalid time if its oscillator stopped (battery dead or first
// power-up); Valid stays false until SetTime is called.
func NewDS3231(bus i2c.Bus, addr uint16) (*DS3231, error) {
	d := &DS3231{dev: i2c.Dev{Bus: bus, Addr: addr}}

	lost, err := d.lostPower()
	if err != nil {
		return nil, fmt.Errorf("ds3231 at 0x%02X: %w", addr, err)
	}
	d.valid = !lost
	return d, nil
}

// Valid reports whether the RTC currently holds trustworthy time.
func (d *DS3231) Valid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.valid
}

func (d *DS3231) lostPower() (bool, error) {
	var status [1]byte
	if err := d.dev.Tx([]byte{regStatus}, status[:]); err != nil {
		return false, fmt.Errorf("reading status: %w", err)
	}
	return status[0]&statusOSF != 0, nil
}

// Now reads the current RTC time in the local zone.
func (d *DS3231) Now() (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf [7]byte
	if err := d.dev.Tx([]byte{regTime}, buf[:]); err != nil {
		return time.Time{}, fmt.Errorf("reading time: %w", err)
	}

	sec := bcdDecode(buf[0] & 0x7F)
	min := bcdDecode(buf[1] & 0x7F)
	hour := bcdDecode(buf[2] & 0x3F) // 24-hour mode
	day := bcdDecode(buf[4] & 0x3F)
	month := bcdDecode(buf[5] & 0x1F)
	year := 2000 + bcdDecode(buf[6])

	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.Local), nil
}

// SetTime writes the RTC registers and clears the oscillator-stop flag so
// the time counts as valid again.
func (d *DS3231) SetTime(t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t = t.In(time.Local)
	buf := []byte{
		regTime,
		bcdEncode(t.Second()),
		bcdEncode(t.Minute()),
		bcdEncode(t.Hour()),
		byte(t.Weekday()) + 1,
		bcdEncode(t.Day()),
		bcdEncode(int(t.Month())),
		bcdEncode(t.Year() - 2000),
	}
	if err := d.dev.Tx(buf, nil); err != nil {
		return fmt.Errorf("writing time: %w", err)
	}

	var status [1]byte
	if err := d.dev.Tx([]byte{regStatus}, status[:]); err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	if err := d.dev.Tx([]byte{regStatus, status[0] &^ statusOSF}, nil); err != nil {
		return fmt.Errorf("clearing oscillator-stop flag: %w", err)
	}

	d.valid = true
	return nil
}

func bcdEncode(v int) byte {
	return byte(v/10<<4 | v%10)
}

func bcdDecode(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}
