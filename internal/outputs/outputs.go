// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package outputs drives the instrument's actuators: the fill and empty
// solenoid valves and the pilot lamp. The solenoid relay board is active
// low, so a logical "open" writes a low level to the pin.
package outputs

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Board drives the actuators through host GPIO pins.
type Board struct {
	fill  gpio.PinOut
	empty gpio.PinOut
	pilot gpio.PinOut
}

// NewBoard looks up the configured pins and drives everything to its safe
// state: both valves closed, pilot lamp off.
func NewBoard(fillPin, emptyPin, pilotPin string) (*Board, error) {
	b := &Board{}

	for _, p := range []struct {
		name string
		dst  *gpio.PinOut
	}{
		{fillPin, &b.fill},
		{emptyPin, &b.empty},
		{pilotPin, &b.pilot},
	} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return nil, fmt.Errorf("outputs: no such pin %q", p.name)
		}
		*p.dst = pin
	}

	if err := b.SetFill(false); err != nil {
		return nil, err
	}
	if err := b.SetEmpty(false); err != nil {
		return nil, err
	}
	if err := b.SetMeasuring(false); err != nil {
		return nil, err
	}

	log.Printf("outputs: valves on %s/%s (active low), pilot on %s", fillPin, emptyPin, pilotPin)
	return b, nil
}

// SetFill opens or closes the fill valve.
func (b *Board) SetFill(open bool) error {
	if err := b.fill.Out(gpio.Level(!open)); err != nil {
		return fmt.Errorf("fill valve: %w", err)
	}
	return nil
}

// SetEmpty opens or closes the empty valve.
func (b *Board) SetEmpty(open bool) error {
	if err := b.empty.Out(gpio.Level(!open)); err != nil {
		return fmt.Errorf("empty valve: %w", err)
	}
	return nil
}

// SetMeasuring switches the pilot lamp: green (high) while a measurement
// cycle is running, off otherwise.
func (b *Board) SetMeasuring(on bool) error {
	if err := b.pilot.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("pilot lamp: %w", err)
	}
	return nil
}
