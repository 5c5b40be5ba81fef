// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package outputs

import "log"

// Sim is a stand-in actuator board for bench runs with a mock sensor. It
// logs state transitions instead of toggling pins.
type Sim struct {
	fill  bool
	empty bool
	pilot bool
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) SetFill(open bool) error {
	if open != s.fill {
		log.Printf("outputs: [sim] fill valve -> %s", onOff(open))
	}
	s.fill = open
	return nil
}

func (s *Sim) SetEmpty(open bool) error {
	if open != s.empty {
		log.Printf("outputs: [sim] empty valve -> %s", onOff(open))
	}
	s.empty = open
	return nil
}

func (s *Sim) SetMeasuring(on bool) error {
	if on != s.pilot {
		if on {
			log.Print("outputs: [sim] pilot lamp -> on")
		} else {
			log.Print("outputs: [sim] pilot lamp -> off")
		}
	}
	s.pilot = on
	return nil
}

func onOff(b bool) string {
	if b {
		return "open"
	}
	return "closed"
}
