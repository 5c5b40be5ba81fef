// Copyright (c) 2026 Claybath Instruments
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"
)

// MockTilt generates a slowly oscillating angle around a base value for
// bench work without the instrument attached.
type MockTilt struct {
	base  float64
	swing float64
	start time.Time
}

// NewMockTilt creates a mock source oscillating ±swing degrees around base.
func NewMockTilt(base, swing float64) *MockTilt {
	return &MockTilt{base: base, swing: swing, start: time.Now()}
}

func (m *MockTilt) TiltAngle() (float64, error) {
	elapsed := time.Since(m.start).Seconds()
	return m.base + m.swing*math.Sin(elapsed/7), nil
}
