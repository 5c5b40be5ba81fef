package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextAutoTimeSameDay(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	last := time.Date(2026, 8, 24, 10, 15, 0, 0, time.UTC).Unix()

	next := NextAutoTime(now, true, last, 30, true)
	assert.Equal(t, last+30*60, next)
}

func TestNextAutoTimeNoPriorMeasurement(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	assert.Zero(t, NextAutoTime(now, true, 0, 30, true))
}

func TestNextAutoTimeClockUnavailable(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	last := now.Add(-10 * time.Minute).Unix()
	assert.Zero(t, NextAutoTime(now, false, last, 30, true))
}

func TestNextAutoTimeAutoDisabled(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	last := now.Add(-10 * time.Minute).Unix()
	assert.Zero(t, NextAutoTime(now, true, last, 30, false))
}

func TestNextAutoTimeDayBoundary(t *testing.T) {
	// Last measurement yesterday 10:00, now today 09:00: automatic
	// operation does not resume across a day boundary.
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	last := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC).Unix()
	assert.Zero(t, NextAutoTime(now, true, last, 30, true))
}

func TestNextAutoTimeStaleCandidate(t *testing.T) {
	// Candidate in the past must not fire retroactively.
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	last := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC).Unix()
	assert.Zero(t, NextAutoTime(now, true, last, 30, true))

	// Candidate exactly now is also stale.
	last = now.Add(-30 * time.Minute).Unix()
	assert.Zero(t, NextAutoTime(now, true, last, 30, true))
}

func TestNextAutoTimeLocalCalendar(t *testing.T) {
	// 23:50 and 00:10 around midnight are different days in the clock's
	// own location even though only 20 minutes apart.
	loc := time.FixedZone("UTC+2", 2*3600)
	last := time.Date(2026, 8, 23, 23, 50, 0, 0, loc)
	now := time.Date(2026, 8, 24, 0, 10, 0, 0, loc)
	assert.Zero(t, NextAutoTime(now, true, last.Unix(), 30, true))
}
