package core

import "time"

// NextAutoTime decides when the next automatic measurement should fire.
// It returns 0 ("none") unless every condition for resuming automatic
// operation holds:
//
//  1. the clock service is reliable,
//  2. automatic mode is enabled,
//  3. a prior measurement exists (lastMeasurement != 0); the first
//     measurement of an operating period is always manual,
//  4. the prior measurement happened today, so automatic operation does
//     not resume silently across a day boundary,
//  5. lastMeasurement + interval is still in the future; a stale schedule
//     must not fire retroactively after a power-off period.
//
// Timestamps are unix seconds; the day comparison uses the clock's local
// calendar via now's location.
func NextAutoTime(now time.Time, clockOK bool, lastMeasurement int64, intervalMinutes int, autoEnabled bool) int64 {
	if !clockOK || !autoEnabled {
		return 0
	}
	if lastMeasurement == 0 {
		return 0
	}

	last := time.Unix(lastMeasurement, 0).In(now.Location())
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	if ly != ny || lm != nm || ld != nd {
		return 0
	}

	candidate := lastMeasurement + int64(intervalMinutes)*60
	if candidate <= now.Unix() {
		return 0
	}
	return candidate
}
