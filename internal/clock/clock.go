// Package clock provides the instrument's wall-time service: a DS3231 RTC
// as the primary source with an optional GPS receiver as fallback. The
// control loop asks for time every tick, so reads are cached and
// extrapolated; the I2C bus is touched at most once per second.
package clock

import (
	"errors"
	"log"
	"sync"
	"time"
)

// ErrNoRTC is returned by Set when no RTC is attached to write to.
var ErrNoRTC = errors.New("no RTC attached")

// Service selects between the available time sources. It satisfies the
// controller's Clock interface: scheduling is disabled whenever Available
// reports false, while Now still returns a best-effort time for logging
// and record timestamps.
type Service struct {
	rtc *DS3231 // nil when absent
	gps *GPSTime

	mu  sync.Mutex
	ref time.Time
	at  time.Time
	ok  bool
}

// NewService builds the service. Either source may be nil.
func NewService(rtc *DS3231, gps *GPSTime) *Service {
	return &Service{rtc: rtc, gps: gps}
}

// Now returns the current time from the best available source. Without
// any trusted source it falls back to the host clock so timestamps remain
// usable; Available tells callers not to schedule against them.
func (s *Service) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ok && time.Since(s.at) < time.Second {
		return s.ref.Add(time.Since(s.at))
	}

	if s.rtc != nil && s.rtc.Valid() {
		if t, err := s.rtc.Now(); err == nil {
			s.ref, s.at, s.ok = t, time.Now(), true
			return t
		} else {
			log.Printf("clock: RTC read failed: %v", err)
		}
	}

	if s.gps != nil {
		if t, ok := s.gps.Now(); ok {
			s.ref, s.at, s.ok = t, time.Now(), true
			return t
		}
	}

	s.ok = false
	return time.Now()
}

// Available reports whether the returned time can be trusted for
// scheduling.
func (s *Service) Available() bool {
	if s.rtc != nil && s.rtc.Valid() {
		return true
	}
	if s.gps != nil {
		if _, ok := s.gps.Now(); ok {
			return true
		}
	}
	return false
}

// Set writes the RTC and invalidates the read cache.
func (s *Service) Set(t time.Time) error {
	if s.rtc == nil {
		return ErrNoRTC
	}
	if err := s.rtc.SetTime(t); err != nil {
		return err
	}

	s.mu.Lock()
	s.ok = false
	s.mu.Unlock()

	log.Printf("clock: RTC time set to %s", t.Format("2006-01-02 15:04:05"))
	return nil
}
