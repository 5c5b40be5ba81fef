package core

import (
	"errors"
	"log"
	"math"
	"time"
)

// ErrBusy is returned when a measurement is requested while a cycle is
// already running. Requests are rejected, never queued.
var ErrBusy = errors.New("measurement already in progress")

// Phase is a state of the measurement sequencer.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDraining
	PhaseFilling
	PhaseSettling
	PhaseMeasuring
	PhaseEmptying
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDraining:
		return "draining"
	case PhaseFilling:
		return "filling"
	case PhaseSettling:
		return "settling"
	case PhaseMeasuring:
		return "measuring"
	case PhaseEmptying:
		return "emptying"
	default:
		return "unknown"
	}
}

// TiltSensor reads the instantaneous tilt angle of the probe, in degrees.
// Implementations may return implausible values; the sequencer validates
// every sample, so a sensor glitch never fails a cycle.
type TiltSensor interface {
	TiltAngle() (float64, error)
}

// Valves drives the fill and empty solenoids.
type Valves interface {
	SetFill(open bool) error
	SetEmpty(open bool) error
}

// Clock provides wall time for timestamps and scheduling. Available
// reports whether the time can be trusted (RTC or GPS lock).
type Clock interface {
	Now() time.Time
	Available() bool
}

// Recorder persists settings and appends completed measurements to the
// daily data log. Write failures are logged and otherwise ignored: the
// in-memory state stays authoritative and the next save rewrites it whole.
type Recorder interface {
	SaveSettings(s Settings) error
	AppendMeasurement(t time.Time, density, angle float64) error
}

const drainMillis = 1000 // initial drain before filling

// Sequencer is the non-blocking state machine driving one fill → settle →
// measure → empty cycle. Advance does O(1) work per call and never sleeps;
// all transitions are gated on elapsed milliseconds from a 32-bit monotonic
// counter, compared with unsigned subtraction so counter wraparound is
// harmless.
//
// Sequencer is not safe for concurrent use; the Controller serializes all
// access behind its mutex.
type Sequencer struct {
	settings *Settings
	sensor   TiltSensor
	valves   Valves
	clock    Clock
	rec      Recorder
	millis   func() uint32

	phase        Phase
	phaseStart   uint32
	lastSampleAt uint32

	// Measuring-phase accumulators, reset when a cycle starts.
	angleSum     float64
	validSamples int
	samplesTaken int

	currentAngle   float64
	currentDensity float64

	completed bool // cycle reached Idle since the last TakeCompleted
	recorded  bool // that cycle produced a measurement
}

var bootTime = time.Now()

func uptimeMillis() uint32 {
	return uint32(time.Since(bootTime).Milliseconds())
}

// NewSequencer wires a sequencer to its collaborators. The settings struct
// is shared with the owner: completed cycles write the last-measurement
// fields in place before persisting.
func NewSequencer(settings *Settings, sensor TiltSensor, valves Valves, clock Clock, rec Recorder) *Sequencer {
	return &Sequencer{
		settings: settings,
		sensor:   sensor,
		valves:   valves,
		clock:    clock,
		rec:      rec,
		millis:   uptimeMillis,
	}
}

// SetMillis replaces the monotonic millisecond source. Tests drive the
// state machine with a fake counter.
func (s *Sequencer) SetMillis(fn func() uint32) { s.millis = fn }

// Phase returns the current phase.
func (s *Sequencer) Phase() Phase { return s.phase }

// IsMeasuring reports whether a cycle is active (phase != Idle).
func (s *Sequencer) IsMeasuring() bool { return s.phase != PhaseIdle }

// CurrentAngle returns the calibrated angle of the most recent completed
// measurement, in degrees.
func (s *Sequencer) CurrentAngle() float64 { return s.currentAngle }

// CurrentDensity returns the density of the most recent completed
// measurement.
func (s *Sequencer) CurrentDensity() float64 { return s.currentDensity }

// SampleProgress returns samples attempted so far and the configured total.
func (s *Sequencer) SampleProgress() (taken, total int) {
	return s.samplesTaken, s.settings.MeasurementDuration
}

// TakeCompleted reports whether a cycle finished since the previous call,
// and whether it recorded a measurement. The completion flag is consumed.
func (s *Sequencer) TakeCompleted() (done, recorded bool) {
	done, recorded = s.completed, s.recorded
	s.completed = false
	return done, recorded
}

// Start begins a new measurement cycle. It fails with ErrBusy, touching
// nothing, if a cycle is already running.
func (s *Sequencer) Start() error {
	if s.phase != PhaseIdle {
		return ErrBusy
	}

	s.phase = PhaseDraining
	s.phaseStart = s.millis()
	s.angleSum = 0
	s.validSamples = 0
	s.samplesTaken = 0
	s.recorded = false

	s.setEmpty(false)
	log.Println("sequencer: starting measurement cycle")
	return nil
}

// Advance performs one tick of the state machine. It must be called
// frequently (every ~10ms) from the host loop; each call does at most one
// transition or one sensor sample.
func (s *Sequencer) Advance() {
	if s.phase == PhaseIdle {
		return
	}

	now := s.millis()
	elapsed := now - s.phaseStart // wraps correctly on uint32 overflow

	switch s.phase {
	case PhaseDraining:
		if elapsed >= drainMillis {
			s.setFill(true)
			s.transition(PhaseFilling, now)
			log.Println("sequencer: filling chamber")
		}

	case PhaseFilling:
		if elapsed >= uint32(s.settings.FillDuration)*1000 {
			s.setFill(false)
			s.transition(PhaseSettling, now)
			log.Println("sequencer: waiting for fluid to settle")
		}

	case PhaseSettling:
		if elapsed >= uint32(s.settings.WaitDuration)*1000 {
			s.transition(PhaseMeasuring, now)
			s.lastSampleAt = now
			log.Println("sequencer: taking angle samples")
		}

	case PhaseMeasuring:
		total := s.settings.MeasurementDuration
		if s.samplesTaken < total && now-s.lastSampleAt >= 1000 {
			s.lastSampleAt = now
			s.takeSample()
		}
		if s.samplesTaken >= total {
			s.finalize()
			s.setEmpty(true)
			s.transition(PhaseEmptying, now)
			log.Println("sequencer: emptying chamber")
		}

	case PhaseEmptying:
		if elapsed >= uint32(s.settings.EmptyDuration)*1000 {
			s.setEmpty(false)
			s.phase = PhaseIdle
			s.completed = true
			log.Println("sequencer: measurement cycle complete")
		}
	}
}

func (s *Sequencer) transition(p Phase, now uint32) {
	s.phase = p
	s.phaseStart = now
}

// takeSample reads one tilt angle and accepts it only if |angle| < 90°.
// Readings outside that window (sensor glitch, probe knocked vertical) are
// discarded; a read error counts as a discarded sample.
func (s *Sequencer) takeSample() {
	s.samplesTaken++

	angle, err := s.sensor.TiltAngle()
	if err != nil {
		log.Printf("sequencer: sample %d/%d: sensor read error: %v",
			s.samplesTaken, s.settings.MeasurementDuration, err)
		return
	}
	if math.Abs(angle) >= 90 {
		log.Printf("sequencer: sample %d/%d: angle %.2f out of range, discarded",
			s.samplesTaken, s.settings.MeasurementDuration, angle)
		return
	}

	s.angleSum += angle
	s.validSamples++
	log.Printf("sequencer: sample %d/%d: angle %.2f",
		s.samplesTaken, s.settings.MeasurementDuration, angle)
}

// finalize averages the accepted samples and records the measurement. A run
// with zero valid samples records nothing; the cycle still proceeds to
// emptying and is not retried.
func (s *Sequencer) finalize() {
	if s.validSamples == 0 {
		log.Println("sequencer: no valid samples, measurement not recorded")
		return
	}

	// The calibration offset is applied to the averaged angle here and the
	// scale inside DensityOf. Deployed probes were calibrated against this
	// exact order; do not fold the two into a single DensityOf call.
	measured := s.angleSum/float64(s.validSamples) + s.settings.CalibrationOffset
	density := DensityOf(measured*s.settings.CalibrationScale, 0, 1)
	now := s.clock.Now()

	s.currentAngle = measured
	s.currentDensity = density
	s.settings.LastMeasurementValue = density
	s.settings.LastMeasurementAngle = measured
	s.settings.LastMeasurementTime = now.Unix()
	s.recorded = true

	if err := s.rec.SaveSettings(*s.settings); err != nil {
		log.Printf("sequencer: saving settings: %v", err)
	}
	if err := s.rec.AppendMeasurement(now, density, measured); err != nil {
		log.Printf("sequencer: appending measurement record: %v", err)
	}

	log.Printf("sequencer: measurement complete: angle %.2f, density %.4f (%d/%d valid)",
		measured, density, s.validSamples, s.settings.MeasurementDuration)
}

func (s *Sequencer) setFill(open bool) {
	if err := s.valves.SetFill(open); err != nil {
		log.Printf("sequencer: fill valve: %v", err)
	}
}

func (s *Sequencer) setEmpty(open bool) {
	if err := s.valves.SetEmpty(open); err != nil {
		log.Printf("sequencer: empty valve: %v", err)
	}
}
