package core

import (
	"fmt"
	"time"
)

// fakeMillis is a hand-driven monotonic millisecond counter.
type fakeMillis struct {
	now uint32
}

func (f *fakeMillis) millis() uint32 { return f.now }

// run advances the counter in 10ms host-loop ticks, calling Advance on each.
func (f *fakeMillis) run(s *Sequencer, ms int) {
	for i := 0; i < ms/10; i++ {
		f.now += 10
		s.Advance()
	}
}

// fakeSensor replays a fixed sequence of angles, then repeats the last one.
type fakeSensor struct {
	angles []float64
	errAt  int // 1-based read index that fails, 0 = never
	reads  int
}

func (f *fakeSensor) TiltAngle() (float64, error) {
	f.reads++
	if f.errAt != 0 && f.reads == f.errAt {
		return 0, fmt.Errorf("i2c read failed")
	}
	if len(f.angles) == 0 {
		return 0, nil
	}
	i := f.reads - 1
	if i >= len(f.angles) {
		i = len(f.angles) - 1
	}
	return f.angles[i], nil
}

// fakeValves records every actuation in order.
type fakeValves struct {
	fill, empty bool
	ops         []string
}

func (f *fakeValves) SetFill(open bool) error {
	f.fill = open
	f.ops = append(f.ops, fmt.Sprintf("fill=%v", open))
	return nil
}

func (f *fakeValves) SetEmpty(open bool) error {
	f.empty = open
	f.ops = append(f.ops, fmt.Sprintf("empty=%v", open))
	return nil
}

type fakePilot struct {
	on    bool
	calls int
}

func (f *fakePilot) SetMeasuring(on bool) error {
	f.on = on
	f.calls++
	return nil
}

type fakeClock struct {
	now time.Time
	ok  bool
}

func (f *fakeClock) Now() time.Time  { return f.now }
func (f *fakeClock) Available() bool { return f.ok }

type savedRecord struct {
	t       time.Time
	density float64
	angle   float64
}

// fakeRecorder captures persisted settings and appended records.
type fakeRecorder struct {
	saved     []Settings
	records   []savedRecord
	saveErr   error
	appendErr error
}

func (f *fakeRecorder) SaveSettings(s Settings) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeRecorder) AppendMeasurement(t time.Time, density, angle float64) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, savedRecord{t: t, density: density, angle: angle})
	return nil
}
