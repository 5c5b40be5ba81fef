package core

import (
	"log"
	"sync"
	"time"
)

// Pilot drives the measuring indicator output (relay NO = green when a
// cycle runs, NC = red when idle).
type Pilot interface {
	SetMeasuring(on bool) error
}

// Measurement is one completed, recorded measurement as handed to the
// telemetry hook.
type Measurement struct {
	Time    int64   `json:"time"`
	Density float64 `json:"density"`
	Angle   float64 `json:"angle"`
}

// Status is the outward-facing snapshot consumed by the web API, the
// websocket stream, the displays and MQTT telemetry.
type Status struct {
	Phase          string  `json:"phase"`
	IsMeasuring    bool    `json:"isMeasuring"`
	SampleIndex    int     `json:"sampleIndex"`
	SampleCount    int     `json:"sampleCount"`
	CurrentAngle   float64 `json:"currentAngle"`
	CurrentDensity float64 `json:"currentDensity"`

	DesiredDensity       float64 `json:"desiredDensity"`
	LastMeasurementValue float64 `json:"lastMeasurementValue"`
	LastMeasurementAngle float64 `json:"lastMeasurementAngle"`
	LastMeasurementTime  int64   `json:"lastMeasurementTime"`
	NextAutoTime         int64   `json:"nextAutoTime"`

	AutoMeasurementEnabled bool  `json:"autoMeasurementEnabled"`
	ClockAvailable         bool  `json:"clockAvailable"`
	Now                    int64 `json:"now"`
}

// Controller is the per-tick driver: it advances the sequencer, triggers
// scheduled measurements and publishes outward state. It owns the settings
// and is the only component that talks to both the scheduler and the
// sequencer.
//
// One mutex guards everything. Tick runs on the host loop; the web and
// MQTT goroutines call in through the exported methods, which take the
// same lock, so the at-most-one-active-cycle invariant holds.
type Controller struct {
	mu       sync.Mutex
	settings Settings
	seq      *Sequencer
	clock    Clock
	pilot    Pilot
	rec      Recorder

	nextAuto   int64
	pilotState *bool

	onMeasurement func(Measurement)
}

// NewController builds the controller and computes the initial schedule
// from the loaded settings.
func NewController(settings Settings, sensor TiltSensor, valves Valves, pilot Pilot, clock Clock, rec Recorder) *Controller {
	c := &Controller{
		settings: settings,
		clock:    clock,
		pilot:    pilot,
		rec:      rec,
	}
	c.seq = NewSequencer(&c.settings, sensor, valves, clock, rec)
	c.reschedule()
	return c
}

// Sequencer exposes the underlying sequencer so tests can inject a fake
// millisecond counter.
func (c *Controller) Sequencer() *Sequencer { return c.seq }

// SetMeasurementHook registers a callback invoked (under the controller
// lock) for every recorded measurement. The hook must be fast and must not
// call back into the controller.
func (c *Controller) SetMeasurementHook(fn func(Measurement)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMeasurement = fn
}

// Tick performs one iteration of the control loop.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq.Advance()

	if done, recorded := c.seq.TakeCompleted(); done {
		c.reschedule()
		if c.nextAuto != 0 {
			log.Printf("controller: next automatic measurement at %s",
				time.Unix(c.nextAuto, 0).Format("2006-01-02 15:04:05"))
		} else {
			log.Println("controller: no automatic measurement scheduled")
		}
		if recorded && c.onMeasurement != nil {
			c.onMeasurement(Measurement{
				Time:    c.settings.LastMeasurementTime,
				Density: c.settings.LastMeasurementValue,
				Angle:   c.settings.LastMeasurementAngle,
			})
		}
	}

	if c.seq.Phase() == PhaseIdle &&
		c.settings.AutoMeasurementEnabled &&
		c.nextAuto != 0 &&
		c.clock.Available() &&
		c.clock.Now().Unix() >= c.nextAuto {
		log.Println("controller: automatic measurement triggered")
		if err := c.seq.Start(); err != nil {
			log.Printf("controller: automatic start: %v", err)
		}
	}

	c.drivePilot()
}

// drivePilot mirrors isMeasuring onto the indicator relay, writing the pin
// only on changes.
func (c *Controller) drivePilot() {
	on := c.seq.IsMeasuring()
	if c.pilotState != nil && *c.pilotState == on {
		return
	}
	if err := c.pilot.SetMeasuring(on); err != nil {
		log.Printf("controller: pilot output: %v", err)
		return
	}
	c.pilotState = &on
}

// StartMeasurement begins a manual cycle. Returns ErrBusy if one is
// already running.
func (c *Controller) StartMeasurement() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Start()
}

// Settings returns a copy of the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings applies a partial update, persists the result and
// recomputes the schedule. The updated settings are returned even when the
// save failed; in-memory state stays authoritative.
func (c *Controller) UpdateSettings(patch SettingsPatch) (Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	patch.apply(&c.settings)
	err := c.rec.SaveSettings(c.settings)
	c.reschedule()
	return c.settings, err
}

// SetAutoEnabled switches automatic mode on or off.
func (c *Controller) SetAutoEnabled(on bool) (Settings, error) {
	return c.UpdateSettings(SettingsPatch{AutoMeasurementEnabled: &on})
}

// ClockChanged recomputes the schedule after the RTC has been set.
func (c *Controller) ClockChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reschedule()
}

// Status returns the outward snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	taken, total := c.seq.SampleProgress()
	return Status{
		Phase:          c.seq.Phase().String(),
		IsMeasuring:    c.seq.IsMeasuring(),
		SampleIndex:    taken,
		SampleCount:    total,
		CurrentAngle:   c.seq.CurrentAngle(),
		CurrentDensity: c.seq.CurrentDensity(),

		DesiredDensity:       c.settings.DesiredDensity,
		LastMeasurementValue: c.settings.LastMeasurementValue,
		LastMeasurementAngle: c.settings.LastMeasurementAngle,
		LastMeasurementTime:  c.settings.LastMeasurementTime,
		NextAutoTime:         c.nextAuto,

		AutoMeasurementEnabled: c.settings.AutoMeasurementEnabled,
		ClockAvailable:         c.clock.Available(),
		Now:                    c.clock.Now().Unix(),
	}
}

// reschedule rederives the next automatic measurement time. Callers hold
// the lock.
func (c *Controller) reschedule() {
	c.nextAuto = NextAutoTime(
		c.clock.Now(),
		c.clock.Available(),
		c.settings.LastMeasurementTime,
		c.settings.MeasurementInterval,
		c.settings.AutoMeasurementEnabled,
	)
}
