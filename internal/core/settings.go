package core

// Settings holds the instrument configuration persisted as settings.json.
// LastMeasurement{Value,Angle,Time} are written together by a completed
// cycle and by nothing else; LastMeasurementTime == 0 means "never measured".
type Settings struct {
	DesiredDensity float64 `json:"desiredDensity"`

	// Phase durations in seconds. MeasurementDuration doubles as the
	// sample count for the measuring phase (one sample per second).
	FillDuration        int `json:"fillDuration"`
	WaitDuration        int `json:"waitDuration"`
	MeasurementDuration int `json:"measurementDuration"`
	EmptyDuration       int `json:"emptyDuration"`

	// Spacing between automatic cycles, in minutes.
	MeasurementInterval int `json:"measurementInterval"`

	CalibrationOffset float64 `json:"calibrationOffset"` // degrees
	CalibrationScale  float64 `json:"calibrationScale"`  // dimensionless

	AutoMeasurementEnabled bool `json:"autoMeasurementEnabled"`

	LastMeasurementValue float64 `json:"lastMeasurementValue"`
	LastMeasurementAngle float64 `json:"lastMeasurementAngle"`
	LastMeasurementTime  int64   `json:"lastMeasurementTime"` // unix seconds
}

// DefaultSettings returns the compiled-in configuration used when
// settings.json is missing or corrupt.
func DefaultSettings() Settings {
	return Settings{
		DesiredDensity:         1.025,
		FillDuration:           5,
		WaitDuration:           60,
		MeasurementDuration:    10,
		EmptyDuration:          120,
		MeasurementInterval:    30,
		CalibrationOffset:      0.0,
		CalibrationScale:       1.0,
		AutoMeasurementEnabled: true,
	}
}

// SettingsPatch is a partial settings update as accepted by the control
// API. Nil fields leave the current value unchanged. The last-measurement
// fields are deliberately absent: only a completed cycle writes those.
type SettingsPatch struct {
	DesiredDensity         *float64 `json:"desiredDensity"`
	FillDuration           *int     `json:"fillDuration"`
	WaitDuration           *int     `json:"waitDuration"`
	MeasurementDuration    *int     `json:"measurementDuration"`
	EmptyDuration          *int     `json:"emptyDuration"`
	MeasurementInterval    *int     `json:"measurementInterval"`
	CalibrationOffset      *float64 `json:"calibrationOffset"`
	CalibrationScale       *float64 `json:"calibrationScale"`
	AutoMeasurementEnabled *bool    `json:"autoMeasurementEnabled"`
}

func (p SettingsPatch) apply(s *Settings) {
	if p.DesiredDensity != nil {
		s.DesiredDensity = *p.DesiredDensity
	}
	if p.FillDuration != nil {
		s.FillDuration = *p.FillDuration
	}
	if p.WaitDuration != nil {
		s.WaitDuration = *p.WaitDuration
	}
	if p.MeasurementDuration != nil {
		s.MeasurementDuration = *p.MeasurementDuration
	}
	if p.EmptyDuration != nil {
		s.EmptyDuration = *p.EmptyDuration
	}
	if p.MeasurementInterval != nil {
		s.MeasurementInterval = *p.MeasurementInterval
	}
	if p.CalibrationOffset != nil {
		s.CalibrationOffset = *p.CalibrationOffset
	}
	if p.CalibrationScale != nil {
		s.CalibrationScale = *p.CalibrationScale
	}
	if p.AutoMeasurementEnabled != nil {
		s.AutoMeasurementEnabled = *p.AutoMeasurementEnabled
	}
}
