package core

// Density bounds for the claybath probe. Readings mapping outside this
// window are physically implausible and get clamped.
const (
	MinDensity = 0.900
	MaxDensity = 1.200
)

// DensityOf converts a tilt angle in degrees to a fluid density estimate.
// The affine calibration (offset in degrees, dimensionless scale) is applied
// first, then a linear probe model: 45 degrees of tilt corresponds to 0.050
// density units around 1.000. The result is clamped to [0.900, 1.200].
func DensityOf(angleDeg, offset, scale float64) float64 {
	calibrated := (angleDeg + offset) * scale
	density := 1.000 + (calibrated/45.0)*0.050
	if density < MinDensity {
		density = MinDensity
	}
	if density > MaxDensity {
		density = MaxDensity
	}
	return density
}
