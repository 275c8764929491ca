package level

import "math"

// Bins are modeled as upright cylinders. Sensor geometry ships in inches,
// so the cylinder volume is computed in cubic inches and converted.
const (
	DefaultTankRadiusIn = 10.0
	DefaultTankHeightIn = 24.0

	litersPerCubicInch = 0.016387064
)

// Tank describes the cylindrical interior of a bin.
type Tank struct {
	RadiusIn float64
	HeightIn float64
}

// NewTank returns a Tank with the default bin dimensions.
func NewTank() Tank {
	return Tank{RadiusIn: DefaultTankRadiusIn, HeightIn: DefaultTankHeightIn}
}

// VolumeLiters converts a level delta (percentage points) into liters of
// emptied refuse. A negative delta means refuse accumulated during the
// confirmation window; the result is clamped to zero rather than crediting
// negative volume.
func (t Tank) VolumeLiters(deltaPercent float64) float64 {
	if deltaPercent <= 0 {
		return 0
	}
	full := math.Pi * t.RadiusIn * t.RadiusIn * t.HeightIn * litersPerCubicInch
	return full * deltaPercent / 100
}
