package level

import "math"

// Default sensor geometry: the ultrasonic sensor sits under the lid, so a
// short distance to the trash surface means a full bin.
const (
	DefaultMinDistanceCm = 2.0   // at or below this the bin reads 100%
	DefaultMaxDistanceCm = 100.0 // at or above this the bin reads 0%
)

// Calculator converts raw sensor distances into fill percentages.
type Calculator struct {
	MinDistanceCm float64
	MaxDistanceCm float64
}

// NewCalculator returns a Calculator with the default sensor geometry.
func NewCalculator() Calculator {
	return Calculator{
		MinDistanceCm: DefaultMinDistanceCm,
		MaxDistanceCm: DefaultMaxDistanceCm,
	}
}

// FromDistance maps a measured distance in centimeters to a fill
// percentage in [0,100]. Malformed input (negative, NaN, Inf) is clamped
// to the nearest valid boundary instead of erroring.
func (c Calculator) FromDistance(distanceCm float64) int {
	if math.IsNaN(distanceCm) || distanceCm >= c.MaxDistanceCm {
		return 0
	}
	if distanceCm <= c.MinDistanceCm {
		return 100
	}
	pct := (c.MaxDistanceCm - distanceCm) / (c.MaxDistanceCm - c.MinDistanceCm) * 100
	return int(math.Round(pct))
}

// Clamp bounds an already-computed level to [0,100]. Used when a device
// reports trashLevel directly and we trust but bound it.
func Clamp(levelPercent int) int {
	if levelPercent < 0 {
		return 0
	}
	if levelPercent > 100 {
		return 100
	}
	return levelPercent
}
