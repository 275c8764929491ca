package level

import (
	"math"
	"testing"
)

func TestFromDistance(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		name     string
		distance float64
		want     int
	}{
		{"empty at max distance", 100, 0},
		{"empty beyond max distance", 250, 0},
		{"full at min distance", 2, 100},
		{"full below min distance", 0.5, 100},
		{"midpoint", 51, 50},
		{"near full", 3, 99},
		{"near empty", 99, 1},
		{"negative clamps to full", -10, 100},
		{"NaN clamps to empty", math.NaN(), 0},
		{"positive infinity clamps to empty", math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.FromDistance(tt.distance); got != tt.want {
				t.Errorf("FromDistance(%v) = %d, want %d", tt.distance, got, tt.want)
			}
		})
	}
}

func TestFromDistanceAlwaysInRange(t *testing.T) {
	c := NewCalculator()
	for d := -50.0; d <= 300; d += 0.25 {
		got := c.FromDistance(d)
		if got < 0 || got > 100 {
			t.Fatalf("FromDistance(%v) = %d, outside [0,100]", d, got)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-5); got != 0 {
		t.Errorf("Clamp(-5) = %d, want 0", got)
	}
	if got := Clamp(120); got != 100 {
		t.Errorf("Clamp(120) = %d, want 100", got)
	}
	if got := Clamp(42); got != 42 {
		t.Errorf("Clamp(42) = %d, want 42", got)
	}
}

func TestVolumeLiters(t *testing.T) {
	tank := NewTank()

	// 80% -> 20% with the default 10in x 24in cylinder.
	got := tank.VolumeLiters(60)
	want := math.Pi * 100 * 24 * 0.016387064 * 0.60
	if math.Abs(got-want) > 0.01 {
		t.Errorf("VolumeLiters(60) = %.4f, want %.4f", got, want)
	}
	if math.Abs(got-74.13) > 0.01 {
		t.Errorf("VolumeLiters(60) = %.4f, want ~74.13", got)
	}
}

func TestVolumeLitersNeverNegative(t *testing.T) {
	tank := NewTank()
	if got := tank.VolumeLiters(-30); got != 0 {
		t.Errorf("VolumeLiters(-30) = %.4f, want 0", got)
	}
	if got := tank.VolumeLiters(0); got != 0 {
		t.Errorf("VolumeLiters(0) = %.4f, want 0", got)
	}
}
