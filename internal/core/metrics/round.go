package metrics

import "math"

// round1 rounds half-up to one decimal place. All percentage and ratio
// outputs in this package go through it so rounding stays uniform.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// clampPct bounds a percentage to [0, 100] and rounds it.
func clampPct(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return round1(v)
}
