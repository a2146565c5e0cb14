package utils

import "math"

// RoundTo rounds value half away from zero to the given number of decimals.
func RoundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}

// Percentage returns round(score/max*100, 2), or 0 when max is not positive.
func Percentage(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return RoundTo(score/max*100, 2)
}

// Mean returns the arithmetic mean and false for an empty slice.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
