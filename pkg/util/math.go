package util

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to the unit interval. Probabilities and confidences
// are always stored clamped.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}
