package common

import "math"

func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// MoveTowards steps current toward target by at most maxDelta.
func MoveTowards(current, target, maxDelta float64) float64 {
	d := target - current
	if math.Abs(d) <= maxDelta {
		return target
	}
	return current + math.Copysign(maxDelta, d)
}
