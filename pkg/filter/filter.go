// Package filter holds the numeric transforms applied to raw analog input.
package filter

import "math"

// ReferenceHz is the frame rate per-frame smoothing factors are calibrated at.
const ReferenceHz = 60.0

// Deadzone zeroes |v| < dz and rescales the remainder linearly onto [0,1],
// keeping the sign. Output is continuous at the boundary.
func Deadzone(v, dz float64) float64 {
	if dz <= 0 {
		return clampUnit(v)
	}
	if dz >= 1 {
		return 0
	}
	mag := math.Abs(v)
	if mag < dz {
		return 0
	}
	out := (mag - dz) / (1 - dz)
	if out > 1 {
		out = 1
	}
	return math.Copysign(out, v)
}

// ResponseCurve shapes v with a power curve whose exponent is 1/sensitivity.
// Sensitivity 1 is linear; below 1 gives finer control near zero, above 1 a
// more eager response. Sign is preserved and output stays within [-1,1].
func ResponseCurve(v, sensitivity float64) float64 {
	v = clampUnit(v)
	if v == 0 {
		return 0
	}
	if sensitivity <= 0 {
		return 0
	}
	if sensitivity == 1 {
		return v
	}
	return math.Copysign(math.Pow(math.Abs(v), 1/sensitivity), v)
}

// SmoothToward blends current toward target by factor. A factor of 1 jumps
// straight to target; smaller factors add inertia.
func SmoothToward(current, target, factor float64) float64 {
	if factor >= 1 {
		return target
	}
	if factor <= 0 {
		return current
	}
	return current + (target-current)*factor
}

// FrameFactor converts a per-frame factor calibrated at ReferenceHz into the
// equivalent factor for a step of dt seconds. At 1/ReferenceHz it returns
// factor unchanged.
func FrameFactor(factor, dt float64) float64 {
	switch {
	case dt <= 0, factor <= 0:
		return 0
	case factor >= 1:
		return 1
	}
	return 1 - math.Pow(1-factor, dt*ReferenceHz)
}


// Clamp bounds v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampUnit(v float64) float64 {
	return Clamp(v, -1, 1)
}
