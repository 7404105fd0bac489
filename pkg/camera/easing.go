package camera

import "math"

// EasingName names an easing curve so it can cross the host bridge.
type EasingName string

const (
	EaseLinear     EasingName = "linear"
	EaseInOutCubic EasingName = "ease-in-out-cubic"
	EaseOutQuad    EasingName = "ease-out-quad"
	EaseInOutSine  EasingName = "ease-in-out-sine"

	// DefaultEasing is symmetric so fly-ins start and land gently.
	DefaultEasing = EaseInOutCubic
)

// Easing maps progress t in [0,1] to eased progress in [0,1].
type Easing func(t float64) float64

var easings = map[EasingName]Easing{
	EaseLinear: func(t float64) float64 { return t },
	EaseInOutCubic: func(t float64) float64 {
		if t < 0.5 {
			return 4 * t * t * t
		}
		f := -2*t + 2
		return 1 - f*f*f/2
	},
	EaseOutQuad: func(t float64) float64 {
		return 1 - (1-t)*(1-t)
	},
	EaseInOutSine: func(t float64) float64 {
		return -(math.Cos(math.Pi*t) - 1) / 2
	},
}

// Func returns the easing function for n, falling back to the default curve.
func (n EasingName) Func() Easing {
	if f, ok := easings[n]; ok {
		return f
	}
	return easings[DefaultEasing]
}

// Valid reports whether n is a known curve.
func (n EasingName) Valid() bool {
	_, ok := easings[n]
	return ok
}
