package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeadzone(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		dz   float64
		want float64
	}{
		{"InsideZero", 0.05, 0.1, 0},
		{"InsideNegative", -0.099, 0.1, 0},
		{"AtBoundary", 0.1, 0.1, 0},
		{"Half", 0.55, 0.1, 0.5},
		{"Full", 1, 0.1, 1},
		{"NegativeFull", -1, 0.1, -1},
		{"Overdriven", 1.3, 0.1, 1},
		{"NoDeadzone", 0.3, 0, 0.3},
		{"DegenerateDeadzone", 0.9, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Deadzone(tt.v, tt.dz), 1e-9)
		})
	}
}

func TestDeadzone_Monotonic(t *testing.T) {
	for _, dz := range []float64{0, 0.05, 0.15, 0.35} {
		prev := -1.0
		for i := 0; i <= 1000; i++ {
			v := float64(i) / 1000
			out := Deadzone(v, dz)
			if v < dz {
				assert.Zero(t, out, "v=%v dz=%v", v, dz)
				continue
			}
			if v > dz && prev >= 0 {
				assert.Greater(t, out, prev, "v=%v dz=%v", v, dz)
			}
			assert.Equal(t, -out, Deadzone(-v, dz), "sign symmetry")
			prev = out
		}
	}
}

func TestResponseCurve(t *testing.T) {
	assert.Equal(t, 0.4, ResponseCurve(0.4, 1))
	assert.Equal(t, -0.4, ResponseCurve(-0.4, 1))
	assert.Equal(t, 0.0, ResponseCurve(0, 0.5))
	assert.Equal(t, 1.0, ResponseCurve(1, 0.5))
	assert.Equal(t, 1.0, ResponseCurve(2, 2), "output bounded")

	// Below 1 flattens the curve near zero.
	assert.Less(t, ResponseCurve(0.3, 0.5), 0.3)
	assert.Greater(t, ResponseCurve(0.3, 2), 0.3)
	assert.Less(t, ResponseCurve(-0.3, 0.5), 0.0)

	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := ResponseCurve(float64(i)/100, 0.7)
		assert.Greater(t, v, prev)
		prev = v
	}
}

func TestSmoothToward(t *testing.T) {
	assert.Equal(t, 10.0, SmoothToward(0, 10, 1))
	assert.Equal(t, 5.0, SmoothToward(0, 10, 0.5))
	assert.Equal(t, 3.0, SmoothToward(3, 10, 0))
	assert.Equal(t, 10.0, SmoothToward(0, 10, 1.5))
}

func TestFrameFactor(t *testing.T) {
	// At the reference rate the factor is unchanged.
	assert.InDelta(t, 0.2, FrameFactor(0.2, 1/ReferenceHz), 1e-12)
	assert.Equal(t, 1.0, FrameFactor(1, 0.033))
	assert.Equal(t, 0.0, FrameFactor(0.2, 0))

	// Two 120 Hz steps land where one 60 Hz step does.
	f120 := FrameFactor(0.2, 1/(2*ReferenceHz))
	v := SmoothToward(0, 1, f120)
	v = SmoothToward(v, 1, f120)
	assert.InDelta(t, SmoothToward(0, 1, 0.2), v, 1e-12)
}

