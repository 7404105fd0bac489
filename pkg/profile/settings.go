package profile

import (
	"time"

	"mapstick/pkg/camera"
	"mapstick/pkg/filter"
)

// SmoothingMode selects how the inertia factor relates to elapsed time.
type SmoothingMode string

const (
	// SmoothingTime rescales the factor by dt so the feel is refresh-rate
	// independent. It equals SmoothingFrame at 60 Hz.
	SmoothingTime SmoothingMode = "time"
	// SmoothingFrame applies the factor once per frame.
	SmoothingFrame SmoothingMode = "frame"
)

// Setting ranges.
const (
	MaxDeadzone    = 0.35
	MinSmoothing   = 0.01
	MinSensitivity = 0.1
	MaxSensitivity = 5.0
	MinIntensity   = 0.1
	MaxIntensity   = 5.0
)

// Settings are the controller tunables. A value is read as a whole per frame
// and replaced as a whole between frames.
type Settings struct {
	Deadzone      float64       `json:"deadzone"`
	Sensitivity   float64       `json:"sensitivity"`
	Smoothing     float64       `json:"smoothing"`
	SmoothingMode SmoothingMode `json:"smoothing_mode,omitempty"`

	InvertPanX      bool `json:"invert_pan_x"`
	InvertPanY      bool `json:"invert_pan_y"`
	InvertRotate    bool `json:"invert_rotate"`
	InvertPitch     bool `json:"invert_pitch"`
	InvertLookPitch bool `json:"invert_look_pitch"`

	PanSpeed      float64 `json:"pan_speed"`    // px/s
	RotateSpeed   float64 `json:"rotate_speed"` // deg/s
	PitchSpeed    float64 `json:"pitch_speed"`  // deg/s
	ZoomSpeed     float64 `json:"zoom_speed"`   // zoom levels/s
	ZoomIntensity float64 `json:"zoom_intensity"`

	TransitionMS     int               `json:"transition_ms"`
	TransitionEasing camera.EasingName `json:"transition_easing"`
	FlySpeed         float64           `json:"fly_speed"`
	FlyCurve         float64           `json:"fly_curve"`
}

// DefaultSettings returns the calibrated defaults.
func DefaultSettings() Settings {
	return Settings{
		Deadzone:         0.15,
		Sensitivity:      1.0,
		Smoothing:        0.2,
		SmoothingMode:    SmoothingTime,
		PanSpeed:         800,
		RotateSpeed:      90,
		PitchSpeed:       60,
		ZoomSpeed:        0.5,
		ZoomIntensity:    1.0,
		TransitionMS:     800,
		TransitionEasing: camera.DefaultEasing,
		FlySpeed:         1.2,
		FlyCurve:         1.42,
	}
}

// Normalize clamps every field into its legal range.
func (s Settings) Normalize() Settings {
	s.Deadzone = filter.Clamp(s.Deadzone, 0, MaxDeadzone)
	s.Sensitivity = filter.Clamp(s.Sensitivity, MinSensitivity, MaxSensitivity)
	s.Smoothing = filter.Clamp(s.Smoothing, MinSmoothing, 1)
	if s.SmoothingMode != SmoothingFrame {
		s.SmoothingMode = SmoothingTime
	}
	s.PanSpeed = max(s.PanSpeed, 0)
	s.RotateSpeed = max(s.RotateSpeed, 0)
	s.PitchSpeed = max(s.PitchSpeed, 0)
	s.ZoomSpeed = max(s.ZoomSpeed, 0)
	s.ZoomIntensity = filter.Clamp(s.ZoomIntensity, MinIntensity, MaxIntensity)
	s.TransitionMS = max(s.TransitionMS, 0)
	if !s.TransitionEasing.Valid() {
		s.TransitionEasing = camera.DefaultEasing
	}
	s.FlySpeed = max(s.FlySpeed, 0)
	s.FlyCurve = max(s.FlyCurve, 0)
	return s
}

// SmoothingFactor returns the inertia factor to apply for a frame of dt seconds.
func (s Settings) SmoothingFactor(dt float64) float64 {
	if s.SmoothingMode == SmoothingFrame {
		return s.Smoothing
	}
	return filter.FrameFactor(s.Smoothing, dt)
}

// Transition returns the animation used for discrete camera moves.
func (s Settings) Transition() camera.Animation {
	return camera.Animation{
		Duration: time.Duration(s.TransitionMS) * time.Millisecond,
		Easing:   s.TransitionEasing,
		Speed:    s.FlySpeed,
		Curve:    s.FlyCurve,
	}
}
