package cinematic

import (
	"github.com/paulmach/orb"

	"mapstick/pkg/camera"
	"mapstick/pkg/filter"
	"mapstick/pkg/geo"
)

// OrbitConfig tunes the orbit driver.
type OrbitConfig struct {
	DefaultSpeed float64 // deg/s
	MaxSpeed     float64 // deg/s
	Smoothing    float64 // per-frame factor at 60 Hz
}

// DefaultOrbitConfig returns a slow, comfortable orbit.
func DefaultOrbitConfig() OrbitConfig {
	return OrbitConfig{DefaultSpeed: 6, MaxSpeed: 30, Smoothing: 0.05}
}

// OrbitState is a diagnostic snapshot of the orbit driver.
type OrbitState struct {
	Running     bool    `json:"running"`
	Speed       float64 `json:"speed"`
	TargetSpeed float64 `json:"target_speed"`
	Zoom        float64 `json:"zoom"`
	TargetZoom  float64 `json:"target_zoom"`
	Bearing     float64 `json:"bearing"`
}

// Orbit circles the camera around a fixed center while running.
type Orbit struct {
	cam camera.Surface
	cfg OrbitConfig

	running     bool
	center      orb.Point
	pitch       float64
	bearing     float64
	zoom        float64
	speed       float64
	targetZoom  float64
	targetSpeed float64
}

// NewOrbit creates a stopped orbit driver.
func NewOrbit(cam camera.Surface, cfg OrbitConfig) *Orbit {
	if cfg.MaxSpeed <= 0 {
		cfg.MaxSpeed = DefaultOrbitConfig().MaxSpeed
	}
	if cfg.Smoothing <= 0 || cfg.Smoothing > 1 {
		cfg.Smoothing = DefaultOrbitConfig().Smoothing
	}
	cfg.DefaultSpeed = filter.Clamp(cfg.DefaultSpeed, -cfg.MaxSpeed, cfg.MaxSpeed)
	return &Orbit{cam: cam, cfg: cfg}
}

// Start begins orbiting from the given pose. Speed ramps up from zero.
func (o *Orbit) Start(center orb.Point, zoom, pitch, bearing float64) {
	o.running = true
	o.center = center
	o.zoom, o.targetZoom = zoom, zoom
	o.pitch = pitch
	o.bearing = bearing
	o.speed = 0
	o.targetSpeed = o.cfg.DefaultSpeed
}

// Stop halts the driver. The camera stays where it is.
func (o *Orbit) Stop() {
	o.running = false
	o.speed = 0
}

// Running reports whether the driver is active.
func (o *Orbit) Running() bool {
	return o.running
}

// SetTargetSpeed sets the angular speed to approach, clamped to the safe range.
func (o *Orbit) SetTargetSpeed(v float64) {
	o.targetSpeed = filter.Clamp(v, -o.cfg.MaxSpeed, o.cfg.MaxSpeed)
}

// Steer maps a shaped stick value in [-1,1] to the speed target; a centered
// stick returns to the default speed.
func (o *Orbit) Steer(v float64) {
	if v == 0 {
		o.SetTargetSpeed(o.cfg.DefaultSpeed)
		return
	}
	o.SetTargetSpeed(v * o.cfg.MaxSpeed)
}

// NudgeZoom moves the zoom target by delta levels.
func (o *Orbit) NudgeZoom(delta float64) {
	o.SetTargetZoom(o.targetZoom + delta)
}

// SetTargetZoom sets the zoom to approach.
func (o *Orbit) SetTargetZoom(z float64) {
	o.targetZoom = filter.Clamp(z, camera.MinZoom, camera.MaxZoom)
}

// Step advances one frame of dt seconds.
func (o *Orbit) Step(dt float64) {
	if !o.running || dt <= 0 {
		return
	}
	f := filter.FrameFactor(o.cfg.Smoothing, dt)
	o.zoom = filter.SmoothToward(o.zoom, o.targetZoom, f)
	o.speed = filter.Clamp(filter.SmoothToward(o.speed, o.targetSpeed, f), -o.cfg.MaxSpeed, o.cfg.MaxSpeed)
	o.bearing = geo.WrapBearing(o.bearing + o.speed*dt)

	o.cam.EaseTo(camera.Options{
		Center:  camera.Point(o.center),
		Zoom:    camera.Float(o.zoom),
		Pitch:   camera.Float(o.pitch),
		Bearing: camera.Float(o.bearing),
	}, camera.Animation{Duration: 0, Easing: camera.EaseLinear})
}

// State returns a diagnostic snapshot.
func (o *Orbit) State() OrbitState {
	return OrbitState{
		Running:     o.running,
		Speed:       o.speed,
		TargetSpeed: o.targetSpeed,
		Zoom:        o.zoom,
		TargetZoom:  o.targetZoom,
		Bearing:     o.bearing,
	}
}
