// Package navigation integrates analog controller input into camera motion.
package navigation

import (
	"log/slog"
	"math"

	"mapstick/pkg/binding"
	"mapstick/pkg/camera"
	"mapstick/pkg/filter"
	"mapstick/pkg/gamepad"
	"mapstick/pkg/geo"
	"mapstick/pkg/logging"
	"mapstick/pkg/profile"
)

// FlushDegrees is the accumulated rotation or pitch that triggers a camera update.
const FlushDegrees = 1.0

// restEpsilon snaps decaying velocities to zero.
const restEpsilon = 1e-3

// PitchLimits are the two user-selectable pitch ceilings.
type PitchLimits struct {
	Low  float64
	High float64
}

// DefaultPitchLimits returns the standard tiers.
func DefaultPitchLimits() PitchLimits {
	return PitchLimits{Low: 60, High: 85}
}

// Frame is the read-only input of one Step.
type Frame struct {
	Table    binding.Table
	Settings profile.Settings
	Snapshot gamepad.Snapshot
	DT       float64 // seconds
	// LockPitch holds pitch at zero, e.g. in satellite view.
	LockPitch bool
}

// Input reads the shaped value of an analog command: deadzone, then response
// curve. Unbound commands read zero.
func (f Frame) Input(cmd binding.Command) float64 {
	b, ok := f.Table.Get(cmd)
	if !ok {
		return 0
	}
	v := filter.Deadzone(b.Value(f.Snapshot), f.Settings.Deadzone)
	return filter.ResponseCurve(v, f.Settings.Sensitivity)
}

type velocities struct {
	panX, panY    float64
	rotate, pitch float64
	forward       float64
	strafe        float64
	ascend        float64
}

// State is a snapshot of the driver for diagnostics.
type State struct {
	PanX      float64 `json:"pan_x"`
	PanY      float64 `json:"pan_y"`
	Rotate    float64 `json:"rotate"`
	Pitch     float64 `json:"pitch"`
	Forward   float64 `json:"forward"`
	Strafe    float64 `json:"strafe"`
	Ascend    float64 `json:"ascend"`
	ZoomIn    int     `json:"zoom_in"`
	ZoomOut   int     `json:"zoom_out"`
	HighPitch bool    `json:"high_pitch"`
	MaxPitch  float64 `json:"max_pitch"`
	Heading   float64 `json:"heading"`
}

// Driver turns per-frame analog input into camera deltas. It is driven from
// the frame loop goroutine only.
type Driver struct {
	cam    camera.Surface
	limits PitchLimits
	logger *slog.Logger

	vel       velocities
	rotAcc    float64
	pitchAcc  float64
	zoom      ZoomCycler
	highPitch bool
	heading   float64
}

// NewDriver creates a driver for cam.
func NewDriver(cam camera.Surface, limits PitchLimits, logger *slog.Logger) *Driver {
	if limits.Low <= 0 || limits.High < limits.Low {
		limits = DefaultPitchLimits()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{cam: cam, limits: limits, logger: logger}
}

// Step runs one frame for the given context. Menu (or any non-navigation
// context) brings all motion to rest.
func (d *Driver) Step(f Frame, ctx binding.Context) {
	switch ctx {
	case binding.ContextPrimaryNav:
		d.stepMap(f)
	case binding.ContextSecondaryNav:
		d.stepDrone(f)
	default:
		d.Halt()
	}
}

// Halt drops every velocity, accumulator and zoom speed.
func (d *Driver) Halt() {
	d.vel = velocities{}
	d.rotAcc, d.pitchAcc = 0, 0
	d.zoom.Reset()
}

func (d *Driver) stepMap(f Frame) {
	s := f.Settings
	factor := s.SmoothingFactor(f.DT)

	d.vel.panX = smooth(d.vel.panX, invert(f.Input(binding.CmdPanX), s.InvertPanX)*s.PanSpeed*s.Sensitivity, factor)
	d.vel.panY = smooth(d.vel.panY, invert(f.Input(binding.CmdPanY), s.InvertPanY)*s.PanSpeed*s.Sensitivity, factor)
	d.vel.rotate = smooth(d.vel.rotate, invert(f.Input(binding.CmdRotate), s.InvertRotate)*s.RotateSpeed*s.Sensitivity, factor)
	pitchTarget := invert(f.Input(binding.CmdPitch), s.InvertPitch) * s.PitchSpeed * s.Sensitivity
	if f.LockPitch {
		pitchTarget = 0
	}
	d.vel.pitch = smooth(d.vel.pitch, pitchTarget, factor)

	if dx, dy := d.vel.panX*f.DT, d.vel.panY*f.DT; dx != 0 || dy != 0 {
		d.cam.PanBy(dx, dy)
	}

	zoomDelta := float64(d.zoom.Net()) * s.ZoomSpeed * s.Sensitivity * s.ZoomIntensity * f.DT
	d.apply(d.vel.rotate*f.DT, d.vel.pitch*f.DT, zoomDelta, f.LockPitch)

	logging.Trace(d.logger, "Navigation step", "pan_x", d.vel.panX, "pan_y", d.vel.panY, "rotate", d.vel.rotate, "pitch", d.vel.pitch)
}

// stepDrone moves relative to the tracked heading. Look axes turn the camera
// without changing the heading.
func (d *Driver) stepDrone(f Frame) {
	s := f.Settings
	factor := s.SmoothingFactor(f.DT)
	speed := s.PanSpeed * s.Sensitivity

	d.vel.forward = smooth(d.vel.forward, f.Input(binding.CmdMoveForward)*speed, factor)
	d.vel.strafe = smooth(d.vel.strafe, f.Input(binding.CmdMoveStrafe)*speed, factor)
	d.vel.rotate = smooth(d.vel.rotate, f.Input(binding.CmdLookYaw)*s.RotateSpeed*s.Sensitivity, factor)
	d.vel.pitch = smooth(d.vel.pitch, invert(f.Input(binding.CmdLookPitch), s.InvertLookPitch)*s.PitchSpeed*s.Sensitivity, factor)
	climb := f.Input(binding.CmdAscend) - f.Input(binding.CmdDescend)
	d.vel.ascend = smooth(d.vel.ascend, climb*s.ZoomSpeed*s.Sensitivity*s.ZoomIntensity, factor)

	if d.vel.forward != 0 || d.vel.strafe != 0 {
		dx, dy := DroneOffset(d.vel.forward*f.DT, d.vel.strafe*f.DT, d.heading, d.cam.Pose().Bearing)
		d.cam.PanBy(dx, dy)
	}
	// Climbing means zooming out.
	d.apply(d.vel.rotate*f.DT, d.vel.pitch*f.DT, -d.vel.ascend*f.DT, false)
}

// DroneOffset converts forward/strafe distances along heading into a screen
// offset for a camera at bearing. Screen y grows downward.
func DroneOffset(forward, strafe, heading, bearing float64) (dx, dy float64) {
	theta := (heading - bearing) * math.Pi / 180
	sin, cos := math.Sincos(theta)
	dx = forward*sin + strafe*cos
	dy = -forward*cos + strafe*sin
	return dx, dy
}

// apply accumulates rotation and pitch and pushes at most one camera update.
func (d *Driver) apply(dRot, dPitch, dZoom float64, lockPitch bool) {
	d.rotAcc += dRot
	d.pitchAcc += dPitch

	var opts camera.Options
	changed := false
	pose := d.cam.Pose()

	if math.Abs(d.rotAcc) >= FlushDegrees {
		opts.Bearing = camera.Float(geo.WrapBearing(pose.Bearing + d.rotAcc))
		d.rotAcc = 0
		changed = true
	}
	switch {
	case lockPitch:
		d.pitchAcc = 0
		if pose.Pitch != 0 {
			opts.Pitch = camera.Float(0)
			changed = true
		}
	case math.Abs(d.pitchAcc) >= FlushDegrees:
		opts.Pitch = camera.Float(filter.Clamp(pose.Pitch+d.pitchAcc, 0, d.MaxPitch()))
		d.pitchAcc = 0
		changed = true
	}
	if dZoom != 0 {
		opts.Zoom = camera.Float(filter.Clamp(pose.Zoom+dZoom, camera.MinZoom, camera.MaxZoom))
		changed = true
	}
	if changed {
		d.cam.JumpTo(opts)
	}
}

// TapZoom cycles the zoom speed of one direction.
func (d *Driver) TapZoom(in bool) {
	d.zoom.Tap(in)
	zin, zout := d.zoom.Speeds()
	d.logger.Debug("Zoom speed", "in", zin, "out", zout)
}


// MaxPitch returns the active pitch ceiling.
func (d *Driver) MaxPitch() float64 {
	if d.highPitch {
		return d.limits.High
	}
	return d.limits.Low
}

// SetHighPitch selects the pitch tier, clamping the camera if it is above the
// new ceiling.
func (d *Driver) SetHighPitch(high bool) {
	d.highPitch = high
	if p := d.cam.Pose().Pitch; p > d.MaxPitch() {
		d.cam.JumpTo(camera.Options{Pitch: camera.Float(d.MaxPitch())})
	}
}

// TogglePitchLimit switches between the two tiers and returns the new state.
func (d *Driver) TogglePitchLimit() bool {
	d.SetHighPitch(!d.highPitch)
	d.logger.Info("Pitch limit", "max", d.MaxPitch())
	return d.highPitch
}


// ResetHeading aligns the drone heading with the current camera bearing.
func (d *Driver) ResetHeading() {
	d.heading = d.cam.Pose().Bearing
}

// Heading returns the tracked drone heading.
func (d *Driver) Heading() float64 {
	return d.heading
}

// State returns a diagnostic snapshot.
func (d *Driver) State() State {
	zin, zout := d.zoom.Speeds()
	return State{
		PanX:      d.vel.panX,
		PanY:      d.vel.panY,
		Rotate:    d.vel.rotate,
		Pitch:     d.vel.pitch,
		Forward:   d.vel.forward,
		Strafe:    d.vel.strafe,
		Ascend:    d.vel.ascend,
		ZoomIn:    zin,
		ZoomOut:   zout,
		HighPitch: d.highPitch,
		MaxPitch:  d.MaxPitch(),
		Heading:   d.heading,
	}
}

func smooth(cur, target, factor float64) float64 {
	v := filter.SmoothToward(cur, target, factor)
	if target == 0 && math.Abs(v) < restEpsilon {
		return 0
	}
	return v
}

func invert(v float64, on bool) float64 {
	if on {
		return -v
	}
	return v
}
