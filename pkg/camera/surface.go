// Package camera defines the contract of the external map camera surface.
package camera

import (
	"time"

	"github.com/paulmach/orb"
)

// Zoom and pitch limits shared by the surface implementations.
const (
	MinZoom = 0.0
	MaxZoom = 22.0
)

// ScreenPoint is a position in surface pixels.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pose is the full camera state.
type Pose struct {
	Center  orb.Point `json:"center"`
	Zoom    float64   `json:"zoom"`
	Bearing float64   `json:"bearing"`
	Pitch   float64   `json:"pitch"`
}

// Options selects the fields a camera move changes. Nil fields are left alone.
type Options struct {
	Center  *orb.Point `json:"center,omitempty"`
	Zoom    *float64   `json:"zoom,omitempty"`
	Bearing *float64   `json:"bearing,omitempty"`
	Pitch   *float64   `json:"pitch,omitempty"`
	// Around is the pivot for zoom and rotation.
	Around *orb.Point `json:"around,omitempty"`
}

// PoseOptions returns Options that set every field of p.
func PoseOptions(p Pose) Options {
	c, z, b, pi := p.Center, p.Zoom, p.Bearing, p.Pitch
	return Options{Center: &c, Zoom: &z, Bearing: &b, Pitch: &pi}
}

// Apply returns p with the fields in o applied.
func (o Options) Apply(p Pose) Pose {
	if o.Center != nil {
		p.Center = *o.Center
	}
	if o.Zoom != nil {
		p.Zoom = *o.Zoom
	}
	if o.Bearing != nil {
		p.Bearing = *o.Bearing
	}
	if o.Pitch != nil {
		p.Pitch = *o.Pitch
	}
	return p
}

// Float returns a pointer to v, for building Options.
func Float(v float64) *float64 {
	return &v
}

// Point returns a pointer to p, for building Options.
func Point(p orb.Point) *orb.Point {
	return &p
}

// Animation describes how an animated move runs.
type Animation struct {
	Duration time.Duration `json:"duration"`
	Easing   EasingName    `json:"easing"`
	// Speed and Curve only apply to FlyTo; zero means surface default.
	Speed float64 `json:"speed,omitempty"`
	Curve float64 `json:"curve,omitempty"`
}

// AnimationID identifies one animated move. Zero means "not an animation
// started by us", e.g. a move-end after a user drag.
type AnimationID uint64

// MoveEnd is emitted when a camera move finishes or is stopped.
type MoveEnd struct {
	Animation AnimationID `json:"animation"`
}

// Gesture is the start of a direct user manipulation.
type Gesture string

const (
	GestureDragStart   Gesture = "dragstart"
	GestureZoomStart   Gesture = "zoomstart"
	GestureRotateStart Gesture = "rotatestart"
	GesturePitchStart  Gesture = "pitchstart"
	GestureTouchStart  Gesture = "touchstart"
)

// Valid reports whether g is a known gesture.
func (g Gesture) Valid() bool {
	switch g {
	case GestureDragStart, GestureZoomStart, GestureRotateStart, GesturePitchStart, GestureTouchStart:
		return true
	}
	return false
}

// Surface is the map camera the controller drives.
type Surface interface {
	// Pose returns the current camera state.
	Pose() Pose
	// JumpTo sets camera fields instantly.
	JumpTo(o Options)
	// PanBy moves the view by a pixel offset instantly.
	PanBy(dx, dy float64)
	// EaseTo animates to o. A zero duration behaves like JumpTo but still
	// reports a move-end.
	EaseTo(o Options, a Animation) AnimationID
	// FlyTo animates along a zoom-out/zoom-in arc.
	FlyTo(o Options, a Animation) AnimationID
	// Stop halts every running animation.
	Stop()

	TerrainExaggeration() float64
	SetTerrainExaggeration(v float64)

	// OnGesture and OnMoveEnd register listeners and return their unsubscribe funcs.
	OnGesture(fn func(Gesture)) func()
	OnMoveEnd(fn func(MoveEnd)) func()
}
