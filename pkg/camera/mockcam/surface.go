// Package mockcam is an in-memory camera surface for tests and headless runs.
package mockcam

import (
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"mapstick/pkg/camera"
	"mapstick/pkg/geo"
)

// CallKind names a recorded surface call.
type CallKind string

const (
	CallJumpTo  CallKind = "jumpTo"
	CallPanBy   CallKind = "panBy"
	CallEaseTo  CallKind = "easeTo"
	CallFlyTo   CallKind = "flyTo"
	CallStop    CallKind = "stop"
	CallTerrain CallKind = "terrain"
)

// Call is one recorded mutation.
type Call struct {
	Kind      CallKind
	Options   camera.Options
	Animation camera.Animation
	DX, DY    float64
	Value     float64
	ID        camera.AnimationID
}

// Config holds the initial state of the mock surface.
type Config struct {
	Start   camera.Pose
	Terrain float64
}

type flight struct {
	id      camera.AnimationID
	from    camera.Pose
	to      camera.Pose
	anim    camera.Animation
	elapsed time.Duration
}

// Surface implements camera.Surface in memory. Animated moves stay pending
// until Advance or Finish is called.
type Surface struct {
	camera.Signals

	mu      sync.Mutex
	pose    camera.Pose
	terrain float64
	calls   []Call
	nextID  camera.AnimationID
	active  *flight
}

// New creates a mock surface.
func New(cfg Config) *Surface {
	return &Surface{
		pose:    cfg.Start,
		terrain: cfg.Terrain,
	}
}

// Pose implements camera.Surface.
func (s *Surface) Pose() camera.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose
}

// JumpTo implements camera.Surface.
func (s *Surface) JumpTo(o camera.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = normalize(o.Apply(s.pose))
	s.calls = append(s.calls, Call{Kind: CallJumpTo, Options: o})
}

// PanBy implements camera.Surface. The pixel offset is converted with the
// web-mercator scale at the current zoom and rotated by the bearing.
func (s *Surface) PanBy(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose.Center = panCenter(s.pose, dx, dy)
	s.calls = append(s.calls, Call{Kind: CallPanBy, DX: dx, DY: dy})
}

// EaseTo implements camera.Surface.
func (s *Surface) EaseTo(o camera.Options, a camera.Animation) camera.AnimationID {
	return s.animate(CallEaseTo, o, a)
}

// FlyTo implements camera.Surface.
func (s *Surface) FlyTo(o camera.Options, a camera.Animation) camera.AnimationID {
	return s.animate(CallFlyTo, o, a)
}

func (s *Surface) animate(kind CallKind, o camera.Options, a camera.Animation) camera.AnimationID {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.calls = append(s.calls, Call{Kind: kind, Options: o, Animation: a, ID: id})
	target := normalize(o.Apply(s.pose))
	if a.Duration <= 0 {
		s.pose = target
		s.active = nil
		s.mu.Unlock()
		s.EmitMoveEnd(camera.MoveEnd{Animation: id})
		return id
	}
	s.active = &flight{id: id, from: s.pose, to: target, anim: a}
	s.mu.Unlock()
	return id
}

// Stop implements camera.Surface. A stopped animation still reports its move-end.
func (s *Surface) Stop() {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Kind: CallStop})
	active := s.active
	s.active = nil
	s.mu.Unlock()
	if active != nil {
		s.EmitMoveEnd(camera.MoveEnd{Animation: active.id})
	}
}

// TerrainExaggeration implements camera.Surface.
func (s *Surface) TerrainExaggeration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terrain
}

// SetTerrainExaggeration implements camera.Surface.
func (s *Surface) SetTerrainExaggeration(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terrain = v
	s.calls = append(s.calls, Call{Kind: CallTerrain, Value: v})
}

// Advance progresses the running animation by d, completing it when its
// duration has elapsed.
func (s *Surface) Advance(d time.Duration) {
	s.mu.Lock()
	f := s.active
	if f == nil {
		s.mu.Unlock()
		return
	}
	f.elapsed += d
	t := float64(f.elapsed) / float64(f.anim.Duration)
	if t < 1 {
		s.pose = interpolate(f.from, f.to, f.anim.Easing.Func()(t))
		s.mu.Unlock()
		return
	}
	s.pose = f.to
	s.active = nil
	s.mu.Unlock()
	s.EmitMoveEnd(camera.MoveEnd{Animation: f.id})
}

// Finish completes the running animation immediately.
func (s *Surface) Finish() {
	s.mu.Lock()
	f := s.active
	s.mu.Unlock()
	if f != nil {
		s.Advance(f.anim.Duration)
	}
}

// Animating reports whether an animation is pending.
func (s *Surface) Animating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Calls returns a copy of the recorded calls.
func (s *Surface) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsOf returns the recorded calls of one kind.
func (s *Surface) CallsOf(kind CallKind) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the call log.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Gesture simulates a user gesture start.
func (s *Surface) Gesture(g camera.Gesture) {
	s.EmitGesture(g)
}

func interpolate(a, b camera.Pose, t float64) camera.Pose {
	lerp := func(x, y float64) float64 { return x + (y-x)*t }
	return camera.Pose{
		Center:  orb.Point{lerp(a.Center.Lon(), b.Center.Lon()), lerp(a.Center.Lat(), b.Center.Lat())},
		Zoom:    lerp(a.Zoom, b.Zoom),
		Bearing: geo.WrapBearing(a.Bearing + geo.NormalizeAngle(b.Bearing-a.Bearing)*t),
		Pitch:   lerp(a.Pitch, b.Pitch),
	}
}

func normalize(p camera.Pose) camera.Pose {
	p.Bearing = geo.WrapBearing(p.Bearing)
	p.Zoom = math.Max(camera.MinZoom, math.Min(camera.MaxZoom, p.Zoom))
	return p
}

// panCenter shifts the center by a screen offset. Screen y grows downward.
func panCenter(p camera.Pose, dx, dy float64) orb.Point {
	degPerPx := 360 / (512 * math.Pow(2, p.Zoom))
	rad := p.Bearing * math.Pi / 180
	east := dx*math.Cos(rad) + dy*math.Sin(rad)
	north := dx*math.Sin(rad) - dy*math.Cos(rad)
	lat := p.Center.Lat() + north*degPerPx*math.Cos(p.Center.Lat()*math.Pi/180)
	lon := p.Center.Lon() + east*degPerPx
	lat = math.Max(-85, math.Min(85, lat))
	return orb.Point{geo.NormalizeAngle(lon), lat}
}
