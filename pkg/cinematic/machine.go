// Package cinematic runs the special camera modes (orbit, satellite) as an
// explicit state machine layered on top of normal navigation.
package cinematic

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"mapstick/pkg/camera"
)

// Mode is a camera mode.
type Mode string

const (
	ModeIdle                   Mode = "idle"
	ModeTargeting              Mode = "targeting"
	ModeTransitioningOrbit     Mode = "transitioning_orbit"
	ModeOrbitActive            Mode = "orbit_active"
	ModeTransitioningSatellite Mode = "transitioning_satellite"
	ModeSatelliteActive        Mode = "satellite_active"
)

// ErrInvalidTransition is returned for moves the machine does not allow.
var ErrInvalidTransition = errors.New("invalid camera mode transition")

var transitions = map[Mode][]Mode{
	ModeIdle:                   {ModeTargeting},
	ModeTargeting:              {ModeIdle, ModeTargeting, ModeTransitioningOrbit, ModeTransitioningSatellite},
	ModeTransitioningOrbit:     {ModeIdle, ModeOrbitActive},
	ModeOrbitActive:            {ModeIdle},
	ModeTransitioningSatellite: {ModeIdle, ModeSatelliteActive},
	ModeSatelliteActive:        {ModeIdle},
}

func allowed(from, to Mode) bool {
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// Cinematic reports whether the mode takes the camera away from navigation.
func (m Mode) Cinematic() bool {
	return m != ModeIdle
}

// State is the observable machine state. Target and Anchor are only set in
// targeting.
type State struct {
	Mode   Mode                `json:"mode"`
	Target *orb.Point          `json:"target,omitempty"`
	Anchor *camera.ScreenPoint `json:"anchor,omitempty"`
	Since  time.Time           `json:"since"`
}

// Preset is the camera pose a fly-in lands on.
type Preset struct {
	Zoom     float64
	Pitch    float64
	Bearing  *float64 // nil keeps the current bearing
	Duration time.Duration
}

// Config tunes the machine.
type Config struct {
	TargetingTimeout time.Duration
	Orbit            Preset
	Satellite        Preset
	// FlyInTerrain is the terrain exaggeration used while flying in.
	FlyInTerrain float64
}

// DefaultConfig returns the standard presets.
func DefaultConfig() Config {
	north := 0.0
	return Config{
		TargetingTimeout: 5 * time.Second,
		Orbit:            Preset{Zoom: 16, Pitch: 60, Duration: 2500 * time.Millisecond},
		Satellite:        Preset{Zoom: 17, Pitch: 0, Bearing: &north, Duration: 2 * time.Second},
		FlyInTerrain:     0,
	}
}

// Listener observes state changes.
type Listener func(prev, next State)

// Machine owns the camera mode. Every mutation goes through set. Methods are
// called from the frame loop goroutine; State may be read from anywhere.
type Machine struct {
	cfg    Config
	cam    camera.Surface
	orbit  *Orbit
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	state State

	focus        orb.Point
	flight       camera.AnimationID
	launching    bool
	earlyEnd     camera.AnimationID
	savedTerrain *float64

	listeners map[int]Listener
	nextID    int
	unsub     func()
}

// NewMachine creates an idle machine and subscribes to cam's move-end signal.
func NewMachine(cam camera.Surface, orbit *Orbit, cfg Config, logger *slog.Logger, now func() time.Time) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if cfg.TargetingTimeout <= 0 {
		cfg.TargetingTimeout = DefaultConfig().TargetingTimeout
	}
	m := &Machine{
		cfg:       cfg,
		cam:       cam,
		orbit:     orbit,
		logger:    logger,
		now:       now,
		state:     State{Mode: ModeIdle, Since: now()},
		listeners: make(map[int]Listener),
	}
	m.unsub = cam.OnMoveEnd(m.HandleMoveEnd)
	return m
}

// Close detaches the machine from the camera.
func (m *Machine) Close() {
	m.CancelAll()
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.State().Mode
}

// Orbit returns the orbit driver.
func (m *Machine) Orbit() *Orbit {
	return m.orbit
}

// set is the single mutation path.
func (m *Machine) set(mode Mode, target *orb.Point, anchor *camera.ScreenPoint) error {
	m.mu.Lock()
	prev := m.state
	if !allowed(prev.Mode, mode) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev.Mode, mode)
	}
	next := State{Mode: mode, Since: m.now()}
	if mode == ModeTargeting {
		next.Target, next.Anchor = target, anchor
	}
	m.state = next
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	m.logger.Debug("Camera mode", "from", prev.Mode, "to", next.Mode)
	for _, l := range listeners {
		m.notify(l, prev, next)
	}
	return nil
}

// BeginTargeting enters targeting at target. A new target replaces a pending one.
func (m *Machine) BeginTargeting(target orb.Point, anchor *camera.ScreenPoint) error {
	t := target
	var a *camera.ScreenPoint
	if anchor != nil {
		cp := *anchor
		a = &cp
	}
	return m.set(ModeTargeting, &t, a)
}

// Dismiss leaves targeting without choosing a mode.
func (m *Machine) Dismiss() error {
	if m.Mode() != ModeTargeting {
		return fmt.Errorf("%w: dismiss outside targeting", ErrInvalidTransition)
	}
	return m.set(ModeIdle, nil, nil)
}

// ChooseOrbit flies to the orbit preset around the target.
func (m *Machine) ChooseOrbit() error {
	return m.choose(ModeTransitioningOrbit, m.cfg.Orbit)
}

// ChooseSatellite flies to the top-down preset over the target.
func (m *Machine) ChooseSatellite() error {
	return m.choose(ModeTransitioningSatellite, m.cfg.Satellite)
}

func (m *Machine) choose(mode Mode, p Preset) error {
	st := m.State()
	if st.Mode != ModeTargeting || st.Target == nil {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st.Mode, mode)
	}
	target := *st.Target
	if err := m.set(mode, nil, nil); err != nil {
		return err
	}
	m.focus = target
	m.lowerTerrain()

	opts := camera.Options{
		Center: camera.Point(target),
		Zoom:   camera.Float(p.Zoom),
		Pitch:  camera.Float(p.Pitch),
	}
	if p.Bearing != nil {
		opts.Bearing = camera.Float(*p.Bearing)
	}

	// A surface may report the move-end before FlyTo returns.
	m.launching, m.earlyEnd = true, 0
	id := m.cam.FlyTo(opts, camera.Animation{Duration: p.Duration, Easing: camera.EaseInOutCubic})
	m.launching = false
	m.flight = id
	m.logger.Info("Camera fly-in", "mode", mode, "lon", target.Lon(), "lat", target.Lat(), "animation", id)

	if m.earlyEnd != 0 && m.earlyEnd == id {
		m.arrive()
	}
	return nil
}

// HandleMoveEnd advances a transition when its own flight completes. Any
// other move-end, including one for a superseded flight, is ignored.
func (m *Machine) HandleMoveEnd(e camera.MoveEnd) {
	if m.launching {
		m.earlyEnd = e.Animation
		return
	}
	if e.Animation == 0 || e.Animation != m.flight {
		return
	}
	m.arrive()
}

func (m *Machine) arrive() {
	m.flight = 0
	switch m.Mode() {
	case ModeTransitioningOrbit:
		if err := m.set(ModeOrbitActive, nil, nil); err != nil {
			m.logger.Error("Orbit arrival failed", "error", err)
			return
		}
		m.restoreTerrain()
		pose := m.cam.Pose()
		if m.orbit != nil {
			m.orbit.Start(m.focus, pose.Zoom, pose.Pitch, pose.Bearing)
		}
		m.logger.Info("Orbit active")
	case ModeTransitioningSatellite:
		if err := m.set(ModeSatelliteActive, nil, nil); err != nil {
			m.logger.Error("Satellite arrival failed", "error", err)
			return
		}
		m.logger.Info("Satellite view active")
	}
}

// CancelAll returns to idle from any state. It stops the orbit driver and any
// camera animation and restores the terrain. Calling it again is a no-op.
func (m *Machine) CancelAll() {
	if m.orbit != nil {
		m.orbit.Stop()
	}
	mode := m.Mode()
	// Clear the flight first: Stop may report a move-end synchronously.
	m.flight = 0
	if mode != ModeIdle {
		m.cam.Stop()
	}
	m.restoreTerrain()
	if mode != ModeIdle {
		if err := m.set(ModeIdle, nil, nil); err != nil {
			m.logger.Error("Cancel failed", "error", err)
			return
		}
		m.logger.Info("Camera mode cancelled", "from", mode)
	}
}

// Tick runs the time-based parts of the machine: targeting expiry and the
// orbit driver.
func (m *Machine) Tick(now time.Time, dt float64) {
	st := m.State()
	switch st.Mode {
	case ModeTargeting:
		if now.Sub(st.Since) >= m.cfg.TargetingTimeout {
			m.logger.Debug("Targeting expired")
			if err := m.set(ModeIdle, nil, nil); err != nil {
				m.logger.Error("Targeting expiry failed", "error", err)
			}
		}
	case ModeOrbitActive:
		if m.orbit != nil {
			m.orbit.Step(dt)
		}
	}
}

// Subscribe registers l and returns its unsubscribe func.
func (m *Machine) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Machine) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if l, ok := m.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (m *Machine) notify(l Listener, prev, next State) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Camera mode listener panicked", "panic", r)
		}
	}()
	l(prev, next)
}

func (m *Machine) lowerTerrain() {
	if m.savedTerrain == nil {
		v := m.cam.TerrainExaggeration()
		m.savedTerrain = &v
	}
	m.cam.SetTerrainExaggeration(m.cfg.FlyInTerrain)
}

func (m *Machine) restoreTerrain() {
	if m.savedTerrain == nil {
		return
	}
	m.cam.SetTerrainExaggeration(*m.savedTerrain)
	m.savedTerrain = nil
}
