// Package controller is the composition root of the per-frame pipeline. It
// owns the profile snapshot, the input context, the dispatcher, the
// navigation driver and the cinematic machine, and runs them in a fixed order
// once per frame.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"mapstick/pkg/binding"
	"mapstick/pkg/camera"
	"mapstick/pkg/cinematic"
	"mapstick/pkg/config"
	"mapstick/pkg/dispatch"
	"mapstick/pkg/gamepad"
	"mapstick/pkg/inputctx"
	"mapstick/pkg/logging"
	"mapstick/pkg/navigation"
	"mapstick/pkg/profile"
	"mapstick/pkg/tracker"
)

// Deps are the collaborators a Controller drives. Camera is required; every
// other field may be nil.
type Deps struct {
	Camera       camera.Surface
	Device       gamepad.Device
	UI           dispatch.UI
	UISource     inputctx.UISource
	Integrations dispatch.Integrations
	Geolocator   dispatch.Geolocator

	// Post schedules work on the frame loop goroutine.
	Post func(func())
	// Alive reports whether the camera surface is still attached.
	Alive func() bool
	// Now is the clock used before the first frame. Defaults to time.Now.
	Now func() time.Time

	Stats  *tracker.Tracker
	Logger *slog.Logger
}

// Session is the controller state worth keeping across restarts.
type Session struct {
	HighPitch  bool                `json:"high_pitch"`
	FlightMode inputctx.FlightMode `json:"flight_mode"`
}

// ProfileInfo identifies the active profile.
type ProfileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// State is the snapshot published after every frame.
type State struct {
	Frame      uint64               `json:"frame"`
	Context    binding.Context      `json:"context"`
	History    []binding.Context    `json:"history"`
	FlightMode inputctx.FlightMode  `json:"flight_mode"`
	Connected  bool                 `json:"connected"`
	Pose       camera.Pose          `json:"pose"`
	Camera     cinematic.State      `json:"camera"`
	Orbit      cinematic.OrbitState `json:"orbit"`
	Navigation navigation.State     `json:"navigation"`
	Profile    ProfileInfo          `json:"profile"`
}

// Controller runs the frame pipeline. Frame and every Navigator/Cinematic
// method run on the loop goroutine; State, Session, Profile and SetProfile
// are safe from any goroutine.
type Controller struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	stats  *tracker.Tracker

	contexts   *inputctx.Manager
	dispatcher *dispatch.Dispatcher
	driver     *navigation.Driver
	machine    *cinematic.Machine
	guard      *cinematic.Guard

	profile     atomic.Pointer[profile.Profile]
	applied     *profile.Profile
	flightMode  inputctx.FlightMode
	highPitch   atomic.Bool
	droneActive atomic.Bool
	frames      uint64
	frameNow    time.Time

	geolocateZoom    float64
	geolocateTimeout time.Duration

	mu    sync.RWMutex
	state State

	unsubs []func()
}

// New wires a controller from the config and the starting profile.
func New(cfg *config.Config, deps Deps, p *profile.Profile) *Controller {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Stats == nil {
		deps.Stats = tracker.New()
	}
	if p == nil {
		p = profile.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c := &Controller{
		cfg:              cfg,
		deps:             deps,
		logger:           deps.Logger,
		stats:            deps.Stats,
		contexts:         inputctx.NewManager(deps.Logger),
		flightMode:       inputctx.FlightMap,
		geolocateZoom:    cfg.Geolocation.Zoom,
		geolocateTimeout: cfg.Geolocation.Timeout.Std(),
	}
	c.profile.Store(p)

	c.driver = navigation.NewDriver(deps.Camera, navigation.PitchLimits{
		Low:  cfg.Camera.PitchLow,
		High: cfg.Camera.PitchHigh,
	}, deps.Logger)

	orbit := cinematic.NewOrbit(deps.Camera, cinematic.OrbitConfig{
		DefaultSpeed: cfg.Cinematic.OrbitSpeed,
		MaxSpeed:     cfg.Cinematic.OrbitMaxSpeed,
		Smoothing:    cfg.Cinematic.OrbitSmoothing,
	})
	c.machine = cinematic.NewMachine(deps.Camera, orbit, MachineConfig(cfg.Cinematic), deps.Logger, c.clock)
	c.guard = cinematic.NewGuard(deps.Camera, c.machine, deps.Logger, func(camera.Gesture) {
		c.stats.TrackCancel()
	})

	c.dispatcher = dispatch.New(dispatch.Env{
		Camera:       deps.Camera,
		UI:           deps.UI,
		Integrations: deps.Integrations,
		Geolocator:   deps.Geolocator,
		Navigator:    c,
		Cinematic:    c,
		Post:         deps.Post,
		Alive:        deps.Alive,
	}, dispatch.NewRepeater(cfg.Input.RepeatDelay.Std(), cfg.Input.RepeatInterval.Std()), c.stats, deps.Logger)

	c.unsubs = append(c.unsubs,
		c.machine.Subscribe(func(prev, next cinematic.State) {
			logging.LogEvent(logging.Event{
				Timestamp: next.Since,
				Type:      "mode",
				Title:     string(next.Mode),
				Summary:   "from " + string(prev.Mode),
			})
		}),
		c.contexts.Subscribe(func(prev, next binding.Context) error {
			c.driver.Halt()
			return nil
		}),
	)
	c.apply(p)
	return c
}

// MachineConfig converts the cinematic config section.
func MachineConfig(cc config.CinematicConfig) cinematic.Config {
	preset := func(p config.PresetConfig) cinematic.Preset {
		return cinematic.Preset{
			Zoom:     p.Zoom,
			Pitch:    p.Pitch,
			Bearing:  p.Bearing,
			Duration: p.Duration.Std(),
		}
	}
	return cinematic.Config{
		TargetingTimeout: cc.TargetingTimeout.Std(),
		Orbit:            preset(cc.Orbit),
		Satellite:        preset(cc.Satellite),
		FlyInTerrain:     cc.FlyInTerrain,
	}
}

// Name implements core.Handler.
func (c *Controller) Name() string { return "controller" }

// Frame runs one pass of the pipeline.
func (c *Controller) Frame(ctx context.Context, now time.Time, dt float64) {
	c.frameNow = now
	p := c.profile.Load()
	if p != c.applied {
		c.apply(p)
	}

	snap, connected := c.poll()
	var ui inputctx.UIState
	if c.deps.UISource != nil {
		ui = c.deps.UISource.UIState()
	}
	active := c.contexts.Update(ui, c.flightMode)

	c.dispatcher.Run(c.dispatcher.Sample(p.Bindings, snap, active, now))

	// Flight mode toggles fired above route input from the next frame on.
	c.navigate(navigation.Frame{
		Table:    p.Bindings,
		Settings: p.Settings,
		Snapshot: snap,
		DT:       dt,
	}, active)

	c.machine.Tick(now, dt)

	c.frames++
	c.stats.TrackFrame()
	c.publish(active, connected, p)
}

func (c *Controller) poll() (gamepad.Snapshot, bool) {
	if c.deps.Device == nil {
		return gamepad.Snapshot{}, false
	}
	snap, ok := c.deps.Device.Poll()
	if !ok {
		return gamepad.Snapshot{}, false
	}
	return snap, true
}

// navigate routes analog input according to the camera mode.
func (c *Controller) navigate(f navigation.Frame, active binding.Context) {
	if active == binding.ContextMenu {
		c.driver.Halt()
		return
	}

	switch c.machine.Mode() {
	case cinematic.ModeIdle:
		c.driver.Step(f, active)
	case cinematic.ModeSatelliteActive:
		f.LockPitch = true
		c.driver.Step(f, active)
	case cinematic.ModeOrbitActive:
		c.driver.Halt()
		if c.moveInput(f, active) {
			c.cancel("pan input")
			return
		}
		c.machine.Orbit().Steer(f.Input(binding.CmdRotate))
	default:
		// Targeting and fly-ins: the camera belongs to the machine.
		c.driver.Halt()
		if c.moveInput(f, active) {
			c.cancel("pan input")
		}
	}
}

func (c *Controller) moveInput(f navigation.Frame, active binding.Context) bool {
	x, y := binding.CmdPanX, binding.CmdPanY
	if active == binding.ContextSecondaryNav {
		x, y = binding.CmdMoveStrafe, binding.CmdMoveForward
	}
	return math.Abs(f.Input(x)) > 0 || math.Abs(f.Input(y)) > 0
}

func (c *Controller) cancel(reason string) {
	if c.machine.Mode() == cinematic.ModeIdle {
		return
	}
	c.logger.Debug("Cancelling camera mode", "reason", reason)
	c.stats.TrackCancel()
	c.machine.CancelAll()
}

// apply pushes profile-derived parameters into the dispatcher.
func (c *Controller) apply(p *profile.Profile) {
	c.applied = p
	c.dispatcher.SetTransition(dispatch.Transition{
		Animation:        p.Settings.Transition(),
		MaxDuration:      c.cfg.Geolocation.MaxDuration.Std(),
		GeolocateZoom:    c.geolocateZoom,
		GeolocateTimeout: c.geolocateTimeout,
	})
	logging.Trace(c.logger, "Profile applied", "id", p.ID, "name", p.Name)
}

func (c *Controller) publish(active binding.Context, connected bool, p *profile.Profile) {
	st := State{
		Frame:      c.frames,
		Context:    active,
		History:    c.contexts.History(),
		FlightMode: c.flightMode,
		Connected:  connected,
		Pose:       c.deps.Camera.Pose(),
		Camera:     c.machine.State(),
		Orbit:      c.machine.Orbit().State(),
		Navigation: c.driver.State(),
		Profile:    ProfileInfo{ID: p.ID, Name: p.Name},
	}
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// State returns the snapshot of the last frame.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Profile returns the active profile.
func (c *Controller) Profile() *profile.Profile {
	return c.profile.Load()
}

// clock is the machine's time source: the timestamp of the latest frame, so
// mode stamps and the expiry check in Tick share one timeline.
func (c *Controller) clock() time.Time {
	if c.frameNow.IsZero() {
		return c.deps.Now()
	}
	return c.frameNow
}

// ErrProfileContention is returned when UpdateProfile keeps losing races.
var ErrProfileContention = errors.New("profile changed concurrently")

const profileUpdateAttempts = 16

// UpdateProfile applies fn to the active profile and publishes the result
// only if no other writer swapped the profile in between; otherwise fn is
// re-run on the newer profile. fn must not have side effects.
func (c *Controller) UpdateProfile(fn func(*profile.Profile) (*profile.Profile, error)) (*profile.Profile, error) {
	for range profileUpdateAttempts {
		cur := c.profile.Load()
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return cur, nil
		}
		if c.profile.CompareAndSwap(cur, next) {
			c.announceProfile(next)
			return next, nil
		}
	}
	return nil, ErrProfileContention
}

// SetProfile publishes p; the next frame picks it up.
func (c *Controller) SetProfile(p *profile.Profile) {
	if p == nil {
		return
	}
	c.profile.Store(p)
	c.announceProfile(p)
}

func (c *Controller) announceProfile(p *profile.Profile) {
	logging.LogEvent(logging.Event{Type: "profile", Title: p.Name, Summary: p.ID})
	c.logger.Info("Profile swapped", "id", p.ID, "name", p.Name)
}

// SetGeolocation overrides the geolocation zoom and timeout. Call on the
// loop goroutine.
func (c *Controller) SetGeolocation(zoom float64, timeout time.Duration) {
	c.geolocateZoom, c.geolocateTimeout = zoom, timeout
	c.apply(c.profile.Load())
}

// Session returns the persistable session state.
func (c *Controller) Session() Session {
	mode := inputctx.FlightMap
	if c.droneActive.Load() {
		mode = inputctx.FlightDrone
	}
	return Session{HighPitch: c.highPitch.Load(), FlightMode: mode}
}

// Restore applies a saved session. Call before the loop starts.
func (c *Controller) Restore(s Session) {
	c.driver.SetHighPitch(s.HighPitch)
	c.highPitch.Store(s.HighPitch)
	if s.FlightMode == inputctx.FlightDrone {
		c.setFlightMode(inputctx.FlightDrone)
	}
}

// ExecuteKey runs a command by its namespaced key.
func (c *Controller) ExecuteKey(key string) {
	c.dispatcher.ExecuteKey(key)
}

// BeginTargeting starts target selection at a point picked on the map.
func (c *Controller) BeginTargeting(target orb.Point, anchor *camera.ScreenPoint) {
	if err := c.machine.BeginTargeting(target, anchor); err != nil {
		c.logger.Debug("Targeting refused", "error", err)
	}
}

// Dismiss leaves targeting without choosing a mode.
func (c *Controller) Dismiss() {
	if err := c.machine.Dismiss(); err != nil {
		c.logger.Debug("Dismiss refused", "error", err)
	}
}

// Mode returns the camera mode.
func (c *Controller) Mode() cinematic.Mode {
	return c.machine.Mode()
}

// Stats returns the shared tracker.
func (c *Controller) Stats() *tracker.Tracker {
	return c.stats
}

// Close detaches from the camera and stops any cinematic mode.
func (c *Controller) Close() {
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
	c.guard.Close()
	c.machine.Close()
}
