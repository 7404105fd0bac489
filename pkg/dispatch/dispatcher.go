// Package dispatch turns sampled button state into discrete command
// invocations and executes them against the camera and host UI.
package dispatch

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/paulmach/orb"

	"mapstick/pkg/binding"
	"mapstick/pkg/camera"
	"mapstick/pkg/gamepad"
	"mapstick/pkg/geo"
	"mapstick/pkg/tracker"
)

// Direction is a menu navigation direction.
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// UI is the host settings/menu surface.
type UI interface {
	CloseSettings()
	ToggleSettings()
	MenuNavigate(dir Direction)
	MenuSelect()
	MenuBack()
}

// Integrations are side workflows outside the camera.
type Integrations interface {
	TriggerReport(at orb.Point)
	PlaceMarker(at orb.Point)
}

// Geolocator resolves the device position. Implementations return one of the
// package's sentinel errors (possibly wrapped) on failure.
type Geolocator interface {
	Locate(ctx context.Context) (orb.Point, error)
}

// Navigator receives the one-shot commands that alter navigation state.
type Navigator interface {
	TapZoom(in bool)
	TogglePitchLimit()
	ResetHeading()
	ToggleFlightMode()
	ExitDrone()
}

// Cinematic receives commands for the camera mode state machine.
type Cinematic interface {
	Orbit()
	Satellite()
	Cancel()
}

// Env is everything a command can act on. Nil collaborators turn their
// commands into logged no-ops.
type Env struct {
	Camera       camera.Surface
	UI           UI
	Integrations Integrations
	Geolocator   Geolocator
	Navigator    Navigator
	Cinematic    Cinematic

	// Post schedules fn on the frame loop goroutine. Nil runs fn inline.
	Post func(fn func())
	// Alive reports whether the camera surface is still attached.
	Alive func() bool
}

// Transition holds the animation parameters of discrete camera moves.
type Transition struct {
	Animation        camera.Animation
	MaxDuration      time.Duration
	GeolocateZoom    float64
	GeolocateTimeout time.Duration
}

// Fire is one command invocation produced by Sample.
type Fire struct {
	Command binding.Command
	Repeat  bool
}

// Dispatcher owns the per-command edge and repeat state.
type Dispatcher struct {
	env        Env
	edges      *EdgeDetector
	repeat     *Repeater
	transition Transition
	stats      *tracker.Tracker
	logger     *slog.Logger
}

// New creates a dispatcher.
func New(env Env, repeat *Repeater, stats *tracker.Tracker, logger *slog.Logger) *Dispatcher {
	if repeat == nil {
		repeat = NewRepeater(0, 0)
	}
	if stats == nil {
		stats = tracker.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		env:    env,
		edges:  NewEdgeDetector(),
		repeat: repeat,
		stats:  stats,
		logger: logger,
	}
}

// SetTransition replaces the transition parameters. Called between frames.
func (d *Dispatcher) SetTransition(t Transition) {
	d.transition = t
}

// Sample reads every button command once, updating its edge and repeat state,
// and returns the commands to run this frame: global first, then active.
// Commands outside the live contexts still update their edge state so a held
// button never fires when its context becomes live.
func (d *Dispatcher) Sample(table binding.Table, snap gamepad.Snapshot, active binding.Context, now time.Time) []Fire {
	var global, local []Fire
	for _, cmd := range binding.AllCommands() {
		if cmd.Kind() != binding.KindButton {
			continue
		}
		b, bound := table.Get(cmd)
		pressed := bound && b.Pressed(snap)
		edge := d.edges.PressedOnce(cmd, pressed)

		ctx := cmd.Context()
		live := ctx == binding.ContextGlobal || ctx == active
		if !live {
			d.repeat.Release(cmd)
			continue
		}

		var f Fire
		var fire bool
		if cmd.Repeats() {
			if !pressed || edge || d.repeat.Held(cmd) {
				fire, f.Repeat = d.repeat.Update(cmd, pressed, now)
			}
		} else {
			fire = edge
		}
		if !fire {
			continue
		}
		f.Command = cmd
		if ctx == binding.ContextGlobal {
			global = append(global, f)
		} else {
			local = append(local, f)
		}
	}
	return append(global, local...)
}

// Run executes fires in order.
func (d *Dispatcher) Run(fires []Fire) {
	for _, f := range fires {
		if f.Repeat {
			d.stats.TrackRepeat(f.Command.Key())
		}
		d.Execute(f.Command)
	}
}

// ExecuteKey resolves a namespaced command key and executes it. Unknown keys
// are logged and ignored.
func (d *Dispatcher) ExecuteKey(key string) {
	cmd, ok := binding.ParseCommand(key)
	if !ok {
		d.unknown(key)
		return
	}
	d.Execute(cmd)
}

func (d *Dispatcher) unknown(key string) {
	d.stats.TrackUnknown()
	if s, ok := binding.Suggest(key); ok {
		d.logger.Warn("Ignoring unknown command", "key", key, "did_you_mean", s)
		return
	}
	d.logger.Warn("Ignoring unknown command", "key", key)
}

// Execute runs one command synchronously. Geolocation completes later on the
// loop goroutine via Env.Post.
func (d *Dispatcher) Execute(cmd binding.Command) {
	if !cmd.Valid() {
		d.unknown(cmd.String())
		return
	}
	d.stats.TrackFired(cmd.Key())
	d.logger.Debug("Command", "key", cmd.Key())

	switch cmd {
	case binding.CmdToggleSettings:
		if d.env.UI != nil {
			d.env.UI.ToggleSettings()
		}
	case binding.CmdToggleFlightMode:
		if d.env.Navigator != nil {
			d.env.Navigator.ToggleFlightMode()
		}
	case binding.CmdReport:
		if d.env.Integrations != nil && d.env.Camera != nil {
			d.env.Integrations.TriggerReport(d.env.Camera.Pose().Center)
		}

	case binding.CmdZoomIn, binding.CmdZoomOut:
		if d.env.Navigator != nil {
			d.env.Navigator.TapZoom(cmd == binding.CmdZoomIn)
		}
	case binding.CmdRecenter:
		d.recenter()
	case binding.CmdGeolocate:
		d.geolocate()
	case binding.CmdTogglePitchLimit:
		if d.env.Navigator != nil {
			d.env.Navigator.TogglePitchLimit()
		}
	case binding.CmdOrbit:
		if d.env.Cinematic != nil {
			d.env.Cinematic.Orbit()
		}
	case binding.CmdSatellite:
		if d.env.Cinematic != nil {
			d.env.Cinematic.Satellite()
		}
	case binding.CmdCancelCinematic:
		if d.env.Cinematic != nil {
			d.stats.TrackCancel()
			d.env.Cinematic.Cancel()
		}

	case binding.CmdMenuUp:
		d.navigate(DirUp)
	case binding.CmdMenuDown:
		d.navigate(DirDown)
	case binding.CmdMenuLeft:
		d.navigate(DirLeft)
	case binding.CmdMenuRight:
		d.navigate(DirRight)
	case binding.CmdMenuSelect:
		if d.env.UI != nil {
			d.env.UI.MenuSelect()
		}
	case binding.CmdMenuBack:
		if d.env.UI != nil {
			d.env.UI.MenuBack()
		}
	case binding.CmdMenuClose:
		if d.env.UI != nil {
			d.env.UI.CloseSettings()
		}

	case binding.CmdResetHeading:
		if d.env.Navigator != nil {
			d.env.Navigator.ResetHeading()
		}
	case binding.CmdExitDrone:
		if d.env.Navigator != nil {
			d.env.Navigator.ExitDrone()
		}

	case binding.CmdPanX, binding.CmdPanY, binding.CmdRotate, binding.CmdPitch,
		binding.CmdMoveForward, binding.CmdMoveStrafe, binding.CmdLookYaw, binding.CmdLookPitch, binding.CmdAscend, binding.CmdDescend:
		// Analog commands are sampled by the navigation driver.
		d.logger.Debug("Ignoring analog command in dispatcher", "key", cmd.Key())

	default:
		d.unknown(cmd.Key())
	}
}

func (d *Dispatcher) navigate(dir Direction) {
	if d.env.UI != nil {
		d.env.UI.MenuNavigate(dir)
	}
}

func (d *Dispatcher) recenter() {
	if d.env.Camera == nil {
		return
	}
	if d.env.Cinematic != nil {
		d.env.Cinematic.Cancel()
	}
	d.env.Camera.EaseTo(camera.Options{
		Bearing: camera.Float(0),
		Pitch:   camera.Float(0),
	}, d.transition.Animation)
}

func (d *Dispatcher) geolocate() {
	key := binding.CmdGeolocate.Key()
	if d.env.Geolocator == nil || d.env.Camera == nil {
		d.geolocateFailed(key, ErrUnavailable)
		return
	}
	tr := d.transition
	timeout := tr.GeolocateTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	locator := d.env.Geolocator

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p, err := locator.Locate(ctx)
		d.post(func() {
			if err == nil && !geo.Valid(p) {
				err = ErrUnavailable
			}
			if err != nil {
				d.geolocateFailed(key, err)
				return
			}
			d.flyToFix(p, tr)
		})
	}()
}

func (d *Dispatcher) geolocateFailed(key string, err error) {
	kind := FailureKind(err)
	d.stats.TrackFailure(key)
	d.stats.TrackGeolocationFailure(kind)
	d.logger.Warn("Geolocation failed", "kind", kind, "error", err)
}

// flyToFix runs on the loop goroutine. The surface may have gone away while
// the lookup was in flight.
func (d *Dispatcher) flyToFix(p orb.Point, tr Transition) {
	if d.env.Alive != nil && !d.env.Alive() {
		d.logger.Debug("Dropping geolocation fix, camera detached")
		return
	}
	// Cancel is camera-silent in idle; a running cinematic mode is stopped
	// before the fly-to replaces it.
	if d.env.Cinematic != nil {
		d.env.Cinematic.Cancel()
	}
	anim := tr.Animation
	anim.Duration = FlyDuration(tr.Animation.Duration, tr.MaxDuration, geo.Distance(d.env.Camera.Pose().Center, p))
	opts := camera.Options{Center: camera.Point(p)}
	if tr.GeolocateZoom > 0 {
		opts.Zoom = camera.Float(tr.GeolocateZoom)
	}
	d.env.Camera.FlyTo(opts, anim)
	if d.env.Integrations != nil {
		d.env.Integrations.PlaceMarker(p)
	}
	d.logger.Info("Flying to device location", "lon", p.Lon(), "lat", p.Lat(), "duration", anim.Duration)
}

func (d *Dispatcher) post(fn func()) {
	if d.env.Post == nil {
		fn()
		return
	}
	d.env.Post(fn)
}

// FlyDuration grows base logarithmically with the distance in meters, capped
// at limit (ignored when not positive).
func FlyDuration(base, limit time.Duration, meters float64) time.Duration {
	if meters < 0 || math.IsNaN(meters) {
		meters = 0
	}
	d := time.Duration(float64(base) * (1 + math.Log2(1+meters/10000)))
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
