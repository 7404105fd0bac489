package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapstick/pkg/binding"
	"mapstick/pkg/camera"
	"mapstick/pkg/camera/mockcam"
	"mapstick/pkg/gamepad"
	"mapstick/pkg/tracker"
)

type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) CloseSettings()             { r.add("close") }
func (r *recorder) ToggleSettings()            { r.add("toggle") }
func (r *recorder) MenuNavigate(dir Direction) { r.add("nav:%s", dir) }
func (r *recorder) MenuSelect()                { r.add("select") }
func (r *recorder) MenuBack()                  { r.add("back") }
func (r *recorder) TriggerReport(at orb.Point) { r.add("report") }
func (r *recorder) PlaceMarker(at orb.Point)   { r.add("marker:%.1f,%.1f", at.Lon(), at.Lat()) }
func (r *recorder) TapZoom(in bool)            { r.add("zoom:%v", in) }
func (r *recorder) TogglePitchLimit()          { r.add("pitchlimit") }
func (r *recorder) ResetHeading()              { r.add("heading") }
func (r *recorder) ToggleFlightMode()          { r.add("flightmode") }
func (r *recorder) ExitDrone()                 { r.add("exitdrone") }
func (r *recorder) Orbit()                     { r.add("orbit") }
func (r *recorder) Satellite()                 { r.add("satellite") }
func (r *recorder) Cancel()                    { r.add("cancel") }

type fakeLocator struct {
	p   orb.Point
	err error
}

func (f fakeLocator) Locate(ctx context.Context) (orb.Point, error) {
	return f.p, f.err
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *recorder, *mockcam.Surface) {
	t.Helper()
	rec := &recorder{}
	cam := mockcam.New(mockcam.Config{Start: camera.Pose{Zoom: 5}})
	d := New(Env{
		Camera:       cam,
		UI:           rec,
		Integrations: rec,
		Navigator:    rec,
		Cinematic:    rec,
	}, nil, tracker.New(), nil)
	return d, rec, cam
}

func TestEdgeDetector_FiresOncePerPress(t *testing.T) {
	e := NewEdgeDetector()
	seq := []bool{false, true, true, true, false, true, true}
	want := []bool{false, true, false, false, false, true, false}
	for i, pressed := range seq {
		if got := e.PressedOnce(binding.CmdRecenter, pressed); got != want[i] {
			t.Errorf("frame %d: PressedOnce(%v) = %v, want %v", i, pressed, got, want[i])
		}
	}
}

func TestEdgeDetector_InstancesIndependent(t *testing.T) {
	a, b := NewEdgeDetector(), NewEdgeDetector()
	assert.True(t, a.PressedOnce(binding.CmdRecenter, true))
	assert.True(t, b.PressedOnce(binding.CmdRecenter, true))
}

func TestRepeater_Timing(t *testing.T) {
	base := time.Unix(0, 0)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

	tests := []struct {
		name  string
		held  []int // sample times while held, ms
		fires []int
	}{
		{"Immediate then delay", []int{0, 16, 100, 249, 250}, []int{0, 250}},
		{"Interval after delay", []int{0, 250, 300, 339, 340, 430}, []int{0, 250, 340, 430}},
		{"Released before delay", []int{0, 100, 200}, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRepeater(250*time.Millisecond, 90*time.Millisecond)
			var got []int
			for _, ms := range tt.held {
				if fire, _ := r.Update(binding.CmdMenuDown, true, at(ms)); fire {
					got = append(got, ms)
				}
			}
			assert.Equal(t, tt.fires, got)
		})
	}
}

func TestRepeater_ReleaseResets(t *testing.T) {
	r := NewRepeater(250*time.Millisecond, 90*time.Millisecond)
	now := time.Unix(0, 0)

	fire, repeat := r.Update(binding.CmdMenuUp, true, now)
	assert.True(t, fire)
	assert.False(t, repeat)

	fire, _ = r.Update(binding.CmdMenuUp, false, now.Add(100*time.Millisecond))
	assert.False(t, fire)
	assert.False(t, r.Held(binding.CmdMenuUp))

	fire, repeat = r.Update(binding.CmdMenuUp, true, now.Add(120*time.Millisecond))
	assert.True(t, fire, "re-press fires immediately")
	assert.False(t, repeat)
}

func TestDispatcher_SampleOrderAndContexts(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	tbl := binding.NewTable()
	tbl[binding.ContextGlobal][binding.CmdToggleSettings] = binding.Button(9)
	tbl[binding.ContextPrimaryNav][binding.CmdRecenter] = binding.Button(0)
	tbl[binding.ContextMenu][binding.CmdMenuSelect] = binding.Button(0)

	pad := gamepad.NewStatic(16, 4)
	pad.SetButton(0, true)
	pad.SetButton(9, true)
	snap, _ := pad.Poll()

	fires := d.Sample(tbl, snap, binding.ContextPrimaryNav, time.Unix(0, 0))
	require.Len(t, fires, 2)
	assert.Equal(t, binding.CmdToggleSettings, fires[0].Command, "global runs first")
	assert.Equal(t, binding.CmdRecenter, fires[1].Command)

	// Same buttons still held; the menu context becomes live but its
	// SELECT must not fire without a fresh press.
	fires = d.Sample(tbl, snap, binding.ContextMenu, time.Unix(0, 0).Add(16*time.Millisecond))
	assert.Empty(t, fires)
}

func TestDispatcher_SampleMenuRepeat(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	tbl := binding.NewTable()
	tbl[binding.ContextMenu][binding.CmdMenuDown] = binding.Button(13)

	pad := gamepad.NewStatic(16, 4)
	pad.SetButton(13, true)
	snap, _ := pad.Poll()

	base := time.Unix(0, 0)
	count := 0
	for ms := 0; ms <= 400; ms += 10 {
		for _, f := range d.Sample(tbl, snap, binding.ContextMenu, base.Add(time.Duration(ms)*time.Millisecond)) {
			assert.Equal(t, binding.CmdMenuDown, f.Command)
			count++
		}
	}
	// 0, 250, 340
	assert.Equal(t, 3, count)
}

func TestDispatcher_Execute(t *testing.T) {
	tests := []struct {
		cmd  binding.Command
		want []string
	}{
		{binding.CmdToggleSettings, []string{"toggle"}},
		{binding.CmdToggleFlightMode, []string{"flightmode"}},
		{binding.CmdReport, []string{"report"}},
		{binding.CmdZoomIn, []string{"zoom:true"}},
		{binding.CmdZoomOut, []string{"zoom:false"}},
		{binding.CmdTogglePitchLimit, []string{"pitchlimit"}},
		{binding.CmdOrbit, []string{"orbit"}},
		{binding.CmdSatellite, []string{"satellite"}},
		{binding.CmdCancelCinematic, []string{"cancel"}},
		{binding.CmdMenuUp, []string{"nav:up"}},
		{binding.CmdMenuRight, []string{"nav:right"}},
		{binding.CmdMenuSelect, []string{"select"}},
		{binding.CmdMenuBack, []string{"back"}},
		{binding.CmdMenuClose, []string{"close"}},
		{binding.CmdResetHeading, []string{"heading"}},
		{binding.CmdExitDrone, []string{"exitdrone"}},
		{binding.CmdPanX, nil},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Key(), func(t *testing.T) {
			d, rec, _ := newTestDispatcher(t)
			d.Execute(tt.cmd)
			assert.Equal(t, tt.want, rec.calls)
		})
	}
}

func TestDispatcher_Recenter(t *testing.T) {
	d, rec, cam := newTestDispatcher(t)
	cam.JumpTo(camera.Options{Bearing: camera.Float(120), Pitch: camera.Float(40)})
	d.SetTransition(Transition{Animation: camera.Animation{Duration: 0}})

	d.Execute(binding.CmdRecenter)
	assert.Equal(t, []string{"cancel"}, rec.calls)
	assert.Equal(t, 0.0, cam.Pose().Bearing)
	assert.Equal(t, 0.0, cam.Pose().Pitch)
}

func TestDispatcher_UnknownIgnored(t *testing.T) {
	stats := tracker.New()
	d := New(Env{}, nil, stats, nil)

	d.ExecuteKey("primary-nav.RECENTRE")
	d.ExecuteKey("nope")
	d.Execute(binding.Command(999))

	assert.Equal(t, int64(3), stats.Snapshot().UnknownCommands)
}

func TestDispatcher_Geolocate(t *testing.T) {
	fix := orb.Point{13.4, 52.5}

	tests := []struct {
		name     string
		locator  fakeLocator
		alive    bool
		wantFly  bool
		wantKind string
	}{
		{"Success", fakeLocator{p: fix}, true, true, ""},
		{"Permission denied", fakeLocator{err: fmt.Errorf("browser: %w", ErrPermissionDenied)}, true, false, "permission_denied"},
		{"Timeout", fakeLocator{err: ErrTimeout}, true, false, "timeout"},
		{"Unavailable", fakeLocator{err: ErrUnavailable}, true, false, "unavailable"},
		{"Invalid fix", fakeLocator{p: orb.Point{500, 500}}, true, false, "unavailable"},
		{"Camera detached", fakeLocator{p: fix}, false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			cam := mockcam.New(mockcam.Config{})
			stats := tracker.New()
			posted := make(chan func(), 1)
			d := New(Env{
				Camera:       cam,
				Integrations: rec,
				Geolocator:   tt.locator,
				Post:         func(fn func()) { posted <- fn },
				Alive:        func() bool { return tt.alive },
			}, nil, stats, nil)
			d.SetTransition(Transition{
				Animation:     camera.Animation{Duration: time.Second, Easing: camera.EaseInOutCubic},
				MaxDuration:   4 * time.Second,
				GeolocateZoom: 14,
			})

			d.Execute(binding.CmdGeolocate)
			assert.Empty(t, cam.Calls(), "nothing happens before the fix arrives")

			select {
			case fn := <-posted:
				fn()
			case <-time.After(time.Second):
				t.Fatal("geolocation completion was never posted")
			}

			flies := cam.CallsOf(mockcam.CallFlyTo)
			if tt.wantFly {
				require.Len(t, flies, 1)
				assert.Equal(t, fix, *flies[0].Options.Center)
				assert.Equal(t, 14.0, *flies[0].Options.Zoom)
				assert.Equal(t, 4*time.Second, flies[0].Animation.Duration, "long distance is capped")
				assert.Equal(t, []string{"marker:13.4,52.5"}, rec.calls)
			} else {
				assert.Empty(t, cam.Calls(), "failure must not touch the camera")
				assert.Empty(t, rec.calls)
			}
			if tt.wantKind != "" {
				assert.Equal(t, int64(1), stats.Snapshot().GeolocationFailures[tt.wantKind])
			}
		})
	}
}

func TestFlyDuration(t *testing.T) {
	base := time.Second
	assert.Equal(t, base, FlyDuration(base, 0, 0))
	assert.Equal(t, 2*base, FlyDuration(base, 0, 10000))
	assert.Equal(t, 3*time.Second, FlyDuration(base, 3*time.Second, 1e7))
	assert.Greater(t, FlyDuration(base, 0, 5000), base)
}
