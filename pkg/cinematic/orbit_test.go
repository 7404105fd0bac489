package cinematic

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"mapstick/pkg/camera"
	"mapstick/pkg/camera/mockcam"
)

func TestOrbit_AdvancesBearing(t *testing.T) {
	cam := mockcam.New(mockcam.Config{})
	o := NewOrbit(cam, OrbitConfig{DefaultSpeed: 10, MaxSpeed: 30, Smoothing: 1})
	o.Start(orb.Point{1, 2}, 15, 45, 355)

	o.Step(1)
	p := cam.Pose()
	assert.InDelta(t, 5, p.Bearing, 1e-9, "bearing wraps modulo 360")
	assert.Equal(t, 15.0, p.Zoom)
	assert.Equal(t, 45.0, p.Pitch)
	assert.Equal(t, orb.Point{1, 2}, p.Center)
}

func TestOrbit_SpeedClamped(t *testing.T) {
	cam := mockcam.New(mockcam.Config{})
	o := NewOrbit(cam, OrbitConfig{DefaultSpeed: 10, MaxSpeed: 30, Smoothing: 1})
	o.Start(orb.Point{}, 10, 0, 0)

	o.SetTargetSpeed(500)
	o.Step(0.1)
	assert.Equal(t, 30.0, o.State().Speed)

	o.Steer(-1)
	o.Step(0.1)
	assert.Equal(t, -30.0, o.State().Speed)

	o.Steer(0)
	o.Step(0.1)
	assert.Equal(t, 10.0, o.State().Speed, "centered stick returns to the default speed")
}

func TestOrbit_SmoothsZoom(t *testing.T) {
	cam := mockcam.New(mockcam.Config{})
	o := NewOrbit(cam, OrbitConfig{DefaultSpeed: 0, MaxSpeed: 30, Smoothing: 0.5})
	o.Start(orb.Point{}, 10, 0, 0)
	o.NudgeZoom(2)

	o.Step(1.0 / 60)
	assert.InDelta(t, 11, o.State().Zoom, 1e-9)
	assert.Equal(t, 12.0, o.State().TargetZoom)
}

func TestOrbit_StopLeavesCamera(t *testing.T) {
	cam := mockcam.New(mockcam.Config{Start: camera.Pose{Zoom: 3}})
	o := NewOrbit(cam, DefaultOrbitConfig())
	o.Start(orb.Point{}, 10, 0, 0)
	o.Stop()
	o.Step(0.1)

	assert.Empty(t, cam.Calls())
	assert.Equal(t, 3.0, cam.Pose().Zoom)
	assert.False(t, o.Running())
}
