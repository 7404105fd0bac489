package mockcam

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"mapstick/pkg/camera"
)

func TestSurface_AnimationLifecycle(t *testing.T) {
	s := New(Config{Start: camera.Pose{Center: orb.Point{10, 50}, Zoom: 5}})

	var ends []camera.MoveEnd
	unsub := s.OnMoveEnd(func(e camera.MoveEnd) { ends = append(ends, e) })

	id := s.FlyTo(camera.Options{Zoom: camera.Float(15)}, camera.Animation{Duration: time.Second, Easing: camera.EaseInOutCubic})
	assert.True(t, s.Animating())
	assert.Empty(t, ends)

	s.Advance(500 * time.Millisecond)
	assert.InDelta(t, 10, s.Pose().Zoom, 1e-9, "cubic ease is at its midpoint halfway")

	s.Advance(500 * time.Millisecond)
	assert.False(t, s.Animating())
	assert.Equal(t, 15.0, s.Pose().Zoom)
	assert.Equal(t, []camera.MoveEnd{{Animation: id}}, ends)

	unsub()
	s.EaseTo(camera.Options{Zoom: camera.Float(3)}, camera.Animation{})
	assert.Len(t, ends, 1, "unsubscribed listener is not called")
	assert.Equal(t, 3.0, s.Pose().Zoom, "zero duration applies instantly")
}

func TestSurface_StopReportsMoveEnd(t *testing.T) {
	s := New(Config{})
	var got camera.AnimationID
	s.OnMoveEnd(func(e camera.MoveEnd) { got = e.Animation })

	id := s.EaseTo(camera.Options{Bearing: camera.Float(90)}, camera.Animation{Duration: time.Second})
	s.Stop()
	assert.Equal(t, id, got)
	assert.False(t, s.Animating())
	assert.Equal(t, 0.0, s.Pose().Bearing, "stopped animation leaves the pose where it was")
}

func TestSurface_PanBy(t *testing.T) {
	s := New(Config{Start: camera.Pose{Center: orb.Point{0, 0}, Zoom: 10}})
	s.PanBy(100, 0)
	assert.Greater(t, s.Pose().Center.Lon(), 0.0)
	assert.InDelta(t, 0, s.Pose().Center.Lat(), 1e-9)

	s.PanBy(0, -100)
	assert.Greater(t, s.Pose().Center.Lat(), 0.0, "negative screen y moves north")
	assert.Len(t, s.CallsOf(CallPanBy), 2)
}

func TestSurface_JumpToNormalizes(t *testing.T) {
	s := New(Config{})
	s.JumpTo(camera.Options{Bearing: camera.Float(-30), Zoom: camera.Float(40)})
	assert.Equal(t, 330.0, s.Pose().Bearing)
	assert.Equal(t, camera.MaxZoom, s.Pose().Zoom)
}

func TestSurface_GestureSignal(t *testing.T) {
	s := New(Config{})
	var got []camera.Gesture
	s.OnGesture(func(g camera.Gesture) { got = append(got, g) })
	s.OnGesture(func(g camera.Gesture) { panic("listener failure") })
	s.OnGesture(func(g camera.Gesture) { got = append(got, g) })

	s.Gesture(camera.GestureDragStart)
	assert.Equal(t, []camera.Gesture{camera.GestureDragStart, camera.GestureDragStart}, got, "a panicking listener does not block the others")
}
