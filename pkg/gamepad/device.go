// Package gamepad provides defensive access to generic game-controller state.
package gamepad

import (
	"sync"
)

// PressThreshold is the analog value above which a button without a pressed
// flag counts as pressed.
const PressThreshold = 0.5

// Button is a single button reading.
type Button struct {
	Pressed bool    `json:"pressed"`
	Value   float64 `json:"value"`
}

// Snapshot is the state of one device at one instant.
type Snapshot struct {
	Buttons []Button  `json:"buttons"`
	Axes    []float64 `json:"axes"`
}

// Pressed reports whether button i is down. Missing buttons are up.
func (s Snapshot) Pressed(i int) bool {
	if i < 0 || i >= len(s.Buttons) {
		return false
	}
	b := s.Buttons[i]
	return b.Pressed || b.Value > PressThreshold
}

// ButtonValue returns the analog value of button i in [0,1]. Digital buttons
// report 1 while pressed. Missing buttons read 0.
func (s Snapshot) ButtonValue(i int) float64 {
	if i < 0 || i >= len(s.Buttons) {
		return 0
	}
	b := s.Buttons[i]
	if b.Value > 0 {
		return clamp(b.Value, 0, 1)
	}
	if b.Pressed {
		return 1
	}
	return 0
}

// Axis returns axis i clamped to [-1,1]. Missing axes read 0.
func (s Snapshot) Axis(i int) float64 {
	if i < 0 || i >= len(s.Axes) {
		return 0
	}
	return clamp(s.Axes[i], -1, 1)
}

// Empty reports whether the snapshot carries no inputs at all.
func (s Snapshot) Empty() bool {
	return len(s.Buttons) == 0 && len(s.Axes) == 0
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Buttons: make([]Button, len(s.Buttons)),
		Axes:    make([]float64, len(s.Axes)),
	}
	copy(out.Buttons, s.Buttons)
	copy(out.Axes, s.Axes)
	return out
}

// Device is a source of controller state. Poll returns false when no device
// is connected; callers then treat every input as neutral.
type Device interface {
	Poll() (Snapshot, bool)
}

// Poll reads d defensively: a nil device or a disconnected one yields an
// empty snapshot.
func Poll(d Device) Snapshot {
	if d == nil {
		return Snapshot{}
	}
	s, ok := d.Poll()
	if !ok {
		return Snapshot{}
	}
	return s
}

// Hub multiplexes several device slots and reports the first connected one.
// Devices can be plugged and unplugged at any time.
type Hub struct {
	mu    sync.RWMutex
	slots []Device
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Connect places d in the first free slot and returns the slot index.
func (h *Hub) Connect(d Device) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.slots {
		if s == nil {
			h.slots[i] = d
			return i
		}
	}
	h.slots = append(h.slots, d)
	return len(h.slots) - 1
}

// Disconnect frees slot i. Unknown slots are ignored.
func (h *Hub) Disconnect(i int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i >= 0 && i < len(h.slots) {
		h.slots[i] = nil
	}
}

// Poll implements Device.
func (h *Hub) Poll() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, d := range h.slots {
		if d == nil {
			continue
		}
		if s, ok := d.Poll(); ok {
			return s, true
		}
	}
	return Snapshot{}, false
}

// Static is a device whose state is set directly. Used for tests and the
// mock provider.
type Static struct {
	mu        sync.RWMutex
	snap      Snapshot
	connected bool
}

// NewStatic returns a connected device with nb buttons and na axes at rest.
func NewStatic(nb, na int) *Static {
	return &Static{
		snap: Snapshot{
			Buttons: make([]Button, nb),
			Axes:    make([]float64, na),
		},
		connected: true,
	}
}

// Poll implements Device.
func (s *Static) Poll() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return Snapshot{}, false
	}
	return s.snap.Clone(), true
}

// Set replaces the whole snapshot.
func (s *Static) Set(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
}

// SetButton presses or releases button i, growing the button list if needed.
func (s *Static) SetButton(i int, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.snap.Buttons) <= i {
		s.snap.Buttons = append(s.snap.Buttons, Button{})
	}
	v := 0.0
	if pressed {
		v = 1
	}
	s.snap.Buttons[i] = Button{Pressed: pressed, Value: v}
}

// SetAxis sets axis i, growing the axis list if needed.
func (s *Static) SetAxis(i int, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.snap.Axes) <= i {
		s.snap.Axes = append(s.snap.Axes, 0)
	}
	s.snap.Axes[i] = v
}

// SetConnected simulates plugging or unplugging the device.
func (s *Static) SetConnected(c bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
