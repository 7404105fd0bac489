package dispatch

import (
	"time"

	"mapstick/pkg/binding"
)

// Default key-repeat timing for menu navigation.
const (
	DefaultRepeatDelay    = 250 * time.Millisecond
	DefaultRepeatInterval = 90 * time.Millisecond
)

// EdgeDetector reports false-to-true transitions per command.
// State is owned by the instance, so independent dispatchers never share it.
type EdgeDetector struct {
	last map[binding.Command]bool
}

// NewEdgeDetector creates an empty detector.
func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{last: make(map[binding.Command]bool)}
}

// PressedOnce records the pressed state and reports whether this call is a
// fresh press.
func (e *EdgeDetector) PressedOnce(cmd binding.Command, pressed bool) bool {
	was := e.last[cmd]
	e.last[cmd] = pressed
	return pressed && !was
}

// Reset forgets all recorded states.
func (e *EdgeDetector) Reset() {
	clear(e.last)
}

type repeatState struct {
	downSince time.Time
	lastFire  time.Time
	repeating bool
}

// Repeater implements key repeat: one fire on press, another after Delay, then
// one every Interval while held. Releasing clears the key's state.
type Repeater struct {
	Delay    time.Duration
	Interval time.Duration

	keys map[binding.Command]*repeatState
}

// NewRepeater creates a repeater. Non-positive timings fall back to defaults.
func NewRepeater(delay, interval time.Duration) *Repeater {
	if delay <= 0 {
		delay = DefaultRepeatDelay
	}
	if interval <= 0 {
		interval = DefaultRepeatInterval
	}
	return &Repeater{
		Delay:    delay,
		Interval: interval,
		keys:     make(map[binding.Command]*repeatState),
	}
}

// Update feeds one sample. fire reports whether the command should run now;
// repeat is true for fires after the initial press.
func (r *Repeater) Update(cmd binding.Command, pressed bool, now time.Time) (fire, repeat bool) {
	st, held := r.keys[cmd]
	if !pressed {
		delete(r.keys, cmd)
		return false, false
	}
	if !held {
		r.keys[cmd] = &repeatState{downSince: now, lastFire: now}
		return true, false
	}
	if !st.repeating {
		if now.Sub(st.downSince) < r.Delay {
			return false, false
		}
		st.repeating = true
		st.lastFire = now
		return true, true
	}
	if now.Sub(st.lastFire) < r.Interval {
		return false, false
	}
	st.lastFire = now
	return true, true
}

// Held reports whether cmd is currently tracked as held down.
func (r *Repeater) Held(cmd binding.Command) bool {
	_, ok := r.keys[cmd]
	return ok
}

// Release clears the state of cmd.
func (r *Repeater) Release(cmd binding.Command) {
	delete(r.keys, cmd)
}
