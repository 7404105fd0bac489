package inputctx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"mapstick/pkg/binding"
)

func TestResolve_Priority(t *testing.T) {
	tests := []struct {
		name string
		ui   UIState
		mode FlightMode
		want binding.Context
	}{
		{"Nothing open", UIState{}, FlightMap, binding.ContextPrimaryNav},
		{"Drone", UIState{}, FlightDrone, binding.ContextSecondaryNav},
		{"Settings beats drone", UIState{SettingsOpen: true}, FlightDrone, binding.ContextMenu},
		{"Menu", UIState{MenuOpen: true}, FlightMap, binding.ContextMenu},
		{"Unknown mode", UIState{}, FlightMode("hover"), binding.ContextPrimaryNav},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.ui, tt.mode); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_HistorySkipsMenu(t *testing.T) {
	m := NewManager(nil)

	m.Update(UIState{MenuOpen: true}, FlightMap) // primary -> menu, push primary
	m.Update(UIState{}, FlightDrone)             // menu -> secondary, no push
	m.Update(UIState{}, FlightMap)               // secondary -> primary, push secondary

	assert.Equal(t, []binding.Context{binding.ContextPrimaryNav, binding.ContextSecondaryNav}, m.History())
	assert.Equal(t, binding.ContextPrimaryNav, m.Current())
}

func TestManager_HistoryBounded(t *testing.T) {
	m := NewManager(nil)
	for i := 0; i < 10; i++ {
		m.Update(UIState{}, FlightDrone)
		m.Update(UIState{}, FlightMap)
	}
	assert.Len(t, m.History(), MaxHistory)
}

func TestManager_NoChangeNoNotify(t *testing.T) {
	m := NewManager(nil)
	calls := 0
	m.Subscribe(func(prev, next binding.Context) error {
		calls++
		return nil
	})
	m.Update(UIState{}, FlightMap)
	m.Update(UIState{}, FlightMap)
	assert.Zero(t, calls)
	assert.Empty(t, m.History())
}

func TestManager_ListenerFailuresIsolated(t *testing.T) {
	m := NewManager(nil)
	var seen []binding.Context

	m.Subscribe(func(prev, next binding.Context) error { return errors.New("boom") })
	m.Subscribe(func(prev, next binding.Context) error { panic("kaboom") })
	unsub := m.Subscribe(func(prev, next binding.Context) error {
		seen = append(seen, next)
		return nil
	})

	got := m.Update(UIState{SettingsOpen: true}, FlightMap)
	assert.Equal(t, binding.ContextMenu, got)
	assert.Equal(t, []binding.Context{binding.ContextMenu}, seen)

	unsub()
	m.Update(UIState{}, FlightMap)
	assert.Len(t, seen, 1)
}
