// Package inputctx decides which binding context is authoritative each frame.
package inputctx

import (
	"fmt"
	"log/slog"
	"sync"

	"mapstick/pkg/binding"
)

// MaxHistory bounds the context history.
const MaxHistory = 5

// FlightMode selects how analog input is interpreted.
type FlightMode string

const (
	FlightMap   FlightMode = "map"
	FlightDrone FlightMode = "drone"
)

// Valid reports whether m is a known flight mode.
func (m FlightMode) Valid() bool {
	return m == FlightMap || m == FlightDrone
}

// UIState is the part of the host UI that affects input routing.
type UIState struct {
	SettingsOpen bool `json:"settingsOpen"`
	MenuOpen     bool `json:"menuOpen"`
}

// Overlay reports whether any menu-like surface is open.
func (u UIState) Overlay() bool {
	return u.SettingsOpen || u.MenuOpen
}

// UISource reports the current UI state.
type UISource interface {
	UIState() UIState
}

// Listener is notified synchronously after every context change.
type Listener func(prev, next binding.Context) error

// Manager owns the active context and its history. It is driven from the frame
// loop goroutine; the mutex only protects readers on other goroutines.
type Manager struct {
	mu        sync.RWMutex
	current   binding.Context
	history   []binding.Context
	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
}

// NewManager creates a manager starting in primary-nav.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		current:   binding.ContextPrimaryNav,
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// Resolve applies the routing priority without changing any state.
func Resolve(ui UIState, mode FlightMode) binding.Context {
	switch {
	case ui.Overlay():
		return binding.ContextMenu
	case mode == FlightDrone:
		return binding.ContextSecondaryNav
	default:
		return binding.ContextPrimaryNav
	}
}

// Update recomputes the active context. A change pushes the previous context
// onto the history, unless the previous context was the menu, and notifies
// listeners. The global context is always active in addition to the result.
func (m *Manager) Update(ui UIState, mode FlightMode) binding.Context {
	next := Resolve(ui, mode)

	m.mu.Lock()
	prev := m.current
	if next == prev {
		m.mu.Unlock()
		return next
	}
	if prev != binding.ContextMenu {
		m.history = append(m.history, prev)
		if len(m.history) > MaxHistory {
			m.history = m.history[len(m.history)-MaxHistory:]
		}
	}
	m.current = next
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	m.logger.Debug("Input context changed", "from", prev, "to", next)
	for _, l := range listeners {
		m.notify(l, prev, next)
	}
	return next
}

// Current returns the active context.
func (m *Manager) Current() binding.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// History returns the previous contexts, oldest first.
func (m *Manager) History() []binding.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]binding.Context, len(m.history))
	copy(out, m.history)
	return out
}


// Subscribe registers l and returns its unsubscribe func.
func (m *Manager) Subscribe(l Listener) func() {
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

func (m *Manager) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if l, ok := m.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (m *Manager) notify(l Listener, prev, next binding.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Context listener panicked", "from", prev, "to", next, "panic", fmt.Sprint(r))
		}
	}()
	if err := l(prev, next); err != nil {
		m.logger.Error("Context listener failed", "from", prev, "to", next, "error", err)
	}
}
