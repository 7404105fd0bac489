package camera

import (
	"log/slog"
	"sort"
	"sync"
)

// Signals fans gesture and move-end events out to subscribers. Surface
// implementations embed it. A panicking listener is logged and skipped.
type Signals struct {
	mu       sync.Mutex
	nextID   int
	gestures map[int]func(Gesture)
	moveEnds map[int]func(MoveEnd)
}

// OnGesture implements Surface.
func (s *Signals) OnGesture(fn func(Gesture)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gestures == nil {
		s.gestures = make(map[int]func(Gesture))
	}
	id := s.nextID
	s.nextID++
	s.gestures[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.gestures, id)
	}
}

// OnMoveEnd implements Surface.
func (s *Signals) OnMoveEnd(fn func(MoveEnd)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moveEnds == nil {
		s.moveEnds = make(map[int]func(MoveEnd))
	}
	id := s.nextID
	s.nextID++
	s.moveEnds[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.moveEnds, id)
	}
}

// EmitGesture calls every gesture listener in subscription order.
func (s *Signals) EmitGesture(g Gesture) {
	s.mu.Lock()
	fns := ordered(s.gestures)
	s.mu.Unlock()
	for _, fn := range fns {
		safeCall("gesture", func() { fn(g) })
	}
}

// EmitMoveEnd calls every move-end listener in subscription order.
func (s *Signals) EmitMoveEnd(e MoveEnd) {
	s.mu.Lock()
	fns := ordered(s.moveEnds)
	s.mu.Unlock()
	for _, fn := range fns {
		safeCall("moveend", func() { fn(e) })
	}
}

func ordered[T any](m map[int]T) []T {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func safeCall(signal string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Camera signal listener panicked", "signal", signal, "panic", r)
		}
	}()
	fn()
}
