package cinematic

import (
	"log/slog"

	"mapstick/pkg/camera"
)

// Guard cancels any cinematic mode as soon as the user touches the camera.
type Guard struct {
	m        *Machine
	logger   *slog.Logger
	onCancel func(camera.Gesture)
	unsub    func()
}

// NewGuard subscribes to cam's gesture signal. onCancel, if set, is called
// after each cancellation.
func NewGuard(cam camera.Surface, m *Machine, logger *slog.Logger, onCancel func(camera.Gesture)) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{m: m, logger: logger, onCancel: onCancel}
	g.unsub = cam.OnGesture(g.Handle)
	return g
}

// Handle applies one gesture. Touch-start during targeting is left to the
// targeting overlay's own dismiss handling.
func (g *Guard) Handle(gesture camera.Gesture) {
	mode := g.m.Mode()
	if mode == ModeIdle {
		return
	}
	if gesture == camera.GestureTouchStart && mode == ModeTargeting {
		return
	}
	g.logger.Debug("Gesture cancels camera mode", "gesture", gesture, "mode", mode)
	g.m.CancelAll()
	if g.onCancel != nil {
		g.onCancel(gesture)
	}
}

// Close unsubscribes from the camera.
func (g *Guard) Close() {
	if g.unsub != nil {
		g.unsub()
		g.unsub = nil
	}
}
