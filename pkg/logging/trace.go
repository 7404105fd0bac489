package logging

import (
	"context"
	"log/slog"
)

// EnableTrace turns on per-frame diagnostics (loop.trace in the config).
var EnableTrace = false

// Trace logs at DEBUG when EnableTrace is set. Callers on the frame path use
// it so a disabled trace costs one branch.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if !EnableTrace || logger == nil {
		return
	}
	logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}
