package logging

import (
	"strings"
	"sync"
)

// LogCaptureWriter remembers the last non-empty line written to it. It is
// safe for concurrent use.
type LogCaptureWriter struct {
	mu   sync.RWMutex
	last string
}

// GlobalLogCapture receives server log records at INFO and above.
var GlobalLogCapture = &LogCaptureWriter{}

// GlobalEventCapture receives every controller event line.
var GlobalEventCapture = &LogCaptureWriter{}

func (w *LogCaptureWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\r\n")
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	if text != "" {
		w.mu.Lock()
		w.last = text
		w.mu.Unlock()
	}
	return len(p), nil
}

// GetLastLine returns the most recent line without its line break.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}
