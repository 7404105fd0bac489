package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is a user-visible controller event: a camera mode change, a
// profile swap, a bridge connect.
type Event struct {
	Timestamp time.Time
	Type      string
	Title     string
	Summary   string
}

// String formats the event as "[2006-01-02 15:04:05] [type] Title - Summary".
func (e Event) String() string {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] %s", ts.Format(time.DateTime), e.Type, e.Title)
	if e.Summary != "" {
		line += " - " + e.Summary
	}
	return line
}

var events struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// SetEventLogPath points the event log at path, closing the previous file.
// An empty path disables the file; events still reach GlobalEventCapture.
func SetEventLogPath(path string) {
	events.mu.Lock()
	defer events.mu.Unlock()
	if events.file != nil {
		_ = events.file.Close()
		events.file = nil
	}
	events.path = path
}

// LogEvent appends an event to the event log and the event capture.
func LogEvent(event Event) {
	line := event.String()
	_, _ = GlobalEventCapture.Write([]byte(line))

	events.mu.Lock()
	defer events.mu.Unlock()
	if events.path == "" {
		return
	}
	if events.file == nil {
		if err := os.MkdirAll(filepath.Dir(events.path), 0o755); err != nil {
			slog.Error("Failed to create event log directory", "error", err)
			return
		}
		f, err := os.OpenFile(events.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			slog.Error("Failed to open event log", "error", err)
			return
		}
		events.file = f
	}
	if _, err := events.file.WriteString(line + "\n"); err != nil {
		slog.Error("Failed to write event log", "error", err)
	}
}
