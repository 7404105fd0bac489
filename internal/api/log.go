package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"mapstick/pkg/logging"
)

// maxParamLen drops ids and error strings from the status line.
const maxParamLen = 20

// key=value or key="quoted value"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// handleLatestLog returns the last captured log line and controller event.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Log   string `json:"log"`
		Event string `json:"event"`
	}{
		Log:   formatLogLine(logging.GlobalLogCapture.GetLastLine()),
		Event: strings.TrimSpace(logging.GlobalEventCapture.GetLastLine()),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Debug("Failed to write log response", "error", err)
	}
}

type logLine struct {
	clock  string
	level  string
	msg    string
	params []string
}

func (l logLine) String() string {
	var b strings.Builder
	if l.clock != "" {
		b.WriteString(l.clock)
		b.WriteByte(' ')
	}
	if l.level != "" && l.level != slog.LevelInfo.String() {
		b.WriteString(l.level)
		b.WriteByte(' ')
	}
	b.WriteString(l.msg)
	if len(l.params) > 0 {
		slices.Sort(l.params)
		b.WriteString(" (")
		b.WriteString(strings.Join(l.params, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

// formatLogLine condenses a slog text record for the status bar:
// "HH:MM:SS [LEVEL ]msg (k=v, ...)". INFO is implied; short params are
// kept, sorted. Lines without a msg field are returned as-is.
func formatLogLine(raw string) string {
	var line logLine
	for _, m := range logRegex.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				line.clock = t.Format(time.TimeOnly)
			}
		case "level":
			line.level = val
		case "msg":
			line.msg = val
		default:
			if len(val) <= maxParamLen {
				line.params = append(line.params, key+"="+val)
			}
		}
	}
	if line.msg == "" {
		return raw
	}
	return line.String()
}
