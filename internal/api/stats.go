package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"mapstick/pkg/tracker"
)

// StatsHandler serves controller usage counters and process diagnostics.
type StatsHandler struct {
	tracker *tracker.Tracker
	started time.Time

	mu         sync.Mutex
	maxMem     uint64
	lastFrames int64
	lastTime   time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	now := time.Now()
	return &StatsHandler{tracker: t, started: now, lastTime: now}
}

type Diagnostics struct {
	MemoryMB    uint64  `json:"memory_mb"`
	MemoryMaxMB uint64  `json:"memory_max_mb"`
	Goroutines  int     `json:"goroutines"`
	Uptime      string  `json:"uptime"`
	FrameRate   float64 `json:"frame_rate"` // frames/s since the previous request
}

type StatsResponse struct {
	Diagnostics Diagnostics `json:"diagnostics"`
	tracker.Snapshot
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	h.mu.Lock()
	diagnostics := h.gatherDiagnostics(snapshot.Frames)
	h.mu.Unlock()

	resp := StatsResponse{
		Diagnostics: diagnostics,
		Snapshot:    snapshot,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *StatsHandler) gatherDiagnostics(frames int64) Diagnostics {
	now := time.Now()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	if mem.Sys > h.maxMem {
		h.maxMem = mem.Sys
	}

	rate := 0.0
	if elapsed := now.Sub(h.lastTime).Seconds(); elapsed > 0 {
		delta := frames - h.lastFrames
		if delta < 0 {
			delta = 0
		}
		rate = float64(delta) / elapsed
	}
	h.lastFrames, h.lastTime = frames, now

	return Diagnostics{
		MemoryMB:    bToMb(mem.Sys),
		MemoryMaxMB: bToMb(h.maxMem),
		Goroutines:  runtime.NumGoroutine(),
		Uptime:      now.Sub(h.started).Truncate(time.Second).String(),
		FrameRate:   rate,
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
