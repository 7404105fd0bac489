package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks controller usage statistics per command key.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*CommandStats

	unknown       int64
	cancellations int64
	frames        int64
	geoFailures   sync.Map // failure kind -> *int64
}

// CommandStats holds metrics for a single command.
// Fields are accessed atomically.
type CommandStats struct {
	Fired    int64 `json:"fired"`
	Repeated int64 `json:"repeated"`
	Failed   int64 `json:"failed"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Commands            map[string]CommandStats `json:"commands"`
	UnknownCommands     int64                   `json:"unknown_commands"`
	Cancellations       int64                   `json:"cancellations"`
	Frames              int64                   `json:"frames"`
	GeolocationFailures map[string]int64        `json:"geolocation_failures"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*CommandStats),
	}
}

// getStats returns the stats object for a command, creating it if needed.
func (t *Tracker) getStats(key string) *CommandStats {
	t.mu.RLock()
	s, ok := t.stats[key]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[key]; ok {
		return s
	}
	s = &CommandStats{}
	t.stats[key] = s
	return s
}

// TrackFired increments the fire counter of a command.
func (t *Tracker) TrackFired(key string) {
	atomic.AddInt64(&t.getStats(key).Fired, 1)
}

// TrackRepeat counts a key-repeat fire (in addition to TrackFired).
func (t *Tracker) TrackRepeat(key string) {
	atomic.AddInt64(&t.getStats(key).Repeated, 1)
}

func (t *Tracker) TrackFailure(key string) {
	atomic.AddInt64(&t.getStats(key).Failed, 1)
}

func (t *Tracker) TrackUnknown() {
	atomic.AddInt64(&t.unknown, 1)
}

func (t *Tracker) TrackCancel() {
	atomic.AddInt64(&t.cancellations, 1)
}

func (t *Tracker) TrackFrame() {
	atomic.AddInt64(&t.frames, 1)
}

// TrackGeolocationFailure counts a failed geolocation by kind.
func (t *Tracker) TrackGeolocationFailure(kind string) {
	v, _ := t.geoFailures.LoadOrStore(kind, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	cmds := make(map[string]CommandStats, len(t.stats))
	for k, v := range t.stats {
		cmds[k] = CommandStats{
			Fired:    atomic.LoadInt64(&v.Fired),
			Repeated: atomic.LoadInt64(&v.Repeated),
			Failed:   atomic.LoadInt64(&v.Failed),
		}
	}
	t.mu.RUnlock()

	geo := make(map[string]int64)
	t.geoFailures.Range(func(k, v any) bool {
		geo[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})

	return Snapshot{
		Commands:            cmds,
		UnknownCommands:     atomic.LoadInt64(&t.unknown),
		Cancellations:       atomic.LoadInt64(&t.cancellations),
		Frames:              atomic.LoadInt64(&t.frames),
		GeolocationFailures: geo,
	}
}
