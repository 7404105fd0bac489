package core

import (
	"context"
	"log/slog"
	"time"

	"mapstick/pkg/store"
)

// StateSnapshot returns the state keys to persist with their current values.
// It is called off the loop goroutine.
type StateSnapshot func() map[string]string

// SessionPersistenceJob periodically writes the keys of a snapshot that
// changed since the last successful save.
type SessionPersistenceJob struct {
	*TimeJob
	st       store.StateStore
	snapshot StateSnapshot
	logger   *slog.Logger

	lastSaved map[string]string
}

// NewSessionPersistenceJob creates a new persistence job.
func NewSessionPersistenceJob(st store.StateStore, interval time.Duration, snapshot StateSnapshot, logger *slog.Logger) *SessionPersistenceJob {
	if logger == nil {
		logger = slog.Default()
	}
	j := &SessionPersistenceJob{
		st:        st,
		snapshot:  snapshot,
		logger:    logger,
		lastSaved: make(map[string]string),
	}
	j.TimeJob = NewTimeJob("SessionPersistence", interval, j.checkAndSave)
	return j
}

// Prime records values already in the store so they are not rewritten.
func (j *SessionPersistenceJob) Prime(values map[string]string) {
	for k, v := range values {
		j.lastSaved[k] = v
	}
}

// Flush saves immediately. Used on shutdown after the loop has stopped.
func (j *SessionPersistenceJob) Flush(ctx context.Context) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()
	j.checkAndSave(ctx)
}

func (j *SessionPersistenceJob) checkAndSave(ctx context.Context) {
	for key, val := range j.snapshot() {
		if prev, ok := j.lastSaved[key]; ok && prev == val {
			continue
		}
		if err := j.st.SetState(ctx, key, val); err != nil {
			j.logger.Error("Persistence: Failed to save state", "key", key, "error", err)
			continue
		}
		j.lastSaved[key] = val
		j.logger.Debug("Persistence: State saved", "key", key, "value", val)
	}
}
