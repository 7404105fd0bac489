package core

import (
	"context"
	"sync/atomic"
	"time"
)

// Job is background work evaluated once per frame. ShouldFire runs on the
// loop goroutine; Run runs on its own goroutine and must not touch the camera.
type Job interface {
	Name() string
	ShouldFire(now time.Time) bool
	Run(ctx context.Context)
}

// BaseJob carries a job's name and a re-entry guard.
type BaseJob struct {
	name    string
	running int32 // accessed atomically; BaseJob is built by value
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string { return b.name }

// TryLock marks the job running. It fails if a run is already in progress.
func (b *BaseJob) TryLock() bool { return atomic.CompareAndSwapInt32(&b.running, 0, 1) }

func (b *BaseJob) Unlock() { atomic.StoreInt32(&b.running, 0) }

func (b *BaseJob) Running() bool { return atomic.LoadInt32(&b.running) == 1 }

// TimeJob runs its action every interval. The first frame it sees arms the
// timer rather than firing, so nothing runs during startup.
type TimeJob struct {
	BaseJob
	interval time.Duration
	action   func(context.Context)
	due      atomic.Int64 // unix nanos; zero until armed
}

func NewTimeJob(name string, interval time.Duration, action func(context.Context)) *TimeJob {
	return &TimeJob{
		BaseJob:  NewBaseJob(name),
		interval: interval,
		action:   action,
	}
}

func (j *TimeJob) ShouldFire(now time.Time) bool {
	if j.Running() {
		return false
	}
	due := j.due.Load()
	if due == 0 {
		j.due.Store(now.Add(j.interval).UnixNano())
		return false
	}
	return now.UnixNano() >= due
}

func (j *TimeJob) Run(ctx context.Context) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.due.Store(time.Now().Add(j.interval).UnixNano())
	j.action(ctx)
}
