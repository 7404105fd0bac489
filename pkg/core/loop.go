// Package core runs the frame loop: one goroutine that owns the camera and
// every piece of controller state.
package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mapstick/pkg/config"
)

// Defaults used when the config leaves the loop timing unset.
const (
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultMaxDelta      = 100 * time.Millisecond
)

// Handler runs once per frame on the loop goroutine.
type Handler interface {
	Name() string
	Frame(ctx context.Context, now time.Time, dt float64)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	ID string
	Fn func(ctx context.Context, now time.Time, dt float64)
}

func (h HandlerFunc) Name() string { return h.ID }

func (h HandlerFunc) Frame(ctx context.Context, now time.Time, dt float64) {
	h.Fn(ctx, now, dt)
}

// Loop is the frame heartbeat. Tasks posted from other goroutines run at the
// start of the next frame, before any handler.
type Loop struct {
	interval time.Duration
	maxDelta time.Duration
	logger   *slog.Logger

	handlers []Handler
	jobs     []Job

	mu    sync.Mutex
	inbox []func()

	last   time.Time
	frames atomic.Uint64
}

// NewLoop creates a loop from the loop config section.
func NewLoop(cfg config.LoopConfig, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		interval: cfg.FrameInterval.Std(),
		maxDelta: cfg.MaxDelta.Std(),
		logger:   logger,
	}
	if l.interval <= 0 {
		l.interval = DefaultFrameInterval
	}
	if l.maxDelta <= 0 {
		l.maxDelta = DefaultMaxDelta
	}
	return l
}

// AddHandler registers a frame handler. Handlers run in registration order.
func (l *Loop) AddHandler(h Handler) {
	l.handlers = append(l.handlers, h)
}

// AddJob registers a background job.
func (l *Loop) AddJob(j Job) {
	l.jobs = append(l.jobs, j)
}

// Post queues fn to run on the loop goroutine. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.inbox = append(l.inbox, fn)
	l.mu.Unlock()
}

// Frames returns the number of frames run so far.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Start runs the loop. It blocks until ctx is cancelled.
func (l *Loop) Start(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("Frame loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			l.drain()
			l.logger.Info("Frame loop stopped", "frames", l.Frames())
			return
		case now := <-ticker.C:
			l.Step(ctx, now)
		}
	}
}

// Step runs one frame at now. The first frame and any frame after a stall
// see a dt clamped to the max delta.
func (l *Loop) Step(ctx context.Context, now time.Time) {
	l.drain()

	dt := l.interval
	if !l.last.IsZero() {
		dt = now.Sub(l.last)
	}
	l.last = now
	if dt > l.maxDelta {
		dt = l.maxDelta
	}
	if dt < 0 {
		dt = 0
	}

	for _, h := range l.handlers {
		l.run(ctx, h, now, dt.Seconds())
	}

	for _, job := range l.jobs {
		if job.ShouldFire(now) {
			go job.Run(ctx)
		}
	}
	l.frames.Add(1)
}

func (l *Loop) drain() {
	l.mu.Lock()
	tasks := l.inbox
	l.inbox = nil
	l.mu.Unlock()

	for _, fn := range tasks {
		l.runTask(fn)
	}
}

func (l *Loop) run(ctx context.Context, h Handler, now time.Time, dt float64) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Frame handler panicked", "handler", h.Name(), "panic", r)
		}
	}()
	h.Frame(ctx, now, dt)
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Posted task panicked", "panic", r)
		}
	}()
	fn()
}
