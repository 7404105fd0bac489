package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapstick/pkg/config"
)

type recordingHandler struct {
	name string
	log  *[]string
	dts  []float64
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Frame(ctx context.Context, now time.Time, dt float64) {
	*h.log = append(*h.log, h.name)
	h.dts = append(h.dts, dt)
}

func newTestLoop() *Loop {
	return NewLoop(config.LoopConfig{
		FrameInterval: config.Duration(16 * time.Millisecond),
		MaxDelta:      config.Duration(50 * time.Millisecond),
	}, nil)
}

func TestLoop_DeltaTime(t *testing.T) {
	l := newTestLoop()
	var order []string
	h := &recordingHandler{name: "nav", log: &order}
	l.AddHandler(h)

	start := time.Unix(100, 0)
	ctx := context.Background()
	l.Step(ctx, start)
	l.Step(ctx, start.Add(20*time.Millisecond))
	l.Step(ctx, start.Add(2*time.Second))
	l.Step(ctx, start.Add(time.Second))

	require.Len(t, h.dts, 4)
	assert.InDelta(t, 0.016, h.dts[0], 1e-9, "first frame assumes one interval")
	assert.InDelta(t, 0.020, h.dts[1], 1e-9)
	assert.InDelta(t, 0.050, h.dts[2], 1e-9, "stalls are clamped")
	assert.Equal(t, 0.0, h.dts[3], "clock going backwards yields zero")
	assert.Equal(t, uint64(4), l.Frames())
}

func TestLoop_PostedTasksRunFirst(t *testing.T) {
	l := newTestLoop()
	var order []string
	l.AddHandler(&recordingHandler{name: "a", log: &order})
	l.AddHandler(HandlerFunc{ID: "b", Fn: func(context.Context, time.Time, float64) { order = append(order, "b") }})

	l.Post(func() { order = append(order, "task1") })
	l.Post(func() {
		order = append(order, "task2")
		l.Post(func() { order = append(order, "later") })
	})
	l.Post(nil)

	l.Step(context.Background(), time.Unix(1, 0))
	assert.Equal(t, []string{"task1", "task2", "a", "b"}, order)

	order = nil
	l.Step(context.Background(), time.Unix(2, 0))
	assert.Equal(t, []string{"later", "a", "b"}, order)
}

func TestLoop_PanicsIsolated(t *testing.T) {
	l := newTestLoop()
	var order []string
	l.AddHandler(HandlerFunc{ID: "bad", Fn: func(context.Context, time.Time, float64) { panic("boom") }})
	l.AddHandler(&recordingHandler{name: "good", log: &order})
	l.Post(func() { panic("task boom") })

	assert.NotPanics(t, func() { l.Step(context.Background(), time.Unix(1, 0)) })
	assert.Equal(t, []string{"good"}, order)
}

func TestLoop_PostFromManyGoroutines(t *testing.T) {
	l := newTestLoop()
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { count++ })
		}()
	}
	wg.Wait()
	l.Step(context.Background(), time.Unix(1, 0))
	assert.Equal(t, 50, count)
}

func TestLoop_StartStops(t *testing.T) {
	l := newTestLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("posted task never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoop_JobsRunOffLoop(t *testing.T) {
	l := newTestLoop()
	fired := make(chan struct{}, 1)
	j := NewTimeJob("persist", 10*time.Millisecond, func(context.Context) { fired <- struct{}{} })
	l.AddJob(j)

	start := time.Now()
	l.Step(context.Background(), start)
	l.Step(context.Background(), start.Add(20*time.Millisecond))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}
