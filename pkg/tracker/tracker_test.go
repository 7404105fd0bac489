package tracker

import (
	"sync"
	"testing"
)

func TestTracker(t *testing.T) {
	tr := New()
	key := "primary-nav.RECENTER"

	// Test Initial State
	snap := tr.Snapshot()
	if len(snap.Commands) != 0 {
		t.Errorf("Expected empty stats, got %d", len(snap.Commands))
	}

	// Test Tracking
	tr.TrackFired(key)
	tr.TrackFired(key)
	tr.TrackRepeat(key)
	tr.TrackFailure(key)
	tr.TrackUnknown()
	tr.TrackCancel()
	tr.TrackFrame()
	tr.TrackGeolocationFailure("timeout")
	tr.TrackGeolocationFailure("timeout")

	// Verify Snapshot
	snap = tr.Snapshot()
	stats, ok := snap.Commands[key]
	if !ok {
		t.Fatalf("Expected stats for command %s", key)
	}
	if stats.Fired != 2 {
		t.Errorf("Expected 2 Fired, got %d", stats.Fired)
	}
	if stats.Repeated != 1 {
		t.Errorf("Expected 1 Repeated, got %d", stats.Repeated)
	}
	if stats.Failed != 1 {
		t.Errorf("Expected 1 Failed, got %d", stats.Failed)
	}
	if snap.UnknownCommands != 1 || snap.Cancellations != 1 || snap.Frames != 1 {
		t.Errorf("Unexpected global counters: %+v", snap)
	}
	if snap.GeolocationFailures["timeout"] != 2 {
		t.Errorf("Expected 2 timeout failures, got %d", snap.GeolocationFailures["timeout"])
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.TrackFired("global.REPORT")
			}
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().Commands["global.REPORT"].Fired; got != 800 {
		t.Errorf("Expected 800 fires, got %d", got)
	}
}
