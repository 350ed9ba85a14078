package debounce

import (
	"context"
	"testing"
	"time"
)

func TestSeenWithinRetention(t *testing.T) {
	now := time.Unix(1600000000, 0)
	d := New()
	d.now = func() time.Time { return now }

	d.Record("queen|bohemian rhapsody")

	now = now.Add(599 * time.Second)
	if !d.Seen("queen|bohemian rhapsody") {
		t.Error("Seen = false at t0+599s, want true")
	}

	now = now.Add(2 * time.Second) // t0+601s
	d.sweep()
	if d.Seen("queen|bohemian rhapsody") {
		t.Error("Seen = true at t0+601s after sweep, want false")
	}
	if len(d.seen) != 0 {
		t.Errorf("sweep left %d entries, want 0", len(d.seen))
	}
}

func TestSeenUnknownIdentity(t *testing.T) {
	d := New()
	if d.Seen("nobody|nothing") {
		t.Error("Seen = true for never-recorded identity")
	}
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	now := time.Unix(1600000000, 0)
	d := New()
	d.now = func() time.Time { return now }

	d.Record("old")
	now = now.Add(601 * time.Second)
	d.Record("fresh")
	d.sweep()

	if d.Seen("old") {
		t.Error("old entry survived sweep")
	}
	if !d.Seen("fresh") {
		t.Error("fresh entry evicted by sweep")
	}
}

func TestCheckAndRecord(t *testing.T) {
	now := time.Unix(1600000000, 0)
	d := New()
	d.now = func() time.Time { return now }

	if d.CheckAndRecord("queen|song") {
		t.Error("first CheckAndRecord reported a never-seen identity")
	}
	if !d.CheckAndRecord("queen|song") {
		t.Error("second CheckAndRecord did not suppress the duplicate")
	}

	now = now.Add(601 * time.Second)
	if d.CheckAndRecord("queen|song") {
		t.Error("expired identity still suppressed")
	}
	if !d.CheckAndRecord("queen|song") {
		t.Error("re-recorded identity not suppressed")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	d := New()
	d.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
