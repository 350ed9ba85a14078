// Package debounce suppresses duplicate play inserts caused by flapping
// player state (re-buffers, seeks, multi-zone sync).
package debounce

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultRetention is how long a recorded identity keeps suppressing
	// duplicates.
	DefaultRetention = 600 * time.Second
	// DefaultSweepInterval is how often stale entries are evicted.
	DefaultSweepInterval = 60 * time.Second
)

// Debouncer is a time-bounded set of recently recorded track identities.
// All access serializes on one mutex.
type Debouncer struct {
	retention time.Duration
	interval  time.Duration
	now       func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func New() *Debouncer {
	return &Debouncer{
		retention: DefaultRetention,
		interval:  DefaultSweepInterval,
		now:       time.Now,
		seen:      make(map[string]time.Time),
	}
}

// Record marks an identity as just played.
func (d *Debouncer) Record(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[id] = d.now()
}

// Seen reports whether the identity was recorded within the retention window.
func (d *Debouncer) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	at, ok := d.seen[id]
	return ok && d.now().Sub(at) <= d.retention
}

// CheckAndRecord reports whether the identity was recorded within the
// retention window, and records it now if it was not. Check and record share
// one critical section, so concurrent confirmations of the same track cannot
// both pass.
func (d *Debouncer) CheckAndRecord(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if at, ok := d.seen[id]; ok && now.Sub(at) <= d.retention {
		return true
	}
	d.seen[id] = now
	return false
}

// Run sweeps stale entries on a fixed interval until ctx is cancelled. It is
// meant to run as a goroutine for the lifetime of the process.
func (d *Debouncer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

func (d *Debouncer) sweep() {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, at := range d.seen {
		if now.Sub(at) > d.retention {
			delete(d.seen, id)
		}
	}
}
