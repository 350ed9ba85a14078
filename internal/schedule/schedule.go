// Package schedule provides the daily wall-clock trigger for chart
// regeneration and maintenance.
package schedule

import (
	"context"
	"fmt"
	"time"
)

// NextRun returns the next occurrence of the given wall-clock time
// ("15:04:05") strictly after now.
func NextRun(now time.Time, at string) (time.Time, error) {
	t, err := time.Parse("15:04:05", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing update time %q: %w", at, err)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Daily invokes fn at the given wall-clock time once per day until ctx is
// cancelled. The callback's own failures are its own business; the loop
// never stops on its account.
func Daily(ctx context.Context, at string, fn func()) error {
	for {
		next, err := NextRun(time.Now(), at)
		if err != nil {
			return err
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			fn()
		}
	}
}
