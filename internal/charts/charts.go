// Package charts computes ranked charts per category and period and
// annotates each entry with its movement against the prior comparable
// window's snapshot.
package charts

import (
	"fmt"
	"time"

	"github.com/mpetrov/music-tracker/internal/store"
)

type Engine struct {
	Store *store.Store

	// Limit caps each chart's length.
	Limit int

	// MinAlbumTracks is the distinct-title floor for album chart membership.
	MinAlbumTracks int

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// PeriodChart is one period's worth of charts plus its display date range.
type PeriodChart struct {
	Period store.Period
	Dates  string
	Items  map[store.Category][]store.RankedItem

	// Popular ranks artists by distinct titles played in the window. It is
	// recomputed from the log every cycle and never diffed against a
	// snapshot, so its entries carry no movement annotations.
	Popular []store.RankedItem
}

// Compute builds charts for the given periods. All queries in one call share
// a single logical now, so window boundaries stay consistent across
// categories. For each category the current ranking is diffed against the
// prior comparable snapshot and then saved as the next cycle's baseline.
// For a fixed event log and snapshot set the output is deterministic.
func (e *Engine) Compute(periods []store.Period) (map[store.Period]*PeriodChart, error) {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	out := make(map[store.Period]*PeriodChart, len(periods))
	for _, period := range periods {
		chart := &PeriodChart{
			Period: period,
			Items:  make(map[store.Category][]store.RankedItem),
		}

		dates, err := e.chartDates(now, period.Window())
		if err != nil {
			return nil, err
		}
		chart.Dates = dates

		for _, cat := range store.AllCategories() {
			previous, err := e.Store.LoadComparableSnapshot(cat, period, now)
			if err != nil {
				return nil, fmt.Errorf("loading %s/%s snapshot: %w", cat, period, err)
			}

			current, err := e.Store.QueryTop(cat, now, period.Window(), e.Limit, e.MinAlbumTracks)
			if err != nil {
				return nil, fmt.Errorf("querying %s/%s: %w", cat, period, err)
			}

			annotate(current, previous, cat)

			if err := e.Store.SaveSnapshot(cat, period, current, now); err != nil {
				return nil, fmt.Errorf("saving %s/%s snapshot: %w", cat, period, err)
			}

			chart.Items[cat] = current
		}

		popular, err := e.Store.QueryPopularArtists(now, period.Window(), e.Limit)
		if err != nil {
			return nil, fmt.Errorf("querying popular artists for %s: %w", period, err)
		}
		chart.Popular = popular

		out[period] = chart
	}
	return out, nil
}

// annotate fills Change and NewEntry on each current entry. An entry at
// 1-based rank R found at prior position P gets change P-R (positive means
// it moved up); an entry absent from the previous chart is a new entry with
// change 0. First identity match wins, so duplicates in the previous payload
// resolve to the earliest position.
func annotate(current, previous []store.RankedItem, cat store.Category) {
	for i := range current {
		rank := i + 1
		prevRank := previousRank(previous, current[i], cat)
		if prevRank == 0 {
			current[i].NewEntry = true
			current[i].Change = 0
		} else {
			current[i].NewEntry = false
			current[i].Change = prevRank - rank
		}
	}
}

func previousRank(previous []store.RankedItem, item store.RankedItem, cat store.Category) int {
	for i, prev := range previous {
		if item.SameIdentity(cat, prev) {
			return i + 1
		}
	}
	return 0
}

func (e *Engine) chartDates(now time.Time, window time.Duration) (string, error) {
	start, end, ok, err := e.Store.WindowBounds(now, window)
	if err != nil {
		return "", fmt.Errorf("querying chart dates: %w", err)
	}
	if !ok {
		return "N/A", nil
	}
	return fmt.Sprintf("%s - %s", start.Format("02/01/2006"), end.Format("02/01/2006")), nil
}
