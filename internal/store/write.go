package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// InsertPlay appends one play to the history log. Dedup is the debouncer's
// responsibility upstream; given a non-empty artist and title this always
// appends. Album is required to be non-empty by the ingest pipeline's
// fallback chain. An empty channel is stored as NULL.
func (s *Store) InsertPlay(artist, title, album, channel string, at time.Time) error {
	if artist == "" || title == "" {
		return fmt.Errorf("inserting play: artist and title are required")
	}

	var ch interface{}
	if channel != "" {
		ch = channel
	}

	_, err := s.db.Exec(
		"INSERT INTO PlayEvent (artist, title, album, channel, timestamp) VALUES (?, ?, ?, ?, ?)",
		artist, title, album, ch, at.Unix())
	if err != nil {
		return fmt.Errorf("inserting play: %w", err)
	}
	return nil
}

// SaveSnapshot persists a chart payload for one category and period. Change
// and NewEntry annotations are stripped first: a snapshot records identity
// and counts only, and annotations are recomputed against it next cycle.
func (s *Store) SaveSnapshot(cat Category, period Period, items []RankedItem, at time.Time) error {
	stripped := make([]RankedItem, len(items))
	for i, item := range items {
		item.Change = 0
		item.NewEntry = false
		stripped[i] = item
	}

	payload, err := json.Marshal(stripped)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO ChartSnapshot (category, period, payload, timestamp) VALUES (?, ?, ?, ?)",
		string(cat), string(period), string(payload), at.Unix())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}
