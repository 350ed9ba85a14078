package charts

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mpetrov/music-tracker/internal/store"
)

func testEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "music.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Engine{Store: s, Limit: 100, MinAlbumTracks: 3}, s
}

func TestAnnotateChangeAndNewEntry(t *testing.T) {
	previous := []store.RankedItem{
		{Artist: "One"},
		{Artist: "Two"},
		{Artist: "Three"},
		{Artist: "Four"},
		{Artist: "Five"},
	}
	current := []store.RankedItem{
		{Artist: "Five"},  // rank 1, was rank 5: change +4
		{Artist: "One"},   // rank 2, was rank 1: change -1
		{Artist: "Debut"}, // rank 3, new entry
		{Artist: "Three"}, // rank 4, was rank 3: change -1
	}

	annotate(current, previous, store.Artists)

	cases := []struct {
		idx      int
		change   int
		newEntry bool
	}{
		{0, 4, false},
		{1, -1, false},
		{2, 0, true},
		{3, -1, false},
	}
	for _, tc := range cases {
		got := current[tc.idx]
		if got.Change != tc.change || got.NewEntry != tc.newEntry {
			t.Errorf("%s: change=%d new=%v, want change=%d new=%v",
				got.Artist, got.Change, got.NewEntry, tc.change, tc.newEntry)
		}
	}
}

func TestAnnotateFirstMatchWins(t *testing.T) {
	// Duplicate identity in the previous payload: the earliest position is
	// the prior rank.
	previous := []store.RankedItem{
		{Artist: "Dup"},
		{Artist: "Other"},
		{Artist: "Dup"},
	}
	current := []store.RankedItem{{Artist: "Dup"}}

	annotate(current, previous, store.Artists)
	if current[0].Change != 0 || current[0].NewEntry {
		t.Errorf("got change=%d new=%v, want change=0 from prior rank 1", current[0].Change, current[0].NewEntry)
	}
}

func TestAnnotateSongIdentity(t *testing.T) {
	// Same title+artist on a different album is a different song entry.
	previous := []store.RankedItem{{Title: "Song", Artist: "A", Album: "Live Album"}}
	current := []store.RankedItem{{Title: "Song", Artist: "A", Album: "Studio Album"}}

	annotate(current, previous, store.Songs)
	if !current[0].NewEntry {
		t.Error("song with different album matched prior entry, want new entry")
	}
}

func TestComputeFirstCycle(t *testing.T) {
	e, s := testEngine(t)
	now := time.Unix(1700000000, 0)
	e.Now = func() time.Time { return now }

	// Two plays of the same song on day-1 and day-2 of the weekly window.
	if err := s.InsertPlay("A", "Song", "Album", "", now.Add(-24*time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}
	if err := s.InsertPlay("A", "Song", "Album", "", now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}

	out, err := e.Compute([]store.Period{store.Weekly})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	songs := out[store.Weekly].Items[store.Songs]
	if len(songs) != 1 {
		t.Fatalf("got %d songs, want 1", len(songs))
	}
	got := songs[0]
	if got.Artist != "A" || got.Plays != 2 || !got.NewEntry || got.Change != 0 {
		t.Errorf("first cycle song = %+v, want artist A, 2 plays, new entry, change 0", got)
	}
	if out[store.Weekly].Dates == "N/A" {
		t.Error("Dates = N/A with plays in window")
	}
}

func TestComputeIgnoresJustSavedSnapshot(t *testing.T) {
	e, s := testEngine(t)
	now := time.Unix(1700000000, 0)
	e.Now = func() time.Time { return now }

	if err := s.InsertPlay("A", "Song", "Album", "", now.Add(-24*time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}
	if err := s.InsertPlay("A", "Song", "Album", "", now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}

	if _, err := e.Compute([]store.Period{store.Weekly}); err != nil {
		t.Fatalf("Compute (first): %v", err)
	}

	// One more play, then recompute. The snapshot saved moments ago is still
	// within the current window, so the comparison baseline stays empty and
	// the song remains a new entry.
	if err := s.InsertPlay("A", "Song", "Album", "", now.Add(-time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}

	out, err := e.Compute([]store.Period{store.Weekly})
	if err != nil {
		t.Fatalf("Compute (second): %v", err)
	}

	got := out[store.Weekly].Items[store.Songs][0]
	if got.Plays != 3 || !got.NewEntry || got.Change != 0 {
		t.Errorf("second cycle song = %+v, want 3 plays, still a new entry", got)
	}
}

func TestComputeUsesComparableSnapshot(t *testing.T) {
	e, s := testEngine(t)
	now := time.Unix(1700000000, 0)
	e.Now = func() time.Time { return now }

	// Prior-week baseline: X at rank 1, Y at rank 2.
	baseline := []store.RankedItem{
		{Artist: "X", Plays: 9},
		{Artist: "Y", Plays: 5},
	}
	if err := s.SaveSnapshot(store.Artists, store.Weekly, baseline, now.Add(-8*24*time.Hour)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	// This week Y outplays X.
	for i := 0; i < 3; i++ {
		if err := s.InsertPlay("Y", "Song", "Album", "", now.Add(-time.Duration(i+1)*time.Hour)); err != nil {
			t.Fatalf("InsertPlay: %v", err)
		}
	}
	if err := s.InsertPlay("X", "Song", "Album", "", now.Add(-time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}

	out, err := e.Compute([]store.Period{store.Weekly})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	artists := out[store.Weekly].Items[store.Artists]
	if len(artists) != 2 {
		t.Fatalf("got %d artists, want 2", len(artists))
	}
	// Y: rank 2 -> 1, change +1. X: rank 1 -> 2, change -1.
	if artists[0].Artist != "Y" || artists[0].Change != 1 || artists[0].NewEntry {
		t.Errorf("rank 1 = %+v, want Y with change +1", artists[0])
	}
	if artists[1].Artist != "X" || artists[1].Change != -1 || artists[1].NewEntry {
		t.Errorf("rank 2 = %+v, want X with change -1", artists[1])
	}
}

func TestComputeYearlyStillAnnotated(t *testing.T) {
	e, s := testEngine(t)
	now := time.Unix(1700000000, 0)
	e.Now = func() time.Time { return now }

	if err := s.InsertPlay("A", "Song", "Album", "", now.Add(-time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}

	out, err := e.Compute([]store.Period{store.Yearly})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// Suppressing yearly movement is the renderer's call; the engine computes
	// it like any other period.
	got := out[store.Yearly].Items[store.Songs][0]
	if !got.NewEntry {
		t.Errorf("yearly entry = %+v, want annotated as new entry", got)
	}
}

func TestComputePopularArtists(t *testing.T) {
	e, s := testEngine(t)
	now := time.Unix(1700000000, 0)
	e.Now = func() time.Time { return now }

	if err := s.InsertPlay("A", "One", "Album", "", now.Add(-time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}
	if err := s.InsertPlay("A", "Two", "Album", "", now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}
	if err := s.InsertPlay("B", "Hit", "Single", "", now.Add(-time.Hour)); err != nil {
		t.Fatalf("InsertPlay: %v", err)
	}

	out, err := e.Compute([]store.Period{store.Weekly})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	popular := out[store.Weekly].Popular
	if len(popular) != 2 {
		t.Fatalf("got %d popular artists, want 2", len(popular))
	}
	if popular[0].Artist != "A" || popular[0].Tracks != 2 {
		t.Errorf("rank 1 = %+v, want A with 2 distinct songs", popular[0])
	}
	// The list is recomputed each cycle, never diffed: no movement fields.
	if popular[0].NewEntry || popular[0].Change != 0 {
		t.Errorf("popular entry carries movement annotations: %+v", popular[0])
	}
}

func TestComputeEmptyLog(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Unix(1700000000, 0)
	e.Now = func() time.Time { return now }

	out, err := e.Compute([]store.Period{store.Daily})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if out[store.Daily].Dates != "N/A" {
		t.Errorf("Dates = %q, want N/A for empty window", out[store.Daily].Dates)
	}
	if len(out[store.Daily].Items[store.Songs]) != 0 {
		t.Error("empty log produced chart entries")
	}
}
