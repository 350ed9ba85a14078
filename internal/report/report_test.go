package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mpetrov/music-tracker/internal/charts"
	"github.com/mpetrov/music-tracker/internal/store"
)

func sampleCharts() map[store.Period]*charts.PeriodChart {
	return map[store.Period]*charts.PeriodChart{
		store.Weekly: {
			Period: store.Weekly,
			Dates:  "01/01/2026 - 07/01/2026",
			Items: map[store.Category][]store.RankedItem{
				store.Songs: {
					{Title: "Song", Artist: "Queen", Album: "Album", Plays: 4, Change: 2},
				},
				store.Artists: {
					{Artist: "Queen", Plays: 4, NewEntry: true},
				},
			},
		},
		store.Yearly: {
			Period: store.Yearly,
			Dates:  "01/02/2025 - 07/01/2026",
			Items: map[store.Category][]store.RankedItem{
				store.Songs: {
					{Title: "Song", Artist: "Queen", Album: "Album", Plays: 40, NewEntry: true},
				},
			},
		},
	}
}

func TestMovement(t *testing.T) {
	cases := []struct {
		item store.RankedItem
		want string
	}{
		{store.RankedItem{NewEntry: true}, "NEW"},
		{store.RankedItem{Change: 3}, "▲3"},
		{store.RankedItem{Change: -2}, "▼2"},
		{store.RankedItem{}, "="},
	}
	for _, tc := range cases {
		if got := Movement(tc.item); got != tc.want {
			t.Errorf("Movement(%+v) = %q, want %q", tc.item, got, tc.want)
		}
	}
}

func TestBuildSuppressesYearlyChange(t *testing.T) {
	data := Build(sampleCharts(), store.Stats{}, "N/A", "", time.Unix(1700000000, 0))

	if len(data.Periods) != 2 {
		t.Fatalf("got %d periods, want 2", len(data.Periods))
	}

	weekly := data.Periods[0]
	if weekly.Title != "Weekly" {
		t.Fatalf("first period = %q, want Weekly", weekly.Title)
	}
	for _, table := range weekly.Tables {
		if !table.ShowChange {
			t.Errorf("weekly table %q hides change column", table.Title)
		}
		if table.Header[len(table.Header)-1] != "Change" {
			t.Errorf("weekly table %q missing Change header: %v", table.Title, table.Header)
		}
	}

	yearly := data.Periods[1]
	if yearly.Title != "Yearly" {
		t.Fatalf("second period = %q, want Yearly", yearly.Title)
	}
	for _, table := range yearly.Tables {
		if table.ShowChange {
			t.Errorf("yearly table %q shows change column", table.Title)
		}
		for _, h := range table.Header {
			if h == "Change" {
				t.Errorf("yearly table %q has Change header", table.Title)
			}
		}
	}
}

func TestBuildAlbumSongsAndPopularArtists(t *testing.T) {
	computed := map[store.Period]*charts.PeriodChart{
		store.Weekly: {
			Period: store.Weekly,
			Dates:  "N/A",
			Items: map[store.Category][]store.RankedItem{
				store.Albums: {
					{Album: "The Works", Artist: "Queen", Tracks: 3, Songs: []store.AlbumSong{
						{Title: "One", Plays: 4},
						{Title: "Two", Plays: 2},
					}},
				},
			},
			Popular: []store.RankedItem{{Artist: "Queen", Tracks: 7}},
		},
	}

	data := Build(computed, store.Stats{}, "N/A", "", time.Now())
	tables := data.Periods[0].Tables
	if len(tables) != 2 {
		t.Fatalf("got %d tables, want albums + popular artists", len(tables))
	}

	albums := tables[0]
	foundSongs := false
	for _, h := range albums.Header {
		if h == "Songs" {
			foundSongs = true
		}
	}
	if !foundSongs {
		t.Errorf("album header %v missing Songs column", albums.Header)
	}
	if got := albums.Rows[0][4]; got != "One (4), Two (2)" {
		t.Errorf("album song listing = %q, want %q", got, "One (4), Two (2)")
	}

	popular := tables[1]
	if popular.Title != "Popular Artists" {
		t.Fatalf("second table = %q, want Popular Artists", popular.Title)
	}
	if popular.ShowChange {
		t.Error("popular artists table shows a change column")
	}
	wantRow := []string{"1", "Queen", "7"}
	for i, want := range wantRow {
		if popular.Rows[0][i] != want {
			t.Errorf("popular row = %v, want %v", popular.Rows[0], wantRow)
			break
		}
	}
}

func TestBuildMissingNarrative(t *testing.T) {
	data := Build(sampleCharts(), store.Stats{}, "N/A", "", time.Now())
	if data.Narrative != NarrativeUnavailable {
		t.Errorf("Narrative = %q, want placeholder", data.Narrative)
	}

	data = Build(sampleCharts(), store.Stats{}, "N/A", "Great week for Queen.", time.Now())
	if data.Narrative != "Great week for Queen." {
		t.Errorf("Narrative = %q, want the generated text", data.Narrative)
	}
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.html")
	data := Build(sampleCharts(), store.Stats{TotalPlays: 44}, "01/01/2026 - 07/01/2026", "Great week.", time.Unix(1700000000, 0))

	if err := Render(path, data); err != nil {
		t.Fatalf("Render: %v", err)
	}

	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	for _, want := range []string{"Great week.", "Top Songs", "▲2", "NEW", "<td>44</td>"} {
		if !strings.Contains(string(html), want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.html")
	if err := os.WriteFile(path, []byte("old report"), 0644); err != nil {
		t.Fatalf("seeding old report: %v", err)
	}

	if err := Render(path, Build(sampleCharts(), store.Stats{}, "N/A", "", time.Now())); err != nil {
		t.Fatalf("Render: %v", err)
	}

	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if strings.Contains(string(html), "old report") {
		t.Error("previous report content survived")
	}
}

func TestRenderEscapesTitles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.html")
	computed := map[store.Period]*charts.PeriodChart{
		store.Weekly: {
			Period: store.Weekly,
			Dates:  "N/A",
			Items: map[store.Category][]store.RankedItem{
				store.Songs: {{Title: "<script>alert(1)</script>", Artist: "A", Album: "B", Plays: 1}},
			},
		},
	}

	if err := Render(path, Build(computed, store.Stats{}, "N/A", "", time.Now())); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if strings.Contains(string(html), "<script>alert(1)</script>") {
		t.Error("track title rendered unescaped")
	}
}
