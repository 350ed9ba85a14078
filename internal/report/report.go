// Package report renders the computed charts into a static HTML document,
// overwritten on every cycle.
package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mpetrov/music-tracker/internal/charts"
	"github.com/mpetrov/music-tracker/internal/store"
)

// NarrativeUnavailable is rendered in place of the narrative section when
// generation failed or timed out. The report never blocks on the narrative.
const NarrativeUnavailable = "Narrative summary is unavailable for this report."

type Data struct {
	GeneratedAt time.Time
	Stats       store.Stats
	StatsRange  string
	Periods     []PeriodSection
	Narrative   string
}

type PeriodSection struct {
	Title  string
	Dates  string
	Tables []Table
}

type Table struct {
	Title      string
	Header     []string
	Rows       [][]string
	ShowChange bool
}

var periodTitles = map[store.Period]string{
	store.Daily:   "Daily",
	store.Weekly:  "Weekly",
	store.Monthly: "Monthly",
	store.Yearly:  "Yearly",
}

var categoryTitles = map[store.Category]string{
	store.Songs:    "Songs",
	store.Artists:  "Artists",
	store.Albums:   "Albums",
	store.Channels: "Channels",
}

// Build assembles template data from the engine's output. Yearly rank
// movement is suppressed here: a year-over-year comparison is meaningless
// until more than a full year of history exists.
func Build(computed map[store.Period]*charts.PeriodChart, stats store.Stats, statsRange string, narrative string, now time.Time) Data {
	data := Data{
		GeneratedAt: now,
		Stats:       stats,
		StatsRange:  statsRange,
		Narrative:   narrative,
	}
	if data.Narrative == "" {
		data.Narrative = NarrativeUnavailable
	}

	for _, period := range store.AllPeriods() {
		chart, ok := computed[period]
		if !ok {
			continue
		}
		section := PeriodSection{
			Title: periodTitles[period],
			Dates: chart.Dates,
		}
		for _, cat := range store.AllCategories() {
			items := chart.Items[cat]
			if len(items) == 0 {
				continue
			}
			section.Tables = append(section.Tables, buildTable(cat, items, period != store.Yearly))
		}
		if len(chart.Popular) > 0 {
			section.Tables = append(section.Tables, popularTable(chart.Popular))
		}
		data.Periods = append(data.Periods, section)
	}
	return data
}

func buildTable(cat store.Category, items []store.RankedItem, showChange bool) Table {
	t := Table{
		Title:      "Top " + categoryTitles[cat],
		ShowChange: showChange,
	}

	switch cat {
	case store.Songs:
		t.Header = []string{"#", "Title", "Artist", "Album", "Plays"}
	case store.Artists:
		t.Header = []string{"#", "Artist", "Plays"}
	case store.Albums:
		t.Header = []string{"#", "Album", "Artist", "Tracks", "Songs"}
	case store.Channels:
		t.Header = []string{"#", "Channel", "Plays"}
	}
	if showChange {
		t.Header = append(t.Header, "Change")
	}

	for i, item := range items {
		var row []string
		rank := fmt.Sprint(i + 1)
		switch cat {
		case store.Songs:
			row = []string{rank, item.Title, item.Artist, item.Album, fmt.Sprint(item.Plays)}
		case store.Artists:
			row = []string{rank, item.Artist, fmt.Sprint(item.Plays)}
		case store.Albums:
			row = []string{rank, item.Album, item.Artist, fmt.Sprint(item.Tracks), SongList(item.Songs)}
		case store.Channels:
			row = []string{rank, item.Channel, fmt.Sprint(item.Plays)}
		}
		if showChange {
			row = append(row, Movement(item))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func popularTable(items []store.RankedItem) Table {
	t := Table{Title: "Popular Artists"}
	t.Header = []string{"#", "Artist", "Songs"}
	for i, item := range items {
		t.Rows = append(t.Rows, []string{fmt.Sprint(i + 1), item.Artist, fmt.Sprint(item.Tracks)})
	}
	return t
}

// SongList formats an album entry's titles as "Title (plays), ...".
func SongList(songs []store.AlbumSong) string {
	parts := make([]string, len(songs))
	for i, s := range songs {
		parts[i] = fmt.Sprintf("%s (%d)", s.Title, s.Plays)
	}
	return strings.Join(parts, ", ")
}

// Movement formats an entry's rank change: NEW for first appearances,
// ▲n / ▼n for moves, = for holding position.
func Movement(item store.RankedItem) string {
	switch {
	case item.NewEntry:
		return "NEW"
	case item.Change > 0:
		return fmt.Sprintf("▲%d", item.Change)
	case item.Change < 0:
		return fmt.Sprintf("▼%d", -item.Change)
	default:
		return "="
	}
}

// Render writes the report, replacing the previous one atomically so a
// half-written file is never served.
func Render(path string, data Data) error {
	out := new(strings.Builder)
	if err := reportTemplate.Execute(out, data); err != nil {
		return fmt.Errorf("executing report template: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "report-*.html")
	if err != nil {
		return fmt.Errorf("creating temp report: %w", err)
	}
	if _, err := tmp.WriteString(out.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing report: %w", err)
	}
	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Music Charts</title>
<style>
body {
  font-family: sans-serif;
  margin: 2em;
}
td, th {
  padding: 0.2em 0.5em;
}
table, th, td {
  border: 1px solid #444;
  border-collapse: collapse;
}
h2 {
  margin-top: 1.5em;
}
.narrative {
  max-width: 50em;
  font-style: italic;
}
</style>
  </head>
  <body>
    <h1>Music Charts</h1>
    <p>Generated {{.GeneratedAt.Format "2006-01-02 15:04"}}</p>

    <div class="narrative">{{.Narrative}}</div>

    <h2>Overview ({{.StatsRange}})</h2>
    <table>
      <tr><th>Days</th><th>Songs</th><th>Plays</th><th>Albums</th><th>Artists</th></tr>
      <tr>
        <td>{{.Stats.DistinctDays}}</td>
        <td>{{.Stats.DistinctSongs}}</td>
        <td>{{.Stats.TotalPlays}}</td>
        <td>{{.Stats.DistinctAlbums}}</td>
        <td>{{.Stats.DistinctArtists}}</td>
      </tr>
    </table>

{{range .Periods}}
    <h2>{{.Title}} ({{.Dates}})</h2>
{{range .Tables}}
    <h3>{{.Title}}</h3>
    <table>
      <thead>
        <tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
      </thead>
      <tbody>
{{range .Rows}}        <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}      </tbody>
    </table>
{{end}}
{{end}}
  </body>
</html>
`))
