/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mpetrov/music-tracker/internal/charts"
	"github.com/mpetrov/music-tracker/internal/narrative"
	"github.com/mpetrov/music-tracker/internal/report"
	"github.com/mpetrov/music-tracker/internal/store"
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Computes the charts and renders the HTML report",
	Long: `Computes ranked charts for every category and period from the history
log, saves a snapshot for the next cycle's rank comparison, and rewrites the
HTML report. The same pass runs daily inside 'serve'.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCharts(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
}

func runCharts() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	computed, narrativeErr, err := generateReport(context.Background(), st)
	if err != nil {
		return err
	}
	if narrativeErr != nil {
		fmt.Fprintln(os.Stderr, "narrative generation failed:", narrativeErr)
	}

	printCharts(os.Stdout, computed)
	fmt.Printf("Report written to %s\n", viper.GetString("report"))
	return nil
}

// generateReport runs one full chart cycle: compute and snapshot every
// category and period, ask the narrative service for a summary, and rewrite
// the HTML report. The narrative is best-effort and its failure is reported
// separately; the report renders a placeholder in that case.
func generateReport(ctx context.Context, st *store.Store) (computed map[store.Period]*charts.PeriodChart, narrativeErr, err error) {
	engine := &charts.Engine{
		Store:          st,
		Limit:          viper.GetInt("limit"),
		MinAlbumTracks: viper.GetInt("min_songs_for_album"),
	}
	computed, err = engine.Compute(store.AllPeriods())
	if err != nil {
		return nil, nil, fmt.Errorf("computing charts: %w", err)
	}

	var narrativeText string
	if url := viper.GetString("narrative_url"); url != "" {
		narrativeText, narrativeErr = buildNarrative(ctx, st, computed[store.Weekly], url)
	}

	now := time.Now()
	stats, err := st.OverviewStats(now, store.Yearly.Window())
	if err != nil {
		return nil, narrativeErr, err
	}
	statsRange := "N/A"
	start, end, ok, err := st.WindowBounds(now, store.Yearly.Window())
	if err != nil {
		return nil, narrativeErr, err
	}
	if ok {
		statsRange = fmt.Sprintf("%s - %s", start.Format("02/01/2006"), end.Format("02/01/2006"))
	}

	data := report.Build(computed, stats, statsRange, narrativeText, now)
	if err := report.Render(viper.GetString("report"), data); err != nil {
		return nil, narrativeErr, err
	}
	return computed, narrativeErr, nil
}

func buildNarrative(ctx context.Context, st *store.Store, weekly *charts.PeriodChart, url string) (string, error) {
	if weekly == nil {
		return "", nil
	}
	recent, err := st.RecentPlays(20)
	if err != nil {
		return "", fmt.Errorf("querying recent plays: %w", err)
	}
	client := narrative.New(url)
	return client.Generate(ctx, narrative.BuildPrompt(weekly, recent))
}

func printCharts(out io.Writer, computed map[store.Period]*charts.PeriodChart) {
	for _, period := range store.AllPeriods() {
		chart, ok := computed[period]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "## %s charts (%s)\n", period, chart.Dates)
		showChange := period != store.Yearly

		for _, cat := range store.AllCategories() {
			items := chart.Items[cat]
			if len(items) == 0 {
				continue
			}
			fmt.Fprintf(out, "Top %s:\n", cat)

			table := tablewriter.NewWriter(out)
			var header []string
			switch cat {
			case store.Songs:
				header = []string{"#", "Title", "Artist", "Album", "Plays"}
			case store.Artists:
				header = []string{"#", "Artist", "Plays"}
			case store.Albums:
				header = []string{"#", "Album", "Artist", "Tracks", "Songs"}
			case store.Channels:
				header = []string{"#", "Channel", "Plays"}
			}
			if showChange {
				header = append(header, "Change")
			}
			table.SetHeader(header)

			for i, item := range items {
				var row []string
				rank := fmt.Sprint(i + 1)
				switch cat {
				case store.Songs:
					row = []string{rank, item.Title, item.Artist, item.Album, fmt.Sprint(item.Plays)}
				case store.Artists:
					row = []string{rank, item.Artist, fmt.Sprint(item.Plays)}
				case store.Albums:
					row = []string{rank, item.Album, item.Artist, fmt.Sprint(item.Tracks), report.SongList(item.Songs)}
				case store.Channels:
					row = []string{rank, item.Channel, fmt.Sprint(item.Plays)}
				}
				if showChange {
					row = append(row, report.Movement(item))
				}
				table.Append(row)
			}
			table.Render()
			fmt.Fprintln(out)
		}

		if len(chart.Popular) > 0 {
			fmt.Fprintln(out, "Popular artists:")
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"#", "Artist", "Songs"})
			for i, item := range chart.Popular {
				table.Append([]string{fmt.Sprint(i + 1), item.Artist, fmt.Sprint(item.Tracks)})
			}
			table.Render()
			fmt.Fprintln(out)
		}
	}
}
