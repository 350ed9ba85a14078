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
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mpetrov/music-tracker/internal/store"
)

var recentNumber int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Shows the latest recorded plays",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer st.Close()

		if err := printRecent(os.Stdout, st, recentNumber); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(recentCmd)
	recentCmd.Flags().IntVar(&recentNumber, "number", 20, "Number of plays to show")
}

func printRecent(out io.Writer, st *store.Store, n int) error {
	plays, err := st.RecentPlays(n)
	if err != nil {
		return fmt.Errorf("printRecent: %w", err)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"When", "Artist", "Title", "Album", "Channel"})
	for _, p := range plays {
		table.Append([]string{
			p.Timestamp.Format("2006-01-02 15:04"),
			p.Artist, p.Title, p.Album, p.Channel,
		})
	}
	table.Render()

	fmt.Fprintf(out, "Showing %d plays\n", len(plays))
	return nil
}
