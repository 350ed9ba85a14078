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
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mpetrov/music-tracker/internal/store"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Removes skipped plays and prunes old history",
	Long: `Deletes the later event of consecutive plays closer together than the
skip threshold, prunes history past the retention window, and compacts the
database. With --dry_run, reports what would be deleted without changing
anything.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMaintenance(viper.GetBool("dry_run")); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(maintenanceCmd)

	var dryRun bool
	maintenanceCmd.Flags().BoolVar(&dryRun, "dry_run", false, "Report deletions without performing them")
	viper.BindPFlag("dry_run", maintenanceCmd.Flags().Lookup("dry_run"))
}

func maintenanceOptions(dryRun bool) store.MaintenanceOptions {
	return store.MaintenanceOptions{
		SkipThreshold:      time.Duration(viper.GetInt("skip_threshold")) * time.Second,
		RetentionDays:      viper.GetInt("retention_days"),
		ChartRetentionDays: viper.GetInt("chart_retention_days"),
		DryRun:             dryRun,
		Compact:            !dryRun,
	}
}

func runMaintenance(dryRun bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mr, err := st.RunMaintenance(maintenanceOptions(dryRun))
	if err != nil {
		return fmt.Errorf("runMaintenance: %w", err)
	}

	if mr.DryRun {
		fmt.Println("Dry run - nothing was deleted.")
	}
	fmt.Printf("Skips deleted: %d\n", mr.SkipsDeleted)
	fmt.Printf("Plays pruned: %d\n", mr.PlaysPruned)
	fmt.Printf("Snapshots pruned: %d\n", mr.SnapshotsPruned)
	return nil
}
