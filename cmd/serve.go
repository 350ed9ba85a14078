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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mpetrov/music-tracker/internal/debounce"
	"github.com/mpetrov/music-tracker/internal/pipeline"
	"github.com/mpetrov/music-tracker/internal/schedule"
	"github.com/mpetrov/music-tracker/internal/store"
	"github.com/mpetrov/music-tracker/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the tracking daemon",
	Long: `Listens for media-player state changes on the event webhook, records
confirmed plays, and regenerates the charts once a day at the configured time.
The daily pass also runs maintenance: skip removal and retention pruning.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	var listen string
	serveCmd.Flags().StringVar(&listen, "listen", ":8090", "Address to listen on")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func runServe() error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	players := viper.GetStringSlice("media_players")
	if len(players) == 0 {
		return fmt.Errorf("no media_players configured")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deb := debounce.New()
	go deb.Run(ctx)

	registry := web.NewRegistry()
	confirmAfter := time.Duration(viper.GetInt("duration")) * time.Second
	pipe := pipeline.New(st, deb, registry.Get, confirmAfter, log)
	defer pipe.Stop()

	srv := web.New(pipe, registry, players, viper.GetString("report"), log)

	go func() {
		err := schedule.Daily(ctx, viper.GetString("update_time"), func() {
			runDailyCycle(ctx, st, log)
		})
		if err != nil && ctx.Err() == nil {
			log.Error("scheduler stopped", zap.Error(err))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(viper.GetString("listen"))
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	return nil
}

// runDailyCycle is the scheduled pass: maintenance first, then chart
// computation and report rendering. Failures are logged and the pass is
// retried at the next scheduled time, never sooner.
func runDailyCycle(ctx context.Context, st *store.Store, log *zap.Logger) {
	mr, err := st.RunMaintenance(maintenanceOptions(false))
	if err != nil {
		log.Error("maintenance failed", zap.Error(err))
	} else {
		log.Info("maintenance complete",
			zap.Int64("skips_deleted", mr.SkipsDeleted),
			zap.Int64("plays_pruned", mr.PlaysPruned),
			zap.Int64("snapshots_pruned", mr.SnapshotsPruned))
	}

	_, narrativeErr, err := generateReport(ctx, st)
	if err != nil {
		log.Error("chart generation failed", zap.Error(err))
		return
	}
	if narrativeErr != nil {
		log.Warn("narrative generation failed", zap.Error(narrativeErr))
	}
	log.Info("charts regenerated", zap.String("report", viper.GetString("report")))
}
