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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/mpetrov/music-tracker/internal/store"
)

var cfgFile string
var databasePath string
var reportPath string
var chartLimit int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "music-tracker",
	Short: "Tracks what the household media players are playing",
	Long: `Records confirmed plays from media-player state changes into a local
SQLite history log and computes daily, weekly, monthly, and yearly charts.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.music-tracker.yaml)")

	rootCmd.PersistentFlags().StringVarP(
		&databasePath, "database", "d", "./music.db", "Path to the SQLite database")
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	rootCmd.PersistentFlags().StringVar(
		&reportPath, "report", "./charts.html", "Path to the rendered HTML report")
	viper.BindPFlag("report", rootCmd.PersistentFlags().Lookup("report"))

	rootCmd.PersistentFlags().IntVar(
		&chartLimit, "limit", 10, "Number of entries per chart")
	viper.BindPFlag("limit", rootCmd.PersistentFlags().Lookup("limit"))

	viper.SetDefault("listen", ":8090")
	viper.SetDefault("duration", 30)
	viper.SetDefault("min_songs_for_album", 3)
	viper.SetDefault("update_time", "00:00:00")
	viper.SetDefault("skip_threshold", 60)
	viper.SetDefault("retention_days", 366)
	viper.SetDefault("chart_retention_days", 0)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".music-tracker" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".music-tracker")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

func openStore() (*store.Store, error) {
	st, err := store.New(viper.GetString("database"))
	if err != nil {
		return nil, fmt.Errorf("openStore: %w", err)
	}
	return st, nil
}
