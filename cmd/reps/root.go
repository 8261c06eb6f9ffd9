package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "reps",
	Short: "Workout session engine with rest timers",
	Long: `reps runs workout sessions built from routines: it tracks sets,
advances exercises, and schedules rest timers with halfway and
final-countdown notifications.

  $ reps serve                # start the HTTP + websocket server
  $ reps demo                 # run an in-memory workout walkthrough
  $ reps version              # print the build version`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd, demoCmd, versionCmd)
}
