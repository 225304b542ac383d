package main

import (
	"fmt"
	"os"

	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "timeclock",
	Short: "Timeclock - geofenced attendance from the command line",
	Long: `Timeclock clocks you in and out of an attendance service.

Clocking in requires a fresh location fix inside the radius of the location
your admin assigned, plus a selfie. Clocking out is always allowed while a
session is open. Admins can list users, view reports and assign locations.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Timeclock version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))
	metrics.SetVersion(Version)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ~/.timeclock/config.yaml)")
	flags.String("api-url", "", "Attendance API base URL")
	flags.String("data-dir", "", "Directory for local state")
	flags.Float64("radius", 0, "Geofence radius in meters")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Log as JSON")
	flags.Duration("timeout", 0, "Per-request timeout")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clockInCmd)
	rootCmd.AddCommand(clockOutCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
}
