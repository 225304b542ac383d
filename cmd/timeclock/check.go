package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/cuemby/timeclock/pkg/health"
	"github.com/cuemby/timeclock/pkg/log"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the attendance service and position source are reachable",
	Long: `Check that the attendance service answers and that the position source
yields a fix. No attendance request is sent.

Examples:
  timeclock check
  timeclock check --lat 23.8103 --lng 90.4125`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log.Init(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSONOutput: cfg.LogJSON})

		locator, err := locatorFor(cmd, cfg)
		if err != nil {
			return err
		}

		mon := health.NewMonitor(health.Config{Timeout: cfg.Timeout, Retries: 1},
			health.NewAPIChecker(cfg.APIURL),
			&health.LocatorChecker{Locator: locator},
		)
		results := mon.CheckAll(cmd.Context())

		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		failed := 0
		for _, name := range names {
			r := results[name]
			mark := "✓"
			if !r.Healthy {
				mark = "✗"
				failed++
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, name, r.Message, r.Duration.Round(time.Millisecond))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d checks failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	locatorFlags(checkCmd)
}
