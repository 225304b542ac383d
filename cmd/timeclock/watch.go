package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/timeclock/pkg/auth"
	"github.com/cuemby/timeclock/pkg/events"
	"github.com/cuemby/timeclock/pkg/health"
	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/cuemby/timeclock/pkg/timer"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live elapsed-time display",
	Long: `Show a live display of the current session, redrawn every second.

The elapsed time is always derived from the service's clock-in instant. The
session is re-checked against the service every --refresh interval, and a
logout or expired token elsewhere stops the display.

Examples:
  timeclock watch
  timeclock watch --metrics-addr 127.0.0.1:9464`,
	RunE: withApp(runWatch),
}

func init() {
	watchCmd.Flags().Duration("refresh", time.Minute, "How often to re-check the session with the service")
	watchCmd.Flags().String("metrics-addr", "", "Serve /metrics, /health and /ready on this address")
}

func runWatch(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	refreshEvery, _ := cmd.Flags().GetDuration("refresh")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if refreshEvery <= 0 {
		return fmt.Errorf("--refresh must be positive")
	}

	user, err := a.requireUser(ctx)
	if err != nil {
		return err
	}
	ctrl, err := a.newController(nil, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := a.broker.Subscribe(events.EventUserChanged)
	defer a.broker.Unsubscribe(sub)
	go ctrl.Run(ctx, sub)

	_ = ctrl.Reconcile(ctx, user)

	logger := log.WithComponent("watch")

	monitor := health.NewMonitor(health.Config{Interval: refreshEvery, Timeout: a.cfg.Timeout, Retries: 2},
		health.NewAPIChecker(a.cfg.APIURL))
	monitor.Start()
	defer monitor.Stop()

	if metricsAddr != "" {
		collector := metrics.NewCollector(ctrl, 5*time.Second)
		collector.Start()
		defer collector.Stop()

		srv := &http.Server{Addr: metricsAddr, Handler: metrics.NewMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", metricsAddr).Msg("Serving metrics")
	}

	display := timer.NewTicker(ctrl.Timer(), timer.DefaultTickInterval, func(running bool, elapsed time.Duration) {
		line := statusLine(ctrl.State(), elapsed)
		if !monitor.Healthy(metrics.ComponentAPI) {
			line += "  (service unreachable)"
		}
		fmt.Fprintf(a.out, "\r\033[K%s", line)
	})
	display.Start()
	defer func() {
		display.Stop()
		fmt.Fprintln(a.out)
	}()

	refresh := time.NewTicker(refreshEvery)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-refresh.C:
			user, err := a.session.Refresh(ctx)
			if errors.Is(err, auth.ErrLoginRequired) {
				return fmt.Errorf("session ended: run 'timeclock login'")
			}
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to refresh profile")
				continue
			}
			_ = ctrl.Reconcile(ctx, user)
		}
	}
}
