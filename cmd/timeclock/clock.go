package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/report"
	"github.com/cuemby/timeclock/pkg/selfie"
	"github.com/cuemby/timeclock/pkg/timeclock"
	"github.com/cuemby/timeclock/pkg/timer"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether you are clocked in",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		user, err := a.requireUser(ctx)
		if err != nil {
			return err
		}
		ctrl, err := a.newController(nil, nil)
		if err != nil {
			return err
		}
		// Failures are reported through the notifier and leave the state Idle
		_ = ctrl.Reconcile(ctx, user)
		printStatus(a.out, ctrl)
		return nil
	}),
}

var clockInCmd = &cobra.Command{
	Use:   "clock-in",
	Short: "Clock in at your assigned location",
	Long: `Clock in. A fresh location fix must be within the geofence radius of the
location your admin assigned, and a selfie is required.

Examples:
  # Position from flags, selfie from a file
  timeclock clock-in --lat 23.8103 --lng 90.4125 --selfie ~/me.jpg

  # Position from a GPS helper, selfie already uploaded
  timeclock clock-in --fix-file /run/gps/fix.yaml --selfie-url https://img.example/me.jpg`,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		ctrl, err := prepareClock(ctx, a, cmd)
		if err != nil {
			return err
		}
		return clockIn(ctx, a, cmd, ctrl)
	}),
}

var clockOutCmd = &cobra.Command{
	Use:   "clock-out",
	Short: "Clock out of the open session",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		ctrl, err := prepareClock(ctx, a, cmd)
		if err != nil {
			return err
		}
		return clockOut(ctx, a, ctrl)
	}),
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Clock out when clocked in, clock in otherwise",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		ctrl, err := prepareClock(ctx, a, cmd)
		if err != nil {
			return err
		}
		if ctrl.State() == timeclock.StateOpen {
			return clockOut(ctx, a, ctrl)
		}
		return clockIn(ctx, a, cmd, ctrl)
	}),
}

func init() {
	for _, cmd := range []*cobra.Command{clockInCmd, toggleCmd} {
		locatorFlags(cmd)
		cmd.Flags().String("selfie", "", "Selfie image file (prompted when omitted)")
		cmd.Flags().String("selfie-url", "", "Already uploaded selfie URL")
	}
}

// prepareClock loads the user and returns a controller reconciled against the service
func prepareClock(ctx context.Context, a *app, cmd *cobra.Command) (*timeclock.Controller, error) {
	user, err := a.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	var (
		locator geo.Locator
		camera  selfie.Camera
	)
	if cmd.Flags().Lookup("selfie") != nil {
		if locator, err = locatorFor(cmd, a.cfg); err != nil {
			return nil, err
		}
		camera = a.promptCamera()
		if path, _ := cmd.Flags().GetString("selfie"); path != "" {
			camera = selfie.FileCamera{Path: path}
		}
	}

	ctrl, err := a.newController(locator, camera)
	if err != nil {
		return nil, err
	}

	// Acting on an unconfirmed state could open a second session
	if err := ctrl.Reconcile(ctx, user); err != nil {
		return nil, fmt.Errorf("could not confirm your attendance state: %w", err)
	}
	return ctrl, nil
}

func clockIn(ctx context.Context, a *app, cmd *cobra.Command, ctrl *timeclock.Controller) error {
	if url, _ := cmd.Flags().GetString("selfie-url"); url != "" {
		if err := ctrl.AttachSelfie(ctx, url); err != nil {
			return err
		}
	}

	if err := ctrl.ClockIn(ctx); err != nil {
		return err
	}
	if ctrl.State() != timeclock.StateOpen {
		return fmt.Errorf("clock-in did not complete (state %s)", ctrl.State())
	}

	session := ctrl.Session()
	fmt.Fprintf(a.out, "✓ Clocked in at %s (session %s)\n", session.ClockIn.Local().Format("15:04:05"), session.ID)
	refreshProfile(ctx, a)
	return nil
}

func clockOut(ctx context.Context, a *app, ctrl *timeclock.Controller) error {
	worked := ctrl.Elapsed()
	if err := ctrl.ClockOut(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Clocked out after %s\n", timer.Format(worked))
	refreshProfile(ctx, a)
	return nil
}

// refreshProfile updates the cached profile's open-session reference
func refreshProfile(ctx context.Context, a *app) {
	if _, err := a.session.Refresh(ctx); err != nil {
		logger := log.WithComponent("cli")
		logger.Debug().Err(err).Msg("Failed to refresh profile")
	}
}

func printStatus(w io.Writer, ctrl *timeclock.Controller) {
	user := ctrl.User()
	switch ctrl.State() {
	case timeclock.StateLocationNotSet:
		fmt.Fprintln(w, "Location not set yet. Please ask your admin to set it up.")
		return
	case timeclock.StateOpen:
		session := ctrl.Session()
		fmt.Fprintf(w, "● Clocked in since %s  %s\n",
			session.ClockIn.Local().Format("Mon 02 Jan 15:04:05"), ctrl.Timer().String())
	default:
		fmt.Fprintln(w, "○ Clocked out  00:00:00")
	}

	if fence, ok := ctrl.Fence(); ok && user != nil {
		fmt.Fprintf(w, "  Assigned location: %s, radius %.0f m\n", report.DescribeLocation(user), fence.RadiusMeters)
	}
}

// statusLine is the single-line display redrawn by watch
func statusLine(state timeclock.State, elapsed time.Duration) string {
	switch state {
	case timeclock.StateOpen:
		return fmt.Sprintf("● Clocked in   %s", timer.Format(elapsed))
	case timeclock.StateLocationNotSet:
		return "Location not set"
	case timeclock.StateSubmitting, timeclock.StateClosingOut:
		return fmt.Sprintf("… %-12s %s", state, timer.Format(elapsed))
	default:
		return fmt.Sprintf("○ Clocked out  %s", timer.Format(0))
	}
}
