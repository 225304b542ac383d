package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/timeclock/pkg/client"
	"github.com/cuemby/timeclock/pkg/report"
	"github.com/cuemby/timeclock/pkg/types"
	"github.com/spf13/cobra"
)

// Admin commands
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer users, locations and reports (admin role required)",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List all users with their location and current attendance",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if _, err := a.requireAdmin(ctx); err != nil {
			return err
		}
		users, err := a.api.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		return report.WriteUsers(a.out, users, time.Now())
	}),
}

var adminReportCmd = &cobra.Command{
	Use:   "report USER --from DATE --to DATE",
	Short: "Show a user's attendance over a date range",
	Long: `Show a user's attendance over a date range. USER is a user ID, username
or email. The total time is the one computed by the attendance service.

Examples:
  timeclock admin report rahim --from 2026-10-01 --to 2026-10-31
  timeclock admin report rahim --from 2026-10-01 --to 2026-10-31 --xlsx rahim.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if _, err := a.requireAdmin(ctx); err != nil {
			return err
		}
		q, from, to, err := sessionQuery(cmd, true)
		if err != nil {
			return err
		}
		user, err := lookupUser(ctx, a, args[0])
		if err != nil {
			return err
		}
		list, err := a.api.ListSessions(ctx, user.ID, q)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		rep := report.Build(list, report.Options{Title: "Report: " + user.Username, From: from, To: to})
		return emitReport(cmd, a, rep)
	}),
}

var adminSetLocationCmd = &cobra.Command{
	Use:   "set-location USER --lat LAT --lng LNG",
	Short: "Assign the permitted clock-in location of a user",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if _, err := a.requireAdmin(ctx); err != nil {
			return err
		}
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		label, _ := cmd.Flags().GetString("label")

		user, err := lookupUser(ctx, a, args[0])
		if err != nil {
			return err
		}
		msg, err := a.api.SetLocation(ctx, user.ID, client.LocationUpdate{Lat: lat, Lng: lng, Label: label})
		if err != nil {
			return fmt.Errorf("failed to set location: %w", err)
		}
		if msg == "" {
			msg = "Location updated"
		}
		fmt.Fprintf(a.out, "✓ %s for %s (%.6f, %.6f)\n", msg, user.Username, lat, lng)
		return nil
	}),
}

var adminRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a user account",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if _, err := a.requireAdmin(ctx); err != nil {
			return err
		}
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		role, _ := cmd.Flags().GetString("role")

		if password == "" {
			var err error
			if password, err = a.prompt("Password for " + username + ": "); err != nil {
				return err
			}
		}

		err := a.session.Register(ctx, client.RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
			Role:     types.Role(role),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "✓ Registered %s (%s)\n", username, role)
		return nil
	}),
}

func init() {
	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminReportCmd)
	adminCmd.AddCommand(adminSetLocationCmd)
	adminCmd.AddCommand(adminRegisterCmd)

	rangeFlags(adminReportCmd)

	adminSetLocationCmd.Flags().Float64("lat", 0, "Latitude of the permitted location")
	adminSetLocationCmd.Flags().Float64("lng", 0, "Longitude of the permitted location")
	adminSetLocationCmd.Flags().String("label", "", "Human-readable place name")
	_ = adminSetLocationCmd.MarkFlagRequired("lat")
	_ = adminSetLocationCmd.MarkFlagRequired("lng")

	adminRegisterCmd.Flags().String("username", "", "Username (required)")
	adminRegisterCmd.Flags().String("email", "", "Email (required)")
	adminRegisterCmd.Flags().String("password", "", "Password, 6-20 characters (prompted when omitted)")
	adminRegisterCmd.Flags().String("role", string(types.RoleUser), "Role: user or admin")
	_ = adminRegisterCmd.MarkFlagRequired("username")
	_ = adminRegisterCmd.MarkFlagRequired("email")
}

func lookupUser(ctx context.Context, a *app, ref string) (*types.User, error) {
	users, err := a.api.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return findUser(users, ref)
}
