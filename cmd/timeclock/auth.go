package main

import (
	"context"
	"fmt"

	"github.com/cuemby/timeclock/pkg/client"
	"github.com/cuemby/timeclock/pkg/report"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the attendance service",
	Long: `Log in with your email and password. The token is stored in the data
directory and reused by every other command until it expires or you log out.

Examples:
  timeclock login --email rahim@example.com
  timeclock login --email boss@example.com --password secret`,
	RunE: withApp(runLogin),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if err := a.session.Logout(); err != nil {
			return fmt.Errorf("failed to log out: %w", err)
		}
		fmt.Fprintln(a.out, "✓ Logged out")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		user, err := a.requireUser(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Username: %s\n", user.Username)
		fmt.Fprintf(a.out, "Email:    %s\n", user.Email)
		fmt.Fprintf(a.out, "Role:     %s\n", user.Role)
		fmt.Fprintf(a.out, "Location: %s\n", report.DescribeLocation(user))
		return nil
	}),
}

func init() {
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (prompted when omitted)")
}

func runLogin(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	var err error
	if email == "" {
		if email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = a.prompt("Password: "); err != nil {
			return err
		}
	}

	user, err := a.session.Login(ctx, client.Credentials{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(a.out, "✓ Logged in as %s (%s)\n", user.Username, user.Role)
	if !user.HasLocation() && !user.IsAdmin() {
		fmt.Fprintln(a.out, "  Location not set yet. Please ask your admin to set it up.")
	}
	return nil
}
