package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/timeclock/pkg/client"
	"github.com/cuemby/timeclock/pkg/report"
	"github.com/cuemby/timeclock/pkg/types"
	"github.com/spf13/cobra"
)

const dateFlagLayout = "2006-01-02"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List your attendance sessions",
	Long: `List your attendance sessions, newest first. Without a range the last
five sessions are shown.

Examples:
  timeclock report
  timeclock report --from 2026-10-01 --to 2026-10-31
  timeclock report --from 2026-10-01 --to 2026-10-31 --xlsx october.xlsx`,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		user, err := a.requireUser(ctx)
		if err != nil {
			return err
		}
		q, from, to, err := sessionQuery(cmd, false)
		if err != nil {
			return err
		}
		list, err := a.api.ListSessions(ctx, user.ID, q)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		rep := report.Build(list, report.Options{Title: "Self Reporting", From: from, To: to})
		return emitReport(cmd, a, rep)
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent clock-in and clock-out attempts recorded on this device",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all-users")

		userID := ""
		if !all {
			profile, err := a.store.GetProfile()
			if err != nil {
				return fmt.Errorf("no cached profile: run 'timeclock login' or pass --all-users")
			}
			userID = profile.ID
		}

		attempts, err := a.store.ListAttempts(userID, limit)
		if err != nil {
			return fmt.Errorf("failed to read attempt journal: %w", err)
		}
		return report.WriteAttempts(a.out, attempts)
	}),
}

func init() {
	rangeFlags(reportCmd)
	reportCmd.Flags().Int("limit", 5, "Number of recent sessions when no range is given")

	historyCmd.Flags().Int("limit", 20, "Maximum number of attempts to show")
	historyCmd.Flags().Bool("all-users", false, "Include attempts of every user on this device")
}

func rangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "First day of the range (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day of the range (YYYY-MM-DD)")
	cmd.Flags().String("xlsx", "", "Write the report to this spreadsheet file instead of the terminal")
}

// sessionQuery turns --from/--to into a day-aligned range in local time
func sessionQuery(cmd *cobra.Command, rangeRequired bool) (client.SessionQuery, *time.Time, *time.Time, error) {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	if fromStr == "" && toStr == "" {
		if rangeRequired {
			return client.SessionQuery{}, nil, nil, fmt.Errorf("--from and --to are required")
		}
		q := client.RecentSessions()
		if cmd.Flags().Lookup("limit") != nil {
			q.Limit, _ = cmd.Flags().GetInt("limit")
		}
		return q, nil, nil, nil
	}
	if fromStr == "" || toStr == "" {
		return client.SessionQuery{}, nil, nil, fmt.Errorf("--from and --to must be given together")
	}

	from, err := time.ParseInLocation(dateFlagLayout, fromStr, time.Local)
	if err != nil {
		return client.SessionQuery{}, nil, nil, fmt.Errorf("invalid --from: %w", err)
	}
	toDay, err := time.ParseInLocation(dateFlagLayout, toStr, time.Local)
	if err != nil {
		return client.SessionQuery{}, nil, nil, fmt.Errorf("invalid --to: %w", err)
	}
	if toDay.Before(from) {
		return client.SessionQuery{}, nil, nil, fmt.Errorf("--to is before --from")
	}
	end := toDay.AddDate(0, 0, 1).Add(-time.Millisecond)

	return client.SessionQuery{Start: &from, End: &end}, &from, &toDay, nil
}

func emitReport(cmd *cobra.Command, a *app, rep *report.Report) error {
	path, _ := cmd.Flags().GetString("xlsx")
	if path == "" {
		return rep.WriteText(a.out)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := rep.WriteXLSX(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "✓ Wrote %d sessions to %s\n", len(rep.Rows), path)
	return nil
}

// findUser resolves a user by ID, username or email from the admin user list
func findUser(users []*types.User, ref string) (*types.User, error) {
	for _, u := range users {
		if u.ID == ref || u.Username == ref || u.Email == ref {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %q not found", ref)
}
