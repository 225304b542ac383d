package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/cuemby/timeclock/pkg/timer"
	"github.com/cuemby/timeclock/pkg/types"
)

const (
	dateLayout = "02 Jan 2006"
	timeLayout = "3:04:05 PM"
	notAvail   = "N/A"
)

// Row is one rendered attendance session
type Row struct {
	SessionID string
	Date      string
	ClockIn   string
	ClockOut  string
	Duration  string
	Worked    time.Duration
	Open      bool
	Selfie    string
}

// Report is a rendered list of sessions, newest first
type Report struct {
	Title string
	From  *time.Time
	To    *time.Time
	Rows  []Row
	Total *types.WorkedTotal // as computed by the service; nil when not sent
}

// Options controls how sessions are rendered
type Options struct {
	Title    string
	From     *time.Time
	To       *time.Time
	Location *time.Location // nil means time.Local
}

// Build renders a session list. Sessions are sorted by clock-in, newest first;
// open sessions show N/A for clock-out and duration.
func Build(list *types.SessionList, opts Options) *Report {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	r := &Report{Title: opts.Title, From: opts.From, To: opts.To}
	if list == nil {
		return r
	}
	r.Total = list.Total

	sessions := make([]*types.AttendanceSession, 0, len(list.Sessions))
	for _, s := range list.Sessions {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].ClockIn.After(sessions[j].ClockIn)
	})

	for _, s := range sessions {
		in := s.ClockIn.In(loc)
		row := Row{
			SessionID: s.ID,
			Date:      in.Format(dateLayout),
			ClockIn:   in.Format(timeLayout),
			ClockOut:  notAvail,
			Duration:  notAvail,
			Open:      s.IsOpen(),
			Selfie:    s.Selfie,
		}
		if s.ClockOut != nil {
			row.Worked = s.ClockOut.Sub(s.ClockIn)
			row.ClockOut = s.ClockOut.In(loc).Format(timeLayout)
			row.Duration = FormatWorked(row.Worked)
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// FormatWorked renders a closed session's length as "8 hrs 30 mins 5 secs"
func FormatWorked(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d hrs %d mins %d secs", total/3600, (total%3600)/60, total%60)
}

// WriteText writes the report as an aligned table
func (r *Report) WriteText(w io.Writer) error {
	if r.Title != "" {
		if _, err := fmt.Fprintln(w, r.Title); err != nil {
			return err
		}
	}
	if r.From != nil && r.To != nil {
		fmt.Fprintf(w, "Range: %s - %s\n", r.From.Format(dateLayout), r.To.Format(dateLayout))
	}
	if len(r.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No attendance records.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCLOCK IN\tCLOCK OUT\tTOTAL TIME")
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Date, row.ClockIn, row.ClockOut, row.Duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Total != nil {
		_, err := fmt.Fprintf(w, "Total Time: %d hr %d min %.0f s\n", r.Total.Hours, r.Total.Minutes, r.Total.Seconds)
		return err
	}
	return nil
}

// WriteUsers writes the admin user overview. Sessions embedded in the user list
// show their clock-in instant and the time elapsed since.
func WriteUsers(w io.Writer, users []*types.User, now time.Time) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, "No users.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tEMAIL\tROLE\tLOCATION\tCURRENT ATTENDANCE")
	for _, u := range users {
		location := "Location not set"
		if u.HasLocation() {
			location = DescribeLocation(u)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.Username, u.Email, u.Role, location, describeAttendance(u, now))
	}
	return tw.Flush()
}

// DescribeLocation renders a user's assigned location as "label (lat, lng)"
func DescribeLocation(u *types.User) string {
	if !u.HasLocation() {
		return "not set"
	}
	p := u.Location.Point()
	if u.Location.Label == "" {
		return fmt.Sprintf("%.6f, %.6f", p.Latitude, p.Longitude)
	}
	return fmt.Sprintf("%s (%.6f, %.6f)", u.Location.Label, p.Latitude, p.Longitude)
}

func describeAttendance(u *types.User, now time.Time) string {
	s := u.Attendance.Session
	if s == nil {
		if u.Attendance.ID != "" {
			return "Session " + u.Attendance.ID
		}
		return "No attendance data"
	}
	if !s.IsOpen() {
		return "Clocked out"
	}
	return fmt.Sprintf("Clocked on %s, elapsed %s",
		s.ClockIn.In(now.Location()).Format("02/01/2006 03:04:05 PM"),
		timer.Format(s.Duration(now)))
}
