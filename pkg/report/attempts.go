package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cuemby/timeclock/pkg/types"
)

// WriteAttempts writes the local attempt journal, newest first as given
func WriteAttempts(w io.Writer, attempts []*types.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tKIND\tOUTCOME\tDISTANCE\tSESSION\tERROR")
	for _, a := range attempts {
		distance := "-"
		if a.Fix != nil {
			distance = fmt.Sprintf("%.0f m", a.DistanceMeters)
		}
		session := a.SessionID
		if session == "" {
			session = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.StartedAt.Local().Format("2006-01-02 15:04:05"),
			a.Kind, a.Outcome, distance, session, a.Error)
	}
	return tw.Flush()
}
