package worker

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintSummary renders the per-venue table and the failure list
func PrintSummary(out io.Writer, report *Report) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Venue", "ID", "Events", "Failed", "Added", "Duplicates", "Status"})

	var events, failed, added int
	for _, v := range report.Venues {
		status := "ok"
		if v.Failed() {
			status = "failed"
		}
		t.AppendRow(table.Row{v.Name, v.VenueID, v.Events, v.FailedEvents, v.Added, v.Duplicates, status})
		events += v.Events
		failed += v.FailedEvents
		added += v.Added
	}

	t.AppendFooter(table.Row{"Total", "", events, failed, added, report.Duplicates, fmt.Sprintf("%d rows", len(report.Rows))})
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.Render()

	failures := report.Failures()
	if len(failures) == 0 {
		fmt.Fprintln(out, "No failed venues")
		return
	}

	fmt.Fprintf(out, "Failed venues (%d):\n", len(failures))
	for _, v := range failures {
		fmt.Fprintf(out, "  - %s (%s): %v\n", v.Name, v.VenueID, v.Err)
	}
}
