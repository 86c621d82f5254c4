package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JonMunkholm/libingest/internal/ingest"
)

// maxListedFailures caps the rows shown in the failure table.
const maxListedFailures = 25

// printReport renders the per-entity counts and the first failed rows.
func printReport(w io.Writer, r *ingest.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	t.AppendHeader(table.Row{"Entity", "Inserted", "Duplicate", "Failed"})
	for _, e := range r.Entities {
		t.AppendRow(table.Row{e.Entity, e.Inserted, e.Duplicate, e.Failed()})
	}
	total := r.Total()
	t.AppendFooter(table.Row{"Total", total.Inserted, total.Duplicate, total.Failed()})
	t.Render()

	fmt.Fprintf(w, "Run %s (%s) finished in %s\n", r.RunID, r.Source, r.Duration.Round(time.Millisecond))
	if !r.Committed {
		fmt.Fprintln(w, "Batch was rolled back; nothing was written.")
	}
	if r.Source == ingest.SourceAPI && !r.TargetReached {
		fmt.Fprintf(w, "Target not reached: %d of %d books assembled.\n", r.Assembled, r.Target)
	}

	if len(r.FailedRows) == 0 {
		return
	}

	f := table.NewWriter()
	f.SetOutputMirror(w)
	f.Style().Format.Header = text.FormatDefault
	f.AppendHeader(table.Row{"Entity", "Location", "Outcome", "Code", "Reason"})
	for i, row := range r.FailedRows {
		if i == maxListedFailures {
			f.AppendRow(table.Row{"", "", "", "", fmt.Sprintf("... %d more", len(r.FailedRows)-i)})
			break
		}
		f.AppendRow(table.Row{row.Entity, location(row), row.Outcome, row.Code, row.Reason})
	}
	f.Render()
}

// location formats where a failed row came from.
func location(row ingest.FailedRow) string {
	switch {
	case row.File != "":
		return row.File + ":" + strconv.Itoa(row.Line)
	case row.RemoteKey != "":
		return row.RemoteKey
	default:
		return "-"
	}
}
