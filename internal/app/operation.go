package app

import (
	"fmt"
	"strings"

	"fonttrack/internal/ft"
	"fonttrack/internal/model"
)

// outcomeOf turns a finished run into the counts recorded in the sync history.
func outcomeOf(report *ft.Report, err error) model.SyncOutcome {
	out := model.SyncOutcome{Status: ft.RunStatus(report, err)}
	if err != nil {
		out.Error = err.Error()
	}
	if report == nil {
		return out
	}
	out.FontCount = report.FontCount()
	out.Created = report.Count(ft.OpCreate)
	out.Updated = report.Count(ft.OpUpdate)
	out.Deleted = report.Count(ft.OpDelete)
	out.Upserted = report.Count(ft.OpUpsert)
	out.Failed = report.Failed()
	out.ExtractionFailures = len(report.ExtractionFailures)
	return out
}

// Summary renders a report as a single human-readable line.
func Summary(report *ft.Report) string {
	if report == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d fonts", report.Operation, report.FontCount())

	switch {
	case report.NoOp:
		b.WriteString(", no changes")
	case report.Operation == ft.OperationReportAll:
		fmt.Fprintf(&b, ", %d upserted", report.Upserted)
	case report.Diff != nil:
		if report.Result != nil {
			fmt.Fprintf(&b, ", %d created, %d updated, %d deleted",
				report.Count(ft.OpCreate), report.Count(ft.OpUpdate), report.Count(ft.OpDelete))
		} else {
			fmt.Fprintf(&b, ", %d added, %d modified, %d removed",
				len(report.Diff.Added), len(report.Diff.Modified), len(report.Diff.Removed))
		}
	}
	if n := report.Failed(); n > 0 {
		fmt.Fprintf(&b, ", %d failed", n)
	}
	if n := len(report.ExtractionFailures); n > 0 {
		fmt.Fprintf(&b, ", %d unreadable", n)
	}
	if report.PriorLoadFailed {
		b.WriteString(" (stored snapshot unreadable)")
	}
	return b.String()
}
