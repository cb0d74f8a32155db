package ft

import "time"

// Operation names used in reports and the sync history.
const (
	OperationReportChanges = "ReportChanges"
	OperationReportAll     = "ReportAll"
	OperationStatus        = "Status"
)

// Report describes one invocation of a sync operation.
type Report struct {
	Operation  string
	StartedAt  time.Time
	FinishedAt time.Time

	// Scanned is the number of candidate paths found on disk.
	Scanned            int
	ExtractionFailures []*ExtractionError

	// PriorLoadFailed is set when the stored snapshot could not be read and an
	// empty one was used instead.
	PriorLoadFailed bool

	// Diff and Result are only set for incremental reports that found changes.
	Diff   *Diff
	Result *ReconcileResult

	// Upserted is the number of records sent by a full report.
	Upserted int

	// NoOp is set when the current snapshot equalled the stored one.
	NoOp      bool
	Persisted bool

	// Snapshot is the current snapshot built during the run.
	Snapshot Snapshot
}

// FontCount returns the number of fonts in the snapshot built during the run.
func (r *Report) FontCount() int {
	return len(r.Snapshot)
}

// Failed returns the number of per-path remote failures.
func (r *Report) Failed() int {
	if r.Result == nil {
		return 0
	}
	return r.Result.FailedCount()
}

// Count returns the number of successful remote calls of the given kind.
func (r *Report) Count(kind OpKind) int {
	if kind == OpUpsert {
		return r.Upserted
	}
	if r.Result == nil {
		return 0
	}
	return r.Result.SucceededCount(kind)
}

// Run statuses recorded in the sync history and metrics.
const (
	StatusSuccess = "success"
	StatusNoOp    = "noop"
	StatusError   = "error"
)

// RunStatus classifies the outcome of a run. Per-path failures do not make a
// run an error; only fatal errors do.
func RunStatus(report *Report, err error) string {
	switch {
	case err != nil:
		return StatusError
	case report != nil && report.NoOp:
		return StatusNoOp
	default:
		return StatusSuccess
	}
}
