package model

import "time"

// SyncOperation is one recorded report run.
type SyncOperation struct {
	ID                 int64
	Operation          string // "ReportChanges" or "ReportAll"
	RunID              string
	StartedAt          time.Time
	FinishedAt         *time.Time // nil while the run is in progress
	Status             string     // "running", "success", "noop" or "error"
	FontCount          int
	Created            int
	Updated            int
	Deleted            int
	Upserted           int
	Failed             int
	ExtractionFailures int
	Error              string
}

// Duration returns how long the run took, or 0 if it has not finished.
func (op *SyncOperation) Duration() time.Duration {
	if op.FinishedAt == nil {
		return 0
	}
	return op.FinishedAt.Sub(op.StartedAt)
}

// SyncOutcome holds the counts written when a run finishes.
type SyncOutcome struct {
	Status             string
	FontCount          int
	Created            int
	Updated            int
	Deleted            int
	Upserted           int
	Failed             int
	ExtractionFailures int
	Error              string
}
