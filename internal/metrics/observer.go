package metrics

import (
	"fonttrack/internal/ft"
)

// Observer records run and remote-call outcomes in the package metrics.
type Observer struct{}

// NewObserver returns an ft.Observer backed by Registry.
func NewObserver() *Observer {
	return &Observer{}
}

func (o *Observer) ObserveRun(report *ft.Report, err error) {
	if report == nil {
		return
	}
	status := ft.RunStatus(report, err)
	RunsTotal.WithLabelValues(report.Operation, status).Inc()
	if !report.FinishedAt.IsZero() {
		RunDuration.WithLabelValues(report.Operation).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
	ExtractionFailuresTotal.Add(float64(len(report.ExtractionFailures)))

	if err != nil {
		return
	}
	FontsTracked.Set(float64(report.FontCount()))
	for _, kind := range []ft.OpKind{ft.OpCreate, ft.OpUpdate, ft.OpDelete, ft.OpUpsert} {
		if n := report.Count(kind); n > 0 {
			ChangesTotal.WithLabelValues(string(kind)).Add(float64(n))
		}
	}
	LastSuccessTimestamp.WithLabelValues(report.Operation).Set(float64(report.FinishedAt.Unix()))
}

func (o *Observer) ObserveRemoteCall(kind ft.OpKind, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	RemoteCallsTotal.WithLabelValues(string(kind), result).Inc()
}

var _ ft.Observer = (*Observer)(nil)
