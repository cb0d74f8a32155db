// Package metrics exposes Prometheus metrics for report runs, catalog calls
// and the catalog circuit breaker. fonttrack has no HTTP listener, so metrics
// are exported by writing Registry to a node_exporter textfile after each run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every fonttrack metric.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// Run metrics
var (
	RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fonttrack_runs_total",
			Help: "Report runs by operation and status (success, noop, error)",
		},
		[]string{"operation", "status"},
	)

	RunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fonttrack_run_duration_seconds",
			Help:    "Duration of report runs",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	FontsTracked = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "fonttrack_fonts_tracked",
			Help: "Number of fonts in the most recently built snapshot",
		},
	)

	ChangesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fonttrack_changes_total",
			Help: "Fonts reported to the catalog by kind (create, update, delete, upsert)",
		},
		[]string{"kind"},
	)

	ExtractionFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fonttrack_extraction_failures_total",
			Help: "Fonts whose metadata could not be read",
		},
	)

	LastSuccessTimestamp = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fonttrack_last_success_timestamp_seconds",
			Help: "Unix time of the last run that did not fail",
		},
		[]string{"operation"},
	)
)

// Catalog metrics
var (
	RemoteCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fonttrack_remote_calls_total",
			Help: "Catalog calls by kind and result (success, failure)",
		},
		[]string{"kind", "result"},
	)

	CircuitBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fonttrack_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fonttrack_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerConsecutiveFailures = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fonttrack_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fonttrack_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// WriteTextfile writes the current value of every metric to path in the
// Prometheus text format. The write is atomic.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
