package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"fonttrack/internal/ft"
	"fonttrack/internal/metrics"
)

// BreakerSettings controls when the catalog circuit opens.
type BreakerSettings struct {
	// MinRequests is the number of requests in the current interval before
	// the failure ratio is considered.
	MinRequests  uint32
	FailureRatio float64
	// Interval resets the counts while the circuit is closed.
	Interval time.Duration
	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration
	// MaxHalfOpen is the number of trial requests allowed while half-open.
	MaxHalfOpen uint32
}

// DefaultBreakerSettings opens the circuit when at least 60% of 10 or more
// requests in a minute fail, and tries again after two minutes.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  10,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MaxHalfOpen:  3,
	}
}

// CircuitBreakerClient stops sending requests to a catalog that keeps failing.
// While the circuit is open every call fails immediately, which the reconciler
// records as a per-path failure like any other.
//
// Only transport errors and temporary HTTP errors (429, 5xx) count against the
// catalog. A 4xx answer means the catalog is up and rejected one record.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
	logger ft.Logger
}

// NewCircuitBreakerClient wraps client with a circuit breaker named name.
func NewCircuitBreakerClient(client Client, name string, settings BreakerSettings, logger ft.Logger) *CircuitBreakerClient {
	if logger == nil {
		logger = ft.NewNopLogger()
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxHalfOpen,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= settings.FailureRatio
			if shouldTrip {
				logger.Warn("opening catalog circuit", "failures", counts.TotalFailures, "requests", counts.Requests)
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logger.Info("catalog circuit state change", "from", fromStr, "to", toStr)

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var httpErr *HTTPError
			return errors.As(err, &httpErr) && !httpErr.Temporary()
		},
		IsExcluded: func(err error) bool {
			// A cancelled run says nothing about the catalog's health.
			return errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: name, logger: logger}
}

// State returns the current circuit state: "closed", "half-open" or "open".
func (c *CircuitBreakerClient) State() string {
	return stateToString(c.cb.State())
}

func (c *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			return nil, fmt.Errorf("catalog unavailable: %w", err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(float64(c.cb.Counts().ConsecutiveFailures))
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(0)
	return result, nil
}

func (c *CircuitBreakerClient) Create(ctx context.Context, rec ft.FontRecord) error {
	_, err := c.execute(func() (any, error) { return nil, c.client.Create(ctx, rec) })
	return err
}

func (c *CircuitBreakerClient) Update(ctx context.Context, rec ft.FontRecord) error {
	_, err := c.execute(func() (any, error) { return nil, c.client.Update(ctx, rec) })
	return err
}

func (c *CircuitBreakerClient) Delete(ctx context.Context, rec ft.FontRecord) error {
	_, err := c.execute(func() (any, error) { return nil, c.client.Delete(ctx, rec) })
	return err
}

func (c *CircuitBreakerClient) UpsertMany(ctx context.Context, recs []ft.FontRecord) error {
	_, err := c.execute(func() (any, error) { return nil, c.client.UpsertMany(ctx, recs) })
	return err
}

func (c *CircuitBreakerClient) Query(ctx context.Context, q ft.FontQuery, skip, limit int) ([]ft.FontRecord, error) {
	result, err := c.execute(func() (any, error) { return c.client.Query(ctx, q, skip, limit) })
	if err != nil {
		return nil, err
	}
	recs, ok := result.([]ft.FontRecord)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return recs, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var _ Client = (*CircuitBreakerClient)(nil)
