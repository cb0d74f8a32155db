// Package scheduler runs report operations on a schedule under a suture
// supervisor. Tasks built with the same RunLock never run concurrently.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Scheduler supervises the scheduled tasks and restarts any that fail.
type Scheduler struct {
	supervisor *suture.Supervisor
}

// New creates a Scheduler whose supervisor events are logged to logger.
func New(logger *slog.Logger) *Scheduler {
	handler := &sutureslog.Handler{Logger: logger}
	spec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	}
	return &Scheduler{
		supervisor: suture.New("fonttrack", spec),
	}
}

// Add registers a task. Tasks added after Serve start immediately.
func (s *Scheduler) Add(svc suture.Service) suture.ServiceToken {
	return s.supervisor.Add(svc)
}

// Serve runs every task until ctx is done.
func (s *Scheduler) Serve(ctx context.Context) error {
	return s.supervisor.Serve(ctx)
}
