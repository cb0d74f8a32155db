package scheduler

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"fonttrack/internal/ft"
)

// RunFunc performs one report run.
type RunFunc func(ctx context.Context) error

// locked runs fn while holding lock. A failed run is logged and swallowed so
// the calling task keeps its schedule.
func locked(ctx context.Context, name string, lock *RunLock, fn RunFunc, logger ft.Logger) {
	if err := lock.Lock(ctx); err != nil {
		return
	}
	defer lock.Unlock()

	if err := fn(ctx); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Info("run interrupted by shutdown", "task", name)
			return
		}
		logger.Error("scheduled run failed", "task", name, "error", err)
	}
}

// IntervalTask runs fn every Interval plus a random delay of up to Jitter.
// It implements suture.Service.
type IntervalTask struct {
	Name     string
	Interval time.Duration
	Jitter   time.Duration
	// Immediate runs fn once as soon as the task starts.
	Immediate bool

	lock   *RunLock
	run    RunFunc
	logger ft.Logger
}

// NewIntervalTask creates an IntervalTask sharing lock with the other tasks.
func NewIntervalTask(name string, interval, jitter time.Duration, lock *RunLock, run RunFunc, logger ft.Logger) *IntervalTask {
	if logger == nil {
		logger = ft.NewNopLogger()
	}
	return &IntervalTask{
		Name:     name,
		Interval: interval,
		Jitter:   jitter,
		lock:     lock,
		run:      run,
		logger:   logger,
	}
}

func (t *IntervalTask) next() time.Duration {
	d := t.Interval
	if t.Jitter > 0 {
		d += rand.N(t.Jitter)
	}
	return d
}

// Serve implements suture.Service.
func (t *IntervalTask) Serve(ctx context.Context) error {
	if t.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if t.Immediate {
		locked(ctx, t.Name, t.lock, t.run, t.logger)
	}

	timer := time.NewTimer(t.next())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			locked(ctx, t.Name, t.lock, t.run, t.logger)
			// The next run is scheduled from the end of this one, so a slow
			// run never queues a backlog.
			timer.Reset(t.next())
		}
	}
}

func (t *IntervalTask) String() string { return t.Name }

// Watcher delivers change notifications until ctx is done.
type Watcher interface {
	Run(ctx context.Context, onChange func()) error
}

// WatchTask runs fn whenever the watcher reports a change. Changes reported
// while a run is in progress collapse into one follow-up run.
type WatchTask struct {
	Name string

	watcher Watcher
	lock    *RunLock
	run     RunFunc
	logger  ft.Logger
}

func NewWatchTask(name string, watcher Watcher, lock *RunLock, run RunFunc, logger ft.Logger) *WatchTask {
	if logger == nil {
		logger = ft.NewNopLogger()
	}
	return &WatchTask{Name: name, watcher: watcher, lock: lock, run: run, logger: logger}
}

// Serve implements suture.Service.
func (t *WatchTask) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pending := make(chan struct{}, 1)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- t.watcher.Run(ctx, func() {
			select {
			case pending <- struct{}{}:
			default:
			}
		})
	}()

	for {
		select {
		case <-ctx.Done():
			<-watchErr
			return ctx.Err()
		case err := <-watchErr:
			if err == nil {
				err = errors.New("watcher stopped")
			}
			return err
		case <-pending:
			t.logger.Debug("font change detected", "task", t.Name)
			locked(ctx, t.Name, t.lock, t.run, t.logger)
		}
	}
}

func (t *WatchTask) String() string { return t.Name }
