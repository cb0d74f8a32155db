package scheduler

import "context"

// RunLock serialises report runs. Every task that loads and saves the
// snapshot holds it for the whole run.
type RunLock struct {
	ch chan struct{}
}

func NewRunLock() *RunLock {
	return &RunLock{ch: make(chan struct{}, 1)}
}

// Lock waits for the lock or for ctx to be done.
func (l *RunLock) Lock(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock takes the lock if it is free.
func (l *RunLock) TryLock() bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *RunLock) Unlock() {
	select {
	case <-l.ch:
	default:
		panic("scheduler: unlock of unlocked RunLock")
	}
}
