package testutil

import (
	"sync"

	"fonttrack/internal/ft"
)

// FlakyStore is an in-memory SnapshotStore whose reads and writes can be made
// to fail.
type FlakyStore struct {
	mu      sync.Mutex
	snap    ft.Snapshot
	saves   int
	LoadErr error
	SaveErr error
}

// NewFlakyStore creates a FlakyStore holding initial.
func NewFlakyStore(initial ft.Snapshot) *FlakyStore {
	if initial == nil {
		initial = ft.NewSnapshot()
	}
	return &FlakyStore{snap: initial.Clone()}
}

func (s *FlakyStore) Load() (ft.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.snap.Clone(), nil
}

func (s *FlakyStore) Save(snap ft.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.snap = snap.Clone()
	s.saves++
	return nil
}

// Current returns the stored snapshot regardless of LoadErr.
func (s *FlakyStore) Current() ft.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Saves returns how many times Save succeeded.
func (s *FlakyStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
