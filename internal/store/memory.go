package store

import (
	"sync"

	"fonttrack/internal/ft"
)

// MemoryStore keeps the snapshot in process. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	snap ft.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: ft.NewSnapshot()}
}

func (s *MemoryStore) Load() (ft.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), nil
}

func (s *MemoryStore) Save(snap ft.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	return nil
}

var _ ft.SnapshotStore = (*MemoryStore)(nil)
