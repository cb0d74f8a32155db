package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fonttrack/internal/ft"
)

// JSONFileStore keeps the snapshot as one JSON document on disk.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore returns a store backed by the file at path. The file does
// not need to exist yet.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the document location.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load reads the snapshot document. A missing file is the empty snapshot.
func (s *JSONFileStore) Load() (ft.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ft.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return snap, nil
}

// Save replaces the document. Readers see either the old or the new document,
// never a partial write.
func (s *JSONFileStore) Save(snap ft.Snapshot) error {
	data, err := MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".meta-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting snapshot permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing snapshot file: %w", err)
	}

	success = true
	return nil
}

var _ ft.SnapshotStore = (*JSONFileStore)(nil)
