package ft

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned when a reconciliation stops early because its
// context was cancelled. The new snapshot is not persisted.
var ErrInterrupted = errors.New("reconciliation interrupted")

// ExtractionError records a font whose metadata could not be read.
// The path is left out of the snapshot being built.
type ExtractionError struct {
	Path FontPath
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting metadata from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RemoteCallError records a single failed create, update or delete.
type RemoteCallError struct {
	Kind OpKind
	Path FontPath
	Err  error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// BulkRemoteError is returned when the bulk upsert of a full report fails.
type BulkRemoteError struct {
	Count int
	Err   error
}

func (e *BulkRemoteError) Error() string {
	return fmt.Sprintf("upserting %d fonts: %v", e.Count, e.Err)
}

func (e *BulkRemoteError) Unwrap() error { return e.Err }

// StoreWriteError is returned when the accepted snapshot cannot be persisted.
type StoreWriteError struct {
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("persisting snapshot: %v", e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
