package ft

// SnapshotStore persists the last accepted snapshot as a whole.
// Load after Save must return a snapshot equal to the one saved.
type SnapshotStore interface {
	// Load returns the stored snapshot, or an empty one if nothing was saved yet.
	Load() (Snapshot, error)

	// Save replaces the stored snapshot.
	Save(s Snapshot) error
}
