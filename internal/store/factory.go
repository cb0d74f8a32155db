package store

import (
	"fmt"

	"fonttrack/internal/config"
	"fonttrack/internal/database"
	"fonttrack/internal/ft"
)

// NewSnapshotStoreFromConfig creates the snapshot store named by cfg.Type.
// The sqlite store shares db with the sync history. Stores holding open
// resources also implement io.Closer.
func NewSnapshotStoreFromConfig(cfg config.StoreConfig, db *database.SQLiteDatabase) (ft.SnapshotStore, error) {
	switch cfg.Type {
	case "json":
		if cfg.Path == "" {
			return nil, fmt.Errorf("json store requires path to be set")
		}
		return NewJSONFileStore(cfg.Path), nil
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite store requires a database")
		}
		return db, nil
	case "badger":
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger store requires path to be set")
		}
		s, err := OpenBadgerStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
