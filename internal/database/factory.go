package database

import (
	"fmt"
	"os"
	"path/filepath"

	"fonttrack/internal/config"
	"fonttrack/internal/ft"
)

// NewDatabaseFromConfig opens the SQLite database selected by the config type.
// The schema is not migrated; callers run MigrateUp or CheckMigrations.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string, clock ft.Clock) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, hostID+".db")
		return NewSQLiteDatabase(dbPath, clock)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
