package database

import (
	"database/sql"
	"errors"
	"fmt"

	"fonttrack/internal/database/migrations"
	"fonttrack/internal/ft"
	"fonttrack/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase holds the sync history and, when the sqlite store is
// selected, the accepted snapshot.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock ft.Clock
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string, clock ft.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteDatabaseFromDB(db, path, clock), nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string, clock ft.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = ft.RealClock{}
	}
	return &SQLiteDatabase{db: db, path: path, clock: clock}
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
//
// The pool is limited to one connection: every connection to ":memory:" is a
// separate database, and PRAGMAs apply per connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Snapshot store

// Load returns the stored snapshot. An empty database yields an empty snapshot.
func (s *SQLiteDatabase) Load() (ft.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT f.path, a.name, a.value
		FROM snapshot_fonts f
		LEFT JOIN snapshot_attributes a ON a.path = f.path
		ORDER BY f.path, a.name`)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	defer rows.Close()

	snap := ft.NewSnapshot()
	for rows.Next() {
		var path string
		var name, value sql.NullString
		if err := rows.Scan(&path, &name, &value); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		attrs, ok := snap[ft.FontPath(path)]
		if !ok {
			attrs = ft.Attributes{}
			snap[ft.FontPath(path)] = attrs
		}
		if name.Valid {
			attrs[name.String] = value.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return snap, nil
}

// Save replaces the stored snapshot in a single transaction.
func (s *SQLiteDatabase) Save(snap ft.Snapshot) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM snapshot_fonts"); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}

	fontStmt, err := tx.Prepare("INSERT INTO snapshot_fonts (path, updated_at) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing font insert: %w", err)
	}
	defer fontStmt.Close()

	attrStmt, err := tx.Prepare("INSERT INTO snapshot_attributes (path, name, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing attribute insert: %w", err)
	}
	defer attrStmt.Close()

	now := s.clock.Now().UTC()
	for _, path := range snap.Paths() {
		if _, err = fontStmt.Exec(string(path), now); err != nil {
			return fmt.Errorf("inserting font %s: %w", path, err)
		}
		attrs := snap[path]
		for _, name := range attrs.Keys() {
			if _, err = attrStmt.Exec(string(path), name, attrs[name]); err != nil {
				return fmt.Errorf("inserting attribute %s of %s: %w", name, path, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// Sync operation tracking

// CreateSyncOperation records the start of a report run.
func (s *SQLiteDatabase) CreateSyncOperation(operation, runID string) (*model.SyncOperation, error) {
	startedAt := s.clock.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO sync_operations (operation, run_id, started_at, status) VALUES (?, ?, ?, 'running')",
		operation, runID, startedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating sync operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading sync operation id: %w", err)
	}
	return &model.SyncOperation{
		ID:        id,
		Operation: operation,
		RunID:     runID,
		StartedAt: startedAt,
		Status:    "running",
	}, nil
}

// FinishSyncOperation records the outcome of a report run.
func (s *SQLiteDatabase) FinishSyncOperation(id int64, outcome model.SyncOutcome) error {
	res, err := s.db.Exec(`
		UPDATE sync_operations
		SET finished_at = ?, status = ?, font_count = ?, created = ?, updated = ?, deleted = ?,
		    upserted = ?, failed = ?, extraction_failures = ?, error = ?
		WHERE id = ?`,
		s.clock.Now().UTC(), outcome.Status, outcome.FontCount, outcome.Created, outcome.Updated, outcome.Deleted,
		outcome.Upserted, outcome.Failed, outcome.ExtractionFailures, outcome.Error,
		id,
	)
	if err != nil {
		return fmt.Errorf("finishing sync operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing sync operation: no operation with id %d", id)
	}
	return nil
}

// FindSyncOperation returns the operation with the given id, or nil if there is none.
func (s *SQLiteDatabase) FindSyncOperation(id int64) (*model.SyncOperation, error) {
	row := s.db.QueryRow(selectSyncOperation+" WHERE id = ?", id)
	op, err := scanSyncOperation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding sync operation: %w", err)
	}
	return op, nil
}

// ListSyncOperations returns the most recent operations, newest first.
func (s *SQLiteDatabase) ListSyncOperations(limit int) ([]*model.SyncOperation, error) {
	rows, err := s.db.Query(selectSyncOperation+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.SyncOperation
	for rows.Next() {
		op, err := scanSyncOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sync operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// MaxSyncOperationID returns the highest operation id, or 0 if none exist.
func (s *SQLiteDatabase) MaxSyncOperationID() (int64, error) {
	var id int64
	if err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM sync_operations").Scan(&id); err != nil {
		return 0, fmt.Errorf("getting max sync operation ID: %w", err)
	}
	return id, nil
}

const selectSyncOperation = `
	SELECT id, operation, run_id, started_at, finished_at, status, font_count, created, updated,
	       deleted, upserted, failed, extraction_failures, error
	FROM sync_operations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncOperation(row rowScanner) (*model.SyncOperation, error) {
	op := &model.SyncOperation{}
	var finishedAt sql.NullTime
	err := row.Scan(
		&op.ID, &op.Operation, &op.RunID, &op.StartedAt, &finishedAt, &op.Status, &op.FontCount,
		&op.Created, &op.Updated, &op.Deleted, &op.Upserted, &op.Failed, &op.ExtractionFailures, &op.Error,
	)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		op.FinishedAt = &t
	}
	return op, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrateUp applies any pending schema migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the schema version of the database.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.GetStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ ft.SnapshotStore = (*SQLiteDatabase)(nil)
