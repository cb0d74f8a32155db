package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fonttrack/internal/catalog"
	"fonttrack/internal/config"
	"fonttrack/internal/database"
	"fonttrack/internal/database/migrations"
	"fonttrack/internal/encryption"
	"fonttrack/internal/fontmeta"
	"fonttrack/internal/fs"
	"fonttrack/internal/ft"
	"fonttrack/internal/metrics"
	"fonttrack/internal/model"
	"fonttrack/internal/scheduler"
	"fonttrack/internal/store"
	"fonttrack/internal/vault"
)

// FTApp is the application layer between the CLI and the sync service.
// It constructs all dependencies from config, records every report run in
// the sync history, mirrors accepted snapshots to the vault, and manages
// resource lifetimes on Close.
type FTApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	store     ft.SnapshotStore
	catalog   catalog.Client
	scanner   *fs.OSFontScanner
	extractor ft.Extractor
	schema    *ft.Schema
	vault     ft.Vault // nil when no vault is configured
	encryptor ft.Encryptor
	observer  ft.Observer
	lock      *scheduler.RunLock

	handler *ftHandler
	logger  *slog.Logger
	logFile *os.File

	clock ft.Clock
	ids   ft.IDGenerator
}

type options struct {
	clock     ft.Clock
	ids       ft.IDGenerator
	stderr    io.Writer
	level     slog.Leveler
	catalog   catalog.Client
	vault     ft.Vault
	encryptor ft.Encryptor
}

// Option customizes NewFTApp.
type Option func(*options)

// WithClock sets the clock used for run timestamps.
func WithClock(c ft.Clock) Option { return func(o *options) { o.clock = c } }

// WithIDGenerator sets the generator for run ids.
func WithIDGenerator(g ft.IDGenerator) Option { return func(o *options) { o.ids = g } }

// WithStderr sets where log lines are echoed besides the log file.
func WithStderr(w io.Writer) Option { return func(o *options) { o.stderr = w } }

// WithLogLevel sets the minimum level written to the log.
func WithLogLevel(l slog.Leveler) Option { return func(o *options) { o.level = l } }

// WithCatalog replaces the catalog built from config.
func WithCatalog(c catalog.Client) Option { return func(o *options) { o.catalog = c } }

// WithVault replaces the vault built from config.
func WithVault(v ft.Vault) Option { return func(o *options) { o.vault = v } }

// WithEncryptor replaces the encryptor built from config.
func WithEncryptor(e ft.Encryptor) Option { return func(o *options) { o.encryptor = e } }

// NewFTApp creates a fully wired FTApp from the given config.
// The caller must call Close when done.
func NewFTApp(ctx context.Context, cfg *config.Config, opts ...Option) (*FTApp, error) {
	o := options{
		clock:  ft.RealClock{},
		ids:    ft.UUIDGenerator{},
		stderr: os.Stderr,
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(&o)
	}

	handler, logFile, err := newLogHandler(cfg.LogDir, o.stderr, o.level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	a := &FTApp{
		cfg:      cfg,
		schema:   ft.NewSchema(cfg.Schema.Fields),
		observer: metrics.NewObserver(),
		lock:     scheduler.NewRunLock(),
		handler:  handler,
		logger:   slog.New(handler),
		logFile:  logFile,
		clock:    o.clock,
		ids:      o.ids,
	}
	if err := a.wire(ctx, o); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// wire builds the storage, catalog, and mirror dependencies. On error the
// caller closes whatever was already opened.
func (a *FTApp) wire(ctx context.Context, o options) error {
	cfg := a.cfg
	logger := &slogAdapter{l: a.logger}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, a.clock)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if err := db.MigrateUp(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	st, err := store.NewSnapshotStoreFromConfig(cfg.Store, db)
	if err != nil {
		return fmt.Errorf("creating snapshot store: %w", err)
	}
	a.store = st

	a.catalog = o.catalog
	if a.catalog == nil {
		c, err := catalog.NewCatalogFromConfig(cfg.Catalog, logger)
		if err != nil {
			return fmt.Errorf("creating catalog client: %w", err)
		}
		a.catalog = c
	}

	a.scanner = fs.NewOSFontScanner(cfg.Fonts, logger)
	a.extractor = fontmeta.NewSFNTExtractor()

	a.encryptor = o.encryptor
	if a.encryptor == nil {
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return fmt.Errorf("creating encryptor: %w", err)
		}
		a.encryptor = enc
	}

	a.vault = o.vault
	if a.vault == nil && len(cfg.Vaults) > 0 {
		v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
		if err != nil {
			return fmt.Errorf("creating vault: %w", err)
		}
		a.vault = v
	}
	if a.vault != nil {
		a.checkMirrorVersion()
		if !a.encryptor.IsConfigured() {
			a.logger.Warn("encryption keys are not set up; run `fonttrack config keys` before mirroring")
		}
	}
	return nil
}

// checkMirrorVersion warns when the vault holds a snapshot recorded by a run
// this host's history does not know about, which happens after the local
// data directory was wiped or replaced.
func (a *FTApp) checkMirrorVersion() {
	remote, err := a.vault.GetSnapshotVersion(a.cfg.HostID)
	if err != nil {
		a.logger.Warn("could not read mirrored snapshot version", "error", err)
		return
	}
	local, err := a.db.MaxSyncOperationID()
	if err != nil {
		a.logger.Warn("could not read local sync history", "error", err)
		return
	}
	if remote > local {
		a.logger.Warn("local history is behind the mirrored snapshot; consider `fonttrack snapshot restore`",
			"local", local, "remote", remote)
	}
}

// service builds a SyncService whose log lines carry runID.
func (a *FTApp) service(runID string) (*ft.SyncService, ft.Logger) {
	logger := &slogAdapter{l: slog.New(a.handler.withRunID(runID))}
	builder := ft.NewSnapshotBuilder(a.extractor, logger)
	reconciler := ft.NewReconciler(a.catalog, a.schema, a.cfg.UserName, logger, a.observer)
	return ft.NewSyncService(a.scanner, builder, a.store, reconciler, logger, a.clock, a.observer), logger
}

// ReportChanges sends the fonts that changed since the last accepted snapshot.
func (a *FTApp) ReportChanges(ctx context.Context) (*ft.Report, error) {
	if err := a.lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer a.lock.Unlock()
	return a.track(ctx, ft.OperationReportChanges)
}

// ReportAll sends every installed font in one bulk upsert.
func (a *FTApp) ReportAll(ctx context.Context) (*ft.Report, error) {
	if err := a.lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer a.lock.Unlock()
	return a.track(ctx, ft.OperationReportAll)
}

// Status reports what ReportChanges would send, without side effects.
func (a *FTApp) Status(ctx context.Context) (*ft.Report, error) {
	if err := a.lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer a.lock.Unlock()
	svc, _ := a.service(a.ids.New())
	return svc.Status(ctx)
}

// track runs one report operation and records it in the sync history. The
// caller holds a.lock.
func (a *FTApp) track(ctx context.Context, operation string) (*ft.Report, error) {
	runID := a.ids.New()
	svc, logger := a.service(runID)

	op, err := a.db.CreateSyncOperation(operation, runID)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", operation, err)
	}
	logger.Info("run started", "operation", operation, "id", op.ID)

	var report *ft.Report
	switch operation {
	case ft.OperationReportChanges:
		report, err = svc.ReportChanges(ctx)
	case ft.OperationReportAll:
		report, err = svc.ReportAll(ctx)
	default:
		err = fmt.Errorf("unknown operation %q", operation)
	}

	outcome := outcomeOf(report, err)
	if ferr := a.db.FinishSyncOperation(op.ID, outcome); ferr != nil {
		logger.Error("failed to record run outcome", "id", op.ID, "error", ferr)
	}
	logger.Info("run finished", "operation", operation, "status", outcome.Status, "summary", Summary(report))

	if err == nil && report.Persisted && a.vault != nil {
		if merr := a.mirror(report.Snapshot, op.ID); merr != nil {
			logger.Warn("failed to mirror snapshot", "error", merr)
		}
	}
	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			logger.Warn("failed to write metrics textfile", "path", path, "error", werr)
		}
	}
	return report, err
}

// mirror encrypts the accepted snapshot and uploads it to the vault, tagged
// with the sync operation that produced it.
func (a *FTApp) mirror(snap ft.Snapshot, version int64) error {
	data, err := store.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := a.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := a.vault.PutSnapshot(a.cfg.HostID, &buf, int64(buf.Len()), version); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	return nil
}

// RestoreSnapshot replaces the local snapshot with the copy mirrored in the
// vault. It returns the number of fonts restored.
func (a *FTApp) RestoreSnapshot(ctx context.Context, passphrase string) (int, error) {
	if a.vault == nil {
		return 0, errors.New("no vault configured")
	}
	if err := a.lock.Lock(ctx); err != nil {
		return 0, err
	}
	defer a.lock.Unlock()

	var encrypted bytes.Buffer
	if err := a.vault.GetSnapshot(a.cfg.HostID, &encrypted); err != nil {
		return 0, fmt.Errorf("downloading snapshot: %w", err)
	}
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return 0, fmt.Errorf("unlocking key: %w", err)
	}
	var plain bytes.Buffer
	if err := dc.Decrypt(&encrypted, &plain); err != nil {
		return 0, fmt.Errorf("decrypting snapshot: %w", err)
	}
	snap, err := store.UnmarshalSnapshot(plain.Bytes())
	if err != nil {
		return 0, err
	}
	if err := a.store.Save(snap); err != nil {
		return 0, fmt.Errorf("saving restored snapshot: %w", err)
	}
	a.logger.Info("snapshot restored from vault", "fonts", len(snap))
	return len(snap), nil
}

// Run reports on a schedule until ctx is done: changes every
// schedule.changes_interval and everything every schedule.full_interval.
// With watch or schedule.watch set, filesystem events under the font
// directories also trigger a change report.
func (a *FTApp) Run(ctx context.Context, watch bool) error {
	watch = watch || a.cfg.Schedule.Watch
	logger := &slogAdapter{l: a.logger}
	sched := scheduler.New(a.logger)
	s := a.cfg.Schedule

	sched.Add(scheduler.NewIntervalTask("report-changes", s.ChangesInterval.Duration, s.Jitter.Duration, a.lock,
		a.runFunc(ft.OperationReportChanges), logger))
	sched.Add(scheduler.NewIntervalTask("report-all", s.FullInterval.Duration, s.Jitter.Duration, a.lock,
		a.runFunc(ft.OperationReportAll), logger))

	if watch {
		w, err := fs.NewFontWatcher(a.scanner, s.WatchDebounce.Duration, logger)
		if err != nil {
			return fmt.Errorf("starting font watcher: %w", err)
		}
		defer w.Close()
		sched.Add(scheduler.NewWatchTask("watch-fonts", w, a.lock, a.runFunc(ft.OperationReportChanges), logger))
	}

	a.logger.Info("scheduler started",
		"changes_interval", s.ChangesInterval.Duration,
		"full_interval", s.FullInterval.Duration,
		"watch", watch)
	err := sched.Serve(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		a.logger.Info("scheduler stopped")
		return nil
	}
	return err
}

// runFunc adapts an operation to a scheduler task. The task holds a.lock.
func (a *FTApp) runFunc(operation string) scheduler.RunFunc {
	return func(ctx context.Context) error {
		_, err := a.track(ctx, operation)
		return err
	}
}

// History returns the most recent report runs, newest first.
func (a *FTApp) History(limit int) ([]*model.SyncOperation, error) {
	return a.db.ListSyncOperations(limit)
}

// RemoteList returns a page of the records the catalog holds for this user.
func (a *FTApp) RemoteList(ctx context.Context, skip, limit int) ([]ft.FontRecord, error) {
	return a.catalog.Query(ctx, ft.FontQuery{UserName: a.cfg.UserName}, skip, limit)
}

// SetupKeys generates the key pair used to encrypt mirrored snapshots.
func (a *FTApp) SetupKeys(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}

// DBStatus reports the schema version of the history database.
func (a *FTApp) DBStatus() (migrations.Status, error) {
	return a.db.MigrationStatus()
}

// BackupDB writes a consistent copy of the history database to dest.
func (a *FTApp) BackupDB(dest string) error {
	if a.db.Path() == ":memory:" {
		return errors.New("in-memory database cannot be backed up")
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup destination %s already exists", dest)
	}
	return a.db.BackupTo(dest)
}

// Catalog returns the catalog client the app reports to.
func (a *FTApp) Catalog() catalog.Client {
	return a.catalog
}

// Close releases the store, database, and log file.
func (a *FTApp) Close() error {
	var firstErr error

	if c, ok := a.store.(io.Closer); ok && a.store != ft.SnapshotStore(a.db) {
		if err := c.Close(); err != nil {
			firstErr = fmt.Errorf("closing snapshot store: %w", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
