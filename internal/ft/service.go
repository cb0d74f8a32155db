package ft

import (
	"context"
	"fmt"
)

// SyncService coordinates scanning, snapshot building, diffing and
// reconciliation for the two report operations.
//
// It holds no locks. Callers must not run two operations at the same time
// against the same store.
type SyncService struct {
	scanner    Scanner
	builder    *SnapshotBuilder
	store      SnapshotStore
	reconciler *Reconciler
	logger     Logger
	clock      Clock
	observer   Observer
}

// NewSyncService creates a new SyncService with the provided dependencies.
func NewSyncService(scanner Scanner, builder *SnapshotBuilder, store SnapshotStore, reconciler *Reconciler, logger Logger, clock Clock, observer Observer) *SyncService {
	if observer == nil {
		observer = NopObserver{}
	}
	return &SyncService{
		scanner:    scanner,
		builder:    builder,
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		clock:      clock,
		observer:   observer,
	}
}

// ReportChanges sends only what changed since the stored snapshot.
// When nothing changed no remote call is made and nothing is written.
// Per-path remote failures are reported in the result but do not stop the
// new snapshot from being persisted.
func (s *SyncService) ReportChanges(ctx context.Context) (*Report, error) {
	report := s.newReport(OperationReportChanges)
	err := s.reportChanges(ctx, report)
	return s.finish(report, err)
}

func (s *SyncService) reportChanges(ctx context.Context, report *Report) error {
	prior := s.loadPrior(report)

	current, err := s.buildCurrent(report)
	if err != nil {
		return err
	}

	if prior.Equal(current) {
		report.NoOp = true
		s.logger.Debug("no font changes", "fonts", len(current))
		return nil
	}

	diff := ComputeDiff(prior, current)
	report.Diff = diff
	s.logger.Info("font changes detected",
		"added", len(diff.Added),
		"removed", len(diff.Removed),
		"modified", len(diff.Modified),
		"unchanged", len(diff.Unchanged),
	)

	result := s.reconciler.ReconcileIncremental(ctx, diff, prior, current)
	report.Result = result
	if result.Interrupted {
		return fmt.Errorf("%w: %d of %d changes not sent", ErrInterrupted, result.FailedCount(), len(diff.Added)+len(diff.Removed)+len(diff.Modified))
	}
	if n := result.FailedCount(); n > 0 {
		s.logger.Warn("some remote calls failed; committing snapshot anyway", "failed", n)
	}

	return s.persist(report, current)
}

// ReportAll sends every current font with one bulk upsert, ignoring the
// stored snapshot. The snapshot is persisted only if the upsert succeeds.
func (s *SyncService) ReportAll(ctx context.Context) (*Report, error) {
	report := s.newReport(OperationReportAll)
	err := s.reportAll(ctx, report)
	return s.finish(report, err)
}

func (s *SyncService) reportAll(ctx context.Context, report *Report) error {
	current, err := s.buildCurrent(report)
	if err != nil {
		return err
	}

	if err := s.reconciler.ReconcileAll(ctx, current); err != nil {
		s.logger.Error("bulk upsert failed; snapshot not persisted", "fonts", len(current), "error", err)
		return err
	}
	report.Upserted = len(current)
	s.logger.Info("bulk upsert complete", "fonts", len(current))

	return s.persist(report, current)
}

// Status computes what ReportChanges would send without calling the catalog
// or writing the store.
func (s *SyncService) Status(ctx context.Context) (*Report, error) {
	report := s.newReport(OperationStatus)
	prior := s.loadPrior(report)

	current, err := s.buildCurrent(report)
	if err != nil {
		report.FinishedAt = s.clock.Now()
		return report, err
	}

	report.NoOp = prior.Equal(current)
	report.Diff = ComputeDiff(prior, current)
	report.FinishedAt = s.clock.Now()
	return report, ctx.Err()
}

func (s *SyncService) newReport(operation string) *Report {
	return &Report{
		Operation: operation,
		StartedAt: s.clock.Now(),
	}
}

func (s *SyncService) finish(report *Report, err error) (*Report, error) {
	report.FinishedAt = s.clock.Now()
	s.observer.ObserveRun(report, err)
	return report, err
}

// loadPrior reads the stored snapshot. A read failure is treated as if
// nothing had ever been stored.
func (s *SyncService) loadPrior(report *Report) Snapshot {
	prior, err := s.store.Load()
	if err != nil {
		s.logger.Warn("could not load stored snapshot; treating as empty", "error", err)
		report.PriorLoadFailed = true
		return NewSnapshot()
	}
	if prior == nil {
		return NewSnapshot()
	}
	return prior
}

func (s *SyncService) buildCurrent(report *Report) (Snapshot, error) {
	paths, err := s.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("scanning for fonts: %w", err)
	}
	report.Scanned = len(paths)

	current, failures := s.builder.Build(paths)
	report.ExtractionFailures = failures
	report.Snapshot = current
	if len(failures) > 0 {
		s.logger.Warn("fonts skipped after extraction failures", "skipped", len(failures), "fonts", len(current))
	}
	return current, nil
}

func (s *SyncService) persist(report *Report, current Snapshot) error {
	if err := s.store.Save(current); err != nil {
		s.logger.Error("failed to persist snapshot", "error", err)
		return &StoreWriteError{Err: err}
	}
	report.Persisted = true
	s.logger.Debug("snapshot persisted", "fonts", len(current))
	return nil
}
