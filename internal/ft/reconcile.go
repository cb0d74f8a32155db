package ft

import "context"

// OpKind names a remote catalog operation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
	OpUpsert OpKind = "upsert"
)

// ReconcileResult reports the per-path outcome of an incremental reconciliation.
type ReconcileResult struct {
	Succeeded map[OpKind][]FontPath
	Failed    map[OpKind][]*RemoteCallError

	// Interrupted is set when the context was cancelled before every call was
	// issued. Paths that were never sent are reported as failed.
	Interrupted bool
}

func newReconcileResult() *ReconcileResult {
	return &ReconcileResult{
		Succeeded: map[OpKind][]FontPath{},
		Failed:    map[OpKind][]*RemoteCallError{},
	}
}

// SucceededCount returns the number of successful calls of the given kind.
func (r *ReconcileResult) SucceededCount(kind OpKind) int {
	return len(r.Succeeded[kind])
}

// FailedCount returns the number of failed calls across all kinds.
func (r *ReconcileResult) FailedCount() int {
	n := 0
	for _, errs := range r.Failed {
		n += len(errs)
	}
	return n
}

// Errors returns every per-path failure, creates first, then deletes, then updates.
func (r *ReconcileResult) Errors() []*RemoteCallError {
	var out []*RemoteCallError
	for _, kind := range []OpKind{OpCreate, OpDelete, OpUpdate} {
		out = append(out, r.Failed[kind]...)
	}
	return out
}

// Reconciler drives catalog calls so the remote side matches a snapshot.
type Reconciler struct {
	catalog  Catalog
	schema   *Schema
	owner    string
	logger   Logger
	observer Observer
}

// NewReconciler creates a Reconciler that sends records owned by owner,
// shaped by schema.
func NewReconciler(catalog Catalog, schema *Schema, owner string, logger Logger, observer Observer) *Reconciler {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Reconciler{
		catalog:  catalog,
		schema:   schema,
		owner:    owner,
		logger:   logger,
		observer: observer,
	}
}

// ReconcileIncremental creates added fonts, deletes removed fonts using their
// prior attributes, and updates modified fonts. Unchanged fonts cause no call.
// A failed call is recorded and never stops the calls that follow it.
func (r *Reconciler) ReconcileIncremental(ctx context.Context, diff *Diff, prior, current Snapshot) *ReconcileResult {
	result := newReconcileResult()

	steps := []struct {
		kind  OpKind
		paths []FontPath
		attrs Snapshot
		call  func(context.Context, FontRecord) error
	}{
		{OpCreate, diff.Added, current, r.catalog.Create},
		{OpDelete, diff.Removed, prior, r.catalog.Delete},
		{OpUpdate, diff.Modified, current, r.catalog.Update},
	}

	for _, step := range steps {
		for _, path := range step.paths {
			if err := ctx.Err(); err != nil {
				result.Interrupted = true
				result.Failed[step.kind] = append(result.Failed[step.kind], &RemoteCallError{Kind: step.kind, Path: path, Err: err})
				continue
			}

			rec := r.schema.Record(r.owner, path, step.attrs[path])
			err := step.call(ctx, rec)
			r.observer.ObserveRemoteCall(step.kind, err)
			if err != nil {
				r.logger.Error("remote call failed", "op", string(step.kind), "path", string(path), "error", err)
				result.Failed[step.kind] = append(result.Failed[step.kind], &RemoteCallError{Kind: step.kind, Path: path, Err: err})
				continue
			}
			r.logger.Debug("remote call succeeded", "op", string(step.kind), "path", string(path))
			result.Succeeded[step.kind] = append(result.Succeeded[step.kind], path)
		}
	}

	return result
}

// ReconcileAll sends one record per font in current with a single bulk upsert.
func (r *Reconciler) ReconcileAll(ctx context.Context, current Snapshot) error {
	paths := current.Paths()
	recs := make([]FontRecord, 0, len(paths))
	for _, path := range paths {
		recs = append(recs, r.schema.Record(r.owner, path, current[path]))
	}

	err := r.catalog.UpsertMany(ctx, recs)
	r.observer.ObserveRemoteCall(OpUpsert, err)
	if err != nil {
		return &BulkRemoteError{Count: len(recs), Err: err}
	}
	return nil
}
