package ft

// SnapshotBuilder turns candidate font paths into a Snapshot.
type SnapshotBuilder struct {
	extractor Extractor
	logger    Logger
}

// NewSnapshotBuilder creates a SnapshotBuilder using the given extractor.
func NewSnapshotBuilder(extractor Extractor, logger Logger) *SnapshotBuilder {
	return &SnapshotBuilder{extractor: extractor, logger: logger}
}

// Build extracts metadata for every path. Paths whose extraction fails are
// left out of the snapshot and returned as errors; the build never aborts.
// Repeated paths produce a single entry.
func (b *SnapshotBuilder) Build(paths []FontPath) (Snapshot, []*ExtractionError) {
	snap := make(Snapshot, len(paths))
	var failures []*ExtractionError
	for _, path := range paths {
		if _, done := snap[path]; done {
			continue
		}
		attrs, err := b.extractor.Extract(path)
		if err != nil {
			b.logger.Warn("metadata extraction failed", "path", string(path), "error", err)
			failures = append(failures, &ExtractionError{Path: path, Err: err})
			continue
		}
		if attrs == nil {
			attrs = Attributes{}
		}
		snap[path] = attrs
	}
	return snap, failures
}
