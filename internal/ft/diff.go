package ft

// Diff classifies every path in the union of two snapshots. The four lists are
// disjoint and each is sorted.
type Diff struct {
	Added     []FontPath
	Removed   []FontPath
	Modified  []FontPath
	Unchanged []FontPath
}

// ComputeDiff compares prior against current. Paths only in current are Added,
// paths only in prior are Removed, and paths in both are Modified unless their
// attributes are exactly equal.
func ComputeDiff(prior, current Snapshot) *Diff {
	d := &Diff{}
	for _, path := range current.Paths() {
		priorAttrs, ok := prior[path]
		switch {
		case !ok:
			d.Added = append(d.Added, path)
		case priorAttrs.Equal(current[path]):
			d.Unchanged = append(d.Unchanged, path)
		default:
			d.Modified = append(d.Modified, path)
		}
	}
	for _, path := range prior.Paths() {
		if _, ok := current[path]; !ok {
			d.Removed = append(d.Removed, path)
		}
	}
	return d
}

// HasChanges reports whether any path was added, removed or modified.
func (d *Diff) HasChanges() bool {
	return len(d.Added)+len(d.Removed)+len(d.Modified) > 0
}

// Len returns the number of classified paths.
func (d *Diff) Len() int {
	return len(d.Added) + len(d.Removed) + len(d.Modified) + len(d.Unchanged)
}
