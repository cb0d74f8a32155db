package ft_test

import (
	"slices"
	"testing"

	"fonttrack/internal/ft"
)

func paths(ps ...string) []ft.FontPath {
	out := make([]ft.FontPath, len(ps))
	for i, p := range ps {
		out[i] = ft.FontPath(p)
	}
	return out
}

func TestComputeDiff(t *testing.T) {
	regular := ft.Attributes{"family": "Inter", "subfamily": "Regular"}
	bold := ft.Attributes{"family": "Inter", "subfamily": "Bold"}

	tests := []struct {
		name      string
		prior     ft.Snapshot
		current   ft.Snapshot
		added     []ft.FontPath
		removed   []ft.FontPath
		modified  []ft.FontPath
		unchanged []ft.FontPath
	}{
		{
			name:  "both empty",
			prior: ft.Snapshot{}, current: ft.Snapshot{},
		},
		{
			name:    "empty prior adds everything",
			prior:   ft.Snapshot{},
			current: ft.Snapshot{"/f/b.ttf": regular, "/f/a.ttf": bold},
			added:   paths("/f/a.ttf", "/f/b.ttf"),
		},
		{
			name:    "empty current removes everything",
			prior:   ft.Snapshot{"/f/a.ttf": regular},
			current: ft.Snapshot{},
			removed: paths("/f/a.ttf"),
		},
		{
			name:      "mixed",
			prior:     ft.Snapshot{"/f/a.ttf": regular, "/f/gone.otf": regular, "/f/same.ttf": bold},
			current:   ft.Snapshot{"/f/a.ttf": bold, "/f/new.otf": regular, "/f/same.ttf": bold},
			added:     paths("/f/new.otf"),
			removed:   paths("/f/gone.otf"),
			modified:  paths("/f/a.ttf"),
			unchanged: paths("/f/same.ttf"),
		},
		{
			name:     "added key counts as modified",
			prior:    ft.Snapshot{"/f/a.ttf": {"family": "Inter"}},
			current:  ft.Snapshot{"/f/a.ttf": {"family": "Inter", "version": "1.0"}},
			modified: paths("/f/a.ttf"),
		},
		{
			name:     "empty value differs from missing key",
			prior:    ft.Snapshot{"/f/a.ttf": {}},
			current:  ft.Snapshot{"/f/a.ttf": {"family": ""}},
			modified: paths("/f/a.ttf"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ft.ComputeDiff(tt.prior, tt.current)

			check := func(label string, got, want []ft.FontPath) {
				t.Helper()
				if !slices.Equal(got, want) {
					t.Errorf("%s = %v, want %v", label, got, want)
				}
			}
			check("Added", d.Added, tt.added)
			check("Removed", d.Removed, tt.removed)
			check("Modified", d.Modified, tt.modified)
			check("Unchanged", d.Unchanged, tt.unchanged)
		})
	}
}

func TestComputeDiff_coversUnionDisjointly(t *testing.T) {
	prior := ft.Snapshot{
		"/a.ttf": {"v": "1"},
		"/b.ttf": {"v": "1"},
		"/c.ttf": {"v": "1"},
	}
	current := ft.Snapshot{
		"/b.ttf": {"v": "2"},
		"/c.ttf": {"v": "1"},
		"/d.ttf": {"v": "1"},
	}

	d := ft.ComputeDiff(prior, current)

	seen := map[ft.FontPath]int{}
	for _, list := range [][]ft.FontPath{d.Added, d.Removed, d.Modified, d.Unchanged} {
		for _, p := range list {
			seen[p]++
		}
	}

	union := map[ft.FontPath]bool{}
	for p := range prior {
		union[p] = true
	}
	for p := range current {
		union[p] = true
	}

	if len(seen) != len(union) {
		t.Fatalf("classified %d paths, union has %d", len(seen), len(union))
	}
	for p, n := range seen {
		if n != 1 {
			t.Errorf("path %s classified %d times", p, n)
		}
		if !union[p] {
			t.Errorf("path %s not in either snapshot", p)
		}
	}
	if d.Len() != len(union) {
		t.Errorf("Len() = %d, want %d", d.Len(), len(union))
	}
}

func TestComputeDiff_symmetry(t *testing.T) {
	a := ft.Snapshot{"/x.ttf": {"v": "1"}, "/y.ttf": {"v": "1"}}
	b := ft.Snapshot{"/y.ttf": {"v": "2"}, "/z.ttf": {"v": "1"}}

	ab := ft.ComputeDiff(a, b)
	ba := ft.ComputeDiff(b, a)

	if !slices.Equal(ab.Added, ba.Removed) {
		t.Errorf("diff(a,b).Added = %v, diff(b,a).Removed = %v", ab.Added, ba.Removed)
	}
	if !slices.Equal(ab.Removed, ba.Added) {
		t.Errorf("diff(a,b).Removed = %v, diff(b,a).Added = %v", ab.Removed, ba.Added)
	}
	if !slices.Equal(ab.Modified, ba.Modified) {
		t.Errorf("Modified differs: %v vs %v", ab.Modified, ba.Modified)
	}
	if !slices.Equal(ab.Unchanged, ba.Unchanged) {
		t.Errorf("Unchanged differs: %v vs %v", ab.Unchanged, ba.Unchanged)
	}
}

func TestDiff_HasChanges(t *testing.T) {
	same := ft.Snapshot{"/a.ttf": {"family": "Inter"}}
	if ft.ComputeDiff(same, same.Clone()).HasChanges() {
		t.Error("HasChanges() = true for identical snapshots")
	}
	if !ft.ComputeDiff(ft.Snapshot{}, same).HasChanges() {
		t.Error("HasChanges() = false when a font was added")
	}
}
