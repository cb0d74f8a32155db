package ft

import (
	"maps"
	"slices"
)

// FontPath identifies a font file by its location on disk. It is the primary
// key across snapshots and remote records.
type FontPath string

// Attributes holds the metadata extracted from one font file.
// Two Attributes are equal only when they hold exactly the same keys and values.
type Attributes map[string]string

// Equal reports whether a and b hold the same keys with the same values.
func (a Attributes) Equal(b Attributes) bool {
	return maps.Equal(a, b)
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// Clone returns a copy of a that shares no storage with it.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	return maps.Clone(a)
}

// Snapshot maps every font considered present at capture time to its attributes.
type Snapshot map[FontPath]Attributes

// NewSnapshot returns an empty snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{}
}

// Equal reports whether s and other have the same paths with equal attributes.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for path, attrs := range s {
		otherAttrs, ok := other[path]
		if !ok || !attrs.Equal(otherAttrs) {
			return false
		}
	}
	return true
}

// Paths returns the snapshot's font paths in sorted order.
func (s Snapshot) Paths() []FontPath {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for path, attrs := range s {
		out[path] = attrs.Clone()
	}
	return out
}
