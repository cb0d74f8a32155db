package catalog

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"fonttrack/internal/ft"
)

type recordKey struct {
	owner string
	path  ft.FontPath
}

// MemoryCatalog holds records in process. It rejects a create for a record
// that exists and an update or delete for one that does not, like the HTTP
// catalog does.
type MemoryCatalog struct {
	mu      sync.Mutex
	records map[recordKey]ft.FontRecord
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{records: make(map[recordKey]ft.FontRecord)}
}

func keyOf(rec ft.FontRecord) recordKey {
	return recordKey{owner: rec.UserName, path: rec.FontPath}
}

func cloneRecord(rec ft.FontRecord) ft.FontRecord {
	rec.Fields = maps.Clone(rec.Fields)
	if rec.Fields == nil {
		rec.Fields = map[string]string{}
	}
	return rec
}

func (m *MemoryCatalog) Create(ctx context.Context, rec ft.FontRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[keyOf(rec)]; ok {
		return &HTTPError{StatusCode: 409, Detail: fmt.Sprintf("font %s already exists", rec.FontPath)}
	}
	m.records[keyOf(rec)] = cloneRecord(rec)
	return nil
}

func (m *MemoryCatalog) Update(ctx context.Context, rec ft.FontRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[keyOf(rec)]; !ok {
		return &HTTPError{StatusCode: 404, Detail: fmt.Sprintf("font %s not found", rec.FontPath)}
	}
	m.records[keyOf(rec)] = cloneRecord(rec)
	return nil
}

func (m *MemoryCatalog) Delete(ctx context.Context, rec ft.FontRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[keyOf(rec)]; !ok {
		return &HTTPError{StatusCode: 404, Detail: fmt.Sprintf("font %s not found", rec.FontPath)}
	}
	delete(m.records, keyOf(rec))
	return nil
}

func (m *MemoryCatalog) UpsertMany(ctx context.Context, recs []ft.FontRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		m.records[keyOf(rec)] = cloneRecord(rec)
	}
	return nil
}

// Query returns matching records ordered by owner and path. A limit of 0
// returns everything after skip.
func (m *MemoryCatalog) Query(ctx context.Context, q ft.FontQuery, skip, limit int) ([]ft.FontRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ft.FontRecord
	for _, rec := range m.records {
		if matches(rec, q) {
			out = append(out, cloneRecord(rec))
		}
	}
	slices.SortFunc(out, func(a, b ft.FontRecord) int {
		if a.UserName != b.UserName {
			if a.UserName < b.UserName {
				return -1
			}
			return 1
		}
		switch {
		case a.FontPath < b.FontPath:
			return -1
		case a.FontPath > b.FontPath:
			return 1
		}
		return 0
	})

	if skip >= len(out) {
		return []ft.FontRecord{}, nil
	}
	if skip > 0 {
		out = out[skip:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored records.
func (m *MemoryCatalog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Get returns the record for owner and path.
func (m *MemoryCatalog) Get(owner string, path ft.FontPath) (ft.FontRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey{owner: owner, path: path}]
	if !ok {
		return ft.FontRecord{}, false
	}
	return cloneRecord(rec), true
}

func matches(rec ft.FontRecord, q ft.FontQuery) bool {
	if q.UserName != "" && rec.UserName != q.UserName {
		return false
	}
	if q.FontPath != "" && rec.FontPath != q.FontPath {
		return false
	}
	for k, v := range q.Fields {
		if v != "" && rec.Fields[k] != v {
			return false
		}
	}
	return true
}

var _ Client = (*MemoryCatalog)(nil)
