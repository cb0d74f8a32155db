package testutil

import (
	"context"
	"fmt"
	"sync"

	"fonttrack/internal/ft"
)

// CatalogCall is one recorded call to a FakeCatalog.
type CatalogCall struct {
	Kind    ft.OpKind
	Records []ft.FontRecord
}

// FakeCatalog records every call and fails the ones it is told to fail.
type FakeCatalog struct {
	mu    sync.Mutex
	calls []CatalogCall

	// FailPaths makes create, update and delete calls for these paths fail.
	FailPaths map[ft.FontPath]error

	// BulkErr makes UpsertMany fail.
	BulkErr error

	// OnCall, when set, runs before each call is recorded.
	OnCall func(kind ft.OpKind)
}

// NewFakeCatalog creates an empty FakeCatalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{FailPaths: map[ft.FontPath]error{}}
}

// FailPath makes every single-record call for path fail.
func (c *FakeCatalog) FailPath(path ft.FontPath) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FailPaths[path] = fmt.Errorf("catalog rejected %s", path)
}

func (c *FakeCatalog) Create(_ context.Context, rec ft.FontRecord) error {
	return c.single(ft.OpCreate, rec)
}

func (c *FakeCatalog) Update(_ context.Context, rec ft.FontRecord) error {
	return c.single(ft.OpUpdate, rec)
}

func (c *FakeCatalog) Delete(_ context.Context, rec ft.FontRecord) error {
	return c.single(ft.OpDelete, rec)
}

func (c *FakeCatalog) UpsertMany(_ context.Context, recs []ft.FontRecord) error {
	if c.OnCall != nil {
		c.OnCall(ft.OpUpsert)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, CatalogCall{Kind: ft.OpUpsert, Records: append([]ft.FontRecord(nil), recs...)})
	return c.BulkErr
}

func (c *FakeCatalog) single(kind ft.OpKind, rec ft.FontRecord) error {
	if c.OnCall != nil {
		c.OnCall(kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, CatalogCall{Kind: kind, Records: []ft.FontRecord{rec}})
	return c.FailPaths[rec.FontPath]
}

// Calls returns a copy of the recorded calls in order.
func (c *FakeCatalog) Calls() []CatalogCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CatalogCall(nil), c.calls...)
}

// CallsOf returns the recorded calls of one kind.
func (c *FakeCatalog) CallsOf(kind ft.OpKind) []CatalogCall {
	var out []CatalogCall
	for _, call := range c.Calls() {
		if call.Kind == kind {
			out = append(out, call)
		}
	}
	return out
}

// Reset forgets all recorded calls.
func (c *FakeCatalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}
