package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"fonttrack/internal/catalog"
	"fonttrack/internal/ft"
)

func testBreakerSettings() catalog.BreakerSettings {
	return catalog.BreakerSettings{
		MinRequests:  2,
		FailureRatio: 0.5,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MaxHalfOpen:  1,
	}
}

func TestCircuitBreakerClient_OpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	inner := newClient(srv.URL, catalog.WithMaxRetries(0))
	client := catalog.NewCircuitBreakerClient(inner, "test-opens", testBreakerSettings(), ft.NewNopLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := client.Create(ctx, sampleRecord()); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if got := client.State(); got != "open" {
		t.Fatalf("State() = %q, want open", got)
	}

	err := client.Update(ctx, sampleRecord())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Update() error = %v, want ErrOpenState", err)
	}
	if !strings.Contains(err.Error(), "catalog unavailable") {
		t.Errorf("error = %q, want catalog unavailable", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

func TestCircuitBreakerClient_ClientErrorsKeepCircuitClosed(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Font not found"}`))
	})
	inner := newClient(srv.URL, catalog.WithMaxRetries(0))
	client := catalog.NewCircuitBreakerClient(inner, "test-4xx", testBreakerSettings(), nil)

	for i := 0; i < 5; i++ {
		err := client.Delete(context.Background(), sampleRecord())
		var httpErr *catalog.HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
			t.Fatalf("call %d: error = %v, want 404", i, err)
		}
	}
	if got := client.State(); got != "closed" {
		t.Errorf("State() = %q, want closed", got)
	}
}

func TestCircuitBreakerClient_CancellationIsNotCounted(t *testing.T) {
	mem := catalog.NewMemoryCatalog()
	client := catalog.NewCircuitBreakerClient(cancelledCatalog{mem}, "test-cancel", testBreakerSettings(), nil)

	for i := 0; i < 4; i++ {
		if err := client.Create(context.Background(), sampleRecord()); !errors.Is(err, context.Canceled) {
			t.Fatalf("Create() error = %v, want context.Canceled", err)
		}
	}
	if got := client.State(); got != "closed" {
		t.Errorf("State() = %q, want closed", got)
	}
}

func TestCircuitBreakerClient_PassesThrough(t *testing.T) {
	mem := catalog.NewMemoryCatalog()
	client := catalog.NewCircuitBreakerClient(mem, "test-pass", catalog.DefaultBreakerSettings(), nil)
	ctx := context.Background()

	if err := client.UpsertMany(ctx, []ft.FontRecord{sampleRecord()}); err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}
	recs, err := client.Query(ctx, ft.FontQuery{UserName: "apiuser"}, 0, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(recs) != 1 || recs[0].FontPath != "/fonts/Inter.ttf" {
		t.Errorf("Query() = %+v", recs)
	}

	empty, err := client.Query(ctx, ft.FontQuery{UserName: "nobody"}, 0, 0)
	if err != nil || len(empty) != 0 {
		t.Errorf("Query(nobody) = %v, %v; want empty", empty, err)
	}
}

// cancelledCatalog fails every call as if its context had been cancelled.
type cancelledCatalog struct {
	catalog.Client
}

func (cancelledCatalog) Create(context.Context, ft.FontRecord) error {
	return context.Canceled
}
