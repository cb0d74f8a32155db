package store_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"fonttrack/internal/config"
	"fonttrack/internal/ft"
	"fonttrack/internal/store"
	"fonttrack/internal/testutil"
)

func sampleSnapshot() ft.Snapshot {
	return ft.Snapshot{
		"/usr/share/fonts/Inter-Regular.ttf": {"family": "Inter", "subfamily": "Regular", "version": "4.0"},
		"/usr/share/fonts/Inter-Bold.ttf":    {"family": "Inter", "subfamily": "Bold"},
		"/home/u/fonts/empty.otf":            {},
		"/home/u/fonts/with space é.ttf":     {"full_name": "Ünïcode \"Quoted\" Name", "description": ""},
	}
}

// storeCases opens one fresh instance of every store type.
func storeCases(t *testing.T) map[string]ft.SnapshotStore {
	t.Helper()

	badgerStore, err := store.OpenBadgerStore("")
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	t.Cleanup(func() { badgerStore.Close() })

	return map[string]ft.SnapshotStore{
		"json":   store.NewJSONFileStore(filepath.Join(t.TempDir(), "meta_record.json")),
		"badger": badgerStore,
		"memory": store.NewMemoryStore(),
		"sqlite": testutil.NewTestDatabase(t),
	}
}

func TestStores_EmptyLoad(t *testing.T) {
	for name, s := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			snap, err := s.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if snap == nil || len(snap) != 0 {
				t.Errorf("Load() = %v, want empty snapshot", snap)
			}
		})
	}
}

func TestStores_RoundTrip(t *testing.T) {
	for name, s := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleSnapshot()
			if err := s.Save(want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := s.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("Load() = %v, want %v", got, want)
			}
		})
	}
}

func TestStores_NonUTF8PathRoundTrip(t *testing.T) {
	latin1 := ft.FontPath("/usr/share/fonts/caf\xe9.ttf")
	for name, s := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			want := ft.Snapshot{
				latin1:                      {"family": "Cafe"},
				"/usr/share/fonts/café.ttf": {"family": "Café"},
			}
			if err := s.Save(want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := s.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("Load() paths = %q, want %q", got.Paths(), want.Paths())
			}
		})
	}
}

func TestUnmarshalSnapshot_BadPathKey(t *testing.T) {
	if _, err := store.UnmarshalSnapshot([]byte(`{"\u0000b64:!!":{}}`)); err == nil {
		t.Error("UnmarshalSnapshot() expected an error for a malformed path key")
	}
}

func TestStores_SaveReplaces(t *testing.T) {
	for name, s := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Save(sampleSnapshot()); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			want := ft.Snapshot{
				"/usr/share/fonts/Inter-Regular.ttf": {"family": "Inter", "subfamily": "Bold"},
				"/new.ttf":                           {"family": "New"},
			}
			if err := s.Save(want); err != nil {
				t.Fatalf("second Save() error = %v", err)
			}

			got, err := s.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("Load() = %v, want %v", got, want)
			}

			if err := s.Save(ft.NewSnapshot()); err != nil {
				t.Fatalf("Save(empty) error = %v", err)
			}
			got, err = s.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(got) != 0 {
				t.Errorf("Load() after empty save = %v", got)
			}
		})
	}
}

func TestStores_LoadReturnsCopy(t *testing.T) {
	for name, s := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			saved := ft.Snapshot{"/a.ttf": {"family": "A"}}
			if err := s.Save(saved); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			saved["/a.ttf"]["family"] = "mutated"

			got, _ := s.Load()
			got["/a.ttf"]["family"] = "also mutated"

			again, err := s.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if again["/a.ttf"]["family"] != "A" {
				t.Errorf("stored family = %q, want %q", again["/a.ttf"]["family"], "A")
			}
		})
	}
}

func TestJSONFileStore_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meta_record.json")
	s := store.NewJSONFileStore(path)

	snap := ft.Snapshot{
		"/b.ttf": {"family": "B"},
		"/a.ttf": {"subfamily": "Bold", "family": "A"},
	}
	if err := s.Save(snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading document: %v", err)
	}
	want := `{"/a.ttf":{"family":"A","subfamily":"Bold"},"/b.ttf":{"family":"B"}}`
	if string(data) != want {
		t.Errorf("document = %s, want %s", data, want)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the document", len(entries))
	}
}

func TestJSONFileStore_ReadsExistingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta_record.json")
	doc := `{"/fonts/a.ttf": {"family": "A", "version": "Version 1.0"}, "/fonts/b.ttf": null}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := store.NewJSONFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := ft.Snapshot{
		"/fonts/a.ttf": {"family": "A", "version": "Version 1.0"},
		"/fonts/b.ttf": {},
	}
	if !got.Equal(want) {
		t.Errorf("Load() = %v, want %v", got, want)
	}
}

func TestJSONFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta_record.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.NewJSONFileStore(path).Load(); err == nil {
		t.Error("Load() expected error for corrupt document")
	}
}

func TestJSONFileStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	// The parent "directory" is a regular file, so no temp file can be created.
	s := store.NewJSONFileStore(filepath.Join(blocker, "meta_record.json"))
	if err := s.Save(ft.Snapshot{"/a.ttf": {}}); err == nil {
		t.Error("Save() expected error when directory cannot be created")
	}
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	want := sampleSnapshot()

	s, err := store.OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := store.OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Load() = %v, want %v", got, want)
	}
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	a, err := store.MarshalSnapshot(sampleSnapshot())
	if err != nil {
		t.Fatalf("MarshalSnapshot() error = %v", err)
	}
	b, err := store.MarshalSnapshot(sampleSnapshot())
	if err != nil {
		t.Fatalf("MarshalSnapshot() error = %v", err)
	}
	if string(a) != string(b) {
		t.Error("equal snapshots encoded differently")
	}

	empty, err := store.MarshalSnapshot(nil)
	if err != nil {
		t.Fatalf("MarshalSnapshot(nil) error = %v", err)
	}
	if string(empty) != "{}" {
		t.Errorf("MarshalSnapshot(nil) = %s, want {}", empty)
	}

	decoded, err := store.UnmarshalSnapshot([]byte("null"))
	if err != nil || decoded == nil || len(decoded) != 0 {
		t.Errorf("UnmarshalSnapshot(null) = %v, %v; want empty snapshot", decoded, err)
	}
}

func TestNewSnapshotStoreFromConfig(t *testing.T) {
	db := testutil.NewTestDatabase(t)

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr bool
	}{
		{name: "json", cfg: config.StoreConfig{Type: "json", Path: filepath.Join(t.TempDir(), "m.json")}},
		{name: "json without path", cfg: config.StoreConfig{Type: "json"}, wantErr: true},
		{name: "sqlite", cfg: config.StoreConfig{Type: "sqlite"}},
		{name: "badger", cfg: config.StoreConfig{Type: "badger", Path: t.TempDir()}},
		{name: "badger without path", cfg: config.StoreConfig{Type: "badger"}, wantErr: true},
		{name: "memory", cfg: config.StoreConfig{Type: "memory"}},
		{name: "unknown", cfg: config.StoreConfig{Type: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.NewSnapshotStoreFromConfig(tt.cfg, db)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSnapshotStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if c, ok := got.(io.Closer); ok && tt.cfg.Type != "sqlite" {
				t.Cleanup(func() { c.Close() })
			}
			if _, err := got.Load(); err != nil {
				t.Errorf("Load() error = %v", err)
			}
		})
	}

	t.Run("sqlite without database", func(t *testing.T) {
		if _, err := store.NewSnapshotStoreFromConfig(config.StoreConfig{Type: "sqlite"}, nil); err == nil {
			t.Error("expected error without database")
		}
	})
}
