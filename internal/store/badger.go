package store

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"fonttrack/internal/ft"
)

// fontKeyPrefix namespaces snapshot entries in the badger keyspace.
const fontKeyPrefix = "font:"

// BadgerStore keeps one badger key per font, font:<path> -> JSON attributes.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a badger database in dir.
// An empty dir opens an in-memory database.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // badger logs to stderr by default

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Load() (ft.Snapshot, error) {
	snap := ft.NewSnapshot()
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(fontKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			path := ft.FontPath(strings.TrimPrefix(string(item.Key()), fontKeyPrefix))
			attrs := ft.Attributes{}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &attrs)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}
			if attrs == nil {
				attrs = ft.Attributes{}
			}
			snap[path] = attrs
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return snap, nil
}

// Save replaces the stored snapshot in a single transaction. Keys for fonts
// that are no longer present are deleted.
func (s *BadgerStore) Save(snap ft.Snapshot) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := []byte(fontKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := snap[ft.FontPath(strings.TrimPrefix(string(key), fontKeyPrefix))]; !ok {
				stale = append(stale, key)
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}

		for _, path := range snap.Paths() {
			attrs := snap[path]
			if attrs == nil {
				attrs = ft.Attributes{}
			}
			data, err := json.Marshal(attrs)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", path, err)
			}
			if err := txn.Set([]byte(fontKeyPrefix+string(path)), data); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ ft.SnapshotStore = (*BadgerStore)(nil)
