// Package badger implements store.Store on BadgerDB, an embedded
// LSM-tree key-value store. Records live at "collection/id" keys as
// JSON. Schemaless, so Migrate is a no-op.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badgerdb "github.com/dgraph-io/badger/v3"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a BadgerDB implementation of store.Store.
type Store struct {
	db *badgerdb.DB
}

// New opens (creating if needed) a Badger database rooted at dir.
func New(dir string) (*Store, error) {
	db, err := badgerdb.Open(badgerdb.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("reps/badger: open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// NewInMemory opens an ephemeral in-memory Badger database.
func NewInMemory() (*Store, error) {
	db, err := badgerdb.Open(badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("reps/badger: open in-memory: %w", err)
	}
	return &Store{db: db}, nil
}

func recordKey(collection string, recordID id.ID) []byte {
	return []byte(collection + "/" + recordID.String())
}

// Migrate is a no-op for the schemaless Badger store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping fails only after Close.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return reps.ErrStoreClosed
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the record with the given id.
func (s *Store) Get(_ context.Context, collection string, recordID id.ID) (*store.Record, error) {
	rec := &store.Record{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(recordKey(collection, recordID))
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			return json.Unmarshal(raw, rec)
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, reps.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reps/badger: get %s/%s: %w", collection, recordID, err)
	}
	return rec, nil
}

// Put inserts or replaces a record. The original creation time survives
// a replace.
func (s *Store) Put(_ context.Context, collection string, rec *store.Record) (id.ID, error) {
	store.Prepare(rec)

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		key := recordKey(collection, rec.ID)

		if item, err := txn.Get(key); err == nil {
			existing := &store.Record{}
			if err := item.Value(func(raw []byte) error { return json.Unmarshal(raw, existing) }); err != nil {
				return err
			}
			rec.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, raw)
	})
	if err != nil {
		return id.Nil, fmt.Errorf("reps/badger: put %s/%s: %w", collection, rec.ID, err)
	}
	return rec.ID, nil
}

// Query returns matching records ordered by CreatedAt ascending.
func (s *Store) Query(_ context.Context, collection string, filter *store.Filter) ([]*store.Record, error) {
	prefix := []byte(collection + "/")
	matched := make([]*store.Record, 0)

	err := s.db.View(func(txn *badgerdb.Txn) error {
		iterOpts := badgerdb.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if !bytes.HasPrefix(it.Item().Key(), prefix) {
				continue
			}
			rec := &store.Record{}
			if err := it.Item().Value(func(raw []byte) error { return json.Unmarshal(raw, rec) }); err != nil {
				return err
			}
			if filter != nil && filter.Match != nil && !filter.Match(rec) {
				continue
			}
			matched = append(matched, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reps/badger: query %s: %w", collection, err)
	}

	sort.Slice(matched, func(i, k int) bool {
		if matched[i].CreatedAt.Equal(matched[k].CreatedAt) {
			return matched[i].ID.String() < matched[k].ID.String()
		}
		return matched[i].CreatedAt.Before(matched[k].CreatedAt)
	})

	if filter != nil && filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Delete removes a record. Absent records are a no-op.
func (s *Store) Delete(_ context.Context, collection string, recordID id.ID) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(recordKey(collection, recordID))
	})
	if err != nil {
		return fmt.Errorf("reps/badger: delete %s/%s: %w", collection, recordID, err)
	}
	return nil
}
