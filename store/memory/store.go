// Package memory implements store.Store entirely in memory.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Records are copied on write and on read so callers can never mutate
// the stored state through a returned pointer.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*store.Record
	closed      bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]*store.Record),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping fails only after Close.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return reps.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Subsequent operations fail.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Get returns a copy of the record with the given id.
func (m *Store) Get(_ context.Context, collection string, recordID id.ID) (*store.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, reps.ErrStoreClosed
	}

	rec, ok := m.collections[collection][recordID.String()]
	if !ok {
		return nil, reps.ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

// Put inserts or replaces a record.
func (m *Store) Put(_ context.Context, collection string, rec *store.Record) (id.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return id.Nil, reps.ErrStoreClosed
	}

	store.Prepare(rec)

	records, ok := m.collections[collection]
	if !ok {
		records = make(map[string]*store.Record)
		m.collections[collection] = records
	}

	// Preserve the original creation time on replace.
	if existing, exists := records[rec.ID.String()]; exists {
		rec.CreatedAt = existing.CreatedAt
	}

	records[rec.ID.String()] = copyRecord(rec)
	return rec.ID, nil
}

// Query returns copies of matching records ordered by CreatedAt ascending.
func (m *Store) Query(_ context.Context, collection string, filter *store.Filter) ([]*store.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, reps.ErrStoreClosed
	}

	records := m.collections[collection]
	matched := make([]*store.Record, 0, len(records))
	for _, rec := range records {
		if filter != nil && filter.Match != nil && !filter.Match(rec) {
			continue
		}
		matched = append(matched, copyRecord(rec))
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
func (m *Store) Delete(_ context.Context, collection string, recordID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return reps.ErrStoreClosed
	}

	delete(m.collections[collection], recordID.String())
	return nil
}

func copyRecord(rec *store.Record) *store.Record {
	cp := *rec
	cp.Data = append([]byte(nil), rec.Data...)
	return &cp
}
