// Package storetest exercises the store.Store contract against any
// backend. Backend packages call Run from an integration test; the
// external ones gate on an environment DSN.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Run drives one backend through the full Records contract. The store
// must be empty, migrated, and open; Run does not close it.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	const collection = "storetest"

	t.Run("ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, collection, id.NewRecordID())
		if !errors.Is(err, reps.ErrRecordNotFound) {
			t.Fatalf("Get missing = %v, want ErrRecordNotFound", err)
		}
		if !errors.Is(err, reps.ErrNotFound) {
			t.Error("ErrRecordNotFound does not unwrap to ErrNotFound")
		}
	})

	t.Run("put assigns identity", func(t *testing.T) {
		rec := &store.Record{Data: []byte(`{"n":1}`)}
		recordID, err := s.Put(ctx, collection, rec)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if recordID.IsNil() {
			t.Fatal("Put assigned nil id")
		}
		if recordID.Prefix() != id.PrefixRecord {
			t.Errorf("id prefix = %q, want %q", recordID.Prefix(), id.PrefixRecord)
		}
		if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
			t.Error("Put left timestamps unset")
		}

		got, err := s.Get(ctx, collection, recordID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got.Data) != `{"n":1}` {
			t.Errorf("Data = %s", got.Data)
		}
	})

	t.Run("replace preserves creation time", func(t *testing.T) {
		rec := &store.Record{Data: []byte(`{"v":"first"}`)}
		recordID, err := s.Put(ctx, collection, rec)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		created := rec.CreatedAt

		time.Sleep(10 * time.Millisecond)
		if _, err := s.Put(ctx, collection, &store.Record{ID: recordID, Data: []byte(`{"v":"second"}`)}); err != nil {
			t.Fatalf("replace: %v", err)
		}

		got, err := s.Get(ctx, collection, recordID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got.Data) != `{"v":"second"}` {
			t.Errorf("Data = %s, want replaced value", got.Data)
		}
		// Backends may round timestamps to their native precision.
		if diff := got.CreatedAt.Sub(created); diff < -time.Second || diff > time.Second {
			t.Errorf("CreatedAt changed on replace: %v -> %v", created, got.CreatedAt)
		}
		if !got.UpdatedAt.After(got.CreatedAt) {
			t.Errorf("UpdatedAt %v not after CreatedAt %v", got.UpdatedAt, got.CreatedAt)
		}
	})

	t.Run("query order filter limit", func(t *testing.T) {
		const queryCollection = "storetest_query"
		var ids []id.ID
		for i := 0; i < 5; i++ {
			rec := &store.Record{Data: []byte{byte('0' + i)}}
			recordID, err := s.Put(ctx, queryCollection, rec)
			if err != nil {
				t.Fatalf("Put %d: %v", i, err)
			}
			ids = append(ids, recordID)
			time.Sleep(5 * time.Millisecond)
		}

		all, err := s.Query(ctx, queryCollection, nil)
		if err != nil {
			t.Fatalf("Query nil filter: %v", err)
		}
		if len(all) != 5 {
			t.Fatalf("Query returned %d records, want 5", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
				t.Errorf("records out of CreatedAt order at %d", i)
			}
		}

		limited, err := s.Query(ctx, queryCollection, &store.Filter{Limit: 2})
		if err != nil {
			t.Fatalf("Query limit: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("Limit 2 returned %d", len(limited))
		}

		want := ids[3].String()
		matched, err := s.Query(ctx, queryCollection, &store.Filter{
			Match: func(rec *store.Record) bool { return rec.ID.String() == want },
		})
		if err != nil {
			t.Fatalf("Query predicate: %v", err)
		}
		if len(matched) != 1 || matched[0].ID.String() != want {
			t.Errorf("predicate matched %d records", len(matched))
		}
	})

	t.Run("collections are disjoint", func(t *testing.T) {
		rec := &store.Record{Data: []byte(`{}`)}
		recordID, err := s.Put(ctx, "storetest_a", rec)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if _, err := s.Get(ctx, "storetest_b", recordID); !errors.Is(err, reps.ErrRecordNotFound) {
			t.Errorf("cross-collection Get = %v, want ErrRecordNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := &store.Record{Data: []byte(`{}`)}
		recordID, err := s.Put(ctx, collection, rec)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Delete(ctx, collection, recordID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, collection, recordID); !errors.Is(err, reps.ErrRecordNotFound) {
			t.Errorf("Get after Delete = %v, want ErrRecordNotFound", err)
		}
		// Deleting again is a no-op.
		if err := s.Delete(ctx, collection, recordID); err != nil {
			t.Errorf("second Delete: %v", err)
		}
	})
}
