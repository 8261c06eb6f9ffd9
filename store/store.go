// Package store defines the generic record persistence interface.
// Domain packages (routine, workout, audit) layer typed stores on top of
// Records; a single backend serves them all. Backends: Memory, SQLite,
// Postgres, Redis, Badger, Bun, and Mongo.
package store

import (
	"context"
	"time"

	"github.com/xraph/reps/id"
)

// Record is the unit of persistence: an identified, timestamped blob.
// Data holds the codec-encoded domain payload; the store never inspects it.
type Record struct {
	ID        id.ID     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Data      []byte    `json:"data"`
}

// Filter narrows a Query. A nil *Filter matches everything.
type Filter struct {
	// Match is an optional predicate evaluated per record. Predicates
	// run on the client side; backends load the collection and filter
	// in Go.
	Match func(*Record) bool

	// Limit caps the number of returned records. Zero means no limit.
	Limit int
}

// Records is the generic keyed record storage contract.
//
// Guarantees required of implementations: a single Put is atomic, and
// concurrent reads/writes to distinct keys are safe. No cross-key
// transactions and no ordering guarantees beyond that.
type Records interface {
	// Get returns the record with the given id from a collection.
	// Returns reps.ErrRecordNotFound if absent.
	Get(ctx context.Context, collection string, recordID id.ID) (*Record, error)

	// Put inserts or replaces a record. A nil record ID is assigned a
	// fresh "rec"-prefixed ID; a zero CreatedAt is stamped. UpdatedAt
	// is always bumped. Returns the record's ID.
	Put(ctx context.Context, collection string, rec *Record) (id.ID, error)

	// Query returns the records of a collection matching the filter,
	// ordered by CreatedAt ascending.
	Query(ctx context.Context, collection string, filter *Filter) ([]*Record, error)

	// Delete removes a record. Deleting an absent record is a no-op.
	Delete(ctx context.Context, collection string, recordID id.ID) error
}

// Store is the full backend contract: record storage plus lifecycle.
type Store interface {
	Records

	// Migrate runs schema migrations. No-op for schemaless backends.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Prepare assigns the record's identity and timestamps ahead of a write.
// Backends call it at the top of Put so the stamping rules stay uniform.
func Prepare(rec *Record) {
	now := time.Now().UTC()
	if rec.ID.IsNil() {
		rec.ID = id.NewRecordID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}
