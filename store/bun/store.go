// Package bunstore implements store.Store through the Bun ORM with the
// PostgreSQL dialect. Useful when the embedding application already
// manages its schema through Bun.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// recordModel is the Bun row model for one stored record.
type recordModel struct {
	bun.BaseModel `bun:"table:reps_records"`

	Collection string    `bun:"collection,pk"`
	ID         string    `bun:"id,pk"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
	Data       []byte    `bun:"data,notnull,type:bytea"`
}

func (m *recordModel) toRecord() (*store.Record, error) {
	recordID, err := id.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &store.Record{
		ID:        recordID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Data:      m.Data,
	}, nil
}

// Store is a Bun implementation of store.Store.
type Store struct {
	db     *bun.DB
	ownsDB bool
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New wraps an existing *bun.DB. The caller owns the db lifecycle —
// the Store will not close it on Close().
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to PostgreSQL through pgdriver and owns the resulting
// connection: Close() closes it.
func Open(dsn string, opts ...Option) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	s := New(bun.NewDB(sqldb, pgdialect.New()), opts...)
	s.ownsDB = true
	return s
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the records table and its query index.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*recordModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("%w: create table: %w", reps.ErrMigrationFailed, err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*recordModel)(nil)).
		Index("idx_reps_records_created").
		Column("collection", "created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("%w: create index: %w", reps.ErrMigrationFailed, err)
	}
	s.logger.Debug("bun migrations applied")
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the connection when this Store opened it; wrapped
// databases stay open.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, collection string, recordID id.ID) (*store.Record, error) {
	m := &recordModel{}
	err := s.db.NewSelect().
		Model(m).
		Where("collection = ?", collection).
		Where("id = ?", recordID.String()).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reps.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reps/bun: get %s/%s: %w", collection, recordID, err)
	}
	return m.toRecord()
}

// Put inserts or replaces a record. The original creation time survives
// a replace.
func (s *Store) Put(ctx context.Context, collection string, rec *store.Record) (id.ID, error) {
	store.Prepare(rec)

	m := &recordModel{
		Collection: collection,
		ID:         rec.ID.String(),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		Data:       rec.Data,
	}
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (collection, id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	if err != nil {
		return id.Nil, fmt.Errorf("reps/bun: put %s/%s: %w", collection, rec.ID, err)
	}
	return rec.ID, nil
}

// Query returns matching records ordered by CreatedAt ascending.
// Predicates run client-side.
func (s *Store) Query(ctx context.Context, collection string, filter *store.Filter) ([]*store.Record, error) {
	var models []recordModel
	err := s.db.NewSelect().
		Model(&models).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("reps/bun: query %s: %w", collection, err)
	}

	matched := make([]*store.Record, 0, len(models))
	for i := range models {
		rec, err := models[i].toRecord()
		if err != nil {
			return nil, fmt.Errorf("reps/bun: query %s: %w", collection, err)
		}
		if filter != nil && filter.Match != nil && !filter.Match(rec) {
			continue
		}
		matched = append(matched, rec)
		if filter != nil && filter.Limit > 0 && len(matched) == filter.Limit {
			break
		}
	}
	return matched, nil
}

// Delete removes a record. Absent records are a no-op.
func (s *Store) Delete(ctx context.Context, collection string, recordID id.ID) error {
	_, err := s.db.NewDelete().
		Model((*recordModel)(nil)).
		Where("collection = ?", collection).
		Where("id = ?", recordID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reps/bun: delete %s/%s: %w", collection, recordID, err)
	}
	return nil
}
