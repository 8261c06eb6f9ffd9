// Package sqlite implements store.Store on SQLite via the pure-Go
// modernc.org/sqlite driver. Schema lives in embedded migrations run
// through golang-migrate. Suited to single-process deployments where a
// file is the whole database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of store.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New opens (creating if needed) the SQLite database at path.
// Use ":memory:" for an ephemeral database.
func New(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("reps/sqlite: open %q: %w", path, err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent Puts.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate applies the embedded migrations.
func (s *Store) Migrate(_ context.Context) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: read embedded migrations: %w", reps.ErrMigrationFailed, err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: sqlite migrate driver: %w", reps.ErrMigrationFailed, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("%w: %w", reps.ErrMigrationFailed, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %w", reps.ErrMigrationFailed, err)
	}
	s.logger.Debug("sqlite migrations applied")
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, collection string, recordID id.ID) (*store.Record, error) {
	rec := &store.Record{ID: recordID}
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at, data FROM reps_records WHERE collection = ? AND id = ?`,
		collection, recordID.String(),
	).Scan(&rec.CreatedAt, &rec.UpdatedAt, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reps.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reps/sqlite: get %s/%s: %w", collection, recordID, err)
	}
	return rec, nil
}

// Put inserts or replaces a record. The original creation time survives
// a replace.
func (s *Store) Put(ctx context.Context, collection string, rec *store.Record) (id.ID, error) {
	store.Prepare(rec)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reps_records (collection, id, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			updated_at = excluded.updated_at,
			data       = excluded.data`,
		collection, rec.ID.String(), rec.CreatedAt, rec.UpdatedAt, rec.Data,
	)
	if err != nil {
		return id.Nil, fmt.Errorf("reps/sqlite: put %s/%s: %w", collection, rec.ID, err)
	}
	return rec.ID, nil
}

// Query returns matching records ordered by CreatedAt ascending.
// Predicates run client-side.
func (s *Store) Query(ctx context.Context, collection string, filter *store.Filter) ([]*store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, updated_at, data FROM reps_records
		 WHERE collection = ? ORDER BY created_at ASC, id ASC`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("reps/sqlite: query %s: %w", collection, err)
	}
	defer rows.Close()

	matched := make([]*store.Record, 0)
	for rows.Next() {
		rec := &store.Record{}
		var rawID string
		if err := rows.Scan(&rawID, &rec.CreatedAt, &rec.UpdatedAt, &rec.Data); err != nil {
			return nil, fmt.Errorf("reps/sqlite: scan %s: %w", collection, err)
		}
		if rec.ID, err = id.Parse(rawID); err != nil {
			return nil, fmt.Errorf("reps/sqlite: scan %s: %w", collection, err)
		}
		if filter != nil && filter.Match != nil && !filter.Match(rec) {
			continue
		}
		matched = append(matched, rec)
		if filter != nil && filter.Limit > 0 && len(matched) == filter.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reps/sqlite: query %s: %w", collection, err)
	}
	return matched, nil
}

// Delete removes a record. Absent records are a no-op.
func (s *Store) Delete(ctx context.Context, collection string, recordID id.ID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM reps_records WHERE collection = ? AND id = ?`,
		collection, recordID.String(),
	)
	if err != nil {
		return fmt.Errorf("reps/sqlite: delete %s/%s: %w", collection, recordID, err)
	}
	return nil
}
