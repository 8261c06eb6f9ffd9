// Package redis implements store.Store on Redis using go-redis/v9.
// Records live at "reps:{collection}:{id}" as JSON; a per-collection
// set of ids at "reps:{collection}:ids" backs Query. Schemaless, so
// Migrate is a no-op.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a Redis implementation of store.Store.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New connects to Redis. The url is a redis connection URL, e.g.
// "redis://localhost:6379/0".
func New(url string, opts ...Option) (*Store, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("reps/redis: parse url: %w", err)
	}
	s := &Store{client: redis.NewClient(redisOpts), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func recordKey(collection string, recordID id.ID) string {
	return fmt.Sprintf("reps:%s:%s", collection, recordID)
}

func indexKey(collection string) string {
	return fmt.Sprintf("reps:%s:ids", collection)
}

// Migrate is a no-op for the schemaless Redis store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

// Close releases the client.
func (s *Store) Close() error { return s.client.Close() }

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, collection string, recordID id.ID) (*store.Record, error) {
	raw, err := s.client.Get(ctx, recordKey(collection, recordID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, reps.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reps/redis: get %s/%s: %w", collection, recordID, err)
	}
	rec := &store.Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("reps/redis: decode %s/%s: %w", collection, recordID, err)
	}
	return rec, nil
}

// Put inserts or replaces a record. The original creation time survives
// a replace.
func (s *Store) Put(ctx context.Context, collection string, rec *store.Record) (id.ID, error) {
	store.Prepare(rec)

	if existing, err := s.Get(ctx, collection, rec.ID); err == nil {
		rec.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, reps.ErrRecordNotFound) {
		return id.Nil, err
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return id.Nil, fmt.Errorf("reps/redis: encode %s/%s: %w", collection, rec.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(collection, rec.ID), raw, 0)
	pipe.SAdd(ctx, indexKey(collection), rec.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return id.Nil, fmt.Errorf("reps/redis: put %s/%s: %w", collection, rec.ID, err)
	}
	return rec.ID, nil
}

// Query returns matching records ordered by CreatedAt ascending.
func (s *Store) Query(ctx context.Context, collection string, filter *store.Filter) ([]*store.Record, error) {
	ids, err := s.client.SMembers(ctx, indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("reps/redis: query %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return []*store.Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, rawID := range ids {
		keys[i] = fmt.Sprintf("reps:%s:%s", collection, rawID)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reps/redis: query %s: %w", collection, err)
	}

	matched := make([]*store.Record, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Stale index entry; the record was deleted out of band.
			continue
		}
		rec := &store.Record{}
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			return nil, fmt.Errorf("reps/redis: decode %s: %w", collection, err)
		}
		if filter != nil && filter.Match != nil && !filter.Match(rec) {
			continue
		}
		matched = append(matched, rec)
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

// Delete removes a record and its index entry. Absent records are a
// no-op.
func (s *Store) Delete(ctx context.Context, collection string, recordID id.ID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, recordKey(collection, recordID))
	pipe.SRem(ctx, indexKey(collection), recordID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reps/redis: delete %s/%s: %w", collection, recordID, err)
	}
	return nil
}
