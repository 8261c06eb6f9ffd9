// Package mongo implements store.Store on MongoDB using the official
// driver. Each logical collection maps to a MongoDB collection prefixed
// "reps_". Schemaless, so Migrate is a no-op; indexes are created per
// collection on first write.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// recordDoc is the BSON document shape of one stored record.
type recordDoc struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Data      []byte    `bson:"data"`
}

func (d *recordDoc) toRecord() (*store.Record, error) {
	recordID, err := id.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &store.Record{
		ID:        recordID,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Data:      d.Data,
	}, nil
}

// Store is a MongoDB implementation of store.Store.
type Store struct {
	client   *mongod.Client
	database *mongod.Database
	logger   *slog.Logger

	mu      sync.Mutex
	indexed map[string]bool
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New connects to MongoDB. The uri is a mongodb:// connection string;
// database names the database holding the reps collections.
func New(uri, database string, opts ...Option) (*Store, error) {
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("reps/mongo: connect: %w", err)
	}
	s := &Store{
		client:   client,
		database: client.Database(database),
		logger:   slog.Default(),
		indexed:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) collection(name string) *mongod.Collection {
	return s.database.Collection("reps_" + name)
}

// ensureIndex creates the created_at sort index once per collection.
func (s *Store) ensureIndex(ctx context.Context, name string) {
	s.mu.Lock()
	done := s.indexed[name]
	s.indexed[name] = true
	s.mu.Unlock()
	if done {
		return
	}

	_, err := s.collection(name).Indexes().CreateOne(ctx, mongod.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	if err != nil {
		s.logger.Warn("mongo index creation failed",
			slog.String("collection", name),
			slog.String("error", err.Error()),
		)
	}
}

// Migrate is a no-op for the schemaless Mongo store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

// Close disconnects the client.
func (s *Store) Close() error { return s.client.Disconnect(context.Background()) }

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, collection string, recordID id.ID) (*store.Record, error) {
	doc := &recordDoc{}
	err := s.collection(collection).FindOne(ctx, bson.M{"_id": recordID.String()}).Decode(doc)
	if errors.Is(err, mongod.ErrNoDocuments) {
		return nil, reps.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reps/mongo: get %s/%s: %w", collection, recordID, err)
	}
	return doc.toRecord()
}

// Put inserts or replaces a record. $setOnInsert keeps the original
// creation time across replaces without a read-modify-write.
func (s *Store) Put(ctx context.Context, collection string, rec *store.Record) (id.ID, error) {
	store.Prepare(rec)
	s.ensureIndex(ctx, collection)

	_, err := s.collection(collection).UpdateOne(ctx,
		bson.M{"_id": rec.ID.String()},
		bson.M{
			"$set": bson.M{
				"updated_at": rec.UpdatedAt,
				"data":       rec.Data,
			},
			"$setOnInsert": bson.M{
				"created_at": rec.CreatedAt,
			},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return id.Nil, fmt.Errorf("reps/mongo: put %s/%s: %w", collection, rec.ID, err)
	}
	return rec.ID, nil
}

// Query returns matching records ordered by CreatedAt ascending.
// Predicates run client-side.
func (s *Store) Query(ctx context.Context, collection string, filter *store.Filter) ([]*store.Record, error) {
	cursor, err := s.collection(collection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("reps/mongo: query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	matched := make([]*store.Record, 0)
	for cursor.Next(ctx) {
		doc := &recordDoc{}
		if err := cursor.Decode(doc); err != nil {
			return nil, fmt.Errorf("reps/mongo: decode %s: %w", collection, err)
		}
		rec, err := doc.toRecord()
		if err != nil {
			return nil, fmt.Errorf("reps/mongo: decode %s: %w", collection, err)
		}
		if filter != nil && filter.Match != nil && !filter.Match(rec) {
			continue
		}
		matched = append(matched, rec)
		if filter != nil && filter.Limit > 0 && len(matched) == filter.Limit {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("reps/mongo: query %s: %w", collection, err)
	}
	return matched, nil
}

// Delete removes a record. Absent records are a no-op.
func (s *Store) Delete(ctx context.Context, collection string, recordID id.ID) error {
	_, err := s.collection(collection).DeleteOne(ctx, bson.M{"_id": recordID.String()})
	if err != nil {
		return fmt.Errorf("reps/mongo: delete %s/%s: %w", collection, recordID, err)
	}
	return nil
}
