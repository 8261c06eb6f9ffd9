package workout

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/reps"
	"github.com/xraph/reps/codec"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Collection is the record collection sessions persist into.
const Collection = "workouts"

// Store provides typed session persistence over a generic record store.
type Store struct {
	records store.Records
	codec   codec.Codec
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCodec sets the payload codec. Defaults to JSON.
func WithCodec(c codec.Codec) StoreOption {
	return func(s *Store) { s.codec = c }
}

// NewStore creates a typed session store over the given record store.
func NewStore(records store.Records, opts ...StoreOption) *Store {
	s := &Store{records: records, codec: codec.JSON{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the session with the given id.
// Returns reps.ErrWorkoutNotFound if absent.
func (s *Store) Get(ctx context.Context, workoutID id.ID) (*Session, error) {
	rec, err := s.records.Get(ctx, Collection, workoutID)
	if err != nil {
		if errors.Is(err, reps.ErrNotFound) {
			return nil, reps.ErrWorkoutNotFound
		}
		return nil, err
	}
	return s.decode(rec)
}

// Put persists a session, bumping its UpdatedAt.
func (s *Store) Put(ctx context.Context, sess *Session) error {
	sess.Touch()
	data, err := s.codec.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode workout: %w", err)
	}
	_, err = s.records.Put(ctx, Collection, &store.Record{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		Data:      data,
	})
	return err
}

// List returns all sessions, oldest first.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	return s.query(ctx, nil)
}

// ListByRoutine returns the sessions started from the given routine.
func (s *Store) ListByRoutine(ctx context.Context, routineID id.ID) ([]*Session, error) {
	return s.query(ctx, func(sess *Session) bool {
		return sess.RoutineID.String() == routineID.String()
	})
}

// Active returns the sessions that have not completed.
func (s *Store) Active(ctx context.Context) ([]*Session, error) {
	return s.query(ctx, func(sess *Session) bool {
		return sess.Status != StatusCompleted
	})
}

func (s *Store) query(ctx context.Context, keep func(*Session) bool) ([]*Session, error) {
	records, err := s.records.Query(ctx, Collection, nil)
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, 0, len(records))
	for _, rec := range records {
		sess, err := s.decode(rec)
		if err != nil {
			return nil, err
		}
		if keep != nil && !keep(sess) {
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *Store) decode(rec *store.Record) (*Session, error) {
	var sess Session
	if err := s.codec.Unmarshal(rec.Data, &sess); err != nil {
		return nil, fmt.Errorf("decode workout %s: %w", rec.ID, err)
	}
	return &sess, nil
}
