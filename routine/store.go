package routine

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/reps"
	"github.com/xraph/reps/codec"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Collection is the record collection routines persist into.
const Collection = "routines"

// Store provides typed routine persistence over a generic record store.
// Writes validate and slug before touching the backend and emit
// routine.* events on success.
type Store struct {
	records store.Records
	bus     *event.Bus
	codec   codec.Codec
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCodec sets the payload codec. Defaults to JSON.
func WithCodec(c codec.Codec) StoreOption {
	return func(s *Store) { s.codec = c }
}

// WithBus sets the event bus routine.* events are emitted on.
// Without a bus, writes are silent.
func WithBus(b *event.Bus) StoreOption {
	return func(s *Store) { s.bus = b }
}

// NewStore creates a typed routine store over the given record store.
func NewStore(records store.Records, opts ...StoreOption) *Store {
	s := &Store{records: records, codec: codec.JSON{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the routine, assigns its identity and slug, and
// persists it. Exercises without an ID get one. Emits routine.created.
func (s *Store) Create(ctx context.Context, r *Routine) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if r.ID.IsNil() {
		r.ID = id.NewRoutineID()
	}
	for i := range r.Exercises {
		if r.Exercises[i].ID.IsNil() {
			r.Exercises[i].ID = id.NewExerciseID()
		}
		if r.Exercises[i].Order == 0 {
			r.Exercises[i].Order = i
		}
	}
	r.Entity = reps.NewEntity()

	if r.Slug == "" {
		existing, err := s.slugs(ctx)
		if err != nil {
			return err
		}
		r.Slug = DedupeSlug(Slugify(r.Name), func(candidate string) bool {
			_, taken := existing[candidate]
			return taken
		})
	}

	if err := s.put(ctx, r); err != nil {
		return err
	}
	s.emit(ctx, event.RoutineCreated, r)
	return nil
}

// Get returns the routine with the given id.
func (s *Store) Get(ctx context.Context, routineID id.ID) (*Routine, error) {
	rec, err := s.records.Get(ctx, Collection, routineID)
	if err != nil {
		if errors.Is(err, reps.ErrNotFound) {
			return nil, reps.ErrRoutineNotFound
		}
		return nil, err
	}
	return s.decode(rec)
}

// GetBySlug returns the routine with the given slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Routine, error) {
	routines, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range routines {
		if r.Slug == slug {
			return r, nil
		}
	}
	return nil, reps.ErrRoutineNotFound
}

// List returns all routines, oldest first.
func (s *Store) List(ctx context.Context) ([]*Routine, error) {
	records, err := s.records.Query(ctx, Collection, nil)
	if err != nil {
		return nil, err
	}
	routines := make([]*Routine, 0, len(records))
	for _, rec := range records {
		r, err := s.decode(rec)
		if err != nil {
			return nil, err
		}
		routines = append(routines, r)
	}
	return routines, nil
}

// Update re-validates and replaces an existing routine, bumping its
// UpdatedAt. Emits routine.updated.
func (s *Store) Update(ctx context.Context, r *Routine) error {
	if err := r.Validate(); err != nil {
		return err
	}
	existing, err := s.Get(ctx, r.ID)
	if err != nil {
		return err
	}

	r.CreatedAt = existing.CreatedAt
	r.Touch()
	if r.Slug == "" {
		r.Slug = existing.Slug
	}

	if err := s.put(ctx, r); err != nil {
		return err
	}
	s.emit(ctx, event.RoutineUpdated, r)
	return nil
}

// Delete removes a routine. Sessions already started from it are
// untouched; they hold their own snapshot. Emits routine.deleted.
func (s *Store) Delete(ctx context.Context, routineID id.ID) error {
	r, err := s.Get(ctx, routineID)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, Collection, routineID); err != nil {
		return err
	}
	s.emit(ctx, event.RoutineDeleted, r)
	return nil
}

func (s *Store) put(ctx context.Context, r *Routine) error {
	data, err := s.codec.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode routine: %w", err)
	}
	_, err = s.records.Put(ctx, Collection, &store.Record{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Data:      data,
	})
	return err
}

func (s *Store) decode(rec *store.Record) (*Routine, error) {
	var r Routine
	if err := s.codec.Unmarshal(rec.Data, &r); err != nil {
		return nil, fmt.Errorf("decode routine %s: %w", rec.ID, err)
	}
	return &r, nil
}

func (s *Store) slugs(ctx context.Context) (map[string]struct{}, error) {
	routines, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(routines))
	for _, r := range routines {
		taken[r.Slug] = struct{}{}
	}
	return taken, nil
}

func (s *Store) emit(ctx context.Context, name string, r *Routine) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(ctx, event.Event{Name: name, Data: Change{Routine: r}})
}
