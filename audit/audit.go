// Package audit persists every bus event as a queryable history entry.
// Recording follows the bus handler contract: failures are logged and
// never propagate into the emitting operation.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/reps/codec"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store"
)

// Collection is the store collection holding audit entries.
const Collection = "audit"

// Entry is one recorded event.
type Entry struct {
	ID        id.ID     `json:"id"`
	Event     string    `json:"event"`
	At        time.Time `json:"at"`
	WorkoutID string    `json:"workout_id,omitempty"`
	TimerID   string    `json:"timer_id,omitempty"`
	RoutineID string    `json:"routine_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Filter narrows a List call. Zero fields match everything.
type Filter struct {
	// Event matches the exact event name.
	Event string

	// WorkoutID, TimerID, RoutineID match entries referencing the id.
	WorkoutID string
	TimerID   string
	RoutineID string

	// Since keeps entries at or after the instant.
	Since time.Time

	// Limit caps the result. Zero means no limit.
	Limit int
}

// Recorder subscribes to the whole bus and writes entries through the
// generic store.
type Recorder struct {
	records store.Records
	codec   codec.Codec
	logger  *slog.Logger

	bus *event.Bus
	sub event.Subscription
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCodec sets the entry encoding. JSON by default.
func WithCodec(c codec.Codec) Option {
	return func(r *Recorder) { r.codec = c }
}

// WithLogger sets the recorder's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// NewRecorder attaches a recorder to the bus.
func NewRecorder(bus *event.Bus, records store.Records, opts ...Option) *Recorder {
	r := &Recorder{
		records: records,
		codec:   codec.JSON{},
		logger:  slog.Default(),
		bus:     bus,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "audit"))
	r.sub = bus.OnAny(r.record)
	return r
}

// Close detaches the recorder from the bus.
func (r *Recorder) Close() { r.bus.Off(r.sub) }

func (r *Recorder) record(ctx context.Context, evt event.Event) error {
	entry := Entry{
		ID:    id.NewEventID(),
		Event: evt.Name,
		At:    evt.At,
		Data:  evt.Data,
	}
	if ref, ok := evt.Data.(event.Referencer); ok {
		refs := ref.EventRef()
		entry.WorkoutID = refs.WorkoutID
		entry.TimerID = refs.TimerID
		entry.RoutineID = refs.RoutineID
	}

	raw, err := r.codec.Marshal(entry)
	if err != nil {
		r.logger.Error("audit encode failed",
			slog.String("event", evt.Name),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if _, err := r.records.Put(ctx, Collection, &store.Record{Data: raw}); err != nil {
		r.logger.Error("audit write failed",
			slog.String("event", evt.Name),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// List returns recorded entries matching the filter, oldest first.
func (r *Recorder) List(ctx context.Context, filter Filter) ([]Entry, error) {
	records, err := r.records.Query(ctx, Collection, nil)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		var entry Entry
		if err := r.codec.Unmarshal(rec.Data, &entry); err != nil {
			r.logger.Warn("audit decode failed",
				slog.String("record_id", rec.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !matches(entry, filter) {
			continue
		}
		entries = append(entries, entry)
		if filter.Limit > 0 && len(entries) == filter.Limit {
			break
		}
	}
	return entries, nil
}

func matches(entry Entry, filter Filter) bool {
	if filter.Event != "" && entry.Event != filter.Event {
		return false
	}
	if filter.WorkoutID != "" && entry.WorkoutID != filter.WorkoutID {
		return false
	}
	if filter.TimerID != "" && entry.TimerID != filter.TimerID {
		return false
	}
	if filter.RoutineID != "" && entry.RoutineID != filter.RoutineID {
		return false
	}
	if !filter.Since.IsZero() && entry.At.Before(filter.Since) {
		return false
	}
	return true
}
