package workout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/reps"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/routine"
	"github.com/xraph/reps/scope"
)

// RoutineSource resolves routine templates. *routine.Store satisfies it.
type RoutineSource interface {
	Get(ctx context.Context, routineID id.ID) (*routine.Routine, error)
}

// Engine owns the session state machine. Every mutation validates and
// looks up before persisting, persists exactly once per operation, and
// emits the matching workout.* event on success.
//
// The engine provides no ordering guarantee across operations issued
// concurrently on the same session id; callers serialize per session
// (last write wins otherwise).
type Engine struct {
	sessions *Store
	routines RoutineSource
	bus      *event.Bus
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the wall clock. Tests use this to control
// duration stamping.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over the given session store, routine
// source, and event bus.
func NewEngine(sessions *Store, routines RoutineSource, bus *event.Bus, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions: sessions,
		routines: routines,
		bus:      bus,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "workout"))
	return e
}

// Start creates a new active session from a routine, snapshotting each
// exercise definition's targets into fresh progress records.
// Returns reps.ErrRoutineNotFound if the routine does not resolve.
func (e *Engine) Start(ctx context.Context, routineID id.ID) (*Session, error) {
	r, err := e.routines.Get(ctx, routineID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Entity:      reps.NewEntity(),
		ID:          id.NewWorkoutID(),
		RoutineID:   r.ID,
		RoutineName: r.Name,
		Owner:       scope.OwnerFrom(ctx),
		Status:      StatusActive,
		CurrentSet:  1,
		StartedAt:   e.now(),
		Exercises:   snapshotExercises(r.Exercises),
	}

	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, err
	}

	e.logger.Info("workout started",
		slog.String("workout_id", s.ID.String()),
		slog.String("routine", r.Name),
		slog.Int("exercises", len(s.Exercises)),
	)
	e.bus.Emit(ctx, event.Event{Name: event.WorkoutStarted, Data: Change{Session: s}})
	return s, nil
}

// SetInput carries the performed reps and weight for one completed set.
// Nil fields fall back to the exercise's current targets.
type SetInput struct {
	Reps   *int     `json:"reps,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

// CompleteSet records a performed set against the current exercise and
// advances the session. When the set fills the current exercise the
// index moves on; when it fills the last exercise the finish transition
// runs instead of persisting an intermediate index. The returned
// session may therefore already be completed.
func (e *Engine) CompleteSet(ctx context.Context, workoutID id.ID, input SetInput) (*Session, error) {
	s, err := e.sessions.Get(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusActive {
		return nil, fmt.Errorf("%w: cannot complete a set on a %s workout", reps.ErrInvalidState, s.Status)
	}

	ex, ok := s.CurrentExercise()
	if !ok {
		return nil, fmt.Errorf("%w: workout has no remaining exercises", reps.ErrInvalidState)
	}

	completed := CompletedSet{
		SetNumber:   ex.CompletedSets + 1,
		Reps:        ex.TargetReps,
		Weight:      ex.TargetWeight,
		CompletedAt: e.now(),
	}
	if input.Reps != nil {
		completed.Reps = *input.Reps
	}
	if input.Weight != nil {
		completed.Weight = *input.Weight
	}

	ex.Sets = append(ex.Sets, completed)
	ex.CompletedSets++
	exerciseIndex := s.CurrentExerciseIndex

	if ex.Done() {
		s.CurrentExerciseIndex++
		s.CurrentSet = 1
		if s.CurrentExerciseIndex >= len(s.Exercises) {
			// Last set of the last exercise: finish in the same write
			// rather than persisting an intermediate index.
			e.complete(s)
		}
	} else {
		s.CurrentSet++
	}

	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, err
	}

	e.bus.Emit(ctx, event.Event{Name: event.WorkoutSetCompleted, Data: SetCompleted{
		WorkoutID:     s.ID,
		ExerciseIndex: exerciseIndex,
		Set:           completed,
		Session:       s,
	}})
	if s.Status == StatusCompleted {
		e.logger.Info("workout finished",
			slog.String("workout_id", s.ID.String()),
			slog.Int("duration_seconds", s.Duration),
		)
		e.bus.Emit(ctx, event.Event{Name: event.WorkoutFinished, Data: Change{Session: s}})
	}
	return s, nil
}

// Finish explicitly completes a session. Finishing an already-completed
// session is idempotent: the session is returned unchanged, with no
// re-stamped end time or duration.
func (e *Engine) Finish(ctx context.Context, workoutID id.ID) (*Session, error) {
	s, err := e.sessions.Get(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if s.Status == StatusCompleted {
		return s, nil
	}

	e.complete(s)
	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, err
	}

	e.logger.Info("workout finished",
		slog.String("workout_id", s.ID.String()),
		slog.Int("duration_seconds", s.Duration),
	)
	e.bus.Emit(ctx, event.Event{Name: event.WorkoutFinished, Data: Change{Session: s}})
	return s, nil
}

// Pause halts an active session.
func (e *Engine) Pause(ctx context.Context, workoutID id.ID) (*Session, error) {
	s, err := e.sessions.Get(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusActive {
		return nil, fmt.Errorf("%w: cannot pause a %s workout", reps.ErrInvalidState, s.Status)
	}

	now := e.now()
	s.Status = StatusPaused
	s.PausedAt = &now

	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	e.bus.Emit(ctx, event.Event{Name: event.WorkoutPaused, Data: Change{Session: s}})
	return s, nil
}

// Resume reactivates a paused session.
func (e *Engine) Resume(ctx context.Context, workoutID id.ID) (*Session, error) {
	s, err := e.sessions.Get(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusPaused {
		return nil, fmt.Errorf("%w: cannot resume a %s workout", reps.ErrInvalidState, s.Status)
	}

	s.Status = StatusActive
	s.PausedAt = nil

	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	e.bus.Emit(ctx, event.Event{Name: event.WorkoutResumed, Data: Change{Session: s}})
	return s, nil
}

// UpdateWeight live-adjusts one exercise's target weight mid-session
// without touching its completed sets.
func (e *Engine) UpdateWeight(ctx context.Context, workoutID id.ID, exerciseIndex int, weight float64) (*Session, error) {
	if weight < 0 {
		return nil, fmt.Errorf("%w: weight must not be negative, got %g", reps.ErrValidation, weight)
	}

	s, err := e.sessions.Get(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if s.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: cannot edit a completed workout", reps.ErrInvalidState)
	}
	if exerciseIndex < 0 || exerciseIndex >= len(s.Exercises) {
		return nil, reps.ErrExerciseNotFound
	}

	s.Exercises[exerciseIndex].TargetWeight = weight

	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	e.bus.Emit(ctx, event.Event{Name: event.WorkoutWeightUpdated, Data: WeightUpdated{
		WorkoutID:     s.ID,
		ExerciseIndex: exerciseIndex,
		Weight:        weight,
		Session:       s,
	}})
	return s, nil
}

// Get returns the session with the given id.
func (e *Engine) Get(ctx context.Context, workoutID id.ID) (*Session, error) {
	return e.sessions.Get(ctx, workoutID)
}

// complete runs the active→completed transition in memory: stamps
// EndedAt, computes the whole-second duration, and flips the status.
// Callers persist and emit.
func (e *Engine) complete(s *Session) {
	now := e.now()
	s.EndedAt = &now
	s.Duration = int(now.Sub(s.StartedAt).Seconds())
	if s.Duration < 0 {
		s.Duration = 0
	}
	s.Status = StatusCompleted
	s.PausedAt = nil
}

func snapshotExercises(defs []routine.ExerciseDefinition) []ExerciseProgress {
	exercises := make([]ExerciseProgress, len(defs))
	for i, def := range defs {
		exercises[i] = ExerciseProgress{
			ExerciseID:   def.ID,
			Name:         def.Name,
			TargetSets:   def.TargetSets,
			TargetReps:   def.TargetReps,
			TargetWeight: def.TargetWeight,
			WeightUnit:   def.WeightUnit,
			RestSeconds:  def.RestSeconds,
			Sets:         []CompletedSet{},
		}
	}
	return exercises
}
