package workout

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/reps"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/routine"
	"github.com/xraph/reps/store/memory"
)

// harness wires an engine over in-memory stores with an event recorder.
type harness struct {
	engine   *Engine
	routines *routine.Store
	bus      *event.Bus
	events   *[]event.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mem := memory.New()
	bus := event.NewBus()
	events := &[]event.Event{}
	bus.OnAny(func(_ context.Context, evt event.Event) error {
		*events = append(*events, evt)
		return nil
	})

	routines := routine.NewStore(mem)
	engine := NewEngine(NewStore(mem), routines, bus)
	return &harness{engine: engine, routines: routines, bus: bus, events: events}
}

func (h *harness) createRoutine(t *testing.T, exercises ...routine.ExerciseDefinition) *routine.Routine {
	t.Helper()

	if len(exercises) == 0 {
		exercises = []routine.ExerciseDefinition{
			{Name: "Squat", TargetSets: 2, TargetReps: 5, TargetWeight: 100, RestSeconds: 120},
			{Name: "Bench Press", TargetSets: 2, TargetReps: 8, TargetWeight: 60, RestSeconds: 90},
		}
	}
	r := &routine.Routine{Name: "Strength A", Exercises: exercises}
	if err := h.routines.Create(context.Background(), r); err != nil {
		t.Fatalf("create routine: %v", err)
	}
	return r
}

func (h *harness) eventNames() []string {
	names := make([]string, 0, len(*h.events))
	for _, evt := range *h.events {
		if evt.Name == event.RoutineCreated {
			continue
		}
		names = append(names, evt.Name)
	}
	return names
}

func TestStartSnapshotsRoutine(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)

	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if s.Status != StatusActive {
		t.Errorf("Status = %q, want active", s.Status)
	}
	if s.CurrentExerciseIndex != 0 || s.CurrentSet != 1 {
		t.Errorf("position = (%d, %d), want (0, 1)", s.CurrentExerciseIndex, s.CurrentSet)
	}
	if s.RoutineName != "Strength A" {
		t.Errorf("RoutineName = %q", s.RoutineName)
	}
	if len(s.Exercises) != 2 {
		t.Fatalf("snapshot has %d exercises, want 2", len(s.Exercises))
	}
	for i, ex := range s.Exercises {
		if ex.CompletedSets != 0 || len(ex.Sets) != 0 {
			t.Errorf("exercise %d not fresh: %d sets", i, ex.CompletedSets)
		}
	}

	// Editing the routine afterwards must not alter the session.
	r.Exercises[0].TargetWeight = 999
	if err := h.routines.Update(ctx, r); err != nil {
		t.Fatalf("update routine: %v", err)
	}
	got, err := h.engine.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Exercises[0].TargetWeight != 100 {
		t.Errorf("routine edit leaked into session: weight = %g", got.Exercises[0].TargetWeight)
	}
}

func TestStartUnknownRoutine(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.engine.Start(context.Background(), id.NewRoutineID())
	if !errors.Is(err, reps.ErrRoutineNotFound) {
		t.Errorf("Start unknown = %v, want ErrRoutineNotFound", err)
	}
}

func TestCompleteSetAdvancesWithinExercise(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	reps8 := 8
	weight := 102.5
	s, err = h.engine.CompleteSet(ctx, s.ID, SetInput{Reps: &reps8, Weight: &weight})
	if err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}

	if s.CurrentExerciseIndex != 0 || s.CurrentSet != 2 {
		t.Errorf("position = (%d, %d), want (0, 2)", s.CurrentExerciseIndex, s.CurrentSet)
	}
	ex := s.Exercises[0]
	if ex.CompletedSets != 1 || len(ex.Sets) != 1 {
		t.Fatalf("CompletedSets = %d, len(Sets) = %d", ex.CompletedSets, len(ex.Sets))
	}
	set := ex.Sets[0]
	if set.SetNumber != 1 || set.Reps != 8 || set.Weight != 102.5 {
		t.Errorf("recorded set = %+v", set)
	}
	if set.CompletedAt.IsZero() {
		t.Error("set has no CompletedAt")
	}
}

func TestCompleteSetFallsBackToTargets(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	s, err = h.engine.CompleteSet(ctx, s.ID, SetInput{})
	if err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	set := s.Exercises[0].Sets[0]
	if set.Reps != 5 || set.Weight != 100 {
		t.Errorf("fallback set = %+v, want targets (5 reps, 100)", set)
	}
}

func TestCompleteSetAdvancesToNextExercise(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for range 2 {
		if s, err = h.engine.CompleteSet(ctx, s.ID, SetInput{}); err != nil {
			t.Fatalf("CompleteSet: %v", err)
		}
	}

	if s.CurrentExerciseIndex != 1 || s.CurrentSet != 1 {
		t.Errorf("position = (%d, %d), want (1, 1)", s.CurrentExerciseIndex, s.CurrentSet)
	}
	if s.Status != StatusActive {
		t.Errorf("Status = %q, want active", s.Status)
	}
}

func TestFullWorkoutScenario(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t) // 2 exercises x 2 sets
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := range 4 {
		if s, err = h.engine.CompleteSet(ctx, s.ID, SetInput{}); err != nil {
			t.Fatalf("CompleteSet %d: %v", i+1, err)
		}
	}

	if s.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", s.Status)
	}
	if s.Duration < 0 {
		t.Errorf("Duration = %d, want >= 0", s.Duration)
	}
	if s.EndedAt == nil {
		t.Error("EndedAt not stamped")
	}
	if _, ok := s.CurrentExercise(); ok {
		t.Error("CurrentExercise returned an exercise after completion")
	}
	if s.CurrentExerciseIndex != len(s.Exercises) {
		t.Errorf("CurrentExerciseIndex = %d, want %d", s.CurrentExerciseIndex, len(s.Exercises))
	}

	p := s.Progress()
	if p.PercentComplete != 100 || p.CompletedExercises != 2 {
		t.Errorf("Progress = %+v", p)
	}

	names := h.eventNames()
	want := []string{
		event.WorkoutStarted,
		event.WorkoutSetCompleted,
		event.WorkoutSetCompleted,
		event.WorkoutSetCompleted,
		event.WorkoutSetCompleted,
		event.WorkoutFinished,
	}
	if len(names) != len(want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("events = %v, want %v", names, want)
		}
	}

	// Mutating a completed session fails.
	if _, err := h.engine.CompleteSet(ctx, s.ID, SetInput{}); !errors.Is(err, reps.ErrInvalidState) {
		t.Errorf("CompleteSet on completed = %v, want ErrInvalidState", err)
	}
}

func TestInvariantsHoldThroughout(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t,
		routine.ExerciseDefinition{Name: "A", TargetSets: 3, TargetReps: 5},
		routine.ExerciseDefinition{Name: "B", TargetSets: 1, TargetReps: 10},
		routine.ExerciseDefinition{Name: "C", TargetSets: 2, TargetReps: 12},
	)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	check := func(s *Session) {
		t.Helper()
		if s.CurrentExerciseIndex < 0 || s.CurrentExerciseIndex > len(s.Exercises) {
			t.Fatalf("index invariant violated: %d", s.CurrentExerciseIndex)
		}
		for i, ex := range s.Exercises {
			if ex.CompletedSets > ex.TargetSets {
				t.Fatalf("exercise %d: completed %d > target %d", i, ex.CompletedSets, ex.TargetSets)
			}
			if len(ex.Sets) != ex.CompletedSets {
				t.Fatalf("exercise %d: len(Sets)=%d != CompletedSets=%d", i, len(ex.Sets), ex.CompletedSets)
			}
		}
	}

	check(s)
	for range 6 {
		if s, err = h.engine.CompleteSet(ctx, s.ID, SetInput{}); err != nil {
			t.Fatalf("CompleteSet: %v", err)
		}
		check(s)
	}
	if s.Status != StatusCompleted {
		t.Errorf("Status = %q after all sets", s.Status)
	}
}

func TestFinishIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	finished, err := h.engine.Finish(ctx, s.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if finished.Status != StatusCompleted {
		t.Fatalf("Status = %q", finished.Status)
	}
	endedAt := *finished.EndedAt
	duration := finished.Duration

	again, err := h.engine.Finish(ctx, s.ID)
	if err != nil {
		t.Fatalf("second Finish: %v", err)
	}
	if !again.EndedAt.Equal(endedAt) || again.Duration != duration {
		t.Error("second Finish re-stamped EndedAt/Duration")
	}

	// Only one workout.finished event.
	var finishes int
	for _, name := range h.eventNames() {
		if name == event.WorkoutFinished {
			finishes++
		}
	}
	if finishes != 1 {
		t.Errorf("workout.finished emitted %d times, want 1", finishes)
	}
}

func TestFinishUnknownWorkout(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.engine.Finish(context.Background(), id.NewWorkoutID())
	if !errors.Is(err, reps.ErrWorkoutNotFound) {
		t.Errorf("Finish unknown = %v, want ErrWorkoutNotFound", err)
	}
}

func TestPauseResume(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	paused, err := h.engine.Pause(ctx, s.ID)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused.Status != StatusPaused || paused.PausedAt == nil {
		t.Errorf("paused session = %q, PausedAt=%v", paused.Status, paused.PausedAt)
	}

	// Pausing again is an invalid transition, not a double-record.
	if _, err := h.engine.Pause(ctx, s.ID); !errors.Is(err, reps.ErrInvalidState) {
		t.Errorf("double Pause = %v, want ErrInvalidState", err)
	}

	// Completing a set while paused is rejected.
	if _, err := h.engine.CompleteSet(ctx, s.ID, SetInput{}); !errors.Is(err, reps.ErrInvalidState) {
		t.Errorf("CompleteSet while paused = %v, want ErrInvalidState", err)
	}

	resumed, err := h.engine.Resume(ctx, s.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != StatusActive || resumed.PausedAt != nil {
		t.Errorf("resumed session = %q, PausedAt=%v", resumed.Status, resumed.PausedAt)
	}
	if _, err := h.engine.Resume(ctx, s.ID); !errors.Is(err, reps.ErrInvalidState) {
		t.Errorf("double Resume = %v, want ErrInvalidState", err)
	}
}

func TestUpdateWeightMidSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s, err = h.engine.CompleteSet(ctx, s.ID, SetInput{}); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}

	updated, err := h.engine.UpdateWeight(ctx, s.ID, 0, 42.5)
	if err != nil {
		t.Fatalf("UpdateWeight: %v", err)
	}

	ex, ok := updated.CurrentExercise()
	if !ok {
		t.Fatal("no current exercise")
	}
	if ex.TargetWeight != 42.5 {
		t.Errorf("TargetWeight = %g, want 42.5", ex.TargetWeight)
	}
	if ex.CompletedSets != 1 {
		t.Errorf("CompletedSets changed: %d, want 1", ex.CompletedSets)
	}
	// The already-recorded set keeps its original weight.
	if ex.Sets[0].Weight != 100 {
		t.Errorf("recorded set weight changed: %g", ex.Sets[0].Weight)
	}
}

func TestUpdateWeightErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := h.engine.UpdateWeight(ctx, s.ID, 0, -1); !errors.Is(err, reps.ErrValidation) {
		t.Errorf("negative weight = %v, want ErrValidation", err)
	}
	if _, err := h.engine.UpdateWeight(ctx, s.ID, 7, 50); !errors.Is(err, reps.ErrExerciseNotFound) {
		t.Errorf("bad index = %v, want ErrExerciseNotFound", err)
	}
	if _, err := h.engine.UpdateWeight(ctx, id.NewWorkoutID(), 0, 50); !errors.Is(err, reps.ErrWorkoutNotFound) {
		t.Errorf("unknown workout = %v, want ErrWorkoutNotFound", err)
	}
}

func TestSetCompletedEventPayload(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	s, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := h.engine.CompleteSet(ctx, s.ID, SetInput{}); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}

	var payload *SetCompleted
	for _, evt := range *h.events {
		if evt.Name == event.WorkoutSetCompleted {
			p := evt.Data.(SetCompleted)
			payload = &p
		}
	}
	if payload == nil {
		t.Fatal("no workout.set_completed event")
	}
	if payload.WorkoutID.String() != s.ID.String() {
		t.Errorf("payload workout id = %s", payload.WorkoutID)
	}
	if payload.ExerciseIndex != 0 {
		t.Errorf("payload exercise index = %d", payload.ExerciseIndex)
	}
	if payload.Set.SetNumber != 1 {
		t.Errorf("payload set number = %d", payload.Set.SetNumber)
	}
	if payload.EventRef().WorkoutID != s.ID.String() {
		t.Error("EventRef missing workout id")
	}
}

func TestStoreListHelpers(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	r := h.createRoutine(t)
	other := h.createRoutine(t,
		routine.ExerciseDefinition{Name: "Row", TargetSets: 1, TargetReps: 10},
	)

	first, err := h.engine.Start(ctx, r.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	second, err := h.engine.Start(ctx, other.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := h.engine.Finish(ctx, second.ID); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	mem := h.engine.sessions
	byRoutine, err := mem.ListByRoutine(ctx, r.ID)
	if err != nil {
		t.Fatalf("ListByRoutine: %v", err)
	}
	if len(byRoutine) != 1 || byRoutine[0].ID.String() != first.ID.String() {
		t.Errorf("ListByRoutine = %d sessions", len(byRoutine))
	}

	active, err := mem.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active) != 1 || active[0].ID.String() != first.ID.String() {
		t.Errorf("Active = %d sessions", len(active))
	}
}
