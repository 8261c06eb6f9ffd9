package audit

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store/memory"
	"github.com/xraph/reps/timer"
	"github.com/xraph/reps/workout"
)

func TestRecorderPersistsEvents(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	rec := NewRecorder(bus, memory.New())
	defer rec.Close()
	ctx := context.Background()

	timerID := id.NewTimerID()
	bus.Emit(ctx, event.Event{
		Name: event.TimerStarted,
		Data: timer.Change{Timer: timer.Timer{ID: timerID, Kind: timer.Countdown}},
	})
	bus.Emit(ctx, event.Event{
		Name: event.TimerComplete,
		Data: timer.Change{Timer: timer.Timer{ID: timerID, Kind: timer.Countdown}},
	})

	entries, err := rec.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Event != event.TimerStarted {
		t.Errorf("first entry = %q, want started first", entries[0].Event)
	}
	if entries[0].TimerID != timerID.String() {
		t.Errorf("TimerID = %q, want %q", entries[0].TimerID, timerID)
	}
	if entries[0].At.IsZero() {
		t.Error("At not stamped")
	}
}

func TestListFilters(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	rec := NewRecorder(bus, memory.New())
	defer rec.Close()
	ctx := context.Background()

	workoutID := id.NewWorkoutID()
	otherID := id.NewWorkoutID()
	for i, wid := range []id.ID{workoutID, workoutID, otherID} {
		bus.Emit(ctx, event.Event{
			Name: event.WorkoutSetCompleted,
			Data: workout.SetCompleted{WorkoutID: wid, Set: workout.CompletedSet{SetNumber: i + 1}},
		})
	}
	bus.Emit(ctx, event.Event{
		Name: event.WorkoutFinished,
		Data: workout.Change{Session: &workout.Session{ID: workoutID}},
	})

	byWorkout, err := rec.List(ctx, Filter{WorkoutID: workoutID.String()})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byWorkout) != 3 {
		t.Errorf("by workout = %d entries, want 3", len(byWorkout))
	}

	byEvent, err := rec.List(ctx, Filter{Event: event.WorkoutFinished})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byEvent) != 1 {
		t.Errorf("by event = %d entries, want 1", len(byEvent))
	}

	limited, err := rec.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited = %d entries, want 2", len(limited))
	}

	none, err := rec.List(ctx, Filter{Since: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("future Since matched %d entries", len(none))
	}
}

func TestRecorderFailureDoesNotBreakEmit(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	mem := memory.New()
	mem.Close()
	rec := NewRecorder(bus, mem)
	defer rec.Close()

	var sawEvent bool
	bus.On(event.TimerStarted, func(context.Context, event.Event) error {
		sawEvent = true
		return nil
	})
	bus.Emit(context.Background(), event.Event{
		Name: event.TimerStarted,
		Data: timer.Change{Timer: timer.Timer{ID: id.NewTimerID()}},
	})

	if !sawEvent {
		t.Error("audit write failure stopped event delivery")
	}
}
