package observability

import (
	"context"
	"testing"

	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/timer"
	"github.com/xraph/reps/workout"
)

// With no MeterProvider installed the instruments are noops; the test
// proves the extension never interferes with event delivery.
func TestMetricsIsTransparent(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	m := NewMetrics(bus)
	defer m.Close()

	var delivered int
	bus.OnAny(func(context.Context, event.Event) error {
		delivered++
		return nil
	})

	ctx := context.Background()
	bus.Emit(ctx, event.Event{Name: event.WorkoutStarted, Data: workout.Change{}})
	bus.Emit(ctx, event.Event{Name: event.WorkoutSetCompleted, Data: workout.SetCompleted{WorkoutID: id.NewWorkoutID()}})
	bus.Emit(ctx, event.Event{
		Name: event.WorkoutFinished,
		Data: workout.Change{Session: &workout.Session{Duration: 1800}},
	})
	bus.Emit(ctx, event.Event{
		Name: event.TimerComplete,
		Data: timer.Change{Timer: timer.Timer{ID: id.NewTimerID(), Kind: timer.Countdown}},
	})

	if delivered != 4 {
		t.Errorf("delivered = %d, want 4", delivered)
	}
}

func TestCloseDetaches(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	m := NewMetrics(bus)
	m.Close()

	// Emitting after Close must not panic.
	bus.Emit(context.Background(), event.Event{Name: event.WorkoutStarted, Data: workout.Change{}})
}
