// Package observability records training metrics from bus events via
// OpenTelemetry instruments. With no MeterProvider installed the
// instruments are noops, so attaching the extension is always safe.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/reps/event"
	"github.com/xraph/reps/timer"
	"github.com/xraph/reps/workout"
)

// meterName is the instrumentation scope name for reps metrics.
const meterName = "github.com/xraph/reps"

// Metrics subscribes to the bus and records lifecycle counters:
//
//   - reps.workouts.started / reps.workouts.finished
//   - reps.sets.completed
//   - reps.timers.started / reps.timers.completed
//   - reps.workout.duration (histogram, seconds)
type Metrics struct {
	workoutsStarted  metric.Int64Counter
	workoutsFinished metric.Int64Counter
	setsCompleted    metric.Int64Counter
	timersStarted    metric.Int64Counter
	timersCompleted  metric.Int64Counter
	workoutDuration  metric.Float64Histogram

	bus  *event.Bus
	subs []event.Subscription
}

// NewMetrics attaches the metrics extension to the bus using the global
// MeterProvider.
func NewMetrics(bus *event.Bus) *Metrics {
	return NewMetricsWithMeter(bus, otel.Meter(meterName))
}

// NewMetricsWithMeter attaches the metrics extension using the provided
// meter. This variant allows injecting a specific MeterProvider for
// testing.
func NewMetricsWithMeter(bus *event.Bus, meter metric.Meter) *Metrics {
	// The OTel API guarantees noop instrument fallbacks on error.
	m := &Metrics{bus: bus}
	m.workoutsStarted, _ = meter.Int64Counter("reps.workouts.started",
		metric.WithDescription("Workout sessions started"),
		metric.WithUnit("{session}"),
	)
	m.workoutsFinished, _ = meter.Int64Counter("reps.workouts.finished",
		metric.WithDescription("Workout sessions finished"),
		metric.WithUnit("{session}"),
	)
	m.setsCompleted, _ = meter.Int64Counter("reps.sets.completed",
		metric.WithDescription("Exercise sets completed"),
		metric.WithUnit("{set}"),
	)
	m.timersStarted, _ = meter.Int64Counter("reps.timers.started",
		metric.WithDescription("Timers started"),
		metric.WithUnit("{timer}"),
	)
	m.timersCompleted, _ = meter.Int64Counter("reps.timers.completed",
		metric.WithDescription("Countdowns run to completion"),
		metric.WithUnit("{timer}"),
	)
	m.workoutDuration, _ = meter.Float64Histogram("reps.workout.duration",
		metric.WithDescription("Completed workout duration in seconds"),
		metric.WithUnit("s"),
	)

	m.subs = []event.Subscription{
		bus.On(event.WorkoutStarted, m.onWorkoutStarted),
		bus.On(event.WorkoutFinished, m.onWorkoutFinished),
		bus.On(event.WorkoutSetCompleted, m.onSetCompleted),
		bus.On(event.TimerStarted, m.onTimerStarted),
		bus.On(event.TimerComplete, m.onTimerComplete),
	}
	return m
}

// Close detaches the extension from the bus.
func (m *Metrics) Close() {
	for _, sub := range m.subs {
		m.bus.Off(sub)
	}
}

func (m *Metrics) onWorkoutStarted(ctx context.Context, _ event.Event) error {
	m.workoutsStarted.Add(ctx, 1)
	return nil
}

func (m *Metrics) onWorkoutFinished(ctx context.Context, evt event.Event) error {
	m.workoutsFinished.Add(ctx, 1)
	if change, ok := evt.Data.(workout.Change); ok {
		m.workoutDuration.Record(ctx, float64(change.Session.Duration))
	}
	return nil
}

func (m *Metrics) onSetCompleted(ctx context.Context, _ event.Event) error {
	m.setsCompleted.Add(ctx, 1)
	return nil
}

func (m *Metrics) onTimerStarted(ctx context.Context, evt event.Event) error {
	m.timersStarted.Add(ctx, 1, metric.WithAttributes(kindAttr(evt)))
	return nil
}

func (m *Metrics) onTimerComplete(ctx context.Context, evt event.Event) error {
	m.timersCompleted.Add(ctx, 1, metric.WithAttributes(kindAttr(evt)))
	return nil
}

func kindAttr(evt event.Event) attribute.KeyValue {
	if change, ok := evt.Data.(timer.Change); ok {
		return attribute.String("kind", string(change.Timer.Kind))
	}
	return attribute.String("kind", "unknown")
}
