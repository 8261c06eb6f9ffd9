package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/reps/event"
)

// tracerName is the instrumentation scope name for reps tracing.
const tracerName = "github.com/xraph/reps"

// Tracing returns middleware that wraps handler execution in an
// OpenTelemetry span. With no TracerProvider configured globally the
// noop tracer makes this a zero-overhead pass-through.
func Tracing() event.Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided
// tracer. This variant allows injecting a specific TracerProvider for
// testing.
func TracingWithTracer(tracer trace.Tracer) event.Middleware {
	return func(next event.Handler) event.Handler {
		return func(ctx context.Context, evt event.Event) error {
			attrs := []attribute.KeyValue{
				attribute.String("reps.event", evt.Name),
			}
			if ref, ok := evt.Data.(event.Referencer); ok {
				r := ref.EventRef()
				if r.WorkoutID != "" {
					attrs = append(attrs, attribute.String("reps.workout.id", r.WorkoutID))
				}
				if r.TimerID != "" {
					attrs = append(attrs, attribute.String("reps.timer.id", r.TimerID))
				}
				if r.RoutineID != "" {
					attrs = append(attrs, attribute.String("reps.routine.id", r.RoutineID))
				}
			}

			ctx, span := tracer.Start(ctx, "reps.event.handle",
				trace.WithAttributes(attrs...),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			err := next(ctx, evt)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}
