package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/reps/event"
)

// meterName is the instrumentation scope name for reps metrics.
const meterName = "github.com/xraph/reps"

// Metrics returns middleware that records per-handler execution metrics
// using the global OTel MeterProvider. With no MeterProvider configured
// the instruments are noops and the middleware is a pass-through.
//
// Instruments:
//   - reps.event.duration (Float64Histogram): handler time in seconds,
//     with attributes: event, status ("ok" or "error")
//   - reps.event.handled (Int64Counter): total handler invocations,
//     with the same attributes
func Metrics() event.Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) event.Middleware {
	// Instruments are created once; the OTel API guarantees noop
	// fallbacks on error.
	duration, _ := meter.Float64Histogram(
		"reps.event.duration",
		metric.WithDescription("Duration of event handler execution in seconds"),
		metric.WithUnit("s"),
	)
	handled, _ := meter.Int64Counter(
		"reps.event.handled",
		metric.WithDescription("Total number of event handler invocations"),
		metric.WithUnit("{invocation}"),
	)

	return func(next event.Handler) event.Handler {
		return func(ctx context.Context, evt event.Event) error {
			start := time.Now()
			err := next(ctx, evt)
			elapsed := time.Since(start).Seconds()

			status := "ok"
			if err != nil {
				status = "error"
			}
			attrs := metric.WithAttributes(
				attribute.String("event", evt.Name),
				attribute.String("status", status),
			)
			duration.Record(ctx, elapsed, attrs)
			handled.Add(ctx, 1, attrs)

			return err
		}
	}
}
