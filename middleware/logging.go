package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/reps/event"
)

// Logging returns middleware that logs handler completion. Successful
// calls log at Debug to keep tick traffic out of production logs;
// failures log at Error.
func Logging(logger *slog.Logger) event.Middleware {
	return func(next event.Handler) event.Handler {
		return func(ctx context.Context, evt event.Event) error {
			start := time.Now()
			err := next(ctx, evt)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("event handler failed",
					slog.String("event", evt.Name),
					slog.Duration("elapsed", elapsed),
					slog.String("error", err.Error()),
				)
			} else {
				logger.Debug("event handled",
					slog.String("event", evt.Name),
					slog.Duration("elapsed", elapsed),
				)
			}
			return err
		}
	}
}
