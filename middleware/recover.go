package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/reps/event"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) event.Middleware {
	return func(next event.Handler) event.Handler {
		return func(ctx context.Context, evt event.Event) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event handler panicked",
						slog.String("event", evt.Name),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					retErr = fmt.Errorf("panic handling %s: %v", evt.Name, r)
				}
			}()
			return next(ctx, evt)
		}
	}
}
