package middleware

import (
	"context"
	"time"

	"github.com/xraph/reps/event"
)

// Timeout returns middleware that bounds each handler call with a
// deadline. Handlers doing context-bound I/O (audit writes, snapshot
// persistence) give up when the deadline is exceeded.
func Timeout(d time.Duration) event.Middleware {
	return func(next event.Handler) event.Handler {
		return func(ctx context.Context, evt event.Event) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, evt)
		}
	}
}
