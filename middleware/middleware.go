// Package middleware provides composable middleware for event handler
// execution. Install on a bus with bus.Use; every handler subscribed
// afterwards runs inside the chain.
package middleware

import "github.com/xraph/reps/event"

// Chain composes multiple middleware into one.
// Middleware apply right-to-left: the first in the list is the
// outermost wrapper.
//
// Example: Chain(Logging(l), Recover(l)) executes as
//
//	logging → recover → handler
func Chain(mws ...event.Middleware) event.Middleware {
	return func(next event.Handler) event.Handler {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
