package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handler processes a single event. Returning an error never aborts
// delivery to the remaining handlers; the bus logs it and moves on.
type Handler func(ctx context.Context, evt Event) error

// Middleware wraps a Handler with cross-cutting logic. Middleware
// installed with Use is applied to every handler at subscription time.
type Middleware func(next Handler) Handler

// Subscription is an opaque token identifying one registered handler.
// Keep it to remove the handler later with Off.
type Subscription struct {
	name string // "" for wildcard subscriptions
	seq  uint64
}

type entry struct {
	seq     uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe event bus. Handlers for an
// event run in subscription order on the emitter's goroutine. A panic
// or error in one handler is caught and logged and neither prevents the
// remaining handlers from running nor propagates to the emitter.
//
// Bus is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	seq      uint64
	handlers map[string][]entry
	wildcard []entry
	mws      []Middleware
	logger   *slog.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger sets the logger used for handler failures.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *Bus) { b.logger = l }
}

// NewBus creates an empty Bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]entry),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Use installs middleware applied to every subsequently subscribed
// handler, outermost first. Call Use before subscribing.
func (b *Bus) Use(mws ...Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mws = append(b.mws, mws...)
}

// On subscribes a handler to the named event. The returned Subscription
// removes exactly this handler when passed to Off.
func (b *Bus) On(name string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.handlers[name] = append(b.handlers[name], entry{seq: b.seq, handler: b.wrap(h)})
	return Subscription{name: name, seq: b.seq}
}

// OnAny subscribes a handler to every event. Wildcard handlers run
// after the named handlers for each emit, in subscription order.
func (b *Bus) OnAny(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.wildcard = append(b.wildcard, entry{seq: b.seq, handler: b.wrap(h)})
	return Subscription{seq: b.seq}
}

// Off removes the handler identified by the subscription. Removing an
// already-removed subscription is a no-op.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.name == "" {
		b.wildcard = removeEntry(b.wildcard, sub.seq)
		return
	}

	entries := removeEntry(b.handlers[sub.name], sub.seq)
	if len(entries) == 0 {
		delete(b.handlers, sub.name)
		return
	}
	b.handlers[sub.name] = entries
}

// Emit delivers the event synchronously to all matching handlers.
// The event's At timestamp is stamped if zero.
func (b *Bus) Emit(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]entry, 0, len(b.handlers[evt.Name])+len(b.wildcard))
	targets = append(targets, b.handlers[evt.Name]...)
	targets = append(targets, b.wildcard...)
	b.mu.RUnlock()

	for _, e := range targets {
		b.call(ctx, e.handler, evt)
	}
}

// call invokes a single handler, converting panics and errors into logs.
func (b *Bus) call(ctx context.Context, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("event", evt.Name),
				slog.Any("panic", r),
			)
		}
	}()

	if err := h(ctx, evt); err != nil {
		b.logger.Error("event handler failed",
			slog.String("event", evt.Name),
			slog.String("error", err.Error()),
		)
	}
}

// wrap applies the installed middleware chain. Caller holds b.mu.
func (b *Bus) wrap(h Handler) Handler {
	for i := len(b.mws) - 1; i >= 0; i-- {
		h = b.mws[i](h)
	}
	return h
}

func removeEntry(entries []entry, seq uint64) []entry {
	for i, e := range entries {
		if e.seq == seq {
			return append(entries[:i:i], entries[i+1:]...)
		}
	}
	return entries
}
