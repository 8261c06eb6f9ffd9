package middleware

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/reps/event"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) event.Middleware {
		return func(next event.Handler) event.Handler {
			return func(ctx context.Context, evt event.Event) error {
				order = append(order, name+":before")
				err := next(ctx, evt)
				order = append(order, name+":after")
				return err
			}
		}
	}

	h := Chain(tag("outer"), tag("inner"))(func(context.Context, event.Event) error {
		order = append(order, "handler")
		return nil
	})
	if err := h(context.Background(), event.Event{Name: "test"}); err != nil {
		t.Fatalf("chain: %v", err)
	}

	want := []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	t.Parallel()

	h := Recover(discardLogger())(func(context.Context, event.Event) error {
		panic("boom")
	})
	err := h(context.Background(), event.Event{Name: "workout.started"})
	if err == nil {
		t.Fatal("panic not converted to error")
	}
}

func TestLoggingPassesErrorThrough(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("handler failed")
	h := Logging(discardLogger())(func(context.Context, event.Event) error {
		return sentinel
	})
	if err := h(context.Background(), event.Event{Name: "timer.tick"}); !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want sentinel", err)
	}
}

func TestTimeoutCancelsSlowHandler(t *testing.T) {
	t.Parallel()

	h := Timeout(10 * time.Millisecond)(func(ctx context.Context, _ event.Event) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	err := h(context.Background(), event.Event{Name: "timer.tick"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestMetricsIsPassThrough(t *testing.T) {
	t.Parallel()

	// No meter provider installed: instruments are noops and the
	// handler result passes through untouched.
	sentinel := errors.New("nope")
	h := Metrics()(func(context.Context, event.Event) error { return sentinel })
	if err := h(context.Background(), event.Event{Name: "workout.finished"}); !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want sentinel", err)
	}

	ok := Metrics()(func(context.Context, event.Event) error { return nil })
	if err := ok(context.Background(), event.Event{Name: "workout.finished"}); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestTracingIsPassThrough(t *testing.T) {
	t.Parallel()

	h := Tracing()(func(ctx context.Context, _ event.Event) error {
		if ctx == nil {
			return errors.New("nil ctx")
		}
		return nil
	})
	if err := h(context.Background(), event.Event{Name: "timer.complete"}); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestBusUseRunsChain(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	bus.Use(Chain(Recover(discardLogger())))

	bus.On("workout.started", func(context.Context, event.Event) error {
		panic("handler bug")
	})
	var after bool
	bus.On("workout.started", func(context.Context, event.Event) error {
		after = true
		return nil
	})

	bus.Emit(context.Background(), event.Event{Name: "workout.started"})
	if !after {
		t.Error("panic in first handler stopped the second")
	}
}
