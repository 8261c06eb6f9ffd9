package timer

import (
	"sync"
	"time"
)

// LoopSource is the cooperative fallback ticking strategy: instead of a
// dedicated goroutine owning the counters, it re-arms a per-interval
// callback for each active timer. Used when the delegated worker fails;
// honors the exact same signal contract.
type LoopSource struct {
	interval time.Duration
	signals  chan Signal
	failures chan error

	mu       sync.Mutex
	counters map[string]*counter
	arms     map[string]*time.Timer
	closed   bool
}

// Compile-time interface check.
var _ Source = (*LoopSource)(nil)

// NewLoopSource creates a cooperative tick source with the given tick
// interval.
func NewLoopSource(interval time.Duration) *LoopSource {
	return &LoopSource{
		interval: interval,
		signals:  make(chan Signal, 256),
		failures: make(chan error, 1),
		counters: make(map[string]*counter),
		arms:     make(map[string]*time.Timer),
	}
}

// Run is a no-op; the loop source arms callbacks lazily per timer.
func (l *LoopSource) Run() error { return nil }

// Signals returns the tick/complete stream.
func (l *LoopSource) Signals() <-chan Signal { return l.signals }

// Failures never reports for the loop source; it is the strategy of
// last resort.
func (l *LoopSource) Failures() <-chan error { return l.failures }

// Send applies a command synchronously.
func (l *LoopSource) Send(cmd Command) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	key := cmd.TimerID.String()
	applyCommand(l.counters, cmd)

	switch cmd.Action {
	case ActionStart:
		if !cmd.Paused {
			l.arm(key)
		}
	case ActionResume:
		l.arm(key)
	case ActionPause, ActionStop:
		l.disarm(key)
	case ActionStopAll:
		for k := range l.arms {
			l.disarm(k)
		}
	}
}

// Close tears down every armed callback. No signals are delivered
// afterwards.
func (l *LoopSource) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for key := range l.arms {
		l.disarm(key)
	}
	clear(l.counters)
}

// arm schedules the next tick callback for one timer. Caller holds l.mu.
func (l *LoopSource) arm(key string) {
	l.disarm(key)
	l.arms[key] = time.AfterFunc(l.interval, func() { l.fire(key) })
}

// disarm cancels a pending callback. Caller holds l.mu.
func (l *LoopSource) disarm(key string) {
	if t, ok := l.arms[key]; ok {
		t.Stop()
		delete(l.arms, key)
	}
}

// fire advances one timer by a tick. State is re-checked under the
// lock: a timer paused or stopped after the callback was armed never
// ticks.
func (l *LoopSource) fire(key string) {
	l.mu.Lock()

	c, ok := l.counters[key]
	if !ok || !c.running || l.closed {
		l.mu.Unlock()
		return
	}

	single := map[string]*counter{key: c}
	var pending []Signal
	tickCounters(single, func(sig Signal) { pending = append(pending, sig) })

	if _, alive := single[key]; !alive {
		// Countdown completed.
		delete(l.counters, key)
		l.disarm(key)
	} else {
		l.arm(key)
	}
	l.mu.Unlock()

	for _, sig := range pending {
		l.signals <- sig
	}
}
