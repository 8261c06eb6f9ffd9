package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/reps"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
)

// restFinalWindow is the length in seconds of a rest timer's closing
// countdown stretch.
const restFinalWindow = 10

// SourceFactory builds a tick source for a given tick interval.
type SourceFactory func(interval time.Duration) Source

// Scheduler runs zero or more independent timers with one-second tick
// granularity and relays their tick/complete signals as bus events.
// Ticking is produced by a Source; when the delegated worker source
// fails, the scheduler transparently swaps to the cooperative loop
// fallback carrying over all live timers, without surfacing the
// failure to callers.
type Scheduler struct {
	bus      *event.Bus
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	primary  SourceFactory
	fallback SourceFactory

	mu       sync.RWMutex
	timers   map[string]*Timer
	src      Source
	degraded bool

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets the tick granularity. One second unless
// shortened for tests.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

// WithLogger sets the scheduler's structured logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock overrides the wall clock used for pause compensation and
// suspend/restore accounting.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithStrategy selects the primary ticking strategy by name.
func WithStrategy(strategy reps.Strategy) SchedulerOption {
	return func(s *Scheduler) {
		switch strategy {
		case reps.StrategyLoop:
			s.primary = func(d time.Duration) Source { return NewLoopSource(d) }
		default:
			s.primary = func(d time.Duration) Source { return NewWorkerSource(d) }
		}
	}
}

// WithSource injects a custom primary source factory. Tests use this to
// provoke degradation.
func WithSource(factory SourceFactory) SchedulerOption {
	return func(s *Scheduler) { s.primary = factory }
}

// NewScheduler creates a Scheduler publishing on the given bus.
// Call Start before starting timers.
func NewScheduler(bus *event.Bus, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		bus:      bus,
		logger:   slog.Default(),
		interval: 1 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
		primary:  func(d time.Duration) Source { return NewWorkerSource(d) },
		fallback: func(d time.Duration) Source { return NewLoopSource(d) },
		timers:   make(map[string]*Timer),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "timer"))
	return s
}

// Start brings up the tick source and the relay goroutine.
// If the primary source fails to initialize the scheduler degrades to
// the fallback immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true

	s.src = s.primary(s.interval)
	if err := s.src.Run(); err != nil {
		s.logger.Warn("tick source failed to start, using fallback",
			slog.String("error", err.Error()),
		)
		s.degraded = true
		s.src = s.fallback(s.interval)
		if runErr := s.src.Run(); runErr != nil {
			s.started = false
			s.mu.Unlock()
			return runErr
		}
		defer s.bus.Emit(ctx, event.Event{
			Name: event.SchedulerDegraded,
			Data: Degraded{Reason: err.Error()},
		})
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.relay()

	s.logger.Info("timer scheduler started", slog.Duration("tick_interval", s.interval))
	return nil
}

// Shutdown halts the relay goroutine and tears down the tick source.
// Live timers stay in the mirror so a Snapshot taken afterwards still
// sees them.
func (s *Scheduler) Shutdown(_ context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	src := s.src
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	if src != nil {
		src.Close()
	}
	s.logger.Info("timer scheduler stopped")
	return nil
}

// ── Timer operations ────────────────────────────────

// TimerOption configures a started timer.
type TimerOption func(*Timer)

// WithLabel attaches a display label to the timer.
func WithLabel(label string) TimerOption {
	return func(t *Timer) { t.Label = label }
}

// StartCountdown starts a countdown of the given number of seconds.
// Fails with a validation error if seconds is not positive.
func (s *Scheduler) StartCountdown(ctx context.Context, seconds int, opts ...TimerOption) (id.ID, error) {
	if seconds <= 0 {
		return id.Nil, fmt.Errorf("%w: countdown duration must be positive, got %d", reps.ErrValidation, seconds)
	}
	t := &Timer{
		ID:        id.NewTimerID(),
		Kind:      Countdown,
		Duration:  seconds,
		Remaining: seconds,
		Status:    Running,
		StartedAt: s.now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	s.admit(ctx, t)
	return t.ID, nil
}

// StartStopwatch starts an unbounded count-up timer.
func (s *Scheduler) StartStopwatch(ctx context.Context, opts ...TimerOption) (id.ID, error) {
	t := &Timer{
		ID:        id.NewTimerID(),
		Kind:      Stopwatch,
		Status:    Running,
		StartedAt: s.now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	s.admit(ctx, t)
	return t.ID, nil
}

// StartRest starts an inter-set rest countdown with derived halfway and
// final-countdown notifications layered on the base ticks.
func (s *Scheduler) StartRest(ctx context.Context, seconds int, opts ...TimerOption) (id.ID, error) {
	if seconds <= 0 {
		return id.Nil, fmt.Errorf("%w: rest duration must be positive, got %d", reps.ErrValidation, seconds)
	}
	t := &Timer{
		ID:        id.NewTimerID(),
		Kind:      Countdown,
		Duration:  seconds,
		Remaining: seconds,
		Status:    Running,
		StartedAt: s.now(),
		Rest: &RestPlan{
			Halfway:     seconds / 2,
			FinalWindow: restFinalWindow,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	s.admit(ctx, t)
	return t.ID, nil
}

// admit registers a new timer and tells the source to tick it.
func (s *Scheduler) admit(ctx context.Context, t *Timer) {
	s.mu.Lock()
	s.timers[t.ID.String()] = t
	src := s.src
	cp := *t
	s.mu.Unlock()

	if src != nil {
		src.Send(Command{
			Action:    ActionStart,
			TimerID:   t.ID,
			Kind:      t.Kind,
			Duration:  t.Duration,
			Remaining: t.Remaining,
			Elapsed:   t.Elapsed,
			Paused:    t.Status == Paused,
		})
	}
	s.bus.Emit(ctx, event.Event{Name: event.TimerStarted, Data: Change{Timer: cp}})
}

// Pause halts a running timer, recording the pause instant.
// Returns false if the timer is unknown or not running.
func (s *Scheduler) Pause(timerID id.ID) bool {
	s.mu.Lock()
	t, ok := s.timers[timerID.String()]
	if !ok || t.Status != Running {
		s.mu.Unlock()
		return false
	}
	now := s.now()
	t.Status = Paused
	t.PausedAt = &now
	src := s.src
	cp := *t
	s.mu.Unlock()

	if src != nil {
		src.Send(Command{Action: ActionPause, TimerID: timerID})
	}
	s.bus.Emit(context.Background(), event.Event{Name: event.TimerPaused, Data: Change{Timer: cp}})
	return true
}

// Resume restarts a paused timer, compensating StartedAt by the paused
// interval so elapsed-since-start accounting stays correct.
// Returns false if the timer is unknown or not paused.
func (s *Scheduler) Resume(timerID id.ID) bool {
	s.mu.Lock()
	t, ok := s.timers[timerID.String()]
	if !ok || t.Status != Paused {
		s.mu.Unlock()
		return false
	}
	if t.PausedAt != nil {
		t.StartedAt = t.StartedAt.Add(s.now().Sub(*t.PausedAt))
	}
	t.Status = Running
	t.PausedAt = nil
	src := s.src
	cp := *t
	s.mu.Unlock()

	if src != nil {
		src.Send(Command{Action: ActionResume, TimerID: timerID})
	}
	s.bus.Emit(context.Background(), event.Event{Name: event.TimerResumed, Data: Change{Timer: cp}})
	return true
}

// Stop cancels and discards a timer. Returns false if unknown.
func (s *Scheduler) Stop(timerID id.ID) bool {
	s.mu.Lock()
	t, ok := s.timers[timerID.String()]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.timers, timerID.String())
	src := s.src
	cp := *t
	s.mu.Unlock()

	if src != nil {
		src.Send(Command{Action: ActionStop, TimerID: timerID})
	}
	s.bus.Emit(context.Background(), event.Event{Name: event.TimerStopped, Data: Change{Timer: cp}})
	return true
}

// StopAll stops every active timer.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	stopped := make([]Timer, 0, len(s.timers))
	for _, t := range s.timers {
		stopped = append(stopped, *t)
	}
	clear(s.timers)
	src := s.src
	s.mu.Unlock()

	if src != nil {
		src.Send(Command{Action: ActionStopAll})
	}
	for _, cp := range stopped {
		s.bus.Emit(context.Background(), event.Event{Name: event.TimerStopped, Data: Change{Timer: cp}})
	}
}

// Get returns a read-only copy of a timer.
func (s *Scheduler) Get(timerID id.ID) (Timer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timers[timerID.String()]
	if !ok {
		return Timer{}, false
	}
	return *t, true
}

// Active returns read-only copies of every live timer.
func (s *Scheduler) Active() []Timer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	timers := make([]Timer, 0, len(s.timers))
	for _, t := range s.timers {
		timers = append(timers, *t)
	}
	return timers
}

// ── Signal relay ────────────────────────────────────

// relay forwards source signals as bus events until Stop. The source is
// re-read every iteration so a degradation swap takes effect within one
// tick.
func (s *Scheduler) relay() {
	defer s.wg.Done()

	for {
		s.mu.RLock()
		src := s.src
		s.mu.RUnlock()

		select {
		case <-s.stopCh:
			return
		case sig := <-src.Signals():
			s.handle(sig)
		case err := <-src.Failures():
			s.degrade(err)
		}
	}
}

// handle applies one signal to the mirror and emits the matching
// events. Signals for timers stopped in the meantime are dropped.
func (s *Scheduler) handle(sig Signal) {
	ctx := context.Background()

	s.mu.Lock()
	t, ok := s.timers[sig.TimerID.String()]
	if !ok || t.Status != Running {
		s.mu.Unlock()
		return
	}
	t.Remaining = sig.Remaining
	t.Elapsed = sig.Elapsed
	if sig.Type == SignalComplete {
		delete(s.timers, sig.TimerID.String())
	}
	cp := *t
	s.mu.Unlock()

	switch sig.Type {
	case SignalTick:
		tick := Tick{
			TimerID:   cp.ID,
			Kind:      cp.Kind,
			Remaining: cp.Remaining,
			Elapsed:   cp.Elapsed,
			Label:     cp.Label,
		}
		s.bus.Emit(ctx, event.Event{Name: event.TimerTick, Data: tick})

		// Derived rest notifications; they never alter the accounting.
		if rest := cp.Rest; rest != nil {
			if cp.Remaining == rest.Halfway && rest.Halfway > rest.FinalWindow {
				s.bus.Emit(ctx, event.Event{Name: event.TimerRestHalfway, Data: tick})
			}
			if cp.Remaining > 0 && cp.Remaining <= rest.FinalWindow {
				s.bus.Emit(ctx, event.Event{Name: event.TimerRestCountdown, Data: tick})
			}
		}
	case SignalComplete:
		s.complete(ctx, cp)
	}
}

// complete emits the completion events for a countdown that reached
// zero (or was found expired during restore).
func (s *Scheduler) complete(ctx context.Context, cp Timer) {
	cp.Remaining = 0
	s.bus.Emit(ctx, event.Event{Name: event.TimerComplete, Data: Change{Timer: cp}})
	if cp.Rest != nil {
		s.bus.Emit(ctx, event.Event{Name: event.TimerRestComplete, Data: Change{Timer: cp}})
	}
}

// degrade swaps the failed source for the cooperative fallback,
// carrying over every live timer with its current counters. Callers
// observe at most one tick of delay; the failure is never surfaced.
func (s *Scheduler) degrade(cause error) {
	s.mu.Lock()
	if s.degraded {
		s.mu.Unlock()
		return
	}
	s.degraded = true

	old := s.src
	next := s.fallback(s.interval)
	if err := next.Run(); err != nil {
		// Fallback refusing to run leaves the old source in place;
		// nothing more can be done without breaking the contract.
		s.degraded = false
		s.mu.Unlock()
		s.logger.Error("fallback tick source failed to start", slog.String("error", err.Error()))
		return
	}
	for _, t := range s.timers {
		next.Send(Command{
			Action:    ActionStart,
			TimerID:   t.ID,
			Kind:      t.Kind,
			Duration:  t.Duration,
			Remaining: t.Remaining,
			Elapsed:   t.Elapsed,
			Paused:    t.Status == Paused,
		})
	}
	s.src = next
	carried := len(s.timers)
	s.mu.Unlock()

	go old.Close()

	s.logger.Warn("delegated tick source failed, swapped to cooperative fallback",
		slog.String("error", cause.Error()),
		slog.Int("carried_timers", carried),
	)
	s.bus.Emit(context.Background(), event.Event{
		Name: event.SchedulerDegraded,
		Data: Degraded{Reason: cause.Error()},
	})
}
