// Package app wires the reps components into one runnable unit: a
// store, an event bus, the workout engine, the routine store, and the
// timer scheduler, with optional notification, audit, and metrics
// attachments.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/reps"
	"github.com/xraph/reps/audit"
	"github.com/xraph/reps/codec"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/middleware"
	"github.com/xraph/reps/notify"
	"github.com/xraph/reps/observability"
	"github.com/xraph/reps/routine"
	"github.com/xraph/reps/store"
	"github.com/xraph/reps/store/memory"
	"github.com/xraph/reps/timer"
	"github.com/xraph/reps/workout"
)

// SnapshotCollection is the record collection timer snapshots persist
// into across Stop/Restore.
const SnapshotCollection = "timer_snapshots"

// App is the assembled engine: everything needed to run workouts and
// timers in one process.
type App struct {
	logger *slog.Logger
	codec  codec.Codec
	clock  func() time.Time

	store     store.Store
	bus       *event.Bus
	routines  *routine.Store
	workouts  *workout.Store
	engine    *workout.Engine
	scheduler *timer.Scheduler

	notifier *notify.Notifier
	recorder *audit.Recorder
	metrics  *observability.Metrics

	tickInterval time.Duration
	strategy     reps.Strategy

	haptic notify.Haptic
	audio  notify.Audio

	withNotifier      bool
	withAudit         bool
	withObservability bool
}

// Option configures an App.
type Option func(*App)

// WithStore sets the record store. Defaults to the in-memory store.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithBus injects an external event bus, e.g. one that already carries
// middleware.
func WithBus(bus *event.Bus) Option {
	return func(a *App) { a.bus = bus }
}

// WithTickInterval sets the scheduler tick granularity.
func WithTickInterval(d time.Duration) Option {
	return func(a *App) { a.tickInterval = d }
}

// WithStrategy selects the scheduler's primary ticking strategy.
func WithStrategy(strategy reps.Strategy) Option {
	return func(a *App) { a.strategy = strategy }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.clock = now }
}

// WithCodec sets the codec used for persisted payloads and snapshots.
func WithCodec(c codec.Codec) Option {
	return func(a *App) { a.codec = c }
}

// WithNotifier attaches rest-notification delivery through the given
// sinks. Nil sinks log instead of vibrating or playing.
func WithNotifier(haptic notify.Haptic, audio notify.Audio) Option {
	return func(a *App) {
		a.withNotifier = true
		a.haptic = haptic
		a.audio = audio
	}
}

// WithAudit persists every bus event to the store's audit collection.
func WithAudit() Option {
	return func(a *App) { a.withAudit = true }
}

// WithObservability records OpenTelemetry metrics for workout and
// timer activity.
func WithObservability() Option {
	return func(a *App) { a.withObservability = true }
}

// New assembles an App. The returned App is not running; call Start.
func New(opts ...Option) (*App, error) {
	a := &App{
		logger:       slog.Default(),
		codec:        codec.JSON{},
		clock:        func() time.Time { return time.Now().UTC() },
		tickInterval: time.Second,
		strategy:     reps.StrategyWorker,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		a.store = memory.New()
	}
	if a.bus == nil {
		a.bus = event.NewBus(event.WithBusLogger(a.logger))
		a.bus.Use(middleware.Chain(
			middleware.Recover(a.logger),
			middleware.Logging(a.logger),
		))
	}

	a.routines = routine.NewStore(a.store,
		routine.WithBus(a.bus),
		routine.WithCodec(a.codec),
	)
	a.workouts = workout.NewStore(a.store, workout.WithCodec(a.codec))
	a.engine = workout.NewEngine(a.workouts, a.routines, a.bus,
		workout.WithLogger(a.logger),
		workout.WithClock(a.clock),
	)
	a.scheduler = timer.NewScheduler(a.bus,
		timer.WithTickInterval(a.tickInterval),
		timer.WithStrategy(a.strategy),
		timer.WithLogger(a.logger),
		timer.WithClock(a.clock),
	)

	if a.withNotifier {
		a.notifier = notify.NewNotifier(a.bus, a.haptic, a.audio, notify.WithLogger(a.logger))
	}
	if a.withAudit {
		a.recorder = audit.NewRecorder(a.bus, a.store,
			audit.WithCodec(a.codec),
			audit.WithLogger(a.logger),
		)
	}
	if a.withObservability {
		a.metrics = observability.NewMetrics(a.bus)
	}

	return a, nil
}

// Start migrates and pings the store, then starts the timer scheduler.
func (a *App) Start(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("reps/app: migrate store: %w", err)
	}
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("reps/app: ping store: %w", err)
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("reps/app: start scheduler: %w", err)
	}
	a.logger.Info("app started")
	return nil
}

// Stop shuts the scheduler down, persists a snapshot of the timers that
// were live, detaches the optional components, and closes the store.
func (a *App) Stop(ctx context.Context) error {
	var errs []error

	if err := a.scheduler.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown scheduler: %w", err))
	}
	if err := a.saveSnapshot(ctx); err != nil {
		errs = append(errs, fmt.Errorf("save snapshot: %w", err))
	}

	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.metrics != nil {
		a.metrics.Close()
	}

	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	a.logger.Info("app stopped")
	if len(errs) > 0 {
		return fmt.Errorf("reps/app: stop: %w", errors.Join(errs...))
	}
	return nil
}

// Restore reloads the latest persisted timer snapshot and resumes its
// timers, folding away the downtime. A missing snapshot is not an
// error.
func (a *App) Restore(ctx context.Context) error {
	records, err := a.store.Query(ctx, SnapshotCollection, nil)
	if err != nil {
		return fmt.Errorf("reps/app: load snapshot: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	// Query orders by creation time; the newest snapshot is last.
	latest := records[len(records)-1]
	var snap timer.Snapshot
	if err := a.codec.Unmarshal(latest.Data, &snap); err != nil {
		return fmt.Errorf("reps/app: decode snapshot: %w", err)
	}

	a.scheduler.RestoreSnapshot(ctx, snap)
	a.logger.Info("timer snapshot restored",
		slog.Int("timers", len(snap.Timers)),
		slog.Time("taken_at", snap.TakenAt),
	)
	return nil
}

// saveSnapshot replaces any previously persisted snapshots with the
// current one. An empty snapshot still clears the old ones so a
// restart does not resurrect long-gone timers.
func (a *App) saveSnapshot(ctx context.Context) error {
	old, err := a.store.Query(ctx, SnapshotCollection, nil)
	if err != nil {
		return err
	}
	for _, rec := range old {
		if err := a.store.Delete(ctx, SnapshotCollection, rec.ID); err != nil {
			return err
		}
	}

	snap := a.scheduler.Snapshot()
	if len(snap.Timers) == 0 {
		return nil
	}
	data, err := a.codec.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := a.store.Put(ctx, SnapshotCollection, &store.Record{Data: data}); err != nil {
		return err
	}
	a.logger.Info("timer snapshot saved", slog.Int("timers", len(snap.Timers)))
	return nil
}

// ── Accessors ───────────────────────────────────────

// Workouts returns the workout engine.
func (a *App) Workouts() *workout.Engine { return a.engine }

// Sessions returns the raw session store.
func (a *App) Sessions() *workout.Store { return a.workouts }

// Routines returns the routine store.
func (a *App) Routines() *routine.Store { return a.routines }

// Timers returns the timer scheduler.
func (a *App) Timers() *timer.Scheduler { return a.scheduler }

// Bus returns the event bus.
func (a *App) Bus() *event.Bus { return a.bus }

// Store returns the record store.
func (a *App) Store() store.Store { return a.store }

// Logger returns the app's logger.
func (a *App) Logger() *slog.Logger { return a.logger }
