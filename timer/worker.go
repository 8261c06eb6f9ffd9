package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/xraph/reps/id"
)

// counter is the per-timer tick state owned by a source.
type counter struct {
	timerID   id.ID
	kind      Kind
	remaining int
	elapsed   int
	running   bool
}

// WorkerSource is the delegated ticking strategy: a single background
// goroutine owns the timer counters, consumes commands from a channel,
// and emits tick/complete signals once per interval. The scheduler's
// goroutine never touches the counters.
type WorkerSource struct {
	interval time.Duration
	commands chan Command
	signals  chan Signal
	failures chan error

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// Compile-time interface check.
var _ Source = (*WorkerSource)(nil)

// NewWorkerSource creates a delegated tick source with the given tick
// interval.
func NewWorkerSource(interval time.Duration) *WorkerSource {
	return &WorkerSource{
		interval: interval,
		commands: make(chan Command, 64),
		signals:  make(chan Signal, 256),
		failures: make(chan error, 1),
		stopCh:   make(chan struct{}),
	}
}

// Run launches the worker goroutine.
func (w *WorkerSource) Run() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	w.started = true

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Send queues a command for the worker goroutine.
func (w *WorkerSource) Send(cmd Command) {
	select {
	case w.commands <- cmd:
	case <-w.stopCh:
	}
}

// Signals returns the tick/complete stream.
func (w *WorkerSource) Signals() <-chan Signal { return w.signals }

// Failures reports a worker crash.
func (w *WorkerSource) Failures() <-chan error { return w.failures }

// Close stops the worker goroutine and waits for it to exit.
func (w *WorkerSource) Close() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
		w.mu.Unlock()
		return
	default:
	}
	close(w.stopCh)
	w.mu.Unlock()
	w.wg.Wait()
}

// loop is the worker goroutine: it owns the counters outright.
// A panic anywhere in the loop is reported on the failures channel so
// the scheduler can swap strategies; the counters die with the loop.
func (w *WorkerSource) loop() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			select {
			case w.failures <- fmt.Errorf("timer worker panicked: %v", r):
			default:
			}
		}
	}()

	counters := make(map[string]*counter)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case cmd := <-w.commands:
			applyCommand(counters, cmd)
		case <-ticker.C:
			tickCounters(counters, w.emit)
		}
	}
}

func (w *WorkerSource) emit(sig Signal) {
	select {
	case w.signals <- sig:
	case <-w.stopCh:
	}
}

// applyCommand mutates the counter set for one command. Shared by both
// sources so the protocol semantics cannot drift apart.
func applyCommand(counters map[string]*counter, cmd Command) {
	key := cmd.TimerID.String()
	switch cmd.Action {
	case ActionStart:
		counters[key] = &counter{
			timerID:   cmd.TimerID,
			kind:      cmd.Kind,
			remaining: cmd.Remaining,
			elapsed:   cmd.Elapsed,
			running:   !cmd.Paused,
		}
	case ActionPause:
		if c, ok := counters[key]; ok {
			c.running = false
		}
	case ActionResume:
		if c, ok := counters[key]; ok {
			c.running = true
		}
	case ActionStop:
		delete(counters, key)
	case ActionStopAll:
		clear(counters)
	}
}

// tickCounters advances every running counter by one second and emits
// the resulting signals. Countdowns land on exactly zero and complete
// once; completed countdowns are removed so they can never tick again.
func tickCounters(counters map[string]*counter, emit func(Signal)) {
	for key, c := range counters {
		if !c.running {
			continue
		}
		c.elapsed++

		switch c.kind {
		case Countdown:
			c.remaining--
			if c.remaining < 0 {
				c.remaining = 0
			}
			emit(Signal{Type: SignalTick, TimerID: c.timerID, Remaining: c.remaining, Elapsed: c.elapsed})
			if c.remaining == 0 {
				emit(Signal{Type: SignalComplete, TimerID: c.timerID, Elapsed: c.elapsed})
				delete(counters, key)
			}
		case Stopwatch:
			emit(Signal{Type: SignalTick, TimerID: c.timerID, Elapsed: c.elapsed})
		}
	}
}
