package timer

import "github.com/xraph/reps/id"

// Action is the command verb sent to a tick source.
type Action string

const (
	ActionStart   Action = "start"
	ActionPause   Action = "pause"
	ActionResume  Action = "resume"
	ActionStop    Action = "stop"
	ActionStopAll Action = "stopAll"
)

// Command is the outbound message of the ticking protocol: the
// scheduler tells the source which timers to run.
type Command struct {
	Action    Action
	TimerID   id.ID
	Kind      Kind
	Duration  int
	Remaining int
	Elapsed   int

	// Paused creates the timer without ticking it (restore of a timer
	// that was paused at snapshot time).
	Paused bool
}

// SignalType is the inbound message type of the ticking protocol.
type SignalType string

const (
	SignalTick     SignalType = "tick"
	SignalComplete SignalType = "complete"
)

// Signal is an inbound tick or completion message from a source.
type Signal struct {
	Type      SignalType
	TimerID   id.ID
	Remaining int
	Elapsed   int
}

// Source produces per-second ticks for a set of timers. The two
// implementations — WorkerSource (delegated, a background goroutine
// owning the counters) and LoopSource (cooperative fallback, re-armed
// callbacks) — are behaviorally indistinguishable to the Scheduler:
// remaining reaches exactly zero on the final tick, complete fires
// exactly once per countdown, and stopped or paused timers never tick.
type Source interface {
	// Run starts the source. Must be called before Send.
	Run() error

	// Send delivers a command. Never blocks indefinitely.
	Send(cmd Command)

	// Signals is the stream of tick/complete messages.
	Signals() <-chan Signal

	// Failures reports an unrecoverable source failure. The scheduler
	// reacts by swapping to the cooperative fallback.
	Failures() <-chan error

	// Close tears the source down. No signals are delivered after
	// Close returns.
	Close()
}
