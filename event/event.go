// Package event provides the synchronous event bus shared by the workout
// engine and the timer scheduler. Handlers run in subscription order on
// the emitter's goroutine; a failing handler is logged and never prevents
// the remaining handlers from running.
package event

import "time"

// Event is a named occurrence published on the Bus. Data carries the
// component-specific payload (typically a pointer to a domain type).
type Event struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Workout lifecycle event names.
const (
	WorkoutStarted       = "workout.started"
	WorkoutSetCompleted  = "workout.set_completed"
	WorkoutFinished      = "workout.finished"
	WorkoutPaused        = "workout.paused"
	WorkoutResumed       = "workout.resumed"
	WorkoutWeightUpdated = "workout.weight_updated"
)

// Timer lifecycle event names.
const (
	TimerStarted       = "timer.started"
	TimerTick          = "timer.tick"
	TimerComplete      = "timer.complete"
	TimerPaused        = "timer.paused"
	TimerResumed       = "timer.resumed"
	TimerStopped       = "timer.stopped"
	TimerRestHalfway   = "timer.rest_halfway"
	TimerRestCountdown = "timer.rest_countdown"
	TimerRestComplete  = "timer.rest_complete"
)

// Routine lifecycle event names.
const (
	RoutineCreated = "routine.created"
	RoutineUpdated = "routine.updated"
	RoutineDeleted = "routine.deleted"
)

// SchedulerDegraded is emitted once when the delegated ticking strategy
// fails and the scheduler swaps to the cooperative fallback.
const SchedulerDegraded = "scheduler.degraded"

// Ref identifies the domain entities an event concerns. Payload types
// implement Referencer so that consumers (stream broker, audit recorder)
// can route and index events without knowing every payload type.
type Ref struct {
	WorkoutID string `json:"workout_id,omitempty"`
	TimerID   string `json:"timer_id,omitempty"`
	RoutineID string `json:"routine_id,omitempty"`
}

// Referencer is implemented by event payloads that reference domain
// entities.
type Referencer interface {
	EventRef() Ref
}
