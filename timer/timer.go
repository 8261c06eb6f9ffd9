// Package timer implements the rest-period timer scheduler: countdown
// and stopwatch timers with one-second tick granularity, delivered by
// one of two interchangeable ticking strategies, with save/restore
// support for timers that must survive a process suspension.
package timer

import (
	"time"

	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
)

// Kind distinguishes the two timer shapes.
type Kind string

const (
	// Countdown counts Remaining from Duration down to zero, then
	// completes.
	Countdown Kind = "countdown"
	// Stopwatch counts Elapsed up without bound.
	Stopwatch Kind = "stopwatch"
)

// Status is the run state of a timer. Stopped timers do not exist:
// a timer is destroyed on explicit stop or natural completion.
type Status string

const (
	Running Status = "running"
	Paused  Status = "paused"
)

// Timer is one live countdown or stopwatch owned by the Scheduler.
// Values handed out by Get/Active are copies; mutate only through the
// Scheduler.
type Timer struct {
	ID   id.ID  `json:"id"`
	Kind Kind   `json:"kind"`

	// Duration is the countdown length in seconds. Zero for stopwatches.
	Duration int `json:"duration_seconds,omitempty"`

	// Remaining counts down to zero, never below. Countdown only.
	Remaining int `json:"remaining_seconds"`

	// Elapsed counts whole ticked seconds since start.
	Elapsed int `json:"elapsed_seconds"`

	Status    Status     `json:"status"`
	Label     string     `json:"label,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	PausedAt  *time.Time `json:"paused_at,omitempty"`

	// Rest is set for rest timers; it drives the derived halfway and
	// final-countdown notifications without touching the accounting.
	Rest *RestPlan `json:"rest,omitempty"`
}

// RestPlan describes the derived notifications of a rest timer.
type RestPlan struct {
	// Halfway is the remaining-seconds mark at which timer.rest_halfway
	// fires, floor(duration/2). Suppressed when it falls inside the
	// final window.
	Halfway int `json:"halfway"`

	// FinalWindow is the length of the closing stretch during which
	// every tick fires timer.rest_countdown.
	FinalWindow int `json:"final_window"`
}

// ── Event payloads ──────────────────────────────────

// Tick is the payload for timer.tick, timer.rest_halfway, and
// timer.rest_countdown events.
type Tick struct {
	TimerID   id.ID  `json:"timer_id"`
	Kind      Kind   `json:"kind"`
	Remaining int    `json:"remaining_seconds"`
	Elapsed   int    `json:"elapsed_seconds"`
	Label     string `json:"label,omitempty"`
}

// EventRef implements event.Referencer.
func (t Tick) EventRef() event.Ref { return event.Ref{TimerID: t.TimerID.String()} }

// Change is the payload for timer lifecycle events (started, paused,
// resumed, stopped, complete, rest_complete). Timer is a copy.
type Change struct {
	Timer Timer `json:"timer"`
}

// EventRef implements event.Referencer.
func (c Change) EventRef() event.Ref { return event.Ref{TimerID: c.Timer.ID.String()} }

// Degraded is the payload for scheduler.degraded.
type Degraded struct {
	Reason string `json:"reason"`
}
