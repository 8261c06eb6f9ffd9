// Package workout implements the workout session state machine: one
// concrete, timestamped attempt at performing a routine, advanced one
// completed set at a time. Sessions are created by starting a routine,
// mutated exclusively through the Engine, and kept as historical
// records once completed.
package workout

import (
	"math"
	"time"

	"github.com/xraph/reps"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
)

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusActive means the session is in progress.
	StatusActive Status = "active"
	// StatusPaused means the session is temporarily halted.
	StatusPaused Status = "paused"
	// StatusCompleted means the session finished. Terminal: no further
	// mutation of exercises or sets is permitted.
	StatusCompleted Status = "completed"
)

// Session is one attempt at performing a routine, with live progress.
//
// Invariants maintained by the Engine:
//   - 0 <= CurrentExerciseIndex <= len(Exercises)
//   - per exercise: CompletedSets <= TargetSets and len(Sets) == CompletedSets
//   - Duration is stamped exactly once, at the transition to completed
type Session struct {
	reps.Entity

	ID          id.ID  `json:"id"`
	RoutineID   id.ID  `json:"routine_id"`
	RoutineName string `json:"routine_name"`
	Owner       string `json:"owner,omitempty"`
	Status      Status `json:"status"`

	// CurrentExerciseIndex is 0-based and may equal len(Exercises)
	// once the session has run past its last exercise.
	CurrentExerciseIndex int `json:"current_exercise_index"`

	// CurrentSet is the 1-based number of the set being worked within
	// the current exercise.
	CurrentSet int `json:"current_set"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	PausedAt  *time.Time `json:"paused_at,omitempty"`

	// Duration is the whole-second session length, set once at completion.
	Duration int `json:"duration_seconds"`

	Exercises []ExerciseProgress `json:"exercises"`
}

// ExerciseProgress is the per-exercise progress record inside a
// session, snapshotted from its definition at start time. TargetWeight
// may be live-edited mid-session; the other targets are fixed.
type ExerciseProgress struct {
	ExerciseID    id.ID          `json:"exercise_id"`
	Name          string         `json:"name"`
	TargetSets    int            `json:"target_sets"`
	TargetReps    int            `json:"target_reps"`
	TargetWeight  float64        `json:"target_weight"`
	WeightUnit    string         `json:"weight_unit,omitempty"`
	RestSeconds   int            `json:"rest_seconds"`
	CompletedSets int            `json:"completed_sets"`
	Sets          []CompletedSet `json:"sets"`
}

// Done reports whether every target set of the exercise is completed.
func (p *ExerciseProgress) Done() bool {
	return p.CompletedSets >= p.TargetSets
}

// CompletedSet records one performed set.
type CompletedSet struct {
	SetNumber   int       `json:"set_number"`
	Reps        int       `json:"reps"`
	Weight      float64   `json:"weight"`
	CompletedAt time.Time `json:"completed_at"`
}

// CurrentExercise returns the exercise the session is positioned on,
// or false when the index has run past the last exercise (session
// finished).
func (s *Session) CurrentExercise() (*ExerciseProgress, bool) {
	if s.CurrentExerciseIndex < 0 || s.CurrentExerciseIndex >= len(s.Exercises) {
		return nil, false
	}
	return &s.Exercises[s.CurrentExerciseIndex], true
}

// Progress summarizes how far a session has advanced.
type Progress struct {
	TotalExercises     int `json:"total_exercises"`
	CompletedExercises int `json:"completed_exercises"`
	CurrentExercise    int `json:"current_exercise"` // 1-based
	TotalSets          int `json:"total_sets"`
	CompletedSets      int `json:"completed_sets"`
	PercentComplete    int `json:"percent_complete"`
}

// Progress computes the session's progress summary. Pure: it never
// mutates the session, and identical inputs yield identical results.
func (s *Session) Progress() Progress {
	p := Progress{
		TotalExercises:  len(s.Exercises),
		CurrentExercise: s.CurrentExerciseIndex + 1,
	}
	for i := range s.Exercises {
		ex := &s.Exercises[i]
		p.TotalSets += ex.TargetSets
		p.CompletedSets += ex.CompletedSets
		if ex.Done() {
			p.CompletedExercises++
		}
	}
	if p.TotalSets > 0 {
		p.PercentComplete = int(math.Round(100 * float64(p.CompletedSets) / float64(p.TotalSets)))
	}
	return p
}

// ── Event payloads ──────────────────────────────────

// Change is the payload for workout.started/finished/paused/resumed.
type Change struct {
	Session *Session `json:"session"`
}

// EventRef implements event.Referencer.
func (c Change) EventRef() event.Ref {
	return event.Ref{WorkoutID: c.Session.ID.String(), RoutineID: c.Session.RoutineID.String()}
}

// SetCompleted is the payload for workout.set_completed.
type SetCompleted struct {
	WorkoutID     id.ID        `json:"workout_id"`
	ExerciseIndex int          `json:"exercise_index"`
	Set           CompletedSet `json:"set"`
	Session       *Session     `json:"session"`
}

// EventRef implements event.Referencer.
func (c SetCompleted) EventRef() event.Ref {
	return event.Ref{WorkoutID: c.WorkoutID.String()}
}

// WeightUpdated is the payload for workout.weight_updated.
type WeightUpdated struct {
	WorkoutID     id.ID    `json:"workout_id"`
	ExerciseIndex int      `json:"exercise_index"`
	Weight        float64  `json:"weight"`
	Session       *Session `json:"session"`
}

// EventRef implements event.Referencer.
func (c WeightUpdated) EventRef() event.Ref {
	return event.Ref{WorkoutID: c.WorkoutID.String()}
}
