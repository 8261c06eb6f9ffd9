// Package routine defines workout routine templates: named, ordered
// sequences of exercise definitions a user intends to perform
// repeatedly. Routines are pure data; starting one produces a
// workout.Session that snapshots the definitions by value, so later
// edits to a routine never alter a running session.
package routine

import (
	"fmt"
	"strings"

	"github.com/xraph/reps"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
)

// Difficulty grades a routine.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Valid reports whether the difficulty is a known grade.
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// Routine is a reusable workout template.
type Routine struct {
	reps.Entity

	ID          id.ID                `json:"id"`
	Name        string               `json:"name"`
	Slug        string               `json:"slug,omitempty"`
	Description string               `json:"description,omitempty"`
	Difficulty  Difficulty           `json:"difficulty,omitempty"`
	Owner       string               `json:"owner,omitempty"`
	Exercises   []ExerciseDefinition `json:"exercises"`
}

// ExerciseDefinition is the reusable specification of one exercise
// within a routine: the targets for sets, reps, weight, and rest.
type ExerciseDefinition struct {
	ID           id.ID    `json:"id"`
	Name         string   `json:"name"`
	Order        int      `json:"order"`
	TargetSets   int      `json:"target_sets"`
	TargetReps   int      `json:"target_reps"`
	TargetWeight float64  `json:"target_weight"`
	WeightUnit   string   `json:"weight_unit,omitempty"`
	RestSeconds  int      `json:"rest_seconds"`
	Notes        string   `json:"notes,omitempty"`
	Category     string   `json:"category,omitempty"`
	Equipment    string   `json:"equipment,omitempty"`
	MuscleGroups []string `json:"muscle_groups,omitempty"`
}

// Validate checks the routine and every exercise in it. All failures
// wrap reps.ErrValidation and are raised before any persistence.
func (r *Routine) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: routine name must not be empty", reps.ErrValidation)
	}
	if r.Difficulty != "" && !r.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", reps.ErrValidation, r.Difficulty)
	}
	for i := range r.Exercises {
		if err := r.Exercises[i].Validate(); err != nil {
			return fmt.Errorf("exercise %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks a single exercise definition.
func (e *ExerciseDefinition) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: exercise name must not be empty", reps.ErrValidation)
	}
	if e.TargetSets < 1 {
		return fmt.Errorf("%w: target sets must be at least 1, got %d", reps.ErrValidation, e.TargetSets)
	}
	if e.TargetReps < 1 {
		return fmt.Errorf("%w: target reps must be at least 1, got %d", reps.ErrValidation, e.TargetReps)
	}
	if e.TargetWeight < 0 {
		return fmt.Errorf("%w: target weight must not be negative, got %g", reps.ErrValidation, e.TargetWeight)
	}
	if e.RestSeconds < 0 {
		return fmt.Errorf("%w: rest seconds must not be negative, got %d", reps.ErrValidation, e.RestSeconds)
	}
	return nil
}

// ── Event payloads ──────────────────────────────────

// Change is the payload for routine.created/updated/deleted events.
type Change struct {
	Routine *Routine `json:"routine"`
}

// EventRef implements event.Referencer.
func (c Change) EventRef() event.Ref {
	return event.Ref{RoutineID: c.Routine.ID.String()}
}
