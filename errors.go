package reps

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("reps: no store configured")
	ErrStoreClosed     = errors.New("reps: store closed")
	ErrMigrationFailed = errors.New("reps: migration failed")

	// Input errors.
	ErrValidation = errors.New("reps: validation failed")

	// Not found errors. Each specific sentinel wraps ErrNotFound so
	// callers can match the broad class with errors.Is.
	ErrNotFound         = errors.New("reps: not found")
	ErrRoutineNotFound  = wrapNotFound("routine not found")
	ErrWorkoutNotFound  = wrapNotFound("workout not found")
	ErrExerciseNotFound = wrapNotFound("exercise not found")
	ErrTimerNotFound    = wrapNotFound("timer not found")
	ErrRecordNotFound   = wrapNotFound("record not found")

	// State errors.
	ErrInvalidState = errors.New("reps: invalid state transition")
)

// notFoundError is a sentinel that matches both itself and ErrNotFound.
type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return "reps: " + e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }

func wrapNotFound(msg string) error { return &notFoundError{msg: msg} }
