package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/workout"
)

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	var (
		sessions []*workout.Session
		err      error
	)
	if r.URL.Query().Get("active") == "true" {
		sessions, err = s.workouts.Active(r.Context())
	} else {
		sessions, err = s.workouts.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RoutineID string `json:"routine_id"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	routineID, err := id.ParseWithPrefix(in.RoutineID, id.PrefixRoutine)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", reps.ErrValidation, err))
		return
	}
	sess, err := s.engine.Start(r.Context(), routineID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	workoutID, err := pathID(r, id.PrefixWorkout)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.engine.Get(r.Context(), workoutID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleWorkoutProgress(w http.ResponseWriter, r *http.Request) {
	workoutID, err := pathID(r, id.PrefixWorkout)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.engine.Get(r.Context(), workoutID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Progress())
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	workoutID, err := pathID(r, id.PrefixWorkout)
	if err != nil {
		writeError(w, err)
		return
	}
	var input workout.SetInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.engine.CompleteSet(r.Context(), workoutID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handlePauseWorkout(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.Pause)
}

func (s *Server) handleResumeWorkout(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.Resume)
}

func (s *Server) handleFinishWorkout(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.Finish)
}

// transition runs one of the id-only session transitions and writes the
// resulting session.
func (s *Server) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, workoutID id.ID) (*workout.Session, error),
) {
	workoutID, err := pathID(r, id.PrefixWorkout)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := fn(r.Context(), workoutID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateWeight(w http.ResponseWriter, r *http.Request) {
	workoutID, err := pathID(r, id.PrefixWorkout)
	if err != nil {
		writeError(w, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: exercise index must be an integer", reps.ErrValidation))
		return
	}
	var in struct {
		Weight float64 `json:"weight"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.engine.UpdateWeight(r.Context(), workoutID, index, in.Weight)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
