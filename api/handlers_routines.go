package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/reps/id"
	"github.com/xraph/reps/routine"
	"github.com/xraph/reps/scope"
)

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.routines.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routines)
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var in routine.Routine
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Owner == "" {
		in.Owner = scope.OwnerFrom(r.Context())
	}
	if err := s.routines.Create(r.Context(), &in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	routineID, err := pathID(r, id.PrefixRoutine)
	if err != nil {
		// Allow lookup by slug as a fallback.
		if byslug, slugErr := s.routines.GetBySlug(r.Context(), chi.URLParam(r, "id")); slugErr == nil {
			writeJSON(w, http.StatusOK, byslug)
			return
		}
		writeError(w, err)
		return
	}
	found, err := s.routines.Get(r.Context(), routineID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleUpdateRoutine(w http.ResponseWriter, r *http.Request) {
	routineID, err := pathID(r, id.PrefixRoutine)
	if err != nil {
		writeError(w, err)
		return
	}
	var in routine.Routine
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.ID = routineID
	if err := s.routines.Update(r.Context(), &in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	routineID, err := pathID(r, id.PrefixRoutine)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.routines.Delete(r.Context(), routineID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
