package api

import (
	"net/http"

	"github.com/xraph/reps/id"
	"github.com/xraph/reps/timer"
)

type startTimerRequest struct {
	Seconds int    `json:"seconds,omitempty"`
	Label   string `json:"label,omitempty"`
}

func (s *Server) handleListTimers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.Active())
}

func (s *Server) handleStartCountdown(w http.ResponseWriter, r *http.Request) {
	var in startTimerRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	timerID, err := s.scheduler.StartCountdown(r.Context(), in.Seconds, timer.WithLabel(in.Label))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeTimer(w, http.StatusCreated, timerID)
}

func (s *Server) handleStartStopwatch(w http.ResponseWriter, r *http.Request) {
	var in startTimerRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &in); err != nil {
			writeError(w, err)
			return
		}
	}
	timerID, err := s.scheduler.StartStopwatch(r.Context(), timer.WithLabel(in.Label))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeTimer(w, http.StatusCreated, timerID)
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	var in startTimerRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	timerID, err := s.scheduler.StartRest(r.Context(), in.Seconds, timer.WithLabel(in.Label))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeTimer(w, http.StatusCreated, timerID)
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	timerID, err := pathID(r, id.PrefixTimer)
	if err != nil {
		writeError(w, err)
		return
	}
	t, ok := s.scheduler.Get(timerID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "timer not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handlePauseTimer(w http.ResponseWriter, r *http.Request) {
	s.timerAction(w, r, s.scheduler.Pause)
}

func (s *Server) handleResumeTimer(w http.ResponseWriter, r *http.Request) {
	s.timerAction(w, r, s.scheduler.Resume)
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	timerID, err := pathID(r, id.PrefixTimer)
	if err != nil {
		writeError(w, err)
		return
	}
	if !s.scheduler.Stop(timerID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "timer not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStopAllTimers(w http.ResponseWriter, _ *http.Request) {
	stopped := len(s.scheduler.Active())
	s.scheduler.StopAll()
	writeJSON(w, http.StatusOK, map[string]int{"stopped": stopped})
}

// timerAction runs a pause/resume style operation that reports success
// with a bool, then writes the updated timer.
func (s *Server) timerAction(w http.ResponseWriter, r *http.Request, fn func(id.ID) bool) {
	timerID, err := pathID(r, id.PrefixTimer)
	if err != nil {
		writeError(w, err)
		return
	}
	if !fn(timerID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "timer not found"})
		return
	}
	s.writeTimer(w, http.StatusOK, timerID)
}

func (s *Server) writeTimer(w http.ResponseWriter, status int, timerID id.ID) {
	if t, ok := s.scheduler.Get(timerID); ok {
		writeJSON(w, status, t)
		return
	}
	// The timer can complete between the call and the lookup.
	writeJSON(w, status, map[string]string{"id": timerID.String()})
}
