package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/reps"
	"github.com/xraph/reps/id"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes: validation 400,
// not-found 404, invalid state 409, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, reps.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, reps.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, reps.ErrInvalidState):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// pathID parses the {id} URL parameter, requiring the given prefix.
// Malformed ids are validation errors, not 500s.
func pathID(r *http.Request, prefix id.Prefix) (id.ID, error) {
	parsed, err := id.ParseWithPrefix(chi.URLParam(r, "id"), prefix)
	if err != nil {
		return id.Nil, fmt.Errorf("%w: %v", reps.ErrValidation, err)
	}
	return parsed, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", reps.ErrValidation, err)
	}
	return nil
}
