package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xraph/reps/event"
	"github.com/xraph/reps/routine"
	"github.com/xraph/reps/store/memory"
	"github.com/xraph/reps/stream"
	"github.com/xraph/reps/timer"
	"github.com/xraph/reps/workout"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	mem := memory.New()
	bus := event.NewBus()
	routines := routine.NewStore(mem, routine.WithBus(bus))
	workouts := workout.NewStore(mem)
	engine := workout.NewEngine(workouts, routines, bus)

	scheduler := timer.NewScheduler(bus,
		timer.WithTickInterval(time.Hour),
		timer.WithLogger(logger),
	)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(func() { _ = scheduler.Shutdown(context.Background()) })

	broker := stream.NewBroker(bus, stream.WithLogger(logger))
	t.Cleanup(broker.Close)

	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(engine, workouts, routines, scheduler, broker, opts...)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createRoutine(t *testing.T, srv *Server) *routine.Routine {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/v1/routines/", map[string]any{
		"name": "Strength A",
		"exercises": []map[string]any{
			{"name": "Squat", "target_sets": 2, "target_reps": 5, "target_weight": 100, "rest_seconds": 120},
			{"name": "Bench Press", "target_sets": 1, "target_reps": 8, "target_weight": 60, "rest_seconds": 90},
		},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create routine: status %d, body %s", rec.Code, rec.Body.String())
	}
	var r routine.Routine
	decodeInto(t, rec, &r)
	return &r
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRoutineCRUD(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	r := createRoutine(t, srv)
	if r.ID.IsNil() {
		t.Fatal("created routine has no id")
	}
	if r.Slug == "" {
		t.Error("created routine has no slug")
	}

	rec := doJSON(t, srv, http.MethodGet, "/v1/routines/"+r.ID.String(), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	// Slug lookup works on the same path.
	rec = doJSON(t, srv, http.MethodGet, "/v1/routines/"+r.Slug, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get by slug: status %d, body %s", rec.Code, rec.Body.String())
	}

	r.Name = "Strength B"
	rec = doJSON(t, srv, http.MethodPut, "/v1/routines/"+r.ID.String(), r, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	var updated routine.Routine
	decodeInto(t, rec, &updated)
	if updated.Name != "Strength B" {
		t.Errorf("updated name = %q, want %q", updated.Name, "Strength B")
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/routines/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var listed []*routine.Routine
	decodeInto(t, rec, &listed)
	if len(listed) != 1 {
		t.Fatalf("list returned %d routines, want 1", len(listed))
	}

	rec = doJSON(t, srv, http.MethodDelete, "/v1/routines/"+r.ID.String(), nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/v1/routines/"+r.ID.String(), nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d, want 404", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	// Validation failure: routine without exercises.
	rec := doJSON(t, srv, http.MethodPost, "/v1/routines/", map[string]any{"name": "Empty"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid routine: status %d, want 400", rec.Code)
	}

	// Malformed id in the path.
	rec = doJSON(t, srv, http.MethodGet, "/v1/workouts/not-an-id", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id: status %d, want 400", rec.Code)
	}

	// Unknown but well-formed id.
	rec = doJSON(t, srv, http.MethodPost, "/v1/workouts/", map[string]string{
		"routine_id": "routine_01h455vb4pex5vsknk084sn02q",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown routine: status %d, want 404", rec.Code)
	}

	// Invalid JSON body.
	req := httptest.NewRequest(http.MethodPost, "/v1/routines/", bytes.NewBufferString("{nope"))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid body: status %d, want 400", rr.Code)
	}
}

func TestWorkoutLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	r := createRoutine(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/v1/workouts/", map[string]string{
		"routine_id": r.ID.String(),
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start workout: status %d, body %s", rec.Code, rec.Body.String())
	}
	var sess workout.Session
	decodeInto(t, rec, &sess)
	if sess.Status != workout.StatusActive {
		t.Fatalf("session status = %q, want active", sess.Status)
	}
	base := "/v1/workouts/" + sess.ID.String()

	reps := 5
	rec = doJSON(t, srv, http.MethodPost, base+"/sets", map[string]any{"reps": reps}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete set: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, base+"/progress", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: status %d", rec.Code)
	}
	var progress workout.Progress
	decodeInto(t, rec, &progress)
	if progress.CompletedSets != 1 {
		t.Errorf("CompletedSets = %d, want 1", progress.CompletedSets)
	}

	rec = doJSON(t, srv, http.MethodPut, base+"/exercises/0/weight", map[string]float64{"weight": 102.5}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update weight: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/pause", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: status %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodPost, base+"/resume", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/finish", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish: status %d, body %s", rec.Code, rec.Body.String())
	}
	var finished workout.Session
	decodeInto(t, rec, &finished)
	if finished.Status != workout.StatusCompleted {
		t.Errorf("finished status = %q, want completed", finished.Status)
	}

	// Transitions on a completed workout conflict.
	rec = doJSON(t, srv, http.MethodPost, base+"/pause", nil, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("pause completed: status %d, want 409", rec.Code)
	}
}

func TestTimerEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/timers/countdown", map[string]any{
		"seconds": 60,
		"label":   "plank",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start countdown: status %d, body %s", rec.Code, rec.Body.String())
	}
	var started timer.Timer
	decodeInto(t, rec, &started)
	if started.Label != "plank" {
		t.Errorf("label = %q, want plank", started.Label)
	}
	base := "/v1/timers/" + started.ID.String()

	rec = doJSON(t, srv, http.MethodGet, base, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get timer: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/pause", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause timer: status %d", rec.Code)
	}
	var paused timer.Timer
	decodeInto(t, rec, &paused)
	if paused.Status != timer.Paused {
		t.Errorf("status after pause = %q, want paused", paused.Status)
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/resume", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume timer: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, base, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("stop timer: status %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodDelete, base, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("stop stopped timer: status %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/timers/countdown", map[string]any{"seconds": 0}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero countdown: status %d, want 400", rec.Code)
	}

	// Stopwatch + rest, then stop all.
	rec = doJSON(t, srv, http.MethodPost, "/v1/timers/stopwatch", nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start stopwatch: status %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodPost, "/v1/timers/rest", map[string]any{"seconds": 90}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start rest: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/timers/", nil, nil)
	var active []timer.Timer
	decodeInto(t, rec, &active)
	if len(active) != 2 {
		t.Fatalf("active timers = %d, want 2", len(active))
	}

	rec = doJSON(t, srv, http.MethodDelete, "/v1/timers/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop all: status %d", rec.Code)
	}
	var result map[string]int
	decodeInto(t, rec, &result)
	if result["stopped"] != 2 {
		t.Errorf("stopped = %d, want 2", result["stopped"])
	}
}

func TestAPIKeyAuth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, WithAPIKey("secret"))

	rec := doJSON(t, srv, http.MethodGet, "/v1/routines/", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key: status %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/routines/", nil, http.Header{"X-Api-Key": {"wrong"}})
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: status %d, want 403", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/routines/", nil, http.Header{"X-Api-Key": {"secret"}})
	if rec.Code != http.StatusOK {
		t.Errorf("valid key: status %d, want 200", rec.Code)
	}

	// Health stays open.
	rec = doJSON(t, srv, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz with auth enabled: status %d, want 200", rec.Code)
	}
}

func TestRateLimitPerOwner(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, WithRateLimit(1, 1))

	header := http.Header{"X-Owner-Id": {"athlete-1"}}
	if rec := doJSON(t, srv, http.MethodGet, "/v1/routines/", nil, header); rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d, want 200", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/v1/routines/", nil, header); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", rec.Code)
	}

	// A different owner has its own bucket.
	other := http.Header{"X-Owner-Id": {"athlete-2"}}
	if rec := doJSON(t, srv, http.MethodGet, "/v1/routines/", nil, other); rec.Code != http.StatusOK {
		t.Fatalf("other owner: status %d, want 200", rec.Code)
	}
}

func TestListWorkoutsActiveFilter(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	r := createRoutine(t, srv)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/v1/workouts/", map[string]string{
			"routine_id": r.ID.String(),
		}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("start workout %d: status %d", i, rec.Code)
		}
		if i == 0 {
			var sess workout.Session
			decodeInto(t, rec, &sess)
			finish := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/v1/workouts/%s/finish", sess.ID), nil, nil)
			if finish.Code != http.StatusOK {
				t.Fatalf("finish: status %d", finish.Code)
			}
		}
	}

	rec := doJSON(t, srv, http.MethodGet, "/v1/workouts/", nil, nil)
	var all []*workout.Session
	decodeInto(t, rec, &all)
	if len(all) != 2 {
		t.Fatalf("all workouts = %d, want 2", len(all))
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/workouts/?active=true", nil, nil)
	var active []*workout.Session
	decodeInto(t, rec, &active)
	if len(active) != 1 {
		t.Fatalf("active workouts = %d, want 1", len(active))
	}
}
