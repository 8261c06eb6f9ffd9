// Package client provides a Go client for a remote reps server: typed
// wrappers over the JSON API plus a reconnecting websocket subscription
// to the event stream.
//
// Usage:
//
//	c := client.New("http://localhost:8484",
//	    client.WithAPIKey("rk_..."),
//	)
//
//	sess, err := c.StartWorkout(ctx, routineID)
//
//	frames, err := c.Subscribe(ctx, stream.WorkoutTopic(sess.ID.String()))
//	for frame := range frames {
//	    fmt.Printf("%s: %v\n", frame.Name, frame.Data)
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/xraph/reps"
	"github.com/xraph/reps/backoff"
	"github.com/xraph/reps/codec"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/routine"
	"github.com/xraph/reps/timer"
	"github.com/xraph/reps/workout"
)

// Client talks to a remote reps server.
type Client struct {
	baseURL string
	apiKey  string
	owner   string
	httpc   *http.Client
	codec   codec.Codec
	backoff backoff.Strategy
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the X-API-Key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithOwner sets the X-Owner-ID header on every request.
func WithOwner(owner string) Option {
	return func(c *Client) { c.owner = owner }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithCodec sets the stream wire encoding. Defaults to JSON.
func WithCodec(enc codec.Codec) Option {
	return func(c *Client) { c.codec = enc }
}

// WithReconnectBackoff overrides the delay strategy used between
// websocket reconnection attempts.
func WithReconnectBackoff(strategy backoff.Strategy) Option {
	return func(c *Client) { c.backoff = strategy }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.DefaultClient,
		codec:   codec.JSON{},
		backoff: backoff.DefaultReconnect(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "client"))
	return c
}

// ── Routines ────────────────────────────────────────

// CreateRoutine creates a routine and returns it with its assigned
// identity and slug.
func (c *Client) CreateRoutine(ctx context.Context, r *routine.Routine) (*routine.Routine, error) {
	var out routine.Routine
	if err := c.do(ctx, http.MethodPost, "/v1/routines/", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRoutine fetches a routine by id or slug.
func (c *Client) GetRoutine(ctx context.Context, idOrSlug string) (*routine.Routine, error) {
	var out routine.Routine
	if err := c.do(ctx, http.MethodGet, "/v1/routines/"+url.PathEscape(idOrSlug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRoutines returns all routines.
func (c *Client) ListRoutines(ctx context.Context) ([]*routine.Routine, error) {
	var out []*routine.Routine
	if err := c.do(ctx, http.MethodGet, "/v1/routines/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRoutine replaces a routine.
func (c *Client) UpdateRoutine(ctx context.Context, r *routine.Routine) (*routine.Routine, error) {
	var out routine.Routine
	if err := c.do(ctx, http.MethodPut, "/v1/routines/"+r.ID.String(), r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRoutine removes a routine.
func (c *Client) DeleteRoutine(ctx context.Context, routineID id.ID) error {
	return c.do(ctx, http.MethodDelete, "/v1/routines/"+routineID.String(), nil, nil)
}

// ── Workouts ────────────────────────────────────────

// StartWorkout begins a session from a routine.
func (c *Client) StartWorkout(ctx context.Context, routineID id.ID) (*workout.Session, error) {
	body := map[string]string{"routine_id": routineID.String()}
	var out workout.Session
	if err := c.do(ctx, http.MethodPost, "/v1/workouts/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWorkouts returns sessions, optionally only active ones.
func (c *Client) ListWorkouts(ctx context.Context, activeOnly bool) ([]*workout.Session, error) {
	path := "/v1/workouts/"
	if activeOnly {
		path += "?active=true"
	}
	var out []*workout.Session
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWorkout fetches one session.
func (c *Client) GetWorkout(ctx context.Context, workoutID id.ID) (*workout.Session, error) {
	var out workout.Session
	if err := c.do(ctx, http.MethodGet, "/v1/workouts/"+workoutID.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkoutProgress fetches a session's progress summary.
func (c *Client) WorkoutProgress(ctx context.Context, workoutID id.ID) (workout.Progress, error) {
	var out workout.Progress
	err := c.do(ctx, http.MethodGet, "/v1/workouts/"+workoutID.String()+"/progress", nil, &out)
	return out, err
}

// CompleteSet records a performed set against the current exercise.
func (c *Client) CompleteSet(ctx context.Context, workoutID id.ID, input workout.SetInput) (*workout.Session, error) {
	var out workout.Session
	if err := c.do(ctx, http.MethodPost, "/v1/workouts/"+workoutID.String()+"/sets", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PauseWorkout pauses an active session.
func (c *Client) PauseWorkout(ctx context.Context, workoutID id.ID) (*workout.Session, error) {
	return c.workoutTransition(ctx, workoutID, "pause")
}

// ResumeWorkout resumes a paused session.
func (c *Client) ResumeWorkout(ctx context.Context, workoutID id.ID) (*workout.Session, error) {
	return c.workoutTransition(ctx, workoutID, "resume")
}

// FinishWorkout completes a session early.
func (c *Client) FinishWorkout(ctx context.Context, workoutID id.ID) (*workout.Session, error) {
	return c.workoutTransition(ctx, workoutID, "finish")
}

func (c *Client) workoutTransition(ctx context.Context, workoutID id.ID, action string) (*workout.Session, error) {
	var out workout.Session
	if err := c.do(ctx, http.MethodPost, "/v1/workouts/"+workoutID.String()+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateWeight adjusts the target weight of one exercise mid-session.
func (c *Client) UpdateWeight(ctx context.Context, workoutID id.ID, exerciseIndex int, weight float64) (*workout.Session, error) {
	path := fmt.Sprintf("/v1/workouts/%s/exercises/%d/weight", workoutID, exerciseIndex)
	var out workout.Session
	if err := c.do(ctx, http.MethodPut, path, map[string]float64{"weight": weight}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Timers ──────────────────────────────────────────

// StartCountdown starts a countdown timer.
func (c *Client) StartCountdown(ctx context.Context, seconds int, label string) (*timer.Timer, error) {
	return c.startTimer(ctx, "countdown", seconds, label)
}

// StartStopwatch starts a count-up timer.
func (c *Client) StartStopwatch(ctx context.Context, label string) (*timer.Timer, error) {
	return c.startTimer(ctx, "stopwatch", 0, label)
}

// StartRest starts a rest timer with halfway and final-countdown
// notifications.
func (c *Client) StartRest(ctx context.Context, seconds int, label string) (*timer.Timer, error) {
	return c.startTimer(ctx, "rest", seconds, label)
}

func (c *Client) startTimer(ctx context.Context, kind string, seconds int, label string) (*timer.Timer, error) {
	body := map[string]any{"label": label}
	if seconds > 0 {
		body["seconds"] = seconds
	}
	var out timer.Timer
	if err := c.do(ctx, http.MethodPost, "/v1/timers/"+kind, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTimer fetches one active timer.
func (c *Client) GetTimer(ctx context.Context, timerID id.ID) (*timer.Timer, error) {
	var out timer.Timer
	if err := c.do(ctx, http.MethodGet, "/v1/timers/"+timerID.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTimers returns all active timers.
func (c *Client) ListTimers(ctx context.Context) ([]timer.Timer, error) {
	var out []timer.Timer
	if err := c.do(ctx, http.MethodGet, "/v1/timers/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PauseTimer freezes a running timer.
func (c *Client) PauseTimer(ctx context.Context, timerID id.ID) (*timer.Timer, error) {
	var out timer.Timer
	if err := c.do(ctx, http.MethodPost, "/v1/timers/"+timerID.String()+"/pause", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResumeTimer restarts a paused timer.
func (c *Client) ResumeTimer(ctx context.Context, timerID id.ID) (*timer.Timer, error) {
	var out timer.Timer
	if err := c.do(ctx, http.MethodPost, "/v1/timers/"+timerID.String()+"/resume", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StopTimer destroys a timer without a completion event.
func (c *Client) StopTimer(ctx context.Context, timerID id.ID) error {
	return c.do(ctx, http.MethodDelete, "/v1/timers/"+timerID.String(), nil, nil)
}

// StopAllTimers destroys every active timer and returns how many were
// stopped.
func (c *Client) StopAllTimers(ctx context.Context) (int, error) {
	var out map[string]int
	if err := c.do(ctx, http.MethodDelete, "/v1/timers/", nil, &out); err != nil {
		return 0, err
	}
	return out["stopped"], nil
}

// Health reports whether the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// ── Transport ───────────────────────────────────────

// do performs one JSON request. Non-2xx responses are decoded into a
// domain error carrying the matching sentinel.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("reps/client: marshal request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("reps/client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.owner != "" {
		req.Header.Set("X-Owner-ID", c.owner)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("reps/client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("reps/client: decode response: %w", err)
	}
	return nil
}

// apiError maps an error response back onto the domain sentinels so
// callers can use errors.Is exactly as they would against the in-process
// engine.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		msg = body.Error
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = reps.ErrValidation
	case http.StatusNotFound:
		sentinel = reps.ErrNotFound
	case http.StatusConflict:
		sentinel = reps.ErrInvalidState
	default:
		return fmt.Errorf("reps/client: server error (%d): %s", resp.StatusCode, msg)
	}
	if strings.Contains(msg, sentinel.Error()) {
		// Server messages already carry the sentinel prefix.
		msg = strings.TrimSpace(strings.TrimPrefix(msg, sentinel.Error()+":"))
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
