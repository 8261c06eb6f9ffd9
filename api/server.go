// Package api exposes the workout engine, routine store, and timer
// scheduler over HTTP: a chi-routed JSON API plus a websocket event
// stream fed by the stream broker.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/reps/routine"
	"github.com/xraph/reps/stream"
	"github.com/xraph/reps/timer"
	"github.com/xraph/reps/workout"
)

// Server holds the dependencies for all HTTP handlers.
type Server struct {
	engine    *workout.Engine
	workouts  *workout.Store
	routines  *routine.Store
	scheduler *timer.Scheduler
	broker    *stream.Broker
	logger    *slog.Logger

	apiKey  string
	limiter *ownerLimiter
	router  chi.Router
}

// Option configures the Server.
type Option func(*Server)

// WithAPIKey enables X-API-Key auth on the /v1 routes.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRateLimit overrides the per-owner request rate (requests/second
// with the given burst). Zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) { s.limiter = newOwnerLimiter(rps, burst) }
}

// New creates a Server with all routes configured.
func New(
	engine *workout.Engine,
	workouts *workout.Store,
	routines *routine.Store,
	scheduler *timer.Scheduler,
	broker *stream.Broker,
	opts ...Option,
) *Server {
	s := &Server{
		engine:    engine,
		workouts:  workouts,
		routines:  routines,
		scheduler: scheduler,
		broker:    broker,
		logger:    slog.Default(),
		limiter:   newOwnerLimiter(defaultRateRPS, defaultRateBurst),
		router:    chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "api"))
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.logger))
	s.router.Use(Recoverer(s.logger))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Use(OwnerScope)
		r.Use(RateLimit(s.limiter))

		r.Route("/routines", func(r chi.Router) {
			r.Get("/", s.handleListRoutines)
			r.Post("/", s.handleCreateRoutine)
			r.Get("/{id}", s.handleGetRoutine)
			r.Put("/{id}", s.handleUpdateRoutine)
			r.Delete("/{id}", s.handleDeleteRoutine)
		})

		r.Route("/workouts", func(r chi.Router) {
			r.Get("/", s.handleListWorkouts)
			r.Post("/", s.handleStartWorkout)
			r.Get("/{id}", s.handleGetWorkout)
			r.Get("/{id}/progress", s.handleWorkoutProgress)
			r.Post("/{id}/sets", s.handleCompleteSet)
			r.Post("/{id}/pause", s.handlePauseWorkout)
			r.Post("/{id}/resume", s.handleResumeWorkout)
			r.Post("/{id}/finish", s.handleFinishWorkout)
			r.Put("/{id}/exercises/{index}/weight", s.handleUpdateWeight)
		})

		r.Route("/timers", func(r chi.Router) {
			r.Get("/", s.handleListTimers)
			r.Post("/countdown", s.handleStartCountdown)
			r.Post("/stopwatch", s.handleStartStopwatch)
			r.Post("/rest", s.handleStartRest)
			r.Get("/{id}", s.handleGetTimer)
			r.Post("/{id}/pause", s.handlePauseTimer)
			r.Post("/{id}/resume", s.handleResumeTimer)
			r.Delete("/{id}", s.handleStopTimer)
			r.Delete("/", s.handleStopAllTimers)
		})

		r.Get("/stream", s.handleStream)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
