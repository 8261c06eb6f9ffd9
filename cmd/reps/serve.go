package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/reps"
	"github.com/xraph/reps/api"
	"github.com/xraph/reps/app"
	"github.com/xraph/reps/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := reps.LoadConfig(configPath)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg reps.Config) error {
	logger := newLogger(cfg.LogLevel)
	logger.Info("reps starting",
		slog.String("version", Version),
		slog.String("store", cfg.StoreDriver),
		slog.String("addr", cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := app.OpenStore(ctx, cfg.StoreDriver, cfg.StoreDSN, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	a, err := app.New(
		app.WithStore(st),
		app.WithLogger(logger),
		app.WithTickInterval(cfg.TickInterval),
		app.WithStrategy(cfg.Strategy),
		app.WithAudit(),
		app.WithObservability(),
	)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	if err := a.Restore(ctx); err != nil {
		logger.Warn("timer snapshot restore failed", slog.String("error", err.Error()))
	}

	broker := stream.NewBroker(a.Bus(), stream.WithLogger(logger))

	var apiOpts []api.Option
	apiOpts = append(apiOpts, api.WithLogger(logger))
	if cfg.APIKey != "" {
		apiOpts = append(apiOpts, api.WithAPIKey(cfg.APIKey))
	}
	handler := api.New(a.Workouts(), a.Sessions(), a.Routines(), a.Timers(), broker, apiOpts...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", slog.String("error", err.Error()))
		}
		broker.Close()
		return a.Stop(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
