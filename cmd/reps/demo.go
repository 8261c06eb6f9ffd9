package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xraph/reps/app"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/notify"
	"github.com/xraph/reps/routine"
	"github.com/xraph/reps/timer"
	"github.com/xraph/reps/workout"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an in-memory workout walkthrough",
	Long: `demo builds an in-memory engine, creates a routine, runs a full
workout session through it, and lets a rest timer tick down so you can
watch the halfway and final-countdown notifications fire.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDemo(cmd.Context())
	},
}

func runDemo(ctx context.Context) error {
	var (
		header  = color.New(color.FgCyan, color.Bold)
		evtName = color.New(color.FgYellow)
		faint   = color.New(color.Faint)
		ok      = color.New(color.FgGreen)
	)

	logger := slog.New(slog.DiscardHandler)
	a, err := app.New(
		app.WithLogger(logger),
		// Ticks run fast so the rest timer finishes in a few seconds of
		// real time.
		app.WithTickInterval(150*time.Millisecond),
		app.WithNotifier(notify.NewLogSink(logger), notify.NewLogSink(logger)),
	)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = a.Stop(context.Background()) }()

	// Print everything that crosses the bus.
	a.Bus().OnAny(func(_ context.Context, evt event.Event) error {
		evtName.Printf("  %-24s", evt.Name)
		switch data := evt.Data.(type) {
		case timer.Tick:
			faint.Printf(" remaining=%s", timer.FormatClock(data.Remaining, false))
		case workout.SetCompleted:
			faint.Printf(" set=%d reps=%d weight=%.1f", data.Set.SetNumber, data.Set.Reps, data.Set.Weight)
		}
		fmt.Println()
		return nil
	})

	header.Println("== Creating routine ==")
	r := &routine.Routine{
		Name: "Push Day",
		Exercises: []routine.ExerciseDefinition{
			{Name: "Bench Press", TargetSets: 2, TargetReps: 8, TargetWeight: 60, RestSeconds: 6},
			{Name: "Overhead Press", TargetSets: 1, TargetReps: 10, TargetWeight: 40, RestSeconds: 6},
		},
	}
	if err := a.Routines().Create(ctx, r); err != nil {
		return err
	}
	ok.Printf("routine %s created (%s)\n\n", r.Slug, r.ID)

	header.Println("== Starting workout ==")
	sess, err := a.Workouts().Start(ctx, r.ID)
	if err != nil {
		return err
	}

	for {
		current, active := sess.CurrentExercise()
		if !active {
			break
		}
		fmt.Printf("\n%s — set %d/%d\n", current.Name, sess.CurrentSet, current.TargetSets)

		sess, err = a.Workouts().CompleteSet(ctx, sess.ID, workout.SetInput{})
		if err != nil {
			return err
		}
		if sess.Status != workout.StatusActive {
			break
		}

		// Rest between sets: a real client would render these ticks.
		restID, err := a.Timers().StartRest(ctx, current.RestSeconds)
		if err != nil {
			return err
		}
		waitForTimer(a, restID)
	}

	fmt.Println()
	header.Println("== Workout complete ==")
	progress := sess.Progress()
	ok.Printf("%d/%d sets across %d exercises (%d%%)\n",
		progress.CompletedSets, progress.TotalSets,
		progress.TotalExercises, progress.PercentComplete,
	)
	return nil
}

// waitForTimer blocks until the timer leaves the scheduler.
func waitForTimer(a *app.App, timerID id.ID) {
	for {
		if _, running := a.Timers().Get(timerID); !running {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
