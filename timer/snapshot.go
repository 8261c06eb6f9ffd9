package timer

import (
	"context"
	"log/slog"
	"time"
)

// TimerSnapshot is one timer's saved state plus the wall-clock seconds
// it had really been running at snapshot time.
type TimerSnapshot struct {
	Timer
	RealElapsed int `json:"real_elapsed_seconds" msgpack:"real_elapsed_seconds"`
}

// Snapshot is the suspend image of the whole scheduler: every live
// timer with wall-clock accounting, stamped with when it was taken.
type Snapshot struct {
	TakenAt time.Time       `json:"taken_at" msgpack:"taken_at"`
	Timers  []TimerSnapshot `json:"timers" msgpack:"timers"`
}

// Snapshot captures every live timer for later restore. RealElapsed is
// measured against the wall clock, not the tick count, so time that
// passes while the process is suspended is accounted for on restore.
func (s *Scheduler) Snapshot() Snapshot {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{TakenAt: now, Timers: make([]TimerSnapshot, 0, len(s.timers))}
	for _, t := range s.timers {
		real := int(now.Sub(t.StartedAt).Seconds())
		if real < 0 {
			real = 0
		}
		snap.Timers = append(snap.Timers, TimerSnapshot{Timer: *t, RealElapsed: real})
	}
	return snap
}

// RestoreSnapshot reconciles a saved snapshot against the current wall
// clock and recreates the timers. Countdowns that expired while the
// process was away complete immediately with remaining pinned at zero;
// stopwatches resume with the away time folded into Elapsed; paused
// timers come back paused and are never auto-resumed.
func (s *Scheduler) RestoreSnapshot(ctx context.Context, snap Snapshot) {
	now := s.now()
	lapsed := int(now.Sub(snap.TakenAt).Seconds())
	if lapsed < 0 {
		lapsed = 0
	}

	for _, ts := range snap.Timers {
		t := ts.Timer

		if t.Status == Paused {
			s.admit(ctx, &t)
			continue
		}

		adjusted := ts.RealElapsed + lapsed
		switch t.Kind {
		case Countdown:
			remaining := t.Duration - adjusted
			if remaining <= 0 {
				t.Remaining = 0
				t.Elapsed = t.Duration
				s.complete(ctx, t)
				continue
			}
			t.Remaining = remaining
			t.Elapsed = adjusted
		case Stopwatch:
			t.Elapsed = adjusted
		}
		t.StartedAt = now.Add(-time.Duration(adjusted) * time.Second)
		s.admit(ctx, &t)
	}

	s.logger.Info("timer snapshot restored",
		slog.Int("timers", len(snap.Timers)),
		slog.Int("lapsed_seconds", lapsed),
	)
}
