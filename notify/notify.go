// Package notify forwards timer events to side-effect sinks: haptic
// pulses and audio cues. Sinks are collaborators that may fail; their
// errors are swallowed and logged, never propagated, and the timers
// never depend on them having run.
package notify

import (
	"context"
	"log/slog"

	"github.com/xraph/reps/event"
	"github.com/xraph/reps/timer"
)

// Pattern names a haptic vibration pattern.
type Pattern string

const (
	PatternLight   Pattern = "light"
	PatternMedium  Pattern = "medium"
	PatternSuccess Pattern = "success"
)

// Cue names an audio cue.
type Cue string

const (
	CueHalfway   Cue = "halfway"
	CueCountdown Cue = "countdown"
	CueComplete  Cue = "complete"
)

// Haptic triggers a vibration pattern on whatever device is attached.
type Haptic interface {
	Pulse(ctx context.Context, pattern Pattern) error
}

// Audio plays an audio cue.
type Audio interface {
	Play(ctx context.Context, cue Cue) error
}

// NopHaptic discards pulses.
type NopHaptic struct{}

func (NopHaptic) Pulse(context.Context, Pattern) error { return nil }

// NopAudio discards cues.
type NopAudio struct{}

func (NopAudio) Play(context.Context, Cue) error { return nil }

// Notifier maps rest-timer events to sink effects.
type Notifier struct {
	haptic Haptic
	audio  Audio
	logger *slog.Logger

	bus  *event.Bus
	subs []event.Subscription
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the notifier's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// NewNotifier subscribes the sinks to rest and completion events.
// Nil sinks are replaced with no-ops.
func NewNotifier(bus *event.Bus, haptic Haptic, audio Audio, opts ...Option) *Notifier {
	if haptic == nil {
		haptic = NopHaptic{}
	}
	if audio == nil {
		audio = NopAudio{}
	}
	n := &Notifier{haptic: haptic, audio: audio, logger: slog.Default(), bus: bus}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With(slog.String("component", "notify"))

	n.subs = []event.Subscription{
		bus.On(event.TimerRestHalfway, n.onHalfway),
		bus.On(event.TimerRestCountdown, n.onCountdown),
		bus.On(event.TimerRestComplete, n.onComplete),
		bus.On(event.TimerComplete, n.onTimerComplete),
	}
	return n
}

// Close detaches the notifier from the bus.
func (n *Notifier) Close() {
	for _, sub := range n.subs {
		n.bus.Off(sub)
	}
}

func (n *Notifier) onHalfway(ctx context.Context, _ event.Event) error {
	n.pulse(ctx, PatternLight)
	n.play(ctx, CueHalfway)
	return nil
}

func (n *Notifier) onCountdown(ctx context.Context, _ event.Event) error {
	n.pulse(ctx, PatternMedium)
	n.play(ctx, CueCountdown)
	return nil
}

func (n *Notifier) onComplete(ctx context.Context, _ event.Event) error {
	n.pulse(ctx, PatternSuccess)
	n.play(ctx, CueComplete)
	return nil
}

// onTimerComplete plays the completion cue for plain countdowns. Rest
// timers already got theirs from rest_complete.
func (n *Notifier) onTimerComplete(ctx context.Context, evt event.Event) error {
	if change, ok := evt.Data.(timer.Change); ok && change.Timer.Rest != nil {
		return nil
	}
	n.play(ctx, CueComplete)
	return nil
}

// pulse and play are fire-and-forget: a failing sink is logged and
// forgotten.
func (n *Notifier) pulse(ctx context.Context, pattern Pattern) {
	if err := n.haptic.Pulse(ctx, pattern); err != nil {
		n.logger.Warn("haptic sink failed",
			slog.String("pattern", string(pattern)),
			slog.String("error", err.Error()),
		)
	}
}

func (n *Notifier) play(ctx context.Context, cue Cue) {
	if err := n.audio.Play(ctx, cue); err != nil {
		n.logger.Warn("audio sink failed",
			slog.String("cue", string(cue)),
			slog.String("error", err.Error()),
		)
	}
}
