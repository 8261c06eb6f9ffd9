package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/timer"
)

// stubSink records calls and optionally fails.
type stubSink struct {
	mu     sync.Mutex
	pulses []Pattern
	cues   []Cue
	fail   bool
}

func (s *stubSink) Pulse(_ context.Context, pattern Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulses = append(s.pulses, pattern)
	if s.fail {
		return errors.New("no device")
	}
	return nil
}

func (s *stubSink) Play(_ context.Context, cue Cue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues = append(s.cues, cue)
	if s.fail {
		return errors.New("muted")
	}
	return nil
}

func restTick(remaining int) timer.Tick {
	return timer.Tick{TimerID: id.NewTimerID(), Kind: timer.Countdown, Remaining: remaining}
}

func TestNotifierMapsEventsToCues(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	sink := &stubSink{}
	n := NewNotifier(bus, sink, sink)
	defer n.Close()

	ctx := context.Background()
	bus.Emit(ctx, event.Event{Name: event.TimerRestHalfway, Data: restTick(15)})
	bus.Emit(ctx, event.Event{Name: event.TimerRestCountdown, Data: restTick(3)})
	bus.Emit(ctx, event.Event{Name: event.TimerRestComplete, Data: timer.Change{}})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	wantPulses := []Pattern{PatternLight, PatternMedium, PatternSuccess}
	if len(sink.pulses) != len(wantPulses) {
		t.Fatalf("pulses = %v, want %v", sink.pulses, wantPulses)
	}
	for i, want := range wantPulses {
		if sink.pulses[i] != want {
			t.Errorf("pulse %d = %q, want %q", i, sink.pulses[i], want)
		}
	}
	wantCues := []Cue{CueHalfway, CueCountdown, CueComplete}
	for i, want := range wantCues {
		if sink.cues[i] != want {
			t.Errorf("cue %d = %q, want %q", i, sink.cues[i], want)
		}
	}
}

func TestSinkFailuresNeverPropagate(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	sink := &stubSink{fail: true}
	n := NewNotifier(bus, sink, sink)
	defer n.Close()

	// Emit must not panic or surface sink errors; a later handler on the
	// same event still runs.
	var sawEvent bool
	bus.On(event.TimerRestComplete, func(context.Context, event.Event) error {
		sawEvent = true
		return nil
	})
	bus.Emit(context.Background(), event.Event{Name: event.TimerRestComplete, Data: timer.Change{}})

	if !sawEvent {
		t.Error("sink failure stopped event delivery")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.pulses) == 0 {
		t.Error("sink was never called")
	}
}

func TestPlainCountdownCompletePlaysCue(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	sink := &stubSink{}
	n := NewNotifier(bus, nil, sink)
	defer n.Close()

	ctx := context.Background()
	// Plain countdown: cue fires.
	bus.Emit(ctx, event.Event{Name: event.TimerComplete, Data: timer.Change{
		Timer: timer.Timer{ID: id.NewTimerID(), Kind: timer.Countdown},
	}})
	// Rest countdown: timer.complete is skipped, rest_complete covers it.
	bus.Emit(ctx, event.Event{Name: event.TimerComplete, Data: timer.Change{
		Timer: timer.Timer{ID: id.NewTimerID(), Kind: timer.Countdown, Rest: &timer.RestPlan{Halfway: 15, FinalWindow: 10}},
	}})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.cues) != 1 || sink.cues[0] != CueComplete {
		t.Errorf("cues = %v, want single complete", sink.cues)
	}
}
