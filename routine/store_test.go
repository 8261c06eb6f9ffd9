package routine

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/reps"
	"github.com/xraph/reps/event"
	"github.com/xraph/reps/id"
	"github.com/xraph/reps/store/memory"
)

func TestCreateAssignsIdentityAndSlug(t *testing.T) {
	t.Parallel()

	s := NewStore(memory.New())
	ctx := context.Background()

	r := validRoutine()
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID.IsNil() {
		t.Error("Create did not assign an ID")
	}
	if r.ID.Prefix() != id.PrefixRoutine {
		t.Errorf("ID prefix = %q, want routine", r.ID.Prefix())
	}
	if r.Slug != "push-day" {
		t.Errorf("Slug = %q, want push-day", r.Slug)
	}
	for i, ex := range r.Exercises {
		if ex.ID.IsNil() {
			t.Errorf("exercise %d has no ID", i)
		}
	}
	if r.CreatedAt.IsZero() {
		t.Error("Create did not stamp Entity timestamps")
	}
}

func TestCreateDedupesSlugs(t *testing.T) {
	t.Parallel()

	s := NewStore(memory.New())
	ctx := context.Background()

	first := validRoutine()
	second := validRoutine()
	third := validRoutine()
	for _, r := range []*Routine{first, second, third} {
		if err := s.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if second.Slug != "push-day-2" {
		t.Errorf("second slug = %q, want push-day-2", second.Slug)
	}
	if third.Slug != "push-day-3" {
		t.Errorf("third slug = %q, want push-day-3", third.Slug)
	}

	got, err := s.GetBySlug(ctx, "push-day-2")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if got.ID.String() != second.ID.String() {
		t.Error("GetBySlug returned the wrong routine")
	}
}

func TestCreateRejectsInvalidBeforePersisting(t *testing.T) {
	t.Parallel()

	mem := memory.New()
	s := NewStore(mem)
	ctx := context.Background()

	bad := validRoutine()
	bad.Exercises[0].TargetSets = 0
	if err := s.Create(ctx, bad); !errors.Is(err, reps.ErrValidation) {
		t.Fatalf("Create invalid = %v, want ErrValidation", err)
	}

	routines, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(routines) != 0 {
		t.Error("invalid routine was persisted")
	}
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	s := NewStore(memory.New())
	_, err := s.Get(context.Background(), id.NewRoutineID())
	if !errors.Is(err, reps.ErrRoutineNotFound) {
		t.Errorf("Get missing = %v, want ErrRoutineNotFound", err)
	}
	if !errors.Is(err, reps.ErrNotFound) {
		t.Error("ErrRoutineNotFound does not match ErrNotFound")
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore(memory.New())
	ctx := context.Background()

	r := validRoutine()
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	r.Description = "chest and shoulders"
	r.Exercises[0].TargetWeight = 65
	if err := s.Update(ctx, r); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "chest and shoulders" {
		t.Errorf("Description = %q", got.Description)
	}
	if got.Exercises[0].TargetWeight != 65 {
		t.Errorf("TargetWeight = %g, want 65", got.Exercises[0].TargetWeight)
	}
	if got.Slug != "push-day" {
		t.Errorf("Update changed slug to %q", got.Slug)
	}
}

func TestDeleteEmitsEvent(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	s := NewStore(memory.New(), WithBus(bus))
	ctx := context.Background()

	var seen []string
	bus.OnAny(func(_ context.Context, evt event.Event) error {
		seen = append(seen, evt.Name)
		return nil
	})

	r := validRoutine()
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, r.ID); !errors.Is(err, reps.ErrRoutineNotFound) {
		t.Errorf("Get after delete = %v", err)
	}

	if len(seen) != 2 || seen[0] != event.RoutineCreated || seen[1] != event.RoutineDeleted {
		t.Errorf("events = %v, want [routine.created routine.deleted]", seen)
	}
}
