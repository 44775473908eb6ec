package plugin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"budgetboard/internal/core"
	"budgetboard/internal/log"
	"budgetboard/internal/state"
	"budgetboard/internal/view"
)

type fakeHost struct {
	registered map[string]view.TabRenderer
}

func newFakeHost() *fakeHost {
	return &fakeHost{registered: make(map[string]view.TabRenderer)}
}

func (h *fakeHost) RegisterTabRenderer(tab string, fn view.TabRenderer) error {
	if _, ok := h.registered[tab]; ok {
		return fmt.Errorf("%w: %q", view.ErrDuplicateTab, tab)
	}
	h.registered[tab] = fn
	return nil
}

func (h *fakeHost) RenderGoals(_ context.Context, m *core.DataModel) (string, error) {
	return fmt.Sprintf("%d goals", len(m.Goals)), nil
}

func testLogger() *log.Logger {
	return log.New(log.DefaultConfig()).WithComponent(log.ComponentPlugin)
}

func newTestGoals(t *testing.T) (*Goals, *state.Store) {
	t.Helper()
	store := state.New(core.NewModel())
	g := NewGoals(store, testLogger(),
		WithIDSource(func() string { return "goal-fixed-id" }),
		WithGoalClock(func() time.Time {
			return time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
		}),
	)
	return g, store
}

func TestAttachIdempotent(t *testing.T) {
	g, _ := newTestGoals(t)
	host := newFakeHost()

	if err := g.Attach(host); err != nil {
		t.Fatalf("first Attach: %v", err)
	}
	if err := g.Attach(host); err != nil {
		t.Fatalf("second Attach: %v", err)
	}
	if len(host.registered) != 1 {
		t.Fatalf("registered %d renderers, want 1", len(host.registered))
	}
	if _, ok := host.registered[view.TabGoals]; !ok {
		t.Fatal("goals tab renderer not registered")
	}
}

func TestAttachPropagatesRegistrationError(t *testing.T) {
	g, _ := newTestGoals(t)
	host := newFakeHost()
	host.registered[view.TabGoals] = func(context.Context, *core.DataModel) (string, error) { return "", nil }

	if err := g.Attach(host); !errors.Is(err, view.ErrDuplicateTab) {
		t.Fatalf("err = %v, want ErrDuplicateTab", err)
	}
}

func TestCreateGoal(t *testing.T) {
	g, store := newTestGoals(t)

	goal, err := g.CreateGoal(context.Background(), CreateGoalInput{
		Name:    "  Notgroschen  ",
		Target:  "10000",
		Current: "2'500.50",
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if goal.ID != "goal-fixed-id" {
		t.Errorf("ID = %q", goal.ID)
	}
	if goal.Name != "Notgroschen" {
		t.Errorf("Name = %q, want trimmed", goal.Name)
	}
	if goal.Target.Cents != 1000000 {
		t.Errorf("Target = %d cents", goal.Target.Cents)
	}
	if goal.Current.Cents != 250050 {
		t.Errorf("Current = %d cents", goal.Current.Cents)
	}
	if goal.Icon != "🎯" {
		t.Errorf("Icon = %q, want default", goal.Icon)
	}

	m := store.Snapshot()
	if len(m.Goals) != 1 || m.Goals[0].ID != "goal-fixed-id" {
		t.Fatalf("goal not stored: %+v", m.Goals)
	}
	if store.Revision() != 1 {
		t.Errorf("revision = %d, want 1", store.Revision())
	}
}

func TestCreateGoalValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateGoalInput
		wantErr error
	}{
		{"empty name", CreateGoalInput{Name: "   ", Target: "100"}, core.ErrEmptyGoalName},
		{"zero target", CreateGoalInput{Name: "Ferien", Target: "0"}, core.ErrInvalidAmount},
		{"unparseable target", CreateGoalInput{Name: "Ferien", Target: "abc"}, core.ErrInvalidAmount},
		{"unparseable current", CreateGoalInput{Name: "Ferien", Target: "100", Current: "x"}, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, store := newTestGoals(t)
			if _, err := g.CreateGoal(context.Background(), tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if store.Revision() != 0 {
				t.Error("rejected goal still bumped the revision")
			}
			if len(store.Snapshot().Goals) != 0 {
				t.Error("rejected goal entered the model")
			}
		})
	}
}

func TestDeleteGoalRequiresConfirmation(t *testing.T) {
	g, store := newTestGoals(t)
	if _, err := g.CreateGoal(context.Background(), CreateGoalInput{Name: "Ferien", Target: "500"}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	if err := g.DeleteGoal(context.Background(), "goal-fixed-id", false); !errors.Is(err, ErrDeleteNotConfirmed) {
		t.Fatalf("err = %v, want ErrDeleteNotConfirmed", err)
	}
	if len(store.Snapshot().Goals) != 1 {
		t.Fatal("unconfirmed delete removed the goal")
	}

	if err := g.DeleteGoal(context.Background(), "goal-fixed-id", true); err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}
	if len(store.Snapshot().Goals) != 0 {
		t.Fatal("confirmed delete left the goal in place")
	}
}

func TestDeleteGoalUnknownID(t *testing.T) {
	g, _ := newTestGoals(t)
	if err := g.DeleteGoal(context.Background(), "missing", true); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("err = %v, want ErrGoalNotFound", err)
	}
}

func TestUpdateProgress(t *testing.T) {
	g, store := newTestGoals(t)
	if _, err := g.CreateGoal(context.Background(), CreateGoalInput{Name: "Ferien", Target: "1000"}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if err := g.UpdateProgress(context.Background(), "goal-fixed-id", "750"); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	goal := store.Snapshot().GoalByID("goal-fixed-id")
	if goal == nil || goal.Current.Cents != 75000 {
		t.Fatalf("goal after progress update: %+v", goal)
	}
}
