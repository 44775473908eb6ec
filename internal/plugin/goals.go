// Package plugin contains optional features that attach to the running
// application through explicit registration rather than by wrapping or
// replacing core routines. The goals plugin is the first of these: it
// contributes the goals tab and the goal commands.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetboard/internal/core"
	"budgetboard/internal/log"
	"budgetboard/internal/state"
	"budgetboard/internal/view"
)

// ErrDeleteNotConfirmed is returned when a goal deletion is requested without
// explicit confirmation.
var ErrDeleteNotConfirmed = errors.New("goal deletion requires confirmation")

// Host is the registration surface the plugin attaches to. The view
// dispatcher satisfies it.
type Host interface {
	RegisterTabRenderer(tab string, fn view.TabRenderer) error
	RenderGoals(ctx context.Context, m *core.DataModel) (string, error)
}

// Goals contributes savings goals: a tab renderer plus create and delete
// commands that mutate through the store like everything else.
type Goals struct {
	store    *state.Store
	logger   *log.Logger
	attached bool
	newID    func() string
	now      func() time.Time
}

// GoalsOption configures the plugin.
type GoalsOption func(*Goals)

// WithIDSource overrides goal ID generation.
func WithIDSource(fn func() string) GoalsOption {
	return func(g *Goals) { g.newID = fn }
}

// WithGoalClock overrides the creation timestamp source.
func WithGoalClock(fn func() time.Time) GoalsOption {
	return func(g *Goals) { g.now = fn }
}

// NewGoals creates the plugin around the store it will mutate through.
func NewGoals(store *state.Store, logger *log.Logger, opts ...GoalsOption) *Goals {
	g := &Goals{
		store:  store,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Attach registers the goals tab renderer with the host. Attach is
// idempotent: a second call is a no-op and the tab is registered exactly
// once.
func (g *Goals) Attach(host Host) error {
	if g.attached {
		return nil
	}
	if err := host.RegisterTabRenderer(view.TabGoals, host.RenderGoals); err != nil {
		return fmt.Errorf("register goals tab: %w", err)
	}
	g.attached = true
	g.logger.Info("Goals plugin attached", log.FieldTab, view.TabGoals)
	return nil
}

// CreateGoalInput carries the raw form values of a goal creation request.
// Amounts are decimal strings in francs.
type CreateGoalInput struct {
	Name        string
	Target      string
	Current     string
	Description string
	Icon        string
}

// CreateGoal validates the input, assigns an ID and appends the goal through
// the store. Validation failures leave the model untouched.
func (g *Goals) CreateGoal(ctx context.Context, in CreateGoalInput) (core.Goal, error) {
	target, err := core.ParseDecimalToCents(in.Target)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse target: %w", err)
	}
	var current int64
	if strings.TrimSpace(in.Current) != "" {
		current, err = core.ParseDecimalToCents(in.Current)
		if err != nil {
			return core.Goal{}, fmt.Errorf("parse current: %w", err)
		}
	}
	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = "🎯"
	}
	goal := core.Goal{
		ID:          g.newID(),
		Name:        strings.TrimSpace(in.Name),
		Target:      core.Money{Cents: target},
		Current:     core.Money{Cents: current},
		Description: strings.TrimSpace(in.Description),
		Icon:        icon,
		CreatedAt:   g.now(),
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}
	err = g.store.Update(ctx, func(m *core.DataModel) error {
		m.Goals = append(m.Goals, goal)
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	g.logger.Info("Goal created", log.FieldGoalID, goal.ID, "name", goal.Name)
	return goal, nil
}

// DeleteGoal removes a goal. The confirmed flag must be true; an unconfirmed
// request is rejected before the store is touched.
func (g *Goals) DeleteGoal(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrDeleteNotConfirmed
	}
	err := g.store.Update(ctx, func(m *core.DataModel) error {
		return m.RemoveGoal(id)
	})
	if err != nil {
		return err
	}
	g.logger.Info("Goal deleted", log.FieldGoalID, id)
	return nil
}

// UpdateProgress sets the saved amount of a goal.
func (g *Goals) UpdateProgress(ctx context.Context, id string, current string) error {
	cents, err := core.ParseDecimalToCents(current)
	if err != nil {
		return fmt.Errorf("parse current: %w", err)
	}
	if cents < 0 {
		return core.ErrInvalidAmount
	}
	return g.store.Update(ctx, func(m *core.DataModel) error {
		goal := m.GoalByID(id)
		if goal == nil {
			return core.ErrGoalNotFound
		}
		goal.Current = core.Money{Cents: cents}
		return nil
	})
}
