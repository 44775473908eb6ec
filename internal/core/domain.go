package core

import (
	"errors"
	"strings"
	"time"
)

// ProfileID identifies one of the fixed set of profiles owning financial data.
type ProfileID string

type (
	Money struct {
		Cents int64
	}

	// Profile is one owner of financial data. The set of profiles is fixed at
	// model creation; profiles are never deleted.
	Profile struct {
		ID            ProfileID
		Name          string
		MonthlyIncome Money
		Balance       Money
	}

	// Expense is a fixed or variable monthly expense owned by a profile.
	// Deactivated expenses are kept (soft delete) and excluded from every
	// aggregation.
	Expense struct {
		ID       int64
		Category string
		Amount   Money
		Profile  ProfileID
		Fixed    bool
		Active   bool
	}

	// Debt is an outstanding liability of a profile. A missing interest rate
	// is stored as zero.
	Debt struct {
		ID           int64
		Name         string
		Profile      ProfileID
		InterestRate float64
	}

	// SavingsDeposit is a single pillar-3a contribution, aggregated per
	// calendar year against the statutory annual cap.
	SavingsDeposit struct {
		ID     int64
		Amount Money
		Year   int
	}

	// WealthSample is one point of the append-only balance time series.
	WealthSample struct {
		Profile ProfileID
		Month   string
		Balance Money
	}

	// Goal is a shared savings goal. Goals have no owning profile.
	Goal struct {
		ID          string
		Name        string
		Target      Money
		Current     Money
		Description string
		Icon        string
		CreatedAt   time.Time
	}

	// Settings holds process-wide UI preferences persisted with the model.
	Settings struct {
		DarkMode bool
	}

	// DataModel is the canonical mutable financial record. All mutation goes
	// through the state store; everything else reads snapshots.
	DataModel struct {
		Profiles       []Profile
		Expenses       []Expense
		Debts          []Debt
		Deposits       []SavingsDeposit
		WealthHistory  []WealthSample
		Goals          []Goal
		Settings       Settings
		CurrentProfile ProfileID
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyGoalName   = errors.New("goal name cannot be empty")
	ErrGoalTarget      = errors.New("goal target must be positive")
	ErrUnknownProfile  = errors.New("unknown profile")
	ErrGoalNotFound    = errors.New("goal not found")
	ErrGoalNameTooLong = errors.New("goal name too long (max 100 characters)")
)

// NewModel returns a model seeded with the fixed set of three profiles: two
// personal profiles and the shared household profile.
func NewModel() *DataModel {
	return &DataModel{
		Profiles: []Profile{
			{ID: "partner-1", Name: "Partner 1"},
			{ID: "partner-2", Name: "Partner 2"},
			{ID: "shared", Name: "Gemeinsam"},
		},
		CurrentProfile: "partner-1",
	}
}

// ProfileByID returns the profile with the given ID, or nil.
func (m *DataModel) ProfileByID(id ProfileID) *Profile {
	for i := range m.Profiles {
		if m.Profiles[i].ID == id {
			return &m.Profiles[i]
		}
	}
	return nil
}

// ActiveExpensesFor returns the active expenses owned by the given profile.
// Filtering by owner here is what keeps aggregations from leaking data across
// profiles.
func (m *DataModel) ActiveExpensesFor(id ProfileID) []Expense {
	var out []Expense
	for _, e := range m.Expenses {
		if e.Active && e.Profile == id {
			out = append(out, e)
		}
	}
	return out
}

// DebtsFor returns the debts owned by the given profile.
func (m *DataModel) DebtsFor(id ProfileID) []Debt {
	var out []Debt
	for _, d := range m.Debts {
		if d.Profile == id {
			out = append(out, d)
		}
	}
	return out
}

// HasDepositsIn reports whether any pillar-3a deposit was recorded in the
// given calendar year.
func (m *DataModel) HasDepositsIn(year int) bool {
	for _, d := range m.Deposits {
		if d.Year == year {
			return true
		}
	}
	return false
}

// DepositsInYear sums all pillar-3a deposits made in the given calendar year.
func (m *DataModel) DepositsInYear(year int) Money {
	var cents int64
	for _, d := range m.Deposits {
		if d.Year == year {
			cents += d.Amount.Cents
		}
	}
	return Money{Cents: cents}
}

// WealthFor returns the last n wealth samples for the given profile, oldest
// first. The history is append-only, so stored order is chronological.
func (m *DataModel) WealthFor(id ProfileID, n int) []WealthSample {
	var out []WealthSample
	for _, s := range m.WealthHistory {
		if s.Profile == id {
			out = append(out, s)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// GoalByID returns the goal with the given ID, or nil.
func (m *DataModel) GoalByID(id string) *Goal {
	for i := range m.Goals {
		if m.Goals[i].ID == id {
			return &m.Goals[i]
		}
	}
	return nil
}

// RemoveGoal deletes the goal with the given ID.
func (m *DataModel) RemoveGoal(id string) error {
	for i := range m.Goals {
		if m.Goals[i].ID == id {
			m.Goals = append(m.Goals[:i], m.Goals[i+1:]...)
			return nil
		}
	}
	return ErrGoalNotFound
}

// Validate checks the fields a goal must carry before it enters the model.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyGoalName
	}
	if len(g.Name) > 100 {
		return ErrGoalNameTooLong
	}
	if g.Target.Cents <= 0 {
		return ErrGoalTarget
	}
	if g.Current.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Progress returns the goal completion percentage clamped to [0, 100].
// Target is validated positive at creation, so only the clamp is needed here.
func (g Goal) Progress() int {
	if g.Target.Cents <= 0 {
		return 0
	}
	p := g.Current.Cents * 100 / g.Target.Cents
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}

// Reached reports whether the goal's current amount covers its target.
func (g Goal) Reached() bool {
	return g.Target.Cents > 0 && g.Current.Cents >= g.Target.Cents
}

// Clone returns a deep copy of the model, safe to read while the original
// keeps being mutated under the store's lock.
func (m *DataModel) Clone() *DataModel {
	c := &DataModel{
		Settings:       m.Settings,
		CurrentProfile: m.CurrentProfile,
	}
	c.Profiles = append([]Profile(nil), m.Profiles...)
	c.Expenses = append([]Expense(nil), m.Expenses...)
	c.Debts = append([]Debt(nil), m.Debts...)
	c.Deposits = append([]SavingsDeposit(nil), m.Deposits...)
	c.WealthHistory = append([]WealthSample(nil), m.WealthHistory...)
	c.Goals = append([]Goal(nil), m.Goals...)
	return c
}
