package core

import (
	"testing"
)

func TestGoalValidate(t *testing.T) {
	cases := []struct {
		name string
		g    Goal
		err  error
	}{
		{"valid", Goal{Name: "Ferien", Target: Money{Cents: 500000}}, nil},
		{"empty name", Goal{Name: "  ", Target: Money{Cents: 100}}, ErrEmptyGoalName},
		{"zero target", Goal{Name: "x", Target: Money{Cents: 0}}, ErrGoalTarget},
		{"negative target", Goal{Name: "x", Target: Money{Cents: -100}}, ErrGoalTarget},
		{"negative current", Goal{Name: "x", Target: Money{Cents: 100}, Current: Money{Cents: -1}}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		if err := tc.g.Validate(); err != tc.err {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
	}
}

func TestGoalProgressClamp(t *testing.T) {
	cases := []struct {
		current, target int64
		want            int
	}{
		{12000, 10000, 100}, // overshoot clamps to 100
		{0, 10000, 0},
		{5000, 10000, 50},
		{10000, 10000, 100},
	}
	for i, tc := range cases {
		g := Goal{Name: "g", Target: Money{Cents: tc.target}, Current: Money{Cents: tc.current}}
		if got := g.Progress(); got != tc.want {
			t.Fatalf("case %d: expected %d%%, got %d%%", i, tc.want, got)
		}
	}
	if !(Goal{Target: Money{Cents: 100}, Current: Money{Cents: 120}}).Reached() {
		t.Fatalf("expected overshoot goal to be reached")
	}
	if (Goal{Target: Money{Cents: 100}, Current: Money{Cents: 99}}).Reached() {
		t.Fatalf("expected unfinished goal not to be reached")
	}
}

func TestActiveExpensesForFiltersProfileAndActive(t *testing.T) {
	m := NewModel()
	m.Expenses = []Expense{
		{ID: 1, Category: "Miete", Amount: Money{Cents: 150000}, Profile: "partner-1", Active: true},
		{ID: 2, Category: "Miete", Amount: Money{Cents: 180000}, Profile: "partner-2", Active: true},
		{ID: 3, Category: "Netflix", Amount: Money{Cents: 1800}, Profile: "partner-1", Active: false},
	}
	got := m.ActiveExpensesFor("partner-1")
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only expense 1, got %+v", got)
	}
}

func TestWealthForReturnsLastN(t *testing.T) {
	m := NewModel()
	for i := 0; i < 15; i++ {
		m.WealthHistory = append(m.WealthHistory, WealthSample{
			Profile: "partner-1",
			Month:   "2025-" + string(rune('a'+i)),
			Balance: Money{Cents: int64(i)},
		})
	}
	m.WealthHistory = append(m.WealthHistory, WealthSample{Profile: "shared", Month: "x"})
	got := m.WealthFor("partner-1", 12)
	if len(got) != 12 {
		t.Fatalf("expected 12 samples, got %d", len(got))
	}
	if got[11].Balance.Cents != 14 {
		t.Fatalf("expected newest sample last, got %d", got[11].Balance.Cents)
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := NewModel()
	m.Goals = []Goal{{ID: "g1", Name: "a", Target: Money{Cents: 100}}}
	c := m.Clone()
	c.Goals[0].Name = "changed"
	c.Profiles[0].Name = "changed"
	if m.Goals[0].Name != "a" || m.Profiles[0].Name == "changed" {
		t.Fatalf("clone shares backing arrays with original")
	}
}

func TestRemoveGoal(t *testing.T) {
	m := NewModel()
	m.Goals = []Goal{{ID: "g1"}, {ID: "g2"}}
	if err := m.RemoveGoal("g1"); err != nil {
		t.Fatalf("expected removal, got %v", err)
	}
	if len(m.Goals) != 1 || m.Goals[0].ID != "g2" {
		t.Fatalf("unexpected goals after removal: %+v", m.Goals)
	}
	if err := m.RemoveGoal("missing"); err != ErrGoalNotFound {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}
