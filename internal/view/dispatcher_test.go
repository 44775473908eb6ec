package view

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"testing"
	"time"

	"budgetboard/internal/advisor"
	"budgetboard/internal/cache"
	"budgetboard/internal/charts"
	"budgetboard/internal/core"
	"budgetboard/internal/state"
	"budgetboard/web"
)

func testTemplates(t *testing.T) *template.Template {
	t.Helper()
	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	return tmpl
}

func seededModel() *core.DataModel {
	m := core.NewModel()
	m.Profiles[0].MonthlyIncome = core.Money{Cents: 800000}
	m.Profiles[0].Balance = core.Money{Cents: 2500000}
	m.Expenses = []core.Expense{
		{ID: 1, Category: "Miete", Amount: core.Money{Cents: 180000}, Profile: "partner-1", Fixed: true, Active: true},
		{ID: 2, Category: "Essen", Amount: core.Money{Cents: 60000}, Profile: "partner-1", Active: true},
		{ID: 3, Category: "Abo", Amount: core.Money{Cents: 2000}, Profile: "partner-1", Active: false},
		{ID: 4, Category: "Miete", Amount: core.Money{Cents: 90000}, Profile: "partner-2", Active: true},
	}
	m.WealthHistory = []core.WealthSample{
		{Profile: "partner-1", Month: "2026-06", Balance: core.Money{Cents: 2400000}},
		{Profile: "partner-1", Month: "2026-07", Balance: core.Money{Cents: 2500000}},
	}
	return m
}

func newTestDispatcher(t *testing.T, m *core.DataModel, opts ...DispatcherOption) (*Dispatcher, *state.Store, *charts.Manager) {
	t.Helper()
	store := state.New(m)
	cm := charts.NewManager(charts.NewConfigRenderer())
	d := NewDispatcher(store, advisor.New(advisor.DefaultConfig()), cm, testTemplates(t), opts...)
	return d, store, cm
}

func TestRenderTabProfiles(t *testing.T) {
	d, _, _ := newTestDispatcher(t, seededModel())

	html, err := d.RenderTab(context.Background(), TabProfiles)
	if err != nil {
		t.Fatalf("RenderTab: %v", err)
	}
	for _, want := range []string{
		"Partner 1",
		"Gemeinsam",
		"CHF 8'000.00", // income
		"CHF 2'400.00", // active expenses only, inactive Abo excluded
		"CHF 5'600.00", // available
	} {
		if !strings.Contains(html, want) {
			t.Errorf("profiles markup missing %q", want)
		}
	}
	if strings.Contains(html, "CHF 2'420.00") {
		t.Error("inactive expense leaked into the total")
	}
}

func TestRenderTabProfilesNegativeAvailable(t *testing.T) {
	m := seededModel()
	m.Profiles[0].MonthlyIncome = core.Money{Cents: 100000}
	d, _, _ := newTestDispatcher(t, m)

	html, err := d.RenderTab(context.Background(), TabProfiles)
	if err != nil {
		t.Fatalf("RenderTab: %v", err)
	}
	if !strings.Contains(html, "available--negative") {
		t.Error("negative available amount not flagged")
	}
	if !strings.Contains(html, "-CHF 1'400.00") {
		t.Error("negative available amount not rendered")
	}
}

func TestRenderTabUnknown(t *testing.T) {
	d, _, _ := newTestDispatcher(t, seededModel())

	if _, err := d.RenderTab(context.Background(), "nope"); !errors.Is(err, ErrUnknownTab) {
		t.Fatalf("err = %v, want ErrUnknownTab", err)
	}
}

func TestRegisterTabRenderer(t *testing.T) {
	d, _, _ := newTestDispatcher(t, seededModel())

	fn := func(ctx context.Context, m *core.DataModel) (string, error) {
		return "<p>extra</p>", nil
	}
	if err := d.RegisterTabRenderer("extra", fn); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := d.RegisterTabRenderer("extra", fn); !errors.Is(err, ErrDuplicateTab) {
		t.Fatalf("duplicate registration err = %v, want ErrDuplicateTab", err)
	}
	if err := d.RegisterTabRenderer(TabProfiles, fn); !errors.Is(err, ErrDuplicateTab) {
		t.Fatalf("built-in shadowing err = %v, want ErrDuplicateTab", err)
	}

	html, err := d.RenderTab(context.Background(), "extra")
	if err != nil {
		t.Fatalf("RenderTab extra: %v", err)
	}
	if html != "<p>extra</p>" {
		t.Fatalf("extra tab markup = %q", html)
	}
}

func TestRenderTabAnalyticsPopulatesCharts(t *testing.T) {
	d, _, cm := newTestDispatcher(t, seededModel())

	html, err := d.RenderTab(context.Background(), TabAnalytics)
	if err != nil {
		t.Fatalf("RenderTab: %v", err)
	}
	if !strings.Contains(html, "data-chart-slot=\"analytics-categories\"") {
		t.Error("analytics markup missing category chart slot")
	}
	for _, slot := range []string{SlotCategories, SlotTrend, SlotComparison} {
		if !cm.Live(slot) {
			t.Errorf("slot %q has no live chart after analytics render", slot)
		}
	}
}

func TestRenderTabAnalyticsEmptySlotsTornDown(t *testing.T) {
	d, store, cm := newTestDispatcher(t, seededModel())

	if _, err := d.RenderTab(context.Background(), TabAnalytics); err != nil {
		t.Fatalf("first render: %v", err)
	}
	err := store.Update(context.Background(), func(m *core.DataModel) error {
		m.Expenses = nil
		m.WealthHistory = nil
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := d.RenderTab(context.Background(), TabAnalytics); err != nil {
		t.Fatalf("second render: %v", err)
	}
	if cm.Live(SlotCategories) {
		t.Error("category chart survived although no expenses remain")
	}
	if cm.Live(SlotTrend) {
		t.Error("trend chart survived although history is empty")
	}
	if !cm.Live(SlotComparison) {
		t.Error("comparison chart should remain, profiles still exist")
	}
}

func TestRenderTabAnalyticsRecommendations(t *testing.T) {
	m := seededModel()
	// 14% savings rate triggers the low-rate warning.
	m.Profiles[0].MonthlyIncome = core.Money{Cents: 1000000}
	m.Expenses = []core.Expense{
		{ID: 1, Category: "Miete", Amount: core.Money{Cents: 860000}, Profile: "partner-1", Active: true},
	}
	d, _, _ := newTestDispatcher(t, m, WithClock(func() time.Time {
		return time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)
	}))

	html, err := d.RenderTab(context.Background(), TabAnalytics)
	if err != nil {
		t.Fatalf("RenderTab: %v", err)
	}
	if !strings.Contains(html, "recommendation--warning") {
		t.Error("low savings rate warning missing from analytics markup")
	}
	if !strings.Contains(html, "Sparpotenzial") {
		t.Error("savings potential line missing")
	}
}

func TestFragmentCacheHit(t *testing.T) {
	c := cache.NewLRU[string](10, time.Minute)
	d, _, _ := newTestDispatcher(t, seededModel(), WithFragmentCache(c))

	first, err := d.RenderTab(context.Background(), TabProfiles)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	if c.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", c.Size())
	}
	second, err := d.RenderTab(context.Background(), TabProfiles)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if first != second {
		t.Error("cached fragment differs from original render")
	}
}

func TestFragmentCacheInvalidatedByRevision(t *testing.T) {
	c := cache.NewLRU[string](10, time.Minute)
	d, store, _ := newTestDispatcher(t, seededModel(), WithFragmentCache(c))

	before, err := d.RenderTab(context.Background(), TabProfiles)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	err = store.Update(context.Background(), func(m *core.DataModel) error {
		m.Profiles[0].MonthlyIncome = core.Money{Cents: 999900}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	after, err := d.RenderTab(context.Background(), TabProfiles)
	if err != nil {
		t.Fatalf("render after update: %v", err)
	}
	if before == after {
		t.Error("stale fragment served after model changed")
	}
	if !strings.Contains(after, "CHF 9'999.00") {
		t.Error("updated income missing from fresh render")
	}
}

func TestCloseDestroysCharts(t *testing.T) {
	d, _, cm := newTestDispatcher(t, seededModel())

	if _, err := d.RenderTab(context.Background(), TabAnalytics); err != nil {
		t.Fatalf("RenderTab: %v", err)
	}
	if cm.Count() == 0 {
		t.Fatal("expected live charts before Close")
	}
	d.Close()
	if cm.Count() != 0 {
		t.Errorf("%d charts still live after Close", cm.Count())
	}
}
