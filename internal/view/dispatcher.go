// Package view maps tab identifiers to rendered markup. The dispatcher is
// stateless between calls except for the chart manager it owns, whose slot
// state persists so charts are destroyed before being recreated on tab
// re-entry.
package view

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"budgetboard/internal/advisor"
	"budgetboard/internal/cache"
	"budgetboard/internal/charts"
	"budgetboard/internal/core"
	"budgetboard/internal/metrics"
	"budgetboard/internal/state"
)

// Built-in tab identifiers. Further tabs are contributed through
// RegisterTabRenderer.
const (
	TabProfiles  = "profiles"
	TabGoals     = "goals"
	TabAnalytics = "analytics"
)

// Chart slot identifiers, one per placeholder in the analytics tab.
const (
	SlotCategories = "analytics-categories"
	SlotTrend      = "analytics-trend"
	SlotComparison = "analytics-comparison"
)

var (
	ErrUnknownTab   = errors.New("unknown tab")
	ErrDuplicateTab = errors.New("tab renderer already registered")
)

// TabRenderer renders one tab from a model snapshot into markup.
type TabRenderer func(ctx context.Context, m *core.DataModel) (string, error)

// Dispatcher composes model projections and recommendations into tab markup
// and keeps the analytics charts in sync with the data.
type Dispatcher struct {
	store     *state.Store
	engine    *advisor.Engine
	charts    *charts.Manager
	templates *template.Template
	now       func() time.Time

	mu    sync.Mutex
	extra map[string]TabRenderer

	fragments *cache.LRU[string]
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithClock overrides the time source used for recommendation evaluation.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// WithFragmentCache caches rendered tab markup keyed by (tab, profile,
// revision). A revision bump makes old keys unreachable, so no stale markup
// is ever served.
func WithFragmentCache(c *cache.LRU[string]) DispatcherOption {
	return func(d *Dispatcher) { d.fragments = c }
}

// NewDispatcher wires the dispatcher to its collaborators. The chart manager
// is owned by the dispatcher from here on.
func NewDispatcher(store *state.Store, engine *advisor.Engine, cm *charts.Manager, templates *template.Template, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		engine:    engine,
		charts:    cm,
		templates: templates,
		now:       time.Now,
		extra:     make(map[string]TabRenderer),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// RegisterTabRenderer contributes a renderer for a tab the dispatcher does
// not itself know how to render. This is the extension point that replaces
// runtime wrapping of the render routine: plugins register here once.
func (d *Dispatcher) RegisterTabRenderer(tab string, fn TabRenderer) error {
	if tab == TabProfiles || tab == TabAnalytics {
		return fmt.Errorf("%w: %q", ErrDuplicateTab, tab)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.extra[tab]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTab, tab)
	}
	d.extra[tab] = fn
	return nil
}

// Tabs returns all renderable tab identifiers, built-ins first.
func (d *Dispatcher) Tabs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	tabs := []string{TabProfiles, TabAnalytics}
	for t := range d.extra {
		tabs = append(tabs, t)
	}
	return tabs
}

// RenderTab renders the given tab from the current model snapshot. For the
// analytics tab, chart population is handed to the chart manager after the
// markup is produced; the browser attaches the markup first and then fetches
// the chart configs, so charts never race their canvas elements.
func (d *Dispatcher) RenderTab(ctx context.Context, tab string) (string, error) {
	m, rev := d.store.SnapshotWithRevision()

	key := tab + "|" + string(m.CurrentProfile) + "|" + strconv.FormatUint(rev, 10)
	if d.fragments != nil && tab != TabAnalytics {
		if html, ok := d.fragments.Get(key); ok {
			return html, nil
		}
	}

	var (
		html string
		err  error
	)
	switch tab {
	case TabProfiles:
		html, err = d.renderProfiles(m)
	case TabAnalytics:
		html, err = d.renderAnalytics(m)
	default:
		d.mu.Lock()
		fn, ok := d.extra[tab]
		d.mu.Unlock()
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownTab, tab)
		}
		html, err = fn(ctx, m)
	}
	if err != nil {
		return "", fmt.Errorf("render tab %q: %w", tab, err)
	}
	if d.fragments != nil && tab != TabAnalytics {
		d.fragments.Set(key, html)
	}
	return html, nil
}

// Charts exposes the owned chart manager, e.g. for full view teardown.
func (d *Dispatcher) Charts() *charts.Manager {
	return d.charts
}

// Close tears down every live chart.
func (d *Dispatcher) Close() {
	d.charts.DestroyAll()
}

type profileView struct {
	ID             string
	Name           string
	Active         bool
	Income         string
	Balance        string
	Expenses       string
	Available      string
	AvailableClass string
}

func (d *Dispatcher) renderProfiles(m *core.DataModel) (string, error) {
	data := struct{ Profiles []profileView }{}
	for _, p := range m.Profiles {
		var spent int64
		for _, e := range m.ActiveExpensesFor(p.ID) {
			spent += e.Amount.Cents
		}
		// Available may be negative; everything else is non-negative.
		available := core.Money{Cents: p.MonthlyIncome.Cents - spent}
		v := profileView{
			ID:        string(p.ID),
			Name:      p.Name,
			Active:    p.ID == m.CurrentProfile,
			Income:    p.MonthlyIncome.Format(),
			Balance:   p.Balance.Format(),
			Expenses:  core.Money{Cents: spent}.Format(),
			Available: available.Format(),
		}
		if available.Cents < 0 {
			v.AvailableClass = "available--negative"
		}
		data.Profiles = append(data.Profiles, v)
	}
	return d.execute("tab_profiles", data)
}

type goalView struct {
	ID          string
	Name        string
	Icon        string
	Description string
	Target      string
	Current     string
	Progress    int
	Reached     bool
}

// RenderGoals renders the goals tab. It is exported so the goals plugin can
// register it as the renderer for TabGoals.
func (d *Dispatcher) RenderGoals(_ context.Context, m *core.DataModel) (string, error) {
	data := struct{ Goals []goalView }{}
	for _, g := range m.Goals {
		data.Goals = append(data.Goals, goalView{
			ID:          g.ID,
			Name:        g.Name,
			Icon:        g.Icon,
			Description: g.Description,
			Target:      g.Target.Format(),
			Current:     g.Current.Format(),
			Progress:    g.Progress(),
			Reached:     g.Reached(),
		})
	}
	return d.execute("tab_goals", data)
}

type recommendationView struct {
	Kind      string
	Icon      string
	Title     string
	Message   string
	Action    string
	Potential string
}

func (d *Dispatcher) renderAnalytics(m *core.DataModel) (string, error) {
	recs := d.engine.Get(m, m.CurrentProfile, d.now())
	data := struct{ Recommendations []recommendationView }{}
	for _, r := range recs {
		v := recommendationView{
			Kind:    string(r.Kind),
			Icon:    r.Icon,
			Title:   r.Title,
			Message: r.Message,
			Action:  r.Action,
		}
		if r.SavingsPotential > 0 {
			v.Potential = fmt.Sprintf("CHF %.2f", r.SavingsPotential)
		}
		data.Recommendations = append(data.Recommendations, v)
	}
	html, err := d.execute("tab_analytics", data)
	if err != nil {
		return "", err
	}
	d.populateCharts(m)
	return html, nil
}

// populateCharts replaces the analytics charts from the snapshot. Slots with
// no data are torn down instead of rendered, so empty charts never linger
// from a previous profile.
func (d *Dispatcher) populateCharts(m *core.DataModel) {
	if data, ok := categoryBreakdown(m); ok {
		if err := d.charts.Render(SlotCategories, charts.KindBreakdown, data); err != nil {
			slog.Error("Category chart render failed", "slot", SlotCategories, "error", err)
		}
	} else {
		d.charts.Destroy(SlotCategories)
	}
	if data, ok := wealthTrend(m); ok {
		if err := d.charts.Render(SlotTrend, charts.KindTrend, data); err != nil {
			slog.Error("Trend chart render failed", "slot", SlotTrend, "error", err)
		}
	} else {
		d.charts.Destroy(SlotTrend)
	}
	if data, ok := incomeComparison(m); ok {
		if err := d.charts.Render(SlotComparison, charts.KindComparison, data); err != nil {
			slog.Error("Comparison chart render failed", "slot", SlotComparison, "error", err)
		}
	} else {
		d.charts.Destroy(SlotComparison)
	}
	metrics.LiveCharts.Set(float64(d.charts.Count()))
}

// categoryBreakdown aggregates the active profile's expenses per category.
func categoryBreakdown(m *core.DataModel) (charts.Data, bool) {
	totals := make(map[string]int64)
	var order []string
	for _, e := range m.ActiveExpensesFor(m.CurrentProfile) {
		if _, ok := totals[e.Category]; !ok {
			order = append(order, e.Category)
		}
		totals[e.Category] += e.Amount.Cents
	}
	if len(order) == 0 {
		return charts.Data{}, false
	}
	values := make([]float64, len(order))
	for i, cat := range order {
		values[i] = core.Money{Cents: totals[cat]}.Francs()
	}
	return charts.Data{
		Labels: order,
		Series: []charts.Series{{Label: "Ausgaben", Values: values}},
	}, true
}

// wealthTrend plots the last 12 balance samples of the active profile.
func wealthTrend(m *core.DataModel) (charts.Data, bool) {
	samples := m.WealthFor(m.CurrentProfile, 12)
	if len(samples) == 0 {
		return charts.Data{}, false
	}
	labels := make([]string, len(samples))
	values := make([]float64, len(samples))
	for i, s := range samples {
		labels[i] = s.Month
		values[i] = s.Balance.Francs()
	}
	return charts.Data{
		Labels: labels,
		Series: []charts.Series{{Label: "Vermögen", Values: values}},
	}, true
}

// incomeComparison compares income against summed active expenses across all
// profiles. This is the one cross-profile view: it labels each profile
// explicitly rather than aggregating them.
func incomeComparison(m *core.DataModel) (charts.Data, bool) {
	if len(m.Profiles) == 0 {
		return charts.Data{}, false
	}
	labels := make([]string, len(m.Profiles))
	income := make([]float64, len(m.Profiles))
	expenses := make([]float64, len(m.Profiles))
	for i, p := range m.Profiles {
		labels[i] = p.Name
		income[i] = p.MonthlyIncome.Francs()
		var spent int64
		for _, e := range m.ActiveExpensesFor(p.ID) {
			spent += e.Amount.Cents
		}
		expenses[i] = core.Money{Cents: spent}.Francs()
	}
	return charts.Data{
		Labels: labels,
		Series: []charts.Series{
			{Label: "Einkommen", Values: income},
			{Label: "Ausgaben", Values: expenses},
		},
	}, true
}

func (d *Dispatcher) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute template %q: %w", name, err)
	}
	return buf.String(), nil
}
