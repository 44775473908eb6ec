// Package advisor derives financial recommendations from a model snapshot.
// All functions are pure: same snapshot, same output, no caching.
package advisor

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"budgetboard/internal/core"
)

// Kind tags the severity of a recommendation.
type Kind string

const (
	KindWarning Kind = "warning"
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
)

// Recommendation is one piece of advice shown on the dashboard.
type Recommendation struct {
	Kind    Kind   `json:"kind"`
	Icon    string `json:"icon"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	// SavingsPotential is the estimated annual CHF saving of following the
	// advice, zero when not applicable.
	SavingsPotential float64 `json:"savings_potential,omitempty"`
}

// Config holds the jurisdiction- and year-specific constants. They change
// yearly, so they are injected rather than hard-coded.
type Config struct {
	// PillarCapCents is the statutory annual pillar-3a contribution cap.
	PillarCapCents int64
	// PillarTaxFactor estimates the tax saving per CHF of remaining headroom.
	PillarTaxFactor float64
	// MinSavingsRate is the percentage below which a warning is emitted.
	MinSavingsRate float64
	// ComfortSavingsRate is the percentage at and above which the rate is
	// celebrated.
	ComfortSavingsRate float64
}

// DefaultConfig returns the 2025 Swiss constants.
func DefaultConfig() Config {
	return Config{
		PillarCapCents:     725800,
		PillarTaxFactor:    0.15,
		MinSavingsRate:     15,
		ComfortSavingsRate: 30,
	}
}

const maxRecommendations = 5

// Engine evaluates the recommendation rules against model snapshots.
type Engine struct {
	cfg Config
}

// New creates an engine with the given constants.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Get evaluates every rule for the active profile, in fixed order, and
// returns at most five recommendations. Rules are independent; each emits
// zero or one item. The list is truncated in rule order, never re-sorted by
// severity. An empty model yields an empty list.
func (e *Engine) Get(m *core.DataModel, profile core.ProfileID, now time.Time) []Recommendation {
	var recs []Recommendation
	if r, ok := e.savingsRate(m, profile); ok {
		recs = append(recs, r)
	}
	if r, ok := e.debtAvalanche(m, profile); ok {
		recs = append(recs, r)
	}
	if r, ok := e.pillarHeadroom(m, now); ok {
		recs = append(recs, r)
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// savingsCategories is the fixed taxonomy of expense categories counted as
// savings for the rate check.
var savingsCategories = map[string]bool{
	"säule 3a":       true,
	"saeule 3a":      true,
	"pillar 3a":      true,
	"3a":             true,
	"sparen":         true,
	"savings":        true,
	"altersvorsorge": true,
	"retirement":     true,
}

func isSavingsCategory(category string) bool {
	return savingsCategories[strings.ToLower(strings.TrimSpace(category))]
}

func (e *Engine) savingsRate(m *core.DataModel, profile core.ProfileID) (Recommendation, bool) {
	p := m.ProfileByID(profile)
	if p == nil || p.MonthlyIncome.Cents <= 0 {
		return Recommendation{}, false
	}
	var savings int64
	for _, exp := range m.ActiveExpensesFor(profile) {
		if isSavingsCategory(exp.Category) {
			savings += exp.Amount.Cents
		}
	}
	rate := float64(savings) / float64(p.MonthlyIncome.Cents) * 100

	switch {
	case rate < e.cfg.MinSavingsRate:
		target := int64(float64(p.MonthlyIncome.Cents) * e.cfg.MinSavingsRate / 100)
		delta := core.Money{Cents: target - savings}
		annual := core.Money{Cents: delta.Cents * 12}
		return Recommendation{
			Kind:  KindWarning,
			Icon:  "⚠️",
			Title: "Sparquote erhöhen",
			Message: fmt.Sprintf("Deine Sparquote liegt bei %.1f%%, unter den empfohlenen %.0f%%.",
				rate, e.cfg.MinSavingsRate),
			Action: fmt.Sprintf("Erhöhe deine monatliche Sparrate um %s auf %.0f%% des Einkommens (%s).",
				delta.Format(), e.cfg.MinSavingsRate, core.Money{Cents: target}.Format()),
			SavingsPotential: annual.Francs(),
		}, true
	case rate >= e.cfg.ComfortSavingsRate:
		return Recommendation{
			Kind:  KindSuccess,
			Icon:  "🎉",
			Title: "Starke Sparquote",
			Message: fmt.Sprintf("Deine Sparquote liegt bei %.1f%%. Weiter so!",
				rate),
		}, true
	default:
		return Recommendation{}, false
	}
}

func (e *Engine) debtAvalanche(m *core.DataModel, profile core.ProfileID) (Recommendation, bool) {
	debts := m.DebtsFor(profile)
	if len(debts) <= 1 {
		return Recommendation{}, false
	}
	sort.SliceStable(debts, func(i, j int) bool {
		return debts[i].InterestRate > debts[j].InterestRate
	})
	top := debts[0]
	return Recommendation{
		Kind:  KindInfo,
		Icon:  "📉",
		Title: "Schulden-Lawine",
		Message: fmt.Sprintf("\"%s\" hat deinen höchsten Zinssatz (%.1f%%).",
			top.Name, top.InterestRate),
		Action: fmt.Sprintf("Zahle \"%s\" zuerst ab, um die Gesamtzinsen zu minimieren.", top.Name),
	}, true
}

func (e *Engine) pillarHeadroom(m *core.DataModel, now time.Time) (Recommendation, bool) {
	// The rule needs at least one deposit recorded for the current year;
	// without tracked deposits there is no allowance to report on.
	if !m.HasDepositsIn(now.Year()) {
		return Recommendation{}, false
	}
	deposited := m.DepositsInYear(now.Year())
	if deposited.Cents >= e.cfg.PillarCapCents {
		return Recommendation{}, false
	}
	remaining := core.Money{Cents: e.cfg.PillarCapCents - deposited.Cents}
	monthsLeft := 12 - int(now.Month()) + 1
	installment := round2(remaining.Francs() / float64(monthsLeft))
	potential := round2(remaining.Francs() * e.cfg.PillarTaxFactor)
	return Recommendation{
		Kind:  KindInfo,
		Icon:  "🏦",
		Title: "Säule 3a ausschöpfen",
		Message: fmt.Sprintf("%s der diesjährigen Säule-3a-Limite sind noch ungenutzt.",
			remaining.Format()),
		Action: fmt.Sprintf("Zahle monatlich CHF %.2f ein, um die Limite bis Jahresende auszuschöpfen.",
			installment),
		SavingsPotential: potential,
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
