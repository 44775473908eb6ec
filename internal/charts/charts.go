// Package charts manages the lifecycle of chart instances: one live chart
// per slot, destroyed before being replaced. Drawing itself is delegated to
// an injected Renderer, which may become ready only after the manager is
// first used.
package charts

import (
	"errors"
	"fmt"
)

// Kind selects the visual form of a chart.
type Kind string

const (
	// KindBreakdown is a proportional (pie/doughnut) category breakdown.
	KindBreakdown Kind = "breakdown"
	// KindTrend is a multi-series line chart over ordered labels.
	KindTrend Kind = "trend"
	// KindComparison is a multi-series grouped bar chart.
	KindComparison Kind = "comparison"
)

var (
	// ErrSeriesMismatch is returned when a series length differs from the
	// label count. Silently truncating would render a misleading chart.
	ErrSeriesMismatch = errors.New("series length does not match labels")
	ErrNoLabels       = errors.New("chart has no labels")
	ErrUnknownKind    = errors.New("unknown chart kind")
)

// Series is one labeled sequence of values.
type Series struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// Data is the input for one chart: an ordered label sequence plus one or
// more series of matching length.
type Data struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Validate rejects malformed chart input before it reaches the renderer.
func (d Data) Validate() error {
	if len(d.Labels) == 0 {
		return ErrNoLabels
	}
	for _, s := range d.Series {
		if len(s.Values) != len(d.Labels) {
			return fmt.Errorf("%w: series %q has %d values for %d labels",
				ErrSeriesMismatch, s.Label, len(s.Values), len(d.Labels))
		}
	}
	return nil
}

// Handle represents one live chart instance held by the drawing capability.
type Handle interface {
	Destroy()
}

// Renderer is the external drawing capability. Ready reports whether the
// capability is loaded; Create must only be called while Ready returns true.
type Renderer interface {
	Ready() bool
	Create(slot string, kind Kind, data Data) (Handle, error)
}
