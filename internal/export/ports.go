// Package export defines the outbound port for wealth-history exports. The
// Google Sheets adapter lives in the google subpackage; the worker depends on
// the interface only.
package export

import (
	"context"

	"budgetboard/internal/core"
)

// WealthWriter replaces the exported wealth history with the given samples.
// Exports are whole-snapshot: the destination mirrors the latest model, it is
// not an append log.
type WealthWriter interface {
	WriteWealthHistory(ctx context.Context, samples []core.WealthSample) error
}
