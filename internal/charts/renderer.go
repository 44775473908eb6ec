package charts

import (
	"encoding/json"
	"fmt"
	"sync"
)

// ConfigRenderer is the production drawing capability. Drawing happens in the
// browser; this renderer translates chart data into a Chart.js-style config
// held per slot and served as JSON once the markup is attached.
type ConfigRenderer struct {
	mu      sync.Mutex
	configs map[string][]byte
}

// NewConfigRenderer creates an empty renderer.
func NewConfigRenderer() *ConfigRenderer {
	return &ConfigRenderer{configs: make(map[string][]byte)}
}

// Ready always reports true: serializing a config has no external dependency.
func (r *ConfigRenderer) Ready() bool { return true }

type chartConfig struct {
	Type string    `json:"type"`
	Data chartData `json:"data"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

func chartType(kind Kind) (string, error) {
	switch kind {
	case KindBreakdown:
		return "doughnut", nil
	case KindTrend:
		return "line", nil
	case KindComparison:
		return "bar", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Create stores the serialized config for the slot.
func (r *ConfigRenderer) Create(slot string, kind Kind, data Data) (Handle, error) {
	typ, err := chartType(kind)
	if err != nil {
		return nil, err
	}
	cfg := chartConfig{Type: typ, Data: chartData{Labels: data.Labels}}
	for _, s := range data.Series {
		cfg.Data.Datasets = append(cfg.Data.Datasets, chartDataset{Label: s.Label, Data: s.Values})
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal chart config: %w", err)
	}

	r.mu.Lock()
	r.configs[slot] = body
	r.mu.Unlock()
	return &configHandle{renderer: r, slot: slot}, nil
}

// Config returns the serialized config for a slot, if one is live.
func (r *ConfigRenderer) Config(slot string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	body, ok := r.configs[slot]
	return body, ok
}

type configHandle struct {
	renderer *ConfigRenderer
	slot     string
}

func (h *configHandle) Destroy() {
	h.renderer.mu.Lock()
	delete(h.renderer.configs, h.slot)
	h.renderer.mu.Unlock()
}
