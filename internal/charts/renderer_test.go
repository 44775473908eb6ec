package charts

import (
	"encoding/json"
	"testing"
)

func TestConfigRendererRoundTrip(t *testing.T) {
	r := NewConfigRenderer()
	if !r.Ready() {
		t.Fatalf("config renderer must always be ready")
	}

	h, err := r.Create("slot", KindComparison, Data{
		Labels: []string{"Partner 1", "Partner 2"},
		Series: []Series{
			{Label: "Einkommen", Values: []float64{8000, 7500}},
			{Label: "Ausgaben", Values: []float64{5200, 4100}},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	body, ok := r.Config("slot")
	if !ok {
		t.Fatalf("expected a stored config")
	}
	var cfg struct {
		Type string `json:"type"`
		Data struct {
			Labels   []string `json:"labels"`
			Datasets []struct {
				Label string    `json:"label"`
				Data  []float64 `json:"data"`
			} `json:"datasets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}
	if cfg.Type != "bar" || len(cfg.Data.Datasets) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	h.Destroy()
	if _, ok := r.Config("slot"); ok {
		t.Fatalf("destroy must release the stored config")
	}
}
