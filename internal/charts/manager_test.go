package charts

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeHandle struct {
	mu        sync.Mutex
	destroyed bool
}

func (h *fakeHandle) Destroy() {
	h.mu.Lock()
	h.destroyed = true
	h.mu.Unlock()
}

func (h *fakeHandle) isDestroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

type fakeRenderer struct {
	mu      sync.Mutex
	ready   bool
	created []*fakeHandle
}

func (r *fakeRenderer) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *fakeRenderer) setReady(v bool) {
	r.mu.Lock()
	r.ready = v
	r.mu.Unlock()
}

func (r *fakeRenderer) Create(slot string, kind Kind, data Data) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &fakeHandle{}
	r.created = append(r.created, h)
	return h, nil
}

func (r *fakeRenderer) handles() []*fakeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeHandle(nil), r.created...)
}

func pieData() Data {
	return Data{
		Labels: []string{"Miete", "Essen"},
		Series: []Series{{Label: "CHF", Values: []float64{1500, 600}}},
	}
}

func TestAtMostOneChartPerSlot(t *testing.T) {
	r := &fakeRenderer{ready: true}
	m := NewManager(r)

	for i := 0; i < 4; i++ {
		if err := m.Render("analytics-categories", KindBreakdown, pieData()); err != nil {
			t.Fatalf("render %d failed: %v", i, err)
		}
	}
	handles := r.handles()
	if len(handles) != 4 {
		t.Fatalf("expected 4 created charts, got %d", len(handles))
	}
	for i, h := range handles[:3] {
		if !h.isDestroyed() {
			t.Fatalf("chart %d should have been destroyed before its successor", i)
		}
	}
	if handles[3].isDestroyed() {
		t.Fatalf("newest chart must stay live")
	}
	if m.Count() != 1 {
		t.Fatalf("expected one live chart, got %d", m.Count())
	}
}

func TestMismatchedSeriesRejected(t *testing.T) {
	r := &fakeRenderer{ready: true}
	m := NewManager(r)

	bad := Data{
		Labels: []string{"Jan", "Feb", "Mar"},
		Series: []Series{{Label: "Saldo", Values: []float64{1, 2}}},
	}
	err := m.Render("trend", KindTrend, bad)
	if !errors.Is(err, ErrSeriesMismatch) {
		t.Fatalf("expected ErrSeriesMismatch, got %v", err)
	}
	if len(r.handles()) != 0 || m.Live("trend") {
		t.Fatalf("nothing must be created for malformed data")
	}
}

func TestUnknownKindRejected(t *testing.T) {
	m := NewManager(&fakeRenderer{ready: true})
	if err := m.Render("x", Kind("sparkline"), pieData()); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	r := &fakeRenderer{ready: true}
	m := NewManager(r)

	if err := m.Render("slot", KindBreakdown, pieData()); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	m.Destroy("slot")
	m.Destroy("slot") // no-op on empty slot
	m.Destroy("never-rendered")
	if m.Count() != 0 {
		t.Fatalf("expected no live charts, got %d", m.Count())
	}
	if !r.handles()[0].isDestroyed() {
		t.Fatalf("destroy must release the handle")
	}
}

func TestDestroyAll(t *testing.T) {
	r := &fakeRenderer{ready: true}
	m := NewManager(r)
	_ = m.Render("a", KindBreakdown, pieData())
	_ = m.Render("b", KindComparison, pieData())

	m.DestroyAll()
	if m.Count() != 0 {
		t.Fatalf("expected full teardown, got %d live", m.Count())
	}
	for i, h := range r.handles() {
		if !h.isDestroyed() {
			t.Fatalf("chart %d not destroyed", i)
		}
	}
}

func TestDeferredRenderRetriesUntilReady(t *testing.T) {
	r := &fakeRenderer{}
	m := NewManager(r, WithRetry(time.Millisecond, 200))

	if err := m.Render("late", KindTrend, pieData()); err != nil {
		t.Fatalf("parking a render must not fail: %v", err)
	}
	if m.Live("late") {
		t.Fatalf("chart must not be live before the renderer is ready")
	}

	r.setReady(true)
	deadline := time.Now().Add(2 * time.Second)
	for !m.Live("late") {
		if time.Now().After(deadline) {
			t.Fatalf("parked render never completed")
		}
		time.Sleep(time.Millisecond)
	}
	if len(r.handles()) != 1 {
		t.Fatalf("expected exactly one created chart, got %d", len(r.handles()))
	}
}

func TestDeferredRenderGivesUpAfterBoundedRetries(t *testing.T) {
	r := &fakeRenderer{}
	m := NewManager(r, WithRetry(time.Millisecond, 3))

	if err := m.Render("never", KindTrend, pieData()); err != nil {
		t.Fatalf("parking a render must not fail: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	r.setReady(true)
	time.Sleep(20 * time.Millisecond)
	if m.Live("never") || len(r.handles()) != 0 {
		t.Fatalf("render must have been dropped after the retry bound")
	}
}
