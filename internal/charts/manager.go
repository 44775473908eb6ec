package charts

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultRetryDelay = 250 * time.Millisecond
	defaultMaxRetries = 20
)

// Manager is a keyed registry of chart instances. It guarantees at most one
// live chart per slot: the previous instance is destroyed before the
// replacement is created. When the renderer is not ready yet, render requests
// are parked and retried on a timer instead of failing permanently.
type Manager struct {
	mu         sync.Mutex
	renderer   Renderer
	retryDelay time.Duration
	maxRetries int
	live       map[string]Handle
	pending    map[string]*pendingRender
}

type pendingRender struct {
	kind     Kind
	data     Data
	attempts int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRetry overrides the retry delay and attempt bound used while the
// renderer is unavailable.
func WithRetry(delay time.Duration, maxRetries int) ManagerOption {
	return func(m *Manager) {
		m.retryDelay = delay
		m.maxRetries = maxRetries
	}
}

// NewManager creates a manager drawing through the given renderer.
func NewManager(r Renderer, opts ...ManagerOption) *Manager {
	m := &Manager{
		renderer:   r,
		retryDelay: defaultRetryDelay,
		maxRetries: defaultMaxRetries,
		live:       make(map[string]Handle),
		pending:    make(map[string]*pendingRender),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Render draws a chart into the slot, tearing down any chart already there.
// Malformed data is rejected before anything is destroyed. If the renderer is
// not ready the request is parked and retried; a later Render on the same
// slot supersedes the parked request.
func (m *Manager) Render(slot string, kind Kind, data Data) error {
	if kind != KindBreakdown && kind != KindTrend && kind != KindComparison {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("chart %q: %w", slot, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.renderer.Ready() {
		m.pending[slot] = &pendingRender{kind: kind, data: data}
		time.AfterFunc(m.retryDelay, func() { m.retry(slot) })
		slog.Debug("Renderer not ready, chart render parked", "slot", slot, "kind", string(kind))
		return nil
	}
	return m.renderLocked(slot, kind, data)
}

// renderLocked replaces the slot's chart. Destroy strictly precedes create.
func (m *Manager) renderLocked(slot string, kind Kind, data Data) error {
	if h, ok := m.live[slot]; ok {
		h.Destroy()
		delete(m.live, slot)
	}
	h, err := m.renderer.Create(slot, kind, data)
	if err != nil {
		return fmt.Errorf("create chart %q: %w", slot, err)
	}
	m.live[slot] = h
	return nil
}

func (m *Manager) retry(slot string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.pending[slot]
	if !ok {
		return
	}
	if !m.renderer.Ready() {
		job.attempts++
		if job.attempts >= m.maxRetries {
			delete(m.pending, slot)
			slog.Warn("Renderer never became ready, dropping chart render", "slot", slot, "attempts", job.attempts)
			return
		}
		time.AfterFunc(m.retryDelay, func() { m.retry(slot) })
		return
	}
	delete(m.pending, slot)
	if err := m.renderLocked(slot, job.kind, job.data); err != nil {
		slog.Error("Deferred chart render failed", "slot", slot, "error", err)
	}
}

// Destroy tears down the chart in the slot, if any. Idempotent; also cancels
// a parked render for the slot.
func (m *Manager) Destroy(slot string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, slot)
	if h, ok := m.live[slot]; ok {
		h.Destroy()
		delete(m.live, slot)
	}
}

// DestroyAll tears down every tracked chart. Used on full view teardown.
func (m *Manager) DestroyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = make(map[string]*pendingRender)
	for slot, h := range m.live {
		h.Destroy()
		delete(m.live, slot)
	}
}

// Live reports whether a chart currently occupies the slot.
func (m *Manager) Live(slot string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[slot]
	return ok
}

// Count returns the number of live charts.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
