// Package state owns the data model and enforces the mutate-then-notify
// contract: every mutation goes through Update, which persists the model,
// publishes a change event and notifies every render listener exactly once.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"budgetboard/internal/core"
)

// ErrReentrant is returned when Update is called while a mutation is already
// in flight. Mutators must complete without yielding control and must not
// call Update themselves.
var ErrReentrant = errors.New("store update already in progress")

// Mutator receives exclusive, synchronous, mutable access to the model.
// A non-nil error aborts the update: nothing is persisted and no listener
// is notified.
type Mutator func(m *core.DataModel) error

// Persister saves the model after every successful mutation. Persistence
// failures are logged, not propagated: the mutation already happened and the
// render must still be triggered.
type Persister interface {
	SaveModel(ctx context.Context, m *core.DataModel) error
}

// ChangePublisher broadcasts that the model changed, for out-of-process
// consumers such as the export worker. Best effort.
type ChangePublisher interface {
	PublishModelChanged(ctx context.Context, revision uint64) error
}

// Listener is a render trigger invoked after each successful mutation with
// the new revision. Listeners run synchronously on the updating goroutine,
// after the mutation is fully applied and visible.
type Listener func(revision uint64)

// Store holds the canonical DataModel.
type Store struct {
	mu        sync.Mutex
	updating  atomic.Bool
	model     *core.DataModel
	revision  uint64
	persister Persister
	publisher ChangePublisher
	listeners []Listener
}

// Option configures a Store.
type Option func(*Store)

// WithPersister attaches the persistence collaborator.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithPublisher attaches the change-event publisher.
func WithPublisher(p ChangePublisher) Option {
	return func(s *Store) { s.publisher = p }
}

// New creates a store around the given initial model. The model must not be
// touched by the caller afterwards.
func New(initial *core.DataModel, opts ...Option) *Store {
	if initial == nil {
		initial = core.NewModel()
	}
	s := &Store{model: initial}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers a render listener. Registration order is notification
// order. Subscribe must not be called from inside a mutator.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Revision returns the current model revision.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Snapshot returns a deep copy of the current model for read-only use.
// Snapshot blocks while a mutation is running, so readers never observe a
// half-applied mutator.
func (s *Store) Snapshot() *core.DataModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Clone()
}

// SnapshotWithRevision returns a deep copy of the model together with the
// revision it belongs to, read under one lock acquisition. Callers keying
// caches by revision need this pairing; separate Revision and Snapshot calls
// could interleave with a mutation.
func (s *Store) SnapshotWithRevision() (*core.DataModel, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Clone(), s.revision
}

// Update applies the mutator under the store lock. On success the model is
// persisted, a change event is published and every listener is notified
// exactly once, in that order, before Update returns. A mutator error
// propagates to the caller and skips all three; there is no retry and no
// rollback.
func (s *Store) Update(ctx context.Context, fn Mutator) error {
	// Checked before taking the lock: a reentrant call from inside a mutator
	// would otherwise deadlock on s.mu.
	if s.updating.Load() {
		return ErrReentrant
	}

	s.mu.Lock()
	s.updating.Store(true)
	if err := fn(s.model); err != nil {
		s.updating.Store(false)
		s.mu.Unlock()
		return fmt.Errorf("apply mutation: %w", err)
	}
	s.revision++
	rev := s.revision
	snapshot := s.model.Clone()
	listeners := append([]Listener(nil), s.listeners...)
	s.updating.Store(false)
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.SaveModel(ctx, snapshot); err != nil {
			slog.ErrorContext(ctx, "Model persistence failed", "error", err, "revision", rev)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishModelChanged(ctx, rev); err != nil {
			slog.WarnContext(ctx, "Change event publish failed", "error", err, "revision", rev)
		}
	}
	for _, l := range listeners {
		l(rev)
	}
	return nil
}
