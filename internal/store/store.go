// Package store is the observable application state container. One Store
// exists per process; every mutation persists the whole state and then
// notifies subscribers synchronously.
package store

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Listener receives a private copy of the state after each change.
type Listener func(AppState)

// Observer is notified of store activity. The metrics package implements it.
type Observer interface {
	Mutation(action string)
	PersistenceFailure(op string)
}

type nopObserver struct{}

func (nopObserver) Mutation(string)           {}
func (nopObserver) PersistenceFailure(string) {}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithThemeApplier sets the side effect run by SetTheme.
func WithThemeApplier(apply func(dark bool)) Option {
	return func(s *Store) {
		s.applyTheme = apply
	}
}

// WithObserver sets the activity observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithPasswordHasher replaces the password hash and verify functions.
func WithPasswordHasher(hash func(string) (string, error), verify func(password, encoded string) bool) Option {
	return func(s *Store) {
		s.hashPassword = hash
		s.verifyPassword = verify
	}
}

// Store holds AppState.
type Store struct {
	mu          sync.Mutex
	state       AppState
	persistence Persistence

	listeners map[uint64]Listener
	nextID    uint64

	logger         *zap.Logger
	observer       Observer
	applyTheme     func(dark bool)
	hashPassword   func(string) (string, error)
	verifyPassword func(password, encoded string) bool
}

// New creates a store hydrated from p. A persisted snapshot is merged over
// the default state; a load failure is logged and the defaults are kept.
func New(p Persistence, opts ...Option) *Store {
	s := &Store{
		state:          DefaultState(),
		persistence:    p,
		listeners:      make(map[uint64]Listener),
		logger:         zap.NewNop(),
		observer:       nopObserver{},
		applyTheme:     func(bool) {},
		hashPassword:   defaultHash,
		verifyPassword: defaultVerify,
	}
	for _, opt := range opts {
		opt(s)
	}

	if p == nil {
		return s
	}
	snapshot, ok, err := p.Load()
	if err != nil {
		s.logger.Warn("failed to load state snapshot", zap.Error(err))
		s.observer.PersistenceFailure("load")
		return s
	}
	if ok {
		s.state = snapshot.clone()
	}
	return s
}

// GetState returns a copy of the current state.
func (s *Store) GetState() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// SetState merges patch into the state.
func (s *Store) SetState(patch Patch) {
	_ = s.commit("set_state", func(st *AppState) error {
		patch.apply(st)
		return nil
	})
}

// Update applies fn to a working copy of the state and stores the result.
func (s *Store) Update(fn func(*AppState)) {
	_ = s.commit("update", func(st *AppState) error {
		fn(st)
		return nil
	})
}

// Subscribe registers l for every subsequent change. The returned function
// removes the subscription.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Select subscribes fn to a projection of the state. The projection is
// recomputed on every change; unchanged values are delivered again.
func Select[T any](s *Store, selector func(AppState) T, fn func(T)) func() {
	return s.Subscribe(func(state AppState) {
		fn(selector(state))
	})
}

// commit runs mutate on a copy of the state. On success the copy replaces the
// state, is persisted, and listeners are notified after the lock is released.
func (s *Store) commit(action string, mutate func(*AppState) error) error {
	s.mu.Lock()
	next := s.state.clone()
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.persist(next)
	listeners := s.orderedListeners()
	s.mu.Unlock()

	s.observer.Mutation(action)
	for _, l := range listeners {
		l(next.clone())
	}
	return nil
}

func (s *Store) persist(state AppState) {
	if s.persistence == nil {
		return
	}
	if err := s.persistence.Save(state); err != nil {
		s.logger.Warn("failed to save state snapshot", zap.Error(err))
		s.observer.PersistenceFailure("save")
	}
}

func (s *Store) orderedListeners() []Listener {
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}
