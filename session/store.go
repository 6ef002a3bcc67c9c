package session

import (
	"sync"
)

// Listener observes accepted transitions. It runs synchronously after the state has been
// committed and must not call Dispatch on the same Store.
type Listener func(prev, next Session, action Action)

// Store is the state container for a single [Session]. It is constructed explicitly and
// handed to consumers; there is no package-level instance.
//
// Dispatch is safe for concurrent use; transitions are serialized so no two reducers ever
// observe a partially applied update.
type Store struct {
	mu        sync.RWMutex
	state     Session
	listeners map[uint64]Listener
	nextID    uint64

	dispatchMu sync.Mutex
}

// NewStore creates a Store holding initial.
func NewStore(initial Session) *Store {
	return &Store{
		state:     initial.Clone(),
		listeners: make(map[uint64]Listener),
	}
}

// State returns a copy of the current session.
func (s *Store) State() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Dispatch applies a through [Reduce]. On error the state is left unchanged and no listener
// is notified. prev and next are copies and may be retained by the caller.
func (s *Store) Dispatch(a Action) (prev, next Session, err error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	prev = s.state
	next, err = Reduce(prev, a)
	if err != nil {
		s.mu.Unlock()
		return prev.Clone(), prev.Clone(), err
	}
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(prev.Clone(), next.Clone(), a)
	}

	return prev.Clone(), next.Clone(), nil
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	if l == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
