package state

import "sync"

// Store holds the current State. Writers are expected to be serialized by
// the caller's event loop; readers may call State from any goroutine.
type Store struct {
	mu    sync.RWMutex
	state State

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

func NewStore(initial State) *Store {
	return &Store{state: initial, subs: map[int]func(State){}}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies a and notifies subscribers with the new state.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	next := Reduce(s.state, a)
	s.state = next
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers fn for every dispatched state and returns a func that
// removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}
