package state

import "sync"

// Store is the single place a session's ClientState is written. Readers get
// snapshots; the dispatch loop is the only writer.
type Store struct {
	mu    sync.RWMutex
	state ClientState
	subs  map[int]chan struct{}
	next  int
}

// NewStore returns a store seeded with initial.
func NewStore(initial ClientState) *Store {
	return &Store{state: initial, subs: make(map[int]chan struct{})}
}

// Snapshot returns the current state. Callers must not modify its slices.
func (s *Store) Snapshot() ClientState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply merges u into the stored state and wakes subscribers. An empty update
// is ignored.
func (s *Store) Apply(u Update) ClientState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Empty() {
		return s.state
	}
	s.state = s.state.Apply(u)
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return s.state
}

// Subscribe returns a channel that receives a value after state changes, and
// a func that stops delivery. Wakeups coalesce: a slow reader sees one signal
// for several changes.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
