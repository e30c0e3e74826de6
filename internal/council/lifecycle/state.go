// Package lifecycle tracks whether the application is in the foreground.
package lifecycle

import "sync"

// State is a foreground/background flag with change listeners. The zero
// value is not usable; call New.
type State struct {
	mu         sync.Mutex
	foreground bool
	listeners  map[uint64]func(foreground bool)
	nextID     uint64
}

// New returns a State starting in the given mode.
func New(foreground bool) *State {
	return &State{
		foreground: foreground,
		listeners:  make(map[uint64]func(bool)),
	}
}

func (s *State) IsForeground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foreground
}

// SetForeground records the new mode. Listeners are called only on an actual
// transition, outside the lock, in no particular order.
func (s *State) SetForeground(foreground bool) {
	s.mu.Lock()
	if s.foreground == foreground {
		s.mu.Unlock()
		return
	}
	s.foreground = foreground
	fns := make([]func(bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(foreground)
	}
}

// OnChange registers fn for mode transitions and returns a func removing it.
func (s *State) OnChange(fn func(foreground bool)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
