// Package store holds process-wide state that can only be changed through
// its own methods and notifies subscribers of every committed change.
package store

import "sync"

// Listener receives a committed state.
type Listener[T any] func(T)

type subscription[T any] struct {
	id int
	fn Listener[T]
}

// Store is an observable value. Listeners run synchronously on the
// goroutine that drains the notification queue, outside the store lock,
// and always observe commits in order. A listener may call back into the
// store; nested commits are delivered after the current batch.
type Store[T any] struct {
	mu         sync.Mutex
	state      T
	subs       []subscription[T]
	nextID     int
	pending    []T
	delivering bool
}

// New creates a Store holding initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{state: initial}
}

// Get returns the current state.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the state and notifies subscribers.
func (s *Store[T]) Set(v T) {
	s.Update(func(T) (T, bool) { return v, true })
}

// Update computes the next state from the current one while holding the
// lock. When fn reports false nothing is committed and nobody is notified.
// It returns the state after the call.
func (s *Store[T]) Update(fn func(T) (T, bool)) T {
	s.mu.Lock()
	next, changed := fn(s.state)
	if !changed {
		cur := s.state
		s.mu.Unlock()
		return cur
	}
	s.state = next
	s.pending = append(s.pending, next)
	if s.delivering {
		s.mu.Unlock()
		return next
	}
	s.delivering = true
	s.mu.Unlock()
	s.deliver()
	return next
}

// deliver drains the notification queue. A panicking listener still
// releases the queue so later commits are delivered.
func (s *Store[T]) deliver() {
	s.mu.Lock()
	locked := true
	defer func() {
		if !locked {
			s.mu.Lock()
		}
		s.delivering = false
		s.mu.Unlock()
	}()
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		subs := make([]subscription[T], len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()
		locked = false
		for _, v := range batch {
			for _, sub := range subs {
				sub.fn(v)
			}
		}
		s.mu.Lock()
		locked = true
	}
}

// Subscribe registers l for future commits and returns a function that
// removes it. Calling the returned function more than once is harmless.
func (s *Store[T]) Subscribe(l Listener[T]) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[T]{id: id, fn: l})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}
