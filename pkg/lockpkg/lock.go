// Package lockpkg provides mutual exclusion keyed by an arbitrary string.
//
// Callers waiting for the same key are admitted in arrival order. Callers
// holding different keys never block each other.
package lockpkg

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Serializer hands out exclusive access per key.
//
// The zero value is not usable, create it with New.
type Serializer struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// entry is removed once no holder and no waiter reference it.
type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// New returns an empty Serializer.
func New() *Serializer {
	return &Serializer{entries: make(map[string]*entry)}
}

// Lock blocks until the caller holds key or ctx is done.
//
// On success the returned func must be called exactly once to release the key,
// which hands it to the longest waiting caller. When ctx ends first, Lock
// returns ctx.Err() and leaves the queue of other waiters untouched.
func (s *Serializer) Lock(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		s.entries[key] = e
	}
	e.refs++

	s.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		s.unref(key, e)
		return nil, err
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			e.sem.Release(1)
			s.unref(key, e)
		})
	}, nil
}

// Do runs fn while holding key.
//
// The key is released on every exit path of fn, including panics.
func (s *Serializer) Do(ctx context.Context, key string, fn func() error) error {
	unlock, err := s.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	return fn()
}

// Len returns the number of keys that are currently held or waited on.
func (s *Serializer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Serializer) unref(key string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(s.entries, key)
	}
}
