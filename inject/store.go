package inject

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

type (
	// slot identifies one binding: the same key may be bound in several private scopes.
	slot struct {
		scope int
		key   Key
	}

	// Store keeps the singleton instances, in the order they were built.
	Store struct {
		mu    sync.RWMutex
		inner map[slot]any
		order []slot
	}
)

func (s slot) String() string {
	return fmt.Sprintf("%s in scope #%d", s.key, s.scope)
}

func NewStore() *Store {
	return &Store{
		inner: make(map[slot]any),
	}
}

func (s *Store) Put(id slot, comp any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.inner[id]; !found {
		s.order = append(s.order, id)
	}
	s.inner[id] = comp
}

func (s *Store) Get(id slot) (comp any, found bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comp, found = s.inner[id]
	return comp, found
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}

// Close closes every stored component implementing io.Closer, last built first.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	closeErrors := make([]error, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		id := s.order[i]
		if closer, ok := s.inner[id].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				closeErrors = append(closeErrors, fmt.Errorf("failed to close component %s:\n\t%w", id, err))
			}
		}
	}
	s.inner = make(map[slot]any)
	s.order = nil

	return errors.Join(closeErrors...)
}
