// Package state is the host-side global state service: a versioned
// key-value store and the per-transaction contexts through which
// processors read and write it.
//
// Processors never import this package; they see a context only as a
// simplewallet.State.
package state

import (
	"sync"
)

// Store is a versioned key-value store keyed by hex address. Every
// Apply that changes at least one entry advances the version by one.
type Store interface {
	// Get returns the committed value at address.
	Get(address string) ([]byte, bool, error)
	// Apply atomically writes changes and returns the new version.
	Apply(changes map[string][]byte) (uint64, error)
	// Version returns the number of applied change sets.
	Version() uint64
	Close() error
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store.
type MemStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	version uint64
}

// NewMemStore returns an empty in-memory store at version 0.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Get(address string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[address]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemStore) Apply(changes map[string][]byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(changes) == 0 {
		return s.version, nil
	}
	for k, v := range changes {
		s.data[k] = append([]byte(nil), v...)
	}
	s.version++
	return s.version, nil
}

func (s *MemStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of stored addresses.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemStore) Close() error { return nil }
