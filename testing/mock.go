// Package tptest provides test utilities for transaction handler
// development, including an in-memory state, a configurable mock
// handler, a processing harness, and a handler compliance suite.
package tptest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/types"
	"github.com/hashicorp/go-hclog"
)

// Compile-time interface checks.
var (
	_ simplewallet.State   = (*MemoryState)(nil)
	_ simplewallet.Handler = (*MockHandler)(nil)
)

// MemoryState is a map-backed simplewallet.State. Reads and writes can
// be intercepted through the function fields to inject failures; a
// hook that returns handled=false falls through to the map.
type MemoryState struct {
	mu   sync.Mutex
	data map[string][]byte

	GetFn func(ctx context.Context, address string) (value []byte, found bool, handled bool, err error)
	SetFn func(ctx context.Context, address string, value []byte) (handled bool, err error)

	// Call counters (atomic for concurrent access).
	GetCalls atomic.Int64
	SetCalls atomic.Int64
}

// NewMemoryState returns an empty state.
func NewMemoryState() *MemoryState {
	return &MemoryState{data: make(map[string][]byte)}
}

func (s *MemoryState) Get(ctx context.Context, address string) ([]byte, bool, error) {
	s.GetCalls.Add(1)
	if s.GetFn != nil {
		if v, found, handled, err := s.GetFn(ctx, address); handled {
			return v, found, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[address]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryState) Set(ctx context.Context, address string, value []byte) error {
	s.SetCalls.Add(1)
	if s.SetFn != nil {
		if handled, err := s.SetFn(ctx, address, value); handled {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[address] = append([]byte(nil), value...)
	return nil
}

// Seed stores value at address without counting as a Set.
func (s *MemoryState) Seed(address string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[address] = append([]byte(nil), value...)
}

// Value returns the stored value at address.
func (s *MemoryState) Value(address string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[address]
	return v, ok
}

// Snapshot returns a copy of every stored entry.
func (s *MemoryState) Snapshot() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// Len returns the number of stored entries.
func (s *MemoryState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// MockHandler is a configurable handler for transport and processor
// testing. Unset metadata fields default to family "mock", version
// "1.0" and namespace "000000"; a nil ApplyFn accepts every
// transaction without touching state.
type MockHandler struct {
	Family    string
	Versions  []string
	Namespace string

	ApplyFn func(ctx context.Context, req *types.ProcessRequest, state simplewallet.State) error

	ApplyCalls atomic.Int64
}

func (m *MockHandler) FamilyName() string {
	if m.Family == "" {
		return "mock"
	}
	return m.Family
}

func (m *MockHandler) FamilyVersions() []string {
	if len(m.Versions) == 0 {
		return []string{"1.0"}
	}
	return m.Versions
}

func (m *MockHandler) Namespaces() []string {
	if m.Namespace == "" {
		return []string{"000000"}
	}
	return []string{m.Namespace}
}

func (m *MockHandler) NewApplicator(req *types.ProcessRequest, state simplewallet.State, _ hclog.Logger) simplewallet.Applicator {
	return simplewallet.ApplicatorFunc(func(ctx context.Context) error {
		m.ApplyCalls.Add(1)
		if m.ApplyFn != nil {
			return m.ApplyFn(ctx, req, state)
		}
		return nil
	})
}
