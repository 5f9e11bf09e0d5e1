package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/blockberries/simplewallet"
	"github.com/google/uuid"
)

var (
	// ErrUnauthorizedAddress is returned when a read falls outside
	// the transaction's inputs or a write outside its outputs.
	ErrUnauthorizedAddress = errors.New("address not authorized")
	// ErrContextNotFound is returned for unknown or finished contexts.
	ErrContextNotFound = errors.New("state context not found")
)

// Compile-time interface check.
var _ simplewallet.State = (*Context)(nil)

// Context is the isolated view of state granted to one transaction.
// Reads see the context's own writes, then committed state. Writes
// stay buffered until the Manager commits the context.
type Context struct {
	id      string
	store   Store
	inputs  []string
	outputs []string

	mu     sync.Mutex
	writes map[string][]byte
}

// ID returns the context identifier.
func (c *Context) ID() string { return c.id }

// Get reads address, which must fall under a declared input prefix.
func (c *Context) Get(_ context.Context, address string) ([]byte, bool, error) {
	if !authorized(address, c.inputs) {
		return nil, false, fmt.Errorf("%w: read %s", ErrUnauthorizedAddress, address)
	}

	c.mu.Lock()
	v, ok := c.writes[address]
	c.mu.Unlock()
	if ok {
		return append([]byte(nil), v...), true, nil
	}
	return c.store.Get(address)
}

// Set buffers a write to address, which must fall under a declared
// output prefix.
func (c *Context) Set(_ context.Context, address string, value []byte) error {
	if !authorized(address, c.outputs) {
		return fmt.Errorf("%w: write %s", ErrUnauthorizedAddress, address)
	}

	c.mu.Lock()
	c.writes[address] = append([]byte(nil), value...)
	c.mu.Unlock()
	return nil
}

// Changes returns a copy of the buffered writes.
func (c *Context) Changes() map[string][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]byte, len(c.writes))
	for k, v := range c.writes {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func authorized(address string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(address, p) {
			return true
		}
	}
	return false
}

// Manager owns the live contexts of a host. Safe for concurrent use.
type Manager struct {
	store Store

	mu       sync.Mutex
	contexts map[string]*Context
}

// NewManager creates a manager over store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		contexts: make(map[string]*Context),
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store { return m.store }

// Create opens a context restricted to the given address prefixes.
func (m *Manager) Create(inputs, outputs []string) *Context {
	c := &Context{
		id:      uuid.NewString(),
		store:   m.store,
		inputs:  append([]string(nil), inputs...),
		outputs: append([]string(nil), outputs...),
		writes:  make(map[string][]byte),
	}

	m.mu.Lock()
	m.contexts[c.id] = c
	m.mu.Unlock()
	return c
}

// Get returns a live context.
func (m *Manager) Get(id string) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contexts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, id)
	}
	return c, nil
}

// Commit applies a context's writes to the store, closes the context
// and returns the resulting store version.
func (m *Manager) Commit(id string) (uint64, error) {
	c, err := m.take(id)
	if err != nil {
		return 0, err
	}
	return m.store.Apply(c.Changes())
}

// Discard closes a context without applying its writes.
func (m *Manager) Discard(id string) {
	_, _ = m.take(id)
}

// Len returns the number of live contexts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contexts)
}

func (m *Manager) take(id string) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contexts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, id)
	}
	delete(m.contexts, id)
	return c, nil
}
