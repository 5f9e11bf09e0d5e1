// Package processor provides the host-facing dispatcher that routes
// transactions to registered handlers, enforces the processor
// lifecycle and turns handler errors into response statuses.
package processor

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// lifecycleState represents a state in the processor lifecycle.
type lifecycleState uint32

const (
	// stateInit: handlers may be added. No transactions are processed.
	stateInit lifecycleState = iota
	// stateServing: registration is frozen. Process may be called
	// concurrently.
	stateServing
	// stateStopped: in-flight transactions have drained. Process
	// answers with an internal error.
	stateStopped
)

func (s lifecycleState) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateServing:
		return "Serving"
	case stateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// LifecycleGuard enforces the processor lifecycle:
// Init → Serving → Stopped.
type LifecycleGuard struct {
	state atomic.Uint32
	// Held shared by every in-flight Process call and exclusively
	// by Stop, so Stop waits for them to drain.
	inflight sync.RWMutex
}

// NewLifecycleGuard creates a guard in the Init state.
func NewLifecycleGuard() *LifecycleGuard {
	g := &LifecycleGuard{}
	g.state.Store(uint32(stateInit))
	return g
}

// State returns the current lifecycle state.
func (g *LifecycleGuard) State() string {
	return lifecycleState(g.state.Load()).String()
}

// CheckConfigurable panics unless the guard is still in Init.
func (g *LifecycleGuard) CheckConfigurable() {
	if state := lifecycleState(g.state.Load()); state != stateInit {
		panic(fmt.Sprintf("processor: handler registration in state %s (expected Init)", state))
	}
}

// Start transitions Init → Serving.
// Panics if not in Init state.
func (g *LifecycleGuard) Start() {
	if !g.state.CompareAndSwap(uint32(stateInit), uint32(stateServing)) {
		panic(fmt.Sprintf("processor: Start called in state %s (expected Init)",
			lifecycleState(g.state.Load())))
	}
}

// AcquireProcess admits one Process call. It returns false once the
// guard is stopped; otherwise the caller must call ReleaseProcess.
// Panics if Start has not been called.
func (g *LifecycleGuard) AcquireProcess() bool {
	g.inflight.RLock()
	switch state := lifecycleState(g.state.Load()); state {
	case stateServing:
		return true
	case stateStopped:
		g.inflight.RUnlock()
		return false
	default:
		g.inflight.RUnlock()
		panic(fmt.Sprintf("processor: Process called in state %s (expected Serving)", state))
	}
}

// ReleaseProcess ends a call admitted by AcquireProcess.
func (g *LifecycleGuard) ReleaseProcess() {
	g.inflight.RUnlock()
}

// Stop waits for in-flight calls and transitions to Stopped.
// Calling Stop more than once is a no-op.
func (g *LifecycleGuard) Stop() {
	g.inflight.Lock()
	g.state.Store(uint32(stateStopped))
	g.inflight.Unlock()
}

// IsServing returns true if the guard is in the Serving state.
func (g *LifecycleGuard) IsServing() bool {
	return lifecycleState(g.state.Load()) == stateServing
}
