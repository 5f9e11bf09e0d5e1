package tptest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/processor"
	"github.com/blockberries/simplewallet/types"
)

// Harness runs a single handler inside a started processor over a
// MemoryState, so handler tests exercise the same routing, namespace
// confinement and status mapping as a deployed processor.
type Harness struct {
	t       *testing.T
	handler simplewallet.Handler
	proc    *processor.Processor
	state   *MemoryState
	seq     atomic.Uint64
}

// NewHarness registers h with a fresh processor and starts it. The
// processor is stopped when the test finishes.
func NewHarness(t *testing.T, h simplewallet.Handler) *Harness {
	t.Helper()

	p := processor.New(nil, nil)
	if err := p.AddHandler(h); err != nil {
		t.Fatalf("AddHandler failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(p.Stop)

	return &Harness{t: t, handler: h, proc: p, state: NewMemoryState()}
}

// Processor returns the underlying processor for direct access.
func (h *Harness) Processor() *processor.Processor {
	return h.proc
}

// State returns the state transactions are applied to.
func (h *Harness) State() *MemoryState {
	return h.state
}

// Request builds a process request for the handler's first version.
func (h *Harness) Request(signer string, payload []byte) *types.ProcessRequest {
	return &types.ProcessRequest{
		ContextID: fmt.Sprintf("harness-%d", h.seq.Add(1)),
		Header: types.TransactionHeader{
			SignerPublicKey: signer,
			FamilyName:      h.handler.FamilyName(),
			FamilyVersion:   h.handler.FamilyVersions()[0],
			PayloadSha512:   types.HashPayload(payload),
		},
		Payload: payload,
	}
}

// Process applies req to the harness state.
func (h *Harness) Process(req *types.ProcessRequest) types.ProcessResponse {
	return h.proc.Process(context.Background(), req, h.state)
}

// Apply builds and applies a transaction signed by signer.
func (h *Harness) Apply(signer string, payload []byte) types.ProcessResponse {
	return h.Process(h.Request(signer, payload))
}

// MustAccept asserts that the transaction is applied.
func (h *Harness) MustAccept(signer string, payload []byte) {
	h.t.Helper()
	resp := h.Apply(signer, payload)
	if !resp.OK() {
		h.t.Fatalf("expected %q accepted, got %s: %s", payload, resp.Status, resp.Message)
	}
}

// MustReject asserts that the transaction is rejected as invalid.
func (h *Harness) MustReject(signer string, payload []byte) types.ProcessResponse {
	h.t.Helper()
	resp := h.Apply(signer, payload)
	if resp.Status != types.StatusInvalidTransaction {
		h.t.Fatalf("expected %q rejected, got %s: %s", payload, resp.Status, resp.Message)
	}
	return resp
}
