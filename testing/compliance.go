package tptest

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/types"
)

// RunComplianceSuite runs a standard compliance test suite against a
// handler to verify the behaviour every processor relies on.
//
// The factory function should return a fresh handler for each test.
// payloads is a representative mix of valid and invalid payloads; each
// is applied in order by the same signer.
func RunComplianceSuite(t *testing.T, factory func() simplewallet.Handler, payloads ...[]byte) {
	t.Helper()

	t.Run("valid_metadata", func(t *testing.T) {
		if err := simplewallet.ValidateHandler(factory()); err != nil {
			t.Fatalf("invalid handler metadata: %v", err)
		}
	})

	t.Run("metadata_stable", func(t *testing.T) {
		h1, h2 := factory(), factory()
		if h1.FamilyName() != h2.FamilyName() {
			t.Errorf("family name differs between instances: %q != %q", h1.FamilyName(), h2.FamilyName())
		}
		if fmt.Sprint(h1.FamilyVersions()) != fmt.Sprint(h2.FamilyVersions()) {
			t.Errorf("versions differ between instances: %v != %v", h1.FamilyVersions(), h2.FamilyVersions())
		}
		if fmt.Sprint(h1.Namespaces()) != fmt.Sprint(h2.Namespaces()) {
			t.Errorf("namespaces differ between instances: %v != %v", h1.Namespaces(), h2.Namespaces())
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		h1 := NewHarness(t, factory())
		h2 := NewHarness(t, factory())

		for i, p := range payloads {
			r1 := h1.Apply("signer-a", p)
			r2 := h2.Apply("signer-a", p)
			if r1.Status != r2.Status {
				t.Errorf("payload %d (%q): non-deterministic status: %s != %s", i, p, r1.Status, r2.Status)
			}
		}
		if !sameEntries(h1.State().Snapshot(), h2.State().Snapshot()) {
			t.Error("non-deterministic state after identical transactions")
		}
	})

	t.Run("no_write_on_rejection", func(t *testing.T) {
		h := NewHarness(t, factory())

		for i, p := range payloads {
			before := h.State().Snapshot()
			resp := h.Apply("signer-a", p)
			if resp.OK() {
				continue
			}
			if !sameEntries(before, h.State().Snapshot()) {
				t.Errorf("payload %d (%q): %s response modified state", i, p, resp.Status)
			}
		}
	})

	t.Run("no_internal_errors", func(t *testing.T) {
		h := NewHarness(t, factory())

		for i, p := range payloads {
			resp := h.Apply("signer-a", p)
			if resp.Status == types.StatusInternalError {
				t.Errorf("payload %d (%q): internal error on healthy state: %s", i, p, resp.Message)
			}
		}
	})

	t.Run("unknown_version_rejected", func(t *testing.T) {
		h := NewHarness(t, factory())

		for _, p := range payloads {
			req := h.Request("signer-a", p)
			req.Header.FamilyVersion = "0.0-unregistered"
			if resp := h.Process(req); resp.Status != types.StatusInvalidTransaction {
				t.Fatalf("expected unknown version rejected, got %s", resp.Status)
			}
		}
		if h.State().SetCalls.Load() != 0 {
			t.Error("unknown version reached state")
		}
	})

	t.Run("concurrent_signers", func(t *testing.T) {
		h := NewHarness(t, factory())

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				signer := fmt.Sprintf("signer-%d", i)
				for _, p := range payloads {
					if resp := h.Apply(signer, p); resp.Status == types.StatusInternalError {
						t.Errorf("%s: internal error: %s", signer, resp.Message)
					}
				}
			}(i)
		}
		wg.Wait()
	})

	t.Run("context_id_echoed", func(t *testing.T) {
		h := NewHarness(t, factory())

		for _, p := range payloads {
			req := h.Request("signer-a", p)
			if resp := h.Process(req); resp.ContextID != req.ContextID {
				t.Fatalf("context id not echoed: %q != %q", resp.ContextID, req.ContextID)
			}
		}
	})
}

func sameEntries(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || !bytes.Equal(v, w) {
			return false
		}
	}
	return true
}
