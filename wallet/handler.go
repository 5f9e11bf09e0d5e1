// Package wallet implements the simplewallet transaction family: an
// account balance per signer, changed by "deposit,<n>" and
// "withdraw,<n>" transactions.
//
// Balances live at DeriveAddress(signer) and are stored as decimal
// text of an unsigned 32-bit integer.
package wallet

import (
	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/types"
	"github.com/hashicorp/go-hclog"
)

const (
	// FamilyName identifies the transaction family and seeds its
	// namespace.
	FamilyName = "simplewallet"
	// FamilyVersion is the only supported payload format.
	FamilyVersion = "1.0"
)

// Compile-time interface check.
var _ simplewallet.Handler = (*Handler)(nil)

// Handler advertises the wallet family and builds its applicators.
// It holds no mutable state and is safe for concurrent use.
type Handler struct{}

// NewHandler returns the wallet handler.
func NewHandler() *Handler { return &Handler{} }

func (*Handler) FamilyName() string { return FamilyName }

func (*Handler) FamilyVersions() []string { return []string{FamilyVersion} }

func (*Handler) Namespaces() []string { return []string{Namespace()} }

func (*Handler) NewApplicator(req *types.ProcessRequest, state simplewallet.State, logger hclog.Logger) simplewallet.Applicator {
	return NewApplicator(req, state, logger)
}
