// Package simplewallet defines the contract between a transaction
// processor and the validator host that drives it.
//
// A processor registers one or more [Handler] values. For every
// transaction routed to it, the host supplies a [State] handle scoped
// to that transaction and the handler produces an [Applicator] which
// performs the state transition. Rejections are returned as values
// ([InvalidTransactionError], [InternalError]); they never unwind
// across the host boundary.
package simplewallet

import (
	"context"
	"fmt"
	"regexp"

	"github.com/blockberries/simplewallet/types"
	"github.com/hashicorp/go-hclog"
)

// State is the key-value view of global state granted to a single
// transaction. Addresses are lowercase hex strings.
//
// Implementations are provided by the host. They are only valid for
// the lifetime of the transaction they were created for.
type State interface {
	// Get returns the value stored at address. The bool is false if
	// the address has never been written.
	Get(ctx context.Context, address string) ([]byte, bool, error)

	// Set stores value at address, replacing any previous value.
	Set(ctx context.Context, address string, value []byte) error
}

// Applicator applies exactly one transaction. A nil error means the
// state writes it performed should be committed; any error means the
// host must discard them.
type Applicator interface {
	Apply(ctx context.Context) error
}

// Handler describes a transaction family and builds applicators for
// it. Metadata methods must return the same values for the lifetime of
// the handler.
type Handler interface {
	// FamilyName identifies the transaction family.
	FamilyName() string

	// FamilyVersions lists the payload format versions handled.
	FamilyVersions() []string

	// Namespaces lists the address prefixes owned by the family.
	Namespaces() []string

	// NewApplicator returns an applicator for one transaction. logger
	// is scoped to that transaction and must not be retained past
	// Apply.
	NewApplicator(req *types.ProcessRequest, state State, logger hclog.Logger) Applicator
}

// ApplicatorFunc adapts a plain function to the Applicator interface.
type ApplicatorFunc func(ctx context.Context) error

func (f ApplicatorFunc) Apply(ctx context.Context) error { return f(ctx) }

// NamespaceLength is the number of hex characters in a namespace prefix.
const NamespaceLength = 6

var namespacePattern = regexp.MustCompile(`^[0-9a-f]{6}$`)

// ValidateHandler checks the static metadata of a handler.
func ValidateHandler(h Handler) error {
	if h == nil {
		return fmt.Errorf("simplewallet: nil handler")
	}
	return ValidateRegistration(h.FamilyName(), h.FamilyVersions(), h.Namespaces())
}

// ValidateRegistration checks a family advertisement as received by a
// host: a non-empty name, at least one non-empty version and at least
// one well-formed namespace.
func ValidateRegistration(family string, versions, namespaces []string) error {
	if family == "" {
		return fmt.Errorf("simplewallet: handler has empty family name")
	}
	if len(versions) == 0 {
		return fmt.Errorf("simplewallet: family %q declares no versions", family)
	}
	for _, v := range versions {
		if v == "" {
			return fmt.Errorf("simplewallet: family %q declares an empty version", family)
		}
	}
	if len(namespaces) == 0 {
		return fmt.Errorf("simplewallet: family %q declares no namespaces", family)
	}
	for _, ns := range namespaces {
		if !namespacePattern.MatchString(ns) {
			return fmt.Errorf("simplewallet: family %q namespace %q is not %d lowercase hex characters",
				family, ns, NamespaceLength)
		}
	}
	return nil
}
