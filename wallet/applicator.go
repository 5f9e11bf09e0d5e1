package wallet

import (
	"context"
	"fmt"
	"math"

	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/types"
	"github.com/hashicorp/go-hclog"
)

// Compile-time interface check.
var _ simplewallet.Applicator = (*Applicator)(nil)

// Applicator applies one wallet transaction. It performs at most one
// state write, and none when it returns an error.
type Applicator struct {
	req    *types.ProcessRequest
	ledger *Ledger
	logger hclog.Logger
}

// NewApplicator builds the applicator for req. A nil logger discards
// output.
func NewApplicator(req *types.ProcessRequest, state simplewallet.State, logger hclog.Logger) *Applicator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Applicator{
		req:    req,
		ledger: NewLedger(state),
		logger: logger,
	}
}

// Apply decodes the payload and dispatches on its action.
func (a *Applicator) Apply(ctx context.Context) error {
	payload, err := ParsePayload(a.req.Payload)
	if err != nil {
		return simplewallet.NewInvalidTransaction(err)
	}

	signer := a.req.Header.SignerPublicKey
	address := DeriveAddress(signer)
	a.logger.Debug("applying", "action", payload.Action, "amount", payload.Amount, "address", address)

	switch payload.Action {
	case ActionDeposit:
		return a.deposit(ctx, address, payload.Amount)
	case ActionWithdraw:
		return a.withdraw(ctx, signer, address, payload.Amount)
	default:
		return simplewallet.NewInvalidTransaction(
			fmt.Errorf("%w: %q", ErrInvalidAction, payload.Action))
	}
}

func (a *Applicator) deposit(ctx context.Context, address string, amount uint32) error {
	current, _, err := a.ledger.Read(ctx, address)
	if err != nil {
		return err
	}

	updated := uint64(current) + uint64(amount)
	if updated > math.MaxUint32 {
		return simplewallet.NewInvalidTransaction(
			fmt.Errorf("%w: depositing %d onto %d exceeds %d", ErrBalanceOverflow, amount, current, uint32(math.MaxUint32)))
	}

	a.logger.Debug("storing balance", "address", address, "balance", updated)
	return a.ledger.Write(ctx, address, uint32(updated))
}

func (a *Applicator) withdraw(ctx context.Context, signer, address string, amount uint32) error {
	current, found, err := a.ledger.Read(ctx, address)
	if err != nil {
		return err
	}
	if !found {
		return simplewallet.NewInvalidTransaction(
			fmt.Errorf("%w: no balance stored for signer %s", ErrUnknownAccount, signer))
	}
	if amount > current {
		return simplewallet.NewInvalidTransaction(
			fmt.Errorf("%w: withdrawing %d from balance %d", ErrInsufficientFunds, amount, current))
	}

	a.logger.Debug("storing balance", "address", address, "balance", current-amount)
	return a.ledger.Write(ctx, address, current-amount)
}
