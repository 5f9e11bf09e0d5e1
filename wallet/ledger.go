package wallet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blockberries/simplewallet"
)

// Ledger reads and writes account balances through a transaction's
// state handle. Balances are stored as canonical decimal text.
type Ledger struct {
	state simplewallet.State
}

// NewLedger returns a ledger backed by state.
func NewLedger(state simplewallet.State) *Ledger {
	return &Ledger{state: state}
}

// Read returns the balance stored at address. The bool is false if no
// balance was ever written there. Stored text that is not a valid
// 32-bit decimal yields an internal error wrapping ErrCorruptState.
func (l *Ledger) Read(ctx context.Context, address string) (uint32, bool, error) {
	if err := checkAddress(address); err != nil {
		return 0, false, err
	}

	data, found, err := l.state.Get(ctx, address)
	if err != nil {
		return 0, false, fmt.Errorf("read balance at %s: %w", address, err)
	}
	if !found {
		return 0, false, nil
	}

	balance, err := DecodeBalance(data)
	if err != nil {
		return 0, false, simplewallet.NewInternalError(
			fmt.Errorf("%w: balance at %s: %v", ErrCorruptState, address, err))
	}
	return balance, true, nil
}

// Write stores balance at address, replacing any previous value.
func (l *Ledger) Write(ctx context.Context, address string, balance uint32) error {
	if err := checkAddress(address); err != nil {
		return err
	}
	if err := l.state.Set(ctx, address, EncodeBalance(balance)); err != nil {
		return fmt.Errorf("write balance at %s: %w", address, err)
	}
	return nil
}

// checkAddress refuses addresses that are not wallet addresses. The
// applicator only derives valid ones, so a failure is internal.
func checkAddress(address string) error {
	if !IsWalletAddress(address) {
		return simplewallet.NewInternalError(fmt.Errorf("%w: %q", ErrInvalidAddress, address))
	}
	return nil
}

// EncodeBalance renders a balance as canonical decimal text.
func EncodeBalance(balance uint32) []byte {
	return []byte(strconv.FormatUint(uint64(balance), 10))
}

// DecodeBalance parses stored balance text.
func DecodeBalance(data []byte) (uint32, error) {
	return parseUint32(string(data))
}
