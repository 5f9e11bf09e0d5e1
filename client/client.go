// Package client builds, signs and submits wallet transactions on
// behalf of one key.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/simplewallet/signing"
	"github.com/blockberries/simplewallet/types"
	"github.com/blockberries/simplewallet/wallet"
	"github.com/google/uuid"
)

// ErrNotCommitted is returned when the host answered but did not apply
// the transaction.
var ErrNotCommitted = errors.New("transaction not committed")

// Submitter is a validator endpoint. It is satisfied by
// *local.Validator and *tpgrpc.Client.
type Submitter interface {
	Submit(ctx context.Context, tx types.Transaction) (types.SubmitResponse, error)
	Query(ctx context.Context, address string) (types.QueryResult, error)
}

// Client operates the wallet of a single signing key.
type Client struct {
	submitter Submitter
	signer    *signing.Signer
	address   string
}

// New returns a client submitting through submitter as signer.
func New(submitter Submitter, signer *signing.Signer) *Client {
	return &Client{
		submitter: submitter,
		signer:    signer,
		address:   wallet.DeriveAddress(signer.PublicKey().Hex()),
	}
}

// Address returns the state address of the client's balance.
func (c *Client) Address() string { return c.address }

// Deposit adds amount to the balance.
func (c *Client) Deposit(ctx context.Context, amount uint32) (types.SubmitResponse, error) {
	return c.send(ctx, wallet.Payload{Action: wallet.ActionDeposit, Amount: amount})
}

// Withdraw removes amount from the balance.
func (c *Client) Withdraw(ctx context.Context, amount uint32) (types.SubmitResponse, error) {
	return c.send(ctx, wallet.Payload{Action: wallet.ActionWithdraw, Amount: amount})
}

// Balance returns the committed balance. The bool is false if the
// account has never received a deposit.
func (c *Client) Balance(ctx context.Context) (uint32, bool, error) {
	res, err := c.submitter.Query(ctx, c.address)
	if err != nil {
		return 0, false, err
	}
	if !res.Found {
		return 0, false, nil
	}

	b, err := wallet.DecodeBalance(res.Data)
	if err != nil {
		return 0, false, fmt.Errorf("balance at %s: %w", c.address, err)
	}
	return b, true, nil
}

// Transaction builds and signs the transaction carrying p.
func (c *Client) Transaction(p wallet.Payload) (types.Transaction, error) {
	return signing.SignTransaction(c.signer, types.TransactionHeader{
		FamilyName:    wallet.FamilyName,
		FamilyVersion: wallet.FamilyVersion,
		Inputs:        []string{c.address},
		Outputs:       []string{c.address},
		Nonce:         uuid.NewString(),
	}, p.Encode())
}

func (c *Client) send(ctx context.Context, p wallet.Payload) (types.SubmitResponse, error) {
	tx, err := c.Transaction(p)
	if err != nil {
		return types.SubmitResponse{}, err
	}

	resp, err := c.submitter.Submit(ctx, tx)
	if err != nil {
		return types.SubmitResponse{}, fmt.Errorf("submit %s: %w", p.Encode(), err)
	}
	if !resp.Committed() {
		return resp, fmt.Errorf("%w: %s: %s", ErrNotCommitted, resp.Status, resp.Message)
	}
	return resp, nil
}
