package local_test

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/blockberries/simplewallet/client"
	"github.com/blockberries/simplewallet/local"
	"github.com/blockberries/simplewallet/processor"
	"github.com/blockberries/simplewallet/signing"
	"github.com/blockberries/simplewallet/state"
	"github.com/blockberries/simplewallet/types"
	"github.com/blockberries/simplewallet/wallet"
	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T, store state.Store) *local.Validator {
	t.Helper()
	p := processor.New(nil, nil)
	require.NoError(t, p.AddHandler(wallet.NewHandler()))
	require.NoError(t, p.Start())
	t.Cleanup(p.Stop)

	v := local.New(p, store, nil)
	t.Cleanup(func() { v.Close() })
	return v
}

func newSigner(t *testing.T) *signing.Signer {
	t.Helper()
	k, err := signing.GeneratePrivateKey()
	require.NoError(t, err)
	return signing.NewSigner(k)
}

func TestValidator_FullCycle(t *testing.T) {
	v := newValidator(t, state.NewMemStore())
	c := client.New(v, newSigner(t))
	ctx := context.Background()

	_, found, err := c.Balance(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	resp, err := c.Deposit(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.Version)

	_, err = c.Deposit(ctx, 50)
	require.NoError(t, err)

	resp, err = c.Withdraw(ctx, 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrNotCommitted))
	assert.Equal(t, types.StatusInvalidTransaction, resp.Status)
	assert.Equal(t, uint64(2), resp.Version, "rejected transactions leave the version alone")

	_, err = c.Withdraw(ctx, 50)
	require.NoError(t, err)

	bal, found, err := c.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(100), bal)
}

func TestValidator_UnknownAccount(t *testing.T) {
	v := newValidator(t, state.NewMemStore())
	c := client.New(v, newSigner(t))

	resp, err := c.Withdraw(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, resp.Message, "unknown account")

	res, err := v.Query(context.Background(), c.Address())
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Zero(t, res.Version)
}

func TestValidator_RefusesBadTransactions(t *testing.T) {
	v := newValidator(t, state.NewMemStore())
	c := client.New(v, newSigner(t))
	ctx := context.Background()

	tx, err := c.Transaction(wallet.Payload{Action: wallet.ActionDeposit, Amount: 5})
	require.NoError(t, err)

	tampered := tx
	tampered.Payload = []byte("deposit,500")
	resp, err := v.Submit(ctx, tampered)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvalidTransaction, resp.Status)

	resp, err = v.Submit(ctx, tx)
	require.NoError(t, err)
	require.True(t, resp.Committed(), resp.Message)

	resp, err = v.Submit(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvalidTransaction, resp.Status)
	assert.Contains(t, resp.Message, local.ErrDuplicateTransaction.Error())

	bal, _, err := c.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), bal)
}

func TestValidator_Dependencies(t *testing.T) {
	v := newValidator(t, state.NewMemStore())
	s := newSigner(t)
	addr := wallet.DeriveAddress(s.PublicKey().Hex())
	ctx := context.Background()

	first, err := signing.SignTransaction(s, types.TransactionHeader{
		FamilyName: wallet.FamilyName, FamilyVersion: wallet.FamilyVersion,
		Inputs: []string{addr}, Outputs: []string{addr}, Nonce: "1",
	}, []byte("deposit,10"))
	require.NoError(t, err)

	second, err := signing.SignTransaction(s, types.TransactionHeader{
		FamilyName: wallet.FamilyName, FamilyVersion: wallet.FamilyVersion,
		Inputs: []string{addr}, Outputs: []string{addr}, Nonce: "2",
		Dependencies: []string{first.HeaderSignature},
	}, []byte("withdraw,10"))
	require.NoError(t, err)

	resp, err := v.Submit(ctx, second)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "unsatisfied dependency")

	resp, err = v.Submit(ctx, first)
	require.NoError(t, err)
	require.True(t, resp.Committed())

	resp, err = v.Submit(ctx, second)
	require.NoError(t, err)
	assert.True(t, resp.Committed(), resp.Message)
}

func TestValidator_UndeclaredOutput(t *testing.T) {
	v := newValidator(t, state.NewMemStore())
	s := newSigner(t)

	tx, err := signing.SignTransaction(s, types.TransactionHeader{
		FamilyName: wallet.FamilyName, FamilyVersion: wallet.FamilyVersion,
		Inputs:  []string{wallet.Namespace()},
		Outputs: []string{"ffffff"},
		Nonce:   "x",
	}, []byte("deposit,1"))
	require.NoError(t, err)

	resp, err := v.Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInternalError, resp.Status)
	assert.Contains(t, resp.Message, "not authorized")
	assert.Zero(t, v.Manager().Len(), "contexts are closed after every submission")
}

func TestValidator_LevelStorePersists(t *testing.T) {
	dir := t.TempDir()
	s := newSigner(t)
	ctx := context.Background()

	store, err := state.OpenLevelStore(dir)
	require.NoError(t, err)
	p := processor.New(nil, nil)
	require.NoError(t, p.AddHandler(wallet.NewHandler()))
	require.NoError(t, p.Start())
	v := local.New(p, store, nil)

	_, err = client.New(v, s).Deposit(ctx, 42)
	require.NoError(t, err)
	require.NoError(t, v.Close())
	p.Stop()

	store, err = state.OpenLevelStore(dir)
	require.NoError(t, err)
	v = newValidator(t, store)

	bal, found, err := client.New(v, s).Balance(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(42), bal)
}

func TestValidator_CancelledContext(t *testing.T) {
	v := newValidator(t, state.NewMemStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Submit(ctx, types.Transaction{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = v.Query(ctx, "aa")
	assert.ErrorIs(t, err, context.Canceled)
}

// flipS re-encodes a compact signature with S replaced by N-S.
func flipS(t *testing.T, sig string) string {
	t.Helper()
	raw, err := hex.DecodeString(sig)
	require.NoError(t, err)

	s := new(big.Int).SetBytes(raw[32:])
	s.Sub(btcec.S256().N, s)
	s.FillBytes(raw[32:])
	return hex.EncodeToString(raw)
}

func TestValidator_ReplayWithAlternateSignatureEncoding(t *testing.T) {
	v := newValidator(t, state.NewMemStore())
	c := client.New(v, newSigner(t))
	ctx := context.Background()

	_, err := c.Deposit(ctx, 100)
	require.NoError(t, err)

	tx, err := c.Transaction(wallet.Payload{Action: wallet.ActionWithdraw, Amount: 40})
	require.NoError(t, err)

	resp, err := v.Submit(ctx, tx)
	require.NoError(t, err)
	require.True(t, resp.Committed(), resp.Message)

	for name, sig := range map[string]string{
		"upper case": strings.ToUpper(tx.HeaderSignature),
		"high S":     flipS(t, tx.HeaderSignature),
	} {
		replay := tx
		replay.HeaderSignature = sig

		resp, err := v.Submit(ctx, replay)
		require.NoError(t, err, name)
		assert.Equal(t, types.StatusInvalidTransaction, resp.Status, name)
		assert.Contains(t, resp.Message, local.ErrDuplicateTransaction.Error(), name)
	}

	bal, _, err := c.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(60), bal)
}

func TestValidator_DependencyMatchesAnyEncoding(t *testing.T) {
	v := newValidator(t, state.NewMemStore())
	s := newSigner(t)
	addr := wallet.DeriveAddress(s.PublicKey().Hex())
	ctx := context.Background()

	first, err := signing.SignTransaction(s, types.TransactionHeader{
		FamilyName: wallet.FamilyName, FamilyVersion: wallet.FamilyVersion,
		Inputs: []string{addr}, Outputs: []string{addr}, Nonce: "1",
	}, []byte("deposit,10"))
	require.NoError(t, err)

	resp, err := v.Submit(ctx, first)
	require.NoError(t, err)
	require.True(t, resp.Committed(), resp.Message)

	second, err := signing.SignTransaction(s, types.TransactionHeader{
		FamilyName: wallet.FamilyName, FamilyVersion: wallet.FamilyVersion,
		Inputs: []string{addr}, Outputs: []string{addr}, Nonce: "2",
		Dependencies: []string{strings.ToUpper(first.HeaderSignature)},
	}, []byte("withdraw,10"))
	require.NoError(t, err)

	resp, err = v.Submit(ctx, second)
	require.NoError(t, err)
	assert.True(t, resp.Committed(), resp.Message)
}
