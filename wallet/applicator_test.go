package wallet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/blockberries/simplewallet"
	tptest "github.com/blockberries/simplewallet/testing"
	"github.com/blockberries/simplewallet/types"
	"github.com/blockberries/simplewallet/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balance(t *testing.T, h *tptest.Harness, signer string) (string, bool) {
	t.Helper()
	v, ok := h.State().Value(wallet.DeriveAddress(signer))
	return string(v), ok
}

func TestWallet_Scenario(t *testing.T) {
	h := tptest.NewHarness(t, wallet.NewHandler())

	h.MustAccept("abc", []byte("deposit,100"))
	b, _ := balance(t, h, "abc")
	assert.Equal(t, "100", b)

	h.MustAccept("abc", []byte("deposit,50"))
	b, _ = balance(t, h, "abc")
	assert.Equal(t, "150", b)

	resp := h.MustReject("abc", []byte("withdraw,200"))
	assert.Contains(t, resp.Message, "insufficient funds")
	b, _ = balance(t, h, "abc")
	assert.Equal(t, "150", b)

	h.MustAccept("abc", []byte("withdraw,50"))
	b, _ = balance(t, h, "abc")
	assert.Equal(t, "100", b)

	resp = h.MustReject("xyz", []byte("withdraw,10"))
	assert.Contains(t, resp.Message, "unknown account")
	_, found := balance(t, h, "xyz")
	assert.False(t, found)

	resp = h.MustReject("abc", []byte("transfer,5"))
	assert.Contains(t, resp.Message, "invalid action")

	resp = h.MustReject("abc", []byte("deposit"))
	assert.Contains(t, resp.Message, "malformed instruction")

	assert.Equal(t, 1, h.State().Len())
}

func TestWallet_DepositSums(t *testing.T) {
	h := tptest.NewHarness(t, wallet.NewHandler())

	for _, amt := range []string{"1", "20", "300", "4000", "0"} {
		h.MustAccept("sum", []byte("deposit,"+amt))
	}
	b, _ := balance(t, h, "sum")
	assert.Equal(t, "4321", b)
}

func TestWallet_DepositZeroCreatesAccount(t *testing.T) {
	h := tptest.NewHarness(t, wallet.NewHandler())

	h.MustAccept("z", []byte("deposit,0"))
	b, found := balance(t, h, "z")
	require.True(t, found)
	assert.Equal(t, "0", b)

	h.MustAccept("z", []byte("withdraw,0"))
	h.MustReject("z", []byte("withdraw,1"))
}

func TestWallet_WithdrawEntireBalance(t *testing.T) {
	h := tptest.NewHarness(t, wallet.NewHandler())

	h.MustAccept("all", []byte("deposit,75"))
	h.MustAccept("all", []byte("withdraw,75"))
	b, found := balance(t, h, "all")
	require.True(t, found, "a zero balance is still stored")
	assert.Equal(t, "0", b)
}

func TestWallet_Overflow(t *testing.T) {
	h := tptest.NewHarness(t, wallet.NewHandler())
	addr := wallet.DeriveAddress("rich")
	h.State().Seed(addr, []byte("4294967295"))

	resp := h.MustReject("rich", []byte("deposit,1"))
	assert.Contains(t, resp.Message, "balance overflow")
	b, _ := balance(t, h, "rich")
	assert.Equal(t, "4294967295", b)

	h.MustAccept("rich", []byte("deposit,0"))
	h.MustAccept("rich", []byte("withdraw,4294967295"))
	b, _ = balance(t, h, "rich")
	assert.Equal(t, "0", b)
}

func TestWallet_CorruptState(t *testing.T) {
	for _, stored := range []string{"", "garbage", "-3", "99999999999"} {
		t.Run(stored, func(t *testing.T) {
			h := tptest.NewHarness(t, wallet.NewHandler())
			h.State().Seed(wallet.DeriveAddress("abc"), []byte(stored))

			for _, p := range []string{"deposit,1", "withdraw,0"} {
				resp := h.Apply("abc", []byte(p))
				assert.Equal(t, types.StatusInternalError, resp.Status, "payload %q", p)
				assert.Contains(t, resp.Message, "corrupt state")
			}
			assert.Zero(t, h.State().SetCalls.Load())
		})
	}
}

func TestWallet_StateFailure(t *testing.T) {
	h := tptest.NewHarness(t, wallet.NewHandler())
	h.State().SetFn = func(context.Context, string, []byte) (bool, error) {
		return true, errors.New("validator unreachable")
	}

	resp := h.Apply("abc", []byte("deposit,10"))
	assert.Equal(t, types.StatusInternalError, resp.Status)
	assert.Contains(t, resp.Message, "validator unreachable")
}

func TestWallet_NoWriteOnRejection(t *testing.T) {
	h := tptest.NewHarness(t, wallet.NewHandler())

	for _, p := range []string{"deposit,x", "withdraw,1", "burn,1", "", "deposit,1,2"} {
		h.MustReject("abc", []byte(p))
	}
	assert.Zero(t, h.State().SetCalls.Load())
	assert.Zero(t, h.State().Len())
}

func TestWallet_ParseBeforeDispatch(t *testing.T) {
	h := tptest.NewHarness(t, wallet.NewHandler())

	resp := h.MustReject("abc", []byte("transfer,abc"))
	assert.Contains(t, resp.Message, "malformed instruction")
	assert.Zero(t, h.State().GetCalls.Load())
}

func TestApplicator_ErrorKinds(t *testing.T) {
	state := tptest.NewMemoryState()
	req := &types.ProcessRequest{
		Header:  types.TransactionHeader{SignerPublicKey: "abc"},
		Payload: []byte("withdraw,5"),
	}

	err := wallet.NewApplicator(req, state, nil).Apply(context.Background())
	require.Error(t, err)
	_, invalid := simplewallet.IsInvalidTransaction(err)
	assert.True(t, invalid)
	assert.True(t, errors.Is(err, wallet.ErrUnknownAccount))

	state.Seed(wallet.DeriveAddress("abc"), []byte("oops"))
	err = wallet.NewApplicator(req, state, nil).Apply(context.Background())
	_, internal := simplewallet.IsInternal(err)
	assert.True(t, internal)
	assert.True(t, errors.Is(err, wallet.ErrCorruptState))
}

func TestHandler_Metadata(t *testing.T) {
	h := wallet.NewHandler()

	assert.Equal(t, "simplewallet", h.FamilyName())
	assert.Equal(t, []string{"1.0"}, h.FamilyVersions())
	assert.Equal(t, []string{wallet.Namespace()}, h.Namespaces())
	require.NoError(t, simplewallet.ValidateHandler(h))
}

func TestHandler_Compliance(t *testing.T) {
	tptest.RunComplianceSuite(t,
		func() simplewallet.Handler { return wallet.NewHandler() },
		[]byte("deposit,100"),
		[]byte("withdraw,30"),
		[]byte("withdraw,500"),
		[]byte("transfer,1"),
		[]byte("deposit,"),
		[]byte("deposit,4294967295"),
		[]byte("withdraw,70"),
	)
}
