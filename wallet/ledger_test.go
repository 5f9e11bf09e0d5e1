package wallet

import (
	"context"
	"strings"
	"testing"

	"github.com/blockberries/simplewallet"
	tptest "github.com/blockberries/simplewallet/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_ReadWrite(t *testing.T) {
	st := tptest.NewMemoryState()
	l := NewLedger(st)
	ctx := context.Background()
	addr := DeriveAddress("02abc")

	_, found, err := l.Read(ctx, addr)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, l.Write(ctx, addr, 42))

	v, ok := st.Value(addr)
	require.True(t, ok)
	assert.Equal(t, "42", string(v))

	balance, found, err := l.Read(ctx, addr)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(42), balance)
}

func TestLedger_RefusesForeignAddresses(t *testing.T) {
	st := tptest.NewMemoryState()
	l := NewLedger(st)
	ctx := context.Background()

	for _, addr := range []string{
		"",
		Namespace(),
		"000000" + DeriveAddress("x")[namespaceLength:],
		strings.ToUpper(DeriveAddress("x")),
	} {
		_, _, err := l.Read(ctx, addr)
		assert.ErrorIs(t, err, ErrInvalidAddress, "read %q", addr)
		_, internal := simplewallet.IsInternal(err)
		assert.True(t, internal)

		err = l.Write(ctx, addr, 1)
		assert.ErrorIs(t, err, ErrInvalidAddress, "write %q", addr)
	}

	assert.Zero(t, st.Len())
	assert.Zero(t, st.GetCalls.Load())
}
