package signing

import (
	"encoding/hex"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	k, err := GeneratePrivateKey()
	require.NoError(t, err)
	s := NewSigner(k)

	msg := []byte("header bytes")
	sig, err := s.Sign(msg)
	require.NoError(t, err)
	assert.Len(t, sig, 128)

	require.NoError(t, Verify(sig, msg, s.PublicKey()))

	again, err := s.Sign(msg)
	require.NoError(t, err)
	assert.Equal(t, sig, again, "signatures are deterministic")

	err = Verify(sig, []byte("other bytes"), s.PublicKey())
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	other, err := GeneratePrivateKey()
	require.NoError(t, err)
	err = Verify(sig, msg, other.PublicKey())
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	for _, bad := range []string{"", "zz", sig[:126], sig + "00"} {
		assert.True(t, errors.Is(Verify(bad, msg, s.PublicKey()), ErrInvalidSignature), "signature %q", bad)
	}
}

func TestKeyHexRoundTrip(t *testing.T) {
	k, err := GeneratePrivateKey()
	require.NoError(t, err)

	parsed, err := ParsePrivateKeyHex(k.Hex())
	require.NoError(t, err)
	assert.Equal(t, k.Hex(), parsed.Hex())
	assert.Equal(t, k.PublicKey().Hex(), parsed.PublicKey().Hex())

	pub := k.PublicKey().Hex()
	assert.Len(t, pub, 66)
	assert.True(t, strings.HasPrefix(pub, "02") || strings.HasPrefix(pub, "03"))

	parsedPub, err := ParsePublicKeyHex(pub)
	require.NoError(t, err)
	assert.Equal(t, pub, parsedPub.Hex())
}

func TestParsePrivateKeyHex_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"not hex",
		"00",
		strings.Repeat("00", 32),
		strings.Repeat("ff", 32),
		strings.Repeat("11", 33),
	}
	for _, in := range inputs {
		_, err := ParsePrivateKeyHex(in)
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q: %v", in, err)
	}

	_, err := ParsePublicKeyHex("02" + strings.Repeat("00", 31))
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "alice.priv")

	k, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, WritePrivateKey(path, k))

	loaded, err := LoadPrivateKey(path)
	require.NoError(t, err)
	assert.Equal(t, k.Hex(), loaded.Hex())

	pub, err := os.ReadFile(path + ".pub")
	require.NoError(t, err)
	assert.Equal(t, k.PublicKey().Hex(), strings.TrimSpace(string(pub)))

	assert.Error(t, WritePrivateKey(path, k), "existing key must not be overwritten")

	_, err = LoadPrivateKey(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

// highS returns the other valid encoding of sig, with S replaced by N-S.
func highS(t *testing.T, sig string) string {
	t.Helper()
	raw, err := hex.DecodeString(sig)
	require.NoError(t, err)

	s := new(big.Int).SetBytes(raw[scalarLength:])
	s.Sub(btcec.S256().N, s)
	s.FillBytes(raw[scalarLength:])
	return hex.EncodeToString(raw)
}

func TestVerify_RejectsNonCanonical(t *testing.T) {
	k, err := GeneratePrivateKey()
	require.NoError(t, err)
	s := NewSigner(k)

	msg := []byte("header bytes")
	sig, err := s.Sign(msg)
	require.NoError(t, err)

	upper := strings.ToUpper(sig)
	twin := highS(t, sig)

	assert.ErrorIs(t, Verify(upper, msg, s.PublicKey()), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(twin, msg, s.PublicKey()), ErrInvalidSignature)

	for _, variant := range []string{sig, upper, twin} {
		canonical, err := CanonicalSignature(variant)
		require.NoError(t, err)
		assert.Equal(t, sig, canonical)
	}

	_, err = CanonicalSignature("zz")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
