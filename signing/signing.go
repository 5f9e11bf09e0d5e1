// Package signing provides the secp256k1 keys and signatures used to
// authenticate transactions. Signatures are 64-byte compact r||s over
// the SHA-256 digest of the message, hex encoded; public keys are
// 33-byte compressed points, hex encoded.
package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

const (
	privateKeyLength = btcec.PrivKeyBytesLen
	scalarLength     = 32
	signatureLength  = 2 * scalarLength
)

var (
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// halfOrder is N/2. Signatures with S above it are the malleated twin
// of a low-S signature and are refused.
var halfOrder = new(big.Int).Rsh(btcec.S256().N, 1)

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// GeneratePrivateKey creates a random key.
func GeneratePrivateKey() (*PrivateKey, error) {
	k, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: k}, nil
}

// ParsePrivateKeyHex decodes a 32-byte hex private key.
func ParsePrivateKeyHex(s string) (*PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != privateKeyLength {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d", ErrInvalidKey, len(raw), privateKeyLength)
	}

	k, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	if k.D.Sign() == 0 || k.D.Cmp(btcec.S256().N) >= 0 {
		return nil, fmt.Errorf("%w: private key out of range", ErrInvalidKey)
	}
	return &PrivateKey{key: k}, nil
}

// Hex returns the hex encoding of the key.
func (k *PrivateKey) Hex() string {
	return hex.EncodeToString(k.key.Serialize())
}

// PublicKey returns the matching public key.
func (k *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: k.key.PubKey()}
}

// PublicKey is a secp256k1 verification key.
type PublicKey struct {
	key *btcec.PublicKey
}

// ParsePublicKeyHex decodes a hex public key in compressed or
// uncompressed form.
func ParsePublicKeyHex(s string) (*PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	k, err := btcec.ParsePubKey(raw, btcec.S256())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &PublicKey{key: k}, nil
}

// Hex returns the compressed hex encoding of the key.
func (p *PublicKey) Hex() string {
	return hex.EncodeToString(p.key.SerializeCompressed())
}

// Signer signs messages with a private key.
type Signer struct {
	priv *PrivateKey
}

// NewSigner returns a signer for priv.
func NewSigner(priv *PrivateKey) *Signer {
	return &Signer{priv: priv}
}

// PublicKey returns the signer's public key.
func (s *Signer) PublicKey() *PublicKey {
	return s.priv.PublicKey()
}

// Sign returns the hex compact signature of message. Signing is
// deterministic (RFC 6979).
func (s *Signer) Sign(message []byte) (string, error) {
	digest := sha256.Sum256(message)
	sig, err := s.priv.key.Sign(digest[:])
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	out := make([]byte, signatureLength)
	sig.R.FillBytes(out[:scalarLength])
	sig.S.FillBytes(out[scalarLength:])
	return hex.EncodeToString(out), nil
}

// Verify checks signature against message and pub, returning an error
// wrapping ErrInvalidSignature on mismatch. Only the canonical form is
// accepted: lowercase hex with S in the lower half of the curve order,
// so each signed message has exactly one valid signature string.
func Verify(signature string, message []byte, pub *PublicKey) error {
	raw, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(raw) != signatureLength {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidSignature, len(raw), signatureLength)
	}
	if hex.EncodeToString(raw) != signature {
		return fmt.Errorf("%w: not lowercase hex", ErrInvalidSignature)
	}

	sig := &btcec.Signature{
		R: new(big.Int).SetBytes(raw[:scalarLength]),
		S: new(big.Int).SetBytes(raw[scalarLength:]),
	}
	if sig.S.Cmp(halfOrder) > 0 {
		return fmt.Errorf("%w: high S value", ErrInvalidSignature)
	}
	digest := sha256.Sum256(message)
	if !sig.Verify(digest[:], pub.key) {
		return fmt.Errorf("%w: verification failed", ErrInvalidSignature)
	}
	return nil
}

// CanonicalSignature returns the form Verify accepts for signature:
// lowercase hex with a low S value. Two encodings of the same
// signature map to the same string.
func CanonicalSignature(signature string) (string, error) {
	raw, err := hex.DecodeString(signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(raw) != signatureLength {
		return "", fmt.Errorf("%w: %d bytes, want %d", ErrInvalidSignature, len(raw), signatureLength)
	}

	s := new(big.Int).SetBytes(raw[scalarLength:])
	if s.Cmp(halfOrder) > 0 {
		s.Sub(btcec.S256().N, s)
		s.FillBytes(raw[scalarLength:])
	}
	return hex.EncodeToString(raw), nil
}
