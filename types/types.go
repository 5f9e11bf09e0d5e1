// Package types defines the data exchanged between a validator host,
// its transaction processors and its clients.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. Transport concerns
// (gRPC codec registration) are handled in the transport packages.
package types

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// TransactionHeader carries the signed metadata of a transaction.
type TransactionHeader struct {
	// Hex-encoded public key of the account that signed the transaction.
	SignerPublicKey string `cramberry:"1"`
	// Hex-encoded public key of the batcher (usually the signer).
	BatcherPublicKey string `cramberry:"2"`
	FamilyName       string `cramberry:"3"`
	FamilyVersion    string `cramberry:"4"`
	// Address prefixes the transaction may read.
	Inputs []string `cramberry:"5"`
	// Address prefixes the transaction may write.
	Outputs []string `cramberry:"6"`
	// Header signatures of transactions that must be applied first.
	Dependencies []string `cramberry:"7"`
	// Hex-encoded SHA-512 of the payload.
	PayloadSha512 string `cramberry:"8"`
	Nonce         string `cramberry:"9"`
}

// Transaction is a signed transaction as submitted by a client.
// Header holds the serialized TransactionHeader; HeaderSignature
// is the hex-encoded signature over those bytes.
type Transaction struct {
	Header          []byte `cramberry:"1"`
	HeaderSignature string `cramberry:"2"`
	Payload         []byte `cramberry:"3"`
}

// EncodeHeader serializes a header for signing and transmission.
func EncodeHeader(h TransactionHeader) ([]byte, error) {
	data, err := cramberry.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode transaction header: %w", err)
	}
	return data, nil
}

// DecodeHeader parses the header bytes of a transaction.
func (t Transaction) DecodeHeader() (TransactionHeader, error) {
	var h TransactionHeader
	if err := cramberry.Unmarshal(t.Header, &h); err != nil {
		return TransactionHeader{}, fmt.Errorf("decode transaction header: %w", err)
	}
	return h, nil
}

// HashPayload returns the lowercase hex SHA-512 digest of payload,
// the form stored in TransactionHeader.PayloadSha512.
func HashPayload(payload []byte) string {
	sum := sha512.Sum512(payload)
	return hex.EncodeToString(sum[:])
}
