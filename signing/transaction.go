package signing

import (
	"errors"
	"fmt"

	"github.com/blockberries/simplewallet/types"
)

// ErrPayloadMismatch is returned when a payload does not hash to the
// digest recorded in its header.
var ErrPayloadMismatch = errors.New("payload does not match header digest")

// SignTransaction completes header with the signer's public key as
// signer and batcher and with the payload digest, then signs it.
func SignTransaction(s *Signer, header types.TransactionHeader, payload []byte) (types.Transaction, error) {
	pub := s.PublicKey().Hex()
	header.SignerPublicKey = pub
	header.BatcherPublicKey = pub
	header.PayloadSha512 = types.HashPayload(payload)

	raw, err := types.EncodeHeader(header)
	if err != nil {
		return types.Transaction{}, err
	}
	sig, err := s.Sign(raw)
	if err != nil {
		return types.Transaction{}, err
	}
	return types.Transaction{Header: raw, HeaderSignature: sig, Payload: payload}, nil
}

// VerifyTransaction decodes tx's header and checks the payload digest
// and the header signature against the declared signer.
func VerifyTransaction(tx types.Transaction) (types.TransactionHeader, error) {
	header, err := tx.DecodeHeader()
	if err != nil {
		return types.TransactionHeader{}, err
	}
	if types.HashPayload(tx.Payload) != header.PayloadSha512 {
		return types.TransactionHeader{}, ErrPayloadMismatch
	}

	pub, err := ParsePublicKeyHex(header.SignerPublicKey)
	if err != nil {
		return types.TransactionHeader{}, fmt.Errorf("signer: %w", err)
	}
	if err := Verify(tx.HeaderSignature, tx.Header, pub); err != nil {
		return types.TransactionHeader{}, err
	}
	return header, nil
}
