package wallet

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Action names a wallet operation. Comparison is case-sensitive.
type Action string

const (
	ActionDeposit  Action = "deposit"
	ActionWithdraw Action = "withdraw"
)

const payloadDelimiter = ","

// Payload is a decoded "<action>,<amount>" instruction.
type Payload struct {
	Action Action
	Amount uint32
}

// ParsePayload decodes a raw instruction. The action token is returned
// verbatim and is not checked against the known actions. The amount
// token must consist only of decimal digits and fit in 32 bits.
func ParsePayload(data []byte) (Payload, error) {
	if !utf8.Valid(data) {
		return Payload{}, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedInstruction)
	}

	tokens := strings.Split(string(data), payloadDelimiter)
	if len(tokens) != 2 {
		return Payload{}, fmt.Errorf("%w: expected 2 comma-separated fields, got %d",
			ErrMalformedInstruction, len(tokens))
	}

	amount, err := parseUint32(tokens[1])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: amount: %v", ErrMalformedInstruction, err)
	}

	return Payload{Action: Action(tokens[0]), Amount: amount}, nil
}

// Encode renders the payload in wire form.
func (p Payload) Encode() []byte {
	return []byte(string(p.Action) + payloadDelimiter + strconv.FormatUint(uint64(p.Amount), 10))
}

// parseUint32 accepts only a non-empty run of ASCII digits. Leading
// zeros are allowed.
func parseUint32(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%q is not an unsigned decimal integer", s)
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q does not fit in 32 bits", s)
	}
	return uint32(v), nil
}
