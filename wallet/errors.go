package wallet

import "errors"

// Rejection reasons. Apply wraps the first five in a
// simplewallet.InvalidTransactionError and the last two in a
// simplewallet.InternalError; match them with errors.Is.
var (
	ErrMalformedInstruction = errors.New("malformed instruction")
	ErrInvalidAction        = errors.New("invalid action")
	ErrUnknownAccount       = errors.New("unknown account")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrBalanceOverflow      = errors.New("balance overflow")
	ErrCorruptState         = errors.New("corrupt state")
	ErrInvalidAddress       = errors.New("invalid wallet address")
)
