package simplewallet

import (
	"errors"
	"fmt"
)

// InvalidTransactionError rejects a transaction because of its
// content. The host drops the transaction and continues.
type InvalidTransactionError struct {
	Err error
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("invalid transaction: %v", e.Err)
}

func (e *InvalidTransactionError) Unwrap() error { return e.Err }

// InternalError signals that the processor could not decide the
// transaction: a state-layer inconsistency or a transport failure.
// The transaction is not applied.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// NewInvalidTransaction wraps err as a transaction rejection.
func NewInvalidTransaction(err error) *InvalidTransactionError {
	return &InvalidTransactionError{Err: err}
}

// NewInternalError wraps err as an internal failure.
func NewInternalError(err error) *InternalError {
	return &InternalError{Err: err}
}

// IsInvalidTransaction checks whether err is an InvalidTransactionError
// and returns it.
func IsInvalidTransaction(err error) (*InvalidTransactionError, bool) {
	var e *InvalidTransactionError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsInternal checks whether err is an InternalError and returns it.
func IsInternal(err error) (*InternalError, bool) {
	var e *InternalError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
