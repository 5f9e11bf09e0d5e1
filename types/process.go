package types

// Status is the outcome of processing one transaction.
type Status uint8

const (
	// StatusOK means the transaction was applied; its writes may be
	// committed.
	StatusOK Status = 1
	// StatusInvalidTransaction means the transaction was rejected
	// because of its content. Its writes are discarded.
	StatusInvalidTransaction Status = 2
	// StatusInternalError means the processor could not decide the
	// transaction. Its writes are discarded.
	StatusInternalError Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInvalidTransaction:
		return "InvalidTransaction"
	case StatusInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProcessRequest asks a processor to apply one transaction.
type ProcessRequest struct {
	// Identifies the host-side state context for this transaction.
	ContextID string            `cramberry:"1"`
	Header    TransactionHeader `cramberry:"2"`
	Signature string            `cramberry:"3"`
	Payload   []byte            `cramberry:"4"`
}

// ProcessResponse is the processor's verdict on a ProcessRequest.
type ProcessResponse struct {
	ContextID string `cramberry:"1"`
	Status    Status `cramberry:"2"`
	// Human-readable reason for a rejection (non-deterministic).
	Message string `cramberry:"3"`
	// Application-defined data (deterministic).
	ExtendedData []byte `cramberry:"4"`
}

// OK returns true if the transaction was applied.
func (r ProcessResponse) OK() bool { return r.Status == StatusOK }
