package types

// SubmitResponse is the host's answer to a client submission: the
// processor's status and message, plus the state version the
// transaction was committed at (zero if it was not committed).
type SubmitResponse struct {
	Status  Status `cramberry:"1"`
	Message string `cramberry:"2"`
	Version uint64 `cramberry:"3"`
}

// Committed returns true if the transaction's writes were applied.
func (r SubmitResponse) Committed() bool { return r.Status == StatusOK }

// QueryRequest reads one address of committed state.
type QueryRequest struct {
	Address string `cramberry:"1"`
}

// QueryResult is the committed value at an address.
type QueryResult struct {
	Address string `cramberry:"1"`
	Data    []byte `cramberry:"2"`
	Found   bool   `cramberry:"3"`
	// Version of the state the read was served from.
	Version uint64 `cramberry:"4"`
}
