package types

// Entry is a single address/value pair in global state.
type Entry struct {
	Address string `cramberry:"1"`
	Data    []byte `cramberry:"2"`
	// Found is false when a read hit an address that was never written.
	Found bool `cramberry:"3"`
}

// StateStatus reports the result of a state access.
type StateStatus uint8

const (
	StateOK StateStatus = 1
	// StateAuthorizationError means an address fell outside the
	// inputs/outputs declared by the transaction.
	StateAuthorizationError StateStatus = 2
	// StateContextNotFound means the context id is unknown or the
	// context has already been committed or discarded.
	StateContextNotFound StateStatus = 3
)

// GetStateRequest reads addresses within a state context.
type GetStateRequest struct {
	ContextID string   `cramberry:"1"`
	Addresses []string `cramberry:"2"`
}

// GetStateResponse returns one entry per requested address, in order.
type GetStateResponse struct {
	Status  StateStatus `cramberry:"1"`
	Entries []Entry     `cramberry:"2"`
	Info    string      `cramberry:"3"`
}

// SetStateRequest writes entries within a state context.
type SetStateRequest struct {
	ContextID string  `cramberry:"1"`
	Entries   []Entry `cramberry:"2"`
}

// SetStateResponse lists the addresses that were written.
type SetStateResponse struct {
	Status    StateStatus `cramberry:"1"`
	Addresses []string    `cramberry:"2"`
	Info      string      `cramberry:"3"`
}
