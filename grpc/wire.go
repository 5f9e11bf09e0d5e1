package tpgrpc

import "github.com/blockberries/simplewallet/types"

// Frames of the Connect stream. Exactly one field is set per message.

// ProcessorMessage flows from a transaction processor to the host:
// first one Register per family, then a Response per request.
type ProcessorMessage struct {
	Register *types.RegisterRequest `cramberry:"1"`
	Response *types.ProcessResponse `cramberry:"2"`
}

// HostMessage flows from the host to a transaction processor: a
// Registered answer per Register, then transaction Requests.
type HostMessage struct {
	Registered *types.RegisterResponse `cramberry:"1"`
	Request    *types.ProcessRequest   `cramberry:"2"`
}
