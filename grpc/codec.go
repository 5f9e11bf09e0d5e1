// Package tpgrpc connects transaction processors, validator hosts and
// clients over gRPC, using cramberry for deterministic binary
// serialization.
//
// No protobuf code generation is required. The types in
// simplewallet/types are serialized directly via cramberry struct tags.
package tpgrpc

import (
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"google.golang.org/grpc/encoding"
)

const codecName = "cramberry"

// MaxMessageSize bounds every encoded message. It matches the default
// receive limit of grpc-go so oversized messages fail on the sender.
const MaxMessageSize = 4 << 20

var (
	ErrNilMessage      = errors.New("nil message")
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
)

// Codec implements grpc/encoding.Codec over cramberry. It is registered
// under the "cramberry" content subtype, which Dial forces on every call.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("cramberry marshal: %w", ErrNilMessage)
	}
	data, err := cramberry.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cramberry marshal %T: %w", v, err)
	}
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("cramberry marshal %T: %d bytes: %w", v, len(data), ErrMessageTooLarge)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("cramberry unmarshal %T: %d bytes: %w", v, len(data), ErrMessageTooLarge)
	}
	if err := cramberry.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cramberry unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(Codec{})
}
