package tpgrpc

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/blockberries/simplewallet/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultEndpoint is the validator address processors connect to when
// none is configured.
const DefaultEndpoint = "tcp://validator:4004"

const tcpScheme = "tcp://"

// ParseEndpoint converts "tcp://host:port" (or a bare "host:port")
// into a dial target.
func ParseEndpoint(endpoint string) (string, error) {
	target := endpoint
	if i := strings.Index(endpoint, "://"); i >= 0 {
		if !strings.HasPrefix(endpoint, tcpScheme) {
			return "", fmt.Errorf("endpoint %q: unsupported scheme %q", endpoint, endpoint[:i])
		}
		target = strings.TrimPrefix(endpoint, tcpScheme)
	}

	host, port, err := net.SplitHostPort(target)
	if err != nil {
		return "", fmt.Errorf("endpoint %q: %w", endpoint, err)
	}
	if port == "" {
		return "", fmt.Errorf("endpoint %q: missing port", endpoint)
	}
	return net.JoinHostPort(host, port), nil
}

// Client is a connection to a validator. Clients use Submit and Query;
// transaction processors pass it to Serve.
type Client struct {
	cc       *grpc.ClientConn
	endpoint string
}

// Dial connects to the validator at endpoint. The connection is
// insecure unless opts supply transport credentials.
func Dial(ctx context.Context, endpoint string, opts ...grpc.DialOption) (*Client, error) {
	target, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(Codec{}),
	))

	cc, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("tpgrpc: dial %s: %w", endpoint, err)
	}
	return &Client{cc: cc, endpoint: endpoint}, nil
}

// Endpoint returns the endpoint the client was dialled with.
func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) Close() error {
	return c.cc.Close()
}

// Submit sends a signed transaction and waits for its outcome.
func (c *Client) Submit(ctx context.Context, tx types.Transaction) (types.SubmitResponse, error) {
	resp := new(types.SubmitResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Submit"), &tx, resp); err != nil {
		return types.SubmitResponse{}, err
	}
	return *resp, nil
}

// Query reads committed state at address.
func (c *Client) Query(ctx context.Context, address string) (types.QueryResult, error) {
	resp := new(types.QueryResult)
	if err := c.cc.Invoke(ctx, fullMethod("Query"), &types.QueryRequest{Address: address}, resp); err != nil {
		return types.QueryResult{}, err
	}
	return *resp, nil
}

func (c *Client) getState(ctx context.Context, req *types.GetStateRequest) (*types.GetStateResponse, error) {
	resp := new(types.GetStateResponse)
	if err := c.cc.Invoke(ctx, fullMethod("GetState"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) setState(ctx context.Context, req *types.SetStateRequest) (*types.SetStateResponse, error) {
	resp := new(types.SetStateResponse)
	if err := c.cc.Invoke(ctx, fullMethod("SetState"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
