package tpgrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/processor"
	"github.com/blockberries/simplewallet/types"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRegistrationRefused is returned by Serve when the host does
	// not accept one of the processor's families.
	ErrRegistrationRefused = errors.New("registration refused")
	// ErrStateAuthorization is returned by remote state access outside
	// the transaction's declared inputs or outputs.
	ErrStateAuthorization = errors.New("state access not authorized")
	// ErrStaleContext is returned by remote state access after the host
	// has closed the transaction's context.
	ErrStaleContext = errors.New("state context no longer valid")
)

const defaultWorkers = 16

type serveConfig struct {
	logger  hclog.Logger
	workers int
}

// ServeOption configures Serve.
type ServeOption func(*serveConfig)

// WithLogger sets the logger used by the serving loop.
func WithLogger(logger hclog.Logger) ServeOption {
	return func(c *serveConfig) { c.logger = logger }
}

// WithWorkers bounds the number of transactions applied concurrently.
func WithWorkers(n int) ServeOption {
	return func(c *serveConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// Serve registers every handler of proc with the validator behind c
// and applies the transactions it sends until ctx is cancelled or the
// validator closes the stream. proc must already be started.
//
// Serve returns nil after a clean shutdown.
func Serve(ctx context.Context, c *Client, proc *processor.Processor, opts ...ServeOption) error {
	cfg := serveConfig{logger: hclog.NewNullLogger(), workers: defaultWorkers}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.Named("tpgrpc")

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.cc.NewStream(streamCtx, connectStream, fullMethod("Connect"))
	if err != nil {
		return fmt.Errorf("tpgrpc: open stream to %s: %w", c.endpoint, err)
	}

	for _, reg := range proc.Registrations() {
		if err := stream.SendMsg(&ProcessorMessage{Register: &reg}); err != nil {
			return fmt.Errorf("tpgrpc: register %s: %w", reg.FamilyName, err)
		}
		msg := new(HostMessage)
		if err := stream.RecvMsg(msg); err != nil {
			return fmt.Errorf("tpgrpc: register %s: %w", reg.FamilyName, err)
		}
		if msg.Registered == nil {
			return fmt.Errorf("tpgrpc: register %s: unexpected host message", reg.FamilyName)
		}
		if msg.Registered.Status != types.RegisterOK {
			return fmt.Errorf("%w: %s: %s", ErrRegistrationRefused, reg.FamilyName, msg.Registered.Info)
		}
		logger.Info("registered", "family", reg.FamilyName, "endpoint", c.endpoint)
	}

	g, gctx := errgroup.WithContext(streamCtx)
	g.SetLimit(cfg.workers)

	var sendMu sync.Mutex
	send := func(resp types.ProcessResponse) error {
		sendMu.Lock()
		defer sendMu.Unlock()
		return stream.SendMsg(&ProcessorMessage{Response: &resp})
	}

	recvErr := func() error {
		for {
			msg := new(HostMessage)
			if err := stream.RecvMsg(msg); err != nil {
				return err
			}
			if msg.Request == nil {
				logger.Warn("ignoring host message without request")
				continue
			}

			req := msg.Request
			g.Go(func() error {
				st := &remoteState{client: c, contextID: req.ContextID}
				return send(proc.Process(gctx, req, st))
			})
		}
	}()

	_ = stream.CloseSend()
	cancel()
	werr := g.Wait()

	switch {
	case ctx.Err() != nil:
		logger.Info("disconnected", "reason", ctx.Err())
		return nil
	case errors.Is(recvErr, io.EOF):
		logger.Info("validator closed the stream")
		return nil
	case werr != nil:
		return fmt.Errorf("tpgrpc: send response: %w", werr)
	default:
		return fmt.Errorf("tpgrpc: receive: %w", recvErr)
	}
}

// Compile-time interface check.
var _ simplewallet.State = (*remoteState)(nil)

// remoteState reads and writes the host's context for one transaction.
type remoteState struct {
	client    *Client
	contextID string
}

func (s *remoteState) Get(ctx context.Context, address string) ([]byte, bool, error) {
	resp, err := s.client.getState(ctx, &types.GetStateRequest{
		ContextID: s.contextID,
		Addresses: []string{address},
	})
	if err != nil {
		return nil, false, fmt.Errorf("get state: %w", err)
	}
	if err := stateStatusError(resp.Status, resp.Info); err != nil {
		return nil, false, err
	}
	for _, e := range resp.Entries {
		if e.Address == address {
			return e.Data, e.Found, nil
		}
	}
	return nil, false, nil
}

func (s *remoteState) Set(ctx context.Context, address string, value []byte) error {
	resp, err := s.client.setState(ctx, &types.SetStateRequest{
		ContextID: s.contextID,
		Entries:   []types.Entry{{Address: address, Data: value, Found: true}},
	})
	if err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return stateStatusError(resp.Status, resp.Info)
}

func stateStatusError(status types.StateStatus, info string) error {
	switch status {
	case types.StateOK:
		return nil
	case types.StateAuthorizationError:
		return fmt.Errorf("%w: %s", ErrStateAuthorization, info)
	case types.StateContextNotFound:
		return fmt.Errorf("%w: %s", ErrStaleContext, info)
	default:
		return fmt.Errorf("state request failed with status %d: %s", status, info)
	}
}
