package tpgrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/local"
	"github.com/blockberries/simplewallet/state"
	"github.com/blockberries/simplewallet/types"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"google.golang.org/grpc"
)

// ErrProcessorDisconnected is reported for transactions whose
// processor went away before answering.
var ErrProcessorDisconnected = errors.New("transaction processor disconnected")

// Compile-time interface checks.
var (
	_ ValidatorServiceServer = (*ValidatorServer)(nil)
	_ local.Executor         = (*ValidatorServer)(nil)
)

type familyKey struct {
	family  string
	version string
}

// ValidatorServer is a validator host for out-of-process transaction
// processors. Clients submit transactions through it; it routes each
// one to the processor registered for its family and serves that
// processor's state requests from the transaction's context.
type ValidatorServer struct {
	validator *local.Validator
	logger    hclog.Logger

	mu     sync.RWMutex
	routes map[familyKey]*session
}

// NewValidatorServer creates a host over store. A nil logger discards
// output.
func NewValidatorServer(store state.Store, logger hclog.Logger) *ValidatorServer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &ValidatorServer{
		logger: logger.Named("host"),
		routes: make(map[familyKey]*session),
	}
	s.validator = local.New(s, store, logger)
	return s
}

// Register adds the validator service to a gRPC server.
func (s *ValidatorServer) Register(gs *grpc.Server) {
	RegisterValidatorServiceServer(gs, s)
}

// Serve starts a gRPC server on the given listener. The cramberry
// codec is selected by clients through the content subtype.
func (s *ValidatorServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs.Serve(lis)
}

// Validator returns the underlying in-process validator.
func (s *ValidatorServer) Validator() *local.Validator {
	return s.validator
}

// Families returns the "family/version" pairs currently served.
func (s *ValidatorServer) Families() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.routes))
	for k := range s.routes {
		out = append(out, k.family+"/"+k.version)
	}
	return out
}

// --- Processor-facing RPCs ---

// Connect runs one processor session: registrations first, then
// responses to the requests dispatched by Process.
func (s *ValidatorServer) Connect(stream grpc.ServerStream) error {
	sess := &session{
		id:      uuid.NewString(),
		stream:  stream,
		pending: make(map[string]chan types.ProcessResponse),
	}
	logger := s.logger.With("session", sess.id)
	logger.Debug("processor connected")

	defer func() {
		s.unroute(sess)
		sess.close()
		logger.Debug("processor disconnected")
	}()

	for {
		msg := new(ProcessorMessage)
		if err := stream.RecvMsg(msg); err != nil {
			return nil
		}

		switch {
		case msg.Register != nil:
			resp := s.register(sess, *msg.Register)
			if resp.Status == types.RegisterOK {
				logger.Info("family registered",
					"family", msg.Register.FamilyName,
					"versions", strings.Join(msg.Register.Versions, ","))
			} else {
				logger.Warn("registration refused", "family", msg.Register.FamilyName, "reason", resp.Info)
			}
			if err := sess.send(&HostMessage{Registered: &resp}); err != nil {
				return err
			}
		case msg.Response != nil:
			sess.deliver(*msg.Response)
		default:
			logger.Warn("ignoring empty processor message")
		}
	}
}

// GetState serves a processor read within a transaction's context.
func (s *ValidatorServer) GetState(ctx context.Context, req *types.GetStateRequest) (*types.GetStateResponse, error) {
	sc, err := s.validator.Manager().Get(req.ContextID)
	if err != nil {
		return &types.GetStateResponse{Status: types.StateContextNotFound, Info: err.Error()}, nil
	}

	entries := make([]types.Entry, 0, len(req.Addresses))
	for _, addr := range req.Addresses {
		data, found, err := sc.Get(ctx, addr)
		if err != nil {
			if !errors.Is(err, state.ErrUnauthorizedAddress) {
				return nil, err
			}
			return &types.GetStateResponse{Status: types.StateAuthorizationError, Info: err.Error()}, nil
		}
		entries = append(entries, types.Entry{Address: addr, Data: data, Found: found})
	}
	return &types.GetStateResponse{Status: types.StateOK, Entries: entries}, nil
}

// SetState serves a processor write within a transaction's context.
func (s *ValidatorServer) SetState(ctx context.Context, req *types.SetStateRequest) (*types.SetStateResponse, error) {
	sc, err := s.validator.Manager().Get(req.ContextID)
	if err != nil {
		return &types.SetStateResponse{Status: types.StateContextNotFound, Info: err.Error()}, nil
	}

	addrs := make([]string, 0, len(req.Entries))
	for _, e := range req.Entries {
		if err := sc.Set(ctx, e.Address, e.Data); err != nil {
			if !errors.Is(err, state.ErrUnauthorizedAddress) {
				return nil, err
			}
			return &types.SetStateResponse{Status: types.StateAuthorizationError, Info: err.Error()}, nil
		}
		addrs = append(addrs, e.Address)
	}
	return &types.SetStateResponse{Status: types.StateOK, Addresses: addrs}, nil
}

// --- Client-facing RPCs ---

func (s *ValidatorServer) Submit(ctx context.Context, tx *types.Transaction) (*types.SubmitResponse, error) {
	resp, err := s.validator.Submit(ctx, *tx)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *ValidatorServer) Query(ctx context.Context, req *types.QueryRequest) (*types.QueryResult, error) {
	res, err := s.validator.Query(ctx, req.Address)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Process dispatches req to the processor registered for its family
// and waits for the answer. The transaction's context stays open until
// it returns, so the processor can reach it through GetState and
// SetState.
func (s *ValidatorServer) Process(ctx context.Context, req *types.ProcessRequest, _ simplewallet.State) types.ProcessResponse {
	s.mu.RLock()
	sess, ok := s.routes[familyKey{req.Header.FamilyName, req.Header.FamilyVersion}]
	s.mu.RUnlock()

	if !ok {
		return types.ProcessResponse{
			ContextID: req.ContextID,
			Status:    types.StatusInternalError,
			Message: fmt.Sprintf("no transaction processor registered for family %q version %q",
				req.Header.FamilyName, req.Header.FamilyVersion),
		}
	}
	return sess.dispatch(ctx, req)
}

func (s *ValidatorServer) register(sess *session, reg types.RegisterRequest) types.RegisterResponse {
	if err := simplewallet.ValidateRegistration(reg.FamilyName, reg.Versions, reg.Namespaces); err != nil {
		return types.RegisterResponse{Status: types.RegisterError, Info: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range reg.Versions {
		if owner, taken := s.routes[familyKey{reg.FamilyName, v}]; taken && owner != sess {
			return types.RegisterResponse{
				Status: types.RegisterError,
				Info:   fmt.Sprintf("family %s version %s is served by another processor", reg.FamilyName, v),
			}
		}
	}
	for _, v := range reg.Versions {
		s.routes[familyKey{reg.FamilyName, v}] = sess
	}
	return types.RegisterResponse{Status: types.RegisterOK}
}

func (s *ValidatorServer) unroute(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, owner := range s.routes {
		if owner == sess {
			delete(s.routes, k)
		}
	}
}

// session is one connected processor stream.
type session struct {
	id     string
	stream grpc.ServerStream

	sendMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	pending map[string]chan types.ProcessResponse
}

func (s *session) send(msg *HostMessage) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.stream.SendMsg(msg)
}

func (s *session) dispatch(ctx context.Context, req *types.ProcessRequest) types.ProcessResponse {
	ch := make(chan types.ProcessResponse, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return failed(req.ContextID, ErrProcessorDisconnected)
	}
	s.pending[req.ContextID] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, req.ContextID)
		s.mu.Unlock()
	}()

	if err := s.send(&HostMessage{Request: req}); err != nil {
		return failed(req.ContextID, fmt.Errorf("%w: %v", ErrProcessorDisconnected, err))
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return failed(req.ContextID, ErrProcessorDisconnected)
		}
		return resp
	case <-ctx.Done():
		return failed(req.ContextID, ctx.Err())
	}
}

func (s *session) deliver(resp types.ProcessResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.pending[resp.ContextID]; ok {
		ch <- resp
		delete(s.pending, resp.ContextID)
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}

func failed(contextID string, err error) types.ProcessResponse {
	return types.ProcessResponse{
		ContextID: contextID,
		Status:    types.StatusInternalError,
		Message:   err.Error(),
	}
}
