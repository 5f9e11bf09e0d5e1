package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/types"
	"github.com/hashicorp/go-hclog"
)

// ErrOutsideNamespace is returned (wrapped in an InternalError) when a
// handler touches an address outside the namespaces it advertised.
var ErrOutsideNamespace = errors.New("address outside handler namespaces")

type routeKey struct {
	family  string
	version string
}

// Processor wraps registered handlers with lifecycle enforcement and
// routing. Transports deliver transactions exclusively through
// Process.
type Processor struct {
	logger  hclog.Logger
	metrics *Metrics
	guard   *LifecycleGuard

	mu       sync.RWMutex
	routes   map[routeKey]simplewallet.Handler
	handlers []simplewallet.Handler
}

// New creates a processor with no handlers. A nil logger discards
// output; nil metrics are replaced by NilMetrics.
func New(logger hclog.Logger, metrics *Metrics) *Processor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if metrics == nil {
		metrics = NilMetrics()
	}
	return &Processor{
		logger:  logger,
		metrics: metrics,
		guard:   NewLifecycleGuard(),
		routes:  make(map[routeKey]simplewallet.Handler),
	}
}

// AddHandler registers h for every version it declares.
// Panics if called after Start.
func (p *Processor) AddHandler(h simplewallet.Handler) error {
	p.guard.CheckConfigurable()

	if err := simplewallet.ValidateHandler(h); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, v := range h.FamilyVersions() {
		if _, dup := p.routes[routeKey{h.FamilyName(), v}]; dup {
			return fmt.Errorf("processor: family %s version %s already registered", h.FamilyName(), v)
		}
	}
	for _, v := range h.FamilyVersions() {
		p.routes[routeKey{h.FamilyName(), v}] = h
	}
	p.handlers = append(p.handlers, h)

	p.logger.Info("handler added",
		"family", h.FamilyName(),
		"versions", strings.Join(h.FamilyVersions(), ","),
		"namespaces", strings.Join(h.Namespaces(), ","))
	return nil
}

// Registrations returns the registration advertised for each handler,
// in the order they were added.
func (p *Processor) Registrations() []types.RegisterRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()

	regs := make([]types.RegisterRequest, 0, len(p.handlers))
	for _, h := range p.handlers {
		regs = append(regs, types.RegisterRequest{
			FamilyName: h.FamilyName(),
			Versions:   append([]string(nil), h.FamilyVersions()...),
			Namespaces: append([]string(nil), h.Namespaces()...),
		})
	}
	return regs
}

// Start freezes registration and enables Process.
func (p *Processor) Start() error {
	p.mu.RLock()
	n := len(p.handlers)
	p.mu.RUnlock()

	if n == 0 {
		return fmt.Errorf("processor: no handlers registered")
	}
	p.guard.Start()
	p.logger.Debug("processor serving", "handlers", n)
	return nil
}

// Stop waits for in-flight transactions and refuses new ones.
func (p *Processor) Stop() {
	p.guard.Stop()
	p.logger.Debug("processor stopped")
}

// State returns the lifecycle state name.
func (p *Processor) State() string {
	return p.guard.State()
}

// Process applies one transaction through the handler registered for
// its family and version. It is safe for concurrent use; state is the
// only thing shared between calls.
func (p *Processor) Process(ctx context.Context, req *types.ProcessRequest, state simplewallet.State) types.ProcessResponse {
	if !p.guard.AcquireProcess() {
		return types.ProcessResponse{
			ContextID: req.ContextID,
			Status:    types.StatusInternalError,
			Message:   "processor stopped",
		}
	}
	defer p.guard.ReleaseProcess()

	family := req.Header.FamilyName
	start := time.Now()

	h, ok := p.route(family, req.Header.FamilyVersion)
	if !ok {
		resp := types.ProcessResponse{
			ContextID: req.ContextID,
			Status:    types.StatusInvalidTransaction,
			Message:   fmt.Sprintf("no handler for family %q version %q", family, req.Header.FamilyVersion),
		}
		p.metrics.ObserveProcessed(family, resp.Status, time.Since(start))
		return resp
	}

	logger := p.logger.With(
		"context_id", req.ContextID,
		"family", family,
		"signer", req.Header.SignerPublicKey,
	)
	guarded := &namespacedState{state: state, namespaces: h.Namespaces()}

	err := p.apply(ctx, h, req, guarded, logger)
	resp := responseFor(req.ContextID, err)

	switch resp.Status {
	case types.StatusOK:
		logger.Debug("transaction applied")
	case types.StatusInvalidTransaction:
		logger.Debug("transaction rejected", "reason", resp.Message)
	default:
		logger.Error("transaction failed", "error", resp.Message)
	}

	p.metrics.ObserveProcessed(family, resp.Status, time.Since(start))
	return resp
}

func (p *Processor) route(family, version string) (simplewallet.Handler, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.routes[routeKey{family, version}]
	return h, ok
}

// apply runs the applicator, converting a panic into an internal error
// so it never crosses the host boundary.
func (p *Processor) apply(ctx context.Context, h simplewallet.Handler, req *types.ProcessRequest,
	state simplewallet.State, logger hclog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = simplewallet.NewInternalError(fmt.Errorf("applicator panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return simplewallet.NewInternalError(err)
	}
	return h.NewApplicator(req, state, logger).Apply(ctx)
}

// responseFor maps an Apply result onto the wire status. Errors that
// are not explicit rejections are treated as internal failures.
func responseFor(contextID string, err error) types.ProcessResponse {
	resp := types.ProcessResponse{ContextID: contextID, Status: types.StatusOK}
	if err == nil {
		return resp
	}

	resp.Message = err.Error()
	if _, ok := simplewallet.IsInvalidTransaction(err); ok {
		resp.Status = types.StatusInvalidTransaction
	} else {
		resp.Status = types.StatusInternalError
	}
	return resp
}

// namespacedState confines a handler to its advertised namespaces.
type namespacedState struct {
	state      simplewallet.State
	namespaces []string
}

func (s *namespacedState) Get(ctx context.Context, address string) ([]byte, bool, error) {
	if err := s.check(address); err != nil {
		return nil, false, err
	}
	return s.state.Get(ctx, address)
}

func (s *namespacedState) Set(ctx context.Context, address string, value []byte) error {
	if err := s.check(address); err != nil {
		return err
	}
	return s.state.Set(ctx, address, value)
}

func (s *namespacedState) check(address string) error {
	for _, ns := range s.namespaces {
		if strings.HasPrefix(address, ns) {
			return nil
		}
	}
	return simplewallet.NewInternalError(fmt.Errorf("%w: %s", ErrOutsideNamespace, address))
}
