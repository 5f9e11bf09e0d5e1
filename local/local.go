// Package local provides an in-process validator host.
//
// For processors compiled into the same binary as the host, the
// Validator verifies submitted transactions, gives each one an
// isolated state context, runs it through an Executor and commits the
// context only if the transaction was applied, with no serialization
// overhead.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blockberries/simplewallet"
	"github.com/blockberries/simplewallet/processor"
	"github.com/blockberries/simplewallet/signing"
	"github.com/blockberries/simplewallet/state"
	"github.com/blockberries/simplewallet/types"
	"github.com/hashicorp/go-hclog"
)

// Executor applies one transaction against a state context.
// *processor.Processor is the in-process implementation.
type Executor interface {
	Process(ctx context.Context, req *types.ProcessRequest, st simplewallet.State) types.ProcessResponse
}

// Compile-time interface check.
var _ Executor = (*processor.Processor)(nil)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrMissingDependency    = errors.New("unsatisfied dependency")
)

// Validator is an in-process host. Submissions are applied one at a
// time in arrival order; queries may run concurrently with them.
type Validator struct {
	exec    Executor
	manager *state.Manager
	logger  hclog.Logger

	mu        sync.Mutex
	committed map[string]struct{}
}

// New creates a validator applying transactions through exec to
// store. A nil logger discards output.
func New(exec Executor, store state.Store, logger hclog.Logger) *Validator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Validator{
		exec:      exec,
		manager:   state.NewManager(store),
		logger:    logger.Named("validator"),
		committed: make(map[string]struct{}),
	}
}

// Manager returns the context manager, for transports that serve
// state requests from out-of-process processors.
func (v *Validator) Manager() *state.Manager {
	return v.manager
}

// Submit verifies and applies tx. A transaction that fails
// verification or is rejected by its processor yields a non-OK
// response and a nil error; the error is reserved for host failures.
func (v *Validator) Submit(ctx context.Context, tx types.Transaction) (types.SubmitResponse, error) {
	if err := ctx.Err(); err != nil {
		return types.SubmitResponse{}, err
	}

	id, err := signing.CanonicalSignature(tx.HeaderSignature)
	if err != nil {
		v.logger.Debug("transaction refused", "error", err)
		return v.reject(err), nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, dup := v.committed[id]; dup {
		v.logger.Debug("transaction refused", "signature", id, "error", ErrDuplicateTransaction)
		return v.reject(ErrDuplicateTransaction), nil
	}

	header, err := signing.VerifyTransaction(tx)
	if err != nil {
		v.logger.Debug("transaction refused", "error", err)
		return v.reject(err), nil
	}

	if err := v.checkDependencies(header.Dependencies); err != nil {
		v.logger.Debug("transaction refused", "signature", id, "error", err)
		return v.reject(err), nil
	}

	sc := v.manager.Create(header.Inputs, header.Outputs)
	resp := v.exec.Process(ctx, &types.ProcessRequest{
		ContextID: sc.ID(),
		Header:    header,
		Signature: tx.HeaderSignature,
		Payload:   tx.Payload,
	}, sc)

	if !resp.OK() {
		v.manager.Discard(sc.ID())
		v.logger.Debug("transaction not applied",
			"family", header.FamilyName, "status", resp.Status, "message", resp.Message)
		return types.SubmitResponse{
			Status:  resp.Status,
			Message: resp.Message,
			Version: v.manager.Store().Version(),
		}, nil
	}

	version, err := v.manager.Commit(sc.ID())
	if err != nil {
		return types.SubmitResponse{}, fmt.Errorf("commit context %s: %w", sc.ID(), err)
	}
	v.committed[id] = struct{}{}

	v.logger.Debug("transaction committed", "family", header.FamilyName, "version", version)
	return types.SubmitResponse{Status: types.StatusOK, Version: version}, nil
}

// Query reads committed state at address.
func (v *Validator) Query(ctx context.Context, address string) (types.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return types.QueryResult{}, err
	}

	store := v.manager.Store()
	version := store.Version()
	data, found, err := store.Get(address)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("query %s: %w", address, err)
	}
	return types.QueryResult{Address: address, Data: data, Found: found, Version: version}, nil
}

// Close releases the underlying store.
func (v *Validator) Close() error {
	return v.manager.Store().Close()
}

// checkDependencies requires every dependency to be committed. Committed
// transactions are keyed by their canonical signature.
func (v *Validator) checkDependencies(deps []string) error {
	for _, d := range deps {
		id, err := signing.CanonicalSignature(d)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMissingDependency, d, err)
		}
		if _, ok := v.committed[id]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingDependency, d)
		}
	}
	return nil
}

func (v *Validator) reject(err error) types.SubmitResponse {
	return types.SubmitResponse{
		Status:  types.StatusInvalidTransaction,
		Message: err.Error(),
		Version: v.manager.Store().Version(),
	}
}
