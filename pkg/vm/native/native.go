// Copyright 2025 Certen Protocol
//
// Native contract VM. Grounded on spec.md §9's design note: "a registry
// indexed by code hash, mapping to a struct of function pointers" as the
// preferred alternative to a global callback slot. Used for the reference
// bank/account contracts in pkg/contracts and in tests, so the router and
// executor can be exercised end-to-end without a real WASM binary.

package native

import (
	"context"
	"fmt"
	"sync"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
)

// EntryPoints is the struct of function pointers a native contract
// registers. Each field corresponds to one entry point in spec.md §4.D's
// entry-point matrix; a nil field means the contract doesn't implement it.
type EntryPoints struct {
	Receive      func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier) ([]byte, error)
	Instantiate  func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error)
	Execute      func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error)
	Migrate      func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error)
	Query        func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error)
	Authenticate func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, tx []byte) ([]byte, error)
	Backrun      func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, tx []byte) ([]byte, error)
	BankExecute  func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error)
	BankQuery    func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error)
	WithholdFee  func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, tx []byte) ([]byte, error)
	FinalizeFee  func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, tx []byte) ([]byte, error)
	CronExecute  func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier) ([]byte, error)
	Reply        func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg, result []byte) ([]byte, error)
}

// Registry maps a code hash to the EntryPoints it was registered under, and
// implements vm.Builder.
type Registry struct {
	mu    sync.RWMutex
	byKey map[types.Hash]EntryPoints
}

// NewRegistry returns an empty native contract registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[types.Hash]EntryPoints)}
}

// Register associates codeHash with ep. Registering the same codeHash twice
// overwrites the previous registration — callers normally register once at
// process startup.
func (r *Registry) Register(codeHash types.Hash, ep EntryPoints) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[codeHash] = ep
}

// Build implements vm.Builder.
func (r *Registry) Build(sw store.ReadWriter, querier vm.Querier, codeHash types.Hash, code []byte) (vm.VM, error) {
	r.mu.RLock()
	ep, ok := r.byKey[codeHash]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("native: no contract registered for code hash %s", codeHash)
	}
	return &instance{store: sw, querier: querier, ep: ep}, nil
}

type instance struct {
	store   store.ReadWriter
	querier vm.Querier
	ep      EntryPoints
}

func (i *instance) CallIn0Out1(ctx context.Context, name string, c *types.Context) ([]byte, error) {
	switch name {
	case "receive":
		if i.ep.Receive == nil {
			return nil, vm.ErrUnknownEntryPoint
		}
		return i.ep.Receive(ctx, c, i.store, i.querier)
	case "cron_execute":
		if i.ep.CronExecute == nil {
			return nil, vm.ErrUnknownEntryPoint
		}
		return i.ep.CronExecute(ctx, c, i.store, i.querier)
	default:
		return nil, vm.ErrIncorrectNumberOfInputs
	}
}

func (i *instance) CallIn1Out1(ctx context.Context, name string, c *types.Context, arg []byte) ([]byte, error) {
	switch name {
	case "instantiate":
		return call1(i.ep.Instantiate, ctx, c, i.store, i.querier, arg)
	case "execute":
		return call1(i.ep.Execute, ctx, c, i.store, i.querier, arg)
	case "migrate":
		return call1(i.ep.Migrate, ctx, c, i.store, i.querier, arg)
	case "query":
		return call1(i.ep.Query, ctx, c, i.store, i.querier, arg)
	case "authenticate":
		return call1(i.ep.Authenticate, ctx, c, i.store, i.querier, arg)
	case "backrun":
		return call1(i.ep.Backrun, ctx, c, i.store, i.querier, arg)
	case "bank_execute":
		return call1(i.ep.BankExecute, ctx, c, i.store, i.querier, arg)
	case "bank_query":
		return call1(i.ep.BankQuery, ctx, c, i.store, i.querier, arg)
	case "withhold_fee":
		return call1(i.ep.WithholdFee, ctx, c, i.store, i.querier, arg)
	case "finalize_fee":
		return call1(i.ep.FinalizeFee, ctx, c, i.store, i.querier, arg)
	default:
		return nil, vm.ErrIncorrectNumberOfInputs
	}
}

func call1(
	fn func(context.Context, *types.Context, store.ReadWriter, vm.Querier, []byte) ([]byte, error),
	ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, arg []byte,
) ([]byte, error) {
	if fn == nil {
		return nil, vm.ErrUnknownEntryPoint
	}
	return fn(ctx, c, s, q, arg)
}

func (i *instance) CallIn2Out1(ctx context.Context, name string, c *types.Context, arg1, arg2 []byte) ([]byte, error) {
	switch name {
	case "reply":
		if i.ep.Reply == nil {
			return nil, vm.ErrUnknownEntryPoint
		}
		return i.ep.Reply(ctx, c, i.store, i.querier, arg1, arg2)
	default:
		return nil, vm.ErrIncorrectNumberOfInputs
	}
}

var _ vm.Builder = (*Registry)(nil)
var _ vm.VM = (*instance)(nil)
