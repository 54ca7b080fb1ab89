// Copyright 2025 Certen Protocol
//
// Transaction executor (component F). Grounded move-for-move on
// original_source/crates/app/src/app.rs::run_tx: authenticate → commit the
// authentication overlay unconditionally → fresh messages overlay →
// withhold_fee → each message routed → backrun → finalize_fee → commit.
// Generalizes run_tx by adding the withhold_fee/finalize_fee taxman hooks,
// present in spec.md §4.F but absent from the prototype (SPEC_FULL.md §9.A).

package executor

import (
	"context"
	"encoding/json"

	"github.com/OakenKnight/left-curve/pkg/router"
	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
)

// TxResult is returned for every raw transaction in a block, whether it
// succeeded or failed — a failure never propagates as a Go error, so a bad
// tx from one client never halts the rest of the block.
type TxResult struct {
	Events []types.Event
	Error  string
}

// Executor runs one transaction at a time against a per-tx overlay stacked
// over the block overlay.
type Executor struct {
	Router *router.Router
}

// NewExecutor returns an Executor that loads and routes contract calls
// through r.
func NewExecutor(r *router.Router) *Executor {
	return &Executor{Router: r}
}

// RunTx executes rawTx against blockOverlay, per spec.md §4.F's ten steps.
func (e *Executor) RunTx(ctx context.Context, blockOverlay store.ReadWriter, cfg *types.Config, block types.BlockInfo, chainID string, rawTx []byte) TxResult {
	var tx types.Transaction
	if err := json.Unmarshal(rawTx, &tx); err != nil {
		return TxResult{Error: err.Error()}
	}
	if err := tx.Validate(); err != nil {
		return TxResult{Error: err.Error()}
	}

	// Step 2-4: authenticate in a tx-scoped overlay, commit unconditionally
	// on success (the account's sequence bump must survive later failures).
	txOverlay := store.NewCacheOverlay(blockOverlay)
	authEvent, err := e.callEntry1(ctx, txOverlay, tx.Sender, "authenticate", rawTx, block, chainID)
	if err != nil {
		return TxResult{Error: err.Error()}
	}
	if err := txOverlay.Commit(); err != nil {
		return TxResult{Error: err.Error()}
	}

	events := []types.Event{authEvent}

	// Step 5-10: messages run in a fresh overlay over the now-updated block
	// overlay.
	msgsOverlay := store.NewCacheOverlay(blockOverlay)

	withholdEvent, err := e.callEntry1(ctx, msgsOverlay, cfg.Taxman, "withhold_fee", rawTx, block, chainID)
	if err != nil {
		return TxResult{Events: events, Error: err.Error()}
	}
	events = append(events, withholdEvent)

	for _, msg := range tx.Msgs {
		ev, err := e.Router.Dispatch(ctx, msgsOverlay, cfg, tx.Sender, msg, block, chainID)
		if err != nil {
			return TxResult{Events: events, Error: err.Error()}
		}
		events = append(events, ev)
	}

	backrunEvent, err := e.callEntry1(ctx, msgsOverlay, tx.Sender, "backrun", rawTx, block, chainID)
	switch err {
	case nil:
		events = append(events, backrunEvent)
	case vm.ErrUnknownEntryPoint:
		// backrun is optional per account contract.
	default:
		return TxResult{Events: events, Error: err.Error()}
	}

	finalizeEvent, err := e.callEntry1(ctx, msgsOverlay, cfg.Taxman, "finalize_fee", rawTx, block, chainID)
	if err != nil {
		return TxResult{Events: events, Error: err.Error()}
	}
	events = append(events, finalizeEvent)

	if err := msgsOverlay.Commit(); err != nil {
		return TxResult{Error: err.Error()}
	}

	return TxResult{Events: events}
}

// callEntry1 loads addr's contract code and invokes the named one-argument
// entry point against overlay, returning an Event node for the call tree.
func (e *Executor) callEntry1(ctx context.Context, overlay store.ReadWriter, addr types.Address, name string, arg []byte, block types.BlockInfo, chainID string) (types.Event, error) {
	info, err := loadContractInfo(overlay, addr)
	if err != nil {
		return types.Event{}, err
	}
	code, err := loadCode(overlay, info.CodeHash)
	if err != nil {
		return types.Event{}, err
	}
	contractStore := store.NewPrefixStore(overlay, addr)
	querier := &router.Querier{Root: overlay, Builder: e.Router.Builder, Block: block, ChainID: chainID}
	instance, err := e.Router.Builder.Build(contractStore, querier, info.CodeHash, code)
	if err != nil {
		return types.Event{}, err
	}
	callCtx := &types.Context{
		BlockHeight: block.Height, BlockTimestamp: block.TimestampSecs,
		Sender: &addr, ChainID: chainID, ContractAddress: addr,
	}
	out, err := instance.CallIn1Out1(ctx, name, callCtx, arg)
	if err != nil {
		return types.Event{}, err
	}
	var resp types.Response
	if len(out) > 0 {
		if err := json.Unmarshal(out, &resp); err != nil {
			return types.Event{}, err
		}
	}
	ev := types.NewEvent(name, types.Attr("contract", addr.String()))
	ev.Children = resp.Events
	return ev, nil
}

func loadContractInfo(sw store.ReadWriter, addr types.Address) (*types.ContractInfo, error) {
	raw, err := sw.Read(types.ContractKey(addr))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrContractNotFound
	}
	var info types.ContractInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func loadCode(sw store.ReadWriter, codeHash types.Hash) ([]byte, error) {
	code, err := sw.Read(types.CodeKey(codeHash))
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, ErrContractNotFound
	}
	return code, nil
}
