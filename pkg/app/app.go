// Copyright 2025 Certen Protocol
//
// Block processor (component G). Grounded move-for-move on
// original_source/crates/app/src/app.rs's do_init_chain/do_finalize_block/
// do_commit/do_info/do_query_app/do_query_store, generalized with the
// configurable begin/end-blocker and cronjob error policy spec.md §9 leaves
// as an open question (types.HookErrorPolicy), defaulting to fatal.

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/OakenKnight/left-curve/pkg/executor"
	"github.com/OakenKnight/left-curve/pkg/kvdb"
	"github.com/OakenKnight/left-curve/pkg/merkle"
	"github.com/OakenKnight/left-curve/pkg/router"
	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
)

var cronNextRunPrefix = []byte("cron_next_run/")

func cronNextRunKey(addr types.Address) []byte {
	return append(append([]byte{}, cronNextRunPrefix...), addr[:]...)
}

// App drives genesis, block finalization, and queries against a single
// versioned kvdb.Store. It holds no per-block state between calls other
// than what Store itself stages between FlushButNotCommit and Commit.
type App struct {
	store  *kvdb.Store
	router *router.Router
	exec   *executor.Executor
}

// New returns an App reading/writing through s and routing contract calls
// through r.
func New(s *kvdb.Store, r *router.Router) *App {
	return &App{store: s, router: r, exec: executor.NewExecutor(r)}
}

// InitChain executes genesis (spec.md §4.G). block.Height must be 0 (I2).
func (a *App) InitChain(ctx context.Context, chainID string, block types.BlockInfo, appStateBytes []byte) (types.Hash, error) {
	if block.Height != 0 {
		return types.Hash{}, &ErrIncorrectBlockHeight{Expected: 0, Got: block.Height}
	}

	var genesis types.GenesisState
	if err := json.Unmarshal(appStateBytes, &genesis); err != nil {
		return types.Hash{}, fmt.Errorf("app: decoding genesis state: %w", err)
	}

	view := kvdb.NewView(a.store, nil)
	overlay := store.NewCacheOverlay(view)

	if err := overlay.Write(types.KeyChainID, []byte(chainID)); err != nil {
		return types.Hash{}, err
	}
	cfgBytes, err := json.Marshal(genesis.Config)
	if err != nil {
		return types.Hash{}, err
	}
	if err := overlay.Write(types.KeyConfig, cfgBytes); err != nil {
		return types.Hash{}, err
	}
	blockBytes, err := json.Marshal(block)
	if err != nil {
		return types.Hash{}, err
	}
	if err := overlay.Write(types.KeyLastFinalizedBlock, blockBytes); err != nil {
		return types.Hash{}, err
	}

	for i, msg := range genesis.Msgs {
		if _, err := a.router.Dispatch(ctx, overlay, &genesis.Config, types.GenesisSender, msg, block, chainID); err != nil {
			return types.Hash{}, fmt.Errorf("app: genesis message %d: %w", i, err)
		}
	}

	set, removed := overlay.Flatten()
	version, root, err := a.store.FlushAndCommit(set, removed)
	if err != nil {
		return types.Hash{}, err
	}
	if version != 0 {
		panic(fmt.Sprintf("app: genesis committed at version %d, expected 0", version))
	}
	if root == nil {
		panic("app: genesis produced no root hash")
	}
	return types.HashFromBytes(root)
}

// FinalizeBlock runs begin-blockers, every tx, then end-blockers/cronjobs
// against a single block-scoped overlay, per spec.md §4.G. The last
// finalized block pointer is written only after all of that, so a query
// mid-block still sees the previous block (§4.G's key-ordering rule).
func (a *App) FinalizeBlock(ctx context.Context, block types.BlockInfo, rawTxs [][]byte) (types.Hash, []types.Event, []executor.TxResult, error) {
	view := kvdb.NewView(a.store, nil)
	blockOverlay := store.NewCacheOverlay(view)

	cfg, err := loadConfig(blockOverlay)
	if err != nil {
		return types.Hash{}, nil, nil, err
	}
	chainID, err := loadChainID(blockOverlay)
	if err != nil {
		return types.Hash{}, nil, nil, err
	}
	last, err := loadLastFinalizedBlock(blockOverlay)
	if err != nil {
		return types.Hash{}, nil, nil, err
	}
	if block.Height != last.Height+1 {
		return types.Hash{}, nil, nil, &ErrIncorrectBlockHeight{Expected: last.Height + 1, Got: block.Height}
	}

	var events []types.Event

	beginEvents, err := a.runBlockHooks(ctx, blockOverlay, cfg.BeginBlockers, block, chainID, cfg.HookErrorPolicy)
	if err != nil {
		return types.Hash{}, events, nil, err
	}
	events = append(events, beginEvents...)

	txResults := make([]executor.TxResult, len(rawTxs))
	for i, raw := range rawTxs {
		txResults[i] = a.exec.RunTx(ctx, blockOverlay, cfg, block, chainID, raw)
	}

	endEvents, err := a.runBlockHooks(ctx, blockOverlay, cfg.EndBlockers, block, chainID, cfg.HookErrorPolicy)
	if err != nil {
		return types.Hash{}, events, txResults, err
	}
	events = append(events, endEvents...)

	cronEvents, err := a.runCronjobs(ctx, blockOverlay, cfg, block, chainID)
	if err != nil {
		return types.Hash{}, events, txResults, err
	}
	events = append(events, cronEvents...)

	blockBytes, err := json.Marshal(block)
	if err != nil {
		return types.Hash{}, events, txResults, err
	}
	if err := blockOverlay.Write(types.KeyLastFinalizedBlock, blockBytes); err != nil {
		return types.Hash{}, events, txResults, err
	}

	set, removed := blockOverlay.Flatten()
	version, root, err := a.store.FlushButNotCommit(set, removed)
	if err != nil {
		return types.Hash{}, events, txResults, err
	}
	if version != block.Height {
		panic(fmt.Sprintf("app: flushed version %d, expected block height %d", version, block.Height))
	}
	if root == nil {
		panic("app: finalize_block produced no root hash")
	}
	h, err := types.HashFromBytes(root)
	return h, events, txResults, err
}

// Commit persists the version FinalizeBlock staged. Must be called exactly
// once per FinalizeBlock (§6).
func (a *App) Commit() error {
	return a.store.Commit()
}

// Info returns (latest_version, root_at_latest), or (0, ZeroHash) before
// genesis.
func (a *App) Info() (uint64, types.Hash, error) {
	version, ok := a.store.LatestVersion()
	if !ok {
		return 0, types.ZeroHash, nil
	}
	root, err := a.store.RootHash(&version)
	if err != nil {
		return 0, types.Hash{}, err
	}
	if root == nil {
		panic(fmt.Sprintf("app: root hash missing at committed version %d", version))
	}
	h, err := types.HashFromBytes(root)
	return version, h, err
}

// QueryApp dispatches a smart query through the router at a fixed version
// (height == 0 means latest). Smart queries can never be merkle-proved.
func (a *App) QueryApp(ctx context.Context, rawQuery []byte, height uint64, prove bool) (types.QueryResponse, error) {
	if prove {
		return types.QueryResponse{}, ErrProofNotSupported
	}
	version := resolveHeight(height)
	view := kvdb.NewView(a.store, version)

	block, err := loadLastFinalizedBlock(view)
	if err != nil {
		return types.QueryResponse{}, err
	}
	chainID, err := loadChainID(view)
	if err != nil {
		return types.QueryResponse{}, err
	}

	var req types.QueryRequest
	if err := json.Unmarshal(rawQuery, &req); err != nil {
		return types.QueryResponse{}, fmt.Errorf("app: decoding query request: %w", err)
	}

	querier := &router.Querier{Root: view, Builder: a.router.Builder, Block: block, ChainID: chainID}
	return querier.Query(ctx, req)
}

// QueryStore reads key directly at height (0 == latest), optionally with an
// inclusion proof.
func (a *App) QueryStore(key []byte, height uint64, prove bool) ([]byte, *merkle.InclusionProof, error) {
	version := resolveHeight(height)

	var proof *merkle.InclusionProof
	if prove {
		p, err := a.store.Prove(key, version)
		if err != nil {
			return nil, nil, err
		}
		proof = p
	}
	value, err := a.store.Read(key, version)
	if err != nil {
		return nil, nil, err
	}
	return value, proof, nil
}

func resolveHeight(height uint64) *uint64 {
	if height == 0 {
		return nil
	}
	return &height
}

// runBlockHooks invokes cron_execute on each address in addrs (begin- or
// end-blockers), each in its own child overlay, honoring policy on error.
func (a *App) runBlockHooks(ctx context.Context, blockOverlay store.ReadWriter, addrs []types.Address, block types.BlockInfo, chainID string, policy types.HookErrorPolicy) ([]types.Event, error) {
	var events []types.Event
	for _, addr := range addrs {
		child := store.NewCacheOverlay(blockOverlay)
		ev, err := a.runHook(ctx, child, addr, block, chainID)
		if err != nil {
			switch policy {
			case types.PolicyLogAndContinue:
				log.Printf("app: hook %s failed, keeping its partial writes and continuing: %v", addr, err)
				if cerr := child.Commit(); cerr != nil {
					return events, cerr
				}
				continue
			case types.PolicyRevertHookOnly:
				log.Printf("app: hook %s failed, reverting its writes and continuing: %v", addr, err)
				child.Discard()
				continue
			default: // types.PolicyFatal, or unset (defaults to fatal)
				return events, fmt.Errorf("app: hook %s: %w", addr, err)
			}
		}
		if err := child.Commit(); err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// runCronjobs invokes cron_execute on every configured cronjob whose
// schedule is due (next_run <= block timestamp), then advances its
// schedule by its configured duration. Iterates in sorted address order
// for determinism (§5).
func (a *App) runCronjobs(ctx context.Context, blockOverlay store.ReadWriter, cfg *types.Config, block types.BlockInfo, chainID string) ([]types.Event, error) {
	jobs := make(map[types.Address]time.Duration, len(cfg.Cronjobs))
	addrs := make([]types.Address, 0, len(cfg.Cronjobs))
	for _, job := range cfg.Cronjobs {
		jobs[job.Contract] = job.Interval
		addrs = append(addrs, job.Contract)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].String() < addrs[j].String() })

	var events []types.Event
	for _, addr := range addrs {
		dur := jobs[addr]
		nextRun, err := loadCronNextRun(blockOverlay, addr)
		if err != nil {
			return events, err
		}
		if block.TimestampSecs < nextRun {
			continue
		}

		child := store.NewCacheOverlay(blockOverlay)
		ev, err := a.runHook(ctx, child, addr, block, chainID)
		if err != nil {
			switch cfg.HookErrorPolicy {
			case types.PolicyLogAndContinue:
				log.Printf("app: cronjob %s failed, keeping its partial writes and continuing: %v", addr, err)
				if cerr := child.Commit(); cerr != nil {
					return events, cerr
				}
			case types.PolicyRevertHookOnly:
				log.Printf("app: cronjob %s failed, reverting its writes and continuing: %v", addr, err)
				child.Discard()
			default:
				return events, fmt.Errorf("app: cronjob %s: %w", addr, err)
			}
		} else {
			if err := child.Commit(); err != nil {
				return events, err
			}
			events = append(events, ev)
		}

		if err := saveCronNextRun(blockOverlay, addr, block.TimestampSecs+uint64(dur.Seconds())); err != nil {
			return events, err
		}
	}
	return events, nil
}

// runHook invokes the zero-argument cron_execute entry point on addr.
func (a *App) runHook(ctx context.Context, overlay store.ReadWriter, addr types.Address, block types.BlockInfo, chainID string) (types.Event, error) {
	info, err := loadContractInfo(overlay, addr)
	if err != nil {
		return types.Event{}, err
	}
	code, err := loadCode(overlay, info.CodeHash)
	if err != nil {
		return types.Event{}, err
	}
	contractStore := store.NewPrefixStore(overlay, addr)
	querier := &router.Querier{Root: overlay, Builder: a.router.Builder, Block: block, ChainID: chainID}
	instance, err := a.router.Builder.Build(contractStore, querier, info.CodeHash, code)
	if err != nil {
		return types.Event{}, err
	}
	callCtx := &types.Context{
		BlockHeight: block.Height, BlockTimestamp: block.TimestampSecs,
		ChainID: chainID, ContractAddress: addr,
	}
	out, err := instance.CallIn0Out1(ctx, "cron_execute", callCtx)
	if err != nil {
		return types.Event{}, err
	}
	var resp types.Response
	if len(out) > 0 {
		if err := json.Unmarshal(out, &resp); err != nil {
			return types.Event{}, err
		}
	}
	ev := types.NewEvent("cron_execute", types.Attr("contract", addr.String()))
	return ev.WithChildren(resp.Events...), nil
}

func loadChainID(s store.ReadWriter) (string, error) {
	raw, err := s.Read(types.KeyChainID)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func loadConfig(s store.ReadWriter) (*types.Config, error) {
	raw, err := s.Read(types.KeyConfig)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("app: chain not initialized (no config)")
	}
	var cfg types.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadLastFinalizedBlock(s store.ReadWriter) (types.BlockInfo, error) {
	raw, err := s.Read(types.KeyLastFinalizedBlock)
	if err != nil {
		return types.BlockInfo{}, err
	}
	if raw == nil {
		return types.BlockInfo{}, nil
	}
	var block types.BlockInfo
	if err := json.Unmarshal(raw, &block); err != nil {
		return types.BlockInfo{}, err
	}
	return block, nil
}

func loadContractInfo(s store.ReadWriter, addr types.Address) (*types.ContractInfo, error) {
	raw, err := s.Read(types.ContractKey(addr))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("app: contract %s not found", addr)
	}
	var info types.ContractInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func loadCode(s store.ReadWriter, codeHash types.Hash) ([]byte, error) {
	code, err := s.Read(types.CodeKey(codeHash))
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, fmt.Errorf("app: code %s not found", codeHash)
	}
	return code, nil
}

func loadCronNextRun(s store.ReadWriter, addr types.Address) (uint64, error) {
	raw, err := s.Read(cronNextRunKey(addr))
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return beUint64(raw), nil
}

func saveCronNextRun(s store.ReadWriter, addr types.Address, next uint64) error {
	return s.Write(cronNextRunKey(addr), types.BigEndianHeight(next))
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
