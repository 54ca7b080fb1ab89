// Copyright 2025 Certen Protocol
//
// ABCI adapter (component H). Grounded on pkg/consensus/abci_validator.go's
// ValidatorApp: a single RWMutex-guarded struct implementing
// abcitypes.Application, the same emoji-prefixed log.Printf diagnostic
// style, and the same ABCI++ pass-through stubs (PrepareProposal returns
// txs unchanged, ProcessProposal accepts/rejects on malformed JSON,
// ExtendVote/VerifyVoteExtension no-op accept, snapshot RPCs no-op/ABORT).

package abci

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/google/uuid"

	"github.com/OakenKnight/left-curve/pkg/app"
	"github.com/OakenKnight/left-curve/pkg/types"
)

// Adapter wraps an *app.App in the abcitypes.Application interface CometBFT
// drives consensus against. All write-path methods (InitChain,
// FinalizeBlock, Commit) share a single mutex with the read path (Query,
// Info) since app.App itself assumes single-writer access.
type Adapter struct {
	logger *log.Logger
	a      *app.App
	mu     sync.RWMutex

	chainID string
}

var _ abcitypes.Application = (*Adapter)(nil)

// NewAdapter returns an Adapter driving a against CometBFT.
func NewAdapter(a *app.App) *Adapter {
	return &Adapter{
		logger: log.New(log.Writer(), "[Adapter] ", log.LstdFlags),
		a:      a,
	}
}

// Info reports the latest committed height and app hash, so CometBFT can
// decide whether to replay blocks after a restart.
func (ad *Adapter) Info(ctx context.Context, req *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	ad.mu.RLock()
	defer ad.mu.RUnlock()

	version, root, err := ad.a.Info()
	if err != nil {
		return nil, fmt.Errorf("abci: info: %w", err)
	}
	ad.logger.Printf("📋 Info() called - height: %d, appHash: %x", version, root.Bytes())

	return &abcitypes.ResponseInfo{
		Data:             "left-curve",
		Version:          "1.0.0",
		AppVersion:       1,
		LastBlockHeight:  int64(version),
		LastBlockAppHash: root.Bytes(),
	}, nil
}

// InitChain runs genesis. Bound to a write lock since it mutates the store.
func (ad *Adapter) InitChain(ctx context.Context, req *abcitypes.RequestInitChain) (*abcitypes.ResponseInitChain, error) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	ad.chainID = req.ChainId
	ad.logger.Printf("🚀 InitChain: chain %s", req.ChainId)

	block := types.BlockInfo{Height: 0, TimestampSecs: uint64(req.Time.Unix())}
	root, err := ad.a.InitChain(ctx, req.ChainId, block, req.AppStateBytes)
	if err != nil {
		return nil, fmt.Errorf("abci: init_chain: %w", err)
	}

	return &abcitypes.ResponseInitChain{AppHash: root.Bytes()}, nil
}

// CheckTx decodes the tx and checks that each message is well-formed
// (Transaction.Validate); it verifies no signature and reads no state. Full
// validation (including signature verification) happens in authenticate
// during FinalizeBlock, per spec.md §4.H's "best-effort" framing of the
// mempool gate.
func (ad *Adapter) CheckTx(ctx context.Context, req *abcitypes.RequestCheckTx) (*abcitypes.ResponseCheckTx, error) {
	reqID := uuid.NewString()[:8]

	var tx types.Transaction
	if err := json.Unmarshal(req.Tx, &tx); err != nil {
		return &abcitypes.ResponseCheckTx{Code: 1, Log: "invalid transaction JSON: " + err.Error()}, nil
	}
	if err := tx.Validate(); err != nil {
		return &abcitypes.ResponseCheckTx{Code: 2, Log: "transaction failed validation: " + err.Error()}, nil
	}

	ad.logger.Printf("✅ CheckTx[%s]: sender %s, %d msgs", reqID, tx.Sender, len(tx.Msgs))
	return &abcitypes.ResponseCheckTx{Code: 0, GasWanted: 1, GasUsed: 1, Log: "accepted"}, nil
}

// FinalizeBlock runs begin-blockers, every tx, and end-blockers/cronjobs
// against a single block overlay, staging (but not yet persisting) the
// resulting version.
func (ad *Adapter) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	block := types.BlockInfo{
		Height:        uint64(req.Height),
		TimestampSecs: uint64(req.Time.Unix()),
		Hash:          blockHash(req.Hash),
	}

	ad.logger.Printf("🚀 FinalizeBlock: height %d, %d txs", block.Height, len(req.Txs))

	root, events, results, err := ad.a.FinalizeBlock(ctx, block, req.Txs)
	if err != nil {
		return nil, fmt.Errorf("abci: finalize_block: %w", err)
	}

	txResults := make([]*abcitypes.ExecTxResult, len(results))
	for i, r := range results {
		code := uint32(0)
		if r.Error != "" {
			code = 1
		}
		txResults[i] = &abcitypes.ExecTxResult{
			Code:   code,
			Log:    r.Error,
			Events: flattenEvents(r.Events),
		}
	}

	ad.logger.Printf("🔄 Finalized block %d, appHash %x", block.Height, root.Bytes())

	return &abcitypes.ResponseFinalizeBlock{
		TxResults: txResults,
		Events:    flattenEvents(events),
		AppHash:   root.Bytes(),
	}, nil
}

// Commit persists the version FinalizeBlock staged.
func (ad *Adapter) Commit(ctx context.Context, req *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if err := ad.a.Commit(); err != nil {
		return nil, fmt.Errorf("abci: commit: %w", err)
	}
	version, root, err := ad.a.Info()
	if err != nil {
		return nil, fmt.Errorf("abci: commit info: %w", err)
	}
	ad.logger.Printf("📦 Committed block %d (hash: %x)", version, root.Bytes())

	return &abcitypes.ResponseCommit{}, nil
}

// Query answers /app (smart query) and /store (raw read, optionally proved)
// paths, per spec.md §4.H.
func (ad *Adapter) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	ad.mu.RLock()
	defer ad.mu.RUnlock()

	height := uint64(0)
	if req.Height > 0 {
		height = uint64(req.Height)
	}

	switch req.Path {
	case "/app":
		resp, err := ad.a.QueryApp(ctx, req.Data, height, req.Prove)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
		}
		value, err := json.Marshal(resp)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
		}
		return &abcitypes.ResponseQuery{Code: 0, Value: value, Height: int64(height)}, nil

	case "/store":
		value, proof, err := ad.a.QueryStore(req.Data, height, req.Prove)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
		}
		respQuery := &abcitypes.ResponseQuery{Code: 0, Key: req.Data, Value: value, Height: int64(height)}
		if proof != nil {
			encoded, err := json.Marshal(proof)
			if err != nil {
				return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
			}
			respQuery.Info = string(encoded)
		}
		return respQuery, nil

	default:
		return &abcitypes.ResponseQuery{Code: 2, Log: "unknown query path: " + req.Path}, nil
	}
}

// PrepareProposal accepts the mempool's transaction order unchanged.
func (ad *Adapter) PrepareProposal(ctx context.Context, req *abcitypes.RequestPrepareProposal) (*abcitypes.ResponsePrepareProposal, error) {
	return &abcitypes.ResponsePrepareProposal{Txs: req.Txs}, nil
}

// ProcessProposal rejects a proposal only if a tx isn't even valid JSON;
// full execution (and thus full validity) is deferred to FinalizeBlock.
func (ad *Adapter) ProcessProposal(ctx context.Context, req *abcitypes.RequestProcessProposal) (*abcitypes.ResponseProcessProposal, error) {
	for _, raw := range req.Txs {
		var tx types.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}, nil
		}
	}
	return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_ACCEPT}, nil
}

func (ad *Adapter) ExtendVote(ctx context.Context, req *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (ad *Adapter) VerifyVoteExtension(ctx context.Context, req *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (ad *Adapter) ListSnapshots(ctx context.Context, req *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (ad *Adapter) OfferSnapshot(ctx context.Context, req *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{Result: abcitypes.ResponseOfferSnapshot_ABORT}, nil
}

func (ad *Adapter) LoadSnapshotChunk(ctx context.Context, req *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (ad *Adapter) ApplySnapshotChunk(ctx context.Context, req *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{Result: abcitypes.ResponseApplySnapshotChunk_ABORT}, nil
}

// blockHash converts CometBFT's block hash into a types.Hash, tolerating
// the zero-length hash CometBFT sometimes passes for the very first block.
func blockHash(b []byte) types.Hash {
	if len(b) != types.HashSize {
		return types.ZeroHash
	}
	h, _ := types.HashFromBytes(b)
	return h
}

// flattenEvents turns a types.Event tree into the flat list ABCI expects,
// depth-first, dropping nesting but keeping every node's own attributes.
func flattenEvents(events []types.Event) []abcitypes.Event {
	var out []abcitypes.Event
	var walk func(types.Event)
	walk = func(e types.Event) {
		attrs := make([]abcitypes.EventAttribute, len(e.Attributes))
		for i, a := range e.Attributes {
			attrs[i] = abcitypes.EventAttribute{Key: a.Key, Value: a.Value}
		}
		out = append(out, abcitypes.Event{Type: e.Type, Attributes: attrs})
		for _, child := range e.Children {
			walk(child)
		}
	}
	for _, e := range events {
		walk(e)
	}
	return out
}
