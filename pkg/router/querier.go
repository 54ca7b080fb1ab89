// Copyright 2025 Certen Protocol
//
// Read-only query dispatch. Grounded on spec.md §4.H's query_app ("dispatches
// the query through the router, read-only VM invocations only") and on
// spec.md §5's rule that a sub-query sees the enclosing call's uncommitted
// writes by sharing its overlay read-only.

package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
)

// Querier answers a types.QueryRequest against root (the enclosing call's
// store view, shared read-only) using builder to load contract code.
type Querier struct {
	Root    store.ReadWriter
	Builder vm.Builder
	Block   types.BlockInfo
	ChainID string
}

// Query implements vm.Querier.
func (q *Querier) Query(ctx context.Context, req types.QueryRequest) (types.QueryResponse, error) {
	switch {
	case req.Raw != nil:
		contractStore := store.NewPrefixStore(q.Root, req.Raw.Contract)
		val, err := contractStore.Read(req.Raw.Key)
		if err != nil {
			return types.QueryResponse{}, err
		}
		return types.QueryResponse{Raw: val}, nil

	case req.Info != nil:
		info, err := loadContractInfo(q.Root, req.Info.Contract)
		if err != nil {
			return types.QueryResponse{}, err
		}
		return types.QueryResponse{Info: info}, nil

	case req.Code != nil:
		code, err := loadCode(q.Root, req.Code.CodeHash)
		if err != nil {
			return types.QueryResponse{}, err
		}
		return types.QueryResponse{Code: code}, nil

	case req.Smart != nil:
		info, err := loadContractInfo(q.Root, req.Smart.Contract)
		if err != nil {
			return types.QueryResponse{}, err
		}
		code, err := loadCode(q.Root, info.CodeHash)
		if err != nil {
			return types.QueryResponse{}, err
		}
		contractStore := store.NewPrefixStore(q.Root, req.Smart.Contract)
		nested := &Querier{Root: q.Root, Builder: q.Builder, Block: q.Block, ChainID: q.ChainID}
		instance, err := q.Builder.Build(contractStore, nested, info.CodeHash, code)
		if err != nil {
			return types.QueryResponse{}, err
		}
		callCtx := &types.Context{
			BlockHeight:     q.Block.Height,
			BlockTimestamp:  q.Block.TimestampSecs,
			ChainID:         q.ChainID,
			ContractAddress: req.Smart.Contract,
		}
		out, err := instance.CallIn1Out1(ctx, "query", callCtx, []byte(req.Smart.Msg))
		if err != nil {
			return types.QueryResponse{}, err
		}
		return types.QueryResponse{Smart: json.RawMessage(out)}, nil

	default:
		return types.QueryResponse{}, fmt.Errorf("router: empty query request")
	}
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
		return nil, ErrCodeNotFound
	}
	return code, nil
}

var _ vm.Querier = (*Querier)(nil)
