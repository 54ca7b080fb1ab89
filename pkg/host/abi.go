// Copyright 2025 Certen Protocol
//
// Host import functions exposed to WASM guests: db_read, db_write,
// db_remove, db_scan, query_chain. Grounded on orbas1-Synnergy's
// core/virtual_machine.go registerHost (the same wasmer.NewFunction /
// wasmer.NewFunctionType / ImportObject.Register("env", ...) shape, and the
// same ptr/len host_read/host_write pair), generalized from that repo's
// single flat KV namespace to this repo's store.ReadWriter + vm.Querier
// abstractions.

package host

import (
	"context"
	"encoding/json"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
)

// Querier mirrors vm.Querier without importing pkg/vm, avoiding an import
// cycle (pkg/vm/wasm imports both pkg/vm and pkg/host).
type Querier interface {
	Query(ctx context.Context, req types.QueryRequest) (types.QueryResponse, error)
}

// Env is the per-call state the host functions close over: the contract's
// prefixed store, a querier for cross-contract/chain queries, the guest's
// exported memory, and the guest's exported allocate function (used to size
// a return buffer before writing a response region back into it).
type Env struct {
	Ctx      context.Context
	Store    store.ReadWriter
	Querier  Querier
	Memory   *wasmer.Memory
	Allocate func(size int32) (int32, error)
}

func (e *Env) mem() []byte {
	return e.Memory.Data()
}

// Register builds the "env" import namespace for a guest instance, wiring
// each host function to e. Call before the module is instantiated, while
// the memory export is not yet known — env.Memory and env.Allocate are
// filled in once the instance exists (see pkg/vm/wasm).
func Register(wstore *wasmer.Store, env *Env) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	i32 := wasmer.NewValueTypes(wasmer.I32)
	i32i32 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32)
	noResult := wasmer.NewValueTypes()

	dbRead := wasmer.NewFunction(wstore, wasmer.NewFunctionType(i32, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			keyPtr := uint32(args[0].I32())
			key, err := ReadRegionData(env.mem(), keyPtr)
			if err != nil {
				return nil, err
			}
			val, err := env.Store.Read(key)
			if err != nil {
				return nil, err
			}
			if val == nil {
				return []wasmer.Value{wasmer.NewI32(0)}, nil
			}
			respPtr, err := env.allocateAndWrite(val)
			if err != nil {
				return nil, err
			}
			return []wasmer.Value{wasmer.NewI32(respPtr)}, nil
		})

	dbWrite := wasmer.NewFunction(wstore, wasmer.NewFunctionType(i32i32, noResult),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			keyPtr := uint32(args[0].I32())
			valPtr := uint32(args[1].I32())
			key, err := ReadRegionData(env.mem(), keyPtr)
			if err != nil {
				return nil, err
			}
			val, err := ReadRegionData(env.mem(), valPtr)
			if err != nil {
				return nil, err
			}
			return nil, env.Store.Write(key, val)
		})

	dbRemove := wasmer.NewFunction(wstore, wasmer.NewFunctionType(i32, noResult),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			keyPtr := uint32(args[0].I32())
			key, err := ReadRegionData(env.mem(), keyPtr)
			if err != nil {
				return nil, err
			}
			return nil, env.Store.Remove(key)
		})

	// db_scan returns every key/value pair whose key falls in [startPtr,
	// endPtr) as one JSON-encoded array region. This repo has no cursor
	// state across host calls, so unlike a real KVStore iterator it
	// materializes the whole range in one call — acceptable at the scale
	// this module targets, since state is already a full in-memory copy.
	dbScan := wasmer.NewFunction(wstore, wasmer.NewFunctionType(i32i32, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			startPtr := uint32(args[0].I32())
			endPtr := uint32(args[1].I32())
			start, err := ReadRegionData(env.mem(), startPtr)
			if err != nil {
				return nil, err
			}
			end, err := ReadRegionData(env.mem(), endPtr)
			if err != nil {
				return nil, err
			}
			scanner, ok := env.Store.(store.Scanner)
			if !ok {
				return nil, store.ErrScanUnsupported
			}
			pairs, err := scanner.Scan(start, end)
			if err != nil {
				return nil, err
			}
			encoded, err := json.Marshal(pairs)
			if err != nil {
				return nil, err
			}
			respPtr, err := env.allocateAndWrite(encoded)
			if err != nil {
				return nil, err
			}
			return []wasmer.Value{wasmer.NewI32(respPtr)}, nil
		})

	queryChain := wasmer.NewFunction(wstore, wasmer.NewFunctionType(i32, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			reqPtr := uint32(args[0].I32())
			raw, err := ReadRegionData(env.mem(), reqPtr)
			if err != nil {
				return nil, err
			}
			var req types.QueryRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, err
			}
			resp, err := env.Querier.Query(env.Ctx, req)
			if err != nil {
				return nil, err
			}
			encoded, err := json.Marshal(resp)
			if err != nil {
				return nil, err
			}
			respPtr, err := env.allocateAndWrite(encoded)
			if err != nil {
				return nil, err
			}
			return []wasmer.Value{wasmer.NewI32(respPtr)}, nil
		})

	imports.Register("env", map[string]wasmer.IntoExtern{
		"db_read":     dbRead,
		"db_write":    dbWrite,
		"db_remove":   dbRemove,
		"db_scan":     dbScan,
		"query_chain": queryChain,
	})

	return imports
}

// allocateAndWrite asks the guest to allocate a region big enough for data,
// then writes data into it and returns the region pointer.
func (e *Env) allocateAndWrite(data []byte) (int32, error) {
	ptr, err := e.Allocate(int32(len(data)))
	if err != nil {
		return 0, err
	}
	if err := WriteRegionData(e.mem(), uint32(ptr), data); err != nil {
		return 0, err
	}
	return ptr, nil
}
