// Copyright 2025 Certen Protocol
//
// WASM VM (component D, guest side). Grounded on orbas1-Synnergy's
// core/virtual_machine.go HeavyVM/registerHost (wasmer.NewEngine/NewStore/
// NewModule/NewInstance, "memory" export, host functions registered under
// the "env" namespace) and on original_source/crates/vm/rust/src/vm.rs's
// three calling shapes. Gas metering is deferred, per spec.md §1's
// Non-goals — host_consume_gas has no equivalent here.

package wasm

import (
	"context"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/OakenKnight/left-curve/pkg/host"
	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
)

// entryArity tells dispatch how many Region arguments an export expects,
// mirroring the Rust prototype's call_in_0_out_1/call_in_1_out_1/
// call_in_2_out_1 split.
var entryArity = map[string]int{
	"receive":      0,
	"cron_execute": 0,
	"instantiate":  1,
	"execute":      1,
	"migrate":      1,
	"query":        1,
	"authenticate": 1,
	"backrun":      1,
	"bank_execute": 1,
	"bank_query":   1,
	"withhold_fee": 1,
	"finalize_fee": 1,
	"reply":        2,
}

// Builder implements vm.Builder over wasmer-go: every call compiles the
// supplied code bytes into a fresh module and instance. Modules are not
// cached across calls — simplicity over repeated-call throughput, adequate
// at this module's scale since contract code is typically small.
type Builder struct {
	engine *wasmer.Engine
}

// NewBuilder returns a Builder backed by a single shared wasmer.Engine.
func NewBuilder() *Builder {
	return &Builder{engine: wasmer.NewEngine()}
}

// Build implements vm.Builder.
func (b *Builder) Build(sw store.ReadWriter, querier vm.Querier, codeHash types.Hash, code []byte) (vm.VM, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("wasm: no code bytes for code hash %s", codeHash)
	}
	return &instance{engine: b.engine, store: sw, querier: querier, code: code}, nil
}

type instance struct {
	engine  *wasmer.Engine
	store   store.ReadWriter
	querier vm.Querier
	code    []byte
}

// queryAdapter adapts vm.Querier to host.Querier so pkg/host never imports
// pkg/vm (would create an import cycle with pkg/vm/wasm on both sides).
type queryAdapter struct {
	q vm.Querier
}

func (a queryAdapter) Query(ctx context.Context, req types.QueryRequest) (types.QueryResponse, error) {
	return a.q.Query(ctx, req)
}

// newGuestInstance compiles i.code and wires the host ABI, returning the
// live wasmer.Instance plus its "memory" export and "allocate" function.
func (i *instance) newGuestInstance(ctx context.Context) (*wasmer.Instance, *wasmer.Memory, func(int32) (int32, error), error) {
	wstore := wasmer.NewStore(i.engine)
	module, err := wasmer.NewModule(wstore, i.code)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("wasm: compile module: %w", err)
	}

	env := &host.Env{
		Ctx:     ctx,
		Store:   i.store,
		Querier: queryAdapter{i.querier},
	}
	imports := host.Register(wstore, env)

	wasmerInstance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("wasm: instantiate: %w", err)
	}

	mem, err := wasmerInstance.Exports.GetMemory("memory")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("wasm: module has no exported memory: %w", err)
	}
	env.Memory = mem

	allocateFn, err := wasmerInstance.Exports.GetFunction("allocate")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("wasm: module has no exported allocate: %w", err)
	}
	env.Allocate = func(size int32) (int32, error) {
		ret, err := allocateFn(size)
		if err != nil {
			return 0, err
		}
		ptr, ok := ret.(int32)
		if !ok {
			return 0, fmt.Errorf("wasm: allocate did not return i32")
		}
		return ptr, nil
	}

	return wasmerInstance, mem, env.Allocate, nil
}

// writeArg allocates a guest region sized for arg and copies arg into it,
// returning the region pointer to pass to the entry point export.
func writeArg(allocate func(int32) (int32, error), mem *wasmer.Memory, arg []byte) (int32, error) {
	ptr, err := allocate(int32(len(arg)))
	if err != nil {
		return 0, err
	}
	if err := host.WriteRegionData(mem.Data(), uint32(ptr), arg); err != nil {
		return 0, err
	}
	return ptr, nil
}

func (i *instance) callExport(wasmerInstance *wasmer.Instance, mem *wasmer.Memory, name string, ptrs ...int32) ([]byte, error) {
	fn, err := wasmerInstance.Exports.GetFunction(name)
	if err != nil {
		return nil, vm.ErrUnknownEntryPoint
	}

	args := make([]interface{}, len(ptrs))
	for idx, p := range ptrs {
		args[idx] = p
	}
	ret, err := fn(args...)
	if err != nil {
		return nil, fmt.Errorf("wasm: call %q: %w", name, err)
	}
	respPtr, ok := ret.(int32)
	if !ok {
		return nil, fmt.Errorf("wasm: %q did not return an i32 region pointer", name)
	}
	if respPtr == 0 {
		return nil, nil
	}
	return host.ReadRegionData(mem.Data(), uint32(respPtr))
}

// CallIn0Out1 implements vm.VM.
func (i *instance) CallIn0Out1(ctx context.Context, name string, c *types.Context) ([]byte, error) {
	if arity, ok := entryArity[name]; !ok || arity != 0 {
		return nil, vm.ErrIncorrectNumberOfInputs
	}
	wasmerInstance, mem, _, err := i.newGuestInstance(ctx)
	if err != nil {
		return nil, err
	}
	return i.callExport(wasmerInstance, mem, name)
}

// CallIn1Out1 implements vm.VM.
func (i *instance) CallIn1Out1(ctx context.Context, name string, c *types.Context, arg []byte) ([]byte, error) {
	if arity, ok := entryArity[name]; !ok || arity != 1 {
		return nil, vm.ErrIncorrectNumberOfInputs
	}
	wasmerInstance, mem, allocate, err := i.newGuestInstance(ctx)
	if err != nil {
		return nil, err
	}
	argPtr, err := writeArg(allocate, mem, arg)
	if err != nil {
		return nil, err
	}
	return i.callExport(wasmerInstance, mem, name, argPtr)
}

// CallIn2Out1 implements vm.VM.
func (i *instance) CallIn2Out1(ctx context.Context, name string, c *types.Context, arg1, arg2 []byte) ([]byte, error) {
	if arity, ok := entryArity[name]; !ok || arity != 2 {
		return nil, vm.ErrIncorrectNumberOfInputs
	}
	wasmerInstance, mem, allocate, err := i.newGuestInstance(ctx)
	if err != nil {
		return nil, err
	}
	ptr1, err := writeArg(allocate, mem, arg1)
	if err != nil {
		return nil, err
	}
	ptr2, err := writeArg(allocate, mem, arg2)
	if err != nil {
		return nil, err
	}
	return i.callExport(wasmerInstance, mem, name, ptr1, ptr2)
}

var _ vm.Builder = (*Builder)(nil)
var _ vm.VM = (*instance)(nil)
