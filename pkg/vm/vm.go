// Copyright 2025 Certen Protocol
//
// VM abstraction (component D). Grounded on
// original_source/crates/vm/rust/src/vm.rs's three calling shapes
// (call_in_0_out_1/call_in_1_out_1/call_in_2_out_1) and on the corpus's own
// precedent for a pluggable-VM dispatch (orbas1-Synnergy's
// core/virtual_machine.go SelectVM switch, pkg/chain/strategy/interface.go's
// platform-keyed dispatch). Per spec.md §9's design note, dispatch is a
// Builder interface producing a fresh VM per call — never a global registry
// singleton.

package vm

import (
	"context"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
)

// Querier lets a running contract ask the host to resolve a query against
// another contract or the chain itself (raw store read, contract info,
// code, or a smart query routed back through the VM).
type Querier interface {
	Query(ctx context.Context, req types.QueryRequest) (types.QueryResponse, error)
}

// VM is one loaded instance of a contract's code, scoped to a single call.
// The three methods mirror the Rust prototype's three input arities exactly
// (0/1/2 byte-slice arguments, always exactly one byte-slice output).
type VM interface {
	// CallIn0Out1 invokes an entry point that takes no argument besides the
	// call context ("receive" and "cron_execute"; cron_execute is given no
	// argument and is not reachable through CallIn1Out1).
	CallIn0Out1(ctx context.Context, name string, c *types.Context) ([]byte, error)

	// CallIn1Out1 invokes an entry point that takes one JSON-encoded
	// argument ("instantiate", "execute", "migrate", "query",
	// "authenticate", "backrun", "bank_execute", "bank_query",
	// "withhold_fee", "finalize_fee").
	CallIn1Out1(ctx context.Context, name string, c *types.Context, arg []byte) ([]byte, error)

	// CallIn2Out1 invokes an entry point that takes two JSON-encoded
	// arguments (currently only "reply": the original message and the
	// submessage result).
	CallIn2Out1(ctx context.Context, name string, c *types.Context, arg1, arg2 []byte) ([]byte, error)
}

// Builder constructs a fresh VM instance for one call, scoped to a
// contract's prefixed store, a querier for cross-contract/host queries, and
// the contract's code (interpreted according to the Builder implementation
// — a registry key for pkg/vm/native, real bytecode for pkg/vm/wasm).
type Builder interface {
	Build(sw store.ReadWriter, querier Querier, codeHash types.Hash, code []byte) (VM, error)
}
