// Copyright 2025 Certen Protocol
//
// Grounded on original_source/crates/std/src/types/context.rs: the context
// struct threaded into every guest entry point.

package types

import "encoding/json"

// Context is given to the VM on every call.
type Context struct {
	BlockHeight     uint64   `json:"block_height"`
	BlockTimestamp  uint64   `json:"block_timestamp"`
	Sender          *Address `json:"sender,omitempty"`
	Funds           Coins    `json:"funds,omitempty"`
	ChainID         string   `json:"chain_id"`
	ContractAddress Address  `json:"contract_address"`
}

// QueryRequest is the opaque request a guest (or the adapter) sends through
// the querier. Exactly one field is populated.
type QueryRequest struct {
	Raw    *QueryRaw    `json:"raw,omitempty"`
	Info   *QueryInfo   `json:"info,omitempty"`
	Code   *QueryCode   `json:"code,omitempty"`
	Smart  *QuerySmart  `json:"smart,omitempty"`
}

type QueryRaw struct {
	Contract Address `json:"contract"`
	Key      []byte  `json:"key"`
}

type QueryInfo struct {
	Contract Address `json:"contract"`
}

type QueryCode struct {
	CodeHash Hash `json:"code_hash"`
}

type QuerySmart struct {
	Contract Address         `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

// QueryResponse mirrors QueryRequest: exactly one field populated.
type QueryResponse struct {
	Raw   []byte         `json:"raw,omitempty"`
	Info  *ContractInfo  `json:"info,omitempty"`
	Code  []byte         `json:"code,omitempty"`
	Smart json.RawMessage `json:"smart,omitempty"`
}
