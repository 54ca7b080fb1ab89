// Copyright 2025 Certen Protocol
//
// State key layout. Grounded on pkg/ledger/store.go's convention of fixed
// byte-slice prefixes plus a suffix, all living in one flat namespace.

package types

import "encoding/binary"

var (
	KeyChainID           = []byte("chain_id")
	KeyConfig            = []byte("config")
	KeyLastFinalizedBlock = []byte("last_finalized_block")

	prefixCode     = []byte("code/")
	prefixContract = []byte("contract/")
	prefixWasm     = []byte("wasm/")
)

// CodeKey returns the key under which code bytes for codeHash are stored.
func CodeKey(codeHash Hash) []byte {
	return append(append([]byte{}, prefixCode...), codeHash[:]...)
}

// ContractKey returns the key under which a ContractInfo for addr is stored.
func ContractKey(addr Address) []byte {
	return append(append([]byte{}, prefixContract...), addr[:]...)
}

// WasmPrefix returns the key prefix for addr's per-contract state, using a
// length-prefixed address so no contract's prefix can be a prefix of
// another's (required for the PrefixStore to be collision-free).
func WasmPrefix(addr Address) []byte {
	out := make([]byte, 0, len(prefixWasm)+1+AddressSize)
	out = append(out, prefixWasm...)
	out = append(out, byte(AddressSize))
	out = append(out, addr[:]...)
	return out
}

// BigEndianHeight encodes a block height as an 8-byte big-endian key
// fragment, used wherever a key must sort numerically (e.g. kvdb versions).
func BigEndianHeight(height uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, height)
	return b
}
