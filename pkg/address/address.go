// Copyright 2025 Certen Protocol
//
// Content-derived address and code-hash derivation. Grounded on the DOMAIN
// STACK decision in SPEC_FULL.md §6.A: go-ethereum's crypto package is the
// idiomatic Keccak256 primitive this corpus reaches for, used the same way
// every retrieved chain repo (erigon, go-ethereum itself, Synnergy) derives
// a 32-byte digest from arbitrary input.

package address

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/OakenKnight/left-curve/pkg/types"
)

// Hash returns the Keccak256 digest of data as a types.Hash.
func Hash(data []byte) types.Hash {
	sum := crypto.Keccak256(data)
	var h types.Hash
	copy(h[:], sum)
	return h
}

// CodeHash returns the hash a piece of uploaded code is addressed by.
func CodeHash(code []byte) types.Hash {
	return Hash(code)
}

// Derive computes addr = H(deployer ‖ code_hash ‖ salt), truncated to
// AddressSize, per spec.md §3.
func Derive(deployer types.Address, codeHash types.Hash, salt []byte) types.Address {
	buf := make([]byte, 0, types.AddressSize+types.HashSize+len(salt))
	buf = append(buf, deployer[:]...)
	buf = append(buf, codeHash[:]...)
	buf = append(buf, salt...)
	digest := crypto.Keccak256(buf)

	var addr types.Address
	copy(addr[:], digest[len(digest)-types.AddressSize:])
	return addr
}
