// Copyright 2025 Certen Protocol
//
// Authenticated digest over a sorted key/value set, built on top of the
// binary Merkle primitives in tree.go. Grounded on spec.md §3's state key
// layout (one flat namespace, sorted lexically) and consumed by pkg/kvdb to
// answer root_hash/prove.

package merkle

import (
	"bytes"
	"crypto/sha256"
	"sort"
)

// KVPair is one leaf of the authenticated set: a raw key and its value.
type KVPair struct {
	Key   []byte
	Value []byte
}

// leafHash hashes a KVPair into the 32-byte leaf digest consumed by Tree.
// Hashing key and value separately (rather than concatenating first) avoids
// a key/value boundary ambiguity.
func leafHash(kv KVPair) []byte {
	h := sha256.New()
	h.Write(kv.Key)
	sum := h.Sum(nil)
	h2 := sha256.New()
	h2.Write(sum)
	h2.Write(kv.Value)
	return h2.Sum(nil)
}

// KVRoot computes the Merkle root over a set of key/value pairs, sorted by
// key so the root is independent of insertion order. Returns nil for an
// empty set.
func KVRoot(pairs []KVPair) ([]byte, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	sorted := sortedCopy(pairs)
	leaves := make([][]byte, len(sorted))
	for i, kv := range sorted {
		leaves[i] = leafHash(kv)
	}
	tree, err := BuildTree(leaves)
	if err != nil {
		return nil, err
	}
	return tree.Root(), nil
}

// KVProve builds an inclusion proof that key/value is a member of pairs.
// The returned proof is independent of map iteration order: pairs are
// sorted by key first, exactly as KVRoot does, so Prove's root matches
// KVRoot's.
func KVProve(pairs []KVPair, key []byte) (*InclusionProof, error) {
	sorted := sortedCopy(pairs)
	idx := sort.Search(len(sorted), func(i int) bool {
		return bytes.Compare(sorted[i].Key, key) >= 0
	})
	if idx >= len(sorted) || !bytes.Equal(sorted[idx].Key, key) {
		return nil, ErrLeafNotFound
	}

	leaves := make([][]byte, len(sorted))
	for i, kv := range sorted {
		leaves[i] = leafHash(kv)
	}
	tree, err := BuildTree(leaves)
	if err != nil {
		return nil, err
	}
	return tree.GenerateProof(idx)
}

// VerifyKVProof checks that (key, value) is included under expectedRoot.
func VerifyKVProof(key, value []byte, proof *InclusionProof, expectedRoot []byte) (bool, error) {
	leaf := leafHash(KVPair{Key: key, Value: value})
	return VerifyProof(leaf, proof, expectedRoot)
}

func sortedCopy(pairs []KVPair) []KVPair {
	out := make([]KVPair, len(pairs))
	copy(out, pairs)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key, out[j].Key) < 0
	})
	return out
}
