// Copyright 2025 Certen Protocol
//
// Prefixed sub-store (component C): gives each contract an isolated key
// space inside the shared state tree. Grounded on spec.md §3's key layout
// (types.WasmPrefix) and original_source's PrefixStore concept referenced
// from crates/vm/rust/src/vm.rs.

package store

import (
	"bytes"

	"github.com/OakenKnight/left-curve/pkg/types"
)

// PrefixStore wraps a ReadWriter and transparently prepends a per-contract
// prefix to every key it touches, so a contract can never read or write
// outside its own namespace.
type PrefixStore struct {
	parent ReadWriter
	prefix []byte
}

// NewPrefixStore returns a PrefixStore scoped to addr's namespace.
func NewPrefixStore(parent ReadWriter, addr types.Address) *PrefixStore {
	return &PrefixStore{
		parent: parent,
		prefix: types.WasmPrefix(addr),
	}
}

func (p *PrefixStore) prefixed(key []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(key))
	out = append(out, p.prefix...)
	out = append(out, key...)
	return out
}

// Read implements ReadWriter.
func (p *PrefixStore) Read(key []byte) ([]byte, error) {
	return p.parent.Read(p.prefixed(key))
}

// Write implements ReadWriter.
func (p *PrefixStore) Write(key, value []byte) error {
	return p.parent.Write(p.prefixed(key), value)
}

// Remove implements ReadWriter.
func (p *PrefixStore) Remove(key []byte) error {
	return p.parent.Remove(p.prefixed(key))
}

// Scan implements Scanner, translating start/end into the prefixed
// namespace and stripping the prefix back off the returned keys.
func (p *PrefixStore) Scan(start, end []byte) ([]ScanPair, error) {
	scanner, ok := p.parent.(Scanner)
	if !ok {
		return nil, ErrScanUnsupported
	}
	pStart := p.prefixed(start)
	var pEnd []byte
	if end == nil {
		pEnd = prefixUpperBound(p.prefix)
	} else {
		pEnd = p.prefixed(end)
	}
	pairs, err := scanner.Scan(pStart, pEnd)
	if err != nil {
		return nil, err
	}
	out := make([]ScanPair, 0, len(pairs))
	for _, pair := range pairs {
		if !bytes.HasPrefix(pair.Key, p.prefix) {
			continue
		}
		out = append(out, ScanPair{Key: pair.Key[len(p.prefix):], Value: pair.Value})
	}
	return out, nil
}

// prefixUpperBound returns the lexically smallest byte string greater than
// every string with the given prefix, used as an exclusive scan end when
// the caller wants "everything under this prefix".
func prefixUpperBound(prefix []byte) []byte {
	out := append([]byte{}, prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
