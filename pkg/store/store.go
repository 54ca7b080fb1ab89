// Copyright 2025 Certen Protocol
//
// Cache overlay (component B). Grounded on
// original_source/crates/app/src/app.rs's SharedStore<CacheStore<...>>
// stacking: every write goes to an in-memory overlay first; reads fall
// through to the parent on miss; Commit flattens the overlay's pending
// writes into the parent. Per spec.md §9's design note, this repo implements
// the "linked stack of overlay frames" option: each CacheOverlay owns its
// pending map exclusively until Commit or Discard.

package store

import (
	"bytes"
	"errors"
	"sort"
)

// ErrScanUnsupported is returned by a ReadWriter layer whose parent doesn't
// implement Scanner, so a range query can't be answered.
var ErrScanUnsupported = errors.New("store: underlying layer does not support range scans")

// ReadWriter is the minimal interface every layer of the store stack
// implements: the versioned store's read view, a CacheOverlay, and a
// PrefixStore all satisfy it.
type ReadWriter interface {
	Read(key []byte) ([]byte, error)
	Write(key, value []byte) error
	Remove(key []byte) error
}

// ScanPair is one key/value pair returned by a Scanner range query.
type ScanPair struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// Scanner is implemented by ReadWriter layers that can answer a sorted range
// query over [start, end). Used by pkg/host's db_scan import function —
// guest contracts ask for a key range, never a raw cursor, since the
// underlying kvdb store already holds each version as a full copy.
type Scanner interface {
	Scan(start, end []byte) ([]ScanPair, error)
}

// CacheOverlay is one frame of the overlay stack. Writes and removes are
// buffered in pending; reads check pending first and fall through to parent
// on miss. A nil entry in pending represents a tombstone (a Remove not yet
// committed).
type CacheOverlay struct {
	parent  ReadWriter
	pending map[string]*[]byte
}

// NewCacheOverlay creates a new overlay frame on top of parent. parent may
// itself be another CacheOverlay, a PrefixStore, or the versioned store's
// read view — the stack can be nested to arbitrary depth (block overlay,
// tx overlay, message overlay).
func NewCacheOverlay(parent ReadWriter) *CacheOverlay {
	return &CacheOverlay{
		parent:  parent,
		pending: make(map[string]*[]byte),
	}
}

// Read implements ReadWriter.
func (o *CacheOverlay) Read(key []byte) ([]byte, error) {
	if v, ok := o.pending[string(key)]; ok {
		if v == nil {
			return nil, nil
		}
		return *v, nil
	}
	return o.parent.Read(key)
}

// Write implements ReadWriter.
func (o *CacheOverlay) Write(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	o.pending[string(key)] = &v
	return nil
}

// Remove implements ReadWriter. It records a tombstone rather than deleting
// the pending entry, so a Remove of a key that exists only in the parent
// still shadows it.
func (o *CacheOverlay) Remove(key []byte) error {
	o.pending[string(key)] = nil
	return nil
}

// Commit flushes every pending write/remove into the parent. Called once the
// call that owns this frame succeeds; on failure the frame is simply
// dropped, per spec.md §5's "changes discarded on error" rule.
func (o *CacheOverlay) Commit() error {
	for k, v := range o.pending {
		if v == nil {
			if err := o.parent.Remove([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := o.parent.Write([]byte(k), *v); err != nil {
			return err
		}
	}
	o.pending = make(map[string]*[]byte)
	return nil
}

// Discard clears pending changes without applying them to the parent.
func (o *CacheOverlay) Discard() {
	o.pending = make(map[string]*[]byte)
}

// PendingKeys returns the keys touched by this frame's uncommitted writes
// and removes, in sorted order, for deterministic iteration by callers that
// need to walk the overlay (the flush path itself uses Flatten).
func (o *CacheOverlay) PendingKeys() []string {
	keys := make([]string, 0, len(o.pending))
	for k := range o.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entry returns the raw pending entry for key (nil, false if untouched;
// nil, true if tombstoned; value, true otherwise).
func (o *CacheOverlay) Entry(key string) (*[]byte, bool) {
	v, ok := o.pending[key]
	return v, ok
}

// Scan implements Scanner by merging the parent's range (if it supports
// Scanner) with this frame's own pending writes/tombstones, so a scan
// through an uncommitted overlay sees its own shadowing writes.
func (o *CacheOverlay) Scan(start, end []byte) ([]ScanPair, error) {
	merged := make(map[string][]byte)
	if scanner, ok := o.parent.(Scanner); ok {
		base, err := scanner.Scan(start, end)
		if err != nil {
			return nil, err
		}
		for _, p := range base {
			merged[string(p.Key)] = p.Value
		}
	}
	for k, v := range o.pending {
		key := []byte(k)
		if bytes.Compare(key, start) < 0 || (end != nil && bytes.Compare(key, end) >= 0) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = *v
	}
	out := make([]ScanPair, 0, len(merged))
	for k, v := range merged {
		out = append(out, ScanPair{Key: []byte(k), Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

// Flatten splits this frame's pending changes into a set/value map and a
// removed-key set, the shape pkg/kvdb.Store.FlushButNotCommit expects. Used
// once per block, on the top-level block overlay, after every transaction
// and begin/end-blocker has committed into it, and once at genesis on the
// InitChain overlay.
func (o *CacheOverlay) Flatten() (set map[string][]byte, removed map[string]bool) {
	set = make(map[string][]byte)
	removed = make(map[string]bool)
	for k, v := range o.pending {
		if v == nil {
			removed[k] = true
		} else {
			set[k] = *v
		}
	}
	return set, removed
}
