// Copyright 2025 Certen Protocol
//
// Versioned authenticated KV store (component A). Grounded on
// pkg/kvdb/adapter.go (wraps dbm.DB from github.com/cometbft/cometbft-db)
// and pkg/ledger/store.go's key-layout convention of fixed prefixes plus a
// big-endian height suffix, all living in one flat dbm.DB namespace.
//
// Each committed version is stored as a full copy of the live key set under
// a version-prefixed key ("state/" ‖ version(8 BE) ‖ 0x00 ‖ userKey), so read(key,
// version) and prove(key, version) never need to resolve across
// per-key deltas — the tradeoff is O(state size) disk writes per block,
// acceptable for this reference implementation (spec.md §1 excludes storage
// efficiency engineering from scope).
package kvdb

import (
	"bytes"
	"sort"
	"sync"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/OakenKnight/left-curve/pkg/merkle"
	"github.com/OakenKnight/left-curve/pkg/types"
)

var (
	prefixState  = []byte("state/")
	keyMetaLatest = []byte("meta/latest_version")
)

func stateKey(version uint64, userKey []byte) []byte {
	out := make([]byte, 0, len(prefixState)+8+1+len(userKey))
	out = append(out, prefixState...)
	out = append(out, types.BigEndianHeight(version)...)
	out = append(out, 0x00)
	out = append(out, userKey...)
	return out
}

func versionPrefix(version uint64) []byte {
	out := make([]byte, 0, len(prefixState)+8+1)
	out = append(out, prefixState...)
	out = append(out, types.BigEndianHeight(version)...)
	out = append(out, 0x00)
	return out
}

// prefixEnd returns the smallest key that is strictly greater than every
// key with the given prefix, for use as an exclusive iterator end bound.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	// prefix is all 0xFF bytes: no finite upper bound, caller must pass nil.
	return nil
}

// stagedVersion holds the result of FlushButNotCommit until Commit persists
// it, matching original_source's split between flush_but_not_commit (kept
// in memory) and commit (written to disk).
type stagedVersion struct {
	version uint64
	pairs   []merkle.KVPair
	root    []byte
}

// Store is the versioned, authenticated key-value store.
type Store struct {
	mu            sync.Mutex
	db            dbm.DB
	latestVersion uint64
	hasVersion    bool
	staged        *stagedVersion
}

// NewStore opens a Store backed by db, restoring latestVersion from the
// persisted meta key if present.
func NewStore(db dbm.DB) (*Store, error) {
	s := &Store{db: db}

	v, err := db.Get(keyMetaLatest)
	if err != nil {
		return nil, err
	}
	if len(v) == 8 {
		s.latestVersion = beUint64(v)
		s.hasVersion = true
	}
	return s, nil
}

// LatestVersion returns the most recently committed version and whether any
// version has been committed yet.
func (s *Store) LatestVersion() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestVersion, s.hasVersion
}

// liveSet returns the full key/value set committed at version, or an empty
// set if no version has ever been committed.
func (s *Store) liveSet(version uint64) ([]merkle.KVPair, error) {
	prefix := versionPrefix(version)
	end := prefixEnd(prefix)
	iter, err := s.db.Iterator(prefix, end)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var pairs []merkle.KVPair
	for ; iter.Valid(); iter.Next() {
		key := iter.Key()
		userKey := make([]byte, len(key)-len(prefix))
		copy(userKey, key[len(prefix):])
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		pairs = append(pairs, merkle.KVPair{Key: userKey, Value: value})
	}
	return pairs, iter.Error()
}

// Read returns the value for key at version, or at the latest committed
// version if version is nil. Returns nil, nil if the key is absent.
func (s *Store) Read(key []byte, version *uint64) ([]byte, error) {
	s.mu.Lock()
	v, ok, err := s.resolveVersion(version)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.db.Get(stateKey(v, key))
}

func (s *Store) resolveVersion(version *uint64) (uint64, bool, error) {
	if version != nil {
		return *version, true, nil
	}
	if !s.hasVersion {
		return 0, false, nil
	}
	return s.latestVersion, true, nil
}

// RootHash returns the authenticated digest at version (or latest if nil).
// Returns nil, nil if the store is empty at that version.
func (s *Store) RootHash(version *uint64) ([]byte, error) {
	s.mu.Lock()
	v, ok, err := s.resolveVersion(version)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	pairs, err := s.liveSet(v)
	if err != nil {
		return nil, err
	}
	return merkle.KVRoot(pairs)
}

// Prove returns an inclusion proof for key at version (or latest if nil).
func (s *Store) Prove(key []byte, version *uint64) (*merkle.InclusionProof, error) {
	s.mu.Lock()
	v, ok, err := s.resolveVersion(version)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVersionNotFound
	}
	pairs, err := s.liveSet(v)
	if err != nil {
		return nil, err
	}
	return merkle.KVProve(pairs, key)
}

// Scan returns every key/value pair in [start, end) at version (or latest
// if nil), sorted by key. end == nil means "to the end of the namespace".
func (s *Store) Scan(key []byte, end []byte, version *uint64) ([]merkle.KVPair, error) {
	s.mu.Lock()
	v, ok, err := s.resolveVersion(version)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	pairs, err := s.liveSet(v)
	if err != nil {
		return nil, err
	}
	out := make([]merkle.KVPair, 0, len(pairs))
	for _, kv := range pairs {
		if bytes.Compare(kv.Key, key) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kv.Key, end) >= 0 {
			continue
		}
		out = append(out, kv)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

// FlushButNotCommit stages the next version: pending maps user keys to
// either a new value or nil (tombstone). The resulting full live set and its
// merkle root are computed and held in memory only — nothing is written to
// disk until Commit. Returns the staged version and its root hash.
func (s *Store) FlushButNotCommit(pending map[string][]byte, removed map[string]bool) (uint64, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextVersion := uint64(0)
	if s.hasVersion {
		nextVersion = s.latestVersion + 1
	}

	base, err := s.liveSet(s.latestVersion)
	if err != nil {
		return 0, nil, err
	}
	if !s.hasVersion {
		base = nil
	}

	merged := make(map[string][]byte, len(base)+len(pending))
	for _, kv := range base {
		merged[string(kv.Key)] = kv.Value
	}
	for k := range removed {
		delete(merged, k)
	}
	for k, v := range pending {
		merged[k] = v
	}

	pairs := make([]merkle.KVPair, 0, len(merged))
	for k, v := range merged {
		pairs = append(pairs, merkle.KVPair{Key: []byte(k), Value: v})
	}

	root, err := merkle.KVRoot(pairs)
	if err != nil {
		return 0, nil, err
	}

	s.staged = &stagedVersion{version: nextVersion, pairs: pairs, root: root}
	return nextVersion, root, nil
}

// Commit persists the staged version with a single dbm.Batch write,
// answering spec.md §9's atomicity question directly: either the whole
// batch lands or none of it does, so a crash between flush and commit can
// never leave the state and meta pointer inconsistent.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staged == nil {
		return ErrNoStagedVersion
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, kv := range s.staged.pairs {
		if err := batch.Set(stateKey(s.staged.version, kv.Key), kv.Value); err != nil {
			return err
		}
	}
	if err := batch.Set(keyMetaLatest, beBytes(s.staged.version)); err != nil {
		return err
	}
	if err := batch.WriteSync(); err != nil {
		return err
	}

	s.latestVersion = s.staged.version
	s.hasVersion = true
	s.staged = nil
	return nil
}

// FlushAndCommit stages and immediately commits a version in one step, used
// at genesis where there is no separate ABCI Commit round.
func (s *Store) FlushAndCommit(pending map[string][]byte, removed map[string]bool) (uint64, []byte, error) {
	version, root, err := s.FlushButNotCommit(pending, removed)
	if err != nil {
		return 0, nil, err
	}
	if err := s.Commit(); err != nil {
		return 0, nil, err
	}
	return version, root, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func beBytes(v uint64) []byte {
	return types.BigEndianHeight(v)
}
