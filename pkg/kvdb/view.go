// Copyright 2025 Certen Protocol

package kvdb

import (
	"errors"

	"github.com/OakenKnight/left-curve/pkg/store"
)

// ErrReadOnlyView is returned by View's Write/Remove: the committed store is
// only ever mutated through FlushButNotCommit/Commit, never through direct
// writes to a historical view. Callers stack a store.CacheOverlay on top of
// a View to accumulate writes for the next version.
var ErrReadOnlyView = errors.New("kvdb: view is read-only, write through an overlay instead")

// View adapts Store's point-in-time Read to the store.ReadWriter interface,
// so it can sit at the bottom of a CacheOverlay stack exactly like
// original_source's `self.store.state_storage(version)`.
type View struct {
	store   *Store
	version *uint64
}

// NewView returns a read view of store at version, or at the latest
// committed version if version is nil.
func NewView(s *Store, version *uint64) *View {
	return &View{store: s, version: version}
}

// Read implements store.ReadWriter.
func (v *View) Read(key []byte) ([]byte, error) {
	return v.store.Read(key, v.version)
}

// Write implements store.ReadWriter; always fails, see ErrReadOnlyView.
func (v *View) Write(key, value []byte) error {
	return ErrReadOnlyView
}

// Remove implements store.ReadWriter; always fails, see ErrReadOnlyView.
func (v *View) Remove(key []byte) error {
	return ErrReadOnlyView
}

// Scan implements store.Scanner over the view's point-in-time snapshot.
func (v *View) Scan(start, end []byte) ([]store.ScanPair, error) {
	pairs, err := v.store.Scan(start, end, v.version)
	if err != nil {
		return nil, err
	}
	out := make([]store.ScanPair, len(pairs))
	for i, kv := range pairs {
		out[i] = store.ScanPair{Key: kv.Key, Value: kv.Value}
	}
	return out, nil
}

var _ store.ReadWriter = (*View)(nil)
var _ store.Scanner = (*View)(nil)
