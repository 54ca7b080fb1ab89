// Copyright 2025 Certen Protocol

package store

import (
	"sort"
	"testing"

	"github.com/OakenKnight/left-curve/pkg/types"
)

type memStore map[string][]byte

func (m memStore) Read(key []byte) ([]byte, error) {
	v, ok := m[string(key)]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (m memStore) Write(key, value []byte) error {
	m[string(key)] = append([]byte{}, value...)
	return nil
}

func (m memStore) Remove(key []byte) error {
	delete(m, string(key))
	return nil
}

func (m memStore) Scan(start, end []byte) ([]ScanPair, error) {
	var out []ScanPair
	for k, v := range m {
		key := []byte(k)
		if string(key) < string(start) {
			continue
		}
		if end != nil && string(key) >= string(end) {
			continue
		}
		out = append(out, ScanPair{Key: key, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i].Key) < string(out[j].Key) })
	return out, nil
}

func TestCacheOverlayReadFallsThroughOnMiss(t *testing.T) {
	parent := memStore{"a": []byte("1")}
	overlay := NewCacheOverlay(parent)

	v, err := overlay.Read([]byte("a"))
	if err != nil || string(v) != "1" {
		t.Fatalf("expected fallthrough read of 'a'=1, got %q, %v", v, err)
	}
}

func TestCacheOverlayWriteShadowsParentUntilCommit(t *testing.T) {
	parent := memStore{"a": []byte("1")}
	overlay := NewCacheOverlay(parent)

	if err := overlay.Write([]byte("a"), []byte("2")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	v, _ := overlay.Read([]byte("a"))
	if string(v) != "2" {
		t.Errorf("expected overlay value '2', got %q", v)
	}
	if string(parent["a"]) != "1" {
		t.Errorf("expected parent unchanged before commit, got %q", parent["a"])
	}

	if err := overlay.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if string(parent["a"]) != "2" {
		t.Errorf("expected parent updated after commit, got %q", parent["a"])
	}
}

func TestCacheOverlayRemoveIsTombstoned(t *testing.T) {
	parent := memStore{"a": []byte("1")}
	overlay := NewCacheOverlay(parent)

	if err := overlay.Remove([]byte("a")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	v, _ := overlay.Read([]byte("a"))
	if v != nil {
		t.Errorf("expected tombstoned read to return nil, got %q", v)
	}

	if err := overlay.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, ok := parent["a"]; ok {
		t.Errorf("expected key removed from parent after commit")
	}
}

func TestCacheOverlayDiscardDropsChanges(t *testing.T) {
	parent := memStore{"a": []byte("1")}
	overlay := NewCacheOverlay(parent)
	overlay.Write([]byte("a"), []byte("2"))
	overlay.Discard()

	v, _ := overlay.Read([]byte("a"))
	if string(v) != "1" {
		t.Errorf("expected discard to revert to parent value, got %q", v)
	}
}

func TestPrefixStoreIsolatesNamespace(t *testing.T) {
	parent := memStore{}
	addrA := types.Address{1}
	addrB := types.Address{2}

	storeA := NewPrefixStore(parent, addrA)
	storeB := NewPrefixStore(parent, addrB)

	storeA.Write([]byte("k"), []byte("a-value"))
	storeB.Write([]byte("k"), []byte("b-value"))

	va, _ := storeA.Read([]byte("k"))
	vb, _ := storeB.Read([]byte("k"))

	if string(va) != "a-value" || string(vb) != "b-value" {
		t.Errorf("expected isolated namespaces, got a=%q b=%q", va, vb)
	}
}

func TestPrefixStoreScanIsolatesNamespace(t *testing.T) {
	parent := memStore{}
	addrA := types.Address{1}
	addrB := types.Address{2}

	storeA := NewPrefixStore(parent, addrA)
	storeB := NewPrefixStore(parent, addrB)

	storeA.Write([]byte("k1"), []byte("a1"))
	storeA.Write([]byte("k2"), []byte("a2"))
	storeB.Write([]byte("k1"), []byte("b1"))

	pairs, err := storeA.Scan(nil, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs scoped to storeA, got %d", len(pairs))
	}
	for _, p := range pairs {
		if string(p.Key) != "k1" && string(p.Key) != "k2" {
			t.Errorf("unexpected key %q leaked from another namespace", p.Key)
		}
	}
}

func TestCacheOverlayScanMergesPendingOverParent(t *testing.T) {
	parent := memStore{"a": []byte("1"), "b": []byte("2")}
	overlay := NewCacheOverlay(parent)
	overlay.Write([]byte("a"), []byte("1-new"))
	overlay.Remove([]byte("b"))
	overlay.Write([]byte("c"), []byte("3"))

	pairs, err := overlay.Scan(nil, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	got := map[string]string{}
	for _, p := range pairs {
		got[string(p.Key)] = string(p.Value)
	}
	if got["a"] != "1-new" {
		t.Errorf("expected overlay write to shadow parent, got %q", got["a"])
	}
	if _, ok := got["b"]; ok {
		t.Errorf("expected tombstoned key 'b' absent from scan")
	}
	if got["c"] != "3" {
		t.Errorf("expected new overlay key 'c', got %q", got["c"])
	}
}
