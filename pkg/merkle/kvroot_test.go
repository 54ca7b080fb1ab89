// Copyright 2025 Certen Protocol

package merkle

import "testing"

func TestKVRootOrderIndependent(t *testing.T) {
	a := []KVPair{
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("a"), Value: []byte("1")},
	}
	b := []KVPair{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}

	rootA, err := KVRoot(a)
	if err != nil {
		t.Fatalf("KVRoot(a): %v", err)
	}
	rootB, err := KVRoot(b)
	if err != nil {
		t.Fatalf("KVRoot(b): %v", err)
	}
	if string(rootA) != string(rootB) {
		t.Errorf("expected order-independent root, got %x != %x", rootA, rootB)
	}
}

func TestKVProveAndVerify(t *testing.T) {
	pairs := []KVPair{
		{Key: []byte("alice"), Value: []byte("100")},
		{Key: []byte("bob"), Value: []byte("50")},
		{Key: []byte("carol"), Value: []byte("25")},
	}

	root, err := KVRoot(pairs)
	if err != nil {
		t.Fatalf("KVRoot: %v", err)
	}

	proof, err := KVProve(pairs, []byte("bob"))
	if err != nil {
		t.Fatalf("KVProve: %v", err)
	}

	ok, err := VerifyKVProof([]byte("bob"), []byte("50"), proof, root)
	if err != nil {
		t.Fatalf("VerifyKVProof: %v", err)
	}
	if !ok {
		t.Errorf("expected proof to verify")
	}
}

func TestKVProveMissingKey(t *testing.T) {
	pairs := []KVPair{
		{Key: []byte("alice"), Value: []byte("100")},
	}
	if _, err := KVProve(pairs, []byte("nobody")); err != ErrLeafNotFound {
		t.Errorf("expected ErrLeafNotFound, got %v", err)
	}
}

func TestKVRootEmpty(t *testing.T) {
	root, err := KVRoot(nil)
	if err != nil {
		t.Fatalf("KVRoot(nil): %v", err)
	}
	if root != nil {
		t.Errorf("expected nil root for empty set, got %x", root)
	}
}
