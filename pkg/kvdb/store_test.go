// Copyright 2025 Certen Protocol

package kvdb

import (
	"encoding/hex"
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/OakenKnight/left-curve/pkg/merkle"
)

func TestFlushAndCommitRoundTrip(t *testing.T) {
	s, err := NewStore(dbm.NewMemDB())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	pending := map[string][]byte{"chain_id": []byte("left-curve-1")}
	version, root, err := s.FlushAndCommit(pending, nil)
	if err != nil {
		t.Fatalf("FlushAndCommit: %v", err)
	}
	if version != 0 {
		t.Errorf("expected genesis version 0, got %d", version)
	}
	if root == nil {
		t.Errorf("expected non-nil root after writing data")
	}

	v, err := s.Read([]byte("chain_id"), nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(v) != "left-curve-1" {
		t.Errorf("expected 'left-curve-1', got %q", v)
	}
}

func TestCommitWithoutFlushFails(t *testing.T) {
	s, err := NewStore(dbm.NewMemDB())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Commit(); err != ErrNoStagedVersion {
		t.Errorf("expected ErrNoStagedVersion, got %v", err)
	}
}

func TestHistoricalReadAtVersion(t *testing.T) {
	s, err := NewStore(dbm.NewMemDB())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if _, _, err := s.FlushAndCommit(map[string][]byte{"k": []byte("v0")}, nil); err != nil {
		t.Fatalf("flush 0: %v", err)
	}
	if _, _, err := s.FlushAndCommit(map[string][]byte{"k": []byte("v1")}, nil); err != nil {
		t.Fatalf("flush 1: %v", err)
	}

	zero := uint64(0)
	v, err := s.Read([]byte("k"), &zero)
	if err != nil {
		t.Fatalf("Read at version 0: %v", err)
	}
	if string(v) != "v0" {
		t.Errorf("expected historical read 'v0', got %q", v)
	}

	latest, err := s.Read([]byte("k"), nil)
	if err != nil {
		t.Fatalf("Read latest: %v", err)
	}
	if string(latest) != "v1" {
		t.Errorf("expected latest read 'v1', got %q", latest)
	}
}

func TestProveAndVerify(t *testing.T) {
	s, err := NewStore(dbm.NewMemDB())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, _, err := s.FlushAndCommit(map[string][]byte{"k": []byte("v")}, nil); err != nil {
		t.Fatalf("flush: %v", err)
	}

	root, err := s.RootHash(nil)
	if err != nil {
		t.Fatalf("RootHash: %v", err)
	}

	proof, err := s.Prove([]byte("k"), nil)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if proof.MerkleRoot != hex.EncodeToString(root) {
		t.Errorf("proof root mismatch")
	}

	ok, err := merkle.VerifyKVProof([]byte("k"), []byte("v"), proof, root)
	if err != nil {
		t.Fatalf("VerifyKVProof: %v", err)
	}
	if !ok {
		t.Errorf("expected proof to verify against the store's root")
	}
}
