// Copyright 2025 Certen Protocol

package account

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

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
func (m memStore) Write(key, value []byte) error { m[string(key)] = append([]byte{}, value...); return nil }
func (m memStore) Remove(key []byte) error       { delete(m, string(key)); return nil }

func TestAuthenticateValidSignatureBumpsSequence(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pubBytes := crypto.FromECDSAPub(&priv.PublicKey)

	s := memStore{}
	instMsg, _ := json.Marshal(InstantiateMsg{PublicKey: pubBytes})
	ep := EntryPoints()
	if _, err := ep.Instantiate(context.Background(), &types.Context{}, s, nil, instMsg); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	unsigned := signedTx{Sender: types.Address{1}}
	signBytes, _ := json.Marshal(unsigned)
	digest := crypto.Keccak256(signBytes)
	sig, err := crypto.Sign(digest, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	signed := signedTx{Sender: types.Address{1}, Credential: sig}
	txBytes, _ := json.Marshal(signed)

	if _, err := ep.Authenticate(context.Background(), &types.Context{}, s, nil, txBytes); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	seq, err := sequenceOf(s)
	if err != nil {
		t.Fatalf("sequenceOf: %v", err)
	}
	if seq != 1 {
		t.Errorf("expected sequence 1 after authenticate, got %d", seq)
	}
}

func TestAuthenticateWrongKeyFails(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	pubBytes := crypto.FromECDSAPub(&other.PublicKey)

	s := memStore{}
	instMsg, _ := json.Marshal(InstantiateMsg{PublicKey: pubBytes})
	ep := EntryPoints()
	if _, err := ep.Instantiate(context.Background(), &types.Context{}, s, nil, instMsg); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	unsigned := signedTx{Sender: types.Address{1}}
	signBytes, _ := json.Marshal(unsigned)
	digest := crypto.Keccak256(signBytes)
	sig, _ := crypto.Sign(digest, priv)

	signed := signedTx{Sender: types.Address{1}, Credential: sig}
	txBytes, _ := json.Marshal(signed)

	if _, err := ep.Authenticate(context.Background(), &types.Context{}, s, nil, txBytes); err != ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}
