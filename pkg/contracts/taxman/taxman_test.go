// Copyright 2025 Certen Protocol

package taxman

import (
	"context"
	"encoding/json"
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
func (m memStore) Write(key, value []byte) error { m[string(key)] = append([]byte{}, value...); return nil }
func (m memStore) Remove(key []byte) error       { delete(m, string(key)); return nil }

func instantiated(t *testing.T) memStore {
	t.Helper()
	s := memStore{}
	msg, _ := json.Marshal(InstantiateMsg{FeeDenom: "ucoin", FeeAmount: "5"})
	ep := EntryPoints()
	if _, err := ep.Instantiate(context.Background(), &types.Context{}, s, nil, msg); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	return s
}

func TestWithholdFeeThenFinalizeFeeClearsReserve(t *testing.T) {
	s := instantiated(t)
	sender := types.Address{1}
	rawTx, _ := json.Marshal(types.Transaction{Sender: sender})

	ep := EntryPoints()
	if _, err := ep.WithholdFee(context.Background(), &types.Context{}, s, nil, rawTx); err != nil {
		t.Fatalf("WithholdFee: %v", err)
	}
	if _, ok := s[string(reserveKey(sender))]; !ok {
		t.Fatalf("expected a reserve entry after withhold_fee")
	}

	if _, err := ep.FinalizeFee(context.Background(), &types.Context{}, s, nil, rawTx); err != nil {
		t.Fatalf("FinalizeFee: %v", err)
	}
	if _, ok := s[string(reserveKey(sender))]; ok {
		t.Errorf("expected reserve entry to be cleared after finalize_fee")
	}
}

func TestFinalizeFeeWithoutReserveFails(t *testing.T) {
	s := instantiated(t)
	sender := types.Address{1}
	rawTx, _ := json.Marshal(types.Transaction{Sender: sender})

	ep := EntryPoints()
	if _, err := ep.FinalizeFee(context.Background(), &types.Context{}, s, nil, rawTx); err == nil {
		t.Errorf("expected error finalizing a fee that was never withheld")
	}
}
