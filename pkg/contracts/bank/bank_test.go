// Copyright 2025 Certen Protocol

package bank

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

func mustCoins(t *testing.T, denom string, amount uint64) types.Coins {
	t.Helper()
	coins, err := types.NewCoins(types.Coin{Denom: denom, Amount: types.NewUint128FromUint64(amount)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	return coins
}

func TestInstantiateSeedsBalances(t *testing.T) {
	s := memStore{}
	addr := types.Address{1}
	msg, _ := json.Marshal(InstantiateMsg{Balances: []AddressBalance{
		{Address: addr, Coins: mustCoins(t, "ucoin", 100)},
	}})

	ep := EntryPoints()
	if _, err := ep.Instantiate(context.Background(), &types.Context{}, s, nil, msg); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	bal, err := loadBalance(s, addr)
	if err != nil {
		t.Fatalf("loadBalance: %v", err)
	}
	if bal.AmountOf("ucoin").String() != "100" {
		t.Errorf("expected balance 100, got %s", bal.AmountOf("ucoin").String())
	}
}

func TestSendMovesFunds(t *testing.T) {
	s := memStore{}
	from := types.Address{1}
	to := types.Address{2}
	saveBalance(s, from, mustCoins(t, "ucoin", 100))

	msg, _ := json.Marshal(ExecuteMsg{Send: &SendMsg{From: from, To: to, Coins: mustCoins(t, "ucoin", 40)}})
	ep := EntryPoints()
	if _, err := ep.BankExecute(context.Background(), &types.Context{}, s, nil, msg); err != nil {
		t.Fatalf("BankExecute: %v", err)
	}

	fromBal, _ := loadBalance(s, from)
	toBal, _ := loadBalance(s, to)
	if fromBal.AmountOf("ucoin").String() != "60" {
		t.Errorf("expected sender balance 60, got %s", fromBal.AmountOf("ucoin").String())
	}
	if toBal.AmountOf("ucoin").String() != "40" {
		t.Errorf("expected receiver balance 40, got %s", toBal.AmountOf("ucoin").String())
	}
}

func TestSendInsufficientFundsFails(t *testing.T) {
	s := memStore{}
	from := types.Address{1}
	to := types.Address{2}
	saveBalance(s, from, mustCoins(t, "ucoin", 10))

	msg, _ := json.Marshal(ExecuteMsg{Send: &SendMsg{From: from, To: to, Coins: mustCoins(t, "ucoin", 40)}})
	ep := EntryPoints()
	if _, err := ep.BankExecute(context.Background(), &types.Context{}, s, nil, msg); err == nil {
		t.Errorf("expected insufficient funds error")
	}
}

func TestSendDeletesZeroBalance(t *testing.T) {
	s := memStore{}
	from := types.Address{1}
	to := types.Address{2}
	saveBalance(s, from, mustCoins(t, "ucoin", 40))

	msg, _ := json.Marshal(ExecuteMsg{Send: &SendMsg{From: from, To: to, Coins: mustCoins(t, "ucoin", 40)}})
	ep := EntryPoints()
	if _, err := ep.BankExecute(context.Background(), &types.Context{}, s, nil, msg); err != nil {
		t.Fatalf("BankExecute: %v", err)
	}

	if _, ok := s[string(balanceKey(from))]; ok {
		t.Errorf("expected zero balance key to be deleted (I5)")
	}
}
