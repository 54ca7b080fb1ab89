// Copyright 2025 Certen Protocol
//
// Reference bank contract. Grounded on
// original_source/contracts/bank/src/lib.rs's BALANCES map and Send execute
// message, translated from its placeholder u64 balance to this repo's
// checked types.Uint128/types.Coins arithmetic (I5: a balance reduced to
// zero is deleted, never stored).

package bank

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
	"github.com/OakenKnight/left-curve/pkg/vm/native"
)

func balanceKey(addr types.Address) []byte {
	return []byte("balance/" + addr.String())
}

// InstantiateMsg seeds genesis balances. A slice rather than a map keyed by
// Address, since Address isn't a JSON-object-key-safe type.
type InstantiateMsg struct {
	Balances []AddressBalance `json:"balances,omitempty"`
}

type AddressBalance struct {
	Address types.Address `json:"address"`
	Coins   types.Coins   `json:"coins"`
}

// ExecuteMsg is the bank_execute payload. Exactly one field is populated.
type ExecuteMsg struct {
	Send *SendMsg `json:"send,omitempty"`
}

type SendMsg struct {
	From  types.Address `json:"from"`
	To    types.Address `json:"to"`
	Coins types.Coins   `json:"coins"`
}

// QueryMsg is the bank_query payload. Exactly one field is populated.
type QueryMsg struct {
	Balance     *BalanceQuery     `json:"balance,omitempty"`
	AllBalances *AllBalancesQuery `json:"all_balances,omitempty"`
}

type BalanceQuery struct {
	Address types.Address `json:"address"`
	Denom   string        `json:"denom"`
}

type AllBalancesQuery struct {
	Address types.Address `json:"address"`
}

func loadBalance(s store.ReadWriter, addr types.Address) (types.Coins, error) {
	raw, err := s.Read(balanceKey(addr))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return types.Coins{}, nil
	}
	var coins types.Coins
	if err := json.Unmarshal(raw, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

func saveBalance(s store.ReadWriter, addr types.Address, coins types.Coins) error {
	if len(coins) == 0 {
		return s.Remove(balanceKey(addr))
	}
	encoded, err := json.Marshal(coins)
	if err != nil {
		return err
	}
	return s.Write(balanceKey(addr), encoded)
}

func instantiate(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error) {
	var m InstantiateMsg
	if len(msg) > 0 {
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, fmt.Errorf("bank: instantiate: %w", err)
		}
	}
	for _, ab := range m.Balances {
		if err := saveBalance(s, ab.Address, ab.Coins); err != nil {
			return nil, err
		}
	}
	return json.Marshal(types.Response{})
}

func send(s store.ReadWriter, from, to types.Address, coins types.Coins) error {
	fromBalance, err := loadBalance(s, from)
	if err != nil {
		return err
	}
	toBalance, err := loadBalance(s, to)
	if err != nil {
		return err
	}
	for denom, amount := range coins {
		fromBalance, err = fromBalance.Sub(denom, amount)
		if err != nil {
			return fmt.Errorf("bank: send: %w", err)
		}
		toBalance, err = toBalance.Add(denom, amount)
		if err != nil {
			return fmt.Errorf("bank: send: %w", err)
		}
	}
	if err := saveBalance(s, from, fromBalance); err != nil {
		return err
	}
	return saveBalance(s, to, toBalance)
}

func bankExecute(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error) {
	var m ExecuteMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("bank: execute: %w", err)
	}
	if m.Send == nil {
		return nil, fmt.Errorf("bank: execute: unknown message")
	}
	if err := send(s, m.Send.From, m.Send.To, m.Send.Coins); err != nil {
		return nil, err
	}
	return json.Marshal(types.Response{
		Events: []types.Event{
			types.NewEvent("bank_send",
				types.Attr("from", m.Send.From.String()),
				types.Attr("to", m.Send.To.String()),
			),
		},
	})
}

func bankQuery(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error) {
	var m QueryMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("bank: query: %w", err)
	}
	switch {
	case m.Balance != nil:
		coins, err := loadBalance(s, m.Balance.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(coins.AmountOf(m.Balance.Denom))
	case m.AllBalances != nil:
		coins, err := loadBalance(s, m.AllBalances.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(coins)
	default:
		return nil, fmt.Errorf("bank: query: unknown message")
	}
}

// EntryPoints returns the native.EntryPoints struct implementing the bank
// reference contract, ready for native.Registry.Register.
func EntryPoints() native.EntryPoints {
	return native.EntryPoints{
		Instantiate: instantiate,
		BankExecute: bankExecute,
		BankQuery:   bankQuery,
		// Query reuses bankQuery so an ordinary smart query (query_app,
		// the end-user-facing path) can read balances too, not just the
		// executor's specialized bank_query hook.
		Query: bankQuery,
	}
}
