// Copyright 2025 Certen Protocol

package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Coin is a single denom/amount pair.
type Coin struct {
	Denom  string  `json:"denom"`
	Amount Uint128 `json:"amount"`
}

// Coins is a denom -> amount mapping. Denoms are unique and every amount is
// strictly positive (I5: zero balances are deleted, never stored).
type Coins map[string]Uint128

// NewCoins builds a Coins value from a list, rejecting zero amounts and
// duplicate denoms.
func NewCoins(coins ...Coin) (Coins, error) {
	out := make(Coins, len(coins))
	for _, c := range coins {
		if c.Amount.IsZero() {
			return nil, fmt.Errorf("coin %q has zero amount, violates I5", c.Denom)
		}
		if _, exists := out[c.Denom]; exists {
			return nil, fmt.Errorf("duplicate denom %q", c.Denom)
		}
		out[c.Denom] = c.Amount
	}
	return out, nil
}

// Add returns a new Coins with amount added to denom, or a wrapped
// ErrOverflow if the sum exceeds 2^128-1. A zero sum (adding zero to a denom
// not held) is not stored (I5; see set).
func (c Coins) Add(denom string, amount Uint128) (Coins, error) {
	out := c.clone()
	cur, ok := out[denom]
	if !ok {
		cur = NewUint128FromUint64(0)
	}
	sum, err := cur.Add(amount)
	if err != nil {
		return nil, fmt.Errorf("denom %q: %w", denom, err)
	}
	return out.set(denom, sum), nil
}

// Sub returns a new Coins with amount subtracted from denom. Returns
// ErrUnderflow (wrapped) if the balance would go negative. If the result is
// exactly zero the denom is deleted (I5).
func (c Coins) Sub(denom string, amount Uint128) (Coins, error) {
	out := c.clone()
	cur, ok := out[denom]
	if !ok {
		cur = NewUint128FromUint64(0)
	}
	diff, err := cur.Sub(amount)
	if err != nil {
		return nil, fmt.Errorf("insufficient %s balance: %w", denom, err)
	}
	return out.set(denom, diff), nil
}

func (c Coins) set(denom string, amount Uint128) Coins {
	if amount.IsZero() {
		delete(c, denom)
		return c
	}
	c[denom] = amount
	return c
}

func (c Coins) clone() Coins {
	out := make(Coins, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// AmountOf returns the balance of denom, or zero if absent.
func (c Coins) AmountOf(denom string) Uint128 {
	if v, ok := c[denom]; ok {
		return v
	}
	return NewUint128FromUint64(0)
}

// sortedDenoms returns denoms in deterministic (lexical) order, required by
// §5's determinism rule for any iteration exposed to guests or serialized.
func (c Coins) sortedDenoms() []string {
	denoms := make([]string, 0, len(c))
	for d := range c {
		denoms = append(denoms, d)
	}
	sort.Strings(denoms)
	return denoms
}

// MarshalJSON encodes Coins as a sorted array of {denom, amount}, matching
// the Coin wire type rather than a bare map (map key order is already
// deterministic in encoding/json, but an explicit array is what guest code
// expects per the Message wire format in spec.md §3).
func (c Coins) MarshalJSON() ([]byte, error) {
	list := make([]Coin, 0, len(c))
	for _, d := range c.sortedDenoms() {
		list = append(list, Coin{Denom: d, Amount: c[d]})
	}
	return json.Marshal(list)
}

func (c *Coins) UnmarshalJSON(data []byte) error {
	var list []Coin
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	coins, err := NewCoins(list...)
	if err != nil {
		return err
	}
	*c = coins
	return nil
}
