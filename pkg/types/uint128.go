// Copyright 2025 Certen Protocol

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// ErrOverflow and ErrUnderflow are returned by the checked arithmetic below.
// Invariant I5 forbids silently clamping a balance to zero or to the max
// value; every caller must propagate these.
var (
	ErrOverflow  = errors.New("uint128 overflow")
	ErrUnderflow = errors.New("uint128 underflow")
)

// maxUint128 is 2^128 - 1.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Uint128 is an unsigned 128-bit integer, serialized as a decimal string on
// the wire per spec.md §6 ("Coin amounts are decimal-string unsigned
// 128-bit").
type Uint128 struct {
	v big.Int
}

// NewUint128FromUint64 constructs a Uint128 from a uint64.
func NewUint128FromUint64(n uint64) Uint128 {
	var u Uint128
	u.v.SetUint64(n)
	return u
}

// ParseUint128 parses a decimal string into a Uint128.
func ParseUint128(s string) (Uint128, error) {
	var u Uint128
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return u, fmt.Errorf("invalid uint128 decimal string %q", s)
	}
	if n.Sign() < 0 || n.Cmp(maxUint128) > 0 {
		return u, fmt.Errorf("uint128 value %q out of range", s)
	}
	u.v.Set(n)
	return u, nil
}

func (u Uint128) IsZero() bool {
	return u.v.Sign() == 0
}

func (u Uint128) String() string {
	return u.v.String()
}

func (u Uint128) Cmp(other Uint128) int {
	return u.v.Cmp(&other.v)
}

// Add returns u+other, or ErrOverflow if the result exceeds 2^128-1.
func (u Uint128) Add(other Uint128) (Uint128, error) {
	var out Uint128
	out.v.Add(&u.v, &other.v)
	if out.v.Cmp(maxUint128) > 0 {
		return Uint128{}, ErrOverflow
	}
	return out, nil
}

// Sub returns u-other, or ErrUnderflow if other > u.
func (u Uint128) Sub(other Uint128) (Uint128, error) {
	if u.v.Cmp(&other.v) < 0 {
		return Uint128{}, ErrUnderflow
	}
	var out Uint128
	out.v.Sub(&u.v, &other.v)
	return out, nil
}

func (u Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.v.String())
}

func (u *Uint128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseUint128(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
