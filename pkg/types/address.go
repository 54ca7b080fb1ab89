// Copyright 2025 Certen Protocol

package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// AddressSize is the width of an Address in bytes.
const AddressSize = 20

// Address identifies a contract or account. It is content-derived: see
// pkg/address for the derivation function.
type Address [AddressSize]byte

var ZeroAddress = Address{}

func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func AddressFromHex(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address hex: %w", err)
	}
	return AddressFromBytes(b)
}

func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])
	return out
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := AddressFromHex(s)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
