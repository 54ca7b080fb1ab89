// Copyright 2025 Certen Protocol

package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the width of a Hash in bytes.
const HashSize = 32

// Hash is a fixed-width digest used for code hashes, state roots, and tx hashes.
type Hash [HashSize]byte

// ZeroHash is the all-zero hash, returned for app hash before genesis.
var ZeroHash = Hash{}

// HashFromBytes copies b into a Hash. b must be exactly HashSize bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromHex decodes a hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash hex: %w", err)
	}
	return HashFromBytes(b)
}

func (h Hash) Bytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := HashFromHex(s)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}
