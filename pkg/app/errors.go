// Copyright 2025 Certen Protocol
//
// Grounded on original_source/crates/app/src/error.rs's AppError enum:
// IncorrectBlockHeight and ProofNotSupported are fatal/per-query errors the
// adapter must distinguish from an ordinary tx failure.

package app

import (
	"errors"
	"fmt"
)

// ErrProofNotSupported is returned by QueryApp when prove=true: a smart
// query result isn't merkle-provable, only a raw store read is (§4.G).
var ErrProofNotSupported = errors.New("app: smart queries cannot be merkle-proved")

// ErrIncorrectBlockHeight reports a FinalizeBlock/InitChain call whose
// height doesn't match what the store expects next (I2/I3).
type ErrIncorrectBlockHeight struct {
	Expected uint64
	Got      uint64
}

func (e *ErrIncorrectBlockHeight) Error() string {
	return fmt.Sprintf("app: incorrect block height: expected %d, got %d", e.Expected, e.Got)
}
