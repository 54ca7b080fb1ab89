// Copyright 2025 Certen Protocol
//
// Grounded on original_source/crates/vm/rust/src/vm.rs's VmError enum
// (IncorrectNumberOfInputs is raised there for every unmatched entry point
// name in call_in_0_out_1/call_in_1_out_1/call_in_2_out_1).

package vm

import "errors"

var (
	// ErrUnknownEntryPoint is returned when name is a valid entry point for
	// the CallInNOut1 arity used but the contract does not implement it.
	ErrUnknownEntryPoint = errors.New("vm: unknown entry point")

	// ErrIncorrectNumberOfInputs is returned when name is not an entry point
	// of the CallInNOut1 arity it was called through, including names that
	// are no entry point at all.
	ErrIncorrectNumberOfInputs = errors.New("vm: incorrect number of inputs for entry point")
)
