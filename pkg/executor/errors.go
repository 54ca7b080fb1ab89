// Copyright 2025 Certen Protocol

package executor

import "errors"

var ErrContractNotFound = errors.New("executor: contract not found")
