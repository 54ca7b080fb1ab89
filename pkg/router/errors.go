// Copyright 2025 Certen Protocol

package router

import "errors"

var (
	ErrPermissionDenied      = errors.New("router: permission denied")
	ErrCodeNotFound          = errors.New("router: code not found")
	ErrContractAlreadyExists = errors.New("router: contract already exists at derived address")
	ErrContractNotFound      = errors.New("router: contract not found")
	ErrNotAdmin              = errors.New("router: sender is not the contract admin")
	ErrUnknownMessageKind    = errors.New("router: unknown message kind")
)
