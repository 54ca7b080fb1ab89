// Copyright 2025 Certen Protocol
//
// Reference single-signature account contract (the Spot account type).
// Grounded on original_source/dango/types/src/account_factory/account.rs's
// AccountType enum — only Spot gets a real implementation here; Margin and
// Safe are named as constants only (see AccountType below and
// SPEC_FULL.md §9.A). Signature verification uses go-ethereum's crypto
// package (secp256k1/ECDSA), the same library pkg/address already depends
// on for Keccak256.

package account

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
	"github.com/OakenKnight/left-curve/pkg/vm/native"
)

// AccountType mirrors the Rust prototype's enum. Only Spot has a native
// contract implementation in this repo — Margin and Safe are richer account
// kinds (multi-collateral margin accounts, multisig safes) that spec.md's
// distillation scopes out, so they're recorded here as named constants a
// future contract could register against, not as working code.
type AccountType string

const (
	AccountSpot   AccountType = "spot"
	AccountMargin AccountType = "margin"
	AccountSafe   AccountType = "safe"
)

var (
	ErrInvalidSignature = errors.New("account: invalid signature")
	ErrSequenceMismatch = errors.New("account: sequence mismatch")
)

var (
	keyPublicKey = []byte("pubkey")
	keySequence  = []byte("sequence")
)

// InstantiateMsg sets the account's single signing key.
type InstantiateMsg struct {
	PublicKey []byte `json:"public_key"`
}

// signedTx is the shape `authenticate` receives: the transaction bytes it
// must verify a signature over are everything except Credential itself.
type signedTx struct {
	Sender     types.Address   `json:"sender"`
	Msgs       []types.Message `json:"msgs"`
	Credential []byte          `json:"credential"`
	Data       []byte          `json:"data,omitempty"`
}

// SequenceOf returns the account's current stored sequence number. Exported
// for tests that need to assert on persistence across a failed transaction.
func SequenceOf(s store.ReadWriter) (uint64, error) {
	return sequenceOf(s)
}

func sequenceOf(s store.ReadWriter) (uint64, error) {
	raw, err := s.Read(keySequence)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func setSequence(s store.ReadWriter, seq uint64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return s.Write(keySequence, b)
}

func instantiate(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error) {
	var m InstantiateMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("account: instantiate: %w", err)
	}
	if len(m.PublicKey) == 0 {
		return nil, fmt.Errorf("account: instantiate: missing public_key")
	}
	if err := s.Write(keyPublicKey, m.PublicKey); err != nil {
		return nil, err
	}
	if err := setSequence(s, 0); err != nil {
		return nil, err
	}
	return json.Marshal(types.Response{})
}

// authenticate verifies tx.Credential is a valid signature, by the account's
// stored public key, over the canonical JSON of tx with Credential cleared —
// and bumps the stored sequence. This write must persist even if later
// messages in the tx fail (spec.md §4.F step 4): the executor is
// responsible for committing this call's overlay unconditionally, this
// function itself has no special-cased persistence.
func authenticate(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, tx []byte) ([]byte, error) {
	var signed signedTx
	if err := json.Unmarshal(tx, &signed); err != nil {
		return nil, fmt.Errorf("account: authenticate: %w", err)
	}

	pubKey, err := s.Read(keyPublicKey)
	if err != nil {
		return nil, err
	}
	if pubKey == nil {
		return nil, fmt.Errorf("account: authenticate: no public key registered")
	}

	unsigned := signed
	unsigned.Credential = nil
	signBytes, err := json.Marshal(unsigned)
	if err != nil {
		return nil, err
	}
	digest := crypto.Keccak256(signBytes)

	if len(signed.Credential) != 65 {
		return nil, ErrInvalidSignature
	}
	recoveredPub, err := crypto.SigToPub(digest, signed.Credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	recoveredBytes := crypto.FromECDSAPub(recoveredPub)
	if !bytesEqual(recoveredBytes, pubKey) {
		return nil, ErrInvalidSignature
	}

	seq, err := sequenceOf(s)
	if err != nil {
		return nil, err
	}
	if err := setSequence(s, seq+1); err != nil {
		return nil, err
	}

	return json.Marshal(types.Response{
		Events: []types.Event{types.NewEvent("authenticate", types.Attr("sequence", fmt.Sprint(seq)))},
	})
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EntryPoints returns the native.EntryPoints struct implementing the Spot
// account contract, ready for native.Registry.Register.
func EntryPoints() native.EntryPoints {
	return native.EntryPoints{
		Instantiate:  instantiate,
		Authenticate: authenticate,
	}
}
