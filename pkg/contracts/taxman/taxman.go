// Copyright 2025 Certen Protocol
//
// Reference taxman contract. Gas-metered fee accounting is explicitly
// deferred by spec.md §1's scope note, so withhold_fee/finalize_fee here
// reserve and settle a flat per-tx fee rather than a gas-weighted one —
// the hooks exist so the executor pipeline (spec.md §4.F steps 6 and 9)
// has something real to call, per SPEC_FULL.md §9.A.

package taxman

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
	"github.com/OakenKnight/left-curve/pkg/vm/native"
)

// InstantiateMsg sets the flat fee charged per transaction, denominated in
// FeeDenom.
type InstantiateMsg struct {
	FeeDenom  string `json:"fee_denom"`
	FeeAmount string `json:"fee_amount"`
}

func reserveKey(addr types.Address) []byte {
	return []byte("reserve/" + addr.String())
}

func loadConfig(s store.ReadWriter) (string, string, error) {
	raw, err := s.Read([]byte("config"))
	if err != nil {
		return "", "", err
	}
	if raw == nil {
		return "", "", fmt.Errorf("taxman: not instantiated")
	}
	var m InstantiateMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", "", err
	}
	return m.FeeDenom, m.FeeAmount, nil
}

func instantiate(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error) {
	var m InstantiateMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("taxman: instantiate: %w", err)
	}
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := s.Write([]byte("config"), encoded); err != nil {
		return nil, err
	}
	return json.Marshal(types.Response{})
}

// withholdFee records the flat fee as reserved against the tx sender. It
// never touches the bank contract's balances directly — per spec.md §4.A,
// a contract only ever mutates its own prefixed namespace — so this is
// strictly a local reservation ledger, not an actual debit.
func withholdFee(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, rawTx []byte) ([]byte, error) {
	var tx types.Transaction
	if err := json.Unmarshal(rawTx, &tx); err != nil {
		return nil, fmt.Errorf("taxman: withhold_fee: %w", err)
	}
	denom, amount, err := loadConfig(s)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(InstantiateMsg{FeeDenom: denom, FeeAmount: amount})
	if err != nil {
		return nil, err
	}
	if err := s.Write(reserveKey(tx.Sender), encoded); err != nil {
		return nil, err
	}
	return json.Marshal(types.Response{
		Events: []types.Event{
			types.NewEvent("withhold_fee",
				types.Attr("sender", tx.Sender.String()),
				types.Attr("denom", denom),
				types.Attr("amount", amount),
			),
		},
	})
}

// finalizeFee settles the reservation withholdFee made for this tx. No
// refund path exists yet — every tx that reaches finalize_fee consumes its
// whole reserve, since gas accounting (and therefore partial refunds) is
// out of scope per spec.md §1.
func finalizeFee(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, rawTx []byte) ([]byte, error) {
	var tx types.Transaction
	if err := json.Unmarshal(rawTx, &tx); err != nil {
		return nil, fmt.Errorf("taxman: finalize_fee: %w", err)
	}
	raw, err := s.Read(reserveKey(tx.Sender))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("taxman: finalize_fee: no reserve for %s", tx.Sender)
	}
	if err := s.Remove(reserveKey(tx.Sender)); err != nil {
		return nil, err
	}
	var m InstantiateMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return json.Marshal(types.Response{
		Events: []types.Event{
			types.NewEvent("finalize_fee",
				types.Attr("sender", tx.Sender.String()),
				types.Attr("denom", m.FeeDenom),
				types.Attr("amount", m.FeeAmount),
			),
		},
	})
}

// EntryPoints returns the native.EntryPoints struct implementing the
// taxman reference contract, ready for native.Registry.Register.
func EntryPoints() native.EntryPoints {
	return native.EntryPoints{
		Instantiate: instantiate,
		WithholdFee: withholdFee,
		FinalizeFee: finalizeFee,
	}
}
