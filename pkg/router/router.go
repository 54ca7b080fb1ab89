// Copyright 2025 Certen Protocol
//
// Message router (component E). Grounded on
// original_source/crates/app/src/app.rs::run_tx's process_msg loop, adapted
// from a free function into a Router struct holding the vm.Builder, per
// SPEC_FULL.md §4.E; the chain Config is passed to each Dispatch call.

package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OakenKnight/left-curve/pkg/address"
	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
)

// Router dispatches Messages and their SubMsg trees against a writable
// overlay. It holds no per-call state — every method takes the overlay,
// config, and call context it needs, so a single Router is reused across
// every tx and block.
type Router struct {
	Builder vm.Builder
}

// NewRouter returns a Router that loads and executes contract code through
// builder (a native registry, a wasm builder, or a composite of both).
func NewRouter(builder vm.Builder) *Router {
	return &Router{Builder: builder}
}

// Dispatch routes msg against root (a writable overlay) and returns the
// event tree for this call: a single node whose Type is the message kind,
// carrying the guest's own events and any submessage subtrees as children.
func (r *Router) Dispatch(ctx context.Context, root store.ReadWriter, cfg *types.Config, sender types.Address, msg types.Message, block types.BlockInfo, chainID string) (types.Event, error) {
	if err := msg.Validate(); err != nil {
		return types.Event{}, err
	}

	switch msg.Kind {
	case types.MessageUpload:
		return r.upload(root, cfg, sender, msg.Upload)
	case types.MessageInstantiate:
		return r.instantiate(ctx, root, cfg, sender, msg.Instantiate, block, chainID)
	case types.MessageExecute:
		return r.execute(ctx, root, cfg, sender, msg.Execute, block, chainID)
	case types.MessageMigrate:
		return r.migrate(ctx, root, sender, msg.Migrate, block, chainID)
	case types.MessageTransfer:
		return r.transfer(ctx, root, cfg, sender, msg.Transfer, block, chainID)
	default:
		return types.Event{}, ErrUnknownMessageKind
	}
}

func (r *Router) upload(root store.ReadWriter, cfg *types.Config, sender types.Address, m *types.MsgUpload) (types.Event, error) {
	if !cfg.Permissions.Upload.Allows(sender) {
		return types.Event{}, ErrPermissionDenied
	}
	codeHash := address.CodeHash(m.Code)
	key := types.CodeKey(codeHash)
	existing, err := root.Read(key)
	if err != nil {
		return types.Event{}, err
	}
	if existing == nil {
		if err := root.Write(key, m.Code); err != nil {
			return types.Event{}, err
		}
	}
	return types.NewEvent("upload", types.Attr("code_hash", codeHash.String())), nil
}

func (r *Router) instantiate(ctx context.Context, root store.ReadWriter, cfg *types.Config, sender types.Address, m *types.MsgInstantiate, block types.BlockInfo, chainID string) (types.Event, error) {
	if !cfg.Permissions.Instantiate.Allows(sender) {
		return types.Event{}, ErrPermissionDenied
	}

	addr := address.Derive(sender, m.CodeHash, m.Salt)
	contractKey := types.ContractKey(addr)
	existing, err := root.Read(contractKey)
	if err != nil {
		return types.Event{}, err
	}
	if existing != nil {
		return types.Event{}, ErrContractAlreadyExists
	}

	// The whole instantiate call — the contract/* write, the funds
	// transfer, and the guest call — runs in a child overlay so a guest
	// error rolls all three back together.
	child := store.NewCacheOverlay(root)

	info := types.ContractInfo{CodeHash: m.CodeHash, Label: m.Label, Admin: m.Admin}
	encoded, err := json.Marshal(info)
	if err != nil {
		return types.Event{}, err
	}
	if err := child.Write(contractKey, encoded); err != nil {
		return types.Event{}, err
	}

	if len(m.Funds) > 0 {
		if err := r.transferFunds(ctx, child, cfg, sender, addr, m.Funds, block, chainID); err != nil {
			return types.Event{}, err
		}
	}

	code, err := loadCode(root, m.CodeHash)
	if err != nil {
		return types.Event{}, err
	}
	contractStore := store.NewPrefixStore(child, addr)
	querier := &Querier{Root: child, Builder: r.Builder, Block: block, ChainID: chainID}
	instance, err := r.Builder.Build(contractStore, querier, m.CodeHash, code)
	if err != nil {
		return types.Event{}, err
	}
	callCtx := &types.Context{
		BlockHeight: block.Height, BlockTimestamp: block.TimestampSecs,
		Sender: &sender, Funds: m.Funds, ChainID: chainID, ContractAddress: addr,
	}

	out, err := instance.CallIn1Out1(ctx, "instantiate", callCtx, []byte(m.Msg))
	if err != nil {
		return types.Event{}, err
	}
	resp, err := decodeResponse(out)
	if err != nil {
		return types.Event{}, err
	}

	children, err := r.processSubMsgs(ctx, child, cfg, addr, resp.SubMsgs, block, chainID)
	if err != nil {
		return types.Event{}, err
	}
	if err := child.Commit(); err != nil {
		return types.Event{}, err
	}

	ev := types.NewEvent("instantiate", types.Attr("contract", addr.String()), types.Attr("code_hash", m.CodeHash.String()))
	ev.Children = append(append([]types.Event{}, resp.Events...), children...)
	return ev, nil
}

func (r *Router) execute(ctx context.Context, root store.ReadWriter, cfg *types.Config, sender types.Address, m *types.MsgExecute, block types.BlockInfo, chainID string) (types.Event, error) {
	info, err := loadContractInfo(root, m.Contract)
	if err != nil {
		return types.Event{}, err
	}

	child := store.NewCacheOverlay(root)

	if len(m.Funds) > 0 {
		if err := r.transferFunds(ctx, child, cfg, sender, m.Contract, m.Funds, block, chainID); err != nil {
			return types.Event{}, err
		}
	}

	code, err := loadCode(root, info.CodeHash)
	if err != nil {
		return types.Event{}, err
	}
	contractStore := store.NewPrefixStore(child, m.Contract)
	querier := &Querier{Root: child, Builder: r.Builder, Block: block, ChainID: chainID}
	instance, err := r.Builder.Build(contractStore, querier, info.CodeHash, code)
	if err != nil {
		return types.Event{}, err
	}
	callCtx := &types.Context{
		BlockHeight: block.Height, BlockTimestamp: block.TimestampSecs,
		Sender: &sender, Funds: m.Funds, ChainID: chainID, ContractAddress: m.Contract,
	}

	out, err := instance.CallIn1Out1(ctx, "execute", callCtx, []byte(m.Msg))
	if err != nil {
		return types.Event{}, err
	}
	resp, err := decodeResponse(out)
	if err != nil {
		return types.Event{}, err
	}

	children, err := r.processSubMsgs(ctx, child, cfg, m.Contract, resp.SubMsgs, block, chainID)
	if err != nil {
		return types.Event{}, err
	}
	if err := child.Commit(); err != nil {
		return types.Event{}, err
	}

	ev := types.NewEvent("execute", types.Attr("contract", m.Contract.String()))
	ev.Children = append(append([]types.Event{}, resp.Events...), children...)
	return ev, nil
}

func (r *Router) migrate(ctx context.Context, root store.ReadWriter, sender types.Address, m *types.MsgMigrate, block types.BlockInfo, chainID string) (types.Event, error) {
	info, err := loadContractInfo(root, m.Contract)
	if err != nil {
		return types.Event{}, err
	}
	if info.Admin == nil || *info.Admin != sender {
		return types.Event{}, ErrNotAdmin
	}

	info.CodeHash = m.NewCodeHash
	encoded, err := json.Marshal(info)
	if err != nil {
		return types.Event{}, err
	}
	if err := root.Write(types.ContractKey(m.Contract), encoded); err != nil {
		return types.Event{}, err
	}

	code, err := loadCode(root, m.NewCodeHash)
	if err != nil {
		return types.Event{}, err
	}
	contractStore := store.NewPrefixStore(root, m.Contract)
	querier := &Querier{Root: root, Builder: r.Builder, Block: block, ChainID: chainID}
	instance, err := r.Builder.Build(contractStore, querier, m.NewCodeHash, code)
	if err != nil {
		return types.Event{}, err
	}
	callCtx := &types.Context{
		BlockHeight: block.Height, BlockTimestamp: block.TimestampSecs,
		Sender: &sender, ChainID: chainID, ContractAddress: m.Contract,
	}
	out, err := instance.CallIn1Out1(ctx, "migrate", callCtx, []byte(m.Msg))
	if err != nil {
		return types.Event{}, err
	}
	resp, err := decodeResponse(out)
	if err != nil {
		return types.Event{}, err
	}

	ev := types.NewEvent("migrate", types.Attr("contract", m.Contract.String()), types.Attr("new_code_hash", m.NewCodeHash.String()))
	ev.Children = resp.Events
	return ev, nil
}

func (r *Router) transfer(ctx context.Context, root store.ReadWriter, cfg *types.Config, sender types.Address, m *types.MsgTransfer, block types.BlockInfo, chainID string) (types.Event, error) {
	if err := r.transferFunds(ctx, root, cfg, sender, m.To, m.Coins, block, chainID); err != nil {
		return types.Event{}, err
	}
	return types.NewEvent("transfer", types.Attr("to", m.To.String())), nil
}

// bankTransferMsg is the payload bank_execute expects for a plain transfer,
// grounded on original_source/contracts/bank/src/lib.rs's Send message.
type bankTransferMsg struct {
	Send *bankSend `json:"send"`
}

type bankSend struct {
	From  types.Address `json:"from"`
	To    types.Address `json:"to"`
	Coins types.Coins   `json:"coins"`
}

// transferFunds invokes bank_execute on cfg.Bank, the mechanism every funds
// movement in this repo goes through (instantiate/execute funds, plain
// Transfer messages) — never a direct balance mutation by the router.
func (r *Router) transferFunds(ctx context.Context, sw store.ReadWriter, cfg *types.Config, from, to types.Address, coins types.Coins, block types.BlockInfo, chainID string) error {
	info, err := loadContractInfo(sw, cfg.Bank)
	if err != nil {
		return fmt.Errorf("router: loading bank contract: %w", err)
	}
	code, err := loadCode(sw, info.CodeHash)
	if err != nil {
		return err
	}
	contractStore := store.NewPrefixStore(sw, cfg.Bank)
	querier := &Querier{Root: sw, Builder: r.Builder, Block: block, ChainID: chainID}
	instance, err := r.Builder.Build(contractStore, querier, info.CodeHash, code)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(bankTransferMsg{Send: &bankSend{From: from, To: to, Coins: coins}})
	if err != nil {
		return err
	}
	callCtx := &types.Context{
		BlockHeight: block.Height, BlockTimestamp: block.TimestampSecs,
		Sender: &from, ChainID: chainID, ContractAddress: cfg.Bank,
	}
	_, err = instance.CallIn1Out1(ctx, "bank_execute", callCtx, payload)
	return err
}

func decodeResponse(out []byte) (types.Response, error) {
	if len(out) == 0 {
		return types.Response{}, nil
	}
	var resp types.Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return types.Response{}, fmt.Errorf("router: decoding guest response: %w", err)
	}
	return resp, nil
}
