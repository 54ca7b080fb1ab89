// Copyright 2025 Certen Protocol
//
// Submessage / reply processing. Grounded on spec.md §4.E's reply_on table
// (Never/Success/Error/Always) and "reply runs in the parent's overlay; its
// returned Response is merged" rule.

package router

import (
	"context"
	"encoding/json"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
)

// processSubMsgs runs each of msgs in its own child overlay over parent, in
// declaration order, applying the reply_on table. sender is the contract
// whose Response produced msgs — it is also the contract reply is invoked
// on and the implicit sender of each submessage.
func (r *Router) processSubMsgs(ctx context.Context, parent store.ReadWriter, cfg *types.Config, sender types.Address, msgs []types.SubMsg, block types.BlockInfo, chainID string) ([]types.Event, error) {
	var events []types.Event

	for _, sub := range msgs {
		child := store.NewCacheOverlay(parent)
		ev, err := r.Dispatch(ctx, child, cfg, sender, sub.Msg, block, chainID)

		if err == nil {
			if commitErr := child.Commit(); commitErr != nil {
				return nil, commitErr
			}

			switch sub.ReplyOn {
			case types.ReplySuccess, types.ReplyAlways:
				replyEv, replyErr := r.reply(ctx, parent, sender, sub.Payload, types.SubMsgResult{
					Ok: &types.SubMsgSuccess{Events: []types.Event{ev}},
				}, block, chainID)
				if replyErr != nil {
					return nil, replyErr
				}
				events = append(events, ev.WithChildren(replyEv))
			default:
				events = append(events, ev)
			}
			continue
		}

		// Guest (or nested) error: child overlay is simply dropped, never
		// committed.
		switch sub.ReplyOn {
		case types.ReplyNever, types.ReplySuccess:
			return nil, err
		case types.ReplyError, types.ReplyAlways:
			replyEv, replyErr := r.reply(ctx, parent, sender, sub.Payload, types.SubMsgResult{
				Error: err.Error(),
			}, block, chainID)
			if replyErr != nil {
				return nil, replyErr
			}
			events = append(events, replyEv)
		}
	}

	return events, nil
}

// reply invokes the two-argument "reply" entry point on addr, in parent's
// overlay, with the original submessage payload and its result.
func (r *Router) reply(ctx context.Context, parent store.ReadWriter, addr types.Address, payload []byte, result types.SubMsgResult, block types.BlockInfo, chainID string) (types.Event, error) {
	info, err := loadContractInfo(parent, addr)
	if err != nil {
		return types.Event{}, err
	}
	code, err := loadCode(parent, info.CodeHash)
	if err != nil {
		return types.Event{}, err
	}
	contractStore := store.NewPrefixStore(parent, addr)
	querier := &Querier{Root: parent, Builder: r.Builder, Block: block, ChainID: chainID}
	instance, err := r.Builder.Build(contractStore, querier, info.CodeHash, code)
	if err != nil {
		return types.Event{}, err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return types.Event{}, err
	}
	callCtx := &types.Context{
		BlockHeight: block.Height, BlockTimestamp: block.TimestampSecs,
		ChainID: chainID, ContractAddress: addr,
	}
	out, err := instance.CallIn2Out1(ctx, "reply", callCtx, payload, resultBytes)
	if err != nil {
		return types.Event{}, err
	}
	resp, err := decodeResponse(out)
	if err != nil {
		return types.Event{}, err
	}
	ev := types.NewEvent("reply", types.Attr("contract", addr.String()))
	ev.Children = resp.Events
	return ev, nil
}
