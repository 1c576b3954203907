package host

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// outcome is what a dispatched message produced
type outcome struct {
	events []types.Event
	data   json.RawMessage
}

func (h *Host) dispatch(s storage.KVStore, block types.BlockInfo, sender types.Address, msg types.CosmosMsg, depth int) (outcome, error) {
	if depth > h.config.MaxCallDepth {
		return outcome{}, ErrCallDepthExceeded
	}
	switch {
	case msg.Bank != nil && msg.Bank.Send != nil:
		send := msg.Bank.Send
		if err := transfer(s, sender, send.ToAddress, send.Amount); err != nil {
			return outcome{}, err
		}
		ev := types.Event{Type: "transfer", Attributes: []types.Attribute{
			{Key: "recipient", Value: send.ToAddress.String()},
			{Key: "sender", Value: sender.String()},
			{Key: "amount", Value: coinsString(send.Amount)},
		}}
		return outcome{events: []types.Event{ev}}, nil

	case msg.Wasm != nil && msg.Wasm.Execute != nil:
		return h.execContract(s, block, sender, msg.Wasm.Execute, depth)

	case msg.Wasm != nil && msg.Wasm.Instantiate != nil:
		return h.instantiate(s, block, sender, msg.Wasm.Instantiate, depth)

	case msg.Wasm != nil && msg.Wasm.Migrate != nil:
		return h.migrate(s, block, sender, msg.Wasm.Migrate, depth)
	}
	return outcome{}, fmt.Errorf("%w: nothing to dispatch", types.ErrInvalidMessage)
}

func (h *Host) newContext(s storage.KVStore, block types.BlockInfo, addr, sender types.Address, funds []types.Coin) (*Context, error) {
	prefix, err := contractPrefix(addr)
	if err != nil {
		return nil, err
	}
	return &Context{
		Block:    block,
		Contract: addr,
		Sender:   sender,
		Funds:    funds,
		Store:    storage.NewPrefixStore(s, prefix),
		Querier:  h.newQuerier(s, block),
		Logger:   h.logger.With(zap.String("contract", addr.String())),
	}, nil
}

func (h *Host) execContract(s storage.KVStore, block types.BlockInfo, sender types.Address, m *types.WasmExecute, depth int) (outcome, error) {
	info, err := loadContract(s, m.ContractAddr)
	if err != nil {
		return outcome{}, err
	}
	c, err := h.code(info.CodeID)
	if err != nil {
		return outcome{}, err
	}
	if err := transfer(s, sender, m.ContractAddr, m.Funds); err != nil {
		return outcome{}, err
	}

	ctx, err := h.newContext(s, block, m.ContractAddr, sender, m.Funds)
	if err != nil {
		return outcome{}, err
	}
	resp, err := c.Execute(ctx, m.Msg)
	if err != nil {
		return outcome{}, err
	}
	return h.handleResponse(s, block, m.ContractAddr, "execute", resp, depth)
}

func (h *Host) instantiate(s storage.KVStore, block types.BlockInfo, sender types.Address, m *types.WasmInstantiate, depth int) (outcome, error) {
	c, err := h.code(m.CodeID)
	if err != nil {
		return outcome{}, err
	}
	seq, err := instanceSeq.Next(s)
	if err != nil {
		return outcome{}, err
	}
	addr := deriveAddress(h.config.AddressPrefix, sender, m.Label, seq)
	info := ContractInfo{CodeID: m.CodeID, Admin: m.Admin, Label: m.Label, Creator: sender, Created: block.Height}
	if err := contracts.Save(s, info, addr.Bytes()); err != nil {
		return outcome{}, err
	}
	if err := transfer(s, sender, addr, m.Funds); err != nil {
		return outcome{}, err
	}

	ctx, err := h.newContext(s, block, addr, sender, m.Funds)
	if err != nil {
		return outcome{}, err
	}
	resp, err := c.Instantiate(ctx, m.Msg)
	if err != nil {
		return outcome{}, fmt.Errorf("instantiate %s: %w", m.CodeID, err)
	}
	out, err := h.handleResponse(s, block, addr, "instantiate", resp, depth)
	if err != nil {
		return outcome{}, err
	}
	data, err := json.Marshal(InstantiateResult{ContractAddress: addr, Data: out.data})
	if err != nil {
		return outcome{}, err
	}
	out.data = data

	h.logger.Info("contract instantiated",
		zap.String("code", m.CodeID),
		zap.String("address", addr.String()),
		zap.String("label", m.Label))
	return out, nil
}

func (h *Host) migrate(s storage.KVStore, block types.BlockInfo, sender types.Address, m *types.WasmMigrate, depth int) (outcome, error) {
	info, err := loadContract(s, m.ContractAddr)
	if err != nil {
		return outcome{}, err
	}
	if info.Admin == nil || *info.Admin != sender {
		return outcome{}, ErrMigrateUnauthorized
	}
	c, err := h.code(m.NewCodeID)
	if err != nil {
		return outcome{}, err
	}
	mig, ok := c.(Migrator)
	if !ok {
		return outcome{}, fmt.Errorf("%w: %s", ErrNotMigratable, m.NewCodeID)
	}
	info.CodeID = m.NewCodeID
	if err := contracts.Save(s, info, m.ContractAddr.Bytes()); err != nil {
		return outcome{}, err
	}

	ctx, err := h.newContext(s, block, m.ContractAddr, sender, nil)
	if err != nil {
		return outcome{}, err
	}
	resp, err := mig.Migrate(ctx, m.Msg)
	if err != nil {
		return outcome{}, err
	}
	return h.handleResponse(s, block, m.ContractAddr, "migrate", resp, depth)
}

// handleResponse records the handler's events and runs its sub-messages in
// order
func (h *Host) handleResponse(s storage.KVStore, block types.BlockInfo, addr types.Address, kind string, resp *Response, depth int) (outcome, error) {
	if resp == nil {
		resp = NewResponse()
	}
	out := outcome{data: resp.Data}
	attrs := append([]types.Attribute{{Key: "_contract_address", Value: addr.String()}}, resp.Attributes...)
	out.events = append(out.events, types.Event{Type: kind, Contract: addr, Attributes: attrs})
	for _, ev := range resp.Events {
		ev.Contract = addr
		out.events = append(out.events, ev)
	}

	for _, sub := range resp.Messages {
		evs, data, err := h.runSubMsg(s, block, addr, sub, depth)
		if err != nil {
			return outcome{}, err
		}
		out.events = append(out.events, evs...)
		if data != nil {
			out.data = data
		}
	}
	return out, nil
}

// runSubMsg executes sub in a branch of s. The branch is written back on
// success and dropped on failure; failures without a matching reply abort the
// caller.
func (h *Host) runSubMsg(s storage.KVStore, block types.BlockInfo, caller types.Address, sub types.SubMsg, depth int) ([]types.Event, json.RawMessage, error) {
	branch := storage.NewBranch(s)
	res, err := h.dispatch(branch, block, caller, sub.Msg, depth+1)

	reply := types.Reply{ID: sub.ID, Target: subMsgTarget(sub.Msg)}
	if err != nil {
		branch.Discard()
		caught := sub.ReplyOn == types.ReplyError || sub.ReplyOn == types.ReplyAlways
		h.metrics.SubMsgFailed(caught)
		if !caught {
			return nil, nil, err
		}
		h.logger.Warn("sub-message failed",
			zap.String("caller", caller.String()),
			zap.String("target", reply.Target.String()),
			zap.Uint64("reply_id", sub.ID),
			zap.Error(err))
		reply.Error = err.Error()
		out, err := h.reply(s, block, caller, reply, depth)
		return out.events, out.data, err
	}

	if err := branch.Write(); err != nil {
		return nil, nil, err
	}
	if sub.ReplyOn != types.ReplySuccess && sub.ReplyOn != types.ReplyAlways {
		return res.events, nil, nil
	}
	reply.Data = res.data
	reply.Events = res.events
	out, err := h.reply(s, block, caller, reply, depth)
	if err != nil {
		return nil, nil, err
	}
	return append(res.events, out.events...), out.data, nil
}

func (h *Host) reply(s storage.KVStore, block types.BlockInfo, addr types.Address, reply types.Reply, depth int) (outcome, error) {
	info, err := loadContract(s, addr)
	if err != nil {
		return outcome{}, err
	}
	c, err := h.code(info.CodeID)
	if err != nil {
		return outcome{}, err
	}
	r, ok := c.(Replier)
	if !ok {
		return outcome{}, fmt.Errorf("%w: %s", ErrNoReplyHandler, addr)
	}
	ctx, err := h.newContext(s, block, addr, addr, nil)
	if err != nil {
		return outcome{}, err
	}
	resp, err := r.Reply(ctx, reply)
	if err != nil {
		return outcome{}, err
	}
	return h.handleResponse(s, block, addr, "reply", resp, depth)
}

func subMsgTarget(msg types.CosmosMsg) types.Address {
	if msg.Wasm != nil && msg.Wasm.Execute != nil {
		return msg.Wasm.Execute.ContractAddr
	}
	if msg.Wasm != nil && msg.Wasm.Migrate != nil {
		return msg.Wasm.Migrate.ContractAddr
	}
	return ""
}

func coinsString(coins []types.Coin) string {
	out := ""
	for i, c := range coins {
		if i > 0 {
			out += ","
		}
		out += c.String()
	}
	return out
}
