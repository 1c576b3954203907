package host

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

var errBoom = errors.New("boom")

var counter = storage.NewItem[uint64]("count")

// counterMsg drives the test contract
type counterMsg struct {
	Increment *struct{}       `json:"increment,omitempty"`
	Fail      *struct{}       `json:"fail,omitempty"`
	Call      *callMsg        `json:"call,omitempty"`
	Send      *types.BankSend `json:"send,omitempty"`
	Recurse   *types.Address  `json:"recurse,omitempty"`
}

type callMsg struct {
	Target  types.Address `json:"target"`
	Inner   counterMsg    `json:"inner"`
	ReplyOn types.ReplyOn `json:"reply_on"`
}

type counterContract struct {
	version string
}

func (c counterContract) Instantiate(ctx *Context, _ json.RawMessage) (*Response, error) {
	if err := SetContractVersion(ctx.Store, "counter", c.version); err != nil {
		return nil, err
	}
	return NewResponse().AddAttribute("action", "instantiate"), counter.Save(ctx.Store, 0)
}

func (c counterContract) Execute(ctx *Context, raw json.RawMessage) (*Response, error) {
	var msg counterMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	resp := NewResponse()
	switch {
	case msg.Increment != nil:
		n, err := counter.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return resp.AddAttribute("count", n+1), counter.Save(ctx.Store, n+1)
	case msg.Fail != nil:
		_ = counter.Save(ctx.Store, 1000)
		return nil, errBoom
	case msg.Call != nil:
		n, _ := counter.Load(ctx.Store)
		if err := counter.Save(ctx.Store, n+1); err != nil {
			return nil, err
		}
		cosmos, err := types.NewWasmExecute(msg.Call.Target, msg.Call.Inner)
		if err != nil {
			return nil, err
		}
		return resp.AddSubMessages(types.SubMsg{ID: 7, Msg: cosmos, ReplyOn: msg.Call.ReplyOn}), nil
	case msg.Send != nil:
		return resp.AddMessage(types.NewBankSend(msg.Send.ToAddress, msg.Send.Amount...)), nil
	case msg.Recurse != nil:
		cosmos, err := types.NewWasmExecute(*msg.Recurse, counterMsg{Recurse: msg.Recurse})
		if err != nil {
			return nil, err
		}
		return resp.AddMessage(cosmos), nil
	}
	return nil, errors.New("unknown message")
}

func (counterContract) Query(ctx *QueryContext, _ json.RawMessage) ([]byte, error) {
	n, err := counter.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	return JSON(n)
}

var lastReply = storage.NewItem[types.Reply]("last_reply")

func (counterContract) Reply(ctx *Context, reply types.Reply) (*Response, error) {
	return NewResponse().AddAttribute("reply", reply.ID), lastReply.Save(ctx.Store, reply)
}

func (counterContract) Migrate(ctx *Context, _ json.RawMessage) (*Response, error) {
	return NewResponse(), MigrateVersion(ctx.Store, "counter", "2.0.0")
}

func newTestHost(t *testing.T) *Host {
	t.Helper()
	h := New(DefaultConfig(), storage.NewMemStore(), nil, nil)
	require.NoError(t, h.RegisterCode("counter", counterContract{version: "1.0.0"}))
	return h
}

func instantiate(t *testing.T, h *Host, sender types.Address, admin *types.Address) types.Address {
	t.Helper()
	res := h.Execute(context.Background(), types.Tx{Sender: sender, Msg: types.CosmosMsg{Wasm: &types.WasmMsg{
		Instantiate: &types.WasmInstantiate{Admin: admin, CodeID: "counter", Msg: json.RawMessage(`{}`), Label: "counter"},
	}}})
	require.Empty(t, res.Error)
	var out InstantiateResult
	require.NoError(t, json.Unmarshal(res.Data, &out))
	return out.ContractAddress
}

func execute(t *testing.T, h *Host, sender, contract types.Address, msg counterMsg, funds ...types.Coin) types.TxResult {
	t.Helper()
	cosmos, err := types.NewWasmExecute(contract, msg, funds...)
	require.NoError(t, err)
	return h.Execute(context.Background(), types.Tx{Sender: sender, Msg: cosmos})
}

func count(t *testing.T, h *Host, contract types.Address) uint64 {
	t.Helper()
	raw, err := h.Query(context.Background(), contract, json.RawMessage(`{}`))
	require.NoError(t, err)
	var n uint64
	require.NoError(t, json.Unmarshal(raw, &n))
	return n
}

func TestExecuteCommitsAndRollsBack(t *testing.T) {
	h := newTestHost(t)
	addr := instantiate(t, h, "alice", nil)
	assert.Contains(t, string(addr), "dao1")

	res := execute(t, h, "alice", addr, counterMsg{Increment: &struct{}{}})
	require.Empty(t, res.Error)
	assert.Equal(t, uint64(1), count(t, h, addr))
	require.NotEmpty(t, res.Events)
	assert.Equal(t, "execute", res.Events[0].Type)
	assert.NotEmpty(t, res.TxID)

	res = execute(t, h, "alice", addr, counterMsg{Fail: &struct{}{}})
	assert.Contains(t, res.Error, "boom")
	assert.Equal(t, uint64(1), count(t, h, addr))
}

func TestAddressesAreUnique(t *testing.T) {
	h := newTestHost(t)
	a := instantiate(t, h, "alice", nil)
	b := instantiate(t, h, "alice", nil)
	assert.NotEqual(t, a, b)

	all, err := h.Contracts(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSubMessageFailureCaughtByReply(t *testing.T) {
	h := newTestHost(t)
	caller := instantiate(t, h, "alice", nil)
	target := instantiate(t, h, "alice", nil)

	res := execute(t, h, "alice", caller, counterMsg{Call: &callMsg{
		Target: target, Inner: counterMsg{Fail: &struct{}{}}, ReplyOn: types.ReplyError,
	}})
	require.Empty(t, res.Error)

	// caller's own write survives, the failed callee's write does not
	assert.Equal(t, uint64(1), count(t, h, caller))
	assert.Equal(t, uint64(0), count(t, h, target))

	tx, err := h.backend.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Discard()
	prefix, err := contractPrefix(caller)
	require.NoError(t, err)
	reply, err := lastReply.Load(storage.NewPrefixStore(tx, prefix))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), reply.ID)
	assert.Equal(t, target, reply.Target)
	assert.Contains(t, reply.Error, "boom")
}

func TestSubMessageFailureWithoutReplyAborts(t *testing.T) {
	h := newTestHost(t)
	caller := instantiate(t, h, "alice", nil)
	target := instantiate(t, h, "alice", nil)

	res := execute(t, h, "alice", caller, counterMsg{Call: &callMsg{
		Target: target, Inner: counterMsg{Fail: &struct{}{}}, ReplyOn: types.ReplyNever,
	}})
	assert.Contains(t, res.Error, "boom")
	assert.Equal(t, uint64(0), count(t, h, caller))
}

func TestSubMessageSuccessReply(t *testing.T) {
	h := newTestHost(t)
	caller := instantiate(t, h, "alice", nil)
	target := instantiate(t, h, "alice", nil)

	res := execute(t, h, "alice", caller, counterMsg{Call: &callMsg{
		Target: target, Inner: counterMsg{Increment: &struct{}{}}, ReplyOn: types.ReplySuccess,
	}})
	require.Empty(t, res.Error)
	assert.Equal(t, uint64(1), count(t, h, target))

	kinds := make([]string, 0, len(res.Events))
	for _, ev := range res.Events {
		kinds = append(kinds, ev.Type)
	}
	assert.Equal(t, []string{"execute", "execute", "reply"}, kinds)
}

func TestBankTransfers(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()
	require.NoError(t, h.Mint(ctx, "alice", types.NewCoin(100, "ujuno")))
	addr := instantiate(t, h, "alice", nil)

	res := execute(t, h, "alice", addr, counterMsg{Increment: &struct{}{}}, types.NewCoin(40, "ujuno"))
	require.Empty(t, res.Error)

	bal, err := h.Balance(ctx, addr, "ujuno")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), bal.Uint64())

	res = execute(t, h, "alice", addr, counterMsg{Send: &types.BankSend{ToAddress: "bob", Amount: []types.Coin{types.NewCoin(50, "ujuno")}}})
	assert.Contains(t, res.Error, ErrInsufficientFunds.Error())

	res = execute(t, h, "alice", addr, counterMsg{Send: &types.BankSend{ToAddress: "bob", Amount: []types.Coin{types.NewCoin(30, "ujuno")}}})
	require.Empty(t, res.Error)
	coins, err := h.Balances(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "30ujuno", coins[0].String())
}

func TestCallDepthLimit(t *testing.T) {
	h := newTestHost(t)
	addr := instantiate(t, h, "alice", nil)
	res := execute(t, h, "alice", addr, counterMsg{Recurse: &addr})
	assert.Contains(t, res.Error, ErrCallDepthExceeded.Error())
}

func TestMigrate(t *testing.T) {
	h := newTestHost(t)
	admin := types.Address("admin")
	addr := instantiate(t, h, "alice", &admin)

	migrate := func(sender types.Address) types.TxResult {
		return h.Execute(context.Background(), types.Tx{Sender: sender, Msg: types.CosmosMsg{Wasm: &types.WasmMsg{
			Migrate: &types.WasmMigrate{ContractAddr: addr, NewCodeID: "counter", Msg: json.RawMessage(`{}`)},
		}}})
	}

	assert.Contains(t, migrate("alice").Error, ErrMigrateUnauthorized.Error())
	require.Empty(t, migrate(admin).Error)
	assert.Contains(t, migrate(admin).Error, ErrMigrationInvalidVersion.Error())
}

func TestMigrateVersionGuard(t *testing.T) {
	s := storage.NewMemStore()
	require.NoError(t, SetContractVersion(s, "counter", "1.0.0"))
	assert.ErrorIs(t, MigrateVersion(s, "other", "2.0.0"), ErrMigrationIncorrectContract)
	assert.ErrorIs(t, MigrateVersion(s, "counter", "1.0.0"), ErrMigrationInvalidVersion)
	require.NoError(t, MigrateVersion(s, "counter", "1.1.0"))

	v, err := GetContractVersion(s)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", v.Version)
}

func TestQueryUnknownContract(t *testing.T) {
	h := newTestHost(t)
	_, err := h.Query(context.Background(), "nobody", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrContractNotFound)
}

func TestNextBlock(t *testing.T) {
	h := newTestHost(t)
	before := h.Block()
	after := h.NextBlock(5)
	assert.Equal(t, before.Height+1, after.Height)
	assert.Equal(t, before.Time.Seconds()+5, after.Time.Seconds())
}

func TestResumeLastBlock(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemStore()
	h := New(DefaultConfig(), backend, nil, nil)

	ok, err := h.Resume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	block := types.BlockInfo{Height: 42, Time: types.TimestampFromSeconds(1_700_000_000)}
	h.ExecuteBlock(ctx, block, nil)

	restarted := New(DefaultConfig(), backend, nil, nil)
	ok, err = restarted.Resume(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(42), restarted.Block().Height)
	assert.Equal(t, block.Time, restarted.Block().Time)
	assert.Equal(t, DefaultConfig().ChainID, restarted.Block().ChainID)
}
