// Package testutil runs contracts on an in-memory host for tests.
package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/contracts"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// Suite is a host with every contract and the hook counter registered
type Suite struct {
	t    *testing.T
	Host *host.Host
}

// NewSuite creates a fresh host at height 1
func NewSuite(t *testing.T) *Suite {
	t.Helper()
	h := host.New(host.DefaultConfig(), storage.NewMemStore(), nil, nil)
	require.NoError(t, contracts.Register(h))
	require.NoError(t, h.RegisterCode(HookCounterCodeID, hookCounter{}))
	return &Suite{t: t, Host: h}
}

// Block returns the current block
func (s *Suite) Block() types.BlockInfo {
	return s.Host.Block()
}

// NextBlock advances one block and the given seconds
func (s *Suite) NextBlock(seconds uint64) types.BlockInfo {
	return s.Host.NextBlock(seconds)
}

// AdvanceBlocks advances n blocks of 5 seconds each
func (s *Suite) AdvanceBlocks(n int) {
	for i := 0; i < n; i++ {
		s.Host.NextBlock(5)
	}
}

// Mint credits coins to addr
func (s *Suite) Mint(addr types.Address, coins ...types.Coin) {
	s.t.Helper()
	require.NoError(s.t, s.Host.Mint(context.Background(), addr, coins...))
}

// Balance returns addr's balance of denom
func (s *Suite) Balance(addr types.Address, denom string) types.Uint128 {
	s.t.Helper()
	b, err := s.Host.Balance(context.Background(), addr, denom)
	require.NoError(s.t, err)
	return b
}

// Run dispatches msg as sender and returns the raw result
func (s *Suite) Run(sender types.Address, msg types.CosmosMsg) types.TxResult {
	return s.Host.Execute(context.Background(), types.Tx{Sender: sender, Msg: msg})
}

// Instantiate creates a contract and fails the test on error
func (s *Suite) Instantiate(sender types.Address, codeID string, msg any, label string, funds ...types.Coin) types.Address {
	s.t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(s.t, err)
	if funds == nil {
		funds = []types.Coin{}
	}
	res := s.Run(sender, types.CosmosMsg{Wasm: &types.WasmMsg{Instantiate: &types.WasmInstantiate{
		CodeID: codeID,
		Msg:    raw,
		Funds:  funds,
		Label:  label,
	}}})
	require.Empty(s.t, res.Error, "instantiate %s", codeID)
	var out host.InstantiateResult
	require.NoError(s.t, json.Unmarshal(res.Data, &out))
	return out.ContractAddress
}

// InstantiateErr attempts an instantiation that is expected to fail and
// returns the error text
func (s *Suite) InstantiateErr(sender types.Address, codeID string, msg any) string {
	s.t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(s.t, err)
	res := s.Run(sender, types.CosmosMsg{Wasm: &types.WasmMsg{Instantiate: &types.WasmInstantiate{
		CodeID: codeID,
		Msg:    raw,
		Funds:  []types.Coin{},
		Label:  "failing",
	}}})
	require.NotEmpty(s.t, res.Error, "instantiate %s should fail", codeID)
	return res.Error
}

// Execute calls contract as sender
func (s *Suite) Execute(sender, contract types.Address, msg any, funds ...types.Coin) types.TxResult {
	s.t.Helper()
	cosmos, err := types.NewWasmExecute(contract, msg, funds...)
	require.NoError(s.t, err)
	return s.Run(sender, cosmos)
}

// MustExecute calls contract and fails the test on error
func (s *Suite) MustExecute(sender, contract types.Address, msg any, funds ...types.Coin) types.TxResult {
	s.t.Helper()
	res := s.Execute(sender, contract, msg, funds...)
	require.Empty(s.t, res.Error)
	return res
}

// Query runs msg against contract and decodes the response into out
func (s *Suite) Query(contract types.Address, msg any, out any) {
	s.t.Helper()
	require.NoError(s.t, s.TryQuery(contract, msg, out))
}

// TryQuery is Query returning the error
func (s *Suite) TryQuery(contract types.Address, msg any, out any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	resp, err := s.Host.Query(context.Background(), contract, raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp, out)
}

// Attr returns the first value of key among the events of res
func Attr(res types.TxResult, key string) (string, bool) {
	for _, ev := range res.Events {
		for _, a := range ev.Attributes {
			if a.Key == key {
				return a.Value, true
			}
		}
	}
	return "", false
}

// MustRaw marshals v for instantiate payloads
func MustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
