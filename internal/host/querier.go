package host

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// Querier answers queries from inside a contract call. It sees the state of
// the running transaction, including the caller's uncommitted writes.
type Querier struct {
	host  *Host
	store storage.KVStore
	block types.BlockInfo
}

func (h *Host) newQuerier(s storage.KVStore, block types.BlockInfo) *Querier {
	return &Querier{host: h, store: s, block: block}
}

// QueryWasmSmart sends msg to contract and decodes the response into out
func (q *Querier) QueryWasmSmart(contract types.Address, msg any, out any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	resp, err := q.raw(contract, raw)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("decode query response from %s: %w", contract, err)
	}
	return nil
}

// QueryBalance returns addr's balance of denom
func (q *Querier) QueryBalance(addr types.Address, denom string) (types.Coin, error) {
	amount, err := getBalance(q.store, addr, denom)
	if err != nil {
		return types.Coin{}, err
	}
	return types.Coin{Denom: denom, Amount: amount}, nil
}

// ContractExists reports whether addr is an instantiated contract
func (q *Querier) ContractExists(addr types.Address) (bool, error) {
	return contracts.Has(q.store, addr.Bytes())
}

func (q *Querier) raw(contract types.Address, msg json.RawMessage) ([]byte, error) {
	info, err := loadContract(q.store, contract)
	if err != nil {
		return nil, err
	}
	c, err := q.host.code(info.CodeID)
	if err != nil {
		return nil, err
	}
	prefix, err := contractPrefix(contract)
	if err != nil {
		return nil, err
	}
	ctx := &QueryContext{
		Block:    q.block,
		Contract: contract,
		Store:    storage.ReadOnly{KVStore: storage.NewPrefixStore(q.store, prefix)},
		Querier:  q,
		Logger:   q.host.logger.With(zap.String("contract", contract.String())),
	}
	return c.Query(ctx, msg)
}
