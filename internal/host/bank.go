package host

import (
	"fmt"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

var balances = storage.NewMap[types.Uint128]("h/bank")

func getBalance(s storage.KVStore, addr types.Address, denom string) (types.Uint128, error) {
	v, _, err := balances.MayLoad(s, addr.Bytes(), storage.Str(denom))
	return v, err
}

func addBalance(s storage.KVStore, addr types.Address, coin types.Coin) error {
	_, err := balances.Update(s, func(v types.Uint128, _ bool) (types.Uint128, error) {
		return v.Add(coin.Amount)
	}, addr.Bytes(), storage.Str(coin.Denom))
	return err
}

func subBalance(s storage.KVStore, addr types.Address, coin types.Coin) error {
	_, err := balances.Update(s, func(v types.Uint128, _ bool) (types.Uint128, error) {
		out, err := v.Sub(coin.Amount)
		if err != nil {
			return v, fmt.Errorf("%w: %s has %s%s, needs %s", ErrInsufficientFunds, addr, v, coin.Denom, coin)
		}
		return out, nil
	}, addr.Bytes(), storage.Str(coin.Denom))
	return err
}

func transfer(s storage.KVStore, from, to types.Address, coins []types.Coin) error {
	for _, c := range coins {
		if c.Amount.IsZero() {
			continue
		}
		if err := subBalance(s, from, c); err != nil {
			return err
		}
		if err := addBalance(s, to, c); err != nil {
			return err
		}
	}
	return nil
}

func allBalances(s storage.KVStore, addr types.Address) ([]types.Coin, error) {
	var out []types.Coin
	err := balances.Range(s, storage.RangeOptions{Prefix: [][]byte{addr.Bytes()}}, func(key []byte, v types.Uint128) (bool, error) {
		if !v.IsZero() {
			out = append(out, types.Coin{Denom: string(key), Amount: v})
		}
		return false, nil
	})
	return out, err
}
