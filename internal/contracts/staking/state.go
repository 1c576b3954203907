package staking

import (
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// MaxClaims bounds the outstanding claims per address
const MaxClaims = 70

var (
	dao        = storage.NewItem[types.Address]("dao")
	denom      = storage.NewItem[string]("denom")
	config     = storage.NewItem[Config]("config")
	hookPolicy = storage.NewItem[hooks.FailurePolicy]("hook_failure_policy")
	balances   = storage.NewSnapshotMap[types.Uint128]("staked_balances")
	stakedSum  = storage.NewSnapshotMap[types.Uint128]("total_staked")
	claims     = storage.NewMap[[]Claim]("claims")
	stakeHooks = hooks.New("hooks")
)

var totalKey = storage.Str("total")

func loadClaims(s storage.KVStore, addr types.Address) ([]Claim, error) {
	list, _, err := claims.MayLoad(s, addr.Bytes())
	return list, err
}

// releaseClaims removes every matured claim and returns their sum
func releaseClaims(s storage.KVStore, addr types.Address, block types.BlockInfo) (types.Uint128, error) {
	list, err := loadClaims(s, addr)
	if err != nil {
		return types.Uint128{}, err
	}
	released := types.ZeroUint128()
	var remaining []Claim
	for _, c := range list {
		if !c.ReleaseAt.IsExpired(block) {
			remaining = append(remaining, c)
			continue
		}
		if released, err = released.Add(c.Amount); err != nil {
			return types.Uint128{}, err
		}
	}
	if len(remaining) == 0 {
		return released, claims.Remove(s, addr.Bytes())
	}
	return released, claims.Save(s, remaining, addr.Bytes())
}
