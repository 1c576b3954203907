package delegation

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

var (
	dao    = storage.NewItem[types.Address]("dao")
	config = storage.NewItem[Config]("config")

	// registered delegates, snapshotted so registration can be read at a
	// proposal's start height
	delegates = storage.NewSnapshotMap[struct{}]("delegates")
	// delegations keyed by delegator
	delegations = storage.NewSnapshotVectorMap[Delegation]("delegations")
	// (delegator, delegate) -> delegation id
	delegationIDs = storage.NewMap[uint64]("delegation_ids")
	// delegator -> sum of active percents
	percentDelegated = storage.NewMap[types.Decimal]("percent_delegated")
	// delegate -> total delegated power
	delegatedVP = storage.NewSnapshotMap[types.Uint128]("delegated_vp")
	// delegate -> contributions of expiring delegations, written at the same
	// heights as delegatedVP so both read consistently at any height
	lapses = storage.NewSnapshotMap[[]Lapse]("delegated_vp_lapses")
	// (delegator, delegate) -> power the delegation currently contributes
	delegatedVPAmounts = storage.NewMap[types.Uint128]("delegated_vp_amounts")
	// (delegate, proposal module, proposal id) -> delegated power not yet
	// used by a delegator voting directly
	unvotedDelegatedVP = storage.NewMap[types.Uint128]("unvoted_delegated_vp")

	proposalHookCallers    = storage.NewMap[struct{}]("proposal_hook_callers")
	votingPowerHookCallers = storage.NewMap[struct{}]("voting_power_hook_callers")
)

// Lapse is the power an expiring delegation contributes to its delegate.
// It stops counting once Expiration has passed, whether or not the
// delegator has since touched the delegation.
type Lapse struct {
	Delegator  types.Address    `json:"delegator"`
	Expiration types.Expiration `json:"expiration"`
	Amount     types.Uint128    `json:"amount"`
}

// nextBlockPower reads addr's power as it will be at the start of the next
// block, which includes changes made in the current one
func nextBlockPower(ctx *host.Context, addr types.Address) (types.Uint128, error) {
	d, err := dao.Load(ctx.Store)
	if err != nil {
		return types.Uint128{}, err
	}
	h := ctx.Block.Height + 1
	return governance.GetVotingPower(ctx.Querier, d, addr, &h)
}

// delegatedPower is the share of power a delegation carries, rounded down
func delegatedPower(power types.Uint128, percent types.Decimal) (types.Uint128, error) {
	return percent.MulFloor(power)
}

func isRegistered(s storage.KVStore, delegate types.Address, height *uint64) (bool, error) {
	if height == nil {
		return delegates.Has(s, delegate.Bytes())
	}
	return delegates.HasAtHeight(s, *height, delegate.Bytes())
}

// adjustDelegatedVP swaps a delegation's old contribution for its new one in
// the delegate's total. The write is visible to historical reads from the
// next block.
func adjustDelegatedVP(s storage.KVStore, height uint64, delegate types.Address, old, next types.Uint128) error {
	_, err := delegatedVP.Update(s, height, func(v types.Uint128, exists bool) (types.Uint128, error) {
		if !exists {
			v = types.ZeroUint128()
		}
		v, err := v.Sub(old)
		if err != nil {
			return v, fmt.Errorf("delegated power of %s: %w", delegate, err)
		}
		return v.Add(next)
	}, delegate.Bytes())
	return err
}

// trackLapse records what delegator's delegation to delegate carries until
// it expires. A nil expiration forgets the delegation.
func trackLapse(s storage.KVStore, height uint64, delegate, delegator types.Address, exp *types.Expiration, amount types.Uint128) error {
	cur, _, err := lapses.MayLoad(s, delegate.Bytes())
	if err != nil {
		return err
	}
	next := lo.Reject(cur, func(l Lapse, _ int) bool { return l.Delegator == delegator })
	if exp == nil && len(next) == len(cur) {
		return nil
	}
	if exp != nil {
		next = append(next, Lapse{Delegator: delegator, Expiration: *exp, Amount: amount})
	}
	if len(next) == 0 {
		return lapses.Remove(s, height, delegate.Bytes())
	}
	return lapses.Save(s, next, height, delegate.Bytes())
}

// withoutLapsed subtracts the contributions that have expired by block
func withoutLapsed(total types.Uint128, pending []Lapse, block types.BlockInfo) types.Uint128 {
	for _, l := range pending {
		if l.Expiration.IsExpired(block) {
			total = total.SaturatingSub(l.Amount)
		}
	}
	return total
}

// activeDelegatedVP is delegate's delegated power at the start of
// block.Height from delegations still active in that block
func activeDelegatedVP(s storage.KVStore, delegate types.Address, block types.BlockInfo) (types.Uint128, error) {
	total, ok, err := delegatedVP.MayLoadAtHeight(s, block.Height, delegate.Bytes())
	if err != nil {
		return types.Uint128{}, err
	}
	if !ok {
		return types.ZeroUint128(), nil
	}
	pending, _, err := lapses.MayLoadAtHeight(s, block.Height, delegate.Bytes())
	if err != nil {
		return types.Uint128{}, err
	}
	return withoutLapsed(total, pending, block), nil
}

// latestDelegatedVP is delegate's delegated power in the latest state from
// delegations not expired by block
func latestDelegatedVP(s storage.KVStore, delegate types.Address, block types.BlockInfo) (types.Uint128, error) {
	total, ok, err := delegatedVP.MayLoad(s, delegate.Bytes())
	if err != nil {
		return types.Uint128{}, err
	}
	if !ok {
		return types.ZeroUint128(), nil
	}
	pending, _, err := lapses.MayLoad(s, delegate.Bytes())
	if err != nil {
		return types.Uint128{}, err
	}
	return withoutLapsed(total, pending, block), nil
}

// unvotedPower returns the delegated power delegate may still vote with on
// a proposal: the stored remainder once a delegator has voted, otherwise the
// delegated power active at the proposal's start
func unvotedPower(s storage.KVStore, delegate, module types.Address, id uint64, start types.BlockInfo) (types.Uint128, error) {
	u, ok, err := unvotedDelegatedVP.MayLoad(s, delegate.Bytes(), module.Bytes(), storage.U64(id))
	if err != nil || ok {
		return u, err
	}
	return activeDelegatedVP(s, delegate, start)
}

// settleExpired removes delegations of delegator that have lapsed, giving
// their power and percent back to the delegator
func settleExpired(s storage.KVStore, block types.BlockInfo, delegator types.Address) error {
	live, err := delegations.LoadAllLatest(s, delegator.Bytes(), block)
	if err != nil {
		return err
	}
	active := make(map[uint64]struct{}, len(live))
	for _, d := range live {
		active[d.ID] = struct{}{}
	}
	ids, err := delegationIDs.Entries(s, storage.RangeOptions{Prefix: [][]byte{delegator.Bytes()}})
	if err != nil {
		return err
	}
	for _, e := range ids {
		if _, ok := active[e.Value]; ok {
			continue
		}
		if err := dropDelegation(s, block, delegator, types.Address(e.Key), e.Value); err != nil {
			return err
		}
	}
	return nil
}

// dropDelegation removes a delegation and its contribution to the delegate
func dropDelegation(s storage.KVStore, block types.BlockInfo, delegator, delegate types.Address, id uint64) error {
	d, err := delegations.Remove(s, delegator.Bytes(), id, block)
	if err != nil {
		return err
	}
	if err := delegationIDs.Remove(s, delegator.Bytes(), delegate.Bytes()); err != nil {
		return err
	}

	pct, err := percentDelegated.Load(s, delegator.Bytes())
	if err != nil {
		return err
	}
	pct, err = pct.Sub(d.Percent)
	if err != nil {
		return err
	}
	if err := percentDelegated.Save(s, pct, delegator.Bytes()); err != nil {
		return err
	}
	if err := trackLapse(s, block.Height, delegate, delegator, nil, types.Uint128{}); err != nil {
		return err
	}

	amount, ok, err := delegatedVPAmounts.MayLoad(s, delegator.Bytes(), delegate.Bytes())
	if err != nil || !ok {
		return err
	}
	if err := delegatedVPAmounts.Remove(s, delegator.Bytes(), delegate.Bytes()); err != nil {
		return err
	}
	return adjustDelegatedVP(s, block.Height, delegate, amount, types.ZeroUint128())
}
