package rewards

import (
	"encoding/json"

	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/common"
)

// Query routes a query message
func (c *Contract) Query(ctx *host.QueryContext, raw json.RawMessage) ([]byte, error) {
	var msg QueryMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Info != nil:
		return host.QueryInfo(ctx.Store)
	case msg.Ownership != nil:
		return queryOwnership(ctx)
	case msg.PendingRewards != nil:
		resp, err := PendingRewards(ctx, msg.PendingRewards)
		if err != nil {
			return nil, err
		}
		return host.JSON(resp)
	case msg.UndistributedRewards != nil:
		d, err := loadDistribution(ctx.Store, msg.UndistributedRewards.ID)
		if err != nil {
			return nil, err
		}
		amount, err := d.undistributed(ctx.Block)
		if err != nil {
			return nil, err
		}
		return host.JSON(amount)
	case msg.Distribution != nil:
		d, err := loadDistribution(ctx.Store, msg.Distribution.ID)
		if err != nil {
			return nil, err
		}
		return host.JSON(d)
	case msg.Distributions != nil:
		out := DistributionsResponse{Distributions: []Distribution{}}
		err := distributions.Range(ctx.Store, pageOptions(msg.Distributions.StartAfter, msg.Distributions.Limit), func(_ []byte, d Distribution) (bool, error) {
			out.Distributions = append(out.Distributions, d)
			return false, nil
		})
		if err != nil {
			return nil, err
		}
		return host.JSON(out)
	}
	return nil, host.ErrUnknownVariant
}

func pageOptions(startAfter *uint64, limit *uint32) storage.RangeOptions {
	opts := storage.RangeOptions{Limit: common.ClampLimit(limit, common.DefaultLimit, common.MaxLimit)}
	if startAfter != nil {
		opts.Min = storage.ExclusiveBound(storage.U64(*startAfter))
	}
	return opts
}

func queryOwnership(ctx *host.QueryContext) ([]byte, error) {
	var out Ownership
	if o, ok, err := owner.MayLoad(ctx.Store); err != nil {
		return nil, err
	} else if ok {
		out.Owner = &o
	}
	if p, ok, err := pendingOwner.MayLoad(ctx.Store); err != nil {
		return nil, err
	} else if ok {
		out.PendingOwner = &p
	}
	return host.JSON(out)
}

// PendingRewards reports what q.Address could claim from each distribution
// at the current block, including rewards not yet settled
func PendingRewards(ctx *host.QueryContext, q *PendingRewardsQuery) (PendingRewardsResponse, error) {
	out := PendingRewardsResponse{PendingRewards: []DistributionPendingRewards{}}
	if err := q.Address.Validate(); err != nil {
		return out, err
	}
	var list []Distribution
	err := distributions.Range(ctx.Store, pageOptions(q.StartAfter, q.Limit), func(_ []byte, d Distribution) (bool, error) {
		list = append(list, d)
		return false, nil
	})
	if err != nil {
		return out, err
	}

	height := ctx.Block.Height
	for _, d := range list {
		if err := d.accrue(ctx.Querier, ctx.Block); err != nil {
			return out, err
		}
		total, err := d.totalApplicablePUVP()
		if err != nil {
			return out, err
		}
		state, _, err := userRewards.MayLoad(ctx.Store, q.Address.Bytes(), storage.U64(d.ID))
		if err != nil {
			return out, err
		}
		power, err := governance.GetVotingPower(ctx.Querier, d.VPContract, q.Address, &height)
		if err != nil {
			return out, err
		}
		earned, err := accrued(power, total, state.AccountedPUVP)
		if err != nil {
			return out, err
		}
		pending, err := state.Pending.Add(earned)
		if err != nil {
			return out, err
		}
		out.PendingRewards = append(out.PendingRewards, DistributionPendingRewards{ID: d.ID, Denom: d.Denom, PendingRewards: pending})
	}
	return out, nil
}
