package delegation

import (
	"encoding/json"

	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/common"
	"github.com/daodao/core/pkg/types"
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
	case msg.Config != nil:
		cfg, err := config.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(cfg)
	case msg.Delegates != nil:
		return queryDelegates(ctx, msg.Delegates)
	case msg.Delegations != nil:
		return queryDelegations(ctx, msg.Delegations)
	case msg.UnvotedDelegatedVotingPower != nil:
		resp, err := UnvotedDelegatedVotingPower(ctx, *msg.UnvotedDelegatedVotingPower)
		if err != nil {
			return nil, err
		}
		return host.JSON(resp)
	case msg.ProposalModules != nil:
		return listKeys(ctx.Store, proposalHookCallers, msg.ProposalModules)
	case msg.VotingPowerHookCallers != nil:
		return listKeys(ctx.Store, votingPowerHookCallers, msg.VotingPowerHookCallers)
	}
	return nil, host.ErrUnknownVariant
}

func pageOptions(page *PageMsg) storage.RangeOptions {
	opts := storage.RangeOptions{Limit: common.ClampLimit(page.Limit, common.DefaultLimit, common.MaxLimit)}
	if page.StartAfter != nil {
		opts.Min = storage.ExclusiveBound(page.StartAfter.Bytes())
	}
	return opts
}

func listKeys(s storage.KVStore, m storage.Map[struct{}], page *PageMsg) ([]byte, error) {
	out := []types.Address{}
	err := m.Range(s, pageOptions(page), func(key []byte, _ struct{}) (bool, error) {
		out = append(out, types.Address(key))
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return host.JSON(out)
}

func queryDelegates(ctx *host.QueryContext, page *PageMsg) ([]byte, error) {
	out := DelegatesResponse{Delegates: []DelegateResponse{}}
	err := delegates.Range(ctx.Store, pageOptions(page), func(key []byte, _ struct{}) (bool, error) {
		power, err := latestDelegatedVP(ctx.Store, types.Address(key), ctx.Block)
		if err != nil {
			return true, err
		}
		out.Delegates = append(out.Delegates, DelegateResponse{Delegate: types.Address(key), Power: power})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return host.JSON(out)
}

func queryDelegations(ctx *host.QueryContext, q *DelegationsQuery) ([]byte, error) {
	height := ctx.Block.Height
	if q.Height != nil {
		height = *q.Height
	}
	var limit, offset uint64
	if q.Limit != nil {
		limit = *q.Limit
	}
	if q.Offset != nil {
		offset = *q.Offset
	}
	at := types.BlockInfo{Height: height, Time: ctx.Block.Time}
	items, err := delegations.Load(ctx.Store, q.Delegator.Bytes(), at, limit, offset)
	if err != nil {
		return nil, err
	}
	out := DelegationsResponse{Delegations: make([]DelegationResponse, 0, len(items)), Height: height}
	for _, it := range items {
		out.Delegations = append(out.Delegations, DelegationResponse{
			Delegate:   it.Item.Delegate,
			Percent:    it.Item.Percent,
			Expiration: it.Expiration,
		})
	}
	return host.JSON(out)
}

// UnvotedDelegatedVotingPower returns the delegated power a delegate may
// still use on a proposal. Effective applies the configured cap as a share
// of the DAO's total power at the height.
func UnvotedDelegatedVotingPower(ctx *host.QueryContext, q governance.UnvotedDelegatedVotingPowerQuery) (governance.UnvotedDelegatedVotingPowerResponse, error) {
	zero := governance.UnvotedDelegatedVotingPowerResponse{Effective: types.ZeroUint128(), Total: types.ZeroUint128()}
	registered, err := isRegistered(ctx.Store, q.Delegate, &q.Height)
	if err != nil || !registered {
		return zero, err
	}
	start := types.BlockInfo{Height: q.Height, Time: ctx.Block.Time}
	total, err := unvotedPower(ctx.Store, q.Delegate, q.ProposalModule, q.ProposalID, start)
	if err != nil {
		return zero, err
	}
	resp := governance.UnvotedDelegatedVotingPowerResponse{Effective: total, Total: total}

	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return zero, err
	}
	if cfg.VPCapPercent == nil {
		return resp, nil
	}
	owner, err := dao.Load(ctx.Store)
	if err != nil {
		return zero, err
	}
	daoPower, err := governance.GetTotalPower(ctx.Querier, owner, &q.Height)
	if err != nil {
		return zero, err
	}
	limit, err := cfg.VPCapPercent.MulFloor(daoPower)
	if err != nil {
		return zero, err
	}
	resp.Effective = types.MinUint128(total, limit)
	return resp, nil
}
