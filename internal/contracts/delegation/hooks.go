package delegation

import (
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// powerChanged handles a voting power hook. Delegates left without power are
// unregistered. For delegators, every delegation is recomputed from the new
// power by removing its old contribution and adding the new one, so repeated
// hooks in a block converge on the same totals.
func powerChanged(ctx *host.Context, addrs ...types.Address) (*host.Response, error) {
	trusted, err := votingPowerHookCallers.Has(ctx.Store, ctx.Sender.Bytes())
	if err != nil {
		return nil, err
	}
	if !trusted {
		return nil, ErrUnauthorizedHookCaller
	}
	for _, addr := range addrs {
		if err := updatePower(ctx, addr); err != nil {
			return nil, err
		}
	}
	return host.NewResponse().AddAttribute("action", "voting_power_change_hook"), nil
}

func updatePower(ctx *host.Context, addr types.Address) error {
	vp, err := nextBlockPower(ctx, addr)
	if err != nil {
		return err
	}
	registered, err := isRegistered(ctx.Store, addr, nil)
	if err != nil {
		return err
	}
	if registered {
		if vp.IsZero() {
			return delegates.Remove(ctx.Store, ctx.Block.Height, addr.Bytes())
		}
		return nil
	}

	if err := settleExpired(ctx.Store, ctx.Block, addr); err != nil {
		return err
	}
	live, err := delegations.LoadAllLatest(ctx.Store, addr.Bytes(), ctx.Block)
	if err != nil {
		return err
	}
	for _, d := range live {
		pair := [][]byte{addr.Bytes(), d.Item.Delegate.Bytes()}
		old, _, err := delegatedVPAmounts.MayLoad(ctx.Store, pair...)
		if err != nil {
			return err
		}
		next, err := delegatedPower(vp, d.Item.Percent)
		if err != nil {
			return err
		}
		if err := adjustDelegatedVP(ctx.Store, ctx.Block.Height, d.Item.Delegate, old, next); err != nil {
			return err
		}
		if err := delegatedVPAmounts.Save(ctx.Store, next, pair...); err != nil {
			return err
		}
		if err := trackLapse(ctx.Store, ctx.Block.Height, d.Item.Delegate, addr, d.Expiration, next); err != nil {
			return err
		}
	}
	return nil
}

// voteHook takes a delegator's share out of each delegate's unvoted power on
// the proposal the first time the delegator votes on it
func voteHook(ctx *host.Context, msg *hooks.VoteHookMsg) (*host.Response, error) {
	module := ctx.Sender
	trusted, err := proposalHookCallers.Has(ctx.Store, module.Bytes())
	if err != nil {
		return nil, err
	}
	if !trusted {
		return nil, ErrUnauthorizedHookCaller
	}
	vote := msg.NewVote
	if vote == nil || !vote.IsFirstVote {
		return host.NewResponse().AddAttribute("action", "vote_hook"), nil
	}

	// delegations active at the proposal's start, the same set whose power
	// makes up each delegate's unvoted power there
	at := types.BlockInfo{Height: vote.Height, Time: ctx.Block.Time}
	live, err := delegations.LoadAll(ctx.Store, vote.Voter.Bytes(), at)
	if err != nil {
		return nil, err
	}
	for _, d := range live {
		udvp, err := unvotedPower(ctx.Store, d.Item.Delegate, module, vote.ProposalID, at)
		if err != nil {
			return nil, err
		}
		share, err := delegatedPower(vote.Power, d.Item.Percent)
		if err != nil {
			return nil, err
		}
		key := [][]byte{d.Item.Delegate.Bytes(), module.Bytes(), storage.U64(vote.ProposalID)}
		if err := unvotedDelegatedVP.Save(ctx.Store, udvp.SaturatingSub(share), key...); err != nil {
			return nil, err
		}
	}
	return host.NewResponse().
		AddAttribute("action", "vote_hook").
		AddAttribute("proposal_id", vote.ProposalID).
		AddAttribute("voter", vote.Voter), nil
}
