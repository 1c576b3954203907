package single

import (
	"encoding/json"

	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// Query routes a query message
func (c *Contract) Query(ctx *host.QueryContext, raw json.RawMessage) ([]byte, error) {
	var msg QueryMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Config != nil:
		cfg, err := config.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(cfg)
	case msg.Proposal != nil:
		prop, err := loadProposal(ctx.Store, msg.Proposal.ProposalID)
		if err != nil {
			return nil, err
		}
		resp, err := toResponse(ctx.Block, msg.Proposal.ProposalID, prop)
		if err != nil {
			return nil, err
		}
		return host.JSON(resp)
	case msg.ListProposals != nil:
		return listProposals(ctx, proposal.ListOptions{
			StartAfter: msg.ListProposals.StartAfter,
			Limit:      msg.ListProposals.Limit,
		})
	case msg.ReverseProposals != nil:
		return listProposals(ctx, proposal.ListOptions{
			StartAfter: msg.ReverseProposals.StartBefore,
			Limit:      msg.ReverseProposals.Limit,
			Reverse:    true,
		})
	case msg.GetVote != nil:
		b, ok, err := ballots.MayLoad(ctx.Store, storage.U64(msg.GetVote.ProposalID), msg.GetVote.Voter.Bytes())
		if err != nil {
			return nil, err
		}
		if !ok {
			return host.JSON(VoteResponse{})
		}
		return host.JSON(VoteResponse{Vote: &VoteInfo{
			Voter:     msg.GetVote.Voter,
			Vote:      b.Vote,
			Power:     b.Power,
			Rationale: b.Rationale,
		}})
	case msg.ListVotes != nil:
		q := msg.ListVotes
		list, voters, err := proposal.ListBallots(ctx.Store, ballots, q.ProposalID, q.StartAfter, q.Limit)
		if err != nil {
			return nil, err
		}
		out := make([]VoteInfo, len(list))
		for i, b := range list {
			out[i] = VoteInfo{Voter: voters[i], Vote: b.Vote, Power: b.Power, Rationale: b.Rationale}
		}
		return host.JSON(VoteListResponse{Votes: out})
	}
	resp, ok, err := msg.SharedQuery.Handle(ctx)
	if !ok {
		return nil, host.ErrUnknownVariant
	}
	return resp, err
}

func toResponse(block types.BlockInfo, id uint64, prop Proposal) (ProposalResponse, error) {
	if err := prop.UpdateStatus(block); err != nil {
		return ProposalResponse{}, err
	}
	return ProposalResponse{ID: id, Proposal: prop}, nil
}

func listProposals(ctx *host.QueryContext, opts proposal.ListOptions) ([]byte, error) {
	list, err := proposal.ListProposals(ctx.Store, proposals, opts, func(id uint64, p Proposal) (ProposalResponse, error) {
		return toResponse(ctx.Block, id, p)
	})
	if err != nil {
		return nil, err
	}
	return host.JSON(ProposalListResponse{Proposals: list})
}
