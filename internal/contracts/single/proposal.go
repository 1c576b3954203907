package single

import (
	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// Proposal is a yes/no/abstain proposal
type Proposal struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Proposer        types.Address          `json:"proposer"`
	StartHeight     uint64                 `json:"start_height"`
	MinVotingPeriod *types.Expiration      `json:"min_voting_period,omitempty"`
	Expiration      types.Expiration       `json:"expiration"`
	Threshold       governance.Threshold   `json:"threshold"`
	TotalPower      types.Uint128          `json:"total_power"`
	Msgs            []types.CosmosMsg      `json:"msgs"`
	Status          governance.Status      `json:"status"`
	Votes           governance.Votes       `json:"votes"`
	AllowRevoting   bool                   `json:"allow_revoting"`
	Veto            *governance.VetoConfig `json:"veto,omitempty"`
}

// Ballot is a stored vote
type Ballot = governance.Ballot[governance.Vote]

var (
	config    = storage.NewItem[Config]("config")
	proposals = storage.NewMap[Proposal]("proposals_v2")
	ballots   = storage.NewMap[Ballot]("ballots")
)

// CurrentStatus evaluates the status at block without storing it
func (p *Proposal) CurrentStatus(block types.BlockInfo) (governance.Status, error) {
	switch p.Status.Kind {
	case governance.StatusOpen:
		passed, err := p.IsPassed(block)
		if err != nil {
			return governance.Status{}, err
		}
		if passed {
			return governance.PassedStatus(p.Veto, p.Expiration, block)
		}
		if p.Expiration.IsExpired(block) {
			return governance.Status{Kind: governance.StatusRejected}, nil
		}
		rejected, err := p.IsRejected(block)
		if err != nil {
			return governance.Status{}, err
		}
		if rejected {
			return governance.Status{Kind: governance.StatusRejected}, nil
		}
	case governance.StatusVetoTimelock:
		if p.Status.Expiration.IsExpired(block) {
			return governance.Status{Kind: governance.StatusPassed}, nil
		}
	}
	return p.Status, nil
}

// UpdateStatus stores the current status on p
func (p *Proposal) UpdateStatus(block types.BlockInfo) error {
	s, err := p.CurrentStatus(block)
	if err != nil {
		return err
	}
	p.Status = s
	return nil
}

// resolvable reports whether the outcome may be decided at block. With
// revoting enabled nothing is final before expiration.
func (p *Proposal) resolvable(block types.BlockInfo) bool {
	return !p.AllowRevoting || p.Expiration.IsExpired(block)
}

// IsPassed reports whether the votes meet the threshold at block. Before
// expiration percentages are taken of the total power, so a pass is only
// reported once no outstanding votes could undo it.
func (p *Proposal) IsPassed(block types.BlockInfo) (bool, error) {
	if !p.resolvable(block) || governance.MinPeriodPending(p.MinVotingPeriod, block) {
		return false, nil
	}
	cast, err := p.Votes.Total()
	if err != nil {
		return false, err
	}

	switch {
	case p.Threshold.AbsolutePercentage != nil:
		options := p.TotalPower.SaturatingSub(p.Votes.Abstain)
		return governance.DoesVoteCountPass(p.Votes.Yes, options, p.Threshold.AbsolutePercentage.Percentage), nil
	case p.Threshold.ThresholdQuorum != nil:
		t := p.Threshold.ThresholdQuorum
		if !governance.DoesVoteCountPass(cast, p.TotalPower, t.Quorum) {
			return false, nil
		}
		options := p.TotalPower.SaturatingSub(p.Votes.Abstain)
		if p.Expiration.IsExpired(block) {
			options = cast.SaturatingSub(p.Votes.Abstain)
		}
		return governance.DoesVoteCountPass(p.Votes.Yes, options, t.Threshold), nil
	case p.Threshold.AbsoluteCount != nil:
		return p.Votes.Yes.GTE(p.Threshold.AbsoluteCount.Threshold), nil
	}
	return false, governance.ErrInvalidThreshold
}

// IsRejected reports whether the proposal can no longer pass
func (p *Proposal) IsRejected(block types.BlockInfo) (bool, error) {
	if !p.resolvable(block) {
		return false, nil
	}
	cast, err := p.Votes.Total()
	if err != nil {
		return false, err
	}

	switch {
	case p.Threshold.AbsolutePercentage != nil:
		options := p.TotalPower.SaturatingSub(p.Votes.Abstain)
		return failsThreshold(p.Votes.No, options, p.Threshold.AbsolutePercentage.Percentage), nil
	case p.Threshold.ThresholdQuorum != nil:
		t := p.Threshold.ThresholdQuorum
		quorum := governance.DoesVoteCountPass(cast, p.TotalPower, t.Quorum)
		expired := p.Expiration.IsExpired(block)
		if !quorum && expired {
			return true, nil
		}
		options := p.TotalPower.SaturatingSub(p.Votes.Abstain)
		if quorum && expired {
			options = cast.SaturatingSub(p.Votes.Abstain)
		}
		return failsThreshold(p.Votes.No, options, t.Threshold), nil
	case p.Threshold.AbsoluteCount != nil:
		outstanding := p.TotalPower.SaturatingSub(cast)
		reachable, err := p.Votes.Yes.Add(outstanding)
		if err != nil {
			return false, err
		}
		return reachable.LT(p.Threshold.AbsoluteCount.Threshold), nil
	}
	return false, governance.ErrInvalidThreshold
}

// failsThreshold treats a 100% threshold as failed by any no vote
func failsThreshold(no, options types.Uint128, pct governance.PercentageThreshold) bool {
	if pct.Percent != nil && pct.Percent.Equal(types.OneDecimal()) {
		return options.IsZero() || !no.IsZero()
	}
	return governance.DoesVoteCountFail(no, options, pct)
}

func loadProposal(s storage.KVStore, id uint64) (Proposal, error) {
	p, ok, err := proposals.MayLoad(s, storage.U64(id))
	if err != nil {
		return p, err
	}
	if !ok {
		return p, &proposal.NoSuchProposalError{ID: id}
	}
	return p, nil
}
