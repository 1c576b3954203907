package multiple

import (
	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// Proposal is a multiple choice proposal
type Proposal struct {
	Title           string                                   `json:"title"`
	Description     string                                   `json:"description"`
	Proposer        types.Address                            `json:"proposer"`
	StartHeight     uint64                                   `json:"start_height"`
	MinVotingPeriod *types.Expiration                        `json:"min_voting_period,omitempty"`
	Expiration      types.Expiration                         `json:"expiration"`
	Choices         []governance.CheckedMultipleChoiceOption `json:"choices"`
	Status          governance.Status                        `json:"status"`
	VotingStrategy  governance.VotingStrategy                `json:"voting_strategy"`
	TotalPower      types.Uint128                            `json:"total_power"`
	Votes           governance.MultipleChoiceVotes           `json:"votes"`
	AllowRevoting   bool                                     `json:"allow_revoting"`
	Veto            *governance.VetoConfig                   `json:"veto,omitempty"`
}

// Ballot is a stored vote
type Ballot = governance.Ballot[governance.MultipleChoiceVote]

var (
	config    = storage.NewItem[Config]("config")
	proposals = storage.NewMap[Proposal]("proposals")
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

// Winner returns the option with strictly the most votes. ok is false on a
// tie for first place.
func (p *Proposal) Winner() (winner governance.CheckedMultipleChoiceOption, ok bool) {
	best := -1
	tied := false
	for i, w := range p.Votes.VoteWeights {
		switch {
		case best < 0 || w.GT(p.Votes.VoteWeights[best]):
			best, tied = i, false
		case w.Equal(p.Votes.VoteWeights[best]):
			tied = true
		}
	}
	if best < 0 || tied || best >= len(p.Choices) {
		return governance.CheckedMultipleChoiceOption{}, false
	}
	return p.Choices[best], true
}

func (p *Proposal) quorumMet() (bool, error) {
	cast, err := p.Votes.Total()
	if err != nil {
		return false, err
	}
	return governance.DoesVoteCountPass(cast, p.TotalPower, p.VotingStrategy.Quorum()), nil
}

// IsPassed reports whether a standard option has won at block. Before
// expiration the leader must be unbeatable by the outstanding power.
func (p *Proposal) IsPassed(block types.BlockInfo) (bool, error) {
	expired := p.Expiration.IsExpired(block)
	if p.AllowRevoting && !expired {
		return false, nil
	}
	if governance.MinPeriodPending(p.MinVotingPeriod, block) {
		return false, nil
	}
	quorum, err := p.quorumMet()
	if err != nil || !quorum {
		return false, err
	}
	winner, ok := p.Winner()
	if !ok || winner.OptionType == governance.OptionNone {
		return false, nil
	}
	if expired {
		return true, nil
	}
	return p.unbeatable(winner)
}

// IsRejected reports whether no standard option can win anymore
func (p *Proposal) IsRejected(block types.BlockInfo) (bool, error) {
	expired := p.Expiration.IsExpired(block)
	if p.AllowRevoting && !expired {
		return false, nil
	}
	cast, err := p.Votes.Total()
	if err != nil {
		return false, err
	}
	winner, ok := p.Winner()
	if !ok {
		return expired || p.TotalPower.Equal(cast), nil
	}
	quorum, err := p.quorumMet()
	if err != nil {
		return false, err
	}
	switch {
	case !quorum && expired:
		return true, nil
	case expired:
		return winner.OptionType == governance.OptionNone, nil
	case winner.OptionType == governance.OptionNone:
		return p.unbeatable(winner)
	}
	return false, nil
}

// unbeatable reports whether the outstanding power could no longer lift the
// runner up past the winner. The none option also wins ties with the runner
// up since a tie rejects.
func (p *Proposal) unbeatable(winner governance.CheckedMultipleChoiceOption) (bool, error) {
	cast, err := p.Votes.Total()
	if err != nil {
		return false, err
	}
	lead := p.Votes.VoteWeights[winner.Index]
	second := types.ZeroUint128()
	for i, w := range p.Votes.VoteWeights {
		if uint32(i) != winner.Index && w.GT(second) {
			second = w
		}
	}
	reachable, err := second.Add(p.TotalPower.SaturatingSub(cast))
	if err != nil {
		return false, err
	}
	if winner.OptionType == governance.OptionNone {
		return lead.GTE(reachable), nil
	}
	return lead.GT(reachable), nil
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
