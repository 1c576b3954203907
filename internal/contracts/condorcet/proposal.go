package condorcet

import (
	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// Proposal is a ranked choice proposal. The last choice is none of the
// above.
type Proposal struct {
	ID                      uint64                         `json:"id"`
	Proposer                types.Address                  `json:"proposer"`
	Quorum                  governance.PercentageThreshold `json:"quorum"`
	MinVotingPeriod         *types.Expiration              `json:"min_voting_period,omitempty"`
	CloseOnExecutionFailure bool                           `json:"close_on_execution_failure"`
	TotalPower              types.Uint128                  `json:"total_power"`
	Choices                 []Choice                       `json:"choices"`
	Status                  governance.Status              `json:"status"`
	Winner                  *uint32                        `json:"winner,omitempty"`
}

var (
	config    = storage.NewItem[Config]("config")
	proposals = storage.NewMap[Proposal]("proposal")
	tallies   = storage.NewMap[Tally]("tally")
	ballots   = storage.NewMap[Ballot]("vote")
)

// CurrentStatus evaluates the status at block against tally without
// storing it. The returned choice is set when the status is passed.
func (p *Proposal) CurrentStatus(block types.BlockInfo, t *Tally) (governance.Status, *uint32) {
	if !p.Status.Is(governance.StatusOpen) {
		return p.Status, p.Winner
	}
	open := governance.Open()
	rejected := governance.Status{Kind: governance.StatusRejected}
	expired := t.Expired(block)

	cast := p.TotalPower.SaturatingSub(t.PowerOutstanding)
	quorum := governance.DoesVoteCountPass(cast, p.TotalPower, p.Quorum)

	switch {
	case t.Winner.Never != nil:
		return rejected, nil
	case t.Winner.Some != nil && expired, t.Winner.Undisputed != nil && (expired || !governance.MinPeriodPending(p.MinVotingPeriod, block)):
		if !quorum {
			if expired {
				return rejected, nil
			}
			return open, nil
		}
		w, _ := t.Winner.Choice()
		if int(w) == len(p.Choices)-1 {
			return rejected, nil
		}
		return governance.Status{Kind: governance.StatusPassed}, &w
	case expired:
		return rejected, nil
	}
	return open, nil
}

// UpdateStatus stores the current status on p
func (p *Proposal) UpdateStatus(block types.BlockInfo, t *Tally) {
	p.Status, p.Winner = p.CurrentStatus(block, t)
}

func load(s storage.KVStore, id uint64) (Proposal, Tally, error) {
	p, ok, err := proposals.MayLoad(s, storage.U64(id))
	if err != nil {
		return p, Tally{}, err
	}
	if !ok {
		return p, Tally{}, &proposal.NoSuchProposalError{ID: id}
	}
	t, err := tallies.Load(s, storage.U64(id))
	return p, t, err
}
