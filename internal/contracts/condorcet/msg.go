package condorcet

import (
	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/pkg/types"
)

// Config is the module configuration
type Config struct {
	Quorum                           governance.PercentageThreshold `json:"quorum"`
	VotingPeriod                     types.Duration                 `json:"voting_period"`
	MinVotingPeriod                  *types.Duration                `json:"min_voting_period,omitempty"`
	CloseProposalsOnExecutionFailure bool                           `json:"close_proposals_on_execution_failure"`
}

// Validate checks the quorum and the voting periods
func (c Config) Validate() error {
	if err := governance.ValidateQuorum(c.Quorum); err != nil {
		return err
	}
	return governance.ValidateVotingPeriod(c.MinVotingPeriod, c.VotingPeriod)
}

// InstantiateMsg configures a new module. The sender is the DAO.
type InstantiateMsg struct {
	Config
	HookFailurePolicy hooks.FailurePolicy `json:"hook_failure_policy,omitempty"`
}

// Choice is one candidate outcome
type Choice struct {
	Msgs []types.CosmosMsg `json:"msgs"`
}

// ProposeMsg creates a proposal. A none of the above choice is appended.
type ProposeMsg struct {
	Choices []Choice `json:"choices"`
}

// VoteMsg casts a full ranking, most preferred first
type VoteMsg struct {
	ProposalID uint64   `json:"proposal_id"`
	Vote       []uint32 `json:"vote"`
}

// ProposalIDMsg addresses one proposal
type ProposalIDMsg struct {
	ProposalID uint64 `json:"proposal_id"`
}

// ExecuteMsg is the execute interface
type ExecuteMsg struct {
	Propose      *ProposeMsg    `json:"propose,omitempty"`
	Vote         *VoteMsg       `json:"vote,omitempty"`
	Execute      *ProposalIDMsg `json:"execute,omitempty"`
	Close        *ProposalIDMsg `json:"close,omitempty"`
	UpdateConfig *Config        `json:"update_config,omitempty"`
	proposal.AdminMsg
}

// GetVoteQuery loads one ballot
type GetVoteQuery struct {
	ProposalID uint64        `json:"proposal_id"`
	Voter      types.Address `json:"voter"`
}

// QueryMsg is the query interface
type QueryMsg struct {
	Config   *struct{}      `json:"config,omitempty"`
	Proposal *ProposalIDMsg `json:"proposal,omitempty"`
	GetVote  *GetVoteQuery  `json:"get_vote,omitempty"`
	proposal.SharedQuery
}

// ProposalResponse is a proposal, status brought up to date, with its tally
type ProposalResponse struct {
	Proposal Proposal `json:"proposal"`
	Tally    Tally    `json:"tally"`
}

// Ballot is a stored ranking
type Ballot = governance.Ballot[[]uint32]

// VoteResponse holds a ballot if one was cast
type VoteResponse struct {
	Vote *Ballot `json:"vote"`
}
