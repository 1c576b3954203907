package single

import (
	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/pkg/types"
)

// Config is the module configuration. Open proposals keep the threshold,
// revoting and veto settings they were created with.
type Config struct {
	Threshold                       governance.Threshold   `json:"threshold"`
	MaxVotingPeriod                 types.Duration         `json:"max_voting_period"`
	MinVotingPeriod                 *types.Duration        `json:"min_voting_period,omitempty"`
	OnlyMembersExecute              bool                   `json:"only_members_execute"`
	AllowRevoting                   bool                   `json:"allow_revoting"`
	CloseProposalOnExecutionFailure bool                   `json:"close_proposal_on_execution_failure"`
	Veto                            *governance.VetoConfig `json:"veto,omitempty"`
	DelegationModule                *types.Address         `json:"delegation_module,omitempty"`
}

// Validate checks the threshold, the voting periods and the veto config
func (c Config) Validate() error {
	if err := c.Threshold.Validate(); err != nil {
		return err
	}
	if err := governance.ValidateVotingPeriod(c.MinVotingPeriod, c.MaxVotingPeriod); err != nil {
		return err
	}
	if c.Veto != nil {
		if err := c.Veto.Validate(c.MaxVotingPeriod); err != nil {
			return err
		}
	}
	if c.DelegationModule != nil {
		return c.DelegationModule.Validate()
	}
	return nil
}

// InstantiateMsg configures a new module. The sender is the DAO.
type InstantiateMsg struct {
	Config
	CreationPolicy    *governance.ProposalCreationPolicy `json:"creation_policy,omitempty"`
	HookFailurePolicy hooks.FailurePolicy                `json:"hook_failure_policy,omitempty"`
}

// ProposeMsg creates a proposal
type ProposeMsg struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Msgs        []types.CosmosMsg `json:"msgs"`
	Proposer    *types.Address    `json:"proposer,omitempty"`
}

// VoteMsg casts or changes a ballot
type VoteMsg struct {
	ProposalID uint64          `json:"proposal_id"`
	Vote       governance.Vote `json:"vote"`
	Rationale  *string         `json:"rationale,omitempty"`
}

// RationaleMsg replaces the rationale of an existing ballot
type RationaleMsg struct {
	ProposalID uint64  `json:"proposal_id"`
	Rationale  *string `json:"rationale,omitempty"`
}

// ProposalIDMsg addresses one proposal
type ProposalIDMsg struct {
	ProposalID uint64 `json:"proposal_id"`
}

// ExecuteMsg is the execute interface
type ExecuteMsg struct {
	Propose         *ProposeMsg    `json:"propose,omitempty"`
	Vote            *VoteMsg       `json:"vote,omitempty"`
	UpdateRationale *RationaleMsg  `json:"update_rationale,omitempty"`
	Execute         *ProposalIDMsg `json:"execute,omitempty"`
	Veto            *ProposalIDMsg `json:"veto,omitempty"`
	Close           *ProposalIDMsg `json:"close,omitempty"`
	UpdateConfig    *Config        `json:"update_config,omitempty"`
	proposal.AdminMsg
}

// ListProposalsQuery pages proposals in ascending id order
type ListProposalsQuery struct {
	StartAfter *uint64 `json:"start_after,omitempty"`
	Limit      *uint64 `json:"limit,omitempty"`
}

// ReverseProposalsQuery pages proposals in descending id order
type ReverseProposalsQuery struct {
	StartBefore *uint64 `json:"start_before,omitempty"`
	Limit       *uint64 `json:"limit,omitempty"`
}

// GetVoteQuery loads one ballot
type GetVoteQuery struct {
	ProposalID uint64        `json:"proposal_id"`
	Voter      types.Address `json:"voter"`
}

// ListVotesQuery pages the ballots of a proposal
type ListVotesQuery struct {
	ProposalID uint64         `json:"proposal_id"`
	StartAfter *types.Address `json:"start_after,omitempty"`
	Limit      *uint64        `json:"limit,omitempty"`
}

// QueryMsg is the query interface
type QueryMsg struct {
	Config           *struct{}              `json:"config,omitempty"`
	Proposal         *ProposalIDMsg         `json:"proposal,omitempty"`
	ListProposals    *ListProposalsQuery    `json:"list_proposals,omitempty"`
	ReverseProposals *ReverseProposalsQuery `json:"reverse_proposals,omitempty"`
	GetVote          *GetVoteQuery          `json:"get_vote,omitempty"`
	ListVotes        *ListVotesQuery        `json:"list_votes,omitempty"`
	proposal.SharedQuery
}

// ProposalResponse is a proposal with its id, status brought up to date
type ProposalResponse struct {
	ID       uint64   `json:"id"`
	Proposal Proposal `json:"proposal"`
}

// ProposalListResponse lists proposals
type ProposalListResponse struct {
	Proposals []ProposalResponse `json:"proposals"`
}

// VoteInfo is one ballot with its voter
type VoteInfo = governance.VoteInfo[governance.Vote]

// VoteResponse holds a ballot if one was cast
type VoteResponse struct {
	Vote *VoteInfo `json:"vote"`
}

// VoteListResponse lists ballots
type VoteListResponse struct {
	Votes []VoteInfo `json:"votes"`
}
