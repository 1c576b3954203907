package governance

import (
	"fmt"

	"github.com/daodao/core/pkg/types"
)

// Querier runs smart queries against other contracts. The host's querier
// satisfies it.
type Querier interface {
	QueryWasmSmart(contract types.Address, msg any, out any) error
}

// UnvotedDelegatedVotingPowerQuery asks a delegation module how much
// delegated power a delegate may still use on a proposal
type UnvotedDelegatedVotingPowerQuery struct {
	Delegate       types.Address `json:"delegate"`
	ProposalModule types.Address `json:"proposal_module"`
	ProposalID     uint64        `json:"proposal_id"`
	Height         uint64        `json:"height"`
}

// DelegationQuery is the subset of the delegation module's query interface
// consumed by proposal modules
type DelegationQuery struct {
	UnvotedDelegatedVotingPower *UnvotedDelegatedVotingPowerQuery `json:"unvoted_delegated_voting_power,omitempty"`
}

// UnvotedDelegatedVotingPowerResponse carries the capped and uncapped
// unvoted delegated power
type UnvotedDelegatedVotingPowerResponse struct {
	Effective types.Uint128 `json:"effective"`
	Total     types.Uint128 `json:"total"`
}

// GetVotingPower returns addr's voting power in dao at height
func GetVotingPower(q Querier, dao, addr types.Address, height *uint64) (types.Uint128, error) {
	var resp types.VotingPowerAtHeightResponse
	msg := types.VotingQuery{VotingPowerAtHeight: &types.VotingPowerAtHeightQuery{Address: addr, Height: height}}
	if err := q.QueryWasmSmart(dao, msg, &resp); err != nil {
		return types.Uint128{}, fmt.Errorf("query voting power of %s: %w", addr, err)
	}
	return resp.Power, nil
}

// GetTotalPower returns the total voting power of dao at height
func GetTotalPower(q Querier, dao types.Address, height *uint64) (types.Uint128, error) {
	var resp types.TotalPowerAtHeightResponse
	msg := types.VotingQuery{TotalPowerAtHeight: &types.TotalPowerAtHeightQuery{Height: height}}
	if err := q.QueryWasmSmart(dao, msg, &resp); err != nil {
		return types.Uint128{}, fmt.Errorf("query total power: %w", err)
	}
	return resp.Power, nil
}

// GetVotingPowerWithDelegation returns addr's own power at height plus the
// delegated power it has not yet had used on the proposal. A failing
// delegation query counts as zero so votes can still be cast.
func GetVotingPowerWithDelegation(q Querier, proposalModule types.Address, delegationModule *types.Address,
	dao, addr types.Address, proposalID, height uint64) (types.Uint128, error) {
	power, err := GetVotingPower(q, dao, addr, &height)
	if err != nil {
		return types.Uint128{}, err
	}
	if delegationModule == nil {
		return power, nil
	}

	var resp UnvotedDelegatedVotingPowerResponse
	msg := DelegationQuery{UnvotedDelegatedVotingPower: &UnvotedDelegatedVotingPowerQuery{
		Delegate:       addr,
		ProposalModule: proposalModule,
		ProposalID:     proposalID,
		Height:         height,
	}}
	if err := q.QueryWasmSmart(*delegationModule, msg, &resp); err != nil {
		return power, nil
	}
	return power.Add(resp.Effective)
}
