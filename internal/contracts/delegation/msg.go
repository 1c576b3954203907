package delegation

import (
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/pkg/types"
)

// Config bounds delegated power
type Config struct {
	// VPCapPercent caps the delegated power a delegate can use as a share of
	// the total power
	VPCapPercent *types.Decimal `json:"vp_cap_percent,omitempty"`
	// DelegationValidityBlocks expires delegations after this many blocks
	DelegationValidityBlocks *uint64 `json:"delegation_validity_blocks,omitempty"`
}

// Validate checks the cap is a percentage
func (c Config) Validate() error {
	if c.VPCapPercent != nil && (c.VPCapPercent.IsZero() || c.VPCapPercent.GT(types.OneDecimal())) {
		return ErrInvalidVotingPowerPercent
	}
	return nil
}

// InstantiateMsg creates the module. Dao defaults to the sender.
type InstantiateMsg struct {
	Dao                      *types.Address `json:"dao,omitempty"`
	VPCapPercent             *types.Decimal `json:"vp_cap_percent,omitempty"`
	DelegationValidityBlocks *uint64        `json:"delegation_validity_blocks,omitempty"`
	NoSyncProposalModules    bool           `json:"no_sync_proposal_modules,omitempty"`
}

// OptionalUpdate sets or clears an optional config value. Neither field set
// leaves the value unchanged.
type OptionalUpdate[T any] struct {
	Set   *T        `json:"set,omitempty"`
	Clear *struct{} `json:"clear,omitempty"`
}

func (u *OptionalUpdate[T]) apply(dst **T) {
	switch {
	case u == nil:
	case u.Set != nil:
		v := *u.Set
		*dst = &v
	case u.Clear != nil:
		*dst = nil
	}
}

// DelegateMsg delegates a percent of the sender's power
type DelegateMsg struct {
	Delegate types.Address `json:"delegate"`
	Percent  types.Decimal `json:"percent"`
}

// UndelegateMsg revokes a delegation
type UndelegateMsg struct {
	Delegate types.Address `json:"delegate"`
}

// UpdateHookCallersMsg adds and removes trusted voting power sources
type UpdateHookCallersMsg struct {
	Add    []types.Address `json:"add,omitempty"`
	Remove []types.Address `json:"remove,omitempty"`
}

// PageMsg pages through an address keyed list
type PageMsg struct {
	StartAfter *types.Address `json:"start_after,omitempty"`
	Limit      *uint32        `json:"limit,omitempty"`
}

// UpdateConfigMsg changes the config
type UpdateConfigMsg struct {
	VPCapPercent             *OptionalUpdate[types.Decimal] `json:"vp_cap_percent,omitempty"`
	DelegationValidityBlocks *OptionalUpdate[uint64]        `json:"delegation_validity_blocks,omitempty"`
}

// ExecuteMsg is the delegation module's execute interface
type ExecuteMsg struct {
	Register                     *struct{}                     `json:"register,omitempty"`
	Unregister                   *struct{}                     `json:"unregister,omitempty"`
	Delegate                     *DelegateMsg                  `json:"delegate,omitempty"`
	Undelegate                   *UndelegateMsg                `json:"undelegate,omitempty"`
	UpdateVotingPowerHookCallers *UpdateHookCallersMsg         `json:"update_voting_power_hook_callers,omitempty"`
	SyncProposalModules          *PageMsg                      `json:"sync_proposal_modules,omitempty"`
	UpdateConfig                 *UpdateConfigMsg              `json:"update_config,omitempty"`
	StakeChangeHook              *hooks.StakeChangedHookMsg    `json:"stake_change_hook,omitempty"`
	NftStakeChangeHook           *hooks.NftStakeChangedHookMsg `json:"nft_stake_change_hook,omitempty"`
	MemberChangedHook            *hooks.MemberChangedHookMsg   `json:"member_changed_hook,omitempty"`
	VoteHook                     *hooks.VoteHookMsg            `json:"vote_hook,omitempty"`
}

// DelegationsQuery lists a delegator's delegations at a height
type DelegationsQuery struct {
	Delegator types.Address `json:"delegator"`
	Height    *uint64       `json:"height,omitempty"`
	Offset    *uint64       `json:"offset,omitempty"`
	Limit     *uint64       `json:"limit,omitempty"`
}

// QueryMsg is the delegation module's query interface
type QueryMsg struct {
	Info                        *struct{}                                    `json:"info,omitempty"`
	Config                      *struct{}                                    `json:"config,omitempty"`
	Delegates                   *PageMsg                                     `json:"delegates,omitempty"`
	Delegations                 *DelegationsQuery                            `json:"delegations,omitempty"`
	UnvotedDelegatedVotingPower *governance.UnvotedDelegatedVotingPowerQuery `json:"unvoted_delegated_voting_power,omitempty"`
	ProposalModules             *PageMsg                                     `json:"proposal_modules,omitempty"`
	VotingPowerHookCallers      *PageMsg                                     `json:"voting_power_hook_callers,omitempty"`
}

// Delegation is a share of a delegator's power given to a delegate
type Delegation struct {
	Delegate types.Address `json:"delegate"`
	Percent  types.Decimal `json:"percent"`
}

// DelegationResponse is a delegation and when it lapses
type DelegationResponse struct {
	Delegate   types.Address     `json:"delegate"`
	Percent    types.Decimal     `json:"percent"`
	Expiration *types.Expiration `json:"expiration,omitempty"`
}

// DelegationsResponse lists delegations as of Height
type DelegationsResponse struct {
	Delegations []DelegationResponse `json:"delegations"`
	Height      uint64               `json:"height"`
}

// DelegateResponse is a registered delegate and the power delegated to it
type DelegateResponse struct {
	Delegate types.Address `json:"delegate"`
	Power    types.Uint128 `json:"power"`
}

// DelegatesResponse lists registered delegates
type DelegatesResponse struct {
	Delegates []DelegateResponse `json:"delegates"`
}
