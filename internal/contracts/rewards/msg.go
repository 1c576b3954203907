package rewards

import (
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/pkg/types"
)

// InstantiateMsg creates a distributor. Owner defaults to the sender.
type InstantiateMsg struct {
	Owner *types.Address `json:"owner,omitempty"`
}

// ExecuteMsg is the distributor's execute interface
type ExecuteMsg struct {
	MemberChangedHook  *hooks.MemberChangedHookMsg   `json:"member_changed_hook,omitempty"`
	NftStakeChangeHook *hooks.NftStakeChangedHookMsg `json:"nft_stake_change_hook,omitempty"`
	StakeChangeHook    *hooks.StakeChangedHookMsg    `json:"stake_change_hook,omitempty"`
	Create             *CreateMsg                    `json:"create,omitempty"`
	Update             *UpdateMsg                    `json:"update,omitempty"`
	Fund               *IDMsg                        `json:"fund,omitempty"`
	FundLatest         *struct{}                     `json:"fund_latest,omitempty"`
	Claim              *IDMsg                        `json:"claim,omitempty"`
	Withdraw           *IDMsg                        `json:"withdraw,omitempty"`
	UpdateOwnership    *OwnershipAction              `json:"update_ownership,omitempty"`
}

// CreateMsg registers a new distribution. Funds sent along fund it.
type CreateMsg struct {
	Denom               string         `json:"denom"`
	EmissionRate        EmissionRate   `json:"emission_rate"`
	VPContract          types.Address  `json:"vp_contract"`
	HookCaller          types.Address  `json:"hook_caller"`
	WithdrawDestination *types.Address `json:"withdraw_destination,omitempty"`
}

// UpdateMsg changes an existing distribution. Unset fields are kept.
type UpdateMsg struct {
	ID                  uint64         `json:"id"`
	EmissionRate        *EmissionRate  `json:"emission_rate,omitempty"`
	VPContract          *types.Address `json:"vp_contract,omitempty"`
	HookCaller          *types.Address `json:"hook_caller,omitempty"`
	WithdrawDestination *types.Address `json:"withdraw_destination,omitempty"`
}

// IDMsg names a distribution
type IDMsg struct {
	ID uint64 `json:"id"`
}

// OwnershipAction is a two step ownership transfer
type OwnershipAction struct {
	TransferOwnership *TransferOwnership `json:"transfer_ownership,omitempty"`
	AcceptOwnership   *struct{}          `json:"accept_ownership,omitempty"`
	RenounceOwnership *struct{}          `json:"renounce_ownership,omitempty"`
}

// TransferOwnership proposes a new owner, who must accept
type TransferOwnership struct {
	NewOwner types.Address `json:"new_owner"`
}

// QueryMsg is the distributor's query interface
type QueryMsg struct {
	Info                 *struct{}            `json:"info,omitempty"`
	Ownership            *struct{}            `json:"ownership,omitempty"`
	PendingRewards       *PendingRewardsQuery `json:"pending_rewards,omitempty"`
	UndistributedRewards *IDMsg               `json:"undistributed_rewards,omitempty"`
	Distribution         *IDMsg               `json:"distribution,omitempty"`
	Distributions        *PageQuery           `json:"distributions,omitempty"`
}

// PageQuery pages through distributions by id
type PageQuery struct {
	StartAfter *uint64 `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

// PendingRewardsQuery lists an address's claimable rewards per distribution
type PendingRewardsQuery struct {
	Address    types.Address `json:"address"`
	StartAfter *uint64       `json:"start_after,omitempty"`
	Limit      *uint32       `json:"limit,omitempty"`
}

// Ownership is returned for the ownership query
type Ownership struct {
	Owner        *types.Address `json:"owner"`
	PendingOwner *types.Address `json:"pending_owner"`
}

// DistributionPendingRewards is one distribution's claimable amount
type DistributionPendingRewards struct {
	ID             uint64        `json:"id"`
	Denom          string        `json:"denom"`
	PendingRewards types.Uint128 `json:"pending_rewards"`
}

// PendingRewardsResponse lists claimable amounts
type PendingRewardsResponse struct {
	PendingRewards []DistributionPendingRewards `json:"pending_rewards"`
}

// DistributionsResponse lists distributions
type DistributionsResponse struct {
	Distributions []Distribution `json:"distributions"`
}
