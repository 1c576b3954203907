package staking

import (
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/pkg/types"
)

// InstantiateMsg creates a native token staking voting module
type InstantiateMsg struct {
	Denom             string              `json:"denom"`
	UnstakingDuration *types.Duration     `json:"unstaking_duration,omitempty"`
	HookFailurePolicy hooks.FailurePolicy `json:"hook_failure_policy,omitempty"`
}

// ExecuteMsg is the staking module's execute interface
type ExecuteMsg struct {
	Stake        *struct{}     `json:"stake,omitempty"`
	Unstake      *Unstake      `json:"unstake,omitempty"`
	Claim        *struct{}     `json:"claim,omitempty"`
	UpdateConfig *UpdateConfig `json:"update_config,omitempty"`
	AddHook      *HookMsg      `json:"add_hook,omitempty"`
	RemoveHook   *HookMsg      `json:"remove_hook,omitempty"`
}

// Unstake withdraws part of the sender's stake
type Unstake struct {
	Amount types.Uint128 `json:"amount"`
}

// UpdateConfig changes the unstaking duration. DAO only.
type UpdateConfig struct {
	Duration *types.Duration `json:"duration,omitempty"`
}

// HookMsg names a subscriber
type HookMsg struct {
	Addr types.Address `json:"addr"`
}

// QueryMsg is the staking module's query interface
type QueryMsg struct {
	types.VotingQuery
	Claims      *ClaimsQuery      `json:"claims,omitempty"`
	GetConfig   *struct{}         `json:"get_config,omitempty"`
	ListStakers *ListStakersQuery `json:"list_stakers,omitempty"`
	GetHooks    *struct{}         `json:"get_hooks,omitempty"`
}

// ClaimsQuery lists an address's pending claims
type ClaimsQuery struct {
	Address types.Address `json:"address"`
}

// ListStakersQuery pages through stakers
type ListStakersQuery struct {
	StartAfter *types.Address `json:"start_after,omitempty"`
	Limit      *uint32        `json:"limit,omitempty"`
}

// Config is the module's configuration
type Config struct {
	UnstakingDuration *types.Duration `json:"unstaking_duration,omitempty"`
}

// Claim is unstaked tokens waiting to be released
type Claim struct {
	Amount    types.Uint128    `json:"amount"`
	ReleaseAt types.Expiration `json:"release_at"`
}

// ClaimsResponse lists claims
type ClaimsResponse struct {
	Claims []Claim `json:"claims"`
}

// StakerBalance is one staker's current stake
type StakerBalance struct {
	Address types.Address `json:"address"`
	Balance types.Uint128 `json:"balance"`
}

// ListStakersResponse lists stakers
type ListStakersResponse struct {
	Stakers []StakerBalance `json:"stakers"`
}

// ConfigResponse is returned for GetConfig
type ConfigResponse struct {
	Denom             string          `json:"denom"`
	UnstakingDuration *types.Duration `json:"unstaking_duration,omitempty"`
}
