package group

import (
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/pkg/types"
)

// Member is an address and its voting weight
type Member struct {
	Addr   types.Address `json:"addr"`
	Weight uint64        `json:"weight"`
}

// InstantiateMsg creates a group owned by the sender
type InstantiateMsg struct {
	Members           []Member            `json:"initial_members"`
	HookFailurePolicy hooks.FailurePolicy `json:"hook_failure_policy,omitempty"`
}

// ExecuteMsg is the group's execute interface. Every variant is DAO only.
type ExecuteMsg struct {
	UpdateMembers *UpdateMembers `json:"update_members,omitempty"`
	AddHook       *HookMsg       `json:"add_hook,omitempty"`
	RemoveHook    *HookMsg       `json:"remove_hook,omitempty"`
}

// UpdateMembers sets the weight of added members and removes others
type UpdateMembers struct {
	Remove []types.Address `json:"remove"`
	Add    []Member        `json:"add"`
}

// HookMsg names a subscriber
type HookMsg struct {
	Addr types.Address `json:"addr"`
}

// QueryMsg is the group's query interface
type QueryMsg struct {
	types.VotingQuery
	Member      *MemberQuery      `json:"member,omitempty"`
	ListMembers *ListMembersQuery `json:"list_members,omitempty"`
	TotalWeight *TotalWeightQuery `json:"total_weight,omitempty"`
	Hooks       *struct{}         `json:"hooks,omitempty"`
}

// MemberQuery asks for one member's weight, optionally at a height
type MemberQuery struct {
	Addr     types.Address `json:"addr"`
	AtHeight *uint64       `json:"at_height,omitempty"`
}

// ListMembersQuery pages through current members
type ListMembersQuery struct {
	StartAfter *types.Address `json:"start_after,omitempty"`
	Limit      *uint32        `json:"limit,omitempty"`
}

// TotalWeightQuery asks for the total weight, optionally at a height
type TotalWeightQuery struct {
	AtHeight *uint64 `json:"at_height,omitempty"`
}

// MemberResponse is nil for non-members
type MemberResponse struct {
	Weight *uint64 `json:"weight"`
}

// MemberListResponse lists members
type MemberListResponse struct {
	Members []Member `json:"members"`
}

// TotalWeightResponse is the sum of all weights
type TotalWeightResponse struct {
	Weight uint64 `json:"weight"`
}
