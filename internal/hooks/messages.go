package hooks

import (
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// ==========================================================================
// Proposal hooks
// ==========================================================================

// NewProposalHook is sent when a proposal is created
type NewProposalHook struct {
	ID       uint64        `json:"id"`
	Proposer types.Address `json:"proposer"`
}

// ProposalStatusChangedHook is sent when a proposal changes status
type ProposalStatusChangedHook struct {
	ID        uint64 `json:"id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// ProposalHookMsg is the payload of a proposal hook
type ProposalHookMsg struct {
	NewProposal           *NewProposalHook           `json:"new_proposal,omitempty"`
	ProposalStatusChanged *ProposalStatusChangedHook `json:"proposal_status_changed,omitempty"`
}

// ProposalHookExecuteMsg wraps a proposal hook for the subscriber's execute
// entry point
type ProposalHookExecuteMsg struct {
	ProposalHook ProposalHookMsg `json:"proposal_hook"`
}

// NewProposalHooks notifies subscribers of a new proposal
func NewProposalHooks(h Hooks, s storage.KVStore, policy FailurePolicy, id uint64, proposer types.Address) ([]types.SubMsg, error) {
	msg := ProposalHookExecuteMsg{ProposalHook: ProposalHookMsg{
		NewProposal: &NewProposalHook{ID: id, Proposer: proposer},
	}}
	return h.Prepare(s, policy, governance.MaskProposalHook, msg)
}

// StatusChangedHooks notifies subscribers of a status change. Nothing is
// sent when the status is unchanged.
func StatusChangedHooks(h Hooks, s storage.KVStore, policy FailurePolicy, id uint64, oldStatus, newStatus string) ([]types.SubMsg, error) {
	if oldStatus == newStatus {
		return nil, nil
	}
	msg := ProposalHookExecuteMsg{ProposalHook: ProposalHookMsg{
		ProposalStatusChanged: &ProposalStatusChangedHook{ID: id, OldStatus: oldStatus, NewStatus: newStatus},
	}}
	return h.Prepare(s, policy, governance.MaskProposalHook, msg)
}

// ==========================================================================
// Vote hooks
// ==========================================================================

// NewVoteHook is sent whenever a ballot is cast or changed
type NewVoteHook struct {
	ProposalID  uint64        `json:"proposal_id"`
	Voter       types.Address `json:"voter"`
	Vote        string        `json:"vote"`
	Power       types.Uint128 `json:"power"`
	Height      uint64        `json:"height"`
	IsFirstVote bool          `json:"is_first_vote"`
}

// VoteHookMsg is the payload of a vote hook
type VoteHookMsg struct {
	NewVote *NewVoteHook `json:"new_vote,omitempty"`
}

// VoteHookExecuteMsg wraps a vote hook for the subscriber's execute entry
// point
type VoteHookExecuteMsg struct {
	VoteHook VoteHookMsg `json:"vote_hook"`
}

// NewVoteHooks notifies subscribers of a ballot
func NewVoteHooks(h Hooks, s storage.KVStore, policy FailurePolicy, vote NewVoteHook) ([]types.SubMsg, error) {
	msg := VoteHookExecuteMsg{VoteHook: VoteHookMsg{NewVote: &vote}}
	return h.Prepare(s, policy, governance.MaskVoteHook, msg)
}

// ==========================================================================
// Proposal completed hook
// ==========================================================================

// ProposalCompletedHook tells the proposal creation module a proposal has
// reached a final status
type ProposalCompletedHook struct {
	ProposalID uint64            `json:"proposal_id"`
	NewStatus  governance.Status `json:"new_status"`
}

// ProposalCompletedExecuteMsg wraps the completed hook
type ProposalCompletedExecuteMsg struct {
	ProposalCompletedHook ProposalCompletedHook `json:"proposal_completed_hook"`
}

// ProposalCompletedHooks notifies the creation module, if the policy names
// one. Failures reply so the proposal module can fall back to letting
// anyone propose.
func ProposalCompletedHooks(policy governance.ProposalCreationPolicy, id uint64, status governance.Status) ([]types.SubMsg, error) {
	if policy.Module == nil {
		return nil, nil
	}
	msg, err := types.NewWasmExecute(policy.Module.Addr, ProposalCompletedExecuteMsg{
		ProposalCompletedHook: ProposalCompletedHook{ProposalID: id, NewStatus: status},
	})
	if err != nil {
		return nil, err
	}
	return []types.SubMsg{types.ReplyOnErrorMsg(msg, governance.CompletedHookReplyID())}, nil
}

// ==========================================================================
// Voting power hooks
// ==========================================================================

// StakeChange carries an address whose staked amount changed
type StakeChange struct {
	Addr   types.Address `json:"addr"`
	Amount types.Uint128 `json:"amount"`
}

// StakeChangedHookMsg is sent by token staking sources
type StakeChangedHookMsg struct {
	Stake   *StakeChange `json:"stake,omitempty"`
	Unstake *StakeChange `json:"unstake,omitempty"`
}

// Addr returns the address whose stake changed
func (m StakeChangedHookMsg) Addr() types.Address {
	if m.Stake != nil {
		return m.Stake.Addr
	}
	if m.Unstake != nil {
		return m.Unstake.Addr
	}
	return ""
}

// NftStake is an NFT staked by addr
type NftStake struct {
	Addr    types.Address `json:"addr"`
	TokenID string        `json:"token_id"`
}

// NftUnstake is a set of NFTs unstaked by addr
type NftUnstake struct {
	Addr     types.Address `json:"addr"`
	TokenIDs []string      `json:"token_ids"`
}

// NftStakeChangedHookMsg is sent by NFT staking sources
type NftStakeChangedHookMsg struct {
	Stake   *NftStake   `json:"stake,omitempty"`
	Unstake *NftUnstake `json:"unstake,omitempty"`
}

// Addr returns the address whose stake changed
func (m NftStakeChangedHookMsg) Addr() types.Address {
	if m.Stake != nil {
		return m.Stake.Addr
	}
	if m.Unstake != nil {
		return m.Unstake.Addr
	}
	return ""
}

// MemberDiff is one membership weight change. Old is nil for new members
// and New is nil for removed members.
type MemberDiff struct {
	Key types.Address `json:"key"`
	Old *uint64       `json:"old,omitempty"`
	New *uint64       `json:"new,omitempty"`
}

// MemberChangedHookMsg is sent by group sources
type MemberChangedHookMsg struct {
	Diffs []MemberDiff `json:"diffs"`
}

// StakeChangeExecuteMsg wraps a stake hook
type StakeChangeExecuteMsg struct {
	StakeChangeHook StakeChangedHookMsg `json:"stake_change_hook"`
}

// MemberChangedExecuteMsg wraps a membership hook
type MemberChangedExecuteMsg struct {
	MemberChangedHook MemberChangedHookMsg `json:"member_changed_hook"`
}

// StakeHooks notifies subscribers of a stake
func StakeHooks(h Hooks, s storage.KVStore, policy FailurePolicy, mask func(uint64) uint64, addr types.Address, amount types.Uint128) ([]types.SubMsg, error) {
	msg := StakeChangeExecuteMsg{StakeChangeHook: StakeChangedHookMsg{Stake: &StakeChange{Addr: addr, Amount: amount}}}
	return h.Prepare(s, policy, mask, msg)
}

// UnstakeHooks notifies subscribers of an unstake
func UnstakeHooks(h Hooks, s storage.KVStore, policy FailurePolicy, mask func(uint64) uint64, addr types.Address, amount types.Uint128) ([]types.SubMsg, error) {
	msg := StakeChangeExecuteMsg{StakeChangeHook: StakeChangedHookMsg{Unstake: &StakeChange{Addr: addr, Amount: amount}}}
	return h.Prepare(s, policy, mask, msg)
}

// MemberChangedHooks notifies subscribers of membership changes
func MemberChangedHooks(h Hooks, s storage.KVStore, policy FailurePolicy, mask func(uint64) uint64, diffs []MemberDiff) ([]types.SubMsg, error) {
	if len(diffs) == 0 {
		return nil, nil
	}
	msg := MemberChangedExecuteMsg{MemberChangedHook: MemberChangedHookMsg{Diffs: diffs}}
	return h.Prepare(s, policy, mask, msg)
}
