// Package proposal holds the plumbing every proposal module shares: proposal
// ids, the creation policy, proposal and vote hook lists, execution through
// the DAO and reply handling.
package proposal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/daodao/core/internal/contracts/core"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// MaxProposalSize bounds the encoded size of a stored proposal
const MaxProposalSize = 64 * 1024

// Errors shared by the proposal modules
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidProposer  = errors.New("the proposer must be set when proposals come from a creation module, and unset otherwise")
	ErrNotOpen          = errors.New("proposal is not open")
	ErrAlreadyVoted     = errors.New("already voted. this proposal does not support revoting")
	ErrAlreadyCast      = errors.New("already cast a vote with that option. change your vote to revote")
	ErrNotRegistered    = errors.New("must have voting power to vote")
	ErrWrongCloseStatus = errors.New("only rejected proposals may be closed")
)

// NoSuchProposalError is returned for unknown proposal ids
type NoSuchProposalError struct {
	ID uint64
}

func (e *NoSuchProposalError) Error() string {
	return fmt.Sprintf("no such proposal (%d)", e.ID)
}

// ExpiredError is returned when voting on an expired proposal
type ExpiredError struct {
	ID uint64
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("proposal (%d) is expired", e.ID)
}

// NoSuchVoteError is returned when updating a ballot that was never cast
type NoSuchVoteError struct {
	ID    uint64
	Voter types.Address
}

func (e *NoSuchVoteError) Error() string {
	return fmt.Sprintf("no vote exists for proposal (%d) and voter (%s)", e.ID, e.Voter)
}

// TooLargeError is returned for proposals over MaxProposalSize
type TooLargeError struct {
	Size uint64
	Max  uint64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("proposal is (%d) bytes, must be <= (%d) bytes", e.Size, e.Max)
}

// Storage every proposal module keeps under the same keys
var (
	Dao            = storage.NewItem[types.Address]("dao")
	ProposalHooks  = hooks.New("proposal_hooks")
	VoteHooks      = hooks.New("vote_hooks")
	CreationPolicy = storage.NewItem[governance.ProposalCreationPolicy]("creation_policy")
	HookPolicy     = storage.NewItem[hooks.FailurePolicy]("hook_failure_policy")

	proposalCount = storage.NewItem[uint64]("proposal_count")
)

// Init stores the DAO, the initial creation policy, the hook failure policy
// and a zero proposal count
func Init(s storage.KVStore, dao types.Address, policy *governance.ProposalCreationPolicy, hookPolicy hooks.FailurePolicy) error {
	p := governance.AnyonePolicy()
	if policy != nil {
		if err := policy.Validate(); err != nil {
			return err
		}
		p = *policy
	}
	hookPolicy = hookPolicy.OrDefault(hooks.PolicyDeregister)
	if err := hookPolicy.Validate(); err != nil {
		return err
	}
	if err := Dao.Save(s, dao); err != nil {
		return err
	}
	if err := CreationPolicy.Save(s, p); err != nil {
		return err
	}
	if err := HookPolicy.Save(s, hookPolicy); err != nil {
		return err
	}
	return proposalCount.Save(s, 0)
}

// Count returns the number of proposals created
func Count(s storage.KVStore) (uint64, error) {
	n, _, err := proposalCount.MayLoad(s)
	return n, err
}

// NextID returns the id the next proposal will get
func NextID(s storage.KVStore) (uint64, error) {
	n, err := Count(s)
	return n + 1, err
}

// AdvanceID allocates a proposal id
func AdvanceID(s storage.KVStore) (uint64, error) {
	id, err := NextID(s)
	if err != nil {
		return 0, err
	}
	return id, proposalCount.Save(s, id)
}

// ResolveProposer checks sender against the creation policy and returns who
// is credited with the proposal. A creation module must name the proposer;
// anyone else must not.
func ResolveProposer(s storage.KVStore, sender types.Address, proposer *types.Address) (types.Address, error) {
	policy, err := CreationPolicy.Load(s)
	if err != nil {
		return "", err
	}
	if !policy.IsPermitted(sender) {
		return "", ErrUnauthorized
	}
	switch {
	case proposer == nil && policy.Anyone != nil:
		return sender, nil
	case proposer != nil && policy.Module != nil:
		if err := proposer.Validate(); err != nil {
			return "", err
		}
		return *proposer, nil
	}
	return "", ErrInvalidProposer
}

// CheckSize rejects proposals whose encoding exceeds MaxProposalSize
func CheckSize(prop any) error {
	b, err := json.Marshal(prop)
	if err != nil {
		return err
	}
	if len(b) > MaxProposalSize {
		return &TooLargeError{Size: uint64(len(b)), Max: MaxProposalSize}
	}
	return nil
}

// CheckExecute validates an execution attempt. canExecute is false when the
// module only lets members execute and sender has no power.
func CheckExecute(veto *governance.VetoConfig, sender types.Address, status governance.Status, canExecute bool) error {
	err := governance.CheckExecute(veto, sender, status)
	switch {
	case errors.Is(err, governance.ErrTimelocked) && !canExecute:
		return ErrUnauthorized
	case err != nil:
		return err
	case status.Is(governance.StatusPassed) && !canExecute:
		return ErrUnauthorized
	}
	return nil
}

// ExecutionMsgs builds the call asking the DAO to run a proposal's messages.
// With closeOnFailure a failed execution replies instead of aborting.
func ExecutionMsgs(dao types.Address, id uint64, msgs []types.CosmosMsg, closeOnFailure bool) ([]types.SubMsg, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	exec, err := core.NewExecuteProposalHookMsg(dao, msgs)
	if err != nil {
		return nil, err
	}
	if closeOnFailure {
		return []types.SubMsg{types.ReplyOnErrorMsg(exec, governance.MaskProposalExecution(id))}, nil
	}
	return []types.SubMsg{types.NewSubMsg(exec)}, nil
}

// StatusChanged notifies proposal hook subscribers of a status change
func StatusChanged(s storage.KVStore, id uint64, oldStatus, newStatus fmt.Stringer) ([]types.SubMsg, error) {
	policy, err := HookPolicy.Load(s)
	if err != nil {
		return nil, err
	}
	return hooks.StatusChangedHooks(ProposalHooks, s, policy, id, oldStatus.String(), newStatus.String())
}

// Completed notifies proposal hook subscribers of a status change and tells
// the creation module the proposal reached a final status
func Completed(s storage.KVStore, id uint64, oldStatus governance.Status, newStatus governance.Status) ([]types.SubMsg, error) {
	changed, err := StatusChanged(s, id, oldStatus, newStatus)
	if err != nil {
		return nil, err
	}
	policy, err := CreationPolicy.Load(s)
	if err != nil {
		return nil, err
	}
	done, err := hooks.ProposalCompletedHooks(policy, id, newStatus)
	if err != nil {
		return nil, err
	}
	return append(changed, done...), nil
}

// NewProposal notifies proposal hook subscribers of a new proposal
func NewProposal(s storage.KVStore, id uint64, proposer types.Address) ([]types.SubMsg, error) {
	policy, err := HookPolicy.Load(s)
	if err != nil {
		return nil, err
	}
	return hooks.NewProposalHooks(ProposalHooks, s, policy, id, proposer)
}

// NewVote notifies vote hook subscribers of a ballot
func NewVote(s storage.KVStore, vote hooks.NewVoteHook) ([]types.SubMsg, error) {
	policy, err := HookPolicy.Load(s)
	if err != nil {
		return nil, err
	}
	return hooks.NewVoteHooks(VoteHooks, s, policy, vote)
}
