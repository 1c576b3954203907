package governance

import "fmt"

// The low bits of a sub-message id identify what kind of sub-message failed;
// the remaining bits carry a proposal id or hook index.
const (
	replyProposalExecution uint64 = 0b000
	replyProposalHook      uint64 = 0b001
	replyVoteHook          uint64 = 0b010
	replyCompletedHook     uint64 = 0b100

	replyTypeBits        = 3
	replyTypeMask uint64 = (1 << replyTypeBits) - 1
)

// ReplyKind tells a reply handler what failed
type ReplyKind uint8

const (
	ReplyFailedExecution ReplyKind = iota
	ReplyFailedProposalHook
	ReplyFailedVoteHook
	ReplyFailedCompletedHook
)

// TaggedReplyID is a decoded reply id
type TaggedReplyID struct {
	Kind ReplyKind
	// Value is the proposal id for executions and the hook index for hooks
	Value uint64
}

// UnknownReplyIDError is returned for ids no handler recognises
type UnknownReplyIDError struct {
	ID uint64
}

func (e *UnknownReplyIDError) Error() string {
	return fmt.Sprintf("unknown reply id (%d)", e.ID)
}

// ParseReplyID decodes a sub-message id
func ParseReplyID(id uint64) (TaggedReplyID, error) {
	value := id >> replyTypeBits
	switch id & replyTypeMask {
	case replyProposalExecution:
		return TaggedReplyID{Kind: ReplyFailedExecution, Value: value}, nil
	case replyProposalHook:
		return TaggedReplyID{Kind: ReplyFailedProposalHook, Value: value}, nil
	case replyVoteHook:
		return TaggedReplyID{Kind: ReplyFailedVoteHook, Value: value}, nil
	case replyCompletedHook:
		return TaggedReplyID{Kind: ReplyFailedCompletedHook}, nil
	}
	return TaggedReplyID{}, &UnknownReplyIDError{ID: id}
}

// MaskProposalExecution tags a proposal execution sub-message
func MaskProposalExecution(proposalID uint64) uint64 {
	return replyProposalExecution | proposalID<<replyTypeBits
}

// MaskProposalHook tags the index-th proposal hook
func MaskProposalHook(index uint64) uint64 {
	return replyProposalHook | index<<replyTypeBits
}

// MaskVoteHook tags the index-th vote hook
func MaskVoteHook(index uint64) uint64 {
	return replyVoteHook | index<<replyTypeBits
}

// CompletedHookReplyID tags the proposal completed hook sent to the
// proposal creation module
func CompletedHookReplyID() uint64 {
	return replyCompletedHook
}
