// Package governance holds the voting primitives shared by every proposal
// module: threshold math, ballots and tallies, proposal status, veto
// configuration, hook payloads and voting power queries.
package governance

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/daodao/core/pkg/types"
)

// Vote errors
var (
	ErrInvalidVote = errors.New("invalid vote")
)

// Vote is a single-choice position
type Vote uint8

const (
	VoteYes Vote = iota
	VoteNo
	VoteAbstain
)

func (v Vote) String() string {
	switch v {
	case VoteYes:
		return "yes"
	case VoteNo:
		return "no"
	case VoteAbstain:
		return "abstain"
	}
	return fmt.Sprintf("vote(%d)", uint8(v))
}

// MarshalJSON encodes the vote as its lowercase name
func (v Vote) MarshalJSON() ([]byte, error) {
	if v > VoteAbstain {
		return nil, ErrInvalidVote
	}
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts "yes", "no" or "abstain"
func (v *Vote) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "yes":
		*v = VoteYes
	case "no":
		*v = VoteNo
	case "abstain":
		*v = VoteAbstain
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVote, s)
	}
	return nil
}

// Votes is a yes/no/abstain tally
type Votes struct {
	Yes     types.Uint128 `json:"yes"`
	No      types.Uint128 `json:"no"`
	Abstain types.Uint128 `json:"abstain"`
}

// ZeroVotes returns an empty tally
func ZeroVotes() Votes {
	return Votes{}
}

// VotesOne returns a tally with power placed on v
func VotesOne(v Vote, power types.Uint128) Votes {
	var out Votes
	*out.slot(v) = power
	return out
}

func (v *Votes) slot(vote Vote) *types.Uint128 {
	switch vote {
	case VoteNo:
		return &v.No
	case VoteAbstain:
		return &v.Abstain
	default:
		return &v.Yes
	}
}

// Total returns yes + no + abstain
func (v Votes) Total() (types.Uint128, error) {
	return types.SumUint128(v.Yes, v.No, v.Abstain)
}

// AddVote adds power to the given position
func (v *Votes) AddVote(vote Vote, power types.Uint128) error {
	s := v.slot(vote)
	sum, err := s.Add(power)
	if err != nil {
		return fmt.Errorf("add %s vote: %w", vote, err)
	}
	*s = sum
	return nil
}

// RemoveVote takes power back from the given position
func (v *Votes) RemoveVote(vote Vote, power types.Uint128) error {
	s := v.slot(vote)
	diff, err := s.Sub(power)
	if err != nil {
		return fmt.Errorf("remove %s vote: %w", vote, err)
	}
	*s = diff
	return nil
}

// Ballot records how and with what power an address voted
type Ballot[V any] struct {
	Power     types.Uint128 `json:"power"`
	Vote      V             `json:"vote"`
	Rationale *string       `json:"rationale,omitempty"`
}

// VoteInfo is a ballot together with its voter, as returned by vote queries
type VoteInfo[V any] struct {
	Voter     types.Address `json:"voter"`
	Vote      V             `json:"vote"`
	Power     types.Uint128 `json:"power"`
	Rationale *string       `json:"rationale,omitempty"`
}
