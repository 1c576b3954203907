package governance

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/daodao/core/pkg/types"
)

// MaxChoices bounds the options of a multiple choice proposal, not counting
// the none option
const MaxChoices = 20

const noneOptionDescription = "None of the above"

// ErrWrongNumberOfChoices is returned for fewer than 2 or more than MaxChoices
// options
var ErrWrongNumberOfChoices = errors.New("wrong number of choices")

// SingleChoiceStrategy elects the option with the most votes once quorum is
// reached
type SingleChoiceStrategy struct {
	Quorum PercentageThreshold `json:"quorum"`
}

// VotingStrategy decides multiple choice proposals
type VotingStrategy struct {
	SingleChoice *SingleChoiceStrategy `json:"single_choice,omitempty"`
}

// Validate checks the quorum
func (v VotingStrategy) Validate() error {
	if v.SingleChoice == nil {
		return ErrInvalidThreshold
	}
	return ValidateQuorum(v.SingleChoice.Quorum)
}

// Quorum returns the quorum of the strategy
func (v VotingStrategy) Quorum() PercentageThreshold {
	if v.SingleChoice == nil {
		return PercentageThreshold{}
	}
	return v.SingleChoice.Quorum
}

// MultipleChoiceVote selects an option by index
type MultipleChoiceVote struct {
	OptionID uint32 `json:"option_id"`
}

func (v MultipleChoiceVote) String() string {
	return strconv.FormatUint(uint64(v.OptionID), 10)
}

// MultipleChoiceVotes holds the power cast for each option
type MultipleChoiceVotes struct {
	VoteWeights []types.Uint128 `json:"vote_weights"`
}

// ZeroMultipleChoiceVotes returns an empty tally over n options
func ZeroMultipleChoiceVotes(n int) MultipleChoiceVotes {
	w := make([]types.Uint128, n)
	for i := range w {
		w[i] = types.ZeroUint128()
	}
	return MultipleChoiceVotes{VoteWeights: w}
}

// Total sums the power cast across all options
func (v MultipleChoiceVotes) Total() (types.Uint128, error) {
	return types.SumUint128(v.VoteWeights...)
}

// AddVote adds power to the chosen option
func (v *MultipleChoiceVotes) AddVote(vote MultipleChoiceVote, power types.Uint128) error {
	if int(vote.OptionID) >= len(v.VoteWeights) {
		return ErrInvalidVote
	}
	sum, err := v.VoteWeights[vote.OptionID].Add(power)
	if err != nil {
		return fmt.Errorf("add vote for option %d: %w", vote.OptionID, err)
	}
	v.VoteWeights[vote.OptionID] = sum
	return nil
}

// RemoveVote takes power back from the chosen option
func (v *MultipleChoiceVotes) RemoveVote(vote MultipleChoiceVote, power types.Uint128) error {
	if int(vote.OptionID) >= len(v.VoteWeights) {
		return ErrInvalidVote
	}
	diff, err := v.VoteWeights[vote.OptionID].Sub(power)
	if err != nil {
		return fmt.Errorf("remove vote for option %d: %w", vote.OptionID, err)
	}
	v.VoteWeights[vote.OptionID] = diff
	return nil
}

// OptionType tells proposal options from the automatic none option
type OptionType string

const (
	OptionStandard OptionType = "standard"
	OptionNone     OptionType = "none"
)

// MultipleChoiceOption is a choice as submitted with a proposal
type MultipleChoiceOption struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Msgs        []types.CosmosMsg `json:"msgs"`
}

// MultipleChoiceOptions is the submitted list of choices
type MultipleChoiceOptions struct {
	Options []MultipleChoiceOption `json:"options"`
}

// CheckedMultipleChoiceOption is a stored choice
type CheckedMultipleChoiceOption struct {
	Index       uint32            `json:"index"`
	OptionType  OptionType        `json:"option_type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Msgs        []types.CosmosMsg `json:"msgs"`
	VoteCount   types.Uint128     `json:"vote_count"`
}

// Checked validates the number of options and appends the none option
func (o MultipleChoiceOptions) Checked() ([]CheckedMultipleChoiceOption, error) {
	if len(o.Options) < 2 || len(o.Options) > MaxChoices {
		return nil, ErrWrongNumberOfChoices
	}
	out := make([]CheckedMultipleChoiceOption, 0, len(o.Options)+1)
	for i, opt := range o.Options {
		msgs := opt.Msgs
		if msgs == nil {
			msgs = []types.CosmosMsg{}
		}
		out = append(out, CheckedMultipleChoiceOption{
			Index:       uint32(i),
			OptionType:  OptionStandard,
			Title:       opt.Title,
			Description: opt.Description,
			Msgs:        msgs,
			VoteCount:   types.ZeroUint128(),
		})
	}
	out = append(out, CheckedMultipleChoiceOption{
		Index:       uint32(len(o.Options)),
		OptionType:  OptionNone,
		Title:       noneOptionDescription,
		Description: noneOptionDescription,
		Msgs:        []types.CosmosMsg{},
		VoteCount:   types.ZeroUint128(),
	})
	return out, nil
}
