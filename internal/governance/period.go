package governance

import (
	"errors"

	"github.com/daodao/core/pkg/types"
)

// Proposal module errors shared by every variant
var (
	ErrNotPassed              = errors.New("proposal is not in 'passed' state")
	ErrInvalidMinVotingPeriod = errors.New("min voting period must be less than or equal to max voting period")
	ErrDurationUnitsConflict  = errors.New("min_voting_period and max_voting_period must have the same units (height or time)")
	ErrZeroVotingPeriod       = errors.New("voting period must be greater than zero")
)

// ValidateVotingPeriod checks that min is no longer than max and uses the
// same units
func ValidateVotingPeriod(min *types.Duration, max types.Duration) error {
	if max.IsZero() {
		return ErrZeroVotingPeriod
	}
	if min == nil {
		return nil
	}
	if !min.SameUnits(max) {
		return ErrDurationUnitsConflict
	}
	if min.Value > max.Value {
		return ErrInvalidMinVotingPeriod
	}
	return nil
}

// VotingWindow returns the expiration and optional minimum voting period of a
// proposal created at block
func VotingWindow(block types.BlockInfo, min *types.Duration, max types.Duration) (types.Expiration, *types.Expiration) {
	exp := max.After(block)
	if min == nil {
		return exp, nil
	}
	m := min.After(block)
	return exp, &m
}

// MinPeriodPending reports whether a configured minimum voting period has not
// yet elapsed
func MinPeriodPending(min *types.Expiration, block types.BlockInfo) bool {
	return min != nil && !min.IsExpired(block)
}
