package governance

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/daodao/core/pkg/types"
)

// Threshold errors
var (
	ErrZeroThreshold        = errors.New("required threshold cannot be zero")
	ErrUnreachableThreshold = errors.New("not possible to reach required (passing) threshold")
	ErrInvalidThreshold     = errors.New("exactly one threshold variant must be set")
)

// PrecisionFactor is the fixed-point step used when applying a percentage to
// a power total. Totals up to 2^128-1 times 10^9 times 10^18 fit in 256 bits.
const PrecisionFactor = 1_000_000_000

var (
	precisionFactor   = uint256.NewInt(PrecisionFactor)
	precisionFactorM1 = uint256.NewInt(PrecisionFactor - 1)
	decimalFractional = uint256.NewInt(1_000_000_000_000_000_000)
)

// PercentageThreshold is either a simple majority or an explicit percentage
type PercentageThreshold struct {
	Majority *struct{}      `json:"majority,omitempty"`
	Percent  *types.Decimal `json:"percent,omitempty"`
}

// Majority requires more than half
func Majority() PercentageThreshold {
	return PercentageThreshold{Majority: &struct{}{}}
}

// Percent requires at least the given fraction
func Percent(d types.Decimal) PercentageThreshold {
	return PercentageThreshold{Percent: &d}
}

// IsMajority reports whether the majority variant is set
func (p PercentageThreshold) IsMajority() bool {
	return p.Majority != nil
}

func (p PercentageThreshold) String() string {
	if p.Percent != nil {
		return p.Percent.String()
	}
	return "majority"
}

// AbsolutePercentage passes once a percentage of total power votes yes
type AbsolutePercentage struct {
	Percentage PercentageThreshold `json:"percentage"`
}

// ThresholdQuorum requires a quorum of turnout before applying the threshold
// to the votes cast
type ThresholdQuorum struct {
	Threshold PercentageThreshold `json:"threshold"`
	Quorum    PercentageThreshold `json:"quorum"`
}

// AbsoluteCount passes once a fixed amount of power votes yes
type AbsoluteCount struct {
	Threshold types.Uint128 `json:"threshold"`
}

// Threshold is the passing policy of a proposal. Exactly one field is set.
type Threshold struct {
	AbsolutePercentage *AbsolutePercentage `json:"absolute_percentage,omitempty"`
	ThresholdQuorum    *ThresholdQuorum    `json:"threshold_quorum,omitempty"`
	AbsoluteCount      *AbsoluteCount      `json:"absolute_count,omitempty"`
}

// NewAbsolutePercentage builds an absolute percentage threshold
func NewAbsolutePercentage(p PercentageThreshold) Threshold {
	return Threshold{AbsolutePercentage: &AbsolutePercentage{Percentage: p}}
}

// NewThresholdQuorum builds a threshold with quorum
func NewThresholdQuorum(threshold, quorum PercentageThreshold) Threshold {
	return Threshold{ThresholdQuorum: &ThresholdQuorum{Threshold: threshold, Quorum: quorum}}
}

// NewAbsoluteCount builds an absolute count threshold
func NewAbsoluteCount(n types.Uint128) Threshold {
	return Threshold{AbsoluteCount: &AbsoluteCount{Threshold: n}}
}

// Validate rejects zero and unreachable thresholds
func (t Threshold) Validate() error {
	set := 0
	for _, ok := range []bool{t.AbsolutePercentage != nil, t.ThresholdQuorum != nil, t.AbsoluteCount != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return ErrInvalidThreshold
	}

	switch {
	case t.AbsolutePercentage != nil:
		return validatePercentage(t.AbsolutePercentage.Percentage)
	case t.ThresholdQuorum != nil:
		if err := validatePercentage(t.ThresholdQuorum.Threshold); err != nil {
			return err
		}
		return ValidateQuorum(t.ThresholdQuorum.Quorum)
	default:
		if t.AbsoluteCount.Threshold.IsZero() {
			return ErrZeroThreshold
		}
		return nil
	}
}

// validatePercentage requires 0 < percent <= 1
func validatePercentage(p PercentageThreshold) error {
	if p.Percent == nil {
		if p.Majority == nil {
			return ErrInvalidThreshold
		}
		return nil
	}
	if p.Percent.IsZero() {
		return ErrZeroThreshold
	}
	if p.Percent.GT(types.OneDecimal()) {
		return ErrUnreachableThreshold
	}
	return nil
}

// ValidateQuorum allows zero but nothing above one
func ValidateQuorum(p PercentageThreshold) error {
	if p.Percent == nil {
		if p.Majority == nil {
			return ErrInvalidThreshold
		}
		return nil
	}
	if p.Percent.GT(types.OneDecimal()) {
		return ErrUnreachableThreshold
	}
	return nil
}

// VotesNeeded returns the smallest vote count that meets pct of total. The
// product is taken in 256 bits and rounded up, so 50% of 15 is 8. A vote
// count passes CompareVoteCount with GreaterOrEqual exactly when it reaches
// this value.
func VotesNeeded(total types.Uint128, pct types.Decimal) types.Uint128 {
	out, err := types.Uint128FromInt(votesNeeded(total, pct))
	if err != nil {
		// only reachable for percentages above one, which validation rejects
		panic(fmt.Sprintf("votes needed overflow: total=%s pct=%s", total, pct))
	}
	return out
}

func votesNeeded(total types.Uint128, pct types.Decimal) *uint256.Int {
	v := total.Int()
	v.Mul(v, precisionFactor)
	v.Mul(v, pct.Atomics().Int())
	v.Div(v, decimalFractional)
	v.Add(v, precisionFactorM1)
	return v.Div(v, precisionFactor)
}

// Comparison selects how CompareVoteCount tests the threshold
type Comparison int

const (
	// GreaterOrEqual passes when votes reach the threshold
	GreaterOrEqual Comparison = iota
	// Greater passes only when votes exceed the threshold
	Greater
)

// CompareVoteCount compares votes against pct of total at PrecisionFactor
// resolution. GreaterOrEqual checks votes against VotesNeeded; Greater
// compares against the unrounded threshold.
func CompareVoteCount(votes types.Uint128, cmp Comparison, total types.Uint128, pct types.Decimal) bool {
	if cmp == GreaterOrEqual {
		return !votes.Int().Lt(votesNeeded(total, pct))
	}

	lhs := votes.Int()
	lhs.Mul(lhs, precisionFactor)

	rhs := total.Int()
	rhs.Mul(rhs, precisionFactor)
	rhs.Mul(rhs, pct.Atomics().Int())
	rhs.Div(rhs, decimalFractional)

	return lhs.Gt(rhs)
}

// DoesVoteCountPass reports whether yes votes meet the percentage of options
func DoesVoteCountPass(yes, options types.Uint128, pct PercentageThreshold) bool {
	if options.IsZero() {
		return false
	}
	if pct.Percent == nil {
		// strictly more than half
		twice := yes.Int()
		twice.Lsh(twice, 1)
		return twice.Gt(options.Int())
	}
	return CompareVoteCount(yes, GreaterOrEqual, options, *pct.Percent)
}

// DoesVoteCountFail reports whether no votes make the percentage unreachable
func DoesVoteCountFail(no, options types.Uint128, pct PercentageThreshold) bool {
	if options.IsZero() {
		return true
	}
	if pct.Percent == nil {
		twice := no.Int()
		twice.Lsh(twice, 1)
		return !twice.Lt(options.Int())
	}
	rest, err := types.OneDecimal().Sub(*pct.Percent)
	if err != nil {
		return true
	}
	return CompareVoteCount(no, Greater, options, rest)
}
