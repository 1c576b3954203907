package governance

import (
	"errors"
	"fmt"

	"github.com/daodao/core/pkg/types"
)

// Veto errors
var (
	ErrNoVetoConfiguration  = errors.New("veto is not enabled for this contract")
	ErrNoEarlyExecute       = errors.New("early execution for timelocked proposals is not enabled")
	ErrNoVetoBeforePassed   = errors.New("vetoing before a proposal passes is not enabled")
	ErrTimelocked           = errors.New("the proposal is time locked and cannot be executed")
	ErrTimelockExpired      = errors.New("the veto timelock duration has expired")
	ErrVetoUnauthorized     = errors.New("only vetoer can veto a proposal")
	ErrVetoDurationMismatch = errors.New("veto timelock duration must have the same units as the max voting period")
)

// InvalidVetoStatusError is returned when vetoing a proposal in a state that
// cannot be vetoed
type InvalidVetoStatusError struct {
	Status Status
}

func (e *InvalidVetoStatusError) Error() string {
	return fmt.Sprintf("proposal is %s and thus is unable to be vetoed", e.Status)
}

// VetoConfig lets a vetoer cancel passed proposals during a timelock
type VetoConfig struct {
	TimelockDuration types.Duration `json:"timelock_duration"`
	Vetoer           types.Address  `json:"vetoer"`
	EarlyExecute     bool           `json:"early_execute"`
	VetoBeforePassed bool           `json:"veto_before_passed"`
}

// Validate checks the vetoer address and that the timelock is measured in
// the same units as the voting period
func (c *VetoConfig) Validate(maxVotingPeriod types.Duration) error {
	if err := c.Vetoer.Validate(); err != nil {
		return fmt.Errorf("vetoer: %w", err)
	}
	if !c.TimelockDuration.SameUnits(maxVotingPeriod) {
		return ErrVetoDurationMismatch
	}
	return nil
}

// CheckEarlyExecute fails unless early execution is enabled
func (c *VetoConfig) CheckEarlyExecute() error {
	if !c.EarlyExecute {
		return ErrNoEarlyExecute
	}
	return nil
}

// CheckVetoBeforePassed fails unless open proposals may be vetoed
func (c *VetoConfig) CheckVetoBeforePassed() error {
	if !c.VetoBeforePassed {
		return ErrNoVetoBeforePassed
	}
	return nil
}

// PassedStatus returns the status of a proposal whose vote has passed. With
// a veto configured the proposal sits in the timelock until expiration plus
// the timelock duration.
func PassedStatus(veto *VetoConfig, expiration types.Expiration, block types.BlockInfo) (Status, error) {
	if veto == nil {
		return Status{Kind: StatusPassed}, nil
	}
	end, err := expiration.Add(veto.TimelockDuration)
	if err != nil {
		return Status{}, err
	}
	if end.IsExpired(block) {
		return Status{Kind: StatusPassed}, nil
	}
	return VetoTimelock(end), nil
}

// CheckVeto validates a veto attempt against the proposal's current status
func CheckVeto(veto *VetoConfig, sender types.Address, status Status, block types.BlockInfo) error {
	if veto == nil {
		return ErrNoVetoConfiguration
	}
	if sender != veto.Vetoer {
		return ErrVetoUnauthorized
	}
	switch status.Kind {
	case StatusOpen:
		return veto.CheckVetoBeforePassed()
	case StatusVetoTimelock:
		if status.Expiration.IsExpired(block) {
			return ErrTimelockExpired
		}
		return nil
	case StatusPassed:
		return ErrTimelockExpired
	default:
		return &InvalidVetoStatusError{Status: status}
	}
}

// CheckExecute validates that a proposal in status may be executed by sender
func CheckExecute(veto *VetoConfig, sender types.Address, status Status) error {
	switch status.Kind {
	case StatusPassed:
		return nil
	case StatusVetoTimelock:
		if veto == nil || sender != veto.Vetoer {
			return ErrTimelocked
		}
		return veto.CheckEarlyExecute()
	default:
		return ErrNotPassed
	}
}
