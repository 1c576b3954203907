package governance

import (
	"errors"

	"github.com/daodao/core/pkg/types"
)

// ErrInvalidCreationPolicy is returned when zero or several variants are set
var ErrInvalidCreationPolicy = errors.New("exactly one proposal creation policy must be set")

// ModulePolicy restricts proposal creation to a single contract
type ModulePolicy struct {
	Addr types.Address `json:"addr"`
}

// ProposalCreationPolicy says who may create proposals
type ProposalCreationPolicy struct {
	Anyone *struct{}     `json:"anyone,omitempty"`
	Module *ModulePolicy `json:"module,omitempty"`
}

// AnyonePolicy lets any member propose
func AnyonePolicy() ProposalCreationPolicy {
	return ProposalCreationPolicy{Anyone: &struct{}{}}
}

// ModuleOnlyPolicy lets only addr propose
func ModuleOnlyPolicy(addr types.Address) ProposalCreationPolicy {
	return ProposalCreationPolicy{Module: &ModulePolicy{Addr: addr}}
}

// IsPermitted reports whether sender may create a proposal
func (p ProposalCreationPolicy) IsPermitted(sender types.Address) bool {
	if p.Module != nil {
		return p.Module.Addr == sender
	}
	return true
}

// Validate checks that exactly one variant is set
func (p ProposalCreationPolicy) Validate() error {
	if (p.Anyone == nil) == (p.Module == nil) {
		return ErrInvalidCreationPolicy
	}
	if p.Module != nil {
		return p.Module.Addr.Validate()
	}
	return nil
}
