// Package contracts registers every DAO contract with a host.
package contracts

import (
	"github.com/daodao/core/internal/contracts/condorcet"
	"github.com/daodao/core/internal/contracts/core"
	"github.com/daodao/core/internal/contracts/delegation"
	"github.com/daodao/core/internal/contracts/group"
	"github.com/daodao/core/internal/contracts/multiple"
	"github.com/daodao/core/internal/contracts/rewards"
	"github.com/daodao/core/internal/contracts/single"
	"github.com/daodao/core/internal/contracts/staking"
	"github.com/daodao/core/internal/host"
)

// Register makes every contract instantiable on h under its code id
func Register(h *host.Host) error {
	codes := map[string]host.Contract{
		core.CodeID:       core.New(),
		group.CodeID:      group.New(),
		staking.CodeID:    staking.New(),
		single.CodeID:     single.New(),
		multiple.CodeID:   multiple.New(),
		condorcet.CodeID:  condorcet.New(),
		delegation.CodeID: delegation.New(),
		rewards.CodeID:    rewards.New(),
	}
	for id, c := range codes {
		if err := h.RegisterCode(id, c); err != nil {
			return err
		}
	}
	return nil
}
