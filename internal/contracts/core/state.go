package core

import (
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

var (
	admin           = storage.NewItem[types.Address]("admin")
	config          = storage.NewItem[Config]("config_v2")
	paused          = storage.NewItem[types.Expiration]("paused")
	votingModule    = storage.NewItem[types.Address]("voting_module")
	proposalModules = storage.NewMap[ProposalModule]("proposal_modules_v2")

	activeModuleCount = storage.NewItem[uint64]("active_proposal_module_count")
	totalModuleCount  = storage.NewItem[uint64]("total_proposal_module_count")
)

// derivePrefix maps a module index to a spreadsheet style column name:
// 0 is A, 25 is Z, 26 is AA.
func derivePrefix(index uint64) string {
	dividend := index + 1
	var out []byte
	for dividend > 0 {
		rem := (dividend - 1) % 26
		dividend = (dividend - rem) / 26
		out = append(out, byte('A'+rem))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// isPaused reports whether the DAO is paused at block
func isPaused(s storage.KVStore, block types.BlockInfo) (bool, error) {
	exp, ok, err := paused.MayLoad(s)
	if err != nil || !ok {
		return false, err
	}
	return !exp.IsExpired(block), nil
}

func loadCounts(s storage.KVStore) (active, total uint64, err error) {
	active, _, err = activeModuleCount.MayLoad(s)
	if err != nil {
		return 0, 0, err
	}
	total, _, err = totalModuleCount.MayLoad(s)
	return active, total, err
}

// registerModule stores a freshly instantiated proposal module
func registerModule(s storage.KVStore, addr types.Address) (ProposalModule, error) {
	active, total, err := loadCounts(s)
	if err != nil {
		return ProposalModule{}, err
	}
	m := ProposalModule{Address: addr, Prefix: derivePrefix(total), Status: ModuleEnabled}
	if err := proposalModules.Save(s, m, addr.Bytes()); err != nil {
		return ProposalModule{}, err
	}
	if err := activeModuleCount.Save(s, active+1); err != nil {
		return ProposalModule{}, err
	}
	return m, totalModuleCount.Save(s, total+1)
}

func listModules(s storage.KVStore, startAfter *types.Address, limit int, onlyActive bool) ([]ProposalModule, error) {
	opts := storage.RangeOptions{}
	if startAfter != nil {
		opts.Min = storage.ExclusiveBound(startAfter.Bytes())
	}
	out := []ProposalModule{}
	err := proposalModules.Range(s, opts, func(_ []byte, m ProposalModule) (bool, error) {
		if onlyActive && m.Status != ModuleEnabled {
			return false, nil
		}
		out = append(out, m)
		return limit > 0 && len(out) >= limit, nil
	})
	return out, err
}
