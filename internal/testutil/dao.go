package testutil

import (
	"sort"

	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/contracts/core"
	"github.com/daodao/core/internal/contracts/group"
	"github.com/daodao/core/internal/contracts/staking"
	"github.com/daodao/core/pkg/types"
)

// Creator instantiates the DAOs built by the suite
const Creator types.Address = "creator"

// DAO is an instantiated DAO with its modules
type DAO struct {
	Core      types.Address
	Voting    types.Address
	Proposals []types.Address
}

// Module builds the instantiate info of a DAO module
func (s *Suite) Module(codeID string, msg any, label string) core.ModuleInstantiateInfo {
	return core.ModuleInstantiateInfo{
		CodeID: codeID,
		Msg:    MustRaw(s.t, msg),
		Admin:  &core.ModuleAdmin{CoreModule: &struct{}{}},
		Label:  label,
	}
}

// InstantiateDAO creates a DAO with the given voting module and proposal
// modules. Proposals lists the proposal modules in instantiation order.
func (s *Suite) InstantiateDAO(voting core.ModuleInstantiateInfo, modules ...core.ModuleInstantiateInfo) DAO {
	s.t.Helper()
	addr := s.Instantiate(Creator, core.CodeID, core.InstantiateMsg{
		Name:                           "test dao",
		Description:                    "a dao for tests",
		VotingModuleInstantiateInfo:    voting,
		ProposalModulesInstantiateInfo: modules,
	}, "dao")

	dao := DAO{Core: addr}
	s.Query(addr, core.QueryMsg{VotingModule: &struct{}{}}, &dao.Voting)

	var list []core.ProposalModule
	s.Query(addr, core.QueryMsg{ProposalModules: &core.ListModulesQuery{}}, &list)
	require.Len(s.t, list, len(modules))
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].Prefix, list[j].Prefix
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	for _, m := range list {
		dao.Proposals = append(dao.Proposals, m.Address)
	}
	return dao
}

// GroupDAO creates a DAO whose voting power comes from a member group
func (s *Suite) GroupDAO(members []group.Member, modules ...core.ModuleInstantiateInfo) DAO {
	s.t.Helper()
	voting := s.Module(group.CodeID, group.InstantiateMsg{Members: members}, "voting")
	return s.InstantiateDAO(voting, modules...)
}

// StakingDAO creates a DAO whose voting power is native tokens staked in
// denom
func (s *Suite) StakingDAO(denom string, modules ...core.ModuleInstantiateInfo) DAO {
	s.t.Helper()
	voting := s.Module(staking.CodeID, staking.InstantiateMsg{Denom: denom}, "voting")
	return s.InstantiateDAO(voting, modules...)
}

// Stake mints amount of denom to addr and stakes it in the staking module
func (s *Suite) Stake(stakingAddr, addr types.Address, amount uint64, denom string) {
	s.t.Helper()
	coin := types.NewCoin(amount, denom)
	s.Mint(addr, coin)
	s.MustExecute(addr, stakingAddr, staking.ExecuteMsg{Stake: &struct{}{}}, coin)
}

// Members builds a group with the given weights keyed by address
func Members(weights map[types.Address]uint64) []group.Member {
	out := make([]group.Member, 0, len(weights))
	for a, w := range weights {
		out = append(out, group.Member{Addr: a, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Power returns addr's voting power in the DAO at the current block
func (s *Suite) Power(dao DAO, addr types.Address) types.Uint128 {
	s.t.Helper()
	var resp types.VotingPowerAtHeightResponse
	s.Query(dao.Core, types.VotingQuery{VotingPowerAtHeight: &types.VotingPowerAtHeightQuery{Address: addr}}, &resp)
	return resp.Power
}

// HookCounter instantiates a hook counter
func (s *Suite) HookCounter(shouldError bool) types.Address {
	s.t.Helper()
	return s.Instantiate(Creator, HookCounterCodeID, HookCounterInit{ShouldError: shouldError}, "hooks")
}

// HookCounts queries a hook counter
func (s *Suite) HookCounts(counter types.Address) HookCounts {
	s.t.Helper()
	var counts HookCounts
	s.Query(counter, struct {
		Counts struct{} `json:"counts"`
	}{}, &counts)
	return counts
}
