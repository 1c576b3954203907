package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/contracts/core"
	"github.com/daodao/core/internal/contracts/group"
	"github.com/daodao/core/internal/contracts/single"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/testutil"
	"github.com/daodao/core/pkg/types"
)

func singleModule(s *testutil.Suite) core.ModuleInstantiateInfo {
	return s.Module(single.CodeID, single.InstantiateMsg{Config: single.Config{
		Threshold:       governance.NewAbsolutePercentage(governance.Majority()),
		MaxVotingPeriod: types.Height(10),
	}}, "single")
}

func members() []group.Member {
	return testutil.Members(map[types.Address]uint64{"alice": 1, "bob": 3})
}

func setup(t *testing.T) (*testutil.Suite, testutil.DAO) {
	t.Helper()
	s := testutil.NewSuite(t)
	dao := s.GroupDAO(members(), singleModule(s), singleModule(s))
	s.NextBlock(5)
	return s, dao
}

func counts(s *testutil.Suite, dao types.Address) core.ProposalModuleCountResponse {
	var resp core.ProposalModuleCountResponse
	s.Query(dao, core.QueryMsg{ProposalModuleCount: &struct{}{}}, &resp)
	return resp
}

func TestInstantiateRegistersModules(t *testing.T) {
	s, dao := setup(t)

	assert.Equal(t, core.ProposalModuleCountResponse{ActiveProposalModuleCount: 2, TotalProposalModuleCount: 2}, counts(s, dao.Core))

	var state core.DumpStateResponse
	s.Query(dao.Core, core.QueryMsg{DumpState: &struct{}{}}, &state)
	assert.Equal(t, dao.Core, state.Admin)
	assert.Equal(t, dao.Voting, state.VotingModule)
	assert.Equal(t, "test dao", state.Config.Name)
	assert.Equal(t, "crates.io:dao-dao-core", state.Version.Contract)
	assert.Nil(t, state.Pause.Paused)

	prefixes := map[types.Address]string{}
	for _, m := range state.ProposalModules {
		prefixes[m.Address] = m.Prefix
		assert.Equal(t, core.ModuleEnabled, m.Status)
	}
	assert.Equal(t, "A", prefixes[dao.Proposals[0]])
	assert.Equal(t, "B", prefixes[dao.Proposals[1]])

	// voting power queries are forwarded to the voting module
	assert.Equal(t, uint64(3), s.Power(dao, "bob").Uint64())
	var total types.TotalPowerAtHeightResponse
	s.Query(dao.Core, types.VotingQuery{TotalPowerAtHeight: &types.TotalPowerAtHeightQuery{}}, &total)
	assert.Equal(t, uint64(4), total.Power.Uint64())
}

func TestInstantiateNeedsProposalModule(t *testing.T) {
	s := testutil.NewSuite(t)
	errText := s.InstantiateErr(testutil.Creator, core.CodeID, core.InstantiateMsg{
		Name:                        "empty",
		VotingModuleInstantiateInfo: s.Module(group.CodeID, group.InstantiateMsg{Members: members()}, "voting"),
	})
	assert.Contains(t, errText, core.ErrNoActiveProposalModules.Error())
}

func TestSelfOnlyMessages(t *testing.T) {
	s, dao := setup(t)

	msgs := []core.ExecuteMsg{
		{UpdateConfig: &core.UpdateConfig{Config: core.Config{Name: "hijacked"}}},
		{Pause: &core.Pause{Duration: types.Height(10)}},
		{UpdateProposalModules: &core.UpdateProposalModules{ToDisable: []types.Address{dao.Proposals[0]}}},
		{UpdateVotingModule: &core.UpdateVotingModule{Module: s.Module(group.CodeID, group.InstantiateMsg{Members: members()}, "voting")}},
		{ExecuteAdminMsgs: &core.ExecuteAdminMsgs{Msgs: []types.CosmosMsg{}}},
		{ExecuteProposalHook: &core.ExecuteProposalHook{Msgs: []types.CosmosMsg{}}},
	}
	for _, msg := range msgs {
		res := s.Execute("alice", dao.Core, msg)
		assert.Contains(t, res.Error, core.ErrUnauthorized.Error())
	}

	s.MustExecute(dao.Core, dao.Core, core.ExecuteMsg{UpdateConfig: &core.UpdateConfig{Config: core.Config{Name: "renamed"}}})
	var cfg core.Config
	s.Query(dao.Core, core.QueryMsg{Config: &struct{}{}}, &cfg)
	assert.Equal(t, "renamed", cfg.Name)
}

func TestProposalModuleExecutesTreasuryMsgs(t *testing.T) {
	s, dao := setup(t)
	s.Mint(dao.Core, types.NewCoin(100, "ujuno"))

	send := types.NewBankSend("carol", types.NewCoin(60, "ujuno"))
	s.MustExecute(dao.Proposals[0], dao.Core, core.ExecuteMsg{ExecuteProposalHook: &core.ExecuteProposalHook{Msgs: []types.CosmosMsg{send}}})
	assert.Equal(t, uint64(60), s.Balance("carol", "ujuno").Uint64())
	assert.Equal(t, uint64(40), s.Balance(dao.Core, "ujuno").Uint64())
}

func TestUpdateProposalModules(t *testing.T) {
	s, dao := setup(t)
	a, b := dao.Proposals[0], dao.Proposals[1]

	s.MustExecute(dao.Core, dao.Core, core.ExecuteMsg{UpdateProposalModules: &core.UpdateProposalModules{ToDisable: []types.Address{a}}})
	assert.Equal(t, core.ProposalModuleCountResponse{ActiveProposalModuleCount: 1, TotalProposalModuleCount: 2}, counts(s, dao.Core))

	var active []core.ProposalModule
	s.Query(dao.Core, core.QueryMsg{ActiveProposalModules: &core.ListModulesQuery{}}, &active)
	require.Len(t, active, 1)
	assert.Equal(t, b, active[0].Address)

	res := s.Execute(a, dao.Core, core.ExecuteMsg{ExecuteProposalHook: &core.ExecuteProposalHook{Msgs: []types.CosmosMsg{}}})
	assert.Contains(t, res.Error, core.ErrModuleDisabledCannotExecute.Error())

	res = s.Execute(dao.Core, dao.Core, core.ExecuteMsg{UpdateProposalModules: &core.UpdateProposalModules{ToDisable: []types.Address{a}}})
	assert.Contains(t, res.Error, core.ErrModuleAlreadyDisabled.Error())

	res = s.Execute(dao.Core, dao.Core, core.ExecuteMsg{UpdateProposalModules: &core.UpdateProposalModules{ToDisable: []types.Address{b}}})
	assert.Contains(t, res.Error, core.ErrNoActiveProposalModules.Error())

	res = s.Execute(dao.Core, dao.Core, core.ExecuteMsg{UpdateProposalModules: &core.UpdateProposalModules{ToDisable: []types.Address{"nobody"}, ToAdd: []core.ModuleInstantiateInfo{singleModule(s)}}})
	assert.Contains(t, res.Error, core.ErrProposalModuleDoesNotExist.Error())

	res = s.MustExecute(dao.Core, dao.Core, core.ExecuteMsg{UpdateProposalModules: &core.UpdateProposalModules{
		ToDisable: []types.Address{b},
		ToAdd:     []core.ModuleInstantiateInfo{singleModule(s)},
	}})
	prefix, ok := testutil.Attr(res, "prefix")
	require.True(t, ok)
	assert.Equal(t, "C", prefix)
	assert.Equal(t, core.ProposalModuleCountResponse{ActiveProposalModuleCount: 1, TotalProposalModuleCount: 3}, counts(s, dao.Core))
}

func TestUpdateVotingModule(t *testing.T) {
	s, dao := setup(t)

	s.MustExecute(dao.Core, dao.Core, core.ExecuteMsg{UpdateVotingModule: &core.UpdateVotingModule{
		Module: s.Module(group.CodeID, group.InstantiateMsg{Members: []group.Member{{Addr: "carol", Weight: 9}}}, "voting v2"),
	}})

	var vm types.Address
	s.Query(dao.Core, core.QueryMsg{VotingModule: &struct{}{}}, &vm)
	assert.NotEqual(t, dao.Voting, vm)

	s.NextBlock(5)
	dao.Voting = vm
	assert.Equal(t, uint64(9), s.Power(dao, "carol").Uint64())
	assert.Zero(t, s.Power(dao, "bob").Uint64())
}

func TestPause(t *testing.T) {
	s, dao := setup(t)

	s.MustExecute(dao.Core, dao.Core, core.ExecuteMsg{Pause: &core.Pause{Duration: types.Height(2)}})

	var info core.PauseInfoResponse
	s.Query(dao.Core, core.QueryMsg{PauseInfo: &struct{}{}}, &info)
	require.NotNil(t, info.Paused)
	assert.Equal(t, types.AtHeight(s.Block().Height+2), *info.Paused)

	res := s.Execute(dao.Core, dao.Core, core.ExecuteMsg{UpdateConfig: &core.UpdateConfig{Config: core.Config{Name: "x"}}})
	assert.Contains(t, res.Error, core.ErrPaused.Error())

	s.AdvanceBlocks(2)
	s.Query(dao.Core, core.QueryMsg{PauseInfo: &struct{}{}}, &info)
	assert.Nil(t, info.Paused)
	s.MustExecute(dao.Core, dao.Core, core.ExecuteMsg{UpdateConfig: &core.UpdateConfig{Config: core.Config{Name: "x"}}})
}

func TestAdminMsgs(t *testing.T) {
	s := testutil.NewSuite(t)
	alice := types.Address("alice")
	addr := s.Instantiate(testutil.Creator, core.CodeID, core.InstantiateMsg{
		Admin:                          &alice,
		Name:                           "admin dao",
		VotingModuleInstantiateInfo:    s.Module(group.CodeID, group.InstantiateMsg{Members: members()}, "voting"),
		ProposalModulesInstantiateInfo: []core.ModuleInstantiateInfo{singleModule(s)},
	}, "dao")
	s.Mint(addr, types.NewCoin(10, "ujuno"))

	res := s.Execute("bob", addr, core.ExecuteMsg{ExecuteAdminMsgs: &core.ExecuteAdminMsgs{}})
	assert.Contains(t, res.Error, core.ErrUnauthorized.Error())

	s.MustExecute(alice, addr, core.ExecuteMsg{ExecuteAdminMsgs: &core.ExecuteAdminMsgs{Msgs: []types.CosmosMsg{
		types.NewBankSend(alice, types.NewCoin(10, "ujuno")),
	}}})
	assert.Equal(t, uint64(10), s.Balance(alice, "ujuno").Uint64())
}
