package single_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/contracts/single"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/testutil"
	"github.com/daodao/core/pkg/types"
)

const denom = "ujuno"

func majorityConfig() single.Config {
	return single.Config{
		Threshold:       governance.NewAbsolutePercentage(governance.Majority()),
		MaxVotingPeriod: types.Height(10),
	}
}

type fixture struct {
	*testutil.Suite
	dao    testutil.DAO
	module types.Address
}

func setup(t *testing.T, msg single.InstantiateMsg, weights map[types.Address]uint64) *fixture {
	t.Helper()
	s := testutil.NewSuite(t)
	dao := s.GroupDAO(testutil.Members(weights), s.Module(single.CodeID, msg, "single"))
	s.NextBlock(5)
	return &fixture{Suite: s, dao: dao, module: dao.Proposals[0]}
}

func threeMembers() map[types.Address]uint64 {
	return map[types.Address]uint64{"alice": 1, "bob": 1, "carol": 1}
}

func (f *fixture) propose(t *testing.T, sender types.Address, msgs ...types.CosmosMsg) uint64 {
	t.Helper()
	res := f.MustExecute(sender, f.module, single.ExecuteMsg{Propose: &single.ProposeMsg{
		Title:       "title",
		Description: "description",
		Msgs:        msgs,
	}})
	raw, ok := testutil.Attr(res, "proposal_id")
	require.True(t, ok)
	id, err := strconv.ParseUint(raw, 10, 64)
	require.NoError(t, err)
	return id
}

func (f *fixture) vote(sender types.Address, id uint64, v governance.Vote) types.TxResult {
	return f.Execute(sender, f.module, single.ExecuteMsg{Vote: &single.VoteMsg{ProposalID: id, Vote: v}})
}

func (f *fixture) proposal(t *testing.T, id uint64) single.Proposal {
	t.Helper()
	var resp single.ProposalResponse
	f.Query(f.module, single.QueryMsg{Proposal: &single.ProposalIDMsg{ProposalID: id}}, &resp)
	require.Equal(t, id, resp.ID)
	return resp.Proposal
}

func (f *fixture) run(sender types.Address, action string, id uint64) types.TxResult {
	msg := &single.ProposalIDMsg{ProposalID: id}
	switch action {
	case "execute":
		return f.Execute(sender, f.module, single.ExecuteMsg{Execute: msg})
	case "veto":
		return f.Execute(sender, f.module, single.ExecuteMsg{Veto: msg})
	default:
		return f.Execute(sender, f.module, single.ExecuteMsg{Close: msg})
	}
}

func TestProposeVoteExecute(t *testing.T) {
	f := setup(t, single.InstantiateMsg{Config: majorityConfig()}, threeMembers())
	f.Mint(f.dao.Core, types.NewCoin(100, denom))

	send := types.NewBankSend("dave", types.NewCoin(40, denom))
	id := f.propose(t, "alice", send)
	assert.Equal(t, uint64(1), id)

	prop := f.proposal(t, id)
	assert.Equal(t, types.Address("alice"), prop.Proposer)
	assert.Equal(t, uint64(3), prop.TotalPower.Uint64())
	assert.Equal(t, types.AtHeight(f.Block().Height+10), prop.Expiration)
	assert.True(t, prop.Status.Is(governance.StatusOpen))

	res := f.vote("alice", id, governance.VoteYes)
	require.Empty(t, res.Error)
	status, _ := testutil.Attr(res, "status")
	assert.Equal(t, "open", status)

	res = f.vote("bob", id, governance.VoteYes)
	require.Empty(t, res.Error)
	status, _ = testutil.Attr(res, "status")
	assert.Equal(t, "passed", status)

	res = f.vote("carol", id, governance.VoteNo)
	assert.Contains(t, res.Error, proposal.ErrNotOpen.Error())

	f.MustExecute("carol", f.module, single.ExecuteMsg{Execute: &single.ProposalIDMsg{ProposalID: id}})
	assert.Equal(t, uint64(40), f.Balance("dave", denom).Uint64())
	assert.Equal(t, uint64(60), f.Balance(f.dao.Core, denom).Uint64())
	assert.True(t, f.proposal(t, id).Status.Is(governance.StatusExecuted))

	res = f.run("carol", "execute", id)
	assert.Contains(t, res.Error, governance.ErrNotPassed.Error())
}

func TestVoteErrors(t *testing.T) {
	f := setup(t, single.InstantiateMsg{Config: majorityConfig()}, threeMembers())
	id := f.propose(t, "alice")

	res := f.vote("mallory", id, governance.VoteYes)
	assert.Contains(t, res.Error, proposal.ErrNotRegistered.Error())

	res = f.vote("alice", 7, governance.VoteYes)
	assert.Contains(t, res.Error, (&proposal.NoSuchProposalError{ID: 7}).Error())

	require.Empty(t, f.vote("alice", id, governance.VoteNo).Error)
	res = f.vote("alice", id, governance.VoteYes)
	assert.Contains(t, res.Error, proposal.ErrAlreadyVoted.Error())

	f.AdvanceBlocks(10)
	res = f.vote("bob", id, governance.VoteYes)
	assert.Contains(t, res.Error, (&proposal.ExpiredError{ID: id}).Error())
}

func TestRevoting(t *testing.T) {
	cfg := majorityConfig()
	cfg.AllowRevoting = true
	f := setup(t, single.InstantiateMsg{Config: cfg}, threeMembers())
	id := f.propose(t, "alice")

	require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
	require.Empty(t, f.vote("bob", id, governance.VoteYes).Error)

	// a majority does not close voting while revotes are allowed
	prop := f.proposal(t, id)
	assert.True(t, prop.Status.Is(governance.StatusOpen))
	assert.Equal(t, uint64(2), prop.Votes.Yes.Uint64())

	res := f.vote("bob", id, governance.VoteYes)
	assert.Contains(t, res.Error, proposal.ErrAlreadyCast.Error())

	require.Empty(t, f.vote("bob", id, governance.VoteNo).Error)
	prop = f.proposal(t, id)
	assert.Equal(t, uint64(1), prop.Votes.Yes.Uint64())
	assert.Equal(t, uint64(1), prop.Votes.No.Uint64())

	var vote single.VoteResponse
	f.Query(f.module, single.QueryMsg{GetVote: &single.GetVoteQuery{ProposalID: id, Voter: "bob"}}, &vote)
	require.NotNil(t, vote.Vote)
	assert.Equal(t, governance.VoteNo, vote.Vote.Vote)

	require.Empty(t, f.vote("carol", id, governance.VoteNo).Error)
	f.AdvanceBlocks(10)
	assert.True(t, f.proposal(t, id).Status.Is(governance.StatusRejected))
}

func TestThresholdQuorum(t *testing.T) {
	cfg := majorityConfig()
	cfg.Threshold = governance.NewThresholdQuorum(governance.Majority(), governance.Percent(types.DecimalPercent(50)))
	weights := map[types.Address]uint64{"alice": 3, "bob": 3, "carol": 4}

	t.Run("quorum not met", func(t *testing.T) {
		f := setup(t, single.InstantiateMsg{Config: cfg}, weights)
		id := f.propose(t, "alice")
		require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
		assert.True(t, f.proposal(t, id).Status.Is(governance.StatusOpen))

		f.AdvanceBlocks(10)
		assert.True(t, f.proposal(t, id).Status.Is(governance.StatusRejected))
		f.MustExecute("bob", f.module, single.ExecuteMsg{Close: &single.ProposalIDMsg{ProposalID: id}})
		assert.True(t, f.proposal(t, id).Status.Is(governance.StatusClosed))
	})

	t.Run("abstain counts toward quorum only", func(t *testing.T) {
		f := setup(t, single.InstantiateMsg{Config: cfg}, weights)
		id := f.propose(t, "alice")
		require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
		require.Empty(t, f.vote("carol", id, governance.VoteAbstain).Error)

		// before expiry the threshold is measured against all non-abstaining power
		assert.True(t, f.proposal(t, id).Status.Is(governance.StatusOpen))

		f.AdvanceBlocks(10)
		assert.True(t, f.proposal(t, id).Status.Is(governance.StatusPassed))
	})
}

func TestAbsoluteCount(t *testing.T) {
	cfg := majorityConfig()
	cfg.Threshold = governance.NewAbsoluteCount(types.NewUint128(2))
	f := setup(t, single.InstantiateMsg{Config: cfg}, threeMembers())

	id := f.propose(t, "alice")
	require.Empty(t, f.vote("alice", id, governance.VoteNo).Error)
	require.Empty(t, f.vote("bob", id, governance.VoteNo).Error)
	assert.True(t, f.proposal(t, id).Status.Is(governance.StatusRejected))

	res := f.run("alice", "execute", id)
	assert.Contains(t, res.Error, governance.ErrNotPassed.Error())
}

func TestMinVotingPeriod(t *testing.T) {
	cfg := majorityConfig()
	min := types.Height(3)
	cfg.MinVotingPeriod = &min
	f := setup(t, single.InstantiateMsg{Config: cfg}, threeMembers())

	id := f.propose(t, "alice")
	require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
	require.Empty(t, f.vote("bob", id, governance.VoteYes).Error)
	assert.True(t, f.proposal(t, id).Status.Is(governance.StatusOpen))

	f.AdvanceBlocks(3)
	assert.True(t, f.proposal(t, id).Status.Is(governance.StatusPassed))
}

func TestCloseOnlyRejected(t *testing.T) {
	f := setup(t, single.InstantiateMsg{Config: majorityConfig()}, threeMembers())
	id := f.propose(t, "alice")

	res := f.run("alice", "close", id)
	assert.Contains(t, res.Error, proposal.ErrWrongCloseStatus.Error())

	require.Empty(t, f.vote("alice", id, governance.VoteNo).Error)
	require.Empty(t, f.vote("bob", id, governance.VoteNo).Error)
	require.Empty(t, f.run("carol", "close", id).Error)

	res = f.run("carol", "close", id)
	assert.Contains(t, res.Error, proposal.ErrWrongCloseStatus.Error())
}

func TestExecutionFailure(t *testing.T) {
	overdraw := types.NewBankSend("dave", types.NewCoin(1000, denom))

	t.Run("aborts without close on failure", func(t *testing.T) {
		f := setup(t, single.InstantiateMsg{Config: majorityConfig()}, threeMembers())
		id := f.propose(t, "alice", overdraw)
		require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
		require.Empty(t, f.vote("bob", id, governance.VoteYes).Error)

		res := f.run("alice", "execute", id)
		assert.NotEmpty(t, res.Error)
		assert.True(t, f.proposal(t, id).Status.Is(governance.StatusPassed))
	})

	t.Run("marks execution failed", func(t *testing.T) {
		cfg := majorityConfig()
		cfg.CloseProposalOnExecutionFailure = true
		f := setup(t, single.InstantiateMsg{Config: cfg}, threeMembers())
		id := f.propose(t, "alice", overdraw)
		require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
		require.Empty(t, f.vote("bob", id, governance.VoteYes).Error)

		res := f.run("alice", "execute", id)
		require.Empty(t, res.Error)
		failed, ok := testutil.Attr(res, "proposal_execution_failed")
		assert.True(t, ok)
		assert.Equal(t, strconv.FormatUint(id, 10), failed)
		assert.True(t, f.proposal(t, id).Status.Is(governance.StatusExecutionFailed))
	})
}

func TestOnlyMembersExecute(t *testing.T) {
	cfg := majorityConfig()
	cfg.OnlyMembersExecute = true
	f := setup(t, single.InstantiateMsg{Config: cfg}, threeMembers())
	id := f.propose(t, "alice")
	require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
	require.Empty(t, f.vote("bob", id, governance.VoteYes).Error)

	res := f.run("mallory", "execute", id)
	assert.Contains(t, res.Error, proposal.ErrUnauthorized.Error())
	require.Empty(t, f.run("carol", "execute", id).Error)
}

func TestVeto(t *testing.T) {
	cfg := majorityConfig()
	cfg.Veto = &governance.VetoConfig{
		TimelockDuration: types.Height(5),
		Vetoer:           "oversight",
		VetoBeforePassed: true,
	}
	f := setup(t, single.InstantiateMsg{Config: cfg}, threeMembers())

	passed := func() uint64 {
		id := f.propose(t, "alice")
		require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
		require.Empty(t, f.vote("bob", id, governance.VoteYes).Error)
		return id
	}

	id := passed()
	prop := f.proposal(t, id)
	require.True(t, prop.Status.Is(governance.StatusVetoTimelock))
	assert.Equal(t, types.AtHeight(prop.Expiration.Height+5), prop.Status.Expiration)

	assert.Contains(t, f.run("alice", "execute", id).Error, governance.ErrTimelocked.Error())
	assert.Contains(t, f.run("alice", "veto", id).Error, governance.ErrVetoUnauthorized.Error())
	assert.Contains(t, f.run("oversight", "execute", id).Error, governance.ErrNoEarlyExecute.Error())
	require.Empty(t, f.run("oversight", "veto", id).Error)
	assert.True(t, f.proposal(t, id).Status.Is(governance.StatusVetoed))

	open := f.propose(t, "alice")
	require.Empty(t, f.run("oversight", "veto", open).Error)
	assert.True(t, f.proposal(t, open).Status.Is(governance.StatusVetoed))

	late := passed()
	f.AdvanceBlocks(15)
	assert.True(t, f.proposal(t, late).Status.Is(governance.StatusPassed))
	assert.Contains(t, f.run("oversight", "veto", late).Error, governance.ErrTimelockExpired.Error())
	require.Empty(t, f.run("alice", "execute", late).Error)
}

func TestProposalAndVoteHooks(t *testing.T) {
	f := setup(t, single.InstantiateMsg{Config: majorityConfig()}, threeMembers())
	counter := f.HookCounter(false)

	res := f.Execute("alice", f.module, single.ExecuteMsg{AdminMsg: proposal.AdminMsg{
		AddProposalHook: &proposal.HookAddress{Address: counter},
	}})
	assert.Contains(t, res.Error, proposal.ErrUnauthorized.Error())

	f.MustExecute(f.dao.Core, f.module, single.ExecuteMsg{AdminMsg: proposal.AdminMsg{
		AddProposalHook: &proposal.HookAddress{Address: counter},
	}})
	f.MustExecute(f.dao.Core, f.module, single.ExecuteMsg{AdminMsg: proposal.AdminMsg{
		AddVoteHook: &proposal.HookAddress{Address: counter},
	}})

	id := f.propose(t, "alice")
	require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
	require.Empty(t, f.vote("bob", id, governance.VoteYes).Error)

	counts := f.HookCounts(counter)
	// new proposal plus the open to passed change
	assert.Equal(t, uint64(2), counts.Proposal)
	assert.Equal(t, uint64(2), counts.Vote)

	var registered hooks.HooksResponse
	f.Query(f.module, single.QueryMsg{SharedQuery: proposal.SharedQuery{ProposalHooks: &struct{}{}}}, &registered)
	assert.Equal(t, []types.Address{counter}, registered.Hooks)
}

func TestFailingHookIsDeregistered(t *testing.T) {
	f := setup(t, single.InstantiateMsg{Config: majorityConfig()}, threeMembers())
	counter := f.HookCounter(true)
	f.MustExecute(f.dao.Core, f.module, single.ExecuteMsg{AdminMsg: proposal.AdminMsg{
		AddProposalHook: &proposal.HookAddress{Address: counter},
	}})

	res := f.MustExecute("alice", f.module, single.ExecuteMsg{Propose: &single.ProposeMsg{Title: "t", Description: "d"}})
	removed, ok := testutil.Attr(res, "removed_hook")
	assert.True(t, ok)
	assert.Equal(t, counter.String(), removed)

	var registered hooks.HooksResponse
	f.Query(f.module, single.QueryMsg{SharedQuery: proposal.SharedQuery{ProposalHooks: &struct{}{}}}, &registered)
	assert.Empty(t, registered.Hooks)
	assert.Equal(t, types.Address("alice"), f.proposal(t, 1).Proposer)
}

func TestFailingHookAborts(t *testing.T) {
	f := setup(t, single.InstantiateMsg{Config: majorityConfig(), HookFailurePolicy: hooks.PolicyAbort}, threeMembers())
	counter := f.HookCounter(true)
	f.MustExecute(f.dao.Core, f.module, single.ExecuteMsg{AdminMsg: proposal.AdminMsg{
		AddProposalHook: &proposal.HookAddress{Address: counter},
	}})

	res := f.Execute("alice", f.module, single.ExecuteMsg{Propose: &single.ProposeMsg{Title: "t", Description: "d"}})
	assert.NotEmpty(t, res.Error)

	var count uint64
	f.Query(f.module, single.QueryMsg{SharedQuery: proposal.SharedQuery{ProposalCount: &struct{}{}}}, &count)
	assert.Zero(t, count)
}

func TestCreationPolicy(t *testing.T) {
	policy := governance.ModuleOnlyPolicy("prepropose")
	f := setup(t, single.InstantiateMsg{Config: majorityConfig(), CreationPolicy: &policy}, threeMembers())

	res := f.Execute("alice", f.module, single.ExecuteMsg{Propose: &single.ProposeMsg{Title: "t", Description: "d"}})
	assert.Contains(t, res.Error, proposal.ErrUnauthorized.Error())

	res = f.Execute("prepropose", f.module, single.ExecuteMsg{Propose: &single.ProposeMsg{Title: "t", Description: "d"}})
	assert.Contains(t, res.Error, proposal.ErrInvalidProposer.Error())

	alice := types.Address("alice")
	f.MustExecute("prepropose", f.module, single.ExecuteMsg{Propose: &single.ProposeMsg{
		Title: "t", Description: "d", Proposer: &alice,
	}})
	assert.Equal(t, alice, f.proposal(t, 1).Proposer)

	require.Empty(t, f.vote("alice", 1, governance.VoteNo).Error)
	require.Empty(t, f.vote("bob", 1, governance.VoteNo).Error)

	// the completed hook cannot reach the creation module, so the policy
	// falls back to anyone
	res = f.run("carol", "close", 1)
	require.Empty(t, res.Error)
	_, ok := testutil.Attr(res, "failed_prepropose_hook")
	assert.True(t, ok)

	var current governance.ProposalCreationPolicy
	f.Query(f.module, single.QueryMsg{SharedQuery: proposal.SharedQuery{ProposalCreationPolicy: &struct{}{}}}, &current)
	assert.NotNil(t, current.Anyone)
	f.propose(t, "bob")
}

func TestListQueries(t *testing.T) {
	f := setup(t, single.InstantiateMsg{Config: majorityConfig()}, threeMembers())
	for i := 0; i < 4; i++ {
		f.propose(t, "alice")
	}
	require.Empty(t, f.vote("alice", 2, governance.VoteYes).Error)
	require.Empty(t, f.vote("bob", 2, governance.VoteNo).Error)

	var list single.ProposalListResponse
	after, limit := uint64(1), uint64(2)
	f.Query(f.module, single.QueryMsg{ListProposals: &single.ListProposalsQuery{StartAfter: &after, Limit: &limit}}, &list)
	require.Len(t, list.Proposals, 2)
	assert.Equal(t, uint64(2), list.Proposals[0].ID)
	assert.Equal(t, uint64(3), list.Proposals[1].ID)

	before := uint64(4)
	f.Query(f.module, single.QueryMsg{ReverseProposals: &single.ReverseProposalsQuery{StartBefore: &before}}, &list)
	require.Len(t, list.Proposals, 3)
	assert.Equal(t, uint64(3), list.Proposals[0].ID)
	assert.Equal(t, uint64(1), list.Proposals[2].ID)

	var votes single.VoteListResponse
	f.Query(f.module, single.QueryMsg{ListVotes: &single.ListVotesQuery{ProposalID: 2}}, &votes)
	require.Len(t, votes.Votes, 2)
	assert.Equal(t, types.Address("alice"), votes.Votes[0].Voter)
	assert.Equal(t, governance.VoteNo, votes.Votes[1].Vote)

	var next uint64
	f.Query(f.module, single.QueryMsg{SharedQuery: proposal.SharedQuery{NextProposalID: &struct{}{}}}, &next)
	assert.Equal(t, uint64(5), next)
}

func TestUpdateRationaleAndConfig(t *testing.T) {
	f := setup(t, single.InstantiateMsg{Config: majorityConfig()}, threeMembers())
	id := f.propose(t, "alice")

	why := "because"
	res := f.Execute("alice", f.module, single.ExecuteMsg{UpdateRationale: &single.RationaleMsg{ProposalID: id, Rationale: &why}})
	assert.Contains(t, res.Error, (&proposal.NoSuchVoteError{ID: id, Voter: "alice"}).Error())

	require.Empty(t, f.vote("alice", id, governance.VoteYes).Error)
	f.MustExecute("alice", f.module, single.ExecuteMsg{UpdateRationale: &single.RationaleMsg{ProposalID: id, Rationale: &why}})
	var vote single.VoteResponse
	f.Query(f.module, single.QueryMsg{GetVote: &single.GetVoteQuery{ProposalID: id, Voter: "alice"}}, &vote)
	require.NotNil(t, vote.Vote)
	require.NotNil(t, vote.Vote.Rationale)
	assert.Equal(t, why, *vote.Vote.Rationale)

	cfg := majorityConfig()
	cfg.AllowRevoting = true
	res = f.Execute("alice", f.module, single.ExecuteMsg{UpdateConfig: &cfg})
	assert.Contains(t, res.Error, proposal.ErrUnauthorized.Error())
	f.MustExecute(f.dao.Core, f.module, single.ExecuteMsg{UpdateConfig: &cfg})

	var stored single.Config
	f.Query(f.module, single.QueryMsg{Config: &struct{}{}}, &stored)
	assert.True(t, stored.AllowRevoting)

	// the open proposal keeps the settings it was created with
	assert.False(t, f.proposal(t, id).AllowRevoting)
}

func TestInstantiateValidation(t *testing.T) {
	s := testutil.NewSuite(t)
	cfg := majorityConfig()
	cfg.Threshold = governance.NewAbsolutePercentage(governance.Percent(types.ZeroDecimal()))
	errText := s.InstantiateErr("creator", single.CodeID, single.InstantiateMsg{Config: cfg})
	assert.Contains(t, errText, governance.ErrZeroThreshold.Error())

	cfg = majorityConfig()
	min := types.Seconds(10)
	cfg.MinVotingPeriod = &min
	errText = s.InstantiateErr("creator", single.CodeID, single.InstantiateMsg{Config: cfg})
	assert.Contains(t, errText, governance.ErrDurationUnitsConflict.Error())
}
