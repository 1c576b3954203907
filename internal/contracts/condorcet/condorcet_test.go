package condorcet_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/contracts/condorcet"
	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/testutil"
	"github.com/daodao/core/pkg/types"
)

const denom = "ujuno"

func baseConfig() condorcet.Config {
	return condorcet.Config{
		Quorum:       governance.Percent(types.DecimalPercent(50)),
		VotingPeriod: types.Height(10),
	}
}

type fixture struct {
	*testutil.Suite
	dao    testutil.DAO
	module types.Address
}

func setup(t *testing.T, cfg condorcet.Config) *fixture {
	t.Helper()
	s := testutil.NewSuite(t)
	members := testutil.Members(map[types.Address]uint64{"alice": 1, "bob": 1, "carol": 1})
	dao := s.GroupDAO(members, s.Module(condorcet.CodeID, condorcet.InstantiateMsg{Config: cfg}, "condorcet"))
	s.NextBlock(5)
	return &fixture{Suite: s, dao: dao, module: dao.Proposals[0]}
}

func (f *fixture) propose(t *testing.T, choices ...condorcet.Choice) uint64 {
	t.Helper()
	res := f.MustExecute("alice", f.module, condorcet.ExecuteMsg{Propose: &condorcet.ProposeMsg{Choices: choices}})
	raw, ok := testutil.Attr(res, "proposal_id")
	require.True(t, ok)
	id, err := strconv.ParseUint(raw, 10, 64)
	require.NoError(t, err)
	return id
}

func (f *fixture) vote(sender types.Address, id uint64, ranking ...uint32) types.TxResult {
	return f.Execute(sender, f.module, condorcet.ExecuteMsg{Vote: &condorcet.VoteMsg{ProposalID: id, Vote: ranking}})
}

func (f *fixture) proposal(t *testing.T, id uint64) condorcet.ProposalResponse {
	t.Helper()
	var resp condorcet.ProposalResponse
	f.Query(f.module, condorcet.QueryMsg{Proposal: &condorcet.ProposalIDMsg{ProposalID: id}}, &resp)
	return resp
}

func twoChoices() []condorcet.Choice {
	return []condorcet.Choice{
		{Msgs: []types.CosmosMsg{types.NewBankSend("erin", types.NewCoin(10, denom))}},
		{},
	}
}

func TestRankedVoteExecutes(t *testing.T) {
	f := setup(t, baseConfig())
	f.Mint(f.dao.Core, types.NewCoin(50, denom))
	id := f.propose(t, twoChoices()...)

	resp := f.proposal(t, id)
	require.Len(t, resp.Proposal.Choices, 3)
	assert.Equal(t, uint32(3), resp.Tally.Candidates())

	res := f.vote("alice", id, 0, 1, 2)
	require.Empty(t, res.Error)
	winner, _ := testutil.Attr(res, "winner")
	assert.Equal(t, "some(0)", winner)
	assert.True(t, f.proposal(t, id).Proposal.Status.Is(governance.StatusOpen))

	res = f.vote("bob", id, 0, 2, 1)
	require.Empty(t, res.Error)
	winner, _ = testutil.Attr(res, "winner")
	assert.Equal(t, "undisputed(0)", winner)

	resp = f.proposal(t, id)
	require.True(t, resp.Proposal.Status.Is(governance.StatusPassed))
	require.NotNil(t, resp.Proposal.Winner)
	assert.Equal(t, uint32(0), *resp.Proposal.Winner)

	res = f.vote("carol", id, 1, 0, 2)
	assert.Contains(t, res.Error, proposal.ErrNotOpen.Error())

	res = f.Execute("mallory", f.module, condorcet.ExecuteMsg{Execute: &condorcet.ProposalIDMsg{ProposalID: id}})
	assert.Contains(t, res.Error, condorcet.ErrZeroVotingPower.Error())

	f.MustExecute("carol", f.module, condorcet.ExecuteMsg{Execute: &condorcet.ProposalIDMsg{ProposalID: id}})
	assert.Equal(t, uint64(10), f.Balance("erin", denom).Uint64())
	assert.True(t, f.proposal(t, id).Proposal.Status.Is(governance.StatusExecuted))

	var vote condorcet.VoteResponse
	f.Query(f.module, condorcet.QueryMsg{GetVote: &condorcet.GetVoteQuery{ProposalID: id, Voter: "bob"}}, &vote)
	require.NotNil(t, vote.Vote)
	assert.Equal(t, []uint32{0, 2, 1}, vote.Vote.Vote)
}

func TestNoneOfTheAboveRejects(t *testing.T) {
	f := setup(t, baseConfig())
	id := f.propose(t, twoChoices()...)

	require.Empty(t, f.vote("alice", id, 2, 0, 1).Error)
	require.Empty(t, f.vote("bob", id, 2, 1, 0).Error)
	assert.True(t, f.proposal(t, id).Proposal.Status.Is(governance.StatusRejected))

	res := f.Execute("alice", f.module, condorcet.ExecuteMsg{Execute: &condorcet.ProposalIDMsg{ProposalID: id}})
	assert.Contains(t, res.Error, condorcet.ErrUnexecutable.Error())

	f.MustExecute("alice", f.module, condorcet.ExecuteMsg{Close: &condorcet.ProposalIDMsg{ProposalID: id}})
	assert.True(t, f.proposal(t, id).Proposal.Status.Is(governance.StatusClosed))
}

func TestVoteErrors(t *testing.T) {
	f := setup(t, baseConfig())
	id := f.propose(t, twoChoices()...)

	res := f.vote("mallory", id, 0, 1, 2)
	assert.Contains(t, res.Error, condorcet.ErrZeroVotingPower.Error())

	res = f.vote("alice", id, 0, 1)
	assert.Contains(t, res.Error, condorcet.ErrInvalidRanking.Error())
	res = f.vote("alice", id, 0, 0, 1)
	assert.Contains(t, res.Error, condorcet.ErrInvalidRanking.Error())

	require.Empty(t, f.vote("alice", id, 0, 1, 2).Error)
	res = f.vote("alice", id, 1, 0, 2)
	assert.Contains(t, res.Error, proposal.ErrAlreadyVoted.Error())

	res = f.Execute("alice", f.module, condorcet.ExecuteMsg{Close: &condorcet.ProposalIDMsg{ProposalID: id}})
	assert.Contains(t, res.Error, condorcet.ErrUnclosable.Error())

	res = f.vote("bob", 99, 0, 1, 2)
	assert.Contains(t, res.Error, (&proposal.NoSuchProposalError{ID: 99}).Error())
}

func TestProposeErrors(t *testing.T) {
	f := setup(t, baseConfig())

	res := f.Execute("alice", f.module, condorcet.ExecuteMsg{Propose: &condorcet.ProposeMsg{}})
	assert.Contains(t, res.Error, condorcet.ErrZeroChoices.Error())

	res = f.Execute("mallory", f.module, condorcet.ExecuteMsg{Propose: &condorcet.ProposeMsg{Choices: twoChoices()}})
	assert.Contains(t, res.Error, condorcet.ErrZeroVotingPower.Error())
}

func TestExpiryWithoutQuorum(t *testing.T) {
	cfg := baseConfig()
	cfg.Quorum = governance.Percent(types.DecimalPercent(100))
	f := setup(t, cfg)
	id := f.propose(t, twoChoices()...)

	require.Empty(t, f.vote("alice", id, 0, 1, 2).Error)
	require.Empty(t, f.vote("bob", id, 0, 1, 2).Error)
	// undisputed but short of quorum
	assert.True(t, f.proposal(t, id).Proposal.Status.Is(governance.StatusOpen))

	f.AdvanceBlocks(10)
	assert.True(t, f.proposal(t, id).Proposal.Status.Is(governance.StatusRejected))
	res := f.vote("carol", id, 0, 1, 2)
	assert.Contains(t, res.Error, (&proposal.ExpiredError{ID: id}).Error())
}

func TestMinVotingPeriod(t *testing.T) {
	cfg := baseConfig()
	minPeriod := types.Height(3)
	cfg.MinVotingPeriod = &minPeriod
	f := setup(t, cfg)
	id := f.propose(t, twoChoices()...)

	require.Empty(t, f.vote("alice", id, 0, 1, 2).Error)
	require.Empty(t, f.vote("bob", id, 0, 1, 2).Error)
	assert.True(t, f.proposal(t, id).Proposal.Status.Is(governance.StatusOpen))

	f.AdvanceBlocks(3)
	assert.True(t, f.proposal(t, id).Proposal.Status.Is(governance.StatusPassed))
}

func TestUpdateConfig(t *testing.T) {
	f := setup(t, baseConfig())
	cfg := baseConfig()
	cfg.CloseProposalsOnExecutionFailure = true

	res := f.Execute("alice", f.module, condorcet.ExecuteMsg{UpdateConfig: &cfg})
	assert.Contains(t, res.Error, proposal.ErrUnauthorized.Error())

	f.MustExecute(f.dao.Core, f.module, condorcet.ExecuteMsg{UpdateConfig: &cfg})
	var got condorcet.Config
	f.Query(f.module, condorcet.QueryMsg{Config: &struct{}{}}, &got)
	assert.True(t, got.CloseProposalsOnExecutionFailure)
}
