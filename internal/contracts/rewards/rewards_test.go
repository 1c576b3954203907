package rewards_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/contracts/group"
	"github.com/daodao/core/internal/contracts/rewards"
	"github.com/daodao/core/internal/contracts/single"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/testutil"
	"github.com/daodao/core/pkg/types"
)

const denom = "ujuno"

type fixture struct {
	*testutil.Suite
	dao     testutil.DAO
	rewards types.Address
}

// setup builds a group DAO of alice (1) and bob (3) and a distributor owned
// by the test creator that the group notifies of membership changes
func setup(t *testing.T) *fixture {
	t.Helper()
	s := testutil.NewSuite(t)
	members := testutil.Members(map[types.Address]uint64{"alice": 1, "bob": 3})
	dao := s.GroupDAO(members, s.Module(single.CodeID, single.InstantiateMsg{Config: single.Config{
		Threshold:       governance.NewAbsolutePercentage(governance.Majority()),
		MaxVotingPeriod: types.Height(10),
	}}, "single"))
	addr := s.Instantiate(testutil.Creator, rewards.CodeID, rewards.InstantiateMsg{}, "rewards")
	s.MustExecute(dao.Core, dao.Voting, group.ExecuteMsg{AddHook: &group.HookMsg{Addr: addr}})
	s.NextBlock(5)
	return &fixture{Suite: s, dao: dao, rewards: addr}
}

// create registers a distribution funded with amount by the creator
func (f *fixture) create(t *testing.T, rate rewards.EmissionRate, amount uint64) uint64 {
	t.Helper()
	coin := types.NewCoin(amount, denom)
	f.Mint(testutil.Creator, coin)
	res := f.MustExecute(testutil.Creator, f.rewards, rewards.ExecuteMsg{Create: &rewards.CreateMsg{
		Denom:        denom,
		EmissionRate: rate,
		VPContract:   f.dao.Voting,
		HookCaller:   f.dao.Voting,
	}}, coin)
	attr, ok := testutil.Attr(res, "id")
	require.True(t, ok)
	id, err := strconv.ParseUint(attr, 10, 64)
	require.NoError(t, err)
	return id
}

func (f *fixture) pending(t *testing.T, addr types.Address) map[uint64]uint64 {
	t.Helper()
	var resp rewards.PendingRewardsResponse
	f.Query(f.rewards, rewards.QueryMsg{PendingRewards: &rewards.PendingRewardsQuery{Address: addr}}, &resp)
	out := map[uint64]uint64{}
	for _, p := range resp.PendingRewards {
		out[p.ID] = p.PendingRewards.Uint64()
	}
	return out
}

func (f *fixture) claim(sender types.Address, id uint64) types.TxResult {
	return f.Execute(sender, f.rewards, rewards.ExecuteMsg{Claim: &rewards.IDMsg{ID: id}})
}

func TestLinearDistribution(t *testing.T) {
	f := setup(t)
	id := f.create(t, rewards.LinearRate(100, types.Height(10), false), 1_000)

	f.AdvanceBlocks(5)
	assert.Equal(t, uint64(0), f.pending(t, "alice")[id])

	f.AdvanceBlocks(5)
	assert.Equal(t, uint64(25), f.pending(t, "alice")[id])
	assert.Equal(t, uint64(75), f.pending(t, "bob")[id])

	res := f.claim("alice", id)
	require.Empty(t, res.Error)
	assert.Equal(t, uint64(25), f.Balance("alice", denom).Uint64())
	res = f.claim("alice", id)
	assert.Contains(t, res.Error, rewards.ErrNothingToClaim.Error())

	// carol joins with the same weight as everyone else combined and is
	// settled at zero power
	weight := uint64(4)
	f.MustExecute(f.dao.Core, f.dao.Voting, group.ExecuteMsg{UpdateMembers: &group.UpdateMembers{
		Add: []group.Member{{Addr: "carol", Weight: weight}},
	}})
	f.AdvanceBlocks(10)

	assert.Equal(t, uint64(12), f.pending(t, "alice")[id])
	assert.Equal(t, uint64(112), f.pending(t, "bob")[id])
	assert.Equal(t, uint64(50), f.pending(t, "carol")[id])

	res = f.claim("carol", id)
	require.Empty(t, res.Error)
	assert.Equal(t, uint64(50), f.Balance("carol", denom).Uint64())
}

func TestWithdraw(t *testing.T) {
	f := setup(t)
	id := f.create(t, rewards.LinearRate(100, types.Height(10), false), 1_000)
	f.AdvanceBlocks(20)

	var left types.Uint128
	f.Query(f.rewards, rewards.QueryMsg{UndistributedRewards: &rewards.IDMsg{ID: id}}, &left)
	assert.Equal(t, uint64(800), left.Uint64())

	res := f.Execute("bob", f.rewards, rewards.ExecuteMsg{Withdraw: &rewards.IDMsg{ID: id}})
	assert.Contains(t, res.Error, rewards.ErrUnauthorized.Error())

	f.MustExecute(testutil.Creator, f.rewards, rewards.ExecuteMsg{Withdraw: &rewards.IDMsg{ID: id}})
	assert.Equal(t, uint64(800), f.Balance(testutil.Creator, denom).Uint64())
	res = f.Execute(testutil.Creator, f.rewards, rewards.ExecuteMsg{Withdraw: &rewards.IDMsg{ID: id}})
	assert.Contains(t, res.Error, rewards.ErrNothingToWithdraw.Error())

	// what was emitted before the withdrawal stays claimable
	f.AdvanceBlocks(10)
	assert.Equal(t, uint64(150), f.pending(t, "bob")[id])
	res = f.claim("bob", id)
	require.Empty(t, res.Error)
	assert.Equal(t, uint64(150), f.Balance("bob", denom).Uint64())
}

func TestImmediateAndIndependentDistributions(t *testing.T) {
	f := setup(t)
	linear := f.create(t, rewards.LinearRate(100, types.Height(10), false), 1_000)
	immediate := f.create(t, rewards.ImmediateRate(), 40)

	pending := f.pending(t, "bob")
	assert.Equal(t, uint64(0), pending[linear])
	assert.Equal(t, uint64(30), pending[immediate])

	res := f.claim("bob", immediate)
	require.Empty(t, res.Error)
	assert.Equal(t, uint64(30), f.Balance("bob", denom).Uint64())
	assert.Contains(t, f.claim("bob", linear).Error, rewards.ErrNothingToClaim.Error())

	coin := types.NewCoin(40, denom)
	f.Mint("dave", coin)
	f.MustExecute("dave", f.rewards, rewards.ExecuteMsg{FundLatest: &struct{}{}}, coin)
	assert.Equal(t, uint64(20), f.pending(t, "alice")[immediate])
	assert.Equal(t, uint64(30), f.pending(t, "bob")[immediate])
}

func TestUpdateEmissionRate(t *testing.T) {
	f := setup(t)
	id := f.create(t, rewards.LinearRate(100, types.Height(10), false), 1_000)
	f.AdvanceBlocks(10)

	paused := rewards.PausedRate()
	f.MustExecute(testutil.Creator, f.rewards, rewards.ExecuteMsg{Update: &rewards.UpdateMsg{ID: id, EmissionRate: &paused}})
	f.AdvanceBlocks(30)
	assert.Equal(t, uint64(75), f.pending(t, "bob")[id])

	var d rewards.Distribution
	f.Query(f.rewards, rewards.QueryMsg{Distribution: &rewards.IDMsg{ID: id}}, &d)
	assert.Equal(t, uint64(900), d.FundedAmount.Uint64())
	assert.True(t, d.ActiveEpoch.EndsAt.IsNever())

	resume := rewards.LinearRate(200, types.Height(10), false)
	f.MustExecute(testutil.Creator, f.rewards, rewards.ExecuteMsg{Update: &rewards.UpdateMsg{ID: id, EmissionRate: &resume}})
	f.AdvanceBlocks(10)
	assert.Equal(t, uint64(225), f.pending(t, "bob")[id])
}

func TestHookSender(t *testing.T) {
	f := setup(t)
	f.create(t, rewards.LinearRate(100, types.Height(10), false), 1_000)

	weight := uint64(1)
	res := f.Execute("mallory", f.rewards, rewards.ExecuteMsg{MemberChangedHook: &hooks.MemberChangedHookMsg{
		Diffs: []hooks.MemberDiff{{Key: "mallory", New: &weight}},
	}})
	assert.Contains(t, res.Error, rewards.ErrInvalidHookSender.Error())
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	create := func(sender types.Address, msg rewards.CreateMsg) string {
		return f.Execute(sender, f.rewards, rewards.ExecuteMsg{Create: &msg}).Error
	}
	valid := rewards.CreateMsg{
		Denom:        denom,
		EmissionRate: rewards.LinearRate(100, types.Height(10), false),
		VPContract:   f.dao.Voting,
		HookCaller:   f.dao.Voting,
	}

	assert.Contains(t, create("bob", valid), rewards.ErrUnauthorized.Error())

	noRate := valid
	noRate.EmissionRate = rewards.EmissionRate{}
	assert.Contains(t, create(testutil.Creator, noRate), rewards.ErrInvalidEmissionRate.Error())

	badVP := valid
	badVP.VPContract = f.rewards
	assert.Contains(t, create(testutil.Creator, badVP), rewards.ErrInvalidVPContract.Error())

	res := f.Execute(testutil.Creator, f.rewards, rewards.ExecuteMsg{Fund: &rewards.IDMsg{ID: 9}}, types.NewCoin(1, denom))
	assert.NotEmpty(t, res.Error)

	var list rewards.DistributionsResponse
	f.Query(f.rewards, rewards.QueryMsg{Distributions: &rewards.PageQuery{}}, &list)
	assert.Empty(t, list.Distributions)
}

func TestOwnershipTransfer(t *testing.T) {
	f := setup(t)
	transfer := rewards.ExecuteMsg{UpdateOwnership: &rewards.OwnershipAction{
		TransferOwnership: &rewards.TransferOwnership{NewOwner: "erin"},
	}}
	accept := rewards.ExecuteMsg{UpdateOwnership: &rewards.OwnershipAction{AcceptOwnership: &struct{}{}}}

	assert.Contains(t, f.Execute("erin", f.rewards, accept).Error, rewards.ErrNoPendingOwner.Error())
	assert.Contains(t, f.Execute("erin", f.rewards, transfer).Error, rewards.ErrUnauthorized.Error())
	f.MustExecute(testutil.Creator, f.rewards, transfer)
	assert.Contains(t, f.Execute("bob", f.rewards, accept).Error, rewards.ErrNotPendingOwner.Error())
	f.MustExecute("erin", f.rewards, accept)

	var o rewards.Ownership
	f.Query(f.rewards, rewards.QueryMsg{Ownership: &struct{}{}}, &o)
	require.NotNil(t, o.Owner)
	assert.Equal(t, types.Address("erin"), *o.Owner)
	assert.Nil(t, o.PendingOwner)

	var info types.InfoResponse
	f.Query(f.rewards, rewards.QueryMsg{Info: &struct{}{}}, &info)
	assert.Equal(t, "crates.io:dao-rewards-distributor", info.Info.Contract)
}
