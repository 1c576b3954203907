package staking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/contracts/staking"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/testutil"
	"github.com/daodao/core/pkg/types"
)

const denom = "ujuno"

// setup instantiates a staking module owned by the test creator
func setup(t *testing.T, unbonding *types.Duration) (*testutil.Suite, types.Address) {
	t.Helper()
	s := testutil.NewSuite(t)
	addr := s.Instantiate(testutil.Creator, staking.CodeID, staking.InstantiateMsg{
		Denom:             denom,
		UnstakingDuration: unbonding,
	}, "staking")
	return s, addr
}

func power(s *testutil.Suite, addr, who types.Address) uint64 {
	var resp types.VotingPowerAtHeightResponse
	s.Query(addr, types.VotingQuery{VotingPowerAtHeight: &types.VotingPowerAtHeightQuery{Address: who}}, &resp)
	return resp.Power.Uint64()
}

func total(s *testutil.Suite, addr types.Address) uint64 {
	var resp types.TotalPowerAtHeightResponse
	s.Query(addr, types.VotingQuery{TotalPowerAtHeight: &types.TotalPowerAtHeightQuery{}}, &resp)
	return resp.Power.Uint64()
}

func unstake(amount uint64) staking.ExecuteMsg {
	return staking.ExecuteMsg{Unstake: &staking.Unstake{Amount: types.NewUint128(amount)}}
}

func TestStakeAndInstantUnstake(t *testing.T) {
	s, addr := setup(t, nil)

	s.Stake(addr, "alice", 100, denom)
	s.Stake(addr, "bob", 50, denom)
	assert.Zero(t, power(s, addr, "alice"))

	s.NextBlock(5)
	assert.Equal(t, uint64(100), power(s, addr, "alice"))
	assert.Equal(t, uint64(150), total(s, addr))
	assert.True(t, s.Balance("alice", denom).IsZero())

	s.MustExecute("alice", addr, unstake(40))
	assert.Equal(t, uint64(40), s.Balance("alice", denom).Uint64())

	s.NextBlock(5)
	assert.Equal(t, uint64(60), power(s, addr, "alice"))
	assert.Equal(t, uint64(110), total(s, addr))

	var list staking.ListStakersResponse
	s.Query(addr, staking.QueryMsg{ListStakers: &staking.ListStakersQuery{}}, &list)
	require.Len(t, list.Stakers, 2)
	assert.Equal(t, types.Address("alice"), list.Stakers[0].Address)
	assert.Equal(t, uint64(60), list.Stakers[0].Balance.Uint64())
}

func TestStakeValidation(t *testing.T) {
	s, addr := setup(t, nil)
	s.Stake(addr, "alice", 10, denom)

	tests := []struct {
		name  string
		msg   staking.ExecuteMsg
		funds []types.Coin
		err   error
	}{
		{"no funds", staking.ExecuteMsg{Stake: &struct{}{}}, nil, host.ErrNoFunds},
		{"wrong denom", staking.ExecuteMsg{Stake: &struct{}{}}, []types.Coin{types.NewCoin(1, "uatom")}, host.ErrMissingDenom},
		{"zero unstake", unstake(0), nil, staking.ErrZeroUnstake},
		{"unstake too much", unstake(11), nil, staking.ErrInvalidUnstakeAmount},
		{"nothing to claim", staking.ExecuteMsg{Claim: &struct{}{}}, nil, staking.ErrNothingToClaim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Mint("alice", tt.funds...)
			res := s.Execute("alice", addr, tt.msg, tt.funds...)
			assert.Contains(t, res.Error, tt.err.Error())
		})
	}
}

func TestUnbondingClaims(t *testing.T) {
	d := types.Height(3)
	s, addr := setup(t, &d)
	s.Stake(addr, "alice", 100, denom)
	s.NextBlock(5)

	s.MustExecute("alice", addr, unstake(30))
	assert.True(t, s.Balance("alice", denom).IsZero())

	var claims staking.ClaimsResponse
	s.Query(addr, staking.QueryMsg{Claims: &staking.ClaimsQuery{Address: "alice"}}, &claims)
	require.Len(t, claims.Claims, 1)
	assert.Equal(t, types.AtHeight(s.Block().Height+3), claims.Claims[0].ReleaseAt)

	s.AdvanceBlocks(2)
	res := s.Execute("alice", addr, staking.ExecuteMsg{Claim: &struct{}{}})
	assert.Contains(t, res.Error, staking.ErrNothingToClaim.Error())

	s.AdvanceBlocks(1)
	s.MustExecute("alice", addr, staking.ExecuteMsg{Claim: &struct{}{}})
	assert.Equal(t, uint64(30), s.Balance("alice", denom).Uint64())

	s.Query(addr, staking.QueryMsg{Claims: &staking.ClaimsQuery{Address: "alice"}}, &claims)
	assert.Empty(t, claims.Claims)
}

func TestUpdateConfig(t *testing.T) {
	s, addr := setup(t, nil)

	d := types.Height(5)
	res := s.Execute("alice", addr, staking.ExecuteMsg{UpdateConfig: &staking.UpdateConfig{Duration: &d}})
	assert.Contains(t, res.Error, staking.ErrUnauthorized.Error())

	zero := types.Height(0)
	res = s.Execute(testutil.Creator, addr, staking.ExecuteMsg{UpdateConfig: &staking.UpdateConfig{Duration: &zero}})
	assert.Contains(t, res.Error, staking.ErrInvalidUnstakingDuration.Error())

	s.MustExecute(testutil.Creator, addr, staking.ExecuteMsg{UpdateConfig: &staking.UpdateConfig{Duration: &d}})
	var cfg staking.ConfigResponse
	s.Query(addr, staking.QueryMsg{GetConfig: &struct{}{}}, &cfg)
	assert.Equal(t, denom, cfg.Denom)
	require.NotNil(t, cfg.UnstakingDuration)
	assert.Equal(t, d, *cfg.UnstakingDuration)
}

func TestStakeHooks(t *testing.T) {
	s, addr := setup(t, nil)
	counter := s.HookCounter(false)

	res := s.Execute("alice", addr, staking.ExecuteMsg{AddHook: &staking.HookMsg{Addr: counter}})
	assert.Contains(t, res.Error, staking.ErrUnauthorized.Error())

	s.MustExecute(testutil.Creator, addr, staking.ExecuteMsg{AddHook: &staking.HookMsg{Addr: counter}})
	s.Stake(addr, "alice", 10, denom)
	s.MustExecute("alice", addr, unstake(4))
	assert.Equal(t, uint64(2), s.HookCounts(counter).Stake)

	s.MustExecute(testutil.Creator, addr, staking.ExecuteMsg{RemoveHook: &staking.HookMsg{Addr: counter}})
	s.Stake(addr, "alice", 10, denom)
	assert.Equal(t, uint64(2), s.HookCounts(counter).Stake)
}
