package governance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/pkg/types"
)

func u(n uint64) types.Uint128 { return types.NewUint128(n) }

func TestVotesNeededRoundsUp(t *testing.T) {
	tests := []struct {
		total uint64
		pct   string
		want  uint64
	}{
		{15, "0.5", 8},
		{3, "0.333", 1},
		{3, "0.334", 2},
		{30, "0.334", 11},
		{34, "0.5", 17},
		{48, "0.25", 12},
		{13, "0.5", 7},
		{0, "0.5", 0},
		{1, "0.01", 1},
		{1, "0", 0},
		{100, "1", 100},
	}
	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			pct := types.MustParseDecimal(tt.pct)
			got := VotesNeeded(u(tt.total), pct)
			assert.Equal(t, tt.want, got.Uint64(), "total=%d pct=%s", tt.total, tt.pct)
			assert.True(t, CompareVoteCount(got, GreaterOrEqual, u(tt.total), pct))
			if !got.IsZero() {
				below := got.SaturatingSub(u(1))
				assert.False(t, CompareVoteCount(below, GreaterOrEqual, u(tt.total), pct))
			}
		})
	}
}

func TestGreaterOrEqualMeansVotesNeeded(t *testing.T) {
	// percentages in billionths, exact at PrecisionFactor
	for _, billionths := range []uint64{0, 1, 250_000_000, 333_333_333, 500_000_000, 666_666_667, 999_999_999, 1_000_000_000} {
		pct, err := types.DecimalFromRatio(u(billionths), u(PrecisionFactor))
		require.NoError(t, err)
		for total := uint64(0); total <= 40; total++ {
			needed := VotesNeeded(u(total), pct)
			for votes := uint64(0); votes <= total; votes++ {
				exact := votes*PrecisionFactor >= total*billionths
				assert.Equal(t, exact, CompareVoteCount(u(votes), GreaterOrEqual, u(total), pct),
					"votes=%d total=%d pct=%s", votes, total, pct)
				assert.Equal(t, exact, u(votes).GTE(needed), "votes=%d total=%d pct=%s", votes, total, pct)
			}
		}
	}
}

func TestVotesNeededMaxPower(t *testing.T) {
	got := VotesNeeded(types.MaxUint128(), types.OneDecimal())
	assert.True(t, got.Equal(types.MaxUint128()))
}

func TestCompareVoteCount(t *testing.T) {
	sevenThirteenths, err := types.DecimalFromRatio(u(7), u(13))
	require.NoError(t, err)
	rest, err := types.OneDecimal().Sub(sevenThirteenths)
	require.NoError(t, err)

	assert.False(t, CompareVoteCount(u(7), GreaterOrEqual, u(15), types.DecimalPercent(50)))
	assert.False(t, CompareVoteCount(u(7), Greater, u(15), types.DecimalPercent(50)))
	assert.True(t, CompareVoteCount(u(7), GreaterOrEqual, u(14), types.DecimalPercent(50)))
	assert.False(t, CompareVoteCount(u(7), Greater, u(14), types.DecimalPercent(50)))
	assert.True(t, CompareVoteCount(u(7), GreaterOrEqual, u(13), sevenThirteenths))
	assert.True(t, CompareVoteCount(u(7), Greater, u(13), sevenThirteenths))
	assert.False(t, CompareVoteCount(u(6), Greater, u(13), rest))
}

func TestDoesVoteCountPass(t *testing.T) {
	assert.False(t, DoesVoteCountPass(u(5), u(10), Majority()))
	assert.True(t, DoesVoteCountPass(u(6), u(10), Majority()))
	assert.False(t, DoesVoteCountPass(u(0), u(0), Majority()))
	assert.True(t, DoesVoteCountPass(u(5), u(10), Percent(types.DecimalPercent(50))))
	assert.False(t, DoesVoteCountPass(u(4), u(10), Percent(types.DecimalPercent(50))))
}

func TestDoesVoteCountFail(t *testing.T) {
	assert.True(t, DoesVoteCountFail(u(5), u(10), Majority()))
	assert.False(t, DoesVoteCountFail(u(4), u(10), Majority()))
	assert.True(t, DoesVoteCountFail(u(0), u(0), Majority()))
	assert.False(t, DoesVoteCountFail(u(4), u(10), Percent(types.DecimalPercent(60))))
	assert.True(t, DoesVoteCountFail(u(5), u(10), Percent(types.DecimalPercent(60))))
}

func TestThresholdValidate(t *testing.T) {
	zero := types.ZeroDecimal()
	over := types.MustParseDecimal("1.01")

	tests := []struct {
		name      string
		threshold Threshold
		err       error
	}{
		{"majority", NewAbsolutePercentage(Majority()), nil},
		{"zero percent", NewAbsolutePercentage(Percent(zero)), ErrZeroThreshold},
		{"over one", NewAbsolutePercentage(Percent(over)), ErrUnreachableThreshold},
		{"zero quorum allowed", NewThresholdQuorum(Majority(), Percent(zero)), nil},
		{"quorum over one", NewThresholdQuorum(Majority(), Percent(over)), ErrUnreachableThreshold},
		{"zero count", NewAbsoluteCount(u(0)), ErrZeroThreshold},
		{"count", NewAbsoluteCount(u(3)), nil},
		{"empty", Threshold{}, ErrInvalidThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.threshold.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestThresholdJSON(t *testing.T) {
	th := NewThresholdQuorum(Percent(types.DecimalPercent(50)), Majority())
	b, err := json.Marshal(th)
	require.NoError(t, err)
	assert.JSONEq(t, `{"threshold_quorum":{"threshold":{"percent":"0.5"},"quorum":{"majority":{}}}}`, string(b))

	var back Threshold
	require.NoError(t, json.Unmarshal([]byte(`{"absolute_count":{"threshold":"10"}}`), &back))
	require.NotNil(t, back.AbsoluteCount)
	assert.Equal(t, uint64(10), back.AbsoluteCount.Threshold.Uint64())
}

func TestVotesTally(t *testing.T) {
	v := VotesOne(VoteYes, u(5))
	require.NoError(t, v.AddVote(VoteNo, u(10)))
	require.NoError(t, v.AddVote(VoteYes, u(30)))
	require.NoError(t, v.AddVote(VoteAbstain, u(40)))

	total, err := v.Total()
	require.NoError(t, err)
	assert.Equal(t, uint64(85), total.Uint64())
	assert.Equal(t, uint64(35), v.Yes.Uint64())

	require.NoError(t, v.RemoveVote(VoteYes, u(35)))
	assert.True(t, v.Yes.IsZero())
	assert.ErrorIs(t, v.RemoveVote(VoteYes, u(1)), types.ErrOverflow)
}

func TestVoteJSON(t *testing.T) {
	b, err := json.Marshal(VoteAbstain)
	require.NoError(t, err)
	assert.Equal(t, `"abstain"`, string(b))

	var v Vote
	require.NoError(t, json.Unmarshal([]byte(`"no"`), &v))
	assert.Equal(t, VoteNo, v)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"maybe"`), &v), ErrInvalidVote)
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(Open())
	require.NoError(t, err)
	assert.Equal(t, `"open"`, string(b))

	b, err = json.Marshal(VetoTimelock(types.AtHeight(10)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"veto_timelock":{"expiration":{"at_height":10}}}`, string(b))

	var s Status
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, StatusVetoTimelock, s.Kind)
	assert.Equal(t, uint64(10), s.Expiration.Height)

	require.NoError(t, json.Unmarshal([]byte(`"execution_failed"`), &s))
	assert.Equal(t, StatusExecutionFailed, s.Kind)
}

func TestVeto(t *testing.T) {
	veto := &VetoConfig{TimelockDuration: types.Height(5), Vetoer: "vetoer"}
	require.NoError(t, veto.Validate(types.Height(10)))
	assert.ErrorIs(t, veto.Validate(types.Seconds(10)), ErrVetoDurationMismatch)

	block := types.BlockInfo{Height: 12}
	status, err := PassedStatus(veto, types.AtHeight(10), block)
	require.NoError(t, err)
	assert.Equal(t, VetoTimelock(types.AtHeight(15)), status)

	status, err = PassedStatus(veto, types.AtHeight(10), types.BlockInfo{Height: 15})
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, status.Kind)

	status, err = PassedStatus(nil, types.AtHeight(10), block)
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, status.Kind)

	timelocked := VetoTimelock(types.AtHeight(15))
	assert.ErrorIs(t, CheckVeto(nil, "vetoer", timelocked, block), ErrNoVetoConfiguration)
	assert.ErrorIs(t, CheckVeto(veto, "other", timelocked, block), ErrVetoUnauthorized)
	assert.NoError(t, CheckVeto(veto, "vetoer", timelocked, block))
	assert.ErrorIs(t, CheckVeto(veto, "vetoer", timelocked, types.BlockInfo{Height: 15}), ErrTimelockExpired)
	assert.ErrorIs(t, CheckVeto(veto, "vetoer", Status{Kind: StatusPassed}, block), ErrTimelockExpired)
	assert.ErrorIs(t, CheckVeto(veto, "vetoer", Open(), block), ErrNoVetoBeforePassed)

	var invalid *InvalidVetoStatusError
	assert.ErrorAs(t, CheckVeto(veto, "vetoer", Status{Kind: StatusExecuted}, block), &invalid)

	assert.ErrorIs(t, CheckExecute(veto, "vetoer", timelocked), ErrNoEarlyExecute)
	assert.ErrorIs(t, CheckExecute(veto, "member", timelocked), ErrTimelocked)
	veto.EarlyExecute = true
	assert.NoError(t, CheckExecute(veto, "vetoer", timelocked))
	assert.ErrorIs(t, CheckExecute(veto, "vetoer", Open()), ErrNotPassed)
}

func TestValidateVotingPeriod(t *testing.T) {
	min := types.Height(5)
	assert.NoError(t, ValidateVotingPeriod(&min, types.Height(10)))
	assert.NoError(t, ValidateVotingPeriod(nil, types.Height(10)))

	long := types.Height(11)
	assert.ErrorIs(t, ValidateVotingPeriod(&long, types.Height(10)), ErrInvalidMinVotingPeriod)

	secs := types.Seconds(5)
	assert.ErrorIs(t, ValidateVotingPeriod(&secs, types.Height(10)), ErrDurationUnitsConflict)
	assert.ErrorIs(t, ValidateVotingPeriod(nil, types.Height(0)), ErrZeroVotingPeriod)
}

func TestReplyIDs(t *testing.T) {
	maxID := uint64(1)<<61 - 1
	tagged, err := ParseReplyID(MaskProposalExecution(maxID))
	require.NoError(t, err)
	assert.Equal(t, TaggedReplyID{Kind: ReplyFailedExecution, Value: maxID}, tagged)

	tagged, err = ParseReplyID(MaskProposalHook(1234))
	require.NoError(t, err)
	assert.Equal(t, TaggedReplyID{Kind: ReplyFailedProposalHook, Value: 1234}, tagged)

	tagged, err = ParseReplyID(MaskVoteHook(4321))
	require.NoError(t, err)
	assert.Equal(t, TaggedReplyID{Kind: ReplyFailedVoteHook, Value: 4321}, tagged)

	tagged, err = ParseReplyID(CompletedHookReplyID())
	require.NoError(t, err)
	assert.Equal(t, ReplyFailedCompletedHook, tagged.Kind)

	var unknown *UnknownReplyIDError
	_, err = ParseReplyID(0b110)
	assert.ErrorAs(t, err, &unknown)
}

type fakeQuerier struct {
	power      map[types.Address]uint64
	total      uint64
	udvp       uint64
	failUDVP   bool
	lastHeight *uint64
}

func (f *fakeQuerier) QueryWasmSmart(contract types.Address, msg any, out any) error {
	switch m := msg.(type) {
	case types.VotingQuery:
		if m.VotingPowerAtHeight != nil {
			f.lastHeight = m.VotingPowerAtHeight.Height
			*out.(*types.VotingPowerAtHeightResponse) = types.VotingPowerAtHeightResponse{Power: u(f.power[m.VotingPowerAtHeight.Address])}
			return nil
		}
		*out.(*types.TotalPowerAtHeightResponse) = types.TotalPowerAtHeightResponse{Power: u(f.total)}
		return nil
	case DelegationQuery:
		if f.failUDVP {
			return assert.AnError
		}
		*out.(*UnvotedDelegatedVotingPowerResponse) = UnvotedDelegatedVotingPowerResponse{Effective: u(f.udvp), Total: u(f.udvp)}
		return nil
	}
	return assert.AnError
}

func TestVotingPowerWithDelegation(t *testing.T) {
	q := &fakeQuerier{power: map[types.Address]uint64{"alice": 10}, total: 100, udvp: 5}
	delegation := types.Address("delegation")

	power, err := GetVotingPowerWithDelegation(q, "proposals", nil, "dao", "alice", 1, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), power.Uint64())
	require.NotNil(t, q.lastHeight)
	assert.Equal(t, uint64(7), *q.lastHeight)

	power, err = GetVotingPowerWithDelegation(q, "proposals", &delegation, "dao", "alice", 1, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), power.Uint64())

	q.failUDVP = true
	power, err = GetVotingPowerWithDelegation(q, "proposals", &delegation, "dao", "alice", 1, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), power.Uint64())

	total, err := GetTotalPower(q, "dao", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), total.Uint64())
}

func TestMultipleChoiceVotes(t *testing.T) {
	votes := MultipleChoiceVotes{VoteWeights: []types.Uint128{u(10), u(100)}}
	total, err := votes.Total()
	require.NoError(t, err)
	assert.Equal(t, u(110), total)

	require.NoError(t, votes.AddVote(MultipleChoiceVote{OptionID: 0}, u(10)))
	require.NoError(t, votes.RemoveVote(MultipleChoiceVote{OptionID: 0}, u(20)))
	require.NoError(t, votes.RemoveVote(MultipleChoiceVote{OptionID: 1}, u(100)))
	assert.Equal(t, ZeroMultipleChoiceVotes(2), votes)

	assert.ErrorIs(t, votes.AddVote(MultipleChoiceVote{OptionID: 2}, u(1)), ErrInvalidVote)
	assert.Error(t, votes.RemoveVote(MultipleChoiceVote{OptionID: 0}, u(1)))
	assert.Equal(t, "7", MultipleChoiceVote{OptionID: 7}.String())
}

func TestCheckedOptions(t *testing.T) {
	opts := MultipleChoiceOptions{Options: []MultipleChoiceOption{
		{Title: "a", Description: "first"},
		{Title: "b", Description: "second"},
	}}
	checked, err := opts.Checked()
	require.NoError(t, err)
	require.Len(t, checked, 3)
	assert.Equal(t, OptionStandard, checked[0].OptionType)
	assert.Equal(t, "second", checked[1].Description)
	assert.Equal(t, OptionNone, checked[2].OptionType)
	assert.Equal(t, uint32(2), checked[2].Index)

	_, err = MultipleChoiceOptions{Options: opts.Options[:1]}.Checked()
	assert.ErrorIs(t, err, ErrWrongNumberOfChoices)
}
