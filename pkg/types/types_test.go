package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint128CheckedArithmetic(t *testing.T) {
	max := MaxUint128()
	_, err := max.Add(NewUint128(1))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = NewUint128(1).Sub(NewUint128(2))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = max.Mul(NewUint128(2))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = NewUint128(1).Div(ZeroUint128())
	assert.ErrorIs(t, err, ErrDivideByZero)

	v, err := NewUint128(7).MulRatio(NewUint128(3), NewUint128(2))
	require.NoError(t, err)
	assert.Equal(t, "10", v.String())

	wide := max.FullMul(max)
	_, err = wide.Uint128()
	assert.ErrorIs(t, err, ErrOverflow)

	assert.Equal(t, "340282366920938463463374607431768211455", max.String())
	assert.True(t, NewUint128(3).SaturatingSub(NewUint128(5)).IsZero())
}

func TestUint128JSON(t *testing.T) {
	b, err := json.Marshal(NewUint128(42))
	require.NoError(t, err)
	assert.Equal(t, `"42"`, string(b))

	var u Uint128
	require.NoError(t, json.Unmarshal([]byte(`"1000"`), &u))
	assert.Equal(t, NewUint128(1000), u)

	assert.Error(t, json.Unmarshal([]byte(`"340282366920938463463374607431768211456"`), &u))
}

func TestDecimal(t *testing.T) {
	half := MustParseDecimal("0.5")
	assert.Equal(t, "0.5", half.String())
	assert.Equal(t, "1", OneDecimal().String())
	assert.True(t, DecimalPercent(50).Equal(half))

	v, err := half.MulFloor(NewUint128(101))
	require.NoError(t, err)
	assert.Equal(t, NewUint128(50), v, "multiplication rounds down")

	_, err = half.Sub(OneDecimal())
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = ParseDecimal("-0.1")
	assert.ErrorIs(t, err, ErrInvalidDecimal)

	r, err := DecimalFromRatio(NewUint128(1), NewUint128(3))
	require.NoError(t, err)
	assert.Equal(t, "0.333333333333333333", r.String())

	b, err := json.Marshal(DecimalPermille(334))
	require.NoError(t, err)
	assert.Equal(t, `"0.334"`, string(b))

	var d Decimal
	require.NoError(t, json.Unmarshal([]byte(`"0.25"`), &d))
	assert.True(t, d.Equal(DecimalPercent(25)))

	var zero Decimal
	assert.True(t, zero.IsZero())
	assert.True(t, zero.LT(half))
}

func TestExpiration(t *testing.T) {
	block := BlockInfo{Height: 10, Time: TimestampFromSeconds(1000)}

	assert.True(t, AtHeight(10).IsExpired(block))
	assert.False(t, AtHeight(11).IsExpired(block))
	assert.True(t, AtTime(TimestampFromSeconds(1000)).IsExpired(block))
	assert.False(t, Never().IsExpired(block))

	e, err := AtHeight(10).Add(Height(5))
	require.NoError(t, err)
	assert.Equal(t, AtHeight(15), e)

	_, err = AtHeight(10).Add(Seconds(5))
	assert.ErrorIs(t, err, ErrDurationUnitsConflict)

	e, err = Never().Add(Seconds(5))
	require.NoError(t, err)
	assert.True(t, e.IsNever())

	assert.Equal(t, AtTime(TimestampFromSeconds(1060)), Seconds(60).After(block))

	elapsed, err := ElapsedBetween(AtHeight(20), AtHeight(12))
	require.NoError(t, err)
	assert.Equal(t, uint64(8), elapsed)

	elapsed, err = ElapsedBetween(AtHeight(12), AtHeight(20))
	require.NoError(t, err)
	assert.Zero(t, elapsed)
}

func TestExpirationJSON(t *testing.T) {
	tests := []struct {
		exp  Expiration
		json string
	}{
		{AtHeight(7), `{"at_height":7}`},
		{AtTime(Timestamp(1571797419879305533)), `{"at_time":"1571797419879305533"}`},
		{Never(), `{"never":{}}`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.exp)
		require.NoError(t, err)
		assert.JSONEq(t, tt.json, string(b))

		var back Expiration
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, tt.exp, back)
	}

	b, err := json.Marshal(Seconds(30))
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":30}`, string(b))
}

func TestCosmosMsgValidate(t *testing.T) {
	msg, err := NewWasmExecute("contract1", map[string]any{"ping": struct{}{}})
	require.NoError(t, err)
	assert.NoError(t, msg.Validate())

	assert.NoError(t, NewBankSend("alice", NewCoin(5, "ujuno")).Validate())
	assert.ErrorIs(t, CosmosMsg{}.Validate(), ErrInvalidMessage)
	assert.ErrorIs(t, Address("Bad Addr").Validate(), ErrInvalidAddress)
}

func TestParseCoins(t *testing.T) {
	coins, err := ParseCoins("100ujuno, 5uatom")
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "100ujuno", coins[0].String())
	assert.Equal(t, "uatom", coins[1].Denom)
	assert.Equal(t, uint64(5), coins[1].Amount.Uint64())

	coins, err = ParseCoins("")
	require.NoError(t, err)
	assert.Empty(t, coins)

	for _, bad := range []string{"ujuno", "100", "1ujuno,,2uatom"} {
		_, err := ParseCoins(bad)
		assert.ErrorIs(t, err, ErrInvalidCoin, bad)
	}
}
