package rewards

import (
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// scaleFactor keeps PUVP precise through integer division
func scaleFactor() types.Uint256 {
	return types.Pow10Uint256(39)
}

func nowIn(block types.BlockInfo, kind types.DurationKind) types.Expiration {
	if kind == types.DurationTime {
		return types.AtTime(block.Time)
	}
	return types.AtHeight(block.Height)
}

// latestDistributionTime is the last point the epoch emitted at: now, or
// its end once it has run dry
func (e Epoch) latestDistributionTime(block types.BlockInfo) types.Expiration {
	now := nowIn(block, e.EmissionRate.unit())
	if e.EndsAt.IsNever() || !e.EndsAt.IsExpired(block) {
		return now
	}
	return e.EndsAt
}

// accrue brings the active epoch's earned PUVP up to block. Only whole
// emission periods are distributed; the remainder stays pending until the
// period completes. Periods with no voting power emit to nobody.
func (d *Distribution) accrue(q governance.Querier, block types.BlockInfo) error {
	lin := d.ActiveEpoch.EmissionRate.Linear
	if lin == nil {
		return nil
	}
	e := &d.ActiveEpoch
	elapsed, err := types.ElapsedBetween(e.latestDistributionTime(block), e.LastUpdated)
	if err != nil {
		return err
	}
	periods := elapsed / lin.Duration.Value
	if periods == 0 {
		return nil
	}

	// power at the start of this block, i.e. as of the previous one
	total, err := governance.GetTotalPower(q, d.VPContract, &block.Height)
	if err != nil {
		return err
	}
	if !total.IsZero() {
		earned, err := lin.Amount.Uint256().Mul(types.NewUint256(periods))
		if err != nil {
			return err
		}
		if earned, err = earned.Mul(scaleFactor()); err != nil {
			return err
		}
		if earned, err = earned.Div(total.Uint256()); err != nil {
			return err
		}
		if e.TotalEarnedPUVP, err = e.TotalEarnedPUVP.Add(earned); err != nil {
			return err
		}
	}
	e.LastUpdated, err = e.LastUpdated.Add(types.Duration{Kind: lin.Duration.Kind, Value: periods * lin.Duration.Value})
	return err
}

// totalApplicablePUVP is everything a unit of power has earned over the
// distribution's life
func (d *Distribution) totalApplicablePUVP() (types.Uint256, error) {
	return d.HistoricalEarnedPUVP.Add(d.ActiveEpoch.TotalEarnedPUVP)
}

// undistributed is what the distribution holds that has not been emitted
func (d *Distribution) undistributed(block types.BlockInfo) (types.Uint128, error) {
	rate := d.ActiveEpoch.EmissionRate
	switch {
	case rate.Immediate != nil:
		return types.ZeroUint128(), nil
	case rate.Linear != nil:
		elapsed, err := types.ElapsedBetween(d.ActiveEpoch.latestDistributionTime(block), d.ActiveEpoch.StartedAt)
		if err != nil {
			return types.Uint128{}, err
		}
		emitted, err := rate.Linear.Amount.Mul(types.NewUint128(elapsed / rate.Linear.Duration.Value))
		if err != nil {
			return types.Uint128{}, err
		}
		return d.FundedAmount.SaturatingSub(emitted), nil
	}
	return d.FundedAmount, nil
}

// restart closes the active epoch into the historical PUVP and opens an
// empty one at rate. It returns the funds the closed epoch never emitted.
func (d *Distribution) restart(q governance.Querier, block types.BlockInfo, rate EmissionRate) (types.Uint128, error) {
	if err := d.accrue(q, block); err != nil {
		return types.Uint128{}, err
	}
	remaining, err := d.undistributed(block)
	if err != nil {
		return types.Uint128{}, err
	}
	if d.HistoricalEarnedPUVP, err = d.totalApplicablePUVP(); err != nil {
		return types.Uint128{}, err
	}

	now := nowIn(block, rate.unit())
	d.ActiveEpoch = Epoch{EmissionRate: rate, StartedAt: now, EndsAt: now, LastUpdated: now}
	if rate.Paused != nil {
		d.ActiveEpoch.EndsAt = types.Never()
	}
	d.FundedAmount = types.ZeroUint128()
	return remaining, nil
}

// addFunds credits amount to the active epoch. Immediate distributions
// emit it at once; linear ones push out their end.
func (d *Distribution) addFunds(q governance.Querier, block types.BlockInfo, amount types.Uint128) error {
	var err error
	if d.FundedAmount, err = d.FundedAmount.Add(amount); err != nil {
		return err
	}
	e := &d.ActiveEpoch
	switch {
	case e.EmissionRate.Immediate != nil:
		if amount.IsZero() {
			return nil
		}
		total, err := governance.GetTotalPower(q, d.VPContract, &block.Height)
		if err != nil {
			return err
		}
		if total.IsZero() {
			return ErrZeroVotingPower
		}
		earned, err := amount.Uint256().Mul(scaleFactor())
		if err != nil {
			return err
		}
		if earned, err = earned.Div(total.Uint256()); err != nil {
			return err
		}
		if e.TotalEarnedPUVP, err = e.TotalEarnedPUVP.Add(earned); err != nil {
			return err
		}
		now := nowIn(block, types.DurationHeight)
		e.EndsAt, e.LastUpdated = now, now
	case e.EmissionRate.Linear != nil:
		lin := e.EmissionRate.Linear
		periods, err := d.FundedAmount.Div(lin.Amount)
		if err != nil {
			return err
		}
		e.EndsAt, err = e.StartedAt.Add(types.Duration{Kind: lin.Duration.Kind, Value: periods.Uint64() * lin.Duration.Value})
		return err
	}
	return nil
}

// fund settles the distribution and adds amount. A linear distribution that
// was never funded, or ran dry without continuous emission, restarts from
// block so the gap is not backfilled.
func (d *Distribution) fund(q governance.Querier, block types.BlockInfo, amount types.Uint128) error {
	if err := d.accrue(q, block); err != nil {
		return err
	}
	if lin := d.ActiveEpoch.EmissionRate.Linear; lin != nil {
		if d.FundedAmount.IsZero() || (d.ActiveEpoch.EndsAt.IsExpired(block) && !lin.Continuous) {
			remaining, err := d.restart(q, block, d.ActiveEpoch.EmissionRate)
			if err != nil {
				return err
			}
			if amount, err = amount.Add(remaining); err != nil {
				return err
			}
		}
	}
	return d.addFunds(q, block, amount)
}

// accrued is power's share of the PUVP earned since accounted
func accrued(power types.Uint128, total, accounted types.Uint256) (types.Uint128, error) {
	factor, err := total.Sub(accounted)
	if err != nil {
		return types.Uint128{}, err
	}
	earned, err := power.Uint256().Mul(factor)
	if err != nil {
		return types.Uint128{}, err
	}
	if earned, err = earned.Div(scaleFactor()); err != nil {
		return types.Uint128{}, err
	}
	return earned.Uint128()
}

// settleUser moves what addr earned since its last settlement into its
// pending balance. d must already be accrued to block.
func settleUser(s storage.KVStore, q governance.Querier, block types.BlockInfo, d *Distribution, addr types.Address) (UserReward, error) {
	key := [][]byte{addr.Bytes(), storage.U64(d.ID)}
	state, _, err := userRewards.MayLoad(s, key...)
	if err != nil {
		return state, err
	}
	total, err := d.totalApplicablePUVP()
	if err != nil {
		return state, err
	}
	power, err := governance.GetVotingPower(q, d.VPContract, addr, &block.Height)
	if err != nil {
		return state, err
	}
	earned, err := accrued(power, total, state.AccountedPUVP)
	if err != nil {
		return state, err
	}
	if state.Pending, err = state.Pending.Add(earned); err != nil {
		return state, err
	}
	state.AccountedPUVP = total
	return state, userRewards.Save(s, state, key...)
}

// updateRewards accrues distribution id and settles addr against it
func updateRewards(s storage.KVStore, q governance.Querier, block types.BlockInfo, id uint64, addr types.Address) (UserReward, error) {
	d, err := loadDistribution(s, id)
	if err != nil {
		return UserReward{}, err
	}
	if err := d.accrue(q, block); err != nil {
		return UserReward{}, err
	}
	if err := distributions.Save(s, d, storage.U64(id)); err != nil {
		return UserReward{}, err
	}
	return settleUser(s, q, block, &d, addr)
}
