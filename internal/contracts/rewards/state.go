package rewards

import (
	"fmt"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

var (
	owner        = storage.NewItem[types.Address]("owner")
	pendingOwner = storage.NewItem[types.Address]("pending_owner")

	distributions = storage.NewMap[Distribution]("distributions")
	// last assigned distribution id
	distributionCount = storage.NewCounter("distribution_count")
	// (hook caller, distribution id)
	registeredHooks = storage.NewMap[struct{}]("registered_hooks")
	// (user, distribution id)
	userRewards = storage.NewMap[UserReward]("user_rewards")
)

// EmissionRate selects how funds are released. Exactly one field is set.
type EmissionRate struct {
	Paused    *struct{}       `json:"paused,omitempty"`
	Immediate *struct{}       `json:"immediate,omitempty"`
	Linear    *LinearEmission `json:"linear,omitempty"`
}

// LinearEmission releases Amount every Duration. A continuous distribution
// that runs dry and is funded again backfills the gap; otherwise it restarts
// from the funding block.
type LinearEmission struct {
	Amount     types.Uint128  `json:"amount"`
	Duration   types.Duration `json:"duration"`
	Continuous bool           `json:"continuous"`
}

// PausedRate returns the paused emission rate
func PausedRate() EmissionRate {
	return EmissionRate{Paused: &struct{}{}}
}

// ImmediateRate returns the immediate emission rate
func ImmediateRate() EmissionRate {
	return EmissionRate{Immediate: &struct{}{}}
}

// LinearRate returns a linear emission of amount per duration
func LinearRate(amount uint64, d types.Duration, continuous bool) EmissionRate {
	return EmissionRate{Linear: &LinearEmission{Amount: types.NewUint128(amount), Duration: d, Continuous: continuous}}
}

// Validate requires exactly one variant and a non-zero linear rate
func (r EmissionRate) Validate() error {
	set := 0
	for _, ok := range []bool{r.Paused != nil, r.Immediate != nil, r.Linear != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one rate must be set", ErrInvalidEmissionRate)
	}
	if r.Linear != nil {
		if r.Linear.Amount.IsZero() {
			return fmt.Errorf("%w: amount cannot be zero", ErrInvalidEmissionRate)
		}
		if r.Linear.Duration.IsZero() {
			return fmt.Errorf("%w: duration cannot be zero", ErrInvalidEmissionRate)
		}
	}
	return nil
}

func (r EmissionRate) String() string {
	switch {
	case r.Paused != nil:
		return "paused"
	case r.Immediate != nil:
		return "immediate"
	case r.Linear != nil:
		return fmt.Sprintf("linear(%s per %s)", r.Linear.Amount, r.Linear.Duration)
	}
	return "unset"
}

// unit is the block unit epoch boundaries are measured in
func (r EmissionRate) unit() types.DurationKind {
	if r.Linear != nil {
		return r.Linear.Duration.Kind
	}
	return types.DurationHeight
}

// Epoch is a stretch of a distribution under one emission rate
type Epoch struct {
	EmissionRate    EmissionRate     `json:"emission_rate"`
	StartedAt       types.Expiration `json:"started_at"`
	EndsAt          types.Expiration `json:"ends_at"`
	TotalEarnedPUVP types.Uint256    `json:"total_earned_puvp"`
	LastUpdated     types.Expiration `json:"last_updated_total_earned_puvp"`
}

// Distribution is one independently funded reward stream
type Distribution struct {
	ID                  uint64        `json:"id"`
	Denom               string        `json:"denom"`
	ActiveEpoch         Epoch         `json:"active_epoch"`
	VPContract          types.Address `json:"vp_contract"`
	HookCaller          types.Address `json:"hook_caller"`
	WithdrawDestination types.Address `json:"withdraw_destination"`
	// FundedAmount is what the active epoch has been funded with since it
	// started, plus what earlier epochs left unemitted
	FundedAmount types.Uint128 `json:"funded_amount"`
	// HistoricalEarnedPUVP sums the earned PUVP of closed epochs
	HistoricalEarnedPUVP types.Uint256 `json:"historical_earned_puvp"`
}

// UserReward tracks one user's position in one distribution
type UserReward struct {
	Pending       types.Uint128 `json:"pending"`
	AccountedPUVP types.Uint256 `json:"accounted_puvp"`
}

func loadDistribution(s storage.KVStore, id uint64) (Distribution, error) {
	d, ok, err := distributions.MayLoad(s, storage.U64(id))
	if err != nil {
		return d, err
	}
	if !ok {
		return d, fmt.Errorf("%w: %d", ErrDistributionNotFound, id)
	}
	return d, nil
}
