// Package staking is a voting module whose power is native tokens staked with
// it. Unstaked tokens are released after an optional unbonding duration.
package staking

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/common"
	"github.com/daodao/core/pkg/types"
)

const (
	// CodeID is the code the staking voting module is registered under
	CodeID = "voting-staking"

	contractName    = "crates.io:dao-voting-token-staked"
	contractVersion = "2.5.0"
)

// Staking errors
var (
	ErrUnauthorized             = errors.New("unauthorized")
	ErrZeroUnstake              = errors.New("amount being unstaked must be non-zero")
	ErrInvalidUnstakeAmount     = errors.New("can only unstake less than or equal to the amount you have staked")
	ErrTooManyClaims            = errors.New("too many outstanding claims, claim some tokens before unstaking more")
	ErrNothingToClaim           = errors.New("nothing to claim")
	ErrInvalidUnstakingDuration = errors.New("invalid unstaking duration, unstaking duration cannot be 0")
	ErrEmptyDenom               = errors.New("denom must be set")
)

// Contract implements the staking voting module
type Contract struct{}

// New returns the staking contract
func New() *Contract {
	return &Contract{}
}

func validateDuration(d *types.Duration) error {
	if d != nil && d.IsZero() {
		return ErrInvalidUnstakingDuration
	}
	return nil
}

// Instantiate configures the staked denom. The sender becomes the DAO.
func (c *Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg InstantiateMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Denom == "" {
		return nil, ErrEmptyDenom
	}
	if err := validateDuration(msg.UnstakingDuration); err != nil {
		return nil, err
	}
	policy := msg.HookFailurePolicy.OrDefault(hooks.PolicyAbort)
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	if err := denom.Save(ctx.Store, msg.Denom); err != nil {
		return nil, err
	}
	if err := config.Save(ctx.Store, Config{UnstakingDuration: msg.UnstakingDuration}); err != nil {
		return nil, err
	}
	if err := dao.Save(ctx.Store, ctx.Sender); err != nil {
		return nil, err
	}
	if err := hookPolicy.Save(ctx.Store, policy); err != nil {
		return nil, err
	}
	if err := host.SetContractVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("denom", msg.Denom), nil
}

// Execute routes an execute message
func (c *Contract) Execute(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Stake != nil:
		return stake(ctx)
	case msg.Unstake != nil:
		return unstake(ctx, msg.Unstake.Amount)
	case msg.Claim != nil:
		return claim(ctx)
	case msg.UpdateConfig != nil:
		return updateConfig(ctx, msg.UpdateConfig.Duration)
	case msg.AddHook != nil:
		if err := onlyDao(ctx); err != nil {
			return nil, err
		}
		if err := msg.AddHook.Addr.Validate(); err != nil {
			return nil, err
		}
		if err := stakeHooks.Add(ctx.Store, msg.AddHook.Addr); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "add_hook").
			AddAttribute("hook", msg.AddHook.Addr), nil
	case msg.RemoveHook != nil:
		if err := onlyDao(ctx); err != nil {
			return nil, err
		}
		if err := stakeHooks.Remove(ctx.Store, msg.RemoveHook.Addr); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "remove_hook").
			AddAttribute("hook", msg.RemoveHook.Addr), nil
	}
	return nil, host.ErrUnknownVariant
}

func onlyDao(ctx *host.Context) error {
	owner, err := dao.Load(ctx.Store)
	if err != nil {
		return err
	}
	if ctx.Sender != owner {
		return ErrUnauthorized
	}
	return nil
}

func hookIndex(i uint64) uint64 { return i }

func stake(ctx *host.Context) (*host.Response, error) {
	d, err := denom.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	amount, err := host.MustPay(ctx.Funds, d)
	if err != nil {
		return nil, err
	}

	height := ctx.Block.Height
	add := func(v types.Uint128, _ bool) (types.Uint128, error) { return v.Add(amount) }
	if _, err := balances.Update(ctx.Store, height, add, ctx.Sender.Bytes()); err != nil {
		return nil, err
	}
	if _, err := stakedSum.Update(ctx.Store, height, add, totalKey); err != nil {
		return nil, err
	}

	policy, err := hookPolicy.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	subs, err := hooks.StakeHooks(stakeHooks, ctx.Store, policy, hookIndex, ctx.Sender, amount)
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddSubMessages(subs...).
		AddAttribute("action", "stake").
		AddAttribute("amount", amount).
		AddAttribute("from", ctx.Sender), nil
}

func unstake(ctx *host.Context, amount types.Uint128) (*host.Response, error) {
	if amount.IsZero() {
		return nil, ErrZeroUnstake
	}
	height := ctx.Block.Height
	sub := func(v types.Uint128, _ bool) (types.Uint128, error) {
		out, err := v.Sub(amount)
		if err != nil {
			return out, ErrInvalidUnstakeAmount
		}
		return out, nil
	}
	if _, err := balances.Update(ctx.Store, height, sub, ctx.Sender.Bytes()); err != nil {
		return nil, err
	}
	if _, err := stakedSum.Update(ctx.Store, height, sub, totalKey); err != nil {
		return nil, err
	}

	policy, err := hookPolicy.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	subs, err := hooks.UnstakeHooks(stakeHooks, ctx.Store, policy, hookIndex, ctx.Sender, amount)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	d, err := denom.Load(ctx.Store)
	if err != nil {
		return nil, err
	}

	resp := host.NewResponse().
		AddAttribute("action", "unstake").
		AddAttribute("from", ctx.Sender).
		AddAttribute("amount", amount)
	if cfg.UnstakingDuration == nil {
		return resp.
			AddMessage(types.NewBankSend(ctx.Sender, types.Coin{Denom: d, Amount: amount})).
			AddSubMessages(subs...).
			AddAttribute("claim_duration", "None"), nil
	}

	outstanding, err := loadClaims(ctx.Store, ctx.Sender)
	if err != nil {
		return nil, err
	}
	if len(outstanding) >= MaxClaims {
		return nil, ErrTooManyClaims
	}
	outstanding = append(outstanding, Claim{Amount: amount, ReleaseAt: cfg.UnstakingDuration.After(ctx.Block)})
	if err := claims.Save(ctx.Store, outstanding, ctx.Sender.Bytes()); err != nil {
		return nil, err
	}
	return resp.
		AddSubMessages(subs...).
		AddAttribute("claim_duration", cfg.UnstakingDuration), nil
}

func claim(ctx *host.Context) (*host.Response, error) {
	released, err := releaseClaims(ctx.Store, ctx.Sender, ctx.Block)
	if err != nil {
		return nil, err
	}
	if released.IsZero() {
		return nil, ErrNothingToClaim
	}
	d, err := denom.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddMessage(types.NewBankSend(ctx.Sender, types.Coin{Denom: d, Amount: released})).
		AddAttribute("action", "claim").
		AddAttribute("from", ctx.Sender).
		AddAttribute("amount", released), nil
}

func updateConfig(ctx *host.Context, duration *types.Duration) (*host.Response, error) {
	if err := onlyDao(ctx); err != nil {
		return nil, err
	}
	if err := validateDuration(duration); err != nil {
		return nil, err
	}
	if err := config.Save(ctx.Store, Config{UnstakingDuration: duration}); err != nil {
		return nil, err
	}
	resp := host.NewResponse().AddAttribute("action", "update_config")
	if duration != nil {
		resp.AddAttribute("unstaking_duration", *duration)
	} else {
		resp.AddAttribute("unstaking_duration", "None")
	}
	return resp, nil
}

// Reply applies the hook failure policy to a failed stake hook
func (c *Contract) Reply(ctx *host.Context, reply types.Reply) (*host.Response, error) {
	policy, err := hookPolicy.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	removed, ok, err := stakeHooks.HandleFailure(ctx.Store, policy, reply)
	if err != nil {
		return nil, err
	}
	resp := host.NewResponse().AddAttribute("action", "hook_failed")
	if ok {
		ctx.Logger.Warn("stake hook removed after failure", zap.String("hook", removed.String()))
		resp.AddAttribute("removed_hook", removed)
	}
	return resp, nil
}

// Query routes a query message
func (c *Contract) Query(ctx *host.QueryContext, raw json.RawMessage) ([]byte, error) {
	var msg QueryMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.VotingPowerAtHeight != nil:
		q := msg.VotingPowerAtHeight
		height := ctx.Block.Height
		if q.Height != nil {
			height = *q.Height
		}
		power, _, err := balances.MayLoadAtHeight(ctx.Store, height, q.Address.Bytes())
		if err != nil {
			return nil, err
		}
		return host.JSON(types.VotingPowerAtHeightResponse{Power: power, Height: height})
	case msg.TotalPowerAtHeight != nil:
		height := ctx.Block.Height
		if h := msg.TotalPowerAtHeight.Height; h != nil {
			height = *h
		}
		power, _, err := stakedSum.MayLoadAtHeight(ctx.Store, height, totalKey)
		if err != nil {
			return nil, err
		}
		return host.JSON(types.TotalPowerAtHeightResponse{Power: power, Height: height})
	case msg.Dao != nil:
		owner, err := dao.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(owner)
	case msg.Info != nil:
		return host.QueryInfo(ctx.Store)
	case msg.Claims != nil:
		list, err := loadClaims(ctx.Store, msg.Claims.Address)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []Claim{}
		}
		return host.JSON(ClaimsResponse{Claims: list})
	case msg.GetConfig != nil:
		cfg, err := config.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		d, err := denom.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(ConfigResponse{Denom: d, UnstakingDuration: cfg.UnstakingDuration})
	case msg.ListStakers != nil:
		return listStakers(ctx.Store, msg.ListStakers)
	case msg.GetHooks != nil:
		resp, err := stakeHooks.Query(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(resp)
	}
	return nil, host.ErrUnknownVariant
}

func listStakers(s storage.KVStore, q *ListStakersQuery) ([]byte, error) {
	opts := storage.RangeOptions{Limit: common.ClampLimit(q.Limit, common.DefaultLimit, common.MaxLimit)}
	if q.StartAfter != nil {
		opts.Min = storage.ExclusiveBound(q.StartAfter.Bytes())
	}
	out := []StakerBalance{}
	err := balances.Range(s, opts, func(key []byte, v types.Uint128) (bool, error) {
		out = append(out, StakerBalance{Address: types.Address(key), Balance: v})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return host.JSON(ListStakersResponse{Stakers: out})
}
