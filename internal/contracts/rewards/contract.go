// Package rewards distributes native tokens to a voting power contract's
// members in proportion to their power. Several distributions, each with its
// own denom and emission rate, run side by side. Rewards are tracked per unit
// of voting power and settled lazily when a member's power changes or they
// claim.
package rewards

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

const (
	// CodeID is the code the distributor is registered under
	CodeID = "rewards-distributor"

	contractName    = "crates.io:dao-rewards-distributor"
	contractVersion = "2.5.0"
)

// Distributor errors
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrDistributionNotFound = errors.New("distribution not found")
	ErrNoDistributions      = errors.New("no distributions exist")
	ErrInvalidHookSender    = errors.New("invalid hook sender")
	ErrInvalidEmissionRate  = errors.New("invalid emission rate")
	ErrInvalidVPContract    = errors.New("voting power contract does not answer total power queries")
	ErrInvalidDenom         = errors.New("invalid denom")
	ErrNothingToClaim       = errors.New("nothing to claim")
	ErrNothingToWithdraw    = errors.New("nothing to withdraw")
	ErrZeroVotingPower      = errors.New("cannot distribute immediately with no voting power")
	ErrNoPendingOwner       = errors.New("no pending ownership transfer")
	ErrNotPendingOwner      = errors.New("sender is not the pending owner")
)

// Contract implements the rewards distributor
type Contract struct{}

// New returns the rewards distributor
func New() *Contract {
	return &Contract{}
}

// Instantiate records the owner
func (c *Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg InstantiateMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	o := ctx.Sender
	if msg.Owner != nil {
		if err := msg.Owner.Validate(); err != nil {
			return nil, err
		}
		o = *msg.Owner
	}
	if err := host.SetContractVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}
	if err := owner.Save(ctx.Store, o); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("owner", o), nil
}

// Execute routes an execute message
func (c *Contract) Execute(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Create != nil:
		return create(ctx, msg.Create)
	case msg.Fund != nil:
		return fund(ctx, msg.Fund.ID)
	case msg.FundLatest != nil:
		id, err := distributionCount.Current(ctx.Store)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			return nil, ErrNoDistributions
		}
		return fund(ctx, id)
	}

	if err := host.Nonpayable(ctx.Funds); err != nil {
		return nil, err
	}
	switch {
	case msg.StakeChangeHook != nil:
		return powerChanged(ctx, msg.StakeChangeHook.Addr())
	case msg.NftStakeChangeHook != nil:
		return powerChanged(ctx, msg.NftStakeChangeHook.Addr())
	case msg.MemberChangedHook != nil:
		addrs := make([]types.Address, 0, len(msg.MemberChangedHook.Diffs))
		for _, d := range msg.MemberChangedHook.Diffs {
			addrs = append(addrs, d.Key)
		}
		return powerChanged(ctx, addrs...)
	case msg.Update != nil:
		return update(ctx, msg.Update)
	case msg.Claim != nil:
		return claim(ctx, msg.Claim.ID)
	case msg.Withdraw != nil:
		return withdraw(ctx, msg.Withdraw.ID)
	case msg.UpdateOwnership != nil:
		return updateOwnership(ctx, msg.UpdateOwnership)
	}
	return nil, host.ErrUnknownVariant
}

func assertOwner(ctx *host.Context) error {
	o, ok, err := owner.MayLoad(ctx.Store)
	if err != nil {
		return err
	}
	if !ok || o != ctx.Sender {
		return ErrUnauthorized
	}
	return nil
}

func validateVPContract(q governance.Querier, addr types.Address) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	if _, err := governance.GetTotalPower(q, addr, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVPContract, err)
	}
	return nil
}

func create(ctx *host.Context, msg *CreateMsg) (*host.Response, error) {
	if err := assertOwner(ctx); err != nil {
		return nil, err
	}
	if msg.Denom == "" {
		return nil, ErrInvalidDenom
	}
	if err := msg.EmissionRate.Validate(); err != nil {
		return nil, err
	}
	if err := validateVPContract(ctx.Querier, msg.VPContract); err != nil {
		return nil, err
	}
	if err := msg.HookCaller.Validate(); err != nil {
		return nil, err
	}
	dest := ctx.Sender
	if msg.WithdrawDestination != nil {
		if err := msg.WithdrawDestination.Validate(); err != nil {
			return nil, err
		}
		dest = *msg.WithdrawDestination
	}

	id, err := distributionCount.Next(ctx.Store)
	if err != nil {
		return nil, err
	}
	now := nowIn(ctx.Block, msg.EmissionRate.unit())
	d := Distribution{
		ID:    id,
		Denom: msg.Denom,
		ActiveEpoch: Epoch{
			EmissionRate: msg.EmissionRate,
			StartedAt:    now,
			EndsAt:       now,
			LastUpdated:  now,
		},
		VPContract:          msg.VPContract,
		HookCaller:          msg.HookCaller,
		WithdrawDestination: dest,
	}
	if msg.EmissionRate.Paused != nil {
		d.ActiveEpoch.EndsAt = types.Never()
	}

	if len(ctx.Funds) > 0 {
		amount, err := host.MustPay(ctx.Funds, d.Denom)
		if err != nil {
			return nil, err
		}
		if err := d.fund(ctx.Querier, ctx.Block, amount); err != nil {
			return nil, err
		}
	}

	if err := distributions.Save(ctx.Store, d, storage.U64(id)); err != nil {
		return nil, err
	}
	if err := registeredHooks.Save(ctx.Store, struct{}{}, d.HookCaller.Bytes(), storage.U64(id)); err != nil {
		return nil, err
	}

	ctx.Logger.Info("distribution created",
		zap.Uint64("id", id),
		zap.String("denom", d.Denom),
		zap.Stringer("emission_rate", d.ActiveEpoch.EmissionRate))
	return host.NewResponse().
		AddAttribute("action", "create").
		AddAttribute("id", id).
		AddAttribute("denom", d.Denom), nil
}

func update(ctx *host.Context, msg *UpdateMsg) (*host.Response, error) {
	if err := assertOwner(ctx); err != nil {
		return nil, err
	}
	d, err := loadDistribution(ctx.Store, msg.ID)
	if err != nil {
		return nil, err
	}

	if msg.EmissionRate != nil {
		if err := msg.EmissionRate.Validate(); err != nil {
			return nil, err
		}
		remaining, err := d.restart(ctx.Querier, ctx.Block, *msg.EmissionRate)
		if err != nil {
			return nil, err
		}
		if err := d.addFunds(ctx.Querier, ctx.Block, remaining); err != nil {
			return nil, err
		}
	}
	if msg.VPContract != nil {
		if err := validateVPContract(ctx.Querier, *msg.VPContract); err != nil {
			return nil, err
		}
		if err := d.accrue(ctx.Querier, ctx.Block); err != nil {
			return nil, err
		}
		d.VPContract = *msg.VPContract
	}
	if msg.HookCaller != nil {
		if err := msg.HookCaller.Validate(); err != nil {
			return nil, err
		}
		if err := registeredHooks.Remove(ctx.Store, d.HookCaller.Bytes(), storage.U64(d.ID)); err != nil {
			return nil, err
		}
		d.HookCaller = *msg.HookCaller
		if err := registeredHooks.Save(ctx.Store, struct{}{}, d.HookCaller.Bytes(), storage.U64(d.ID)); err != nil {
			return nil, err
		}
	}
	if msg.WithdrawDestination != nil {
		if err := msg.WithdrawDestination.Validate(); err != nil {
			return nil, err
		}
		d.WithdrawDestination = *msg.WithdrawDestination
	}

	if err := distributions.Save(ctx.Store, d, storage.U64(d.ID)); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "update").
		AddAttribute("id", d.ID).
		AddAttribute("emission_rate", d.ActiveEpoch.EmissionRate.String()), nil
}

func fund(ctx *host.Context, id uint64) (*host.Response, error) {
	d, err := loadDistribution(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	amount, err := host.MustPay(ctx.Funds, d.Denom)
	if err != nil {
		return nil, err
	}
	if err := d.fund(ctx.Querier, ctx.Block, amount); err != nil {
		return nil, err
	}
	if err := distributions.Save(ctx.Store, d, storage.U64(id)); err != nil {
		return nil, err
	}

	ctx.Logger.Debug("distribution funded",
		zap.Uint64("id", id),
		zap.Stringer("amount", amount),
		zap.Stringer("ends_at", d.ActiveEpoch.EndsAt))
	return host.NewResponse().
		AddAttribute("action", "fund").
		AddAttribute("id", id).
		AddAttribute("amount", amount).
		AddAttribute("funded_amount", d.FundedAmount), nil
}

func claim(ctx *host.Context, id uint64) (*host.Response, error) {
	state, err := updateRewards(ctx.Store, ctx.Querier, ctx.Block, id, ctx.Sender)
	if err != nil {
		return nil, err
	}
	if state.Pending.IsZero() {
		return nil, ErrNothingToClaim
	}
	amount := state.Pending
	state.Pending = types.ZeroUint128()
	if err := userRewards.Save(ctx.Store, state, ctx.Sender.Bytes(), storage.U64(id)); err != nil {
		return nil, err
	}
	d, err := loadDistribution(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "claim").
		AddAttribute("id", id).
		AddAttribute("amount", amount).
		AddMessage(types.NewBankSend(ctx.Sender, types.Coin{Denom: d.Denom, Amount: amount})), nil
}

// withdraw returns the unemitted funds to the withdraw destination and
// leaves the distribution empty at its current rate
func withdraw(ctx *host.Context, id uint64) (*host.Response, error) {
	if err := assertOwner(ctx); err != nil {
		return nil, err
	}
	d, err := loadDistribution(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	remaining, err := d.restart(ctx.Querier, ctx.Block, d.ActiveEpoch.EmissionRate)
	if err != nil {
		return nil, err
	}
	if remaining.IsZero() {
		return nil, ErrNothingToWithdraw
	}
	if err := distributions.Save(ctx.Store, d, storage.U64(id)); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "withdraw").
		AddAttribute("id", id).
		AddAttribute("amount", remaining).
		AddMessage(types.NewBankSend(d.WithdrawDestination, types.Coin{Denom: d.Denom, Amount: remaining})), nil
}

func updateOwnership(ctx *host.Context, action *OwnershipAction) (*host.Response, error) {
	switch {
	case action.TransferOwnership != nil:
		if err := assertOwner(ctx); err != nil {
			return nil, err
		}
		next := action.TransferOwnership.NewOwner
		if err := next.Validate(); err != nil {
			return nil, err
		}
		if err := pendingOwner.Save(ctx.Store, next); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "transfer_ownership").
			AddAttribute("pending_owner", next), nil
	case action.AcceptOwnership != nil:
		next, ok, err := pendingOwner.MayLoad(ctx.Store)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoPendingOwner
		}
		if next != ctx.Sender {
			return nil, ErrNotPendingOwner
		}
		if err := owner.Save(ctx.Store, next); err != nil {
			return nil, err
		}
		if err := pendingOwner.Remove(ctx.Store); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "accept_ownership").
			AddAttribute("owner", next), nil
	case action.RenounceOwnership != nil:
		if err := assertOwner(ctx); err != nil {
			return nil, err
		}
		if err := owner.Remove(ctx.Store); err != nil {
			return nil, err
		}
		if err := pendingOwner.Remove(ctx.Store); err != nil {
			return nil, err
		}
		return host.NewResponse().AddAttribute("action", "renounce_ownership"), nil
	}
	return nil, host.ErrUnknownVariant
}

// Migrate upgrades the distributor, refusing other contracts and downgrades
func (c *Contract) Migrate(ctx *host.Context, _ json.RawMessage) (*host.Response, error) {
	if err := host.MigrateVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "migrate"), nil
}
