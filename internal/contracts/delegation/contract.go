// Package delegation lets members delegate shares of their voting power to
// registered delegates. Delegates vote with the delegated power their
// delegators have not used themselves on a proposal.
package delegation

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/contracts/core"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/pkg/types"
)

const (
	// CodeID is the code the delegation module is registered under
	CodeID = "vote-delegation"

	contractName    = "crates.io:dao-vote-delegation"
	contractVersion = "2.5.0"
)

// Delegation errors
var (
	ErrDelegateAlreadyRegistered    = errors.New("delegate already registered")
	ErrDelegateNotRegistered        = errors.New("delegate not registered")
	ErrNoVotingPower                = errors.New("no voting power")
	ErrUndelegateBeforeRegistering  = errors.New("undelegate from all delegates before registering as a delegate")
	ErrInvalidVotingPowerPercent    = errors.New("invalid voting power percent")
	ErrDelegatesCannotDelegate      = errors.New("delegates cannot delegate to others")
	ErrCannotDelegateToSelf         = errors.New("cannot delegate to self")
	ErrDelegationDoesNotExist       = errors.New("delegation does not exist")
	ErrUnauthorizedHookCaller       = errors.New("unauthorized hook caller")
	ErrUnauthorized                 = errors.New("unauthorized")
	errCannotDelegateMoreThan100Pct = errors.New("cannot delegate more than 100%")
)

// OverDelegatedError is returned when a delegation would push the
// delegator's total above 100%
type OverDelegatedError struct {
	Current string
	Attempt string
}

func (e *OverDelegatedError) Error() string {
	return fmt.Sprintf("%s (current %s%%, attempt %s%%)", errCannotDelegateMoreThan100Pct, e.Current, e.Attempt)
}

func (e *OverDelegatedError) Unwrap() error { return errCannotDelegateMoreThan100Pct }

// Contract implements the delegation module
type Contract struct{}

// New returns the delegation module
func New() *Contract {
	return &Contract{}
}

// Instantiate stores the config and, unless disabled, trusts the DAO's
// enabled proposal modules as vote hook callers
func (c *Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg InstantiateMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	owner := ctx.Sender
	if msg.Dao != nil {
		if err := msg.Dao.Validate(); err != nil {
			return nil, err
		}
		owner = *msg.Dao
	}
	cfg := Config{VPCapPercent: msg.VPCapPercent, DelegationValidityBlocks: msg.DelegationValidityBlocks}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := host.SetContractVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}
	if err := dao.Save(ctx.Store, owner); err != nil {
		return nil, err
	}
	if err := config.Save(ctx.Store, cfg); err != nil {
		return nil, err
	}

	resp := host.NewResponse().AddAttribute("dao", owner)
	if !msg.NoSyncProposalModules {
		enabled, disabled, err := syncProposalModules(ctx, &PageMsg{})
		if err != nil {
			return nil, err
		}
		resp.AddAttribute("enabled", enabled).AddAttribute("disabled", disabled)
	}
	return resp, nil
}

// Execute routes an execute message
func (c *Contract) Execute(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	if err := host.Nonpayable(ctx.Funds); err != nil {
		return nil, err
	}
	switch {
	case msg.Register != nil:
		return register(ctx)
	case msg.Unregister != nil:
		return unregister(ctx)
	case msg.Delegate != nil:
		return delegate(ctx, msg.Delegate)
	case msg.Undelegate != nil:
		return undelegate(ctx, msg.Undelegate.Delegate)
	case msg.UpdateVotingPowerHookCallers != nil:
		return updateHookCallers(ctx, msg.UpdateVotingPowerHookCallers)
	case msg.SyncProposalModules != nil:
		enabled, disabled, err := syncProposalModules(ctx, msg.SyncProposalModules)
		if err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "sync_proposal_modules").
			AddAttribute("enabled", enabled).
			AddAttribute("disabled", disabled), nil
	case msg.UpdateConfig != nil:
		return updateConfig(ctx, msg.UpdateConfig)
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
	case msg.VoteHook != nil:
		return voteHook(ctx, msg.VoteHook)
	}
	return nil, host.ErrUnknownVariant
}

func register(ctx *host.Context) (*host.Response, error) {
	addr := ctx.Sender
	registered, err := isRegistered(ctx.Store, addr, nil)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrDelegateAlreadyRegistered
	}
	vp, err := nextBlockPower(ctx, addr)
	if err != nil {
		return nil, err
	}
	if vp.IsZero() {
		return nil, ErrNoVotingPower
	}
	if err := settleExpired(ctx.Store, ctx.Block, addr); err != nil {
		return nil, err
	}
	none, err := delegationIDs.IsEmpty(ctx.Store, addr.Bytes())
	if err != nil {
		return nil, err
	}
	if !none {
		return nil, ErrUndelegateBeforeRegistering
	}
	if err := delegates.Save(ctx.Store, struct{}{}, ctx.Block.Height, addr.Bytes()); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "register").
		AddAttribute("delegate", addr), nil
}

func unregister(ctx *host.Context) (*host.Response, error) {
	registered, err := isRegistered(ctx.Store, ctx.Sender, nil)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, ErrDelegateNotRegistered
	}
	if err := delegates.Remove(ctx.Store, ctx.Block.Height, ctx.Sender.Bytes()); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "unregister").
		AddAttribute("delegate", ctx.Sender), nil
}

func delegate(ctx *host.Context, msg *DelegateMsg) (*host.Response, error) {
	if msg.Percent.IsZero() || msg.Percent.GT(types.OneDecimal()) {
		return nil, ErrInvalidVotingPowerPercent
	}
	delegator := ctx.Sender
	registered, err := isRegistered(ctx.Store, delegator, nil)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrDelegatesCannotDelegate
	}
	if err := msg.Delegate.Validate(); err != nil {
		return nil, err
	}
	if msg.Delegate == delegator {
		return nil, ErrCannotDelegateToSelf
	}
	registered, err = isRegistered(ctx.Store, msg.Delegate, nil)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, ErrDelegateNotRegistered
	}
	vp, err := nextBlockPower(ctx, delegator)
	if err != nil {
		return nil, err
	}
	if vp.IsZero() {
		return nil, ErrNoVotingPower
	}
	if err := settleExpired(ctx.Store, ctx.Block, delegator); err != nil {
		return nil, err
	}

	current, _, err := percentDelegated.MayLoad(ctx.Store, delegator.Bytes())
	if err != nil {
		return nil, err
	}
	pair := [][]byte{delegator.Bytes(), msg.Delegate.Bytes()}
	existingID, exists, err := delegationIDs.MayLoad(ctx.Store, pair...)
	if err != nil {
		return nil, err
	}
	total := current.Add(msg.Percent)
	if exists {
		old, err := delegations.LoadItem(ctx.Store, delegator.Bytes(), existingID)
		if err != nil {
			return nil, err
		}
		if total, err = total.Sub(old.Percent); err != nil {
			return nil, err
		}
	}
	if total.GT(types.OneDecimal()) {
		return nil, &OverDelegatedError{Current: current.MulInt(100).String(), Attempt: total.MulInt(100).String()}
	}

	if exists {
		if _, err := delegations.Remove(ctx.Store, delegator.Bytes(), existingID, ctx.Block); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	var (
		expireIn *types.Duration
		exp      *types.Expiration
	)
	if cfg.DelegationValidityBlocks != nil {
		d := types.Height(*cfg.DelegationValidityBlocks)
		e := d.After(ctx.Block)
		expireIn, exp = &d, &e
	}
	id, err := delegations.Push(ctx.Store, delegator.Bytes(), Delegation{Delegate: msg.Delegate, Percent: msg.Percent}, ctx.Block, expireIn)
	if err != nil {
		return nil, err
	}
	if err := delegationIDs.Save(ctx.Store, id, pair...); err != nil {
		return nil, err
	}
	if err := percentDelegated.Save(ctx.Store, total, delegator.Bytes()); err != nil {
		return nil, err
	}

	old, _, err := delegatedVPAmounts.MayLoad(ctx.Store, pair...)
	if err != nil {
		return nil, err
	}
	next, err := delegatedPower(vp, msg.Percent)
	if err != nil {
		return nil, err
	}
	if err := adjustDelegatedVP(ctx.Store, ctx.Block.Height, msg.Delegate, old, next); err != nil {
		return nil, err
	}
	if err := delegatedVPAmounts.Save(ctx.Store, next, pair...); err != nil {
		return nil, err
	}
	if err := trackLapse(ctx.Store, ctx.Block.Height, msg.Delegate, delegator, exp, next); err != nil {
		return nil, err
	}

	ctx.Logger.Debug("delegated",
		zap.Stringer("delegator", delegator),
		zap.Stringer("delegate", msg.Delegate),
		zap.Stringer("percent", msg.Percent),
		zap.Stringer("power", next))
	return host.NewResponse().
		AddAttribute("action", "delegate").
		AddAttribute("delegator", delegator).
		AddAttribute("delegate", msg.Delegate).
		AddAttribute("percent", msg.Percent), nil
}

func undelegate(ctx *host.Context, to types.Address) (*host.Response, error) {
	delegator := ctx.Sender
	if err := settleExpired(ctx.Store, ctx.Block, delegator); err != nil {
		return nil, err
	}
	id, ok, err := delegationIDs.MayLoad(ctx.Store, delegator.Bytes(), to.Bytes())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDelegationDoesNotExist
	}
	if err := dropDelegation(ctx.Store, ctx.Block, delegator, to, id); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "undelegate").
		AddAttribute("delegator", delegator).
		AddAttribute("delegate", to), nil
}

func onlyDAO(ctx *host.Context) error {
	owner, err := dao.Load(ctx.Store)
	if err != nil {
		return err
	}
	if ctx.Sender != owner {
		return ErrUnauthorized
	}
	return nil
}

func updateHookCallers(ctx *host.Context, msg *UpdateHookCallersMsg) (*host.Response, error) {
	if err := onlyDAO(ctx); err != nil {
		return nil, err
	}
	for _, a := range msg.Add {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if err := votingPowerHookCallers.Save(ctx.Store, struct{}{}, a.Bytes()); err != nil {
			return nil, err
		}
	}
	for _, a := range msg.Remove {
		if err := votingPowerHookCallers.Remove(ctx.Store, a.Bytes()); err != nil {
			return nil, err
		}
	}
	return host.NewResponse().AddAttribute("action", "update_voting_power_hook_callers"), nil
}

// syncProposalModules trusts the DAO's enabled proposal modules as vote hook
// callers and distrusts disabled ones
func syncProposalModules(ctx *host.Context, page *PageMsg) (enabled, disabled int, err error) {
	owner, err := dao.Load(ctx.Store)
	if err != nil {
		return 0, 0, err
	}
	var modules []core.ProposalModule
	q := core.QueryMsg{ProposalModules: &core.ListModulesQuery{StartAfter: page.StartAfter, Limit: page.Limit}}
	if err := ctx.Querier.QueryWasmSmart(owner, q, &modules); err != nil {
		return 0, 0, fmt.Errorf("query proposal modules: %w", err)
	}
	for _, m := range modules {
		if m.Status == core.ModuleEnabled {
			enabled++
			err = proposalHookCallers.Save(ctx.Store, struct{}{}, m.Address.Bytes())
		} else {
			disabled++
			err = proposalHookCallers.Remove(ctx.Store, m.Address.Bytes())
		}
		if err != nil {
			return 0, 0, err
		}
	}
	return enabled, disabled, nil
}

func updateConfig(ctx *host.Context, msg *UpdateConfigMsg) (*host.Response, error) {
	if err := onlyDAO(ctx); err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	msg.VPCapPercent.apply(&cfg.VPCapPercent)
	msg.DelegationValidityBlocks.apply(&cfg.DelegationValidityBlocks)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.Save(ctx.Store, cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "update_config"), nil
}

// Migrate upgrades the module, refusing other contracts and downgrades
func (c *Contract) Migrate(ctx *host.Context, _ json.RawMessage) (*host.Response, error) {
	if err := host.MigrateVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "migrate"), nil
}
