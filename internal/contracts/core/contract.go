// Package core is the DAO itself: it owns the treasury, instantiates its
// voting and proposal modules and executes the messages of passed proposals.
package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/pkg/types"
)

const (
	// CodeID is the code the DAO core is registered under
	CodeID = "dao-core"

	contractName    = "crates.io:dao-dao-core"
	contractVersion = "2.5.0"
)

// Reply ids of the instantiate sub-messages
const (
	proposalModuleReplyID uint64 = iota
	votingModuleInstantiateReplyID
	votingModuleUpdateReplyID
)

// Core errors
var (
	ErrUnauthorized                = errors.New("unauthorized")
	ErrNoActiveProposalModules     = errors.New("execution would result in no proposal modules being active")
	ErrMultipleVotingModules       = errors.New("an unexpected duplicate voting module was instantiated")
	ErrProposalModuleDoesNotExist  = errors.New("proposal module does not exist")
	ErrModuleAlreadyDisabled       = errors.New("proposal module is already disabled")
	ErrModuleDisabledCannotExecute = errors.New("proposal module is disabled and cannot execute messages")
	ErrPaused                      = errors.New("the contract is paused")
	ErrUnknownReplyID              = errors.New("unknown reply id")
)

// Contract implements the DAO core
type Contract struct{}

// New returns the DAO core contract
func New() *Contract {
	return &Contract{}
}

// Instantiate stores the DAO's config and dispatches the instantiation of its
// voting module followed by each proposal module
func (c *Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg InstantiateMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	if len(msg.ProposalModulesInstantiateInfo) == 0 {
		return nil, ErrNoActiveProposalModules
	}
	if err := host.SetContractVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}

	cfg := Config{Name: msg.Name, Description: msg.Description, ImageURL: msg.ImageURL, DaoURI: msg.DaoURI}
	if err := config.Save(ctx.Store, cfg); err != nil {
		return nil, err
	}
	adm := ctx.Contract
	if msg.Admin != nil {
		if err := msg.Admin.Validate(); err != nil {
			return nil, err
		}
		adm = *msg.Admin
	}
	if err := admin.Save(ctx.Store, adm); err != nil {
		return nil, err
	}
	if err := activeModuleCount.Save(ctx.Store, 0); err != nil {
		return nil, err
	}
	if err := totalModuleCount.Save(ctx.Store, 0); err != nil {
		return nil, err
	}

	resp := host.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("sender", ctx.Sender)
	resp.AddSubMessages(types.SubMsg{
		ID:      votingModuleInstantiateReplyID,
		Msg:     msg.VotingModuleInstantiateInfo.wasmMsg(ctx.Contract),
		ReplyOn: types.ReplySuccess,
	})
	for _, info := range msg.ProposalModulesInstantiateInfo {
		resp.AddSubMessages(types.SubMsg{
			ID:      proposalModuleReplyID,
			Msg:     info.wasmMsg(ctx.Contract),
			ReplyOn: types.ReplySuccess,
		})
	}
	return resp, nil
}

// Execute routes an execute message
func (c *Contract) Execute(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	p, err := isPaused(ctx.Store, ctx.Block)
	if err != nil {
		return nil, err
	}
	if p {
		return nil, ErrPaused
	}

	switch {
	case msg.ExecuteProposalHook != nil:
		return c.executeProposalHook(ctx, msg.ExecuteProposalHook.Msgs)
	case msg.ExecuteAdminMsgs != nil:
		return c.executeAdminMsgs(ctx, msg.ExecuteAdminMsgs.Msgs)
	case msg.Pause != nil:
		return c.pause(ctx, msg.Pause.Duration)
	case msg.UpdateConfig != nil:
		return c.updateConfig(ctx, msg.UpdateConfig.Config)
	case msg.UpdateVotingModule != nil:
		return c.updateVotingModule(ctx, msg.UpdateVotingModule.Module)
	case msg.UpdateProposalModules != nil:
		return c.updateProposalModules(ctx, msg.UpdateProposalModules)
	}
	return nil, host.ErrUnknownVariant
}

func (c *Contract) executeProposalHook(ctx *host.Context, msgs []types.CosmosMsg) (*host.Response, error) {
	m, ok, err := proposalModules.MayLoad(ctx.Store, ctx.Sender.Bytes())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized
	}
	if m.Status != ModuleEnabled {
		return nil, ErrModuleDisabledCannotExecute
	}
	ctx.Logger.Debug("executing proposal messages",
		zap.String("module", m.Address.String()),
		zap.Int("msgs", len(msgs)))
	return host.NewResponse().
		AddAttribute("action", "execute_proposal_hook").
		AddMessages(msgs...), nil
}

func (c *Contract) executeAdminMsgs(ctx *host.Context, msgs []types.CosmosMsg) (*host.Response, error) {
	adm, err := admin.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	if ctx.Sender != adm {
		return nil, ErrUnauthorized
	}
	return host.NewResponse().
		AddAttribute("action", "execute_admin_msgs").
		AddMessages(msgs...), nil
}

func (c *Contract) pause(ctx *host.Context, d types.Duration) (*host.Response, error) {
	if ctx.Sender != ctx.Contract {
		return nil, ErrUnauthorized
	}
	until := d.After(ctx.Block)
	if err := paused.Save(ctx.Store, until); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "execute_pause").
		AddAttribute("sender", ctx.Sender).
		AddAttribute("until", until), nil
}

func (c *Contract) updateConfig(ctx *host.Context, cfg Config) (*host.Response, error) {
	if ctx.Sender != ctx.Contract {
		return nil, ErrUnauthorized
	}
	if err := config.Save(ctx.Store, cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "execute_update_config").
		AddAttribute("name", cfg.Name), nil
}

func (c *Contract) updateVotingModule(ctx *host.Context, info ModuleInstantiateInfo) (*host.Response, error) {
	if ctx.Sender != ctx.Contract {
		return nil, ErrUnauthorized
	}
	return host.NewResponse().
		AddAttribute("action", "execute_update_voting_module").
		AddSubMessages(types.SubMsg{
			ID:      votingModuleUpdateReplyID,
			Msg:     info.wasmMsg(ctx.Contract),
			ReplyOn: types.ReplySuccess,
		}), nil
}

func (c *Contract) updateProposalModules(ctx *host.Context, msg *UpdateProposalModules) (*host.Response, error) {
	if ctx.Sender != ctx.Contract {
		return nil, ErrUnauthorized
	}
	active, _, err := loadCounts(ctx.Store)
	if err != nil {
		return nil, err
	}
	if uint64(len(msg.ToDisable)) >= active && len(msg.ToAdd) == 0 {
		return nil, ErrNoActiveProposalModules
	}

	for _, addr := range msg.ToDisable {
		m, ok, err := proposalModules.MayLoad(ctx.Store, addr.Bytes())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProposalModuleDoesNotExist, addr)
		}
		if m.Status == ModuleDisabled {
			return nil, fmt.Errorf("%w: %s", ErrModuleAlreadyDisabled, addr)
		}
		m.Status = ModuleDisabled
		if err := proposalModules.Save(ctx.Store, m, addr.Bytes()); err != nil {
			return nil, err
		}
		active--
	}
	if err := activeModuleCount.Save(ctx.Store, active); err != nil {
		return nil, err
	}

	resp := host.NewResponse().
		AddAttribute("action", "execute_update_proposal_modules").
		AddAttribute("disabled", len(msg.ToDisable)).
		AddAttribute("added", len(msg.ToAdd))
	for _, info := range msg.ToAdd {
		resp.AddSubMessages(types.SubMsg{
			ID:      proposalModuleReplyID,
			Msg:     info.wasmMsg(ctx.Contract),
			ReplyOn: types.ReplySuccess,
		})
	}
	return resp, nil
}

// Reply records the address of an instantiated module
func (c *Contract) Reply(ctx *host.Context, reply types.Reply) (*host.Response, error) {
	addr, err := host.ParseInstantiateReply(reply)
	if err != nil {
		return nil, err
	}
	switch reply.ID {
	case proposalModuleReplyID:
		m, err := registerModule(ctx.Store, addr)
		if err != nil {
			return nil, err
		}
		ctx.Logger.Info("proposal module registered",
			zap.String("module", addr.String()),
			zap.String("prefix", m.Prefix))
		return host.NewResponse().
			AddAttribute("prop_module", addr).
			AddAttribute("prefix", m.Prefix), nil

	case votingModuleInstantiateReplyID:
		ok, err := votingModule.Exists(ctx.Store)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, ErrMultipleVotingModules
		}
		if err := votingModule.Save(ctx.Store, addr); err != nil {
			return nil, err
		}
		return host.NewResponse().AddAttribute("voting_module", addr), nil

	case votingModuleUpdateReplyID:
		if err := votingModule.Save(ctx.Store, addr); err != nil {
			return nil, err
		}
		return host.NewResponse().AddAttribute("voting_module", addr), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownReplyID, reply.ID)
}

// Migrate bumps the stored contract version
func (c *Contract) Migrate(ctx *host.Context, _ json.RawMessage) (*host.Response, error) {
	if err := host.MigrateVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "migrate"), nil
}
