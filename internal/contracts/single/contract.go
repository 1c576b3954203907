// Package single is the single choice proposal module: proposals pass or
// fail on yes, no and abstain votes.
package single

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

const (
	// CodeID is the code the single choice module is registered under
	CodeID = "proposal-single"

	contractName    = "crates.io:dao-proposal-single"
	contractVersion = "2.5.0"
)

// Contract implements the single choice proposal module
type Contract struct{}

// New returns the single choice proposal module
func New() *Contract {
	return &Contract{}
}

// Instantiate validates and stores the config. The sender is the DAO.
func (c *Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg InstantiateMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	if err := msg.Config.Validate(); err != nil {
		return nil, err
	}
	if err := proposal.Init(ctx.Store, ctx.Sender, msg.CreationPolicy, msg.HookFailurePolicy); err != nil {
		return nil, err
	}
	if err := config.Save(ctx.Store, msg.Config); err != nil {
		return nil, err
	}
	if err := host.SetContractVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("dao", ctx.Sender), nil
}

// Execute routes an execute message
func (c *Contract) Execute(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Propose != nil:
		return propose(ctx, msg.Propose)
	case msg.Vote != nil:
		return vote(ctx, msg.Vote)
	case msg.UpdateRationale != nil:
		return updateRationale(ctx, msg.UpdateRationale)
	case msg.Execute != nil:
		return execute(ctx, msg.Execute.ProposalID)
	case msg.Veto != nil:
		return veto(ctx, msg.Veto.ProposalID)
	case msg.Close != nil:
		return closeProposal(ctx, msg.Close.ProposalID)
	case msg.UpdateConfig != nil:
		return updateConfig(ctx, msg.UpdateConfig)
	}
	resp, ok, err := msg.AdminMsg.Handle(ctx)
	if !ok {
		return nil, host.ErrUnknownVariant
	}
	return resp, err
}

func propose(ctx *host.Context, msg *ProposeMsg) (*host.Response, error) {
	proposer, err := proposal.ResolveProposer(ctx.Store, ctx.Sender, msg.Proposer)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	dao, err := proposal.Dao.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	total, err := governance.GetTotalPower(ctx.Querier, dao, &ctx.Block.Height)
	if err != nil {
		return nil, err
	}

	expiration, minPeriod := governance.VotingWindow(ctx.Block, cfg.MinVotingPeriod, cfg.MaxVotingPeriod)
	msgs := msg.Msgs
	if msgs == nil {
		msgs = []types.CosmosMsg{}
	}
	prop := Proposal{
		Title:           msg.Title,
		Description:     msg.Description,
		Proposer:        proposer,
		StartHeight:     ctx.Block.Height,
		MinVotingPeriod: minPeriod,
		Expiration:      expiration,
		Threshold:       cfg.Threshold,
		TotalPower:      total,
		Msgs:            msgs,
		Status:          governance.Open(),
		AllowRevoting:   cfg.AllowRevoting,
		Veto:            cfg.Veto,
	}
	if err := prop.UpdateStatus(ctx.Block); err != nil {
		return nil, err
	}
	id, err := proposal.AdvanceID(ctx.Store)
	if err != nil {
		return nil, err
	}
	if err := proposal.CheckSize(prop); err != nil {
		return nil, err
	}
	if err := proposals.Save(ctx.Store, prop, storage.U64(id)); err != nil {
		return nil, err
	}

	subs, err := proposal.NewProposal(ctx.Store, id, proposer)
	if err != nil {
		return nil, err
	}
	ctx.Logger.Debug("proposal created",
		zap.Uint64("proposal_id", id),
		zap.String("proposer", proposer.String()),
		zap.Stringer("total_power", total))
	return host.NewResponse().
		AddSubMessages(subs...).
		AddAttribute("action", "propose").
		AddAttribute("sender", ctx.Sender).
		AddAttribute("proposal_id", id).
		AddAttribute("status", prop.Status), nil
}

// votingPower returns addr's power on the proposal: its own power at the
// start height plus, with a delegation module, the delegated power its
// delegators have not used themselves
func votingPower(ctx *host.Context, cfg Config, id uint64, prop *Proposal, addr types.Address) (types.Uint128, error) {
	dao, err := proposal.Dao.Load(ctx.Store)
	if err != nil {
		return types.Uint128{}, err
	}
	return governance.GetVotingPowerWithDelegation(ctx.Querier, ctx.Contract, cfg.DelegationModule,
		dao, addr, id, prop.StartHeight)
}

func vote(ctx *host.Context, msg *VoteMsg) (*host.Response, error) {
	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	id := msg.ProposalID
	prop, err := loadProposal(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	if prop.Expiration.IsExpired(ctx.Block) {
		return nil, &proposal.ExpiredError{ID: id}
	}
	if err := prop.UpdateStatus(ctx.Block); err != nil {
		return nil, err
	}
	if !prop.Status.Is(governance.StatusOpen) {
		return nil, proposal.ErrNotOpen
	}

	power, err := votingPower(ctx, cfg, id, &prop, ctx.Sender)
	if err != nil {
		return nil, err
	}
	if power.IsZero() {
		return nil, proposal.ErrNotRegistered
	}

	key := [][]byte{storage.U64(id), ctx.Sender.Bytes()}
	prev, revote, err := ballots.MayLoad(ctx.Store, key...)
	if err != nil {
		return nil, err
	}
	if revote {
		if !prop.AllowRevoting {
			return nil, proposal.ErrAlreadyVoted
		}
		if prev.Vote == msg.Vote {
			return nil, proposal.ErrAlreadyCast
		}
		if err := prop.Votes.RemoveVote(prev.Vote, prev.Power); err != nil {
			return nil, err
		}
	}
	if err := prop.Votes.AddVote(msg.Vote, power); err != nil {
		return nil, err
	}
	if err := ballots.Save(ctx.Store, Ballot{Power: power, Vote: msg.Vote, Rationale: msg.Rationale}, key...); err != nil {
		return nil, err
	}

	old := prop.Status
	if err := prop.UpdateStatus(ctx.Block); err != nil {
		return nil, err
	}
	if err := proposals.Save(ctx.Store, prop, storage.U64(id)); err != nil {
		return nil, err
	}

	changed, err := proposal.StatusChanged(ctx.Store, id, old, prop.Status)
	if err != nil {
		return nil, err
	}
	voted, err := proposal.NewVote(ctx.Store, hooks.NewVoteHook{
		ProposalID:  id,
		Voter:       ctx.Sender,
		Vote:        msg.Vote.String(),
		Power:       power,
		Height:      prop.StartHeight,
		IsFirstVote: !revote,
	})
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddSubMessages(changed...).
		AddSubMessages(voted...).
		AddAttribute("action", "vote").
		AddAttribute("sender", ctx.Sender).
		AddAttribute("proposal_id", id).
		AddAttribute("position", msg.Vote).
		AddAttribute("rationale", rationaleAttr(msg.Rationale)).
		AddAttribute("status", prop.Status), nil
}

func rationaleAttr(r *string) string {
	if r == nil {
		return "_none"
	}
	return *r
}

func updateRationale(ctx *host.Context, msg *RationaleMsg) (*host.Response, error) {
	key := [][]byte{storage.U64(msg.ProposalID), ctx.Sender.Bytes()}
	b, ok, err := ballots.MayLoad(ctx.Store, key...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &proposal.NoSuchVoteError{ID: msg.ProposalID, Voter: ctx.Sender}
	}
	b.Rationale = msg.Rationale
	if err := ballots.Save(ctx.Store, b, key...); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "update_rationale").
		AddAttribute("sender", ctx.Sender).
		AddAttribute("proposal_id", msg.ProposalID).
		AddAttribute("rationale", rationaleAttr(msg.Rationale)), nil
}

func execute(ctx *host.Context, id uint64) (*host.Response, error) {
	prop, err := loadProposal(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	dao, err := proposal.Dao.Load(ctx.Store)
	if err != nil {
		return nil, err
	}

	canExecute := true
	if cfg.OnlyMembersExecute {
		power, err := governance.GetVotingPower(ctx.Querier, dao, ctx.Sender, &prop.StartHeight)
		if err != nil {
			return nil, err
		}
		canExecute = !power.IsZero()
	}
	if err := prop.UpdateStatus(ctx.Block); err != nil {
		return nil, err
	}
	if err := proposal.CheckExecute(prop.Veto, ctx.Sender, prop.Status, canExecute); err != nil {
		return nil, err
	}

	old := prop.Status
	prop.Status = governance.Status{Kind: governance.StatusExecuted}
	if err := proposals.Save(ctx.Store, prop, storage.U64(id)); err != nil {
		return nil, err
	}

	exec, err := proposal.ExecutionMsgs(dao, id, prop.Msgs, cfg.CloseProposalOnExecutionFailure)
	if err != nil {
		return nil, err
	}
	done, err := proposal.Completed(ctx.Store, id, old, prop.Status)
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddSubMessages(exec...).
		AddSubMessages(done...).
		AddAttribute("action", "execute").
		AddAttribute("sender", ctx.Sender).
		AddAttribute("proposal_id", id).
		AddAttribute("dao", dao), nil
}

func veto(ctx *host.Context, id uint64) (*host.Response, error) {
	prop, err := loadProposal(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	if err := prop.UpdateStatus(ctx.Block); err != nil {
		return nil, err
	}
	if err := governance.CheckVeto(prop.Veto, ctx.Sender, prop.Status, ctx.Block); err != nil {
		return nil, err
	}
	old := prop.Status
	prop.Status = governance.Status{Kind: governance.StatusVetoed}
	if err := proposals.Save(ctx.Store, prop, storage.U64(id)); err != nil {
		return nil, err
	}
	done, err := proposal.Completed(ctx.Store, id, old, prop.Status)
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddSubMessages(done...).
		AddAttribute("action", "veto").
		AddAttribute("proposal_id", id), nil
}

func closeProposal(ctx *host.Context, id uint64) (*host.Response, error) {
	prop, err := loadProposal(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	if err := prop.UpdateStatus(ctx.Block); err != nil {
		return nil, err
	}
	if !prop.Status.Is(governance.StatusRejected) {
		return nil, proposal.ErrWrongCloseStatus
	}
	old := prop.Status
	prop.Status = governance.Status{Kind: governance.StatusClosed}
	if err := proposals.Save(ctx.Store, prop, storage.U64(id)); err != nil {
		return nil, err
	}
	done, err := proposal.Completed(ctx.Store, id, old, prop.Status)
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddSubMessages(done...).
		AddAttribute("action", "close").
		AddAttribute("sender", ctx.Sender).
		AddAttribute("proposal_id", id), nil
}

func updateConfig(ctx *host.Context, cfg *Config) (*host.Response, error) {
	dao, err := proposal.Dao.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	if ctx.Sender != dao {
		return nil, proposal.ErrUnauthorized
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.Save(ctx.Store, *cfg); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "update_config").
		AddAttribute("sender", ctx.Sender), nil
}

// Reply marks proposals whose execution failed and applies the hook failure
// policy
func (c *Contract) Reply(ctx *host.Context, reply types.Reply) (*host.Response, error) {
	return proposal.HandleReply(ctx, reply, func(id uint64) error {
		prop, err := loadProposal(ctx.Store, id)
		if err != nil {
			return err
		}
		prop.Status = governance.Status{Kind: governance.StatusExecutionFailed}
		return proposals.Save(ctx.Store, prop, storage.U64(id))
	})
}

// Migrate bumps the stored contract version
func (c *Contract) Migrate(ctx *host.Context, _ json.RawMessage) (*host.Response, error) {
	if err := host.MigrateVersion(ctx.Store, contractName, contractVersion); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "migrate"), nil
}
