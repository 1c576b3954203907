// Package condorcet is the ranked choice proposal module. Voters rank every
// choice and the choice that beats each other one head to head wins.
package condorcet

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/contracts/proposal"
	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

const (
	// CodeID is the code the Condorcet module is registered under
	CodeID = "proposal-condorcet"

	contractName    = "crates.io:dao-proposal-condorcet"
	contractVersion = "2.5.0"
)

// Errors returned by the Condorcet module
var (
	ErrZeroChoices     = errors.New("must propose at least one choice")
	ErrZeroVotingPower = errors.New("sender has no voting power")
	ErrUnexecutable    = errors.New("proposal is not passed and can not be executed")
	ErrUnclosable      = errors.New("only rejected proposals may be closed")
)

// Contract implements the Condorcet proposal module
type Contract struct{}

// New returns the Condorcet proposal module
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
	if err := proposal.Init(ctx.Store, ctx.Sender, nil, msg.HookFailurePolicy); err != nil {
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
	case msg.Execute != nil:
		return execute(ctx, msg.Execute.ProposalID)
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
	proposer, err := proposal.ResolveProposer(ctx.Store, ctx.Sender, nil)
	if err != nil {
		return nil, err
	}
	dao, err := proposal.Dao.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	power, err := governance.GetVotingPower(ctx.Querier, dao, proposer, nil)
	if err != nil {
		return nil, err
	}
	if power.IsZero() {
		return nil, ErrZeroVotingPower
	}
	if len(msg.Choices) == 0 {
		return nil, ErrZeroChoices
	}
	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	total, err := governance.GetTotalPower(ctx.Querier, dao, &ctx.Block.Height)
	if err != nil {
		return nil, err
	}

	choices := make([]Choice, 0, len(msg.Choices)+1)
	for _, c := range msg.Choices {
		if c.Msgs == nil {
			c.Msgs = []types.CosmosMsg{}
		}
		choices = append(choices, c)
	}
	choices = append(choices, Choice{Msgs: []types.CosmosMsg{}})

	id, err := proposal.AdvanceID(ctx.Store)
	if err != nil {
		return nil, err
	}
	expiration, minPeriod := governance.VotingWindow(ctx.Block, cfg.MinVotingPeriod, cfg.VotingPeriod)
	tally := NewTally(uint32(len(choices)), total, ctx.Block.Height, expiration)
	prop := Proposal{
		ID:                      id,
		Proposer:                proposer,
		Quorum:                  cfg.Quorum,
		MinVotingPeriod:         minPeriod,
		CloseOnExecutionFailure: cfg.CloseProposalsOnExecutionFailure,
		TotalPower:              total,
		Choices:                 choices,
		Status:                  governance.Open(),
	}
	prop.UpdateStatus(ctx.Block, &tally)
	if err := proposal.CheckSize(prop); err != nil {
		return nil, err
	}
	if err := tallies.Save(ctx.Store, tally, storage.U64(id)); err != nil {
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
		zap.Int("choices", len(choices)),
		zap.Stringer("total_power", total))
	return host.NewResponse().
		AddSubMessages(subs...).
		AddAttribute("action", "propose").
		AddAttribute("proposal_id", id).
		AddAttribute("proposer", proposer), nil
}

func vote(ctx *host.Context, msg *VoteMsg) (*host.Response, error) {
	id := msg.ProposalID
	prop, tally, err := load(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	dao, err := proposal.Dao.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	power, err := governance.GetVotingPower(ctx.Querier, dao, ctx.Sender, &tally.StartHeight)
	if err != nil {
		return nil, err
	}
	if power.IsZero() {
		return nil, ErrZeroVotingPower
	}
	key := [][]byte{storage.U64(id), ctx.Sender.Bytes()}
	voted, err := ballots.Has(ctx.Store, key...)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, proposal.ErrAlreadyVoted
	}
	if tally.Expired(ctx.Block) {
		return nil, &proposal.ExpiredError{ID: id}
	}
	prop.UpdateStatus(ctx.Block, &tally)
	if !prop.Status.Is(governance.StatusOpen) {
		return nil, proposal.ErrNotOpen
	}
	if err := ValidateRanking(msg.Vote, tally.Candidates()); err != nil {
		return nil, err
	}

	if err := ballots.Save(ctx.Store, Ballot{Power: power, Vote: msg.Vote}, key...); err != nil {
		return nil, err
	}
	if err := tally.AddVote(msg.Vote, power); err != nil {
		return nil, err
	}
	if err := tallies.Save(ctx.Store, tally, storage.U64(id)); err != nil {
		return nil, err
	}
	old := prop.Status
	prop.UpdateStatus(ctx.Block, &tally)
	if err := proposals.Save(ctx.Store, prop, storage.U64(id)); err != nil {
		return nil, err
	}

	changed, err := proposal.StatusChanged(ctx.Store, id, old, prop.Status)
	if err != nil {
		return nil, err
	}
	hooked, err := proposal.NewVote(ctx.Store, hooks.NewVoteHook{
		ProposalID:  id,
		Voter:       ctx.Sender,
		Vote:        rankingString(msg.Vote),
		Power:       power,
		Height:      tally.StartHeight,
		IsFirstVote: true,
	})
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddSubMessages(changed...).
		AddSubMessages(hooked...).
		AddAttribute("action", "vote").
		AddAttribute("proposal_id", id).
		AddAttribute("voter", ctx.Sender).
		AddAttribute("power", power).
		AddAttribute("winner", tally.Winner), nil
}

func rankingString(r []uint32) string {
	parts := make([]string, len(r))
	for i, c := range r {
		parts[i] = strconv.FormatUint(uint64(c), 10)
	}
	return strings.Join(parts, ",")
}

func execute(ctx *host.Context, id uint64) (*host.Response, error) {
	prop, tally, err := load(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	dao, err := proposal.Dao.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	power, err := governance.GetVotingPower(ctx.Querier, dao, ctx.Sender, &tally.StartHeight)
	if err != nil {
		return nil, err
	}
	if power.IsZero() {
		return nil, ErrZeroVotingPower
	}
	prop.UpdateStatus(ctx.Block, &tally)
	if !prop.Status.Is(governance.StatusPassed) || prop.Winner == nil {
		return nil, ErrUnexecutable
	}

	old := prop.Status
	prop.Status = governance.Status{Kind: governance.StatusExecuted}
	if err := proposals.Save(ctx.Store, prop, storage.U64(id)); err != nil {
		return nil, err
	}
	exec, err := proposal.ExecutionMsgs(dao, id, prop.Choices[*prop.Winner].Msgs, prop.CloseOnExecutionFailure)
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
		AddAttribute("proposal_id", id).
		AddAttribute("executor", ctx.Sender).
		AddAttribute("winner", *prop.Winner), nil
}

func closeProposal(ctx *host.Context, id uint64) (*host.Response, error) {
	prop, tally, err := load(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	prop.UpdateStatus(ctx.Block, &tally)
	if !prop.Status.Is(governance.StatusRejected) {
		return nil, ErrUnclosable
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
		AddAttribute("proposal_id", id).
		AddAttribute("closer", ctx.Sender), nil
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
		prop, _, err := load(ctx.Store, id)
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

// Query routes a query message
func (c *Contract) Query(ctx *host.QueryContext, raw json.RawMessage) ([]byte, error) {
	var msg QueryMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Config != nil:
		cfg, err := config.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(cfg)
	case msg.Proposal != nil:
		prop, tally, err := load(ctx.Store, msg.Proposal.ProposalID)
		if err != nil {
			return nil, err
		}
		prop.UpdateStatus(ctx.Block, &tally)
		return host.JSON(ProposalResponse{Proposal: prop, Tally: tally})
	case msg.GetVote != nil:
		b, ok, err := ballots.MayLoad(ctx.Store, storage.U64(msg.GetVote.ProposalID), msg.GetVote.Voter.Bytes())
		if err != nil {
			return nil, err
		}
		if !ok {
			return host.JSON(VoteResponse{})
		}
		return host.JSON(VoteResponse{Vote: &b})
	}
	resp, ok, err := msg.SharedQuery.Handle(ctx)
	if !ok {
		return nil, host.ErrUnknownVariant
	}
	return resp, err
}
