package proposal

import (
	"go.uber.org/zap"

	"github.com/daodao/core/internal/governance"
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/common"
	"github.com/daodao/core/pkg/types"
)

// HookAddress names a hook subscriber
type HookAddress struct {
	Address types.Address `json:"address"`
}

// UpdateCreationPolicy replaces who may create proposals
type UpdateCreationPolicy struct {
	Policy governance.ProposalCreationPolicy `json:"policy"`
}

// AdminMsg holds the execute variants every proposal module accepts from
// its DAO. Modules embed it in their ExecuteMsg.
type AdminMsg struct {
	UpdateProposalCreationPolicy *UpdateCreationPolicy `json:"update_proposal_creation_policy,omitempty"`
	AddProposalHook              *HookAddress          `json:"add_proposal_hook,omitempty"`
	RemoveProposalHook           *HookAddress          `json:"remove_proposal_hook,omitempty"`
	AddVoteHook                  *HookAddress          `json:"add_vote_hook,omitempty"`
	RemoveVoteHook               *HookAddress          `json:"remove_vote_hook,omitempty"`
}

// Handle runs the variant that is set. It reports false when none is.
func (m *AdminMsg) Handle(ctx *host.Context) (*host.Response, bool, error) {
	var (
		list   hooks.Hooks
		addr   *HookAddress
		add    bool
		action string
	)
	switch {
	case m.UpdateProposalCreationPolicy != nil:
		if err := requireDao(ctx); err != nil {
			return nil, true, err
		}
		policy := m.UpdateProposalCreationPolicy.Policy
		if err := policy.Validate(); err != nil {
			return nil, true, err
		}
		if err := CreationPolicy.Save(ctx.Store, policy); err != nil {
			return nil, true, err
		}
		return host.NewResponse().AddAttribute("action", "update_proposal_creation_policy"), true, nil
	case m.AddProposalHook != nil:
		list, addr, add, action = ProposalHooks, m.AddProposalHook, true, "add_proposal_hook"
	case m.RemoveProposalHook != nil:
		list, addr, action = ProposalHooks, m.RemoveProposalHook, "remove_proposal_hook"
	case m.AddVoteHook != nil:
		list, addr, add, action = VoteHooks, m.AddVoteHook, true, "add_vote_hook"
	case m.RemoveVoteHook != nil:
		list, addr, action = VoteHooks, m.RemoveVoteHook, "remove_vote_hook"
	default:
		return nil, false, nil
	}

	if err := requireDao(ctx); err != nil {
		return nil, true, err
	}
	if err := addr.Address.Validate(); err != nil {
		return nil, true, err
	}
	var err error
	if add {
		err = list.Add(ctx.Store, addr.Address)
	} else {
		err = list.Remove(ctx.Store, addr.Address)
	}
	if err != nil {
		return nil, true, err
	}
	return host.NewResponse().
		AddAttribute("action", action).
		AddAttribute("address", addr.Address), true, nil
}

func requireDao(ctx *host.Context) error {
	dao, err := Dao.Load(ctx.Store)
	if err != nil {
		return err
	}
	if ctx.Sender != dao {
		return ErrUnauthorized
	}
	return nil
}

// SharedQuery holds the query variants every proposal module answers.
// Modules embed it in their QueryMsg.
type SharedQuery struct {
	Dao                    *struct{} `json:"dao,omitempty"`
	Info                   *struct{} `json:"info,omitempty"`
	ProposalCreationPolicy *struct{} `json:"proposal_creation_policy,omitempty"`
	ProposalHooks          *struct{} `json:"proposal_hooks,omitempty"`
	VoteHooks              *struct{} `json:"vote_hooks,omitempty"`
	ProposalCount          *struct{} `json:"proposal_count,omitempty"`
	NextProposalID         *struct{} `json:"next_proposal_id,omitempty"`
}

// Handle answers the variant that is set. It reports false when none is.
func (q *SharedQuery) Handle(ctx *host.QueryContext) ([]byte, bool, error) {
	var (
		out any
		err error
	)
	switch {
	case q.Dao != nil:
		out, err = Dao.Load(ctx.Store)
	case q.Info != nil:
		b, err := host.QueryInfo(ctx.Store)
		return b, true, err
	case q.ProposalCreationPolicy != nil:
		out, err = CreationPolicy.Load(ctx.Store)
	case q.ProposalHooks != nil:
		out, err = ProposalHooks.Query(ctx.Store)
	case q.VoteHooks != nil:
		out, err = VoteHooks.Query(ctx.Store)
	case q.ProposalCount != nil:
		out, err = Count(ctx.Store)
	case q.NextProposalID != nil:
		out, err = NextID(ctx.Store)
	default:
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	b, err := host.JSON(out)
	return b, true, err
}

// HandleReply processes failed execution and hook sub-messages.
// onExecutionFailed marks the proposal whose messages failed.
func HandleReply(ctx *host.Context, reply types.Reply, onExecutionFailed func(id uint64) error) (*host.Response, error) {
	tagged, err := governance.ParseReplyID(reply.ID)
	if err != nil {
		return nil, err
	}
	resp := host.NewResponse()
	switch tagged.Kind {
	case governance.ReplyFailedExecution:
		if err := onExecutionFailed(tagged.Value); err != nil {
			return nil, err
		}
		ctx.Logger.Info("proposal execution failed",
			zap.Uint64("proposal_id", tagged.Value),
			zap.String("error", reply.Error))
		return resp.
			AddAttribute("proposal_execution_failed", tagged.Value).
			AddAttribute("error", reply.Error), nil
	case governance.ReplyFailedProposalHook, governance.ReplyFailedVoteHook:
		list := ProposalHooks
		if tagged.Kind == governance.ReplyFailedVoteHook {
			list = VoteHooks
		}
		policy, err := HookPolicy.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		removed, ok, err := list.HandleFailure(ctx.Store, policy, reply)
		if err != nil {
			return nil, err
		}
		resp.AddAttribute("action", "hook_failed").AddAttribute("index", tagged.Value)
		if ok {
			ctx.Logger.Warn("hook removed after failure", zap.String("hook", removed.String()))
			resp.AddAttribute("removed_hook", removed)
		}
		return resp, nil
	default:
		if err := CreationPolicy.Save(ctx.Store, governance.AnyonePolicy()); err != nil {
			return nil, err
		}
		return resp.AddAttribute("failed_prepropose_hook", reply.Target), nil
	}
}

// ListOptions pages proposals by id
type ListOptions struct {
	StartAfter *uint64
	Limit      *uint64
	Reverse    bool
}

// ListProposals walks proposals in id order from m and converts each with fn
func ListProposals[P, R any](s storage.KVStore, m storage.Map[P], opts ListOptions, fn func(id uint64, p P) (R, error)) ([]R, error) {
	var limit *uint32
	if opts.Limit != nil {
		l := uint32(min(*opts.Limit, uint64(common.MaxLimit)))
		limit = &l
	}
	ro := storage.RangeOptions{Limit: common.ClampLimit(limit, common.DefaultLimit, common.MaxLimit)}
	if opts.Reverse {
		ro.Order = storage.Descending
		if opts.StartAfter != nil {
			ro.Max = storage.ExclusiveBound(storage.U64(*opts.StartAfter))
		}
	} else if opts.StartAfter != nil {
		ro.Min = storage.ExclusiveBound(storage.U64(*opts.StartAfter))
	}

	out := []R{}
	err := m.Range(s, ro, func(key []byte, p P) (bool, error) {
		id, err := storage.ParseU64(key)
		if err != nil {
			return true, err
		}
		r, err := fn(id, p)
		if err != nil {
			return true, err
		}
		out = append(out, r)
		return false, nil
	})
	return out, err
}

// ListBallots walks the ballots of one proposal in voter order
func ListBallots[B any](s storage.KVStore, m storage.Map[B], id uint64, startAfter *types.Address, limit *uint64) ([]B, []types.Address, error) {
	var l *uint32
	if limit != nil {
		v := uint32(min(*limit, uint64(common.MaxLimit)))
		l = &v
	}
	ro := storage.RangeOptions{
		Prefix: [][]byte{storage.U64(id)},
		Limit:  common.ClampLimit(l, common.DefaultLimit, common.MaxLimit),
	}
	if startAfter != nil {
		ro.Min = storage.ExclusiveBound(startAfter.Bytes())
	}
	var (
		ballots []B
		voters  []types.Address
	)
	err := m.Range(s, ro, func(key []byte, b B) (bool, error) {
		ballots = append(ballots, b)
		voters = append(voters, types.Address(key))
		return false, nil
	})
	return ballots, voters, err
}
