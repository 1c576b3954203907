// Package group is a voting module whose power is a fixed weight per member,
// managed by the DAO.
package group

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/common"
	"github.com/daodao/core/pkg/types"
)

const (
	// CodeID is the code the group voting module is registered under
	CodeID = "voting-group"

	contractName    = "crates.io:dao-voting-cw4"
	contractVersion = "2.5.0"
)

// Group errors
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoMembers       = errors.New("cannot instantiate a group contract with no initial members")
	ErrZeroTotalWeight = errors.New("total weight of the group must be greater than zero")
	ErrDuplicateMember = errors.New("duplicate member")
)

// Contract implements the group voting module
type Contract struct{}

// New returns the group contract
func New() *Contract {
	return &Contract{}
}

// Instantiate records the initial members. The sender becomes the DAO.
func (c *Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg InstantiateMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	if len(msg.Members) == 0 {
		return nil, ErrNoMembers
	}
	policy := msg.HookFailurePolicy.OrDefault(hooks.PolicyAbort)
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[types.Address]struct{}, len(msg.Members))
	var sum uint64
	for _, m := range msg.Members {
		if err := m.Addr.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[m.Addr]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, m.Addr)
		}
		seen[m.Addr] = struct{}{}
		sum += m.Weight
		if err := members.Save(ctx.Store, m.Weight, ctx.Block.Height, m.Addr.Bytes()); err != nil {
			return nil, err
		}
	}
	if sum == 0 {
		return nil, ErrZeroTotalWeight
	}
	if err := total.Save(ctx.Store, sum, ctx.Block.Height, totalKey); err != nil {
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
		AddAttribute("members", len(msg.Members)).
		AddAttribute("total_weight", sum), nil
}

// Execute routes an execute message
func (c *Contract) Execute(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	owner, err := dao.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	if ctx.Sender != owner {
		return nil, ErrUnauthorized
	}

	switch {
	case msg.UpdateMembers != nil:
		return updateMembers(ctx, msg.UpdateMembers)
	case msg.AddHook != nil:
		if err := msg.AddHook.Addr.Validate(); err != nil {
			return nil, err
		}
		if err := memberHook.Add(ctx.Store, msg.AddHook.Addr); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "add_hook").
			AddAttribute("hook", msg.AddHook.Addr), nil
	case msg.RemoveHook != nil:
		if err := memberHook.Remove(ctx.Store, msg.RemoveHook.Addr); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("action", "remove_hook").
			AddAttribute("hook", msg.RemoveHook.Addr), nil
	}
	return nil, host.ErrUnknownVariant
}

func updateMembers(ctx *host.Context, msg *UpdateMembers) (*host.Response, error) {
	height := ctx.Block.Height
	sum, err := totalAt(ctx.Store, nil)
	if err != nil {
		return nil, err
	}

	var diffs []hooks.MemberDiff
	for _, m := range msg.Add {
		if err := m.Addr.Validate(); err != nil {
			return nil, err
		}
		old, ok, err := members.MayLoad(ctx.Store, m.Addr.Bytes())
		if err != nil {
			return nil, err
		}
		if err := members.Save(ctx.Store, m.Weight, height, m.Addr.Bytes()); err != nil {
			return nil, err
		}
		sum = sum - old + m.Weight
		d := hooks.MemberDiff{Key: m.Addr, New: &m.Weight}
		if ok {
			d.Old = &old
		}
		diffs = append(diffs, d)
	}
	for _, addr := range msg.Remove {
		old, ok, err := members.MayLoad(ctx.Store, addr.Bytes())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := members.Remove(ctx.Store, height, addr.Bytes()); err != nil {
			return nil, err
		}
		sum -= old
		diffs = append(diffs, hooks.MemberDiff{Key: addr, Old: &old})
	}
	if err := total.Save(ctx.Store, sum, height, totalKey); err != nil {
		return nil, err
	}

	policy, err := hookPolicy.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	subs, err := hooks.MemberChangedHooks(memberHook, ctx.Store, policy, hookIndex, diffs)
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "update_members").
		AddAttribute("added", len(msg.Add)).
		AddAttribute("removed", len(msg.Remove)).
		AddSubMessages(subs...), nil
}

func hookIndex(i uint64) uint64 { return i }

// Reply applies the hook failure policy to a failed member hook
func (c *Contract) Reply(ctx *host.Context, reply types.Reply) (*host.Response, error) {
	policy, err := hookPolicy.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	removed, ok, err := memberHook.HandleFailure(ctx.Store, policy, reply)
	if err != nil {
		return nil, err
	}
	resp := host.NewResponse().AddAttribute("action", "hook_failed")
	if ok {
		ctx.Logger.Warn("member hook removed after failure", zap.String("hook", removed.String()))
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
		w, _, err := weightAt(ctx.Store, q.Address, &height)
		if err != nil {
			return nil, err
		}
		return host.JSON(types.VotingPowerAtHeightResponse{Power: types.NewUint128(w), Height: height})
	case msg.TotalPowerAtHeight != nil:
		height := ctx.Block.Height
		if h := msg.TotalPowerAtHeight.Height; h != nil {
			height = *h
		}
		w, err := totalAt(ctx.Store, &height)
		if err != nil {
			return nil, err
		}
		return host.JSON(types.TotalPowerAtHeightResponse{Power: types.NewUint128(w), Height: height})
	case msg.Dao != nil:
		owner, err := dao.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(owner)
	case msg.Info != nil:
		return host.QueryInfo(ctx.Store)
	case msg.Member != nil:
		w, ok, err := weightAt(ctx.Store, msg.Member.Addr, msg.Member.AtHeight)
		if err != nil {
			return nil, err
		}
		if !ok {
			return host.JSON(MemberResponse{})
		}
		return host.JSON(MemberResponse{Weight: &w})
	case msg.ListMembers != nil:
		return listMembers(ctx.Store, msg.ListMembers)
	case msg.TotalWeight != nil:
		w, err := totalAt(ctx.Store, msg.TotalWeight.AtHeight)
		if err != nil {
			return nil, err
		}
		return host.JSON(TotalWeightResponse{Weight: w})
	case msg.Hooks != nil:
		resp, err := memberHook.Query(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(resp)
	}
	return nil, host.ErrUnknownVariant
}

func listMembers(s storage.KVStore, q *ListMembersQuery) ([]byte, error) {
	opts := storage.RangeOptions{Limit: common.ClampLimit(q.Limit, common.DefaultLimit, common.MaxLimit)}
	if q.StartAfter != nil {
		opts.Min = storage.ExclusiveBound(q.StartAfter.Bytes())
	}
	out := []Member{}
	err := members.Range(s, opts, func(key []byte, w uint64) (bool, error) {
		out = append(out, Member{Addr: types.Address(key), Weight: w})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return host.JSON(MemberListResponse{Members: out})
}
