package core

import (
	"encoding/json"

	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/pkg/common"
	"github.com/daodao/core/pkg/types"
)

// Query routes a query message
func (c *Contract) Query(ctx *host.QueryContext, raw json.RawMessage) ([]byte, error) {
	var msg QueryMsg
	if err := host.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.VotingPowerAtHeight != nil || msg.TotalPowerAtHeight != nil:
		return forwardVotingQuery(ctx, msg.VotingQuery)
	case msg.Dao != nil:
		return host.JSON(ctx.Contract)
	case msg.Info != nil:
		return host.QueryInfo(ctx.Store)
	case msg.Admin != nil:
		adm, err := admin.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(adm)
	case msg.Config != nil:
		cfg, err := config.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(cfg)
	case msg.VotingModule != nil:
		addr, err := votingModule.Load(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(addr)
	case msg.ProposalModules != nil:
		q := msg.ProposalModules
		list, err := listModules(ctx.Store, q.StartAfter, common.ClampLimit(q.Limit, common.DefaultLimit, common.MaxLimit), false)
		if err != nil {
			return nil, err
		}
		return host.JSON(list)
	case msg.ActiveProposalModules != nil:
		q := msg.ActiveProposalModules
		list, err := listModules(ctx.Store, q.StartAfter, common.ClampLimit(q.Limit, common.DefaultLimit, common.MaxLimit), true)
		if err != nil {
			return nil, err
		}
		return host.JSON(list)
	case msg.ProposalModuleCount != nil:
		active, total, err := loadCounts(ctx.Store)
		if err != nil {
			return nil, err
		}
		return host.JSON(ProposalModuleCountResponse{ActiveProposalModuleCount: active, TotalProposalModuleCount: total})
	case msg.PauseInfo != nil:
		info, err := pauseInfo(ctx)
		if err != nil {
			return nil, err
		}
		return host.JSON(info)
	case msg.DumpState != nil:
		return dumpState(ctx)
	}
	return nil, host.ErrUnknownVariant
}

func forwardVotingQuery(ctx *host.QueryContext, q types.VotingQuery) ([]byte, error) {
	vm, err := votingModule.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := ctx.Querier.QueryWasmSmart(vm, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func pauseInfo(ctx *host.QueryContext) (PauseInfoResponse, error) {
	exp, ok, err := paused.MayLoad(ctx.Store)
	if err != nil || !ok || exp.IsExpired(ctx.Block) {
		return PauseInfoResponse{}, err
	}
	return PauseInfoResponse{Paused: &exp}, nil
}

func dumpState(ctx *host.QueryContext) ([]byte, error) {
	adm, err := admin.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	version, err := host.GetContractVersion(ctx.Store)
	if err != nil {
		return nil, err
	}
	vm, _, err := votingModule.MayLoad(ctx.Store)
	if err != nil {
		return nil, err
	}
	modules, err := listModules(ctx.Store, nil, 0, false)
	if err != nil {
		return nil, err
	}
	active, total, err := loadCounts(ctx.Store)
	if err != nil {
		return nil, err
	}
	p, err := pauseInfo(ctx)
	if err != nil {
		return nil, err
	}
	return host.JSON(DumpStateResponse{
		Admin:             adm,
		Config:            cfg,
		Version:           version,
		VotingModule:      vm,
		ProposalModules:   modules,
		ActiveModuleCount: active,
		TotalModuleCount:  total,
		Pause:             p,
	})
}
