package testutil

import (
	"encoding/json"
	"errors"

	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
)

// HookCounterCodeID is the code id of the hook counting test contract
const HookCounterCodeID = "hook-counter"

var errHookCounterFailing = errors.New("hook counter configured to fail")

// HookCounterInit configures the hook counter
type HookCounterInit struct {
	ShouldError bool `json:"should_error"`
}

// HookCounts is the hook counter's query response
type HookCounts struct {
	Proposal  uint64 `json:"proposal"`
	Vote      uint64 `json:"vote"`
	Stake     uint64 `json:"stake"`
	Member    uint64 `json:"member"`
	Completed uint64 `json:"completed"`
}

// SetShouldError toggles failure of subsequent hooks
type SetShouldError struct {
	SetShouldError struct {
		Value bool `json:"value"`
	} `json:"set_should_error"`
}

var (
	hookCounts  = storage.NewItem[HookCounts]("counts")
	shouldError = storage.NewItem[bool]("should_error")
)

// hookCounter accepts every hook message and counts them by kind
type hookCounter struct{}

func (hookCounter) Instantiate(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg HookCounterInit
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if err := shouldError.Save(ctx.Store, msg.ShouldError); err != nil {
		return nil, err
	}
	return host.NewResponse(), hookCounts.Save(ctx.Store, HookCounts{})
}

func (hookCounter) Execute(ctx *host.Context, raw json.RawMessage) (*host.Response, error) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if body, ok := msg["set_should_error"]; ok {
		var v struct {
			Value bool `json:"value"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return host.NewResponse(), shouldError.Save(ctx.Store, v.Value)
	}

	fail, err := shouldError.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	if fail {
		return nil, errHookCounterFailing
	}
	counts, err := hookCounts.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	switch {
	case msg["proposal_hook"] != nil:
		counts.Proposal++
	case msg["vote_hook"] != nil:
		counts.Vote++
	case msg["stake_change_hook"] != nil:
		counts.Stake++
	case msg["member_changed_hook"] != nil:
		counts.Member++
	case msg["proposal_completed_hook"] != nil:
		counts.Completed++
	default:
		return nil, host.ErrUnknownVariant
	}
	return host.NewResponse(), hookCounts.Save(ctx.Store, counts)
}

func (hookCounter) Query(ctx *host.QueryContext, _ json.RawMessage) ([]byte, error) {
	counts, err := hookCounts.Load(ctx.Store)
	if err != nil {
		return nil, err
	}
	return host.JSON(counts)
}
