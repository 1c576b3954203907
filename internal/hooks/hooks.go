// Package hooks keeps per-contract subscriber lists and builds the
// sub-messages that notify them.
package hooks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// Hook registry errors
var (
	ErrHookAlreadyRegistered = errors.New("given address already registered as a hook")
	ErrHookNotRegistered     = errors.New("given address not registered as a hook")
	ErrUnauthorizedCaller    = errors.New("unauthorized hook caller")
	ErrInvalidPolicy         = errors.New("invalid hook failure policy")
)

// FailurePolicy decides what a failing subscriber does to the dispatching
// transaction
type FailurePolicy string

const (
	// PolicyAbort sends hooks without a reply so a failure aborts the whole
	// transaction
	PolicyAbort FailurePolicy = "abort"
	// PolicyContinue swallows the failure and keeps the subscriber
	PolicyContinue FailurePolicy = "continue"
	// PolicyDeregister swallows the failure and removes the subscriber
	PolicyDeregister FailurePolicy = "deregister"
)

// Validate accepts the three known policies
func (p FailurePolicy) Validate() error {
	switch p {
	case PolicyAbort, PolicyContinue, PolicyDeregister:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPolicy, string(p))
}

// OrDefault returns p, or def when p is empty
func (p FailurePolicy) OrDefault(def FailurePolicy) FailurePolicy {
	if p == "" {
		return def
	}
	return p
}

// Hooks is an ordered set of subscriber addresses stored under one key
type Hooks struct {
	item storage.Item[[]types.Address]
}

// New returns a hook list stored at key
func New(key string) Hooks {
	return Hooks{item: storage.NewItem[[]types.Address](key)}
}

// List returns all subscribers in registration order
func (h Hooks) List(s storage.KVStore) ([]types.Address, error) {
	list, _, err := h.item.MayLoad(s)
	return list, err
}

// Count returns the number of subscribers
func (h Hooks) Count(s storage.KVStore) (int, error) {
	list, err := h.List(s)
	return len(list), err
}

// Add registers addr
func (h Hooks) Add(s storage.KVStore, addr types.Address) error {
	list, err := h.List(s)
	if err != nil {
		return err
	}
	if lo.Contains(list, addr) {
		return ErrHookAlreadyRegistered
	}
	return h.item.Save(s, append(list, addr))
}

// Remove deregisters addr
func (h Hooks) Remove(s storage.KVStore, addr types.Address) error {
	list, err := h.List(s)
	if err != nil {
		return err
	}
	if !lo.Contains(list, addr) {
		return ErrHookNotRegistered
	}
	return h.item.Save(s, lo.Without(list, addr))
}

// Prepare builds one sub-message per subscriber carrying msg. mask turns a
// subscriber index into the reply id used for failures.
func (h Hooks) Prepare(s storage.KVStore, policy FailurePolicy, mask func(index uint64) uint64, msg any) ([]types.SubMsg, error) {
	list, err := h.List(s)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode hook: %w", err)
	}

	out := make([]types.SubMsg, 0, len(list))
	for i, addr := range list {
		cosmos := types.CosmosMsg{Wasm: &types.WasmMsg{Execute: &types.WasmExecute{
			ContractAddr: addr,
			Msg:          raw,
			Funds:        []types.Coin{},
		}}}
		if policy == PolicyAbort {
			out = append(out, types.NewSubMsg(cosmos))
			continue
		}
		out = append(out, types.ReplyOnErrorMsg(cosmos, mask(uint64(i))))
	}
	return out, nil
}

// HandleFailure applies policy to a failed hook reply. It returns the
// subscriber that was removed, if any.
func (h Hooks) HandleFailure(s storage.KVStore, policy FailurePolicy, reply types.Reply) (types.Address, bool, error) {
	if policy != PolicyDeregister || reply.Target == "" {
		return "", false, nil
	}
	err := h.Remove(s, reply.Target)
	if errors.Is(err, ErrHookNotRegistered) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return reply.Target, true, nil
}

// HooksResponse lists subscribers in query responses
type HooksResponse struct {
	Hooks []types.Address `json:"hooks"`
}

// Query returns the subscriber list for a query response
func (h Hooks) Query(s storage.KVStore) (HooksResponse, error) {
	list, err := h.List(s)
	if err != nil {
		return HooksResponse{}, err
	}
	if list == nil {
		list = []types.Address{}
	}
	return HooksResponse{Hooks: list}, nil
}
