package rewards

import (
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// hookedDistributions lists the distributions caller drives
func hookedDistributions(s storage.KVStore, caller types.Address) ([]uint64, error) {
	var ids []uint64
	err := registeredHooks.Range(s, storage.RangeOptions{Prefix: [][]byte{caller.Bytes()}}, func(key []byte, _ struct{}) (bool, error) {
		id, err := storage.ParseU64(key)
		if err != nil {
			return true, err
		}
		ids = append(ids, id)
		return false, nil
	})
	return ids, err
}

// powerChanged settles every address whose power the sender is about to
// change, in each distribution the sender is the hook caller for. The hook
// fires in the block of the change, so settlement uses the old power.
func powerChanged(ctx *host.Context, addrs ...types.Address) (*host.Response, error) {
	ids, err := hookedDistributions(ctx.Store, ctx.Sender)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrInvalidHookSender
	}
	for _, id := range ids {
		for _, addr := range addrs {
			if _, err := updateRewards(ctx.Store, ctx.Querier, ctx.Block, id, addr); err != nil {
				return nil, err
			}
		}
	}
	return host.NewResponse().
		AddAttribute("action", "update_rewards").
		AddAttribute("distributions", len(ids)).
		AddAttribute("addresses", len(addrs)), nil
}
