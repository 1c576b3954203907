package group

import (
	"github.com/daodao/core/internal/hooks"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

var (
	dao        = storage.NewItem[types.Address]("dao")
	hookPolicy = storage.NewItem[hooks.FailurePolicy]("hook_failure_policy")
	members    = storage.NewSnapshotMap[uint64]("members")
	total      = storage.NewSnapshotMap[uint64]("total")
	memberHook = hooks.New("cw4-hooks")
)

var totalKey = storage.Str("total")

func weightAt(s storage.KVStore, addr types.Address, height *uint64) (uint64, bool, error) {
	if height == nil {
		return members.MayLoad(s, addr.Bytes())
	}
	return members.MayLoadAtHeight(s, *height, addr.Bytes())
}

func totalAt(s storage.KVStore, height *uint64) (uint64, error) {
	var (
		w   uint64
		err error
	)
	if height == nil {
		w, _, err = total.MayLoad(s, totalKey)
	} else {
		w, _, err = total.MayLoadAtHeight(s, *height, totalKey)
	}
	return w, err
}
