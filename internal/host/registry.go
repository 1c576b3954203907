package host

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// ContractInfo is the host's record of an instantiated contract
type ContractInfo struct {
	CodeID  string         `json:"code_id"`
	Admin   *types.Address `json:"admin,omitempty"`
	Label   string         `json:"label"`
	Creator types.Address  `json:"creator"`
	Created uint64         `json:"created"`
}

var (
	contracts   = storage.NewMap[ContractInfo]("h/contracts")
	instanceSeq = storage.NewCounter("h/seq")
	lastBlock   = storage.NewItem[types.BlockInfo]("h/block")
)

// contractPrefix is the namespace of a contract's own state
func contractPrefix(addr types.Address) ([]byte, error) {
	return storage.Prefix(storage.Str("c"), addr.Bytes())
}

// deriveAddress builds a deterministic contract address from the creator,
// label and a global sequence number
func deriveAddress(prefix string, creator types.Address, label string, seq uint64) types.Address {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], seq)
	buf := make([]byte, 0, len(creator)+len(label)+10)
	buf = append(buf, creator...)
	buf = append(buf, 0)
	buf = append(buf, label...)
	buf = append(buf, 0)
	buf = append(buf, n[:]...)
	sum := blake2b.Sum256(buf)
	return types.Address(prefix + hex.EncodeToString(sum[:20]))
}

func loadContract(s storage.KVStore, addr types.Address) (ContractInfo, error) {
	info, ok, err := contracts.MayLoad(s, addr.Bytes())
	if err != nil {
		return ContractInfo{}, err
	}
	if !ok {
		return ContractInfo{}, fmt.Errorf("%w: %s", ErrContractNotFound, addr)
	}
	return info, nil
}

// ListContracts returns every instantiated contract keyed by address
func listContracts(s storage.KVStore) (map[types.Address]ContractInfo, error) {
	out := make(map[types.Address]ContractInfo)
	err := contracts.Range(s, storage.RangeOptions{}, func(key []byte, v ContractInfo) (bool, error) {
		out[types.Address(key)] = v
		return false, nil
	})
	return out, err
}
