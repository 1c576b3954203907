package host

import (
	"errors"
	"fmt"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/common"
	"github.com/daodao/core/pkg/types"
)

// Migration errors
var (
	ErrMigrationIncorrectContract = errors.New("can only migrate from the same contract")
	ErrMigrationInvalidVersion    = errors.New("can only migrate to a newer version")
)

var contractVersion = storage.NewItem[types.ContractVersion]("contract_info")

// SetContractVersion records the contract name and version in its store
func SetContractVersion(s storage.KVStore, name, version string) error {
	return contractVersion.Save(s, types.ContractVersion{Contract: name, Version: version})
}

// GetContractVersion loads the recorded name and version
func GetContractVersion(s storage.KVStore) (types.ContractVersion, error) {
	return contractVersion.Load(s)
}

// MigrateVersion checks that the stored contract is name and strictly older
// than version, then records version
func MigrateVersion(s storage.KVStore, name, version string) error {
	cur, err := GetContractVersion(s)
	if err != nil {
		return err
	}
	if cur.Contract != name {
		return fmt.Errorf("%w: expected %s, actual %s", ErrMigrationIncorrectContract, name, cur.Contract)
	}
	cmp, err := common.CompareVersions(version, cur.Version)
	if err != nil {
		return err
	}
	if cmp <= 0 {
		return fmt.Errorf("%w: new %s, current %s", ErrMigrationInvalidVersion, version, cur.Version)
	}
	return SetContractVersion(s, name, version)
}

// QueryInfo answers the info query every contract supports
func QueryInfo(s storage.KVStore) ([]byte, error) {
	v, err := GetContractVersion(s)
	if err != nil {
		return nil, err
	}
	return JSON(types.InfoResponse{Info: v})
}
