package fees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-service/predeploys"
)

// Storage slots of the L1GasPriceOracle predeploy.
var (
	L1BaseFeeSlot     = common.BigToHash(common.Big1)
	OverheadSlot      = common.BigToHash(common.Big2)
	ScalarSlot        = common.BigToHash(common.Big3)
	L1BlobBaseFeeSlot = common.HexToHash("0x05")
	CommitScalarSlot  = common.HexToHash("0x06")
	BlobScalarSlot    = common.HexToHash("0x07")
	IsCurieSlot       = common.HexToHash("0x08")
)

// StorageReader reads contract storage. state.StateDB satisfies it.
type StorageReader interface {
	GetStorage(addr common.Address, slot common.Hash) (*uint256.Int, error)
}

// GasOracle is a snapshot of the L1GasPriceOracle fee parameters.
type GasOracle struct {
	L1BaseFee     *uint256.Int
	Overhead      *uint256.Int
	Scalar        *uint256.Int
	L1BlobBaseFee *uint256.Int
	CommitScalar  *uint256.Int
	BlobScalar    *uint256.Int
}

// ReadGasOracle loads the fee parameters from the oracle storage.
func ReadGasOracle(db StorageReader) (*GasOracle, error) {
	var (
		o     GasOracle
		slots = []struct {
			slot common.Hash
			dst  **uint256.Int
		}{
			{L1BaseFeeSlot, &o.L1BaseFee},
			{OverheadSlot, &o.Overhead},
			{ScalarSlot, &o.Scalar},
			{L1BlobBaseFeeSlot, &o.L1BlobBaseFee},
			{CommitScalarSlot, &o.CommitScalar},
			{BlobScalarSlot, &o.BlobScalar},
		}
	)
	for _, s := range slots {
		v, err := db.GetStorage(predeploys.L1GasPriceOracleAddr, s.slot)
		if err != nil {
			return nil, fmt.Errorf("read l1 gas price oracle slot %s: %w", s.slot, err)
		}
		*s.dst = v
	}
	return &o, nil
}
