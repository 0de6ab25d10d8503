package fees

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-service/predeploys"
)

// ErrMissingCurieBytecode is returned when the Curie block is reached without the oracle runtime
// of the chain configured.
var ErrMissingCurieBytecode = errors.New("curie L1GasPriceOracle bytecode is not configured")

// Initial values of the oracle fields introduced by Curie.
var (
	InitialL1BlobBaseFee = uint256.NewInt(1)
	InitialCommitScalar  = uint256.NewInt(230759955285)
	InitialBlobScalar    = uint256.NewInt(417565260)
)

// StorageSlot is a storage write performed by a migration.
type StorageSlot struct {
	Slot  common.Hash
	Value *uint256.Int
}

// CurieStorage returns the oracle storage written at the Curie block, in write order.
func CurieStorage() []StorageSlot {
	return []StorageSlot{
		{L1BlobBaseFeeSlot, InitialL1BlobBaseFee.Clone()},
		{CommitScalarSlot, InitialCommitScalar.Clone()},
		{BlobScalarSlot, InitialBlobScalar.Clone()},
		{IsCurieSlot, uint256.NewInt(1)},
	}
}

// MigrationWriter is the part of the state the Curie migration writes to.
type MigrationWriter interface {
	SetCode(addr common.Address, code []byte) error
	SetStorage(addr common.Address, slot common.Hash, value *uint256.Int) error
}

// ApplyCurieHardFork upgrades the L1GasPriceOracle to the given runtime code and writes the blob fee
// parameters. It must run exactly once, before the first transaction of the Curie activation block.
func ApplyCurieHardFork(db MigrationWriter, code []byte) error {
	if len(code) == 0 {
		return ErrMissingCurieBytecode
	}
	if err := db.SetCode(predeploys.L1GasPriceOracleAddr, code); err != nil {
		return fmt.Errorf("set oracle code: %w", err)
	}
	for _, s := range CurieStorage() {
		if err := db.SetStorage(predeploys.L1GasPriceOracleAddr, s.Slot, s.Value); err != nil {
			return fmt.Errorf("set oracle slot %s: %w", s.Slot, err)
		}
	}
	return nil
}
