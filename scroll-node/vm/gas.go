package vm

import (
	"math"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// IntrinsicGas returns the gas charged before any code runs. Scroll launched with
// Istanbul calldata pricing and Shanghai init code metering.
func IntrinsicGas(data []byte, accessList gethtypes.AccessList, isCreate bool) (uint64, error) {
	gas := params.TxGas
	if isCreate {
		gas = params.TxGasContractCreation
	}

	if n := uint64(len(data)); n > 0 {
		var nonZero uint64
		for _, b := range data {
			if b != 0 {
				nonZero++
			}
		}
		zero := n - nonZero
		if (math.MaxUint64-gas)/params.TxDataNonZeroGasEIP2028 < nonZero {
			return 0, ErrGasUintOverflow
		}
		gas += nonZero * params.TxDataNonZeroGasEIP2028
		if (math.MaxUint64-gas)/params.TxDataZeroGas < zero {
			return 0, ErrGasUintOverflow
		}
		gas += zero * params.TxDataZeroGas

		if isCreate {
			words := (n + 31) / 32
			if (math.MaxUint64-gas)/params.InitCodeWordGas < words {
				return 0, ErrGasUintOverflow
			}
			gas += words * params.InitCodeWordGas
		}
	}

	if accessList != nil {
		gas += uint64(len(accessList)) * params.TxAccessListAddressGas
		gas += uint64(accessList.StorageKeys()) * params.TxAccessListStorageKeyGas
	}
	return gas, nil
}

// maxRefund caps the refund at a fifth of the gas used (EIP-3529).
func maxRefund(gasUsed uint64) uint64 {
	return gasUsed / params.RefundQuotientEIP3529
}
