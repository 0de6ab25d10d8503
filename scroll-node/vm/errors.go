package vm

import (
	"github.com/ethereum/go-ethereum/core"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
)

// Validity errors. A transaction failing one of these checks cannot be included in a block.
var (
	ErrNonceTooLow             = core.ErrNonceTooLow
	ErrNonceTooHigh            = core.ErrNonceTooHigh
	ErrNonceMax                = core.ErrNonceMax
	ErrInsufficientFunds       = core.ErrInsufficientFunds
	ErrGasUintOverflow         = core.ErrGasUintOverflow
	ErrIntrinsicGas            = core.ErrIntrinsicGas
	ErrFeeCapTooLow            = core.ErrFeeCapTooLow
	ErrTipAboveFeeCap          = core.ErrTipAboveFeeCap
	ErrMaxInitCodeSizeExceeded = core.ErrMaxInitCodeSizeExceeded
)

// Execution failures. The transaction is included with a failed receipt.
var (
	ErrInsufficientBalance      = gethvm.ErrInsufficientBalance
	ErrContractAddressCollision = gethvm.ErrContractAddressCollision
	ErrExecutionReverted        = gethvm.ErrExecutionReverted
	ErrMaxCodeSizeExceeded      = gethvm.ErrMaxCodeSizeExceeded
	ErrInvalidCode              = gethvm.ErrInvalidCode
	ErrCodeStoreOutOfGas        = gethvm.ErrCodeStoreOutOfGas
)
