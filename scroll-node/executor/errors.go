package executor

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrExecutorState is returned when an executor method is called out of order.
	ErrExecutorState = errors.New("executor used out of order")

	ErrEip2930NotSupported = errors.New("Eip2930 is not supported")
	ErrEip1559NotSupported = errors.New("Eip1559 is not supported")
	ErrEip4844NotSupported = errors.New("Eip4844 is not supported")
	ErrEip7702NotSupported = errors.New("Eip7702 is not supported")

	ErrReceiptsMismatch = errors.New("receipts do not match transactions")
	ErrSendersMismatch  = errors.New("senders do not match transactions")
)

// TxGasLimitMoreThanAvailableBlockGasError rejects a transaction whose gas limit does not fit
// in what is left of the block gas limit.
type TxGasLimitMoreThanAvailableBlockGasError struct {
	TxGasLimit        uint64
	BlockAvailableGas uint64
}

func (e *TxGasLimitMoreThanAvailableBlockGasError) Error() string {
	return fmt.Sprintf("transaction gas limit %d is more than blocks available gas %d", e.TxGasLimit, e.BlockAvailableGas)
}

// InvalidTxError is a transaction that is not admitted into the block at all.
type InvalidTxError struct {
	Hash common.Hash
	Err  error
}

func (e *InvalidTxError) Error() string {
	return fmt.Sprintf("transaction %s is invalid: %v", e.Hash, e.Err)
}

func (e *InvalidTxError) Unwrap() error { return e.Err }

// ExecutionError is a transaction the EVM refused to include, such as one with a bad nonce or
// a sender that cannot pay for it.
type ExecutionError struct {
	Hash common.Hash
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("EVM reported invalid transaction (%s): %v", e.Hash, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
