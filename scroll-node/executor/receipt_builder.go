package executor

import (
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-core/types"
	"github.com/scroll-tech/l2-executor/scroll-node/vm"
)

// ReceiptBuilderCtx is everything needed to build the receipt of an executed transaction.
type ReceiptBuilderCtx struct {
	Tx                *types.Transaction
	Result            *vm.Result
	CumulativeGasUsed uint64
	// L1Fee is ignored for L1 messages.
	L1Fee *uint256.Int
}

// BuildReceipt builds the receipt of an executed transaction. L1 messages get a plain receipt
// without an L1 fee.
func BuildReceipt(ctx ReceiptBuilderCtx) (*types.Receipt, error) {
	logs := ctx.Result.Logs
	if logs == nil {
		logs = []*gethtypes.Log{}
	}
	receipt := &types.Receipt{
		Type:              ctx.Tx.Type(),
		Success:           ctx.Result.Success,
		CumulativeGasUsed: ctx.CumulativeGasUsed,
		Logs:              logs,
		Bloom:             types.LogsBloom(logs),
	}
	switch ctx.Tx.Type() {
	case types.L1MessageTxType:
	case types.LegacyTxType, types.AccessListTxType, types.DynamicFeeTxType:
		receipt.L1Fee = new(uint256.Int)
		if ctx.L1Fee != nil {
			receipt.L1Fee.Set(ctx.L1Fee)
		}
	default:
		return nil, fmt.Errorf("%w: cannot build receipt for type %d", types.ErrTxTypeNotSupported, ctx.Tx.Type())
	}
	return receipt, nil
}
