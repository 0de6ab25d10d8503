package executor

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/scroll-tech/l2-executor/scroll-core/types"
)

// BlockAssemblerInput is the executed block to seal.
type BlockAssemblerInput struct {
	Context      ExecutionContext
	Transactions []*types.Transaction
	Result       *BlockExecutionResult
	StateRoot    common.Hash
	// Difficulty defaults to zero when nil.
	Difficulty *big.Int
}

// AssembleBlock builds the block header from the execution output and returns the block.
// Scroll blocks carry no ommers, withdrawals, blob gas, beacon root or requests.
func AssembleBlock(in BlockAssemblerInput) (*types.Block, error) {
	if in.Result == nil {
		return nil, fmt.Errorf("%w: no execution result", ErrReceiptsMismatch)
	}
	if len(in.Result.Receipts) != len(in.Transactions) {
		return nil, fmt.Errorf("%w: %d receipts, %d transactions", ErrReceiptsMismatch,
			len(in.Result.Receipts), len(in.Transactions))
	}
	difficulty := new(big.Int)
	if in.Difficulty != nil {
		difficulty.Set(in.Difficulty)
	}
	receipts := types.Receipts(in.Result.Receipts)
	header := &gethtypes.Header{
		ParentHash:  in.Context.ParentHash,
		UncleHash:   gethtypes.EmptyUncleHash,
		Coinbase:    in.Context.Beneficiary,
		Root:        in.StateRoot,
		TxHash:      types.DeriveTxRoot(in.Transactions),
		ReceiptHash: types.DeriveReceiptsRoot(in.Result.Receipts),
		Bloom:       receipts.Bloom(),
		Difficulty:  difficulty,
		Number:      new(big.Int).SetUint64(in.Context.Number),
		GasLimit:    in.Context.GasLimit,
		GasUsed:     in.Result.GasUsed,
		Time:        in.Context.Time,
		Extra:       []byte{},
		MixDigest:   in.Context.PrevRandao,
		Nonce:       gethtypes.EncodeNonce(0),
		BaseFee:     in.Context.baseFeeBig(),
	}
	return types.NewBlock(header, in.Transactions), nil
}
