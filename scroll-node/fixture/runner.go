package fixture

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/scroll-tech/l2-executor/scroll-core/state"
	"github.com/scroll-tech/l2-executor/scroll-core/types"
	"github.com/scroll-tech/l2-executor/scroll-node/engine"
	"github.com/scroll-tech/l2-executor/scroll-node/executor"
	"github.com/scroll-tech/l2-executor/scroll-node/rollup"
	"github.com/scroll-tech/l2-executor/scroll-node/vm"
	"github.com/scroll-tech/l2-executor/scroll-service/eth"
)

type ReceiptOutput struct {
	Type              hexutil.Uint64   `json:"type"`
	Status            hexutil.Uint64   `json:"status"`
	CumulativeGasUsed hexutil.Uint64   `json:"cumulativeGasUsed"`
	Logs              []*gethtypes.Log `json:"logs"`
	L1Fee             *hexutil.U256    `json:"l1Fee,omitempty"`
}

// BlockOutput is the result of executing one fixture block.
type BlockOutput struct {
	Number    hexutil.Uint64                  `json:"number"`
	Hash      common.Hash                     `json:"hash"`
	StateRoot common.Hash                     `json:"stateRoot"`
	GasUsed   hexutil.Uint64                  `json:"gasUsed"`
	Receipts  []ReceiptOutput                 `json:"receipts"`
	Payload   *eth.ExecutionPayloadEnvelopeV3 `json:"payload"`
}

// Runner executes fixture blocks.
type Runner struct {
	log         log.Logger
	spec        *rollup.ChainSpec
	interpreter vm.Interpreter
	metrics     executor.Metrics
}

func NewRunner(log log.Logger, spec *rollup.ChainSpec, interpreter vm.Interpreter, m executor.Metrics) *Runner {
	return &Runner{log: log, spec: spec, interpreter: interpreter, metrics: m}
}

// Run executes all blocks of f, at most parallel at a time, and returns their outputs in order.
// Each block runs against the fixture pre-state, never against the post-state of another block.
// The first failing block cancels the remaining ones.
func (r *Runner) Run(ctx context.Context, f *Fixture, parallel int) ([]*BlockOutput, error) {
	db := f.Database()
	outputs := make([]*BlockOutput, len(f.Blocks))

	tracker := rollup.NewForkTracker(r.spec)
	for i := range f.Blocks {
		tracker.Check(r.log, uint64(f.Blocks[i].Number), uint64(f.Blocks[i].Timestamp))
	}

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i := range f.Blocks {
		block := &f.Blocks[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// The caching layer is per block: it is not safe for concurrent use.
			out, err := r.ExecuteBlock(state.NewCachingDatabase(db), block)
			if err != nil {
				return fmt.Errorf("block %d: %w", uint64(block.Number), err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// ExecuteBlock executes block on top of db, then assembles and seals it.
func (r *Runner) ExecuteBlock(db state.IterableDatabase, block *Block) (*BlockOutput, error) {
	signer := types.LatestSigner(r.spec.ChainID())
	senders := make([]common.Address, len(block.Transactions))
	for i, tx := range block.Transactions {
		sender, err := types.Sender(signer, tx)
		if err != nil {
			return nil, fmt.Errorf("failed to recover sender of transaction %d: %w", i, err)
		}
		senders[i] = sender
	}

	ctx := block.Context()
	st := state.New(db)
	exec := executor.NewBlockExecutor(r.log, r.spec, ctx, st, r.interpreter, r.metrics)
	sealed := types.NewBlock(&gethtypes.Header{Number: new(big.Int).SetUint64(ctx.Number)}, block.Transactions)
	result, err := exec.ExecuteBlock(sealed, senders)
	if err != nil {
		return nil, err
	}

	root, err := st.StateRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to compute state root: %w", err)
	}
	assembled, err := executor.AssembleBlock(executor.BlockAssemblerInput{
		Context:      ctx,
		Transactions: block.Transactions,
		Result:       result,
		StateRoot:    root,
		Difficulty:   block.difficulty(),
	})
	if err != nil {
		return nil, err
	}
	envelope, err := engine.NewBuiltPayload(assembled, blockFees(assembled, result)).EnvelopeV3()
	if err != nil {
		return nil, err
	}

	out := &BlockOutput{
		Number:    hexutil.Uint64(ctx.Number),
		Hash:      assembled.Hash(),
		StateRoot: root,
		GasUsed:   hexutil.Uint64(result.GasUsed),
		Receipts:  make([]ReceiptOutput, len(result.Receipts)),
		Payload:   envelope,
	}
	for i, receipt := range result.Receipts {
		out.Receipts[i] = receiptOutput(receipt)
	}
	return out, nil
}

func receiptOutput(r *types.Receipt) ReceiptOutput {
	out := ReceiptOutput{
		Type:              hexutil.Uint64(r.Type),
		CumulativeGasUsed: hexutil.Uint64(r.CumulativeGasUsed),
		Logs:              r.Logs,
	}
	if r.Success {
		out.Status = 1
	}
	if r.L1Fee != nil {
		out.L1Fee = (*hexutil.U256)(r.L1Fee.Clone())
	}
	return out
}

// blockFees sums what the block pays to its beneficiary: the gas fees at the effective gas
// price plus the L1 fees.
func blockFees(block *types.Block, result *executor.BlockExecutionResult) *big.Int {
	fees := new(big.Int)
	var prev uint64
	for i, tx := range block.Transactions() {
		receipt := result.Receipts[i]
		gasUsed := receipt.CumulativeGasUsed - prev
		prev = receipt.CumulativeGasUsed

		fee := new(big.Int).SetUint64(gasUsed)
		fee.Mul(fee, tx.EffectiveGasPrice(block.Header.BaseFee))
		fees.Add(fees, fee)
		if receipt.L1Fee != nil {
			fees.Add(fees, receipt.L1Fee.ToBig())
		}
	}
	return fees
}
