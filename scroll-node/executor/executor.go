package executor

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-core/fees"
	"github.com/scroll-tech/l2-executor/scroll-core/state"
	"github.com/scroll-tech/l2-executor/scroll-core/types"
	"github.com/scroll-tech/l2-executor/scroll-node/rollup"
	"github.com/scroll-tech/l2-executor/scroll-node/vm"
	"github.com/scroll-tech/l2-executor/scroll-service/predeploys"
)

type Metrics interface {
	RecordBlockExecuted(txs int, gasUsed uint64, elapsed time.Duration)
	RecordTxExecuted(txType uint8, success bool, gasUsed uint64, l1Fee *uint256.Int)
	RecordTxRejected(reason string)
	RecordCurieMigration()
}

// ExecutionContext holds the block level inputs of an execution. It does not change while the
// block is executed.
type ExecutionContext struct {
	ParentHash  common.Hash
	Number      uint64
	Time        uint64
	GasLimit    uint64
	Beneficiary common.Address
	// BaseFee is nil when the block has no base fee.
	BaseFee    *uint256.Int
	PrevRandao common.Hash
}

// NewExecutionContext takes the execution inputs from the header of the block to execute.
func NewExecutionContext(header *gethtypes.Header) ExecutionContext {
	ctx := ExecutionContext{
		ParentHash:  header.ParentHash,
		Number:      header.Number.Uint64(),
		Time:        header.Time,
		GasLimit:    header.GasLimit,
		Beneficiary: header.Coinbase,
		PrevRandao:  header.MixDigest,
	}
	if header.BaseFee != nil {
		ctx.BaseFee = uint256.MustFromBig(header.BaseFee)
	}
	return ctx
}

func (c ExecutionContext) header() *gethtypes.Header {
	return &gethtypes.Header{
		ParentHash: c.ParentHash,
		Number:     new(big.Int).SetUint64(c.Number),
		Time:       c.Time,
		GasLimit:   c.GasLimit,
		Coinbase:   c.Beneficiary,
		MixDigest:  c.PrevRandao,
		Difficulty: new(big.Int),
		BaseFee:    c.baseFeeBig(),
	}
}

func (c ExecutionContext) baseFeeBig() *big.Int {
	if c.BaseFee == nil {
		return nil
	}
	return c.BaseFee.ToBig()
}

// BlockExecutionResult is the output of a fully executed block.
type BlockExecutionResult struct {
	Receipts []*types.Receipt
	GasUsed  uint64
	// Requests is always empty on Scroll.
	Requests [][]byte
}

type executorState uint8

const (
	stateCreated executorState = iota
	stateExecuting
	stateFinished
)

func (s executorState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateExecuting:
		return "executing"
	case stateFinished:
		return "finished"
	default:
		return fmt.Sprintf("executorState(%d)", uint8(s))
	}
}

// BlockExecutor executes the transactions of a single block on top of a StateDB.
//
// ApplyPreExecutionChanges must be called once before the first ExecuteTransaction, and Finish
// once after the last. An executor that returned an error must be discarded together with
// its StateDB.
type BlockExecutor struct {
	log     log.Logger
	spec    *rollup.ChainSpec
	ctx     ExecutionContext
	db      state.StateDB
	evm     *vm.Transition
	metrics Metrics

	state    executorState
	receipts []*types.Receipt
	gasUsed  uint64
	started  time.Time
}

func NewBlockExecutor(log log.Logger, spec *rollup.ChainSpec, ctx ExecutionContext, db state.StateDB, interpreter vm.Interpreter, m Metrics) *BlockExecutor {
	env := vm.NewEvmEnv(spec, ctx.header())
	return &BlockExecutor{
		log:     log.New("block", ctx.Number),
		spec:    spec,
		ctx:     ctx,
		db:      db,
		evm:     vm.NewTransition(env, db, interpreter),
		metrics: m,
	}
}

func (e *BlockExecutor) Env() *vm.EvmEnv {
	return e.evm.Env()
}

func (e *BlockExecutor) checkState(want executorState, op string) error {
	if e.state != want {
		return fmt.Errorf("%w: cannot %s in state %s", ErrExecutorState, op, e.state)
	}
	return nil
}

// ApplyPreExecutionChanges prepares the state for the first transaction of the block. At the
// Curie activation block it migrates the L1 gas price oracle.
func (e *BlockExecutor) ApplyPreExecutionChanges() error {
	if err := e.checkState(stateCreated, "apply pre-execution changes"); err != nil {
		return err
	}
	e.started = time.Now()

	e.db.SetStateClearFlag(e.spec.IsSpuriousDragon(e.ctx.Number))
	if _, err := e.db.LoadAccount(predeploys.L1GasPriceOracleAddr); err != nil {
		return fmt.Errorf("failed to load l1 gas price oracle: %w", err)
	}
	if e.spec.IsCurieTransitionBlock(e.ctx.Number) {
		if err := fees.ApplyCurieHardFork(e.db, e.spec.CurieOracleBytecode()); err != nil {
			return fmt.Errorf("error occurred at Curie fork: %w", err)
		}
		e.metrics.RecordCurieMigration()
		e.log.Info("Applied Curie hard fork", "oracle", predeploys.L1GasPriceOracleAddr)
	}

	e.state = stateExecuting
	e.log.Debug("Applied pre-execution changes", "spec", e.Env().Cfg.Spec, "time", e.ctx.Time)
	return nil
}

func (e *BlockExecutor) checkTxType(tx *types.Transaction) error {
	switch tx.Type() {
	case types.LegacyTxType, types.L1MessageTxType:
		return nil
	case types.AccessListTxType:
		if !e.spec.IsCurie(e.ctx.Number) {
			return ErrEip2930NotSupported
		}
		return nil
	case types.DynamicFeeTxType:
		if !e.spec.IsCurie(e.ctx.Number) {
			return ErrEip1559NotSupported
		}
		return nil
	case types.BlobTxType:
		return ErrEip4844NotSupported
	case types.SetCodeTxType:
		return ErrEip7702NotSupported
	default:
		return fmt.Errorf("%w: %d", types.ErrTxTypeNotSupported, tx.Type())
	}
}

// l1Fee returns the L1 data fee of tx, read from the oracle as it is before tx is committed.
// L1 messages pay no L1 fee and get nil.
func (e *BlockExecutor) l1Fee(tx *types.Transaction) (*uint256.Int, error) {
	if tx.IsL1Message() {
		return nil, nil
	}
	oracle, err := fees.ReadGasOracle(e.db)
	if err != nil {
		return nil, err
	}
	encoded, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return oracle.L1DataFee(e.Env().Cfg.Spec, encoded), nil
}

// ExecuteTransaction executes tx, sent by sender, and commits its state changes.
// It returns the gas used by tx. Transactions that fail inside the EVM are still included
// with a failed receipt; an error means tx cannot be part of the block.
func (e *BlockExecutor) ExecuteTransaction(tx *types.Transaction, sender common.Address) (uint64, error) {
	if err := e.checkState(stateExecuting, "execute transaction"); err != nil {
		return 0, err
	}

	available := e.ctx.GasLimit - e.gasUsed
	if tx.Gas() > available {
		e.metrics.RecordTxRejected("gas_limit")
		return 0, &TxGasLimitMoreThanAvailableBlockGasError{TxGasLimit: tx.Gas(), BlockAvailableGas: available}
	}
	if err := e.checkTxType(tx); err != nil {
		e.metrics.RecordTxRejected("tx_type")
		return 0, &InvalidTxError{Hash: tx.Hash(), Err: err}
	}

	cfg := vm.TxConfig{
		DisableBaseFeeCheck: tx.IsL1Message(),
		DisableNonceCheck:   tx.IsL1Message(),
	}
	l1Fee, err := e.l1Fee(tx)
	if err != nil {
		e.metrics.RecordTxRejected("l1_fee")
		return 0, &ExecutionError{Hash: tx.Hash(), Err: fmt.Errorf("failed to compute l1 fee: %w", err)}
	}
	msg, err := vm.NewMessage(tx, sender, l1Fee)
	if err != nil {
		e.metrics.RecordTxRejected("message")
		return 0, &ExecutionError{Hash: tx.Hash(), Err: err}
	}
	result, diff, err := e.evm.Transact(msg, cfg)
	if err != nil {
		reason := "execution"
		if vm.IsValidityError(err) {
			reason = "validity"
		}
		e.metrics.RecordTxRejected(reason)
		return 0, &ExecutionError{Hash: tx.Hash(), Err: err}
	}

	cumulative := e.gasUsed + result.GasUsed
	receipt, err := BuildReceipt(ReceiptBuilderCtx{
		Tx:                tx,
		Result:            result,
		CumulativeGasUsed: cumulative,
		L1Fee:             l1Fee,
	})
	if err != nil {
		return 0, err
	}
	if err := e.db.Commit(diff); err != nil {
		return 0, fmt.Errorf("failed to commit transaction %s: %w", tx.Hash(), err)
	}
	e.gasUsed = cumulative
	e.receipts = append(e.receipts, receipt)

	e.metrics.RecordTxExecuted(tx.Type(), result.Success, result.GasUsed, l1Fee)
	e.log.Debug("Executed transaction", "tx", tx.Hash(), "type", tx.Type(), "sender", sender,
		"success", result.Success, "gasUsed", result.GasUsed, "l1Fee", l1Fee, "err", result.Err)
	return result.GasUsed, nil
}

// Finish ends the block execution and returns its receipts. The executor cannot be used
// afterwards.
func (e *BlockExecutor) Finish() (*BlockExecutionResult, error) {
	if err := e.checkState(stateExecuting, "finish"); err != nil {
		return nil, err
	}
	e.state = stateFinished

	elapsed := time.Since(e.started)
	e.metrics.RecordBlockExecuted(len(e.receipts), e.gasUsed, elapsed)
	e.log.Info("Executed block", "txs", len(e.receipts), "gasUsed", e.gasUsed, "elapsed", elapsed)
	return &BlockExecutionResult{
		Receipts: e.receipts,
		GasUsed:  e.gasUsed,
		Requests: [][]byte{},
	}, nil
}

// ExecuteBlock runs the full execution of block, whose transactions were sent by senders.
func (e *BlockExecutor) ExecuteBlock(block *types.Block, senders []common.Address) (*BlockExecutionResult, error) {
	txs := block.Transactions()
	if len(txs) != len(senders) {
		return nil, fmt.Errorf("%w: %d transactions, %d senders", ErrSendersMismatch, len(txs), len(senders))
	}
	if block.NumberU64() != e.ctx.Number {
		return nil, fmt.Errorf("block %d does not match execution context of block %d", block.NumberU64(), e.ctx.Number)
	}
	if err := e.ApplyPreExecutionChanges(); err != nil {
		return nil, err
	}
	for i, tx := range txs {
		if _, err := e.ExecuteTransaction(tx, senders[i]); err != nil {
			return nil, fmt.Errorf("failed to apply transaction %d to block %d: %w", i, e.ctx.Number, err)
		}
	}
	return e.Finish()
}
