package executor

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/scroll-tech/l2-executor/scroll-core/fees"
	"github.com/scroll-tech/l2-executor/scroll-core/state"
	"github.com/scroll-tech/l2-executor/scroll-core/types"
	"github.com/scroll-tech/l2-executor/scroll-node/metrics"
	"github.com/scroll-tech/l2-executor/scroll-node/rollup"
	"github.com/scroll-tech/l2-executor/scroll-node/vm"
	"github.com/scroll-tech/l2-executor/scroll-service/predeploys"
	"github.com/scroll-tech/l2-executor/scroll-service/testlog"
)

const (
	notCurieBlock        = 7096835
	curieTransitionBlock = 7096836
	curieBlock           = 7096837

	blockGasLimit = 10_000_000
	txGasLimit    = 21_000
)

var (
	chainID    = big.NewInt(534352)
	signer     = types.LatestSigner(chainID)
	testKey, _ = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testSender = crypto.PubkeyToAddress(testKey.PublicKey)
	zeroAddr   = common.Address{}
	gasPrice   = big.NewInt(256)
)

type oracleSlot struct {
	slot  common.Hash
	value uint64
}

var (
	preCurieOracle = []oracleSlot{
		{fees.L1BaseFeeSlot, 1000},
		{fees.OverheadSlot, 1000},
		{fees.ScalarSlot, 1000},
	}
	postCurieOracle = []oracleSlot{
		{fees.L1BlobBaseFeeSlot, 10000},
		{fees.OverheadSlot, 1000},
		{fees.ScalarSlot, 1000},
		{fees.CommitScalarSlot, 1000},
		{fees.BlobScalarSlot, 10000},
		{fees.IsCurieSlot, 1},
	}
)

func testState(oracle []oracleSlot) *state.State {
	db := state.NewMemoryDatabase()
	sender := state.NewAccountInfo()
	sender.Balance = new(uint256.Int).SetAllOne()
	db.InsertAccount(testSender, sender)
	db.InsertAccount(predeploys.L1GasPriceOracleAddr, state.NewAccountInfo())
	for _, s := range oracle {
		db.InsertStorage(predeploys.L1GasPriceOracleAddr, s.slot, uint256.NewInt(s.value))
	}
	return state.New(db)
}

func testExecutor(t *testing.T, number uint64, db state.StateDB) *BlockExecutor {
	ctx := ExecutionContext{
		Number:     number,
		GasLimit:   blockGasLimit,
		BaseFee:    new(uint256.Int),
		PrevRandao: common.Hash{0x01},
	}
	return NewBlockExecutor(testlog.Logger(t, log.LevelDebug), testSpec(), ctx, db, vm.NewEVMInterpreter(), metrics.NoopMetrics)
}

// testSpec is mainnet with a single STOP instruction as the Curie oracle runtime.
func testSpec() *rollup.ChainSpec {
	cfg := rollup.Mainnet()
	cfg.CurieOracleBytecode = []byte{0x00}
	return rollup.NewChainSpec(cfg)
}

func signedTx(t *testing.T, key *ecdsa.PrivateKey, txType uint8, nonce, gas uint64) *types.Transaction {
	var inner types.TxData
	switch txType {
	case types.LegacyTxType:
		inner = &types.LegacyTx{Nonce: nonce, GasPrice: gasPrice, Gas: gas, To: &zeroAddr, Value: new(big.Int)}
	case types.AccessListTxType:
		inner = &types.AccessListTx{ChainID: chainID, Nonce: nonce, GasPrice: gasPrice, Gas: gas, To: &zeroAddr, Value: new(big.Int)}
	case types.DynamicFeeTxType:
		inner = &types.DynamicFeeTx{ChainID: chainID, Nonce: nonce, GasTipCap: gasPrice, GasFeeCap: gasPrice, Gas: gas, To: &zeroAddr, Value: new(big.Int)}
	case types.L1MessageTxType:
		return types.NewTx(&types.L1MessageTx{QueueIndex: nonce, Gas: gas, To: &zeroAddr, Value: new(big.Int), Sender: testSender})
	default:
		t.Fatalf("unexpected tx type %d", txType)
	}
	tx, err := types.SignTx(inner, signer, key)
	require.NoError(t, err)
	return tx
}

func TestExecuteTransactionPostCurie(t *testing.T) {
	tests := []struct {
		name   string
		txType uint8
		l1Fee  *uint256.Int
	}{
		{"legacy", types.LegacyTxType, uint256.NewInt(10)},
		{"eip2930", types.AccessListTxType, uint256.NewInt(10)},
		{"eip1559", types.DynamicFeeTxType, uint256.NewInt(10)},
		{"l1message", types.L1MessageTxType, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := testExecutor(t, curieBlock, testState(postCurieOracle))
			require.NoError(t, e.ApplyPreExecutionChanges())

			gasUsed, err := e.ExecuteTransaction(signedTx(t, testKey, test.txType, 0, txGasLimit), testSender)
			require.NoError(t, err)
			require.Equal(t, uint64(txGasLimit), gasUsed)

			result, err := e.Finish()
			require.NoError(t, err)
			require.Equal(t, uint64(txGasLimit), result.GasUsed)
			require.Empty(t, result.Requests)
			require.Len(t, result.Receipts, 1)

			receipt := result.Receipts[0]
			require.Equal(t, test.txType, receipt.Type)
			require.True(t, receipt.Success)
			require.Equal(t, uint64(txGasLimit), receipt.CumulativeGasUsed)
			require.Empty(t, receipt.Logs)
			require.Equal(t, test.l1Fee, receipt.L1Fee)
		})
	}
}

func TestExecuteTransactionPreCurie(t *testing.T) {
	e := testExecutor(t, notCurieBlock, testState(preCurieOracle))
	require.NoError(t, e.ApplyPreExecutionChanges())

	_, err := e.ExecuteTransaction(signedTx(t, testKey, types.LegacyTxType, 0, txGasLimit), testSender)
	require.NoError(t, err)

	for _, test := range []struct {
		txType uint8
		err    error
	}{
		{types.AccessListTxType, ErrEip2930NotSupported},
		{types.DynamicFeeTxType, ErrEip1559NotSupported},
	} {
		tx := signedTx(t, testKey, test.txType, 1, txGasLimit)
		_, err := e.ExecuteTransaction(tx, testSender)
		require.ErrorIs(t, err, test.err)
		require.ErrorContains(t, err, test.err.Error())
		var invalid *InvalidTxError
		require.ErrorAs(t, err, &invalid)
		require.Equal(t, tx.Hash(), invalid.Hash)
	}

	result, err := e.Finish()
	require.NoError(t, err)
	require.Len(t, result.Receipts, 1, "rejected transactions leave no receipt")
	require.Equal(t, uint64(2), result.Receipts[0].L1Fee.Uint64())
}

func TestExecuteTransactionExceedsBlockGas(t *testing.T) {
	s := testState(postCurieOracle)
	e := testExecutor(t, curieBlock, s)
	require.NoError(t, e.ApplyPreExecutionChanges())

	_, err := e.ExecuteTransaction(signedTx(t, testKey, types.LegacyTxType, 0, blockGasLimit+1), testSender)
	require.EqualError(t, err, "transaction gas limit 10000001 is more than blocks available gas 10000000")
	var gasErr *TxGasLimitMoreThanAvailableBlockGasError
	require.ErrorAs(t, err, &gasErr)
	require.Equal(t, uint64(blockGasLimit), gasErr.BlockAvailableGas)
	require.Zero(t, s.TakeBundle().Len(), "rejected transaction must not touch the state")

	// The available gas shrinks with every included transaction.
	_, err = e.ExecuteTransaction(signedTx(t, testKey, types.LegacyTxType, 0, txGasLimit), testSender)
	require.NoError(t, err)
	_, err = e.ExecuteTransaction(signedTx(t, testKey, types.LegacyTxType, 1, blockGasLimit), testSender)
	require.EqualError(t, err, "transaction gas limit 10000000 is more than blocks available gas 9979000")
}

func TestCurieTransitionBlock(t *testing.T) {
	s := testState(preCurieOracle)
	e := testExecutor(t, curieTransitionBlock, s)
	require.NoError(t, e.ApplyPreExecutionChanges())

	bundle := s.TakeBundle()
	require.Equal(t, 1, bundle.Len(), "only the oracle is migrated")
	oracle := bundle.Accounts[predeploys.L1GasPriceOracleAddr]
	require.NotNil(t, oracle)
	require.Equal(t, []byte{0x00}, oracle.Info.Code)
	require.Equal(t, common.HexToHash("0xbc36789e7a1e281436464229828f817d6612f7b477d66591ff96a9e064bcc98a"), oracle.Info.CodeHash)

	expected := map[common.Hash]uint64{
		common.HexToHash("0x05"): 1,
		common.HexToHash("0x06"): 230759955285,
		common.HexToHash("0x07"): 417565260,
		common.HexToHash("0x08"): 1,
	}
	require.Len(t, oracle.Storage, len(expected))
	for slot, value := range expected {
		change := oracle.Storage[slot]
		require.NotNil(t, change, "slot %s", slot)
		require.Equal(t, value, change.Present.Uint64(), "slot %s", slot)
	}
	// pre-Curie fields are left alone
	require.NotContains(t, oracle.Storage, fees.L1BaseFeeSlot)
}

func TestCurieTransitionBlockWithoutBytecode(t *testing.T) {
	s := testState(preCurieOracle)
	ctx := ExecutionContext{Number: curieTransitionBlock, GasLimit: blockGasLimit, BaseFee: new(uint256.Int)}
	e := NewBlockExecutor(testlog.Logger(t, log.LevelInfo), rollup.NewChainSpec(rollup.Mainnet()), ctx, s,
		vm.NewEVMInterpreter(), metrics.NoopMetrics)
	require.ErrorIs(t, e.ApplyPreExecutionChanges(), fees.ErrMissingCurieBytecode)
	require.Zero(t, s.TakeBundle().Len())
}

func TestNoMigrationOutsideTransitionBlock(t *testing.T) {
	for _, number := range []uint64{notCurieBlock, curieBlock} {
		s := testState(preCurieOracle)
		e := testExecutor(t, number, s)
		require.NoError(t, e.ApplyPreExecutionChanges())
		require.Zero(t, s.TakeBundle().Len(), "block %d", number)
	}
}

func TestExecutorState(t *testing.T) {
	e := testExecutor(t, curieBlock, testState(postCurieOracle))
	tx := signedTx(t, testKey, types.LegacyTxType, 0, txGasLimit)

	_, err := e.ExecuteTransaction(tx, testSender)
	require.ErrorIs(t, err, ErrExecutorState)
	_, err = e.Finish()
	require.ErrorIs(t, err, ErrExecutorState)

	require.NoError(t, e.ApplyPreExecutionChanges())
	require.ErrorIs(t, e.ApplyPreExecutionChanges(), ErrExecutorState)

	_, err = e.Finish()
	require.NoError(t, err)
	_, err = e.Finish()
	require.ErrorIs(t, err, ErrExecutorState)
	_, err = e.ExecuteTransaction(tx, testSender)
	require.ErrorIs(t, err, ErrExecutorState)
}

func TestInvalidTransactionAborts(t *testing.T) {
	e := testExecutor(t, curieBlock, testState(postCurieOracle))
	require.NoError(t, e.ApplyPreExecutionChanges())

	tx := signedTx(t, testKey, types.LegacyTxType, 5, txGasLimit)
	_, err := e.ExecuteTransaction(tx, testSender)
	require.ErrorIs(t, err, vm.ErrNonceTooHigh)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, tx.Hash(), execErr.Hash)
	require.Contains(t, err.Error(), "EVM reported invalid transaction")

	poorKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	_, err = e.ExecuteTransaction(signedTx(t, poorKey, types.LegacyTxType, 0, txGasLimit), crypto.PubkeyToAddress(poorKey.PublicKey))
	require.ErrorIs(t, err, vm.ErrInsufficientFunds)
}

func TestFailedTransactionIsIncluded(t *testing.T) {
	s := testState(postCurieOracle)
	e := testExecutor(t, curieBlock, s)
	require.NoError(t, e.ApplyPreExecutionChanges())

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	require.NoError(t, s.Commit(state.Diff{from: {Info: &state.AccountInfo{Balance: uint256.NewInt(10_000_000)}}}))

	// Enough to buy the gas but not to also transfer the value.
	tx, err := types.SignTx(&types.LegacyTx{
		GasPrice: gasPrice, Gas: txGasLimit, To: &zeroAddr, Value: big.NewInt(9_000_000),
	}, signer, key)
	require.NoError(t, err)

	gasUsed, err := e.ExecuteTransaction(tx, from)
	require.NoError(t, err)
	require.Equal(t, uint64(txGasLimit), gasUsed)

	result, err := e.Finish()
	require.NoError(t, err)
	require.False(t, result.Receipts[0].Success)
	require.Equal(t, uint64(10), result.Receipts[0].L1Fee.Uint64())

	account, err := s.LoadAccount(from)
	require.NoError(t, err)
	require.Equal(t, uint64(1), account.Nonce)
	require.Equal(t, uint64(10_000_000-txGasLimit*256-10), account.Balance.Uint64())
}

func TestContractCallExecutes(t *testing.T) {
	target := common.Address{0xc0}
	tests := []struct {
		name    string
		code    []byte
		gasUsed uint64
		storage map[common.Hash]uint64
	}{
		{"stop", []byte{0x00}, 21_000, nil},
		// PUSH1 42 PUSH1 0 SSTORE STOP
		{"sstore", []byte{0x60, 0x2a, 0x60, 0x00, 0x55, 0x00}, 21_000 + 6 + 2_100 + 20_000, map[common.Hash]uint64{{}: 42}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := testState(postCurieOracle)
			code := state.NewAccountInfo()
			code.SetCode(test.code)
			require.NoError(t, s.Commit(state.Diff{target: {Info: code}}))

			e := testExecutor(t, curieBlock, s)
			require.NoError(t, e.ApplyPreExecutionChanges())
			tx, err := types.SignTx(&types.LegacyTx{GasPrice: gasPrice, Gas: 50_000, To: &target, Value: new(big.Int)}, signer, testKey)
			require.NoError(t, err)

			gasUsed, err := e.ExecuteTransaction(tx, testSender)
			require.NoError(t, err)
			require.Equal(t, test.gasUsed, gasUsed)

			result, err := e.Finish()
			require.NoError(t, err)
			require.True(t, result.Receipts[0].Success)
			require.Equal(t, test.gasUsed, result.Receipts[0].CumulativeGasUsed)
			for key, want := range test.storage {
				got, err := s.GetStorage(target, key)
				require.NoError(t, err)
				require.Equal(t, want, got.Uint64())
			}
		})
	}
}

func TestFeesPaidToVault(t *testing.T) {
	s := testState(postCurieOracle)
	e := testExecutor(t, curieBlock, s)
	require.Equal(t, predeploys.L2TxFeeVaultAddr, e.Env().Block.Beneficiary)
	require.NoError(t, e.ApplyPreExecutionChanges())

	_, err := e.ExecuteTransaction(signedTx(t, testKey, types.LegacyTxType, 0, txGasLimit), testSender)
	require.NoError(t, err)

	vault, err := s.LoadAccount(predeploys.L2TxFeeVaultAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(txGasLimit*256+10), vault.Balance.Uint64())
}

func TestExecuteBlock(t *testing.T) {
	txs := []*types.Transaction{
		signedTx(t, testKey, types.L1MessageTxType, 0, txGasLimit),
		signedTx(t, testKey, types.LegacyTxType, 1, txGasLimit),
		signedTx(t, testKey, types.DynamicFeeTxType, 2, txGasLimit),
	}
	senders := []common.Address{testSender, testSender, testSender}

	s := testState(postCurieOracle)
	e := testExecutor(t, curieBlock, s)
	block := types.NewBlock(e.ctx.header(), txs)

	_, err := e.ExecuteBlock(block, senders[:2])
	require.ErrorIs(t, err, ErrSendersMismatch)

	result, err := e.ExecuteBlock(block, senders)
	require.NoError(t, err)
	require.Equal(t, uint64(3*txGasLimit), result.GasUsed)
	var prev uint64
	for i, r := range result.Receipts {
		require.Equal(t, prev+txGasLimit, r.CumulativeGasUsed, "receipt %d", i)
		prev = r.CumulativeGasUsed
	}
	require.Equal(t, result.GasUsed, prev)
	require.Nil(t, result.Receipts[0].L1Fee)
}

func TestExecuteBlockStopsAtInvalidTransaction(t *testing.T) {
	txs := []*types.Transaction{
		signedTx(t, testKey, types.LegacyTxType, 0, txGasLimit),
		signedTx(t, testKey, types.AccessListTxType, 1, txGasLimit),
	}
	e := testExecutor(t, notCurieBlock, testState(preCurieOracle))
	_, err := e.ExecuteBlock(types.NewBlock(e.ctx.header(), txs), []common.Address{testSender, testSender})
	require.ErrorIs(t, err, ErrEip2930NotSupported)
	require.ErrorContains(t, err, "failed to apply transaction 1")
}

func TestExecutorMetrics(t *testing.T) {
	m := metrics.NewMetrics("test")
	ctx := ExecutionContext{Number: curieTransitionBlock, GasLimit: blockGasLimit}
	e := NewBlockExecutor(testlog.Logger(t, log.LevelInfo), testSpec(), ctx,
		testState(preCurieOracle), vm.NewEVMInterpreter(), m)
	require.NoError(t, e.ApplyPreExecutionChanges())
	_, err := e.ExecuteTransaction(signedTx(t, testKey, types.LegacyTxType, 0, blockGasLimit+1), testSender)
	require.Error(t, err)
	_, err = e.Finish()
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, f := range families {
		seen[f.GetName()] = true
	}
	require.True(t, seen["scroll_node_test_curie_migrations_total"])
	require.True(t, seen["scroll_node_test_txs_rejected_total"])
	require.True(t, seen["scroll_node_test_blocks_executed_total"])
}

func TestExecutionErrorsUnwrap(t *testing.T) {
	inner := errors.New("boom")
	require.ErrorIs(t, &ExecutionError{Err: inner}, inner)
	require.ErrorIs(t, &InvalidTxError{Err: inner}, inner)
}
