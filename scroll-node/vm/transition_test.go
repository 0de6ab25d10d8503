package vm

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/scroll-tech/l2-executor/scroll-core/forks"
	"github.com/scroll-tech/l2-executor/scroll-core/state"
)

var (
	sender   = common.Address{0x5e}
	bob      = common.Address{0xb0}
	coinbase = common.Address{0xc0}
	contract = common.Address{0xcc}
)

func testEnv(baseFee *uint256.Int) *EvmEnv {
	return &EvmEnv{
		Cfg: CfgEnv{Spec: forks.SpecCurie, ChainID: 534352},
		Block: BlockEnv{
			Number:      1,
			Beneficiary: coinbase,
			Time:        1,
			Difficulty:  new(uint256.Int),
			GasLimit:    10_000_000,
			BaseFee:     baseFee,
		},
	}
}

func testState(balance uint64) *state.State {
	db := state.NewMemoryDatabase()
	db.InsertAccount(sender, &state.AccountInfo{Balance: uint256.NewInt(balance)})
	db.InsertAccount(contract, &state.AccountInfo{Balance: new(uint256.Int), Code: []byte{0x60, 0x01}})
	db.InsertStorage(contract, common.Hash{0x01}, uint256.NewInt(7))
	return state.New(db)
}

func legacyMsg(to *common.Address, gas, price, value uint64) *Message {
	p := uint256.NewInt(price)
	return &Message{
		From:      sender,
		To:        to,
		Gas:       gas,
		GasPrice:  p,
		GasFeeCap: p,
		GasTipCap: p,
		Value:     uint256.NewInt(value),
		L1Fee:     new(uint256.Int),
	}
}

func balanceOf(t *testing.T, diff state.Diff, addr common.Address) uint64 {
	acc, ok := diff[addr]
	require.True(t, ok, "account %s not in diff", addr)
	return acc.Info.Balance.Uint64()
}

func TestTransfer(t *testing.T) {
	db := testState(1_000_000_000)
	tr := NewTransition(testEnv(nil), db, NewEVMInterpreter())

	msg := legacyMsg(&bob, 30_000, 1, 100)
	msg.L1Fee = uint256.NewInt(5)
	result, diff, err := tr.Transact(msg, TxConfig{})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NoError(t, result.Err)
	require.Equal(t, params.TxGas, result.GasUsed)
	require.Nil(t, result.ContractAddress)

	require.Equal(t, uint64(1_000_000_000-21_000-5-100), balanceOf(t, diff, sender))
	require.Equal(t, uint64(1), diff[sender].Info.Nonce)
	require.Equal(t, uint64(100), balanceOf(t, diff, bob))
	require.Equal(t, uint64(21_000+5), balanceOf(t, diff, coinbase))
	require.True(t, diff[bob].Touched)

	before, err := db.LoadAccount(sender)
	require.NoError(t, err)
	require.Equal(t, uint64(0), before.Nonce, "transact does not write to the state")
}

func TestEffectiveGasPrice(t *testing.T) {
	tr := NewTransition(testEnv(uint256.NewInt(5)), testState(1_000_000_000), NewEVMInterpreter())
	msg := legacyMsg(&bob, 21_000, 10, 0)
	msg.GasTipCap = uint256.NewInt(2)

	result, diff, err := tr.Transact(msg, TxConfig{})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, uint64(21_000*7), balanceOf(t, diff, coinbase))
	require.Equal(t, uint64(1_000_000_000-21_000*7), balanceOf(t, diff, sender))
}

func TestValidityErrors(t *testing.T) {
	tests := []struct {
		name    string
		baseFee *uint256.Int
		msg     func(m *Message)
		cfg     TxConfig
		want    error
	}{
		{
			name: "nonce too high",
			msg:  func(m *Message) { m.Nonce = 1 },
			want: ErrNonceTooHigh,
		},
		{
			name: "nonce check disabled",
			msg:  func(m *Message) { m.Nonce = 1 },
			cfg:  TxConfig{DisableNonceCheck: true},
		},
		{
			name: "insufficient funds",
			msg:  func(m *Message) { m.L1Fee = uint256.NewInt(1_000_000_000) },
			want: ErrInsufficientFunds,
		},
		{
			name: "intrinsic gas",
			msg:  func(m *Message) { m.Gas = params.TxGas - 1 },
			want: ErrIntrinsicGas,
		},
		{
			name:    "fee cap below base fee",
			baseFee: uint256.NewInt(100),
			want:    ErrFeeCapTooLow,
		},
		{
			name:    "base fee check disabled",
			baseFee: uint256.NewInt(100),
			cfg:     TxConfig{DisableBaseFeeCheck: true},
		},
		{
			name: "tip above fee cap",
			msg: func(m *Message) {
				m.GasTipCap = uint256.NewInt(11)
			},
			baseFee: uint256.NewInt(1),
			want:    ErrTipAboveFeeCap,
		},
		{
			name: "init code too large",
			msg: func(m *Message) {
				m.To = nil
				m.Data = make([]byte, params.MaxInitCodeSize+1)
			},
			want: ErrMaxInitCodeSizeExceeded,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			db := testState(1_000_000)
			tr := NewTransition(testEnv(test.baseFee), db, NewEVMInterpreter())
			msg := legacyMsg(&bob, 21_000, 10, 0)
			if test.msg != nil {
				test.msg(msg)
			}
			result, diff, err := tr.Transact(msg, test.cfg)
			if test.want == nil {
				require.NoError(t, err)
				require.True(t, result.Success)
				return
			}
			require.ErrorIs(t, err, test.want)
			require.True(t, IsValidityError(err))
			require.Nil(t, result)
			require.Nil(t, diff)
		})
	}
}

func TestValueTransferFailureIsIncluded(t *testing.T) {
	tr := NewTransition(testEnv(nil), testState(1_000_000), NewEVMInterpreter())
	msg := legacyMsg(&bob, 30_000, 1, 2_000_000)

	result, diff, err := tr.Transact(msg, TxConfig{})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.ErrorIs(t, result.Err, ErrInsufficientBalance)
	require.Equal(t, params.TxGas, result.GasUsed)
	require.NotContains(t, diff, bob)
	require.Equal(t, uint64(1_000_000-21_000), balanceOf(t, diff, sender))
	require.Equal(t, uint64(1), diff[sender].Info.Nonce)
}

func TestContractCall(t *testing.T) {
	interp := new(MockInterpreter)
	tr := NewTransition(testEnv(nil), testState(1_000_000_000), interp)

	interp.ExpectRun(Call, &contract, RunResult{Success: true, GasLeft: 5_000, GasRefund: 100_000}, nil, func(p Params) {
		require.Equal(t, []byte{0x60, 0x01}, p.Code)
		require.Equal(t, uint64(100_000-21_000-16), p.Gas)
		require.Equal(t, uint64(7), p.Context.GetStorage(contract, common.Hash{0x01}).Uint64())
		p.Context.SetStorage(contract, common.Hash{0x02}, uint256.NewInt(9))
		p.Context.AddLog(&gethtypes.Log{Address: contract, Topics: []common.Hash{{0xaa}}})
	})

	msg := legacyMsg(&contract, 100_000, 1, 0)
	msg.Data = []byte{0x01}
	result, diff, err := tr.Transact(msg, TxConfig{})
	require.NoError(t, err)
	interp.AssertExpectations(t)

	require.True(t, result.Success)
	// 95_000 used before the refund, capped at a fifth
	require.Equal(t, uint64(19_000), result.GasRefunded)
	require.Equal(t, uint64(76_000), result.GasUsed)
	require.Len(t, result.Logs, 1)
	require.Equal(t, uint64(9), diff[contract].Storage[common.Hash{0x02}].Uint64())
	require.Equal(t, uint64(76_000), balanceOf(t, diff, coinbase))
}

func TestContractCallRevert(t *testing.T) {
	interp := new(MockInterpreter)
	tr := NewTransition(testEnv(nil), testState(1_000_000_000), interp)

	interp.ExpectRun(Call, &contract, RunResult{Success: false, GasLeft: 10_000, GasRefund: 5, Output: []byte{0xde, 0xad}}, nil, func(p Params) {
		p.Context.SetStorage(contract, common.Hash{0x02}, uint256.NewInt(9))
		p.Context.AddLog(&gethtypes.Log{Address: contract})
	})

	result, diff, err := tr.Transact(legacyMsg(&contract, 100_000, 1, 0), TxConfig{})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.ErrorIs(t, result.Err, ErrExecutionReverted)
	require.Equal(t, uint64(90_000), result.GasUsed)
	require.Equal(t, []byte{0xde, 0xad}, result.Output)
	require.Empty(t, result.Logs)
	if acc, ok := diff[contract]; ok {
		require.NotContains(t, acc.Storage, common.Hash{0x02})
	}
}

func TestInterpreterError(t *testing.T) {
	interp := new(MockInterpreter)
	boom := errors.New("boom")
	interp.ExpectRun(Call, nil, RunResult{}, boom, nil)
	tr := NewTransition(testEnv(nil), testState(1_000_000_000), interp)

	_, _, err := tr.Transact(legacyMsg(&contract, 100_000, 1, 0), TxConfig{})
	require.ErrorIs(t, err, boom)
	require.False(t, IsValidityError(err))
}

func TestCreate(t *testing.T) {
	initCode := []byte{0x60, 0x02, 0x60, 0x00}
	runtime := []byte{0x60, 0x00}
	created := crypto.CreateAddress(sender, 0)

	interp := new(MockInterpreter)
	interp.ExpectRun(Create, &created, RunResult{Success: true, GasLeft: 50_000, Output: runtime}, nil, func(p Params) {
		require.Equal(t, initCode, p.Code)
		require.Equal(t, uint64(1), p.Context.GetNonce(created))
	})
	tr := NewTransition(testEnv(nil), testState(1_000_000_000), interp)

	msg := legacyMsg(nil, 200_000, 1, 10)
	msg.Data = initCode
	result, diff, err := tr.Transact(msg, TxConfig{})
	require.NoError(t, err)
	interp.AssertExpectations(t)

	require.True(t, result.Success)
	require.Equal(t, &created, result.ContractAddress)
	require.Equal(t, uint64(200_000-50_000+400), result.GasUsed)
	acc := diff[created]
	require.True(t, acc.Created)
	require.Equal(t, runtime, acc.Info.Code)
	require.Equal(t, crypto.Keccak256Hash(runtime), acc.Info.CodeHash)
	require.Equal(t, uint64(1), acc.Info.Nonce)
	require.Equal(t, uint64(10), acc.Info.Balance.Uint64())
}

func TestCreateFailures(t *testing.T) {
	tests := []struct {
		name   string
		output []byte
		left   uint64
		want   error
	}{
		{"invalid code prefix", []byte{0xef, 0x00}, 50_000, ErrInvalidCode},
		{"code too large", make([]byte, params.MaxCodeSize+1), 10_000_000, ErrMaxCodeSizeExceeded},
		{"deposit out of gas", []byte{0x01, 0x02}, 399, ErrCodeStoreOutOfGas},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			interp := new(MockInterpreter)
			interp.ExpectRun(Create, nil, RunResult{Success: true, GasLeft: test.left, Output: test.output}, nil, nil)
			tr := NewTransition(testEnv(nil), testState(1_000_000_000), interp)

			msg := legacyMsg(nil, 200_000, 1, 0)
			msg.Data = []byte{0x01}
			result, diff, err := tr.Transact(msg, TxConfig{})
			require.NoError(t, err)
			require.False(t, result.Success)
			require.ErrorIs(t, result.Err, test.want)
			require.Equal(t, uint64(200_000), result.GasUsed)
			require.Nil(t, result.ContractAddress)
			require.NotContains(t, diff, crypto.CreateAddress(sender, 0))
			require.Equal(t, uint64(1), diff[sender].Info.Nonce)
		})
	}
}

func TestIntrinsicGas(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		al       gethtypes.AccessList
		isCreate bool
		want     uint64
	}{
		{"transfer", nil, nil, false, 21_000},
		{"calldata", []byte{0x00, 0x01}, nil, false, 21_000 + 4 + 16},
		{"create", nil, nil, true, 53_000},
		{"create with init code", make([]byte, 33), nil, true, 53_000 + 33*4 + 2*2},
		{
			"access list", nil,
			gethtypes.AccessList{{Address: bob, StorageKeys: []common.Hash{{}, {0x01}}}},
			false, 21_000 + 2_400 + 2*1_900,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gas, err := IntrinsicGas(test.data, test.al, test.isCreate)
			require.NoError(t, err)
			require.Equal(t, test.want, gas)
		})
	}
}

func TestIsPrecompile(t *testing.T) {
	require.True(t, IsPrecompile(common.BytesToAddress([]byte{0x01})))
	require.True(t, IsPrecompile(common.BytesToAddress([]byte{0x09})))
	require.False(t, IsPrecompile(common.BytesToAddress([]byte{0x0a})))
	require.False(t, IsPrecompile(common.Address{}))
	require.False(t, IsPrecompile(common.BytesToAddress([]byte{0x0b})))
	require.False(t, IsPrecompile(common.BytesToAddress([]byte{0x01, 0x01})))
}
