package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-core/state"
	"github.com/scroll-tech/l2-executor/scroll-core/types"
)

// TxConfig tunes the validity checks of a single transaction.
type TxConfig struct {
	DisableBaseFeeCheck bool
	DisableNonceCheck   bool
}

// Message is a transaction prepared for execution.
type Message struct {
	From       common.Address
	To         *common.Address
	Nonce      uint64
	Gas        uint64
	GasPrice   *uint256.Int
	GasFeeCap  *uint256.Int
	GasTipCap  *uint256.Int
	Value      *uint256.Int
	Data       []byte
	AccessList gethtypes.AccessList

	// L1Fee is charged to the sender and paid to the beneficiary on top of the gas fee.
	L1Fee *uint256.Int
}

// NewMessage prepares tx, sent by from, for execution.
func NewMessage(tx *types.Transaction, from common.Address, l1Fee *uint256.Int) (*Message, error) {
	msg := &Message{
		From:       from,
		To:         tx.To(),
		Nonce:      tx.Nonce(),
		Gas:        tx.Gas(),
		Data:       tx.Data(),
		AccessList: tx.AccessList(),
		L1Fee:      new(uint256.Int),
	}
	var overflow bool
	if msg.GasPrice, overflow = uint256.FromBig(tx.GasPrice()); overflow {
		return nil, fmt.Errorf("gas price of tx %s overflows", tx.Hash())
	}
	if msg.GasFeeCap, overflow = uint256.FromBig(tx.GasFeeCap()); overflow {
		return nil, fmt.Errorf("fee cap of tx %s overflows", tx.Hash())
	}
	if msg.GasTipCap, overflow = uint256.FromBig(tx.GasTipCap()); overflow {
		return nil, fmt.Errorf("tip cap of tx %s overflows", tx.Hash())
	}
	if msg.Value, overflow = uint256.FromBig(tx.Value()); overflow {
		return nil, fmt.Errorf("value of tx %s overflows", tx.Hash())
	}
	if l1Fee != nil {
		msg.L1Fee.Set(l1Fee)
	}
	return msg, nil
}

// Result is the outcome of an included transaction.
type Result struct {
	Success bool
	GasUsed uint64
	// GasRefunded is the refund that was applied to GasUsed.
	GasRefunded     uint64
	Output          []byte
	Logs            []*gethtypes.Log
	ContractAddress *common.Address
	// Err describes why the execution failed, nil on success.
	Err error
}

// Transition executes transactions on top of a StateDB without writing to it.
type Transition struct {
	env         *EvmEnv
	db          state.StateDB
	interpreter Interpreter
}

func NewTransition(env *EvmEnv, db state.StateDB, interpreter Interpreter) *Transition {
	return &Transition{env: env, db: db, interpreter: interpreter}
}

func (t *Transition) Env() *EvmEnv { return t.env }

// Transact executes msg and returns the result with the state changes it caused.
// An error means the transaction is invalid and must not be included.
func (t *Transition) Transact(msg *Message, cfg TxConfig) (*Result, state.Diff, error) {
	j := newJournal(t.db)
	result, err := t.transact(j, msg, cfg)
	if j.err != nil {
		return nil, nil, fmt.Errorf("state access failed: %w", j.err)
	}
	if err != nil {
		return nil, nil, err
	}
	return result, j.diff(), nil
}

func (t *Transition) effectiveGasPrice(msg *Message) *uint256.Int {
	baseFee := t.env.Block.BaseFee
	if baseFee == nil || msg.GasFeeCap.Eq(msg.GasTipCap) {
		return msg.GasPrice.Clone()
	}
	price := new(uint256.Int).Add(msg.GasTipCap, baseFee)
	if price.Gt(msg.GasFeeCap) {
		price.Set(msg.GasFeeCap)
	}
	return price
}

func (t *Transition) preCheck(j *journal, msg *Message, cfg TxConfig) error {
	if !cfg.DisableNonceCheck {
		stateNonce := j.GetNonce(msg.From)
		switch {
		case msg.Nonce < stateNonce:
			return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooLow, msg.From, msg.Nonce, stateNonce)
		case msg.Nonce > stateNonce:
			return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooHigh, msg.From, msg.Nonce, stateNonce)
		case stateNonce == math.MaxUint64:
			return fmt.Errorf("%w: address %s, nonce: %d", ErrNonceMax, msg.From, stateNonce)
		}
	}
	if !cfg.DisableBaseFeeCheck && t.env.Block.BaseFee != nil {
		if msg.GasFeeCap.Lt(msg.GasTipCap) {
			return fmt.Errorf("%w: address %s, maxPriorityFeePerGas: %s, maxFeePerGas: %s", ErrTipAboveFeeCap,
				msg.From, msg.GasTipCap, msg.GasFeeCap)
		}
		if msg.GasFeeCap.Lt(t.env.Block.BaseFee) {
			return fmt.Errorf("%w: address %s, maxFeePerGas: %s, baseFee: %s", ErrFeeCapTooLow,
				msg.From, msg.GasFeeCap, t.env.Block.BaseFee)
		}
	}
	if msg.To == nil && len(msg.Data) > params.MaxInitCodeSize {
		return fmt.Errorf("%w: code size %d limit %d", ErrMaxInitCodeSizeExceeded, len(msg.Data), params.MaxInitCodeSize)
	}
	return nil
}

// buyGas charges the sender for the full gas limit at the effective price plus the L1 fee.
// The balance must cover the gas limit at the fee cap.
func (t *Transition) buyGas(j *journal, msg *Message, price *uint256.Int) error {
	gas := uint256.NewInt(msg.Gas)
	required, overflow := new(uint256.Int).MulOverflow(gas, msg.GasFeeCap)
	if !overflow {
		_, overflow = required.AddOverflow(required, msg.L1Fee)
	}
	if overflow {
		return fmt.Errorf("%w: address %s", ErrInsufficientFunds, msg.From)
	}
	if have := j.GetBalance(msg.From); have.Lt(required) {
		return fmt.Errorf("%w: address %s have %s want %s", ErrInsufficientFunds, msg.From, have, required)
	}
	cost := new(uint256.Int).Mul(gas, price)
	cost.Add(cost, msg.L1Fee)
	j.subBalance(msg.From, cost)
	return nil
}

func (t *Transition) transact(j *journal, msg *Message, cfg TxConfig) (*Result, error) {
	if err := t.preCheck(j, msg, cfg); err != nil {
		return nil, err
	}
	price := t.effectiveGasPrice(msg)
	if err := t.buyGas(j, msg, price); err != nil {
		return nil, err
	}
	isCreate := msg.To == nil
	intrinsic, err := IntrinsicGas(msg.Data, msg.AccessList, isCreate)
	if err != nil {
		return nil, err
	}
	if msg.Gas < intrinsic {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, msg.Gas, intrinsic)
	}
	gas := msg.Gas - intrinsic

	var (
		frame    RunResult
		execErr  error
		contract *common.Address
		nonce    = j.GetNonce(msg.From)
	)
	if isCreate {
		addr := crypto.CreateAddress(msg.From, nonce)
		contract = &addr
		j.setNonce(msg.From, nonce+1)
		frame, execErr, err = t.create(j, msg, addr, gas)
	} else {
		j.setNonce(msg.From, nonce+1)
		frame, execErr, err = t.call(j, msg, gas)
	}
	if err != nil {
		return nil, err
	}

	gasLeft := frame.GasLeft
	refund := min(frame.GasRefund, maxRefund(msg.Gas-gasLeft))
	gasLeft += refund
	gasUsed := msg.Gas - gasLeft

	if gasLeft > 0 {
		remaining := new(uint256.Int).Mul(uint256.NewInt(gasLeft), price)
		j.addBalance(msg.From, remaining)
	}
	fee := new(uint256.Int).Mul(uint256.NewInt(gasUsed), price)
	fee.Add(fee, msg.L1Fee)
	j.addBalance(t.env.Block.Beneficiary, fee)

	result := &Result{
		Success:     execErr == nil,
		GasUsed:     gasUsed,
		GasRefunded: refund,
		Output:      frame.Output,
		Err:         execErr,
	}
	if execErr == nil {
		result.Logs = j.logs
		result.ContractAddress = contract
	}
	return result, nil
}

func (t *Transition) params(j *journal, msg *Message, kind CallKind, recipient common.Address, gas uint64) Params {
	return Params{
		Env:       t.env,
		Context:   j,
		Kind:      kind,
		Origin:    msg.From,
		GasPrice:  t.effectiveGasPrice(msg),
		Sender:    msg.From,
		Recipient: recipient,
		Value:     msg.Value,
		Gas:       gas,

		AccessList: msg.AccessList,
	}
}

// transfer moves the message value, reporting false if the sender cannot afford it.
func transfer(j *journal, from, to common.Address, value *uint256.Int) bool {
	if value.IsZero() {
		j.touch(to)
		return true
	}
	if j.GetBalance(from).Lt(value) {
		return false
	}
	j.subBalance(from, value)
	j.addBalance(to, value)
	return true
}

// call runs a message call. Only interpreter failures are returned as err.
func (t *Transition) call(j *journal, msg *Message, gas uint64) (frame RunResult, execErr, err error) {
	to := *msg.To
	snap := j.snapshot()
	if !transfer(j, msg.From, to, msg.Value) {
		j.revertTo(snap)
		return RunResult{GasLeft: gas}, ErrInsufficientBalance, nil
	}
	code := j.GetCode(to)
	if len(code) == 0 && !IsPrecompile(to) {
		return RunResult{Success: true, GasLeft: gas}, nil, nil
	}

	p := t.params(j, msg, Call, to, gas)
	p.Input = msg.Data
	p.Code = code
	p.CodeHash = j.GetCodeHash(to)
	frame, err = t.interpreter.Run(p)
	if err != nil {
		return RunResult{}, nil, fmt.Errorf("interpreter failed: %w", err)
	}
	if !frame.Success {
		j.revertTo(snap)
		frame.GasRefund = 0
		return frame, ErrExecutionReverted, nil
	}
	return frame, nil, nil
}

// create deploys a contract at addr. Only interpreter failures are returned as err.
func (t *Transition) create(j *journal, msg *Message, addr common.Address, gas uint64) (frame RunResult, execErr, err error) {
	if j.GetNonce(addr) != 0 || (j.exists(addr) && len(j.GetCode(addr)) > 0) {
		return RunResult{}, ErrContractAddressCollision, nil
	}
	snap := j.snapshot()
	j.create(addr)
	j.setNonce(addr, 1)
	if !transfer(j, msg.From, addr, msg.Value) {
		j.revertTo(snap)
		return RunResult{GasLeft: gas}, ErrInsufficientBalance, nil
	}
	if len(msg.Data) == 0 {
		return RunResult{Success: true, GasLeft: gas}, nil, nil
	}

	p := t.params(j, msg, Create, addr, gas)
	p.Code = msg.Data
	p.CodeHash = crypto.Keccak256Hash(msg.Data)
	frame, err = t.interpreter.Run(p)
	if err != nil {
		return RunResult{}, nil, fmt.Errorf("interpreter failed: %w", err)
	}
	if !frame.Success {
		j.revertTo(snap)
		frame.GasRefund = 0
		return frame, ErrExecutionReverted, nil
	}

	code := frame.Output
	switch {
	case len(code) > params.MaxCodeSize:
		execErr = ErrMaxCodeSizeExceeded
	case len(code) > 0 && code[0] == 0xEF:
		execErr = ErrInvalidCode
	case frame.GasLeft < uint64(len(code))*params.CreateDataGas:
		execErr = ErrCodeStoreOutOfGas
	}
	if execErr != nil {
		j.revertTo(snap)
		return RunResult{}, execErr, nil
	}
	frame.GasLeft -= uint64(len(code)) * params.CreateDataGas
	j.setCode(addr, code)
	frame.Output = nil
	return frame, nil, nil
}

// IsValidityError reports whether err rejects the transaction rather than failing it.
func IsValidityError(err error) bool {
	for _, target := range []error{
		ErrNonceTooLow, ErrNonceTooHigh, ErrNonceMax, ErrInsufficientFunds, ErrGasUintOverflow,
		ErrIntrinsicGas, ErrFeeCapTooLow, ErrTipAboveFeeCap, ErrMaxInitCodeSizeExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
