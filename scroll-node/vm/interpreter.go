package vm

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

// CallKind distinguishes message calls from contract creations.
type CallKind int

const (
	Call CallKind = iota
	Create
)

func (k CallKind) String() string {
	if k == Create {
		return "create"
	}
	return "call"
}

// RunContext is the world state view handed to an interpreter. Writes go to the journal of the
// running transaction and are discarded when the frame fails.
type RunContext interface {
	GetBalance(addr common.Address) *uint256.Int
	GetNonce(addr common.Address) uint64
	GetCode(addr common.Address) []byte
	GetCodeHash(addr common.Address) common.Hash
	GetStorage(addr common.Address, slot common.Hash) *uint256.Int
	SetStorage(addr common.Address, slot common.Hash, value *uint256.Int)
	AddLog(log *gethtypes.Log)

	// StateDB returns the same view as a go-ethereum StateDB.
	StateDB() gethvm.StateDB
}

// Params are the inputs of one top-level frame.
type Params struct {
	Env     *EvmEnv
	Context RunContext
	Kind    CallKind

	Origin    common.Address
	GasPrice  *uint256.Int
	Sender    common.Address
	Recipient common.Address
	Input     []byte
	Value     *uint256.Int
	Gas       uint64

	Code     []byte
	CodeHash common.Hash

	// AccessList is warmed before the frame runs.
	AccessList gethtypes.AccessList
}

// RunResult is the outcome of a frame. Exceptional halts report Success false and no gas left;
// reverts report Success false with the remaining gas and the revert data as Output.
type RunResult struct {
	Success   bool
	Output    []byte
	GasLeft   uint64
	GasRefund uint64
}

// Interpreter runs contract code. A returned error means the interpreter itself failed and the
// block cannot be executed; failures of the code are reported through RunResult.
type Interpreter interface {
	Run(params Params) (RunResult, error)
}
