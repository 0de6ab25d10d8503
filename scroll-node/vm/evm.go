package vm

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"

	"github.com/scroll-tech/l2-executor/scroll-core/forks"
)

// EVMInterpreter runs contract code on the go-ethereum interpreter, configured with the
// Scroll rule set of the block. Nested calls and creations are handled by the interpreter;
// the top level frame is set up by Transition.
type EVMInterpreter struct{}

var _ Interpreter = (*EVMInterpreter)(nil)

func NewEVMInterpreter() *EVMInterpreter {
	return &EVMInterpreter{}
}

func (i *EVMInterpreter) Run(p Params) (RunResult, error) {
	statedb := p.Context.StateDB()
	precompiles := Precompiles(p.Env.Cfg.Spec)
	evm := gethvm.NewEVM(blockContext(p.Env), statedb, ChainConfig(p.Env.Cfg.ChainID), gethvm.Config{
		ExtraEips: extraEips(p.Env.Cfg.Spec),
	})
	evm.SetPrecompiles(precompiles)
	evm.SetTxContext(gethvm.TxContext{Origin: p.Origin, GasPrice: p.GasPrice.ToBig()})

	rules := evm.ChainConfig().Rules(evm.Context.BlockNumber, evm.Context.Random != nil, evm.Context.Time)
	dest := p.Recipient
	statedb.Prepare(rules, p.Origin, p.Env.Block.Beneficiary, &dest, PrecompileAddresses(), p.AccessList)

	var (
		ret     []byte
		gasLeft uint64
		err     error
	)
	if pc, ok := precompiles[p.Recipient]; ok && p.Kind == Call {
		ret, gasLeft, err = gethvm.RunPrecompiledContract(pc, p.Input, p.Gas, nil)
	} else {
		contract := gethvm.NewContract(p.Sender, p.Recipient, p.Value, p.Gas, nil)
		contract.IsDeployment = p.Kind == Create
		if contract.IsDeployment {
			contract.SetCallCode(common.Hash{}, p.Code)
		} else {
			contract.SetCallCode(p.CodeHash, p.Code)
		}
		ret, err = evm.Run(contract, p.Input, false)
		gasLeft = contract.Gas
	}

	switch {
	case err == nil:
		return RunResult{Success: true, Output: ret, GasLeft: gasLeft, GasRefund: statedb.GetRefund()}, nil
	case errors.Is(err, gethvm.ErrExecutionReverted):
		return RunResult{Output: ret, GasLeft: gasLeft}, nil
	default:
		return RunResult{}, nil
	}
}

// ChainConfig returns the go-ethereum configuration the interpreter runs with. Scroll launched
// with the Shanghai instruction set, so every fork up to Shanghai is active from genesis.
func ChainConfig(chainID uint64) *params.ChainConfig {
	zero := new(big.Int)
	shanghai := uint64(0)
	return &params.ChainConfig{
		ChainID:             new(big.Int).SetUint64(chainID),
		HomesteadBlock:      zero,
		EIP150Block:         zero,
		EIP155Block:         zero,
		EIP158Block:         zero,
		ByzantiumBlock:      zero,
		ConstantinopleBlock: zero,
		PetersburgBlock:     zero,
		IstanbulBlock:       zero,
		MuirGlacierBlock:    zero,
		BerlinBlock:         zero,
		LondonBlock:         zero,
		ShanghaiTime:        &shanghai,
	}
}

// extraEips enables the Cancun opcodes Scroll adopted at Curie: TLOAD/TSTORE and MCOPY.
func extraEips(spec forks.SpecID) []int {
	if spec.IsEnabledIn(forks.SpecCurie) {
		return []int{1153, 5656}
	}
	return nil
}

func blockContext(env *EvmEnv) gethvm.BlockContext {
	baseFee := new(big.Int)
	if env.Block.BaseFee != nil {
		baseFee = env.Block.BaseFee.ToBig()
	}
	// PREVRANDAO (formerly DIFFICULTY) returns zero on Scroll.
	var random common.Hash
	return gethvm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     BlockHashFn(env.Cfg.ChainID),
		Coinbase:    env.Block.Beneficiary,
		GasLimit:    env.Block.GasLimit,
		BlockNumber: new(big.Int).SetUint64(env.Block.Number),
		Time:        env.Block.Time,
		Difficulty:  new(big.Int),
		BaseFee:     baseFee,
		BlobBaseFee: new(big.Int),
		Random:      &random,
	}
}

// BlockHashFn returns the BLOCKHASH implementation of Scroll: the hash of a block is derived
// from the chain ID and the block number, keccak256(chainID || number), both big-endian uint64.
func BlockHashFn(chainID uint64) gethvm.GetHashFunc {
	return func(number uint64) common.Hash {
		var input [16]byte
		binary.BigEndian.PutUint64(input[:8], chainID)
		binary.BigEndian.PutUint64(input[8:], number)
		return crypto.Keccak256Hash(input[:])
	}
}
