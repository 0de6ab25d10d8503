package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-core/forks"
	"github.com/scroll-tech/l2-executor/scroll-node/rollup"
)

// CfgEnv is the chain level part of the EVM environment.
type CfgEnv struct {
	Spec    forks.SpecID
	ChainID uint64
}

// BlockEnv is the block level part of the EVM environment.
type BlockEnv struct {
	Number uint64
	// Beneficiary is the account credited with the transaction fees.
	Beneficiary common.Address
	Time        uint64
	Difficulty  *uint256.Int
	PrevRandao  common.Hash
	GasLimit    uint64
	// BaseFee is nil before London style fee markets apply.
	BaseFee *uint256.Int
}

// BaseFeeBig returns the base fee as a big.Int, or nil.
func (b *BlockEnv) BaseFeeBig() *big.Int {
	if b.BaseFee == nil {
		return nil
	}
	return b.BaseFee.ToBig()
}

type EvmEnv struct {
	Cfg   CfgEnv
	Block BlockEnv
}

// NextBlockAttributes are the inputs of a block that is being built on top of a parent.
type NextBlockAttributes struct {
	Timestamp             uint64
	SuggestedFeeRecipient common.Address
	PrevRandao            common.Hash
	GasLimit              uint64
	BaseFee               *uint256.Int
}

func beneficiary(spec *rollup.ChainSpec, coinbase common.Address) common.Address {
	if vault, ok := spec.FeeVault(); ok {
		return vault
	}
	return coinbase
}

// NewEvmEnv returns the environment to execute the block with the given header.
func NewEvmEnv(spec *rollup.ChainSpec, header *gethtypes.Header) *EvmEnv {
	number := header.Number.Uint64()
	env := &EvmEnv{
		Cfg: CfgEnv{
			Spec:    spec.SpecAt(header.Time, number),
			ChainID: spec.Config().ChainID,
		},
		Block: BlockEnv{
			Number:      number,
			Beneficiary: beneficiary(spec, header.Coinbase),
			Time:        header.Time,
			Difficulty:  new(uint256.Int),
			PrevRandao:  header.MixDigest,
			GasLimit:    header.GasLimit,
		},
	}
	if header.Difficulty != nil {
		env.Block.Difficulty = uint256.MustFromBig(header.Difficulty)
	}
	if header.BaseFee != nil {
		env.Block.BaseFee = uint256.MustFromBig(header.BaseFee)
	}
	return env
}

// NextEvmEnv returns the environment of a new block built on top of parent.
func NextEvmEnv(spec *rollup.ChainSpec, parent *gethtypes.Header, attrs NextBlockAttributes) *EvmEnv {
	number := parent.Number.Uint64() + 1
	env := &EvmEnv{
		Cfg: CfgEnv{
			Spec:    spec.SpecAt(attrs.Timestamp, number),
			ChainID: spec.Config().ChainID,
		},
		Block: BlockEnv{
			Number:      number,
			Beneficiary: beneficiary(spec, attrs.SuggestedFeeRecipient),
			Time:        attrs.Timestamp,
			Difficulty:  new(uint256.Int),
			PrevRandao:  attrs.PrevRandao,
			GasLimit:    attrs.GasLimit,
		},
	}
	if attrs.BaseFee != nil {
		env.Block.BaseFee = attrs.BaseFee.Clone()
	}
	return env
}
