package vm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/scroll-tech/l2-executor/scroll-core/forks"
	"github.com/scroll-tech/l2-executor/scroll-node/rollup"
	"github.com/scroll-tech/l2-executor/scroll-service/predeploys"
)

func TestNewEvmEnv(t *testing.T) {
	header := &gethtypes.Header{
		Number:     big.NewInt(7096836),
		Time:       1720000000,
		Coinbase:   common.Address{0x01},
		Difficulty: big.NewInt(2),
		MixDigest:  common.Hash{0x02},
		GasLimit:   10_000_000,
		BaseFee:    big.NewInt(42),
	}

	env := NewEvmEnv(rollup.NewChainSpec(rollup.Mainnet()), header)
	require.Equal(t, forks.SpecCurie, env.Cfg.Spec)
	require.Equal(t, uint64(534352), env.Cfg.ChainID)
	require.Equal(t, predeploys.L2TxFeeVaultAddr, env.Block.Beneficiary, "fees go to the vault")
	require.Equal(t, uint64(2), env.Block.Difficulty.Uint64())
	require.Equal(t, common.Hash{0x02}, env.Block.PrevRandao)
	require.Equal(t, big.NewInt(42), env.Block.BaseFeeBig())

	cfg := rollup.Mainnet()
	cfg.FeeVaultAddress = nil
	header.BaseFee = nil
	env = NewEvmEnv(rollup.NewChainSpec(cfg), header)
	require.Equal(t, common.Address{0x01}, env.Block.Beneficiary)
	require.Nil(t, env.Block.BaseFee)
	require.Nil(t, env.Block.BaseFeeBig())
}

func TestNextEvmEnv(t *testing.T) {
	parent := &gethtypes.Header{Number: big.NewInt(7096835), Time: 1720000000}
	env := NextEvmEnv(rollup.NewChainSpec(rollup.Mainnet()), parent, NextBlockAttributes{
		Timestamp:             1720000003,
		SuggestedFeeRecipient: common.Address{0x01},
		PrevRandao:            common.Hash{0x03},
		GasLimit:              10_000_000,
		BaseFee:               uint256.NewInt(7),
	})
	require.Equal(t, uint64(7096836), env.Block.Number)
	require.Equal(t, forks.SpecCurie, env.Cfg.Spec)
	require.Equal(t, predeploys.L2TxFeeVaultAddr, env.Block.Beneficiary)
	require.True(t, env.Block.Difficulty.IsZero())
	require.Equal(t, uint64(7), env.Block.BaseFee.Uint64())
}
