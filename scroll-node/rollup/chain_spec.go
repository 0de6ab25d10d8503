package rollup

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/scroll-tech/l2-executor/scroll-core/forks"
)

// ChainSpec answers hardfork questions for a chain. It is read-only and safe to share between executors.
type ChainSpec struct {
	config *ChainConfig
}

func NewChainSpec(config *ChainConfig) *ChainSpec {
	return &ChainSpec{config: config}
}

// Config returns the underlying chain configuration.
func (s *ChainSpec) Config() *ChainConfig {
	return s.config
}

func (s *ChainSpec) ChainID() *big.Int {
	return new(big.Int).SetUint64(s.config.ChainID)
}

// FeeVault returns the address collecting transaction fees, if the chain has one.
func (s *ChainSpec) FeeVault() (common.Address, bool) {
	if s.config.FeeVaultAddress == nil {
		return common.Address{}, false
	}
	return *s.config.FeeVaultAddress, true
}

// CurieBlock returns the Curie activation block, if scheduled.
func (s *ChainSpec) CurieBlock() (uint64, bool) {
	if s.config.CurieBlock == nil {
		return 0, false
	}
	return *s.config.CurieBlock, true
}

// CurieOracleBytecode returns the L1GasPriceOracle runtime installed at the Curie block.
func (s *ChainSpec) CurieOracleBytecode() []byte {
	return common.CopyBytes(s.config.CurieOracleBytecode)
}

// SpecAt returns the rule set of the block with the given timestamp and number.
// The result never decreases as either argument grows.
func (s *ChainSpec) SpecAt(timestamp, number uint64) forks.SpecID {
	switch {
	case s.IsDarwinV2(timestamp):
		return forks.SpecDarwinV2
	case s.IsDarwin(timestamp):
		return forks.SpecDarwin
	case s.IsCurie(number):
		return forks.SpecCurie
	case s.IsBernoulli(number):
		return forks.SpecBernoulli
	default:
		return forks.SpecShanghai
	}
}

func (s *ChainSpec) IsSpuriousDragon(num uint64) bool { return s.config.IsSpuriousDragon(num) }
func (s *ChainSpec) IsBernoulli(num uint64) bool       { return s.config.IsBernoulli(num) }
func (s *ChainSpec) IsCurie(num uint64) bool           { return s.config.IsCurie(num) }
func (s *ChainSpec) IsDarwin(t uint64) bool            { return s.config.IsDarwin(t) }
func (s *ChainSpec) IsDarwinV2(t uint64) bool          { return s.config.IsDarwinV2(t) }
func (s *ChainSpec) IsShanghai(t uint64) bool          { return s.config.IsShanghai(t) }
func (s *ChainSpec) IsCancun(t uint64) bool            { return s.config.IsCancun(t) }
func (s *ChainSpec) IsPrague(t uint64) bool            { return s.config.IsPrague(t) }

func (s *ChainSpec) IsCurieTransitionBlock(num uint64) bool {
	return s.config.IsCurieTransitionBlock(num)
}

// ForkTracker logs hardfork activations while blocks are processed in order. It is not safe for
// concurrent use; each sequential block source owns one.
type ForkTracker struct {
	spec    *ChainSpec
	current forks.Name
}

func NewForkTracker(spec *ChainSpec) *ForkTracker {
	return &ForkTracker{spec: spec}
}

// Current returns the last fork seen, or forks.None before the first Check.
func (t *ForkTracker) Current() forks.Name {
	return t.current
}

// Check logs when the given block runs under a newer fork than the previous one checked.
// The first call only records the current fork.
func (t *ForkTracker) Check(log log.Logger, number, timestamp uint64) {
	fork := t.spec.SpecAt(timestamp, number).Name()
	if t.current == forks.None {
		t.current = fork
		log.Info("Current hardfork version detected", "forkName", t.current)
		return
	}
	if fork == t.current {
		return
	}
	for _, f := range forks.From(t.current)[1:] {
		if f == fork {
			t.current = fork
			log.Info("Detected hardfork activation block", "forkName", t.current, "timestamp", timestamp, "blockNum", number)
			return
		}
	}
}
