package rollup

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hashicorp/go-multierror"
)

var (
	ErrMissingChainID      = errors.New("chain ID must be set")
	ErrMissingShanghaiTime = errors.New("shanghai time must be set, scroll launched with shanghai rules")
	ErrDarwinWithoutCurie  = errors.New("darwin_time is set but curie_block is not")
)

// ChainConfig holds the hardfork schedule and chain parameters of a Scroll network.
//
// Block-activated forks use a *Block threshold, time-activated forks a *Time threshold.
// A fork is active if its threshold is set and the block number (or timestamp) is at or past it.
type ChainConfig struct {
	ChainID uint64 `json:"chain_id" toml:"chain_id" yaml:"chain_id"`

	// FeeVaultAddress receives the transaction fees instead of the block beneficiary when set.
	FeeVaultAddress *common.Address `json:"fee_vault_address,omitempty" toml:"fee_vault_address,omitempty" yaml:"fee_vault_address,omitempty"`

	SpuriousDragonBlock *uint64 `json:"spurious_dragon_block,omitempty" toml:"spurious_dragon_block,omitempty" yaml:"spurious_dragon_block,omitempty"`

	// BernoulliBlock switches the L1 data commitment to blobs. Fee rules are unchanged.
	BernoulliBlock *uint64 `json:"bernoulli_block,omitempty" toml:"bernoulli_block,omitempty" yaml:"bernoulli_block,omitempty"`

	// CurieBlock enables typed transactions and the blob based L1 fee formula.
	// The L1GasPriceOracle migration runs at exactly this block.
	CurieBlock *uint64 `json:"curie_block,omitempty" toml:"curie_block,omitempty" yaml:"curie_block,omitempty"`
	// CurieOracleBytecode is the L1GasPriceOracle runtime installed at CurieBlock, as deployed by
	// the chain's contracts release. The node refuses to execute the Curie block without it.
	CurieOracleBytecode hexutil.Bytes `json:"curie_oracle_bytecode,omitempty" toml:"curie_oracle_bytecode,omitempty" yaml:"curie_oracle_bytecode,omitempty"`

	DarwinTime   *uint64 `json:"darwin_time,omitempty" toml:"darwin_time,omitempty" yaml:"darwin_time,omitempty"`
	DarwinV2Time *uint64 `json:"darwin_v2_time,omitempty" toml:"darwin_v2_time,omitempty" yaml:"darwin_v2_time,omitempty"`

	ShanghaiTime *uint64 `json:"shanghai_time,omitempty" toml:"shanghai_time,omitempty" yaml:"shanghai_time,omitempty"`
	CancunTime   *uint64 `json:"cancun_time,omitempty" toml:"cancun_time,omitempty" yaml:"cancun_time,omitempty"`
	PragueTime   *uint64 `json:"prague_time,omitempty" toml:"prague_time,omitempty" yaml:"prague_time,omitempty"`
}

func isActive(threshold *uint64, v uint64) bool {
	return threshold != nil && v >= *threshold
}

// Check verifies that the configuration makes sense. All problems are reported at once.
func (c *ChainConfig) Check() error {
	var result *multierror.Error
	if c.ChainID == 0 {
		result = multierror.Append(result, ErrMissingChainID)
	}
	if c.ShanghaiTime == nil {
		result = multierror.Append(result, ErrMissingShanghaiTime)
	}
	if err := checkOrder("bernoulli_block", c.BernoulliBlock, "curie_block", c.CurieBlock); err != nil {
		result = multierror.Append(result, err)
	}
	if err := checkOrder("darwin_time", c.DarwinTime, "darwin_v2_time", c.DarwinV2Time); err != nil {
		result = multierror.Append(result, err)
	}
	if c.DarwinTime != nil && c.CurieBlock == nil {
		result = multierror.Append(result, ErrDarwinWithoutCurie)
	}
	if err := checkOrder("shanghai_time", c.ShanghaiTime, "cancun_time", c.CancunTime); err != nil {
		result = multierror.Append(result, err)
	}
	if err := checkOrder("cancun_time", c.CancunTime, "prague_time", c.PragueTime); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// checkOrder requires the later threshold to be unset, or at or after the earlier one.
func checkOrder(earlierName string, earlier *uint64, laterName string, later *uint64) error {
	if later == nil {
		return nil
	}
	if earlier == nil {
		return fmt.Errorf("%s is set but %s is not", laterName, earlierName)
	}
	if *later < *earlier {
		return fmt.Errorf("%s (%d) must not be before %s (%d)", laterName, *later, earlierName, *earlier)
	}
	return nil
}

func (c *ChainConfig) IsSpuriousDragon(num uint64) bool { return isActive(c.SpuriousDragonBlock, num) }
func (c *ChainConfig) IsBernoulli(num uint64) bool       { return isActive(c.BernoulliBlock, num) }
func (c *ChainConfig) IsCurie(num uint64) bool           { return isActive(c.CurieBlock, num) }
func (c *ChainConfig) IsDarwin(t uint64) bool            { return isActive(c.DarwinTime, t) }
func (c *ChainConfig) IsDarwinV2(t uint64) bool          { return isActive(c.DarwinV2Time, t) }
func (c *ChainConfig) IsShanghai(t uint64) bool          { return isActive(c.ShanghaiTime, t) }
func (c *ChainConfig) IsCancun(t uint64) bool            { return isActive(c.CancunTime, t) }
func (c *ChainConfig) IsPrague(t uint64) bool            { return isActive(c.PragueTime, t) }

// IsCurieTransitionBlock returns true for the single block that activates Curie.
func (c *ChainConfig) IsCurieTransitionBlock(num uint64) bool {
	return c.CurieBlock != nil && *c.CurieBlock == num
}

func (c *ChainConfig) Copy() *ChainConfig {
	cpy := *c
	return &cpy
}
