package flags

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/scroll-tech/l2-executor/scroll-node/rollup"
	slog "github.com/scroll-tech/l2-executor/scroll-service/log"
)

const EnvVarPrefix = "SCROLL_NODE"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

const (
	ValidatorClique   = "clique"
	ValidatorEthereum = "ethereum"
)

var (
	NetworkFlag = &cli.StringFlag{
		Name:    "network",
		Usage:   fmt.Sprintf("Predefined network selection. Available networks: %s", strings.Join(rollup.Networks(), ", ")),
		EnvVars: prefixEnvVars("NETWORK"),
		Value:   "mainnet",
	}
	ChainConfigFlag = &cli.PathFlag{
		Name:    "chain-config",
		Usage:   "Path to a chain config file (TOML or JSON). Overrides --network",
		EnvVars: prefixEnvVars("CHAIN_CONFIG"),
	}
	CurieOracleCodeFlag = &cli.PathFlag{
		Name:    "curie-oracle-code",
		Usage:   "Path to a hex file with the L1GasPriceOracle runtime installed at the Curie block. Overrides curie_oracle_bytecode of the chain config",
		EnvVars: prefixEnvVars("CURIE_ORACLE_CODE"),
	}
	FixtureFlag = &cli.PathFlag{
		Name:    "fixture",
		Usage:   "Path to a JSON fixture with the pre-state and the blocks to execute. Every block runs against the fixture pre-state, not the post-state of the block before it",
		EnvVars: prefixEnvVars("FIXTURE"),
	}
	ParallelFlag = &cli.IntFlag{
		Name:    "parallel",
		Usage:   "Number of fixture blocks executed concurrently, 0 for no limit",
		EnvVars: prefixEnvVars("PARALLEL"),
		Value:   4,
	}
	PayloadFlag = &cli.PathFlag{
		Name:    "payload",
		Usage:   "Path to a JSON engine API execution payload",
		EnvVars: prefixEnvVars("PAYLOAD"),
	}
	SidecarFlag = &cli.PathFlag{
		Name:    "sidecar",
		Usage:   "Path to the JSON Cancun payload fields (parent beacon block root and versioned hashes)",
		EnvVars: prefixEnvVars("SIDECAR"),
	}
	ValidatorFlag = &cli.StringFlag{
		Name:    "validator",
		Usage:   fmt.Sprintf("Payload validator to use: %s or %s", ValidatorClique, ValidatorEthereum),
		EnvVars: prefixEnvVars("VALIDATOR"),
		Value:   ValidatorClique,
	}
	NumberFlag = &cli.Uint64Flag{
		Name:    "number",
		Usage:   "Block number to resolve the active hard fork at",
		EnvVars: prefixEnvVars("NUMBER"),
	}
	TimestampFlag = &cli.Uint64Flag{
		Name:    "timestamp",
		Usage:   "Block timestamp to resolve the active hard fork at",
		EnvVars: prefixEnvVars("TIMESTAMP"),
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	NetworkFlag,
	ChainConfigFlag,
	CurieOracleCodeFlag,
}

func init() {
	optionalFlags = append(optionalFlags, slog.CLIFlags(EnvVarPrefix)...)

	Flags = append(Flags, requiredFlags...)
	Flags = append(Flags, optionalFlags...)
}

// Flags contains the global options of the binary. Subcommands add their own.
var Flags []cli.Flag

// ExecuteFlags are the options of the execute subcommand.
var ExecuteFlags = []cli.Flag{FixtureFlag, ParallelFlag}

// ValidateFlags are the options of the validate-payload subcommand.
var ValidateFlags = []cli.Flag{PayloadFlag, SidecarFlag, ValidatorFlag}

// SpecFlags are the options of the spec subcommand.
var SpecFlags = []cli.Flag{NumberFlag, TimestampFlag}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

// CheckSet returns an error naming the first of fs that is not set.
func CheckSet(ctx *cli.Context, fs ...cli.Flag) error {
	for _, f := range fs {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

// ChainSpecFromCLI loads the chain spec from --chain-config, or from the built-in --network
// configuration when no file is given. --curie-oracle-code replaces the configured oracle runtime.
func ChainSpecFromCLI(ctx *cli.Context) (*rollup.ChainSpec, error) {
	var (
		cfg *rollup.ChainConfig
		err error
	)
	if path := ctx.Path(ChainConfigFlag.Name); path != "" {
		cfg, err = rollup.LoadConfigFile(path)
	} else {
		cfg, err = rollup.LoadNetwork(ctx.String(NetworkFlag.Name))
	}
	if err != nil {
		return nil, err
	}
	if path := ctx.Path(CurieOracleCodeFlag.Name); path != "" {
		code, err := ReadHexFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read curie oracle code: %w", err)
		}
		cfg.CurieOracleBytecode = code
	}
	return rollup.NewChainSpec(cfg), nil
}

// ReadHexFile reads a 0x prefixed hex string from file. Surrounding whitespace is ignored.
func ReadHexFile(file string) ([]byte, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return hexutil.Decode(strings.TrimSpace(string(data)))
}
