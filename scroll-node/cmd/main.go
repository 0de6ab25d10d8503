package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/scroll-tech/l2-executor/scroll-node/engine"
	"github.com/scroll-tech/l2-executor/scroll-node/fixture"
	"github.com/scroll-tech/l2-executor/scroll-node/flags"
	"github.com/scroll-tech/l2-executor/scroll-node/metrics"
	"github.com/scroll-tech/l2-executor/scroll-node/vm"
	"github.com/scroll-tech/l2-executor/scroll-service/eth"
	slog "github.com/scroll-tech/l2-executor/scroll-service/log"
)

var (
	Version   = "v0.0.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := run(ctx, os.Stdout, os.Stderr, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx context.Context, w io.Writer, ew io.Writer, args []string) error {
	app := cli.NewApp()
	app.Writer = w
	app.ErrWriter = ew
	app.Flags = flags.Flags
	app.Version = formatVersion(Version, GitCommit, GitDate)
	app.Name = "scroll-node"
	app.Usage = "Scroll L2 block execution and payload validation"
	app.Description = "Executes Scroll blocks against a pre-state, assembles and seals them,\n" +
		" and validates engine API payloads with the Clique or base protocol rules."
	app.Before = flags.CheckRequired
	app.Commands = []*cli.Command{
		{
			Name:  "execute",
			Usage: "Execute the blocks of a fixture and print the sealed payloads",
			Description: "Every block of the fixture executes independently against the fixture pre-state,\n" +
				"not against the post-state of the previous block. Blocks must not depend on each other.",
			Flags:  flags.ExecuteFlags,
			Action: executeAction(app.Version),
		},
		{
			Name:   "validate-payload",
			Usage:  "Check that an execution payload is well formed and print the sealed block",
			Flags:  flags.ValidateFlags,
			Action: validateAction,
		},
		{
			Name:   "spec",
			Usage:  "Print the hard fork active at a block number and timestamp",
			Flags:  flags.SpecFlags,
			Action: specAction,
		},
		{
			Name: "doc",
			Subcommands: []*cli.Command{
				{
					Name:  "metrics",
					Usage: "Dumps a list of supported metrics to stdout",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "format",
							Value: "markdown",
							Usage: "Output format (json|markdown)",
						},
					},
					Action: docMetricsAction,
				},
			},
		},
	}
	return app.RunContext(ctx, args)
}

func formatVersion(version, gitCommit, gitDate string) string {
	v := version
	if gitCommit != "" {
		if len(gitCommit) >= 8 {
			v += "-" + gitCommit[:8]
		} else {
			v += "-" + gitCommit
		}
	}
	if gitDate != "" {
		v += "-" + gitDate
	}
	return v
}

// setupLogger logs to the error writer so that stdout only carries command output.
func setupLogger(cliCtx *cli.Context) (log.Logger, error) {
	cfg, err := slog.ReadCLIConfig(cliCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to read log config: %w", err)
	}
	h := slog.NewLogHandler(cliCtx.App.ErrWriter, cfg)
	slog.SetGlobalLogHandler(h)
	return log.NewLogger(h), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func executeAction(version string) cli.ActionFunc {
	return func(cliCtx *cli.Context) error {
		if err := flags.CheckSet(cliCtx, flags.FixtureFlag); err != nil {
			return err
		}
		logger, err := setupLogger(cliCtx)
		if err != nil {
			return err
		}
		spec, err := flags.ChainSpecFromCLI(cliCtx)
		if err != nil {
			return err
		}
		f, err := fixture.Load(cliCtx.Path(flags.FixtureFlag.Name))
		if err != nil {
			return err
		}

		m := metrics.NewMetrics("default")
		m.RecordInfo(version)
		m.RecordUp()

		logger.Info("Executing fixture", "blocks", len(f.Blocks), "chain_id", spec.ChainID())
		outputs, err := fixture.NewRunner(logger, spec, vm.NewEVMInterpreter(), m).
			Run(cliCtx.Context, f, cliCtx.Int(flags.ParallelFlag.Name))
		if err != nil {
			return err
		}
		return writeJSON(cliCtx.App.Writer, outputs)
	}
}

type validatedBlock struct {
	Hash         common.Hash    `json:"hash"`
	Number       hexutil.Uint64 `json:"number"`
	Difficulty   *hexutil.Big   `json:"difficulty"`
	Transactions int            `json:"transactions"`
}

func validateAction(cliCtx *cli.Context) error {
	if err := flags.CheckSet(cliCtx, flags.PayloadFlag); err != nil {
		return err
	}
	logger, err := setupLogger(cliCtx)
	if err != nil {
		return err
	}
	spec, err := flags.ChainSpecFromCLI(cliCtx)
	if err != nil {
		return err
	}

	var payload eth.ExecutionPayload
	if err := readJSON(cliCtx.Path(flags.PayloadFlag.Name), &payload); err != nil {
		return err
	}
	sidecar := eth.NoSidecar
	if path := cliCtx.Path(flags.SidecarFlag.Name); path != "" {
		var fields eth.CancunPayloadFields
		if err := readJSON(path, &fields); err != nil {
			return err
		}
		sidecar = eth.ExecutionPayloadSidecar{Cancun: &fields}
	}

	m := metrics.NewMetrics("default")
	var out validatedBlock
	switch name := cliCtx.String(flags.ValidatorFlag.Name); name {
	case flags.ValidatorClique:
		block, err := engine.NewCliqueValidator(logger, m).EnsureWellFormedPayload(&payload, sidecar)
		if err != nil {
			return err
		}
		out = validatedBlock{block.Hash(), hexutil.Uint64(block.NumberU64()), (*hexutil.Big)(block.Header.Difficulty), len(block.Transactions())}
	case flags.ValidatorEthereum:
		block, err := engine.NewEthereumValidator(logger, spec, m).EnsureWellFormedPayload(&payload, sidecar)
		if err != nil {
			return err
		}
		out = validatedBlock{block.Hash(), hexutil.Uint64(block.NumberU64()), (*hexutil.Big)(block.Difficulty()), len(block.Transactions())}
	default:
		return fmt.Errorf("unknown validator %q", name)
	}
	return writeJSON(cliCtx.App.Writer, out)
}

type specInfo struct {
	ChainID    *hexutil.Big    `json:"chainId"`
	Spec       string          `json:"spec"`
	CurieBlock *hexutil.Uint64 `json:"curieBlock,omitempty"`
	FeeVault   *common.Address `json:"feeVault,omitempty"`
}

func specAction(cliCtx *cli.Context) error {
	spec, err := flags.ChainSpecFromCLI(cliCtx)
	if err != nil {
		return err
	}
	number := cliCtx.Uint64(flags.NumberFlag.Name)
	timestamp := cliCtx.Uint64(flags.TimestampFlag.Name)

	info := specInfo{
		ChainID: (*hexutil.Big)(spec.ChainID()),
		Spec:    spec.SpecAt(timestamp, number).String(),
	}
	if curie, ok := spec.CurieBlock(); ok {
		info.CurieBlock = (*hexutil.Uint64)(&curie)
	}
	if vault, ok := spec.FeeVault(); ok {
		info.FeeVault = &vault
	}
	return writeJSON(cliCtx.App.Writer, info)
}

func docMetricsAction(cliCtx *cli.Context) error {
	m := metrics.NewMetrics("default")
	supported := m.Document()
	switch format := cliCtx.String("format"); format {
	case "json":
		return writeJSON(cliCtx.App.Writer, supported)
	case "markdown":
		table := tablewriter.NewWriter(cliCtx.App.Writer)
		table.SetHeader([]string{"Metric", "Type", "Description", "Labels"})
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
		for _, metric := range supported {
			table.Append([]string{metric.Name, metric.Type, metric.Help, strings.Join(metric.Labels, ",")})
		}
		table.Render()
		return nil
	default:
		return errors.New("invalid format: expected json or markdown")
	}
}
