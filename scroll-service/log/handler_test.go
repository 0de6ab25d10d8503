package log

import (
	"bytes"
	"encoding/json"
	"flag"
	"log/slog"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

func TestJSONHandlerFormatsBigValues(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger(NewLogHandler(&buf, CLIConfig{Level: log.LevelInfo, Format: FormatJSON}))
	logger.Info("fee computed", "fee", uint256.NewInt(10), "balance", big.NewInt(12345), "nilFee", (*uint256.Int)(nil),
		"nilBalance", (*big.Int)(nil))
	logger.Debug("filtered out")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "fee computed", record["msg"])
	require.Equal(t, "info", record["lvl"])
	require.Equal(t, "10", record["fee"])
	require.Equal(t, "12345", record["balance"])
	require.Equal(t, "<nil>", record["nilFee"])
	require.Equal(t, "<nil>", record["nilBalance"])
	require.Contains(t, record, "t")
}

func TestLogfmtHandler(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  []string
	}{
		{log.LevelDebug, []string{"lvl=debug", "fee=7", "hash=0x0100000000000000000000000000000000000000000000000000000000000000"}},
		{log.LevelInfo, nil},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		logger := log.NewLogger(NewLogHandler(&buf, CLIConfig{Level: test.level, Format: FormatLogFmt}))
		logger.Debug("executing", "fee", uint256.NewInt(7), "hash", common.Hash{0x01})
		if test.want == nil {
			require.Empty(t, buf.String())
			continue
		}
		require.Regexp(t, `^t=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}`, buf.String())
		for _, want := range test.want {
			require.Contains(t, buf.String(), want)
		}
	}
}

func TestReadCLIConfig(t *testing.T) {
	app := cli.NewApp()
	app.Flags = CLIFlags("TEST")
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--log.level=debug", "--log.format=json", "--log.color=false"}))
	ctx := cli.NewContext(app, set, nil)

	cfg, err := ReadCLIConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, slog.Level(log.LevelDebug), cfg.Level)
	require.Equal(t, FormatJSON, cfg.Format)
	require.False(t, cfg.Color)

	require.NoError(t, set.Set(FormatFlagName, "yaml"))
	_, err = ReadCLIConfig(ctx)
	require.ErrorContains(t, err, "unrecognized log format")
}
