package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
)

// FormatType selects the output encoding of log records.
type FormatType string

const (
	FormatTerminal FormatType = "terminal"
	FormatLogFmt   FormatType = "logfmt"
	FormatJSON     FormatType = "json"
)

var formatTypes = []FormatType{FormatTerminal, FormatLogFmt, FormatJSON}

func parseFormat(s string) (FormatType, error) {
	for _, f := range formatTypes {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unrecognized log format %q, expected one of %v", s, formatTypes)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return 0, fmt.Errorf("unrecognized log level %q", s)
}

// CLIFlags returns the logging flags, with env vars prefixed by envPrefix.
func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     LevelFlagName,
			Usage:    "The lowest log level that will be output: trace, debug, info, warn, error, crit",
			Value:    "info",
			EnvVars:  []string{envPrefix + "_LOG_LEVEL"},
			Category: "LOGGING",
		},
		&cli.StringFlag{
			Name:     FormatFlagName,
			Usage:    "Format the log output. Supported formats: 'terminal', 'logfmt', 'json'",
			Value:    string(FormatTerminal),
			EnvVars:  []string{envPrefix + "_LOG_FORMAT"},
			Category: "LOGGING",
		},
		&cli.BoolFlag{
			Name:     ColorFlagName,
			Usage:    "Color the log output if in terminal mode, defaults to true when stdout is a terminal",
			EnvVars:  []string{envPrefix + "_LOG_COLOR"},
			Category: "LOGGING",
		},
	}
}

type CLIConfig struct {
	Level  slog.Level
	Color  bool
	Format FormatType
}

// DefaultCLIConfig returns the config used when no flags are set.
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Level:  log.LevelInfo,
		Color:  isatty.IsTerminal(os.Stdout.Fd()),
		Format: FormatTerminal,
	}
}

// ReadCLIConfig reads the logging config from the CLI context.
func ReadCLIConfig(ctx *cli.Context) (CLIConfig, error) {
	cfg := DefaultCLIConfig()
	lvl, err := parseLevel(ctx.String(LevelFlagName))
	if err != nil {
		return cfg, err
	}
	cfg.Level = lvl
	format, err := parseFormat(ctx.String(FormatFlagName))
	if err != nil {
		return cfg, err
	}
	cfg.Format = format
	if ctx.IsSet(ColorFlagName) {
		cfg.Color = ctx.Bool(ColorFlagName)
	}
	return cfg, nil
}

// NewLogHandler builds the slog handler described by cfg.
func NewLogHandler(wr io.Writer, cfg CLIConfig) slog.Handler {
	switch cfg.Format {
	case FormatJSON:
		return newJSONHandler(wr, cfg.Level)
	case FormatLogFmt:
		return newLogfmtHandler(wr, cfg.Level)
	default:
		return log.NewTerminalHandlerWithLevel(wr, cfg.Level, cfg.Color)
	}
}

// SetGlobalLogHandler routes the geth root logger, used by libraries without an injected
// logger, through h.
func SetGlobalLogHandler(h slog.Handler) {
	log.SetDefault(log.NewLogger(h))
}
