package log

import (
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"reflect"
	"time"

	elog "github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

const timeFormatMs = "2006-01-02T15:04:05.000-0700"

// attrFormatter renders records with geth's short time and level keys, and prints amounts
// (balances, fees, gas prices) in decimal.
type attrFormatter struct {
	// text output has no native time type, so times are printed with millisecond precision
	text bool
}

func newJSONHandler(wr io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{ReplaceAttr: attrFormatter{}.replace, Level: level})
}

func newLogfmtHandler(wr io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(wr, &slog.HandlerOptions{ReplaceAttr: attrFormatter{text: true}.replace, Level: level})
}

func (f attrFormatter) replace(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() != slog.KindTime {
			return attr
		}
		if f.text {
			return slog.String("t", attr.Value.Time().Format(timeFormatMs))
		}
		return slog.Attr{Key: "t", Value: attr.Value}
	case slog.LevelKey:
		if l, ok := attr.Value.Any().(slog.Level); ok {
			return slog.String("lvl", elog.LevelString(l))
		}
		return attr
	}

	switch v := attr.Value.Any().(type) {
	case time.Time:
		if f.text {
			attr.Value = slog.StringValue(v.Format(timeFormatMs))
		}
	case *uint256.Int:
		attr.Value = decimal(v == nil, v.Dec)
	case *big.Int:
		attr.Value = decimal(v == nil, v.String)
	case fmt.Stringer:
		isNil := v == nil || (reflect.ValueOf(v).Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil())
		attr.Value = decimal(isNil, v.String)
	}
	return attr
}

func decimal(isNil bool, str func() string) slog.Value {
	if isNil {
		return slog.StringValue("<nil>")
	}
	return slog.StringValue(str())
}
