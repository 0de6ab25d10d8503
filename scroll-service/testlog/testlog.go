// Package testlog provides a geth log.Logger for unit tests that writes through t.Logf, so log
// lines are attributed to the test that produced them.
package testlog

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

var useColor = os.Getenv("SCROLL_TESTLOG_DISABLE_COLOR") != "true"

// Testing is the subset of testing.TB the logger needs.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
	FailNow()
	Name() string
	Cleanup(func())
}

// HandlerMod wraps a handler, e.g. to capture records.
type HandlerMod func(slog.Handler) slog.Handler

type logger struct {
	t   Testing
	l   log.Logger
	mu  *sync.Mutex
	buf *bytes.Buffer
}

var _ log.Logger = (*logger)(nil)

// Logger returns a logger which logs to the unit test log of t.
func Logger(t Testing, level slog.Level) log.Logger {
	return LoggerWithHandlerMod(t, level)
}

func LoggerWithHandlerMod(t Testing, level slog.Level, mods ...HandlerMod) log.Logger {
	l := &logger{t: t, mu: new(sync.Mutex), buf: new(bytes.Buffer)}
	var handler slog.Handler = log.NewTerminalHandlerWithLevel(l.buf, level, useColor)
	for _, mod := range mods {
		handler = mod(handler)
	}
	l.l = log.NewLogger(handler)
	return l
}

func (l *logger) Handler() slog.Handler {
	return l.l.Handler()
}

func (l *logger) New(ctx ...any) log.Logger {
	return &logger{l.t, l.l.New(ctx...), l.mu, l.buf}
}

func (l *logger) With(ctx ...any) log.Logger {
	return l.New(ctx...)
}

func (l *logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.l.Enabled(ctx, level)
}

func (l *logger) Log(level slog.Level, msg string, ctx ...any) {
	l.t.Helper()
	l.write(func() { l.l.Log(level, msg, ctx...) })
}

func (l *logger) Write(level slog.Level, msg string, ctx ...any) {
	l.t.Helper()
	l.write(func() { l.l.Write(level, msg, ctx...) })
}

func (l *logger) Trace(msg string, ctx ...any) {
	l.t.Helper()
	l.write(func() { l.l.Trace(msg, ctx...) })
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.t.Helper()
	l.write(func() { l.l.Debug(msg, ctx...) })
}

func (l *logger) Info(msg string, ctx ...any) {
	l.t.Helper()
	l.write(func() { l.l.Info(msg, ctx...) })
}

func (l *logger) Warn(msg string, ctx ...any) {
	l.t.Helper()
	l.write(func() { l.l.Warn(msg, ctx...) })
}

func (l *logger) Error(msg string, ctx ...any) {
	l.t.Helper()
	l.write(func() { l.l.Error(msg, ctx...) })
}

// Crit logs and fails the test. log.Crit would exit the process before the buffer is flushed.
func (l *logger) Crit(msg string, ctx ...any) {
	l.t.Helper()
	l.write(func() { l.l.Write(log.LevelCrit, msg, ctx...) })
	l.t.FailNow()
}

func (l *logger) write(emit func()) {
	l.t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	emit()
	scanner := bufio.NewScanner(l.buf)
	for scanner.Scan() {
		l.t.Logf("%s", scanner.Text())
	}
	l.buf.Reset()
}
