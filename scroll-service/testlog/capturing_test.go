package testlog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"
)

func TestCaptureLogger(t *testing.T) {
	logger, logs := CaptureLogger(t, log.LevelInfo)
	child := logger.New("block", uint64(7))
	child.Info("Executed block", "txs", 3)
	logger.Warn("Rejected payload", "err", errors.New("block hash mismatch"))
	logger.Debug("hidden")

	rec := logs.FindLog(NewMessageFilter("Executed block"))
	require.NotNil(t, rec)
	require.EqualValues(t, 3, rec.AttrValue("txs"))
	require.EqualValues(t, 7, rec.AttrValue("block"), "inherited attributes are visible")

	require.NotNil(t, logs.FindLog(NewLevelFilter(log.LevelWarn), NewErrContainsFilter("mismatch")))
	require.NotNil(t, logs.FindLog(NewAttributesFilter("block", "7")))
	require.Nil(t, logs.FindLog(NewMessageContainsFilter("hidden")))
	require.Len(t, logs.FindLogs(), 2)

	logs.Clear()
	require.Empty(t, logs.FindLogs())
}
