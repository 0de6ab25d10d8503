package metrics

import (
	"time"

	"github.com/holiman/uint256"
)

type NoopMetricsImpl struct{}

var NoopMetrics Metricer = new(NoopMetricsImpl)

func (*NoopMetricsImpl) RecordInfo(version string) {}
func (*NoopMetricsImpl) RecordUp()                 {}

func (*NoopMetricsImpl) RecordBlockExecuted(txs int, gasUsed uint64, elapsed time.Duration)               {}
func (*NoopMetricsImpl) RecordTxExecuted(txType uint8, success bool, gasUsed uint64, l1Fee *uint256.Int) {}
func (*NoopMetricsImpl) RecordTxRejected(reason string)                                                  {}
func (*NoopMetricsImpl) RecordCurieMigration()                                                           {}

func (*NoopMetricsImpl) RecordPayloadValidation(validator string, err error) {}
