package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scroll-tech/l2-executor/scroll-service/eth"
	smetrics "github.com/scroll-tech/l2-executor/scroll-service/metrics"
)

const Namespace = "scroll_node"

type Metricer interface {
	RecordInfo(version string)
	RecordUp()

	RecordBlockExecuted(txs int, gasUsed uint64, elapsed time.Duration)
	RecordTxExecuted(txType uint8, success bool, gasUsed uint64, l1Fee *uint256.Int)
	RecordTxRejected(reason string)
	RecordCurieMigration()

	RecordPayloadValidation(validator string, err error)
}

type Metrics struct {
	ns       string
	registry *prometheus.Registry
	factory  smetrics.Factory

	info prometheus.GaugeVec
	up   prometheus.Gauge

	blocksExecuted  prometheus.Counter
	blockGasUsed    prometheus.Histogram
	blockDuration   prometheus.Histogram
	txsExecuted     *prometheus.CounterVec
	txsRejected     *prometheus.CounterVec
	l1FeeTotal      prometheus.Counter
	curieMigrations prometheus.Counter

	payloadValidations *prometheus.CounterVec
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics(procName string) *Metrics {
	return newMetrics(procName, smetrics.NewRegistry())
}

func newMetrics(procName string, registry *prometheus.Registry) *Metrics {
	if procName == "" {
		procName = "default"
	}
	ns := Namespace + "_" + procName

	factory := smetrics.With(registry)
	return &Metrics{
		ns:       ns,
		registry: registry,
		factory:  factory,

		info: *factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "info",
			Help:      "Pseudo-metric tracking version and config info",
		}, []string{
			"version",
		}),
		up: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "up",
			Help:      "1 if scroll-node has finished starting up",
		}),

		blocksExecuted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "blocks_executed_total",
			Help:      "Count of executed blocks",
		}),
		blockGasUsed: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "block_gas_used",
			Help:      "Gas used per executed block",
			Buckets:   prometheus.ExponentialBuckets(21_000, 2, 10),
		}),
		blockDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "block_execution_seconds",
			Help:      "Time spent executing a block",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		txsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "txs_executed_total",
			Help:      "Count of executed transactions by type and outcome",
		}, []string{"type", "success"}),
		txsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "txs_rejected_total",
			Help:      "Count of transactions that aborted block execution, by reason",
		}, []string{"reason"}),
		l1FeeTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "l1_fee_wei_total",
			Help:      "Sum of the L1 data fees charged, in wei",
		}),
		curieMigrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "curie_migrations_total",
			Help:      "Count of applied Curie oracle migrations",
		}),
		payloadValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "payload_validations_total",
			Help:      "Count of validated payloads by validator and result",
		}, []string{"validator", "result"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Document() []smetrics.DocumentedMetric {
	return m.factory.Document()
}

// RecordInfo sets a pseudo-metric that contains versioning and config info.
func (m *Metrics) RecordInfo(version string) {
	m.info.WithLabelValues(version).Set(1)
}

// RecordUp sets the up metric to 1.
func (m *Metrics) RecordUp() {
	m.up.Set(1)
}

func (m *Metrics) RecordBlockExecuted(txs int, gasUsed uint64, elapsed time.Duration) {
	m.blocksExecuted.Inc()
	m.blockGasUsed.Observe(float64(gasUsed))
	m.blockDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordTxExecuted(txType uint8, success bool, gasUsed uint64, l1Fee *uint256.Int) {
	m.txsExecuted.WithLabelValues(fmt.Sprintf("0x%02x", txType), fmt.Sprint(success)).Inc()
	if l1Fee != nil {
		m.l1FeeTotal.Add(l1Fee.Float64())
	}
}

func (m *Metrics) RecordTxRejected(reason string) {
	m.txsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordCurieMigration() {
	m.curieMigrations.Inc()
}

func (m *Metrics) RecordPayloadValidation(validator string, err error) {
	m.payloadValidations.WithLabelValues(validator, validationResult(err)).Inc()
}

// validationResult labels a validation outcome with the payload error kind, if any.
func validationResult(err error) string {
	if err == nil {
		return "valid"
	}
	var perr *eth.PayloadError
	if errors.As(err, &perr) {
		return perr.Kind.String()
	}
	return "error"
}
