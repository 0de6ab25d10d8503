package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// DocumentedMetric describes a registered metric, for generated metrics documentation.
type DocumentedMetric struct {
	Type   string   `json:"type"`
	Name   string   `json:"name"`
	Help   string   `json:"help"`
	Labels []string `json:"labels"`
}

// Factory creates metrics and registers them with a registry, remembering what it created.
type Factory interface {
	NewCounter(opts prometheus.CounterOpts) prometheus.Counter
	NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec
	NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge
	NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec
	NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram
	NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec
	Document() []DocumentedMetric
}

type documentor struct {
	registry prometheus.Registerer
	metrics  []DocumentedMetric
}

// With returns a Factory registering into registry.
func With(registry prometheus.Registerer) Factory {
	return &documentor{registry: registry}
}

// NewRegistry returns a registry with the standard process and Go collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	return registry
}

func fullName(ns, subsystem, name string) string {
	return strings.Join(nonEmpty(ns, subsystem, name), "_")
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (d *documentor) record(typ, name, help string, labels []string) {
	d.metrics = append(d.metrics, DocumentedMetric{Type: typ, Name: name, Help: help, Labels: labels})
}

func (d *documentor) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	d.record("counter", fullName(opts.Namespace, opts.Subsystem, opts.Name), opts.Help, nil)
	c := prometheus.NewCounter(opts)
	d.registry.MustRegister(c)
	return c
}

func (d *documentor) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	d.record("counter", fullName(opts.Namespace, opts.Subsystem, opts.Name), opts.Help, labelNames)
	c := prometheus.NewCounterVec(opts, labelNames)
	d.registry.MustRegister(c)
	return c
}

func (d *documentor) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	d.record("gauge", fullName(opts.Namespace, opts.Subsystem, opts.Name), opts.Help, nil)
	g := prometheus.NewGauge(opts)
	d.registry.MustRegister(g)
	return g
}

func (d *documentor) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	d.record("gauge", fullName(opts.Namespace, opts.Subsystem, opts.Name), opts.Help, labelNames)
	g := prometheus.NewGaugeVec(opts, labelNames)
	d.registry.MustRegister(g)
	return g
}

func (d *documentor) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	d.record("histogram", fullName(opts.Namespace, opts.Subsystem, opts.Name), opts.Help, nil)
	h := prometheus.NewHistogram(opts)
	d.registry.MustRegister(h)
	return h
}

func (d *documentor) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	d.record("histogram", fullName(opts.Namespace, opts.Subsystem, opts.Name), opts.Help, labelNames)
	h := prometheus.NewHistogramVec(opts, labelNames)
	d.registry.MustRegister(h)
	return h
}

func (d *documentor) Document() []DocumentedMetric {
	return d.metrics
}
