package metrics

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	gocl "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// MetricsChecker gathers a registry once and lets tests look up families and series.
type MetricsChecker struct {
	families []*gocl.MetricFamily
	t        require.TestingT
}

// FamilyChecker looks up series of a single metric family.
type FamilyChecker struct {
	fam *gocl.MetricFamily
	t   require.TestingT
}

// NewMetricChecker gathers reg, failing the test if gathering fails.
func NewMetricChecker(t require.TestingT, reg *prometheus.Registry) *MetricsChecker {
	families, err := reg.Gather()
	require.NoError(t, err, "must gather metrics")
	return &MetricsChecker{families: families, t: t}
}

// FindByName returns the family called name, failing the test if it is absent.
func (m *MetricsChecker) FindByName(name string) *FamilyChecker {
	for _, f := range m.families {
		if f.GetName() == name {
			return &FamilyChecker{fam: f, t: m.t}
		}
	}
	require.FailNow(m.t, "cannot find metric family", "name: %s", name)
	return nil
}

// Dump returns the gathered families as indented JSON, for debugging.
func (m *MetricsChecker) Dump() string {
	out, _ := json.MarshalIndent(m.families, "  ", "  ")
	return string(out)
}

// FindByLabels returns the single series carrying all labels, failing the test otherwise.
func (f *FamilyChecker) FindByLabels(labels map[string]string) *gocl.Metric {
	var found *gocl.Metric
	for _, m := range f.fam.Metric {
		if !hasAllLabels(m, labels) {
			continue
		}
		require.Nil(f.t, found, "labels %v match more than one series", labels)
		found = m
	}
	require.NotNil(f.t, found, "cannot find series with labels %v", labels)
	return found
}

func hasAllLabels(m *gocl.Metric, labels map[string]string) bool {
outer:
	for k, v := range labels {
		for _, lab := range m.Label {
			if lab.GetName() == k && lab.GetValue() == v {
				continue outer
			}
		}
		return false
	}
	return true
}
