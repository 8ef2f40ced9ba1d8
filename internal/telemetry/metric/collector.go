// Package metric exposes engine counters as Prometheus metrics.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/confmesh/confstore-go/internal/core/service"
)

// StatsProvider supplies a point-in-time counter snapshot. The service
// Manager implements it.
type StatsProvider interface {
	Stats() service.Stats
}

// Collector implements prometheus.Collector over a StatsProvider.
// Collect reads the provider synchronously, so the caller must only
// scrape from the goroutine that owns the Manager.
type Collector struct {
	provider StatsProvider

	entries        *prometheus.Desc
	namespaces     *prometheus.Desc
	callbacks      *prometheus.Desc
	callbacksFired *prometheus.Desc
	encryptionSet  *prometheus.Desc
}

// NewCollector creates a collector for provider.
func NewCollector(provider StatsProvider) *Collector {
	return &Collector{
		provider: provider,
		entries: prometheus.NewDesc(
			"confstore_entries",
			"Number of stored entries.",
			nil, nil),
		namespaces: prometheus.NewDesc(
			"confstore_namespaces",
			"Number of allocated namespaces, including the default.",
			nil, nil),
		callbacks: prometheus.NewDesc(
			"confstore_callbacks",
			"Number of registered change callbacks.",
			nil, nil),
		callbacksFired: prometheus.NewDesc(
			"confstore_callbacks_fired_total",
			"Total change callback invocations.",
			nil, nil),
		encryptionSet: prometheus.NewDesc(
			"confstore_encryption_enabled",
			"Whether an encryption key is installed (0 or 1).",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.namespaces
	ch <- c.callbacks
	ch <- c.callbacksFired
	ch <- c.encryptionSet
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.provider.Stats()

	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Entries))
	ch <- prometheus.MustNewConstMetric(c.namespaces, prometheus.GaugeValue, float64(st.Namespaces))
	ch <- prometheus.MustNewConstMetric(c.callbacks, prometheus.GaugeValue, float64(st.Callbacks))
	ch <- prometheus.MustNewConstMetric(c.callbacksFired, prometheus.CounterValue, float64(st.CallbacksFired))

	enabled := 0.0
	if st.EncryptionSet {
		enabled = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.encryptionSet, prometheus.GaugeValue, enabled)
}
