// Package metrics reports the pool statistics of connection sources to Prometheus.
package metrics

import (
	"slices"

	"github.com/a-peyrard/godi-datasource"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector is a prometheus.Collector reading the statistics of every source able to report them, at scrape
// time.
type PoolCollector struct {
	names   []string
	sources map[string]datasource.StatsReporter

	maxOpen *prometheus.Desc
	open    *prometheus.Desc
	idle    *prometheus.Desc
	inUse   *prometheus.Desc
}

var _ prometheus.Collector = (*PoolCollector)(nil)

// NewPoolCollector creates a collector for sources, keyed by data source name. Sources not implementing
// datasource.StatsReporter are skipped.
func NewPoolCollector(namespace string, sources map[string]datasource.ConnectionSource) *PoolCollector {
	c := &PoolCollector{
		sources: make(map[string]datasource.StatsReporter, len(sources)),
		maxOpen: newDesc(namespace, "max_open_connections", "Maximum number of connections of the pool."),
		open:    newDesc(namespace, "open_connections", "Number of established connections, in use or idle."),
		idle:    newDesc(namespace, "idle_connections", "Number of idle connections."),
		inUse:   newDesc(namespace, "in_use_connections", "Number of connections currently in use."),
	}
	for name, source := range sources {
		if reporter, ok := source.(datasource.StatsReporter); ok {
			c.sources[name] = reporter
			c.names = append(c.names, name)
		}
	}
	slices.Sort(c.names)

	return c
}

func newDesc(namespace string, name string, help string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "datasource", name),
		help,
		[]string{"datasource"},
		nil,
	)
}

// Names returns the names of the reported sources.
func (c *PoolCollector) Names() []string {
	return slices.Clone(c.names)
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxOpen
	ch <- c.open
	ch <- c.idle
	ch <- c.inUse
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, name := range c.names {
		stats := c.sources[name].PoolStats()
		ch <- prometheus.MustNewConstMetric(c.maxOpen, prometheus.GaugeValue, float64(stats.MaxOpen), name)
		ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(stats.Open), name)
		ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stats.Idle), name)
		ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(stats.InUse), name)
	}
}
