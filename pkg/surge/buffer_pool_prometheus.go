package surge

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BufferPoolCollector exposes a ConsumerBufferPool's metrics as Prometheus
// metrics. Register it with a prometheus.Registerer; metrics are read from
// the pool's atomic counters on each scrape.
type BufferPoolCollector struct {
	pool *ConsumerBufferPool

	acquires       *prometheus.Desc
	releases       *prometheus.Desc
	fallbacks      *prometheus.Desc
	doubleReleases *prometheus.Desc
	available      *prometheus.Desc
	capacity       *prometheus.Desc
	hitRate        *prometheus.Desc
}

// NewBufferPoolCollector creates a collector for the given pool.
func NewBufferPoolCollector(pool *ConsumerBufferPool) *BufferPoolCollector {
	return &BufferPoolCollector{
		pool: pool,
		acquires: prometheus.NewDesc(
			prometheus.BuildFQName("surge", "buffer_pool", "acquires_total"),
			"Total number of buffer Acquire operations",
			nil, nil,
		),
		releases: prometheus.NewDesc(
			prometheus.BuildFQName("surge", "buffer_pool", "releases_total"),
			"Total number of buffers returned to the pool",
			nil, nil,
		),
		fallbacks: prometheus.NewDesc(
			prometheus.BuildFQName("surge", "buffer_pool", "fallback_allocations_total"),
			"Total number of one-off allocations on pool exhaustion",
			nil, nil,
		),
		doubleReleases: prometheus.NewDesc(
			prometheus.BuildFQName("surge", "buffer_pool", "double_releases_total"),
			"Total number of Release calls past the first on a lease",
			nil, nil,
		),
		available: prometheus.NewDesc(
			prometheus.BuildFQName("surge", "buffer_pool", "available"),
			"Buffers currently leasable without a fallback allocation",
			nil, nil,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName("surge", "buffer_pool", "capacity"),
			"Configured pool size",
			nil, nil,
		),
		hitRate: prometheus.NewDesc(
			prometheus.BuildFQName("surge", "buffer_pool", "hit_rate"),
			"Percentage of acquires served from the pool (0-100)",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *BufferPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquires
	ch <- c.releases
	ch <- c.fallbacks
	ch <- c.doubleReleases
	ch <- c.available
	ch <- c.capacity
	ch <- c.hitRate
}

// Collect implements prometheus.Collector.
func (c *BufferPoolCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.pool.Metrics()

	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(m.Acquires))
	ch <- prometheus.MustNewConstMetric(c.releases, prometheus.CounterValue, float64(m.Releases))
	ch <- prometheus.MustNewConstMetric(c.fallbacks, prometheus.CounterValue, float64(m.Fallbacks))
	ch <- prometheus.MustNewConstMetric(c.doubleReleases, prometheus.CounterValue, float64(m.DoubleReleases))
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(m.Available))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(m.PoolSize))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, m.HitRate)
}
