package cache

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Cache's counters as Prometheus metrics. It implements
// prometheus.Collector directly (no persistent state besides the labels),
// so a Cache can be registered with prometheus.Register the same way any
// other library collector is.
type Collector struct {
	cache *Cache
	name  string

	hits    *prometheus.Desc
	misses  *prometheus.Desc
	evicted *prometheus.Desc
	live    *prometheus.Desc
}

// NewCollector builds a Collector for cache, labeling its series with
// name (typically the cache's logical purpose, e.g. "session").
func NewCollector(name string, c *Cache) *Collector {
	constLabels := prometheus.Labels{"cache": name}
	return &Collector{
		cache: c,
		name:  name,
		hits: prometheus.NewDesc(
			"ttlcache_hits_total", "Number of GetAndRef calls satisfied from the index.",
			nil, constLabels),
		misses: prometheus.NewDesc(
			"ttlcache_misses_total", "Number of GetAndRef calls that invoked the constructor.",
			nil, constLabels),
		evicted: prometheus.NewDesc(
			"ttlcache_evicted_total", "Number of entries removed by the pruner.",
			nil, constLabels),
		live: prometheus.NewDesc(
			"ttlcache_live_entries", "Entries currently reachable from the index.",
			nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (col *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- col.hits
	ch <- col.misses
	ch <- col.evicted
	ch <- col.live
}

// Collect implements prometheus.Collector.
func (col *Collector) Collect(ch chan<- prometheus.Metric) {
	s := col.cache.Stats()

	ch <- prometheus.MustNewConstMetric(col.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(col.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(col.evicted, prometheus.CounterValue, float64(s.Evicted))
	ch <- prometheus.MustNewConstMetric(col.live, prometheus.GaugeValue, float64(col.cache.liveCount()))
}
