package sql

import "github.com/prometheus/client_golang/prometheus"

// StatsCollector exposes a StatsDriver's counters as prometheus metrics.
// Register it with a prometheus.Registerer:
//
//	drv := sql.NewStatsDriver(base)
//	prometheus.MustRegister(sql.NewStatsCollector(drv))
type StatsCollector struct {
	driver *StatsDriver

	queries  *prometheus.Desc
	execs    *prometheus.Desc
	duration *prometheus.Desc
	slow     *prometheus.Desc
	errors   *prometheus.Desc
}

// NewStatsCollector returns a collector reading from the given driver.
func NewStatsCollector(drv *StatsDriver) *StatsCollector {
	return &StatsCollector{
		driver: drv,
		queries: prometheus.NewDesc(
			"lkey_driver_queries_total",
			"Number of row-returning statements executed.",
			nil, nil,
		),
		execs: prometheus.NewDesc(
			"lkey_driver_execs_total",
			"Number of non-row statements executed.",
			nil, nil,
		),
		duration: prometheus.NewDesc(
			"lkey_driver_duration_seconds_total",
			"Total time spent executing statements.",
			nil, nil,
		),
		slow: prometheus.NewDesc(
			"lkey_driver_slow_statements_total",
			"Number of statements exceeding the slow threshold.",
			nil, nil,
		),
		errors: prometheus.NewDesc(
			"lkey_driver_errors_total",
			"Number of failed statements.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queries
	ch <- c.execs
	ch <- c.duration
	ch <- c.slow
	ch <- c.errors
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.driver.Stats().Snapshot()
	ch <- prometheus.MustNewConstMetric(c.queries, prometheus.CounterValue, float64(s.Queries))
	ch <- prometheus.MustNewConstMetric(c.execs, prometheus.CounterValue, float64(s.Execs))
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.CounterValue, s.Duration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.slow, prometheus.CounterValue, float64(s.Slow))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
}
