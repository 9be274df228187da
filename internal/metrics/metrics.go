// Package metrics exposes run statistics as Prometheus collectors.
//
// The generator is a batch job, so nothing is served over HTTP. Collectors
// live on a private registry that is written once, at the end of the run, in
// the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "telemetrygen"

// Collector groups every metric of one run.
type Collector struct {
	registry *prometheus.Registry

	rows          *prometheus.CounterVec
	flushes       prometheus.Counter
	flushDuration prometheus.Histogram
	daysSimulated prometheus.Counter
	daysSkipped   prometheus.Counter
	dauRatio      prometheus.Histogram
	dauTarget     prometheus.Gauge
	dauRealized   prometheus.Gauge
	poolSize      prometheus.Gauge
	phaseDuration *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// NewCollector creates and registers all collectors on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to the store, by table.",
		}, []string{"table"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Activity buffer flushes.",
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent writing one activity batch.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		daysSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_simulated_total",
			Help:      "Simulated days, skipped days included.",
		}),
		daysSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_skipped_total",
			Help:      "Days without activity because the pool was empty or the target was zero.",
		}),
		dauRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dau_realized_ratio",
			Help:      "Realized DAU divided by the curve target, per day with a positive target.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		dauTarget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dau_target",
			Help:      "DAU target of the last simulated day.",
		}),
		dauRealized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dau_realized",
			Help:      "Realized DAU of the last simulated day.",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_pool_size",
			Help:      "Live players in the active pool on the last simulated day.",
		}),
		phaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each pipeline phase.",
		}, []string{"phase"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the run finished.",
		}),
	}

	c.registry.MustRegister(
		c.rows,
		c.flushes,
		c.flushDuration,
		c.daysSimulated,
		c.daysSkipped,
		c.dauRatio,
		c.dauTarget,
		c.dauRealized,
		c.poolSize,
		c.phaseDuration,
		c.lastRun,
	)
	return c
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// AddRows counts n rows written to table.
func (c *Collector) AddRows(table string, n int) {
	c.rows.WithLabelValues(table).Add(float64(n))
}

// ObserveFlush records one activity flush.
func (c *Collector) ObserveFlush(sessions, events, purchases int, d time.Duration) {
	c.flushes.Inc()
	c.flushDuration.Observe(d.Seconds())
	c.AddRows("sessions", sessions)
	c.AddRows("events", events)
	c.AddRows("purchases", purchases)
}

// ObserveDay records the outcome of one simulated day.
func (c *Collector) ObserveDay(target, realized, pool int, skipped bool) {
	c.daysSimulated.Inc()
	if skipped {
		c.daysSkipped.Inc()
	}
	if target > 0 {
		c.dauRatio.Observe(float64(realized) / float64(target))
	}
	c.dauTarget.Set(float64(target))
	c.dauRealized.Set(float64(realized))
	c.poolSize.Set(float64(pool))
}

// ObservePhase records how long a pipeline phase took.
func (c *Collector) ObservePhase(phase string, d time.Duration) {
	c.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
}

// MarkFinished stamps the run completion time.
func (c *Collector) MarkFinished(t time.Time) {
	c.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry to path, creating parent directories.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics: failed to create directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("metrics: failed to write textfile: %w", err)
	}
	return nil
}
