// Package metrics exposes batch outcomes as Prometheus metrics written to a
// node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lukemcguire/deadcam/result"
)

// Metrics holds the Prometheus collectors for deadcam runs.
type Metrics struct {
	registry      *prometheus.Registry
	verdictsTotal *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	batchRecords  *prometheus.GaugeVec
	batchDuration prometheus.Gauge
	lastRun       prometheus.Gauge
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	verdictsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deadcam_verdicts_total",
		Help: "Probe verdicts by reason and strategy",
	}, []string{"reason", "strategy"})
	probeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deadcam_probe_duration_seconds",
		Help:    "Time spent probing a single URL",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"strategy"})
	batchRecords := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "deadcam_batch_records",
		Help: "Records at each stage of the last batch",
	}, []string{"stage"})
	batchDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "deadcam_batch_duration_seconds",
		Help: "Wall-clock duration of the last batch",
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "deadcam_last_run_timestamp_seconds",
		Help: "Unix time the last batch finished",
	})

	registry.MustRegister(verdictsTotal, probeDuration, batchRecords, batchDuration, lastRun)

	return &Metrics{
		registry:      registry,
		verdictsTotal: verdictsTotal,
		probeDuration: probeDuration,
		batchRecords:  batchRecords,
		batchDuration: batchDuration,
		lastRun:       lastRun,
	}
}

// ObserveVerdict counts one verdict and its probe duration.
func (m *Metrics) ObserveVerdict(v result.Verdict) {
	m.verdictsTotal.WithLabelValues(string(v.Reason), string(v.Strategy)).Inc()
	m.probeDuration.WithLabelValues(string(v.Strategy)).Observe(v.Duration.Seconds())
}

// ObserveBatch records a finished batch: stage gauges, duration, finish time
// and every verdict.
func (m *Metrics) ObserveBatch(stats result.BatchStats, verdicts []result.Verdict, finished time.Time) {
	m.batchRecords.WithLabelValues("loaded").Set(float64(stats.Loaded))
	m.batchRecords.WithLabelValues("excluded").Set(float64(stats.Excluded))
	m.batchRecords.WithLabelValues("duplicates").Set(float64(stats.Duplicates))
	m.batchRecords.WithLabelValues("checked").Set(float64(stats.Checked))
	m.batchRecords.WithLabelValues("alive").Set(float64(stats.Alive))
	m.batchDuration.Set(stats.Duration.Seconds())
	m.lastRun.Set(float64(finished.Unix()))

	for _, v := range verdicts {
		m.ObserveVerdict(v)
	}
}

// Registry returns the registry holding deadcam collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
