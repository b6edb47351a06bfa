// Package metrics provides Prometheus metrics for scans, detections and
// notifications.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScanMetrics collects and exposes arbitrage-finder metrics on a private
// registry.
type ScanMetrics struct {
	registry *prometheus.Registry

	ScansTotal         *prometheus.CounterVec
	ScanDuration       prometheus.Histogram
	FetchDuration      *prometheus.HistogramVec
	FetchFailures      *prometheus.CounterVec
	EventsScanned      *prometheus.CounterVec
	OpportunitiesFound *prometheus.CounterVec
	Rejections         *prometheus.CounterVec
	BestROI            prometheus.Gauge
	LastScanTimestamp  prometheus.Gauge
	NotificationsTotal *prometheus.CounterVec
	OddsQuotaRemaining prometheus.Gauge
}

// New creates a ScanMetrics with every collector registered.
func New() *ScanMetrics {
	m := &ScanMetrics{
		registry: prometheus.NewRegistry(),

		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbfinder_scans_total",
				Help: "Scans by outcome (completed, skipped, failed)",
			},
			[]string{"status"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arbfinder_scan_duration_seconds",
				Help:    "Wall time of a full scan across competitions",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
			},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbfinder_fetch_duration_seconds",
				Help:    "Odds fetch latency per competition",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"competition"},
		),
		FetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbfinder_fetch_failures_total",
				Help: "Odds fetches that failed, per competition",
			},
			[]string{"competition"},
		),
		EventsScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbfinder_events_scanned_total",
				Help: "Events evaluated, per competition",
			},
			[]string{"competition"},
		),
		OpportunitiesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbfinder_opportunities_total",
				Help: "Opportunities at or above the report threshold",
			},
			[]string{"competition", "market"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbfinder_filter_rejections_total",
				Help: "Candidate outcome sets rejected, by filter",
			},
			[]string{"filter"},
		),
		BestROI: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbfinder_best_roi_pct",
				Help: "Highest ROI percentage in the latest scan",
			},
		),
		LastScanTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbfinder_last_scan_timestamp_seconds",
				Help: "Unix time of the latest completed scan",
			},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbfinder_notifications_total",
				Help: "Digest notifications by result (sent, unchanged, below_threshold, failed)",
			},
			[]string{"result"},
		),
		OddsQuotaRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbfinder_odds_quota_remaining",
				Help: "Requests remaining on the odds provider plan",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ScansTotal,
		m.ScanDuration,
		m.FetchDuration,
		m.FetchFailures,
		m.EventsScanned,
		m.OpportunitiesFound,
		m.Rejections,
		m.BestROI,
		m.LastScanTimestamp,
		m.NotificationsTotal,
		m.OddsQuotaRemaining,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ScanMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFetch records one competition fetch.
func (m *ScanMetrics) RecordFetch(competition string, d time.Duration, events int, err error) {
	m.FetchDuration.WithLabelValues(competition).Observe(d.Seconds())
	if err != nil {
		m.FetchFailures.WithLabelValues(competition).Inc()
		return
	}
	m.EventsScanned.WithLabelValues(competition).Add(float64(events))
}

// RecordScan records a completed scan.
func (m *ScanMetrics) RecordScan(d time.Duration, bestROI float64, at time.Time) {
	m.ScansTotal.WithLabelValues("completed").Inc()
	m.ScanDuration.Observe(d.Seconds())
	m.BestROI.Set(bestROI)
	m.LastScanTimestamp.Set(float64(at.Unix()))
}

// RecordSkip records a scan skipped by the schedule gate or an overlapping
// run.
func (m *ScanMetrics) RecordSkip() {
	m.ScansTotal.WithLabelValues("skipped").Inc()
}

// RecordOpportunity records one reported opportunity.
func (m *ScanMetrics) RecordOpportunity(competition, market string) {
	m.OpportunitiesFound.WithLabelValues(competition, market).Inc()
}

// RecordRejections adds per-filter rejection counts.
func (m *ScanMetrics) RecordRejections(byFilter map[string]int) {
	for f, n := range byFilter {
		m.Rejections.WithLabelValues(f).Add(float64(n))
	}
}

// RecordNotification records a digest notification result.
func (m *ScanMetrics) RecordNotification(result string) {
	m.NotificationsTotal.WithLabelValues(result).Inc()
}
