package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics of the service.
type Metrics struct {
	MergeRequests    *prometheus.CounterVec
	MergeLatency     *prometheus.HistogramVec
	ThreatsAdded     prometheus.Counter
	ThreatsSkipped   prometheus.Counter
	ScannerPolls     *prometheus.CounterVec
	ScannerFindings  *prometheus.CounterVec
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		MergeRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threatsmith_merge_requests_total",
				Help: "Total number of threat model merge requests.",
			},
			[]string{"primary_kind", "result"},
		),
		MergeLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threatsmith_merge_latency_seconds",
				Help:    "Latency of threat model merges.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"primary_kind"},
		),
		ThreatsAdded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "threatsmith_merge_threats_added_total",
				Help: "Total number of threats added by merges.",
			},
		),
		ThreatsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "threatsmith_merge_threats_skipped_total",
				Help: "Total number of duplicate threats skipped by merges.",
			},
		),
		ScannerPolls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threatsmith_scanner_polls_total",
				Help: "Total number of vulnerability scanner polls.",
			},
			[]string{"scanner", "result"},
		),
		ScannerFindings: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threatsmith_scanner_findings_total",
				Help: "Total number of findings imported from scanners.",
			},
			[]string{"scanner"},
		),
	}
}

// RecordMerge records the outcome and latency of one merge invocation.
func (m *Metrics) RecordMerge(primaryKind, result string, added, skipped int, duration time.Duration) {
	m.MergeRequests.WithLabelValues(primaryKind, result).Inc()
	m.MergeLatency.WithLabelValues(primaryKind).Observe(duration.Seconds())
	m.ThreatsAdded.Add(float64(added))
	m.ThreatsSkipped.Add(float64(skipped))
}

// RecordScannerPoll records one scanner poll attempt.
func (m *Metrics) RecordScannerPoll(scanner, result string, findings int) {
	m.ScannerPolls.WithLabelValues(scanner, result).Inc()
	if findings > 0 {
		m.ScannerFindings.WithLabelValues(scanner).Add(float64(findings))
	}
}
