// Package metrics declares the Prometheus instrumentation shared by the
// score computer and linear combiner binaries, following the teacher's
// Metrics-struct-plus-NewMetrics idiom (internal/escrow/metrics.go).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector this repo registers.
type Metrics struct {
	// Tick-loop metrics (score computer).
	TicksTotal       *prometheus.CounterVec
	TickDuration     *prometheus.HistogramVec
	LastComputeTs    *prometheus.GaugeVec
	PendingLtUpdates *prometheus.GaugeVec
	PendingSsUpdates *prometheus.GaugeVec

	// RPC metrics, shared by all five external service adapters.
	RPCCallsTotal    *prometheus.CounterVec
	RPCFailuresTotal *prometheus.CounterVec
	RPCDuration      *prometheus.HistogramVec

	// Bundle publication metrics.
	BundlesPublished     *prometheus.CounterVec
	BundleUploadFailures *prometheus.CounterVec

	// Linear combiner store metrics.
	PeersAssigned  prometheus.Counter
	TermsApplied   *prometheus.CounterVec
}

// NewMetrics constructs and registers all collectors with the default
// registry via promauto, mirroring the teacher's NewMetrics constructor.
func NewMetrics() *Metrics {
	return &Metrics{
		TicksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustgraph_ticks_total",
				Help: "Total number of score-computer domain ticks run, by domain and outcome",
			},
			[]string{"domain", "outcome"}, // outcome: ok, rpc_error
		),
		TickDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trustgraph_tick_duration_seconds",
				Help:    "Wall-clock duration of one domain tick",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"domain"},
		),
		LastComputeTs: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trustgraph_last_compute_timestamp_ms",
				Help: "Timestamp (ms) of the last completed compute-and-publish window",
			},
			[]string{"domain"},
		),
		PendingLtUpdates: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trustgraph_pending_local_trust_updates",
				Help: "Local-trust update entries buffered but not yet merged",
			},
			[]string{"domain"},
		),
		PendingSsUpdates: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trustgraph_pending_snap_status_updates",
				Help: "Snap-status update entries buffered but not yet merged",
			},
			[]string{"domain"},
		),
		RPCCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustgraph_rpc_calls_total",
				Help: "Total external RPC calls issued, by service and method",
			},
			[]string{"service", "method"},
		),
		RPCFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustgraph_rpc_failures_total",
				Help: "Total external RPC calls that returned an error, by service and method",
			},
			[]string{"service", "method"},
		),
		RPCDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trustgraph_rpc_duration_seconds",
				Help:    "Duration of external RPC calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method"},
		),
		BundlesPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustgraph_bundles_published_total",
				Help: "Total credential bundles published, by domain and destination",
			},
			[]string{"domain", "destination"}, // destination: local, s3
		),
		BundleUploadFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustgraph_bundle_upload_failures_total",
				Help: "Total bundle uploads that failed",
			},
			[]string{"domain"},
		),
		PeersAssigned: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trustgraph_lc_peers_assigned_total",
				Help: "Total distinct peer IDs assigned by the linear combiner",
			},
		),
		TermsApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustgraph_lc_terms_applied_total",
				Help: "Total local-trust terms applied, by form",
			},
			[]string{"form"},
		),
	}
}

// RecordRPC records one RPC call's outcome and duration.
func (m *Metrics) RecordRPC(service, method string, failed bool, seconds float64) {
	m.RPCCallsTotal.WithLabelValues(service, method).Inc()
	m.RPCDuration.WithLabelValues(service, method).Observe(seconds)
	if failed {
		m.RPCFailuresTotal.WithLabelValues(service, method).Inc()
	}
}

// RecordTick records one domain tick's outcome and duration.
func (m *Metrics) RecordTick(domain, outcome string, seconds float64) {
	m.TicksTotal.WithLabelValues(domain, outcome).Inc()
	m.TickDuration.WithLabelValues(domain).Observe(seconds)
}
