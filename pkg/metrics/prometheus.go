package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	updatesTotal       *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	opportunitiesTotal *prometheus.CounterVec
	bestBid            *prometheus.GaugeVec
	bestAsk            *prometheus.GaugeVec
	scanDuration       prometheus.Histogram
	connected          *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		updatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpscan_updates_total",
				Help: "Total number of market-data updates received",
			},
			[]string{"provider", "type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		opportunitiesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpscan_opportunities_total",
				Help: "Total number of arbitrage opportunities detected",
			},
			[]string{"kind", "symbol"},
		),
		bestBid: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perpscan_best_bid",
				Help: "Last best bid per provider and symbol",
			},
			[]string{"provider", "symbol"},
		),
		bestAsk: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perpscan_best_ask",
				Help: "Last best ask per provider and symbol",
			},
			[]string{"provider", "symbol"},
		),
		scanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "perpscan_scan_duration_seconds",
				Help:    "Duration of arbitrage scans in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		connected: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perpscan_provider_connected",
				Help: "Provider connection state (1 connected, 0 not)",
			},
			[]string{"provider"},
		),
	}
}

// RecordUpdate records one accepted market-data update.
func (r *Recorder) RecordUpdate(provider, dataType string) {
	r.updatesTotal.WithLabelValues(provider, dataType).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordOpportunity records a detected arbitrage opportunity.
func (r *Recorder) RecordOpportunity(kind, symbol string) {
	r.opportunitiesTotal.WithLabelValues(kind, symbol).Inc()
}

// RecordBook records the latest top-of-book for a provider and symbol.
func (r *Recorder) RecordBook(provider, symbol string, bid, ask float64) {
	r.bestBid.WithLabelValues(provider, symbol).Set(bid)
	r.bestAsk.WithLabelValues(provider, symbol).Set(ask)
}

// RecordScanDuration records one scan's duration in seconds.
func (r *Recorder) RecordScanDuration(seconds float64) {
	r.scanDuration.Observe(seconds)
}

// SetConnected records a provider's connection state.
func (r *Recorder) SetConnected(provider string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	r.connected.WithLabelValues(provider).Set(v)
}
