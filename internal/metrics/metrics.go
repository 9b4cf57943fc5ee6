// Package metrics exposes Prometheus collectors for the trading process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autotrader"

// Recorder records trading process metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	brokerRequests *prometheus.CounterVec
	brokerLatency  *prometheus.HistogramVec
	tokenIssued    prometheus.Counter
	fallbacks      *prometheus.CounterVec
	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	signals        *prometheus.CounterVec
	orders         *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
}

// New creates a Recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		brokerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broker_requests_total",
				Help:      "Brokerage requests by transaction id and outcome",
			},
			[]string{"tr_id", "outcome"},
		),
		brokerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "broker_request_duration_seconds",
				Help:      "Brokerage request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tr_id"},
		),
		tokenIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_issued_total",
				Help:      "Access tokens issued by the brokerage",
			},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synthetic_fallback_total",
				Help:      "Responses substituted with synthetic data",
			},
			[]string{"tr_id"},
		),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Scheduler fires by result",
			},
			[]string{"result"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of trading cycles",
				Buckets:   prometheus.DefBuckets,
			},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Signals produced by strategy and action",
			},
			[]string{"strategy", "action"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_total",
				Help:      "Orders submitted by side and status",
			},
			[]string{"side", "status"},
		),
		lastPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_price",
				Help:      "Last observed price per symbol",
			},
			[]string{"symbol"},
		),
	}

	r.registry.MustRegister(
		r.brokerRequests, r.brokerLatency, r.tokenIssued, r.fallbacks,
		r.cycles, r.cycleDuration, r.signals, r.orders, r.lastPrice,
	)

	return r
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordBrokerRequest records one brokerage round trip.
func (r *Recorder) RecordBrokerRequest(trID string, outcome string, elapsed time.Duration) {
	r.brokerRequests.WithLabelValues(trID, outcome).Inc()
	r.brokerLatency.WithLabelValues(trID).Observe(elapsed.Seconds())
}

// RecordTokenIssued records a new access token issuance.
func (r *Recorder) RecordTokenIssued() {
	r.tokenIssued.Inc()
}

// RecordFallback records a synthetic response substitution.
func (r *Recorder) RecordFallback(trID string) {
	r.fallbacks.WithLabelValues(trID).Inc()
}

// RecordCycle records a scheduler fire. result is "executed", "skipped" or "failed".
func (r *Recorder) RecordCycle(result string, elapsed time.Duration) {
	r.cycles.WithLabelValues(result).Inc()

	if result != "skipped" {
		r.cycleDuration.Observe(elapsed.Seconds())
	}
}

// RecordSignal records a produced signal.
func (r *Recorder) RecordSignal(strategy string, action string) {
	r.signals.WithLabelValues(strategy, action).Inc()
}

// RecordOrder records an order outcome.
func (r *Recorder) RecordOrder(side string, status string) {
	r.orders.WithLabelValues(side, status).Inc()
}

// RecordPrice records the last observed price for symbol.
func (r *Recorder) RecordPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
