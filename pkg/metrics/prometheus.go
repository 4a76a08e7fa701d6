package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal      *prometheus.CounterVec
	ticksDropped    *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	signalsAccepted *prometheus.CounterVec
	gateRejections  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	pairCount       prometheus.Gauge
	portfolioSharpe prometheus.Gauge
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_ticks_total",
				Help: "Total number of observations processed",
			},
			[]string{"symbol"},
		),
		ticksDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_ticks_dropped_total",
				Help: "Observations discarded before processing",
			},
			[]string{"reason"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_signals_total",
				Help: "Signals generated per strategy and action",
			},
			[]string{"strategy", "action"},
		),
		signalsAccepted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_signals_accepted_total",
				Help: "Signals that passed the risk gate",
			},
			[]string{"strategy"},
		),
		gateRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_gate_rejections_total",
				Help: "Signals rejected by the order-level risk gate",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantcore_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		pairCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quantcore_tracked_pairs",
				Help: "Number of currently qualified relationship pairs",
			},
		),
		portfolioSharpe: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quantcore_portfolio_sharpe",
				Help: "Sharpe ratio of the latest converged allocation",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantcore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick counts a processed observation.
func (r *Recorder) RecordTick(symbol string) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
}

// RecordTickDropped counts a discarded observation.
func (r *Recorder) RecordTickDropped(reason string) {
	r.ticksDropped.WithLabelValues(reason).Inc()
}

// RecordSignal counts a generated signal.
func (r *Recorder) RecordSignal(strategy, action string) {
	r.signalsTotal.WithLabelValues(strategy, action).Inc()
}

// RecordSignalAccepted counts a gate-approved signal.
func (r *Recorder) RecordSignalAccepted(strategy string) {
	r.signalsAccepted.WithLabelValues(strategy).Inc()
}

// RecordGateRejection counts a risk-gate rejection.
func (r *Recorder) RecordGateRejection(reason string) {
	r.gateRejections.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordPairCount records the tracked pair gauge.
func (r *Recorder) RecordPairCount(n int) {
	r.pairCount.Set(float64(n))
}

// RecordPortfolioSharpe records the allocation Sharpe gauge.
func (r *Recorder) RecordPortfolioSharpe(v float64) {
	r.portfolioSharpe.Set(v)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
